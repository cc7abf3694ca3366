// Package main is the entry point for the fishviz CLI tool.
package main

import (
	"github.com/zebrafishlab/fishviz/internal/cmd"
)

func main() {
	cmd.Execute()
}
