package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zebrafishlab/fishviz/internal/config"
	"github.com/zebrafishlab/fishviz/internal/output"
)

var configFormat string

// configCmd groups the config subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or show the fishviz configuration",
	Long: `Manage .fishviz/config.yaml.

The config file holds defaults for the plot flags, the bootstrap, optional
outputs, the publisher and the run history. Flags given on the command line
override it.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write .fishviz/config.yaml with the default settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Example: `  fishviz config show
  fishviz config show --format json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)

	configShowCmd.Flags().StringVar(&configFormat, "format", output.DefaultFormat.String(), "Output format (yaml|json)")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.SaveDefault(".")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(configFormat)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	formatter, err := output.GetFormatter(format)
	if err != nil {
		return err
	}
	return formatter.FormatToWriter(cmd.OutOrStdout(), cfg)
}
