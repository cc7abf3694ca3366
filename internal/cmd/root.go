// Package cmd contains all CLI commands for fishviz.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zebrafishlab/fishviz/internal/config"
)

var (
	// Version is the current version of fishviz
	Version = "0.1.0"

	// Global flags
	verbose    bool
	configPath string
	forAgents  bool

	// logger is built before every command runs.
	logger = zap.NewNop()
)

// rootCmd plots an activity recording; subcommands cover config, stats and history.
var rootCmd = &cobra.Command{
	Use:   "fishviz <activity_file> <genotype_file>",
	Short: "Plot zebrafish activity and sleep by genotype",
	Long: `fishviz loads a per-fish activity recording and a genotype table, resamples
the recording into windows, and writes an interactive HTML figure which is
opened in a browser.

Views:
  default          one panel per genotype with every fish and the genotype summary
  --summary        one summary trace per genotype, with a bootstrap confidence band
  --ignoregtype    every fish in one panel, genotypes ignored
  both             one summary trace over all fish

Settings can be stored in .fishviz/config.yaml (see 'fishviz config init');
flags given on the command line always win.

Examples:
  fishviz activity.txt genotypes.txt                  # grid of genotypes
  fishviz -s -c 90 activity.txt genotypes.txt         # summary with 90% band
  fishviz -z -w 30 -S median activity.txt genos.txt   # sleep, 30-bin windows
  fishviz -g --no-show -o day4.html act.txt gen.txt   # HTML + SVG, headless
  fishviz --watch --no-show act.txt gen.txt           # re-plot on every write`,
	Version: Version,
	Args: func(cmd *cobra.Command, args []string) error {
		if forAgents {
			return nil
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(verbose, cmd.ErrOrStderr())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: runPlot,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: .fishviz/config.yaml)")
	rootCmd.Flags().BoolVar(&forAgents, "for-agents", false, "Output machine-readable capability discovery JSON")

	// Set custom help function to intercept --for-agents flag
	originalHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if forAgents {
			outputAgentHelp(cmd.OutOrStdout(), cmd)
			return
		}
		originalHelp(cmd, args)
	})
}

// newLogger builds a logger from the production config that writes console
// lines to w.
func newLogger(debug bool, w io.Writer) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	sink := zapcore.Lock(zapcore.AddSync(w))
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg.EncoderConfig), sink, cfg.Level)
	return zap.New(core, zap.ErrorOutput(sink))
}

// loadConfig reads --config when given, otherwise the nearest .fishviz/config.yaml.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config %s: %w", configPath, err)
		}
		return config.LoadFromPath(configPath)
	}
	return config.Load(".")
}

// CommandInfo represents a command for agent discovery
type CommandInfo struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Usage       string        `json:"usage"`
	Flags       []FlagInfo    `json:"flags,omitempty"`
	Subcommands []CommandInfo `json:"subcommands,omitempty"`
	Examples    []string      `json:"examples,omitempty"`
}

// FlagInfo represents a command flag for agent discovery
type FlagInfo struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
}

// outputAgentHelp writes machine-readable JSON describing all commands
func outputAgentHelp(w io.Writer, cmd *cobra.Command) {
	root := buildCommandInfo(cmd.Root())

	output := map[string]interface{}{
		"version":  Version,
		"usage":    root.Usage,
		"flags":    root.Flags,
		"commands": root.Subcommands,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(output)
}

// buildCommandInfo recursively builds command information for agent discovery
func buildCommandInfo(cmd *cobra.Command) CommandInfo {
	info := CommandInfo{
		Name:        cmd.Name(),
		Description: cmd.Short,
		Usage:       cmd.UseLine(),
	}

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		info.Flags = append(info.Flags, FlagInfo{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Description: f.Usage,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
		})
	})

	for _, sub := range cmd.Commands() {
		if !sub.Hidden && sub.Name() != "help" && sub.Name() != "completion" {
			info.Subcommands = append(info.Subcommands, buildCommandInfo(sub))
		}
	}

	if cmd.Example != "" {
		for _, line := range strings.Split(cmd.Example, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				info.Examples = append(info.Examples, trimmed)
			}
		}
	}

	return info
}
