package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zebrafishlab/fishviz/internal/output"
	"github.com/zebrafishlab/fishviz/internal/store"
)

var (
	historyLimit  int
	historyFormat string
	historyClear  bool
	historyID     string
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded plot runs",
	Long: `Display the runs recorded in the history database, newest first.

Each entry includes the input files, the output path, the view, signal,
statistic and window used, the number of fish and genotypes, how long the
run took and, for failed runs, the error.

Flags:
  --limit N      Number of runs to show (default: 10, 0 for all)
  --format       Output format: yaml|json (default: yaml)
  --id ID        Show a single run
  --clear        Delete all recorded runs`,
	Example: `  fishviz history
  fishviz history --limit 50 --format json
  fishviz history --id 1b4e28ba-2fa1-11d2-883f-0016d3cca427`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of runs to show, 0 for all")
	historyCmd.Flags().StringVar(&historyFormat, "format", output.DefaultFormat.String(), "Output format (yaml|json)")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Delete all recorded runs")
	historyCmd.Flags().StringVar(&historyID, "id", "", "Show the run with this id")
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(historyFormat)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.History.Path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no run history at %s", cfg.History.Path)
	}
	st, err := store.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	if historyClear {
		if err := st.Clear(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", st.Path())
		return nil
	}

	formatter, err := output.GetFormatter(format)
	if err != nil {
		return err
	}

	if historyID != "" {
		run, err := st.GetRun(commandContext(cmd), historyID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no run with id %s", historyID)
		}
		if err != nil {
			return err
		}
		return formatter.FormatToWriter(cmd.OutOrStdout(), run)
	}

	runs, err := st.ListRuns(commandContext(cmd), historyLimit)
	if err != nil {
		return err
	}
	totals, err := st.GetStats()
	if err != nil {
		return err
	}
	return formatter.FormatToWriter(cmd.OutOrStdout(), output.NewRunListOutput(runs, totals))
}
