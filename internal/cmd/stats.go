package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zebrafishlab/fishviz/internal/activity"
	"github.com/zebrafishlab/fishviz/internal/options"
	"github.com/zebrafishlab/fishviz/internal/output"
	"github.com/zebrafishlab/fishviz/internal/summary"
	"github.com/zebrafishlab/fishviz/internal/visualize"
)

var (
	statsFlags  options.Raw
	statsFormat string
)

// statsCmd prints the summary traces instead of plotting them
var statsCmd = &cobra.Command{
	Use:   "stats <activity_file> <genotype_file>",
	Short: "Print the per-genotype summary table",
	Long: `Load and resample a recording exactly as the plot command does and print
the summary trace of each genotype, with its confidence band, as YAML or JSON.

Time points are given as zeitgeber hours (left and right edge of each window).
Values that cannot be computed are null.`,
	Example: `  fishviz stats activity.txt genotypes.txt
  fishviz stats -z -S median --format json activity.txt genotypes.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	addPlotFlags(statsCmd.Flags(), &statsFlags)
	statsCmd.Flags().StringVar(&statsFormat, "format", output.DefaultFormat.String(), "Output format (yaml|json)")
}

func runStats(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statsFormat)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	raw := statsFlags
	raw.ActivityPath, raw.GenotypePath = args[0], args[1]
	applyConfig(cmd.Flags().Changed, &raw, cfg)
	opts, err := options.Resolve(raw)
	if err != nil {
		return err
	}

	ds, err := activity.Load(opts.ActivityPath, opts.GenotypePath, opts.LoadParams())
	if err != nil {
		return err
	}
	if ds, err = activity.Resample(ds, opts.Window); err != nil {
		return err
	}
	if opts.IgnoreGenotype {
		ds = ds.Relabel(visualize.AllCombined)
	}

	sp := opts.SummaryParams()
	traces, err := summary.ByGenotype(commandContext(cmd), ds, sp)
	if err != nil {
		return err
	}

	formatter, err := output.GetFormatter(format)
	if err != nil {
		return err
	}
	return formatter.FormatToWriter(cmd.OutOrStdout(), output.NewSummaryOutput(opts.ActivityPath, ds, sp, traces))
}
