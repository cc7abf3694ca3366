package cmd

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/zebrafishlab/fishviz/internal/config"
	"github.com/zebrafishlab/fishviz/internal/options"
	"github.com/zebrafishlab/fishviz/internal/watch"
)

var (
	plotFlags options.Raw

	noShow    bool
	writeXLSX bool
	doPublish bool
	doWatch   bool
	noHistory bool
)

func init() {
	f := rootCmd.Flags()
	addPlotFlags(f, &plotFlags)

	f.BoolVar(&noShow, "no-show", false, "Write the figure without opening a browser")
	f.BoolVar(&writeXLSX, "xlsx", false, "Also write the resampled data and summary as .xlsx")
	f.BoolVar(&doPublish, "publish", false, "Copy outputs with the configured publisher")
	f.BoolVar(&doWatch, "watch", false, "Re-plot whenever the input files change")
	f.BoolVar(&noHistory, "no-history", false, "Do not record this run in the history database")
}

// addPlotFlags registers the plotting flags on fs, bound to raw.
func addPlotFlags(fs *pflag.FlagSet, raw *options.Raw) {
	fs.StringVarP(&raw.Out, "out", "o", "", "Output HTML file (default: activity file with .html)")
	fs.StringVarP(&raw.Browser, "browser", "b", "", "Browser executable used to open the figure (default: system browser)")
	fs.BoolVarP(&raw.Sleep, "sleep", "z", false, "Plot sleep instead of activity")
	fs.BoolVarP(&raw.Summary, "summary", "s", false, "Plot only the summary trace of each genotype")
	fs.BoolVarP(&raw.SVG, "svg", "g", false, "Also export the figure as SVG")
	fs.StringVarP(&raw.ConfInt, "confint", "c", "95", "Confidence interval in percent, 0 to disable")
	fs.StringVarP(&raw.Window, "window", "w", "10", "Number of bins merged into one point")
	fs.StringVarP(&raw.LightsOn, "lightson", "l", "9:00:00", "Time lights turn on")
	fs.StringVarP(&raw.LightsOff, "lightsoff", "d", "23:00:00", "Time lights turn off")
	fs.StringVarP(&raw.StartDay, "startday", "D", "4", "Day of life the recording starts on")
	fs.StringVarP(&raw.Stat, "stat", "S", "mean", "Summary statistic: mean|median|max|min|none")
	fs.StringVarP(&raw.TimeShift, "timeshift", "t", "center", "Where a window is drawn: left|right|center|interval")
	fs.BoolVarP(&raw.IgnoreGenotype, "ignoregtype", "i", false, "Ignore genotypes and pool all fish")
}

func runPlot(cmd *cobra.Command, args []string) error {
	if forAgents {
		outputAgentHelp(cmd.OutOrStdout(), cmd)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	raw := plotFlags
	raw.ActivityPath, raw.GenotypePath = args[0], args[1]
	applyConfig(cmd.Flags().Changed, &raw, cfg)

	opts, err := options.Resolve(raw)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newPipeline(ctx, opts, cfg, pipelineFlags{
		show:      !(noShow || (cfg.Output.Headless && !cmd.Flags().Changed("no-show"))),
		xlsx:      writeXLSX || (cfg.Output.XLSX && !cmd.Flags().Changed("xlsx")),
		publish:   doPublish,
		noHistory: noHistory || cfg.History.Disabled,
	})
	defer p.Close()

	if err := p.Run(ctx); err != nil {
		return err
	}
	if !doWatch {
		return nil
	}
	return watchInputs(ctx, p)
}

// applyConfig fills every plot flag the user did not set from cfg.
func applyConfig(changed func(name string) bool, raw *options.Raw, cfg *config.Config) {
	set := func(name string, dst *string, v string) {
		if !changed(name) && v != "" {
			*dst = v
		}
	}
	set("confint", &raw.ConfInt, cfg.Plot.ConfInt)
	set("lightson", &raw.LightsOn, cfg.Plot.LightsOn)
	set("lightsoff", &raw.LightsOff, cfg.Plot.LightsOff)
	set("stat", &raw.Stat, cfg.Plot.Stat)
	set("timeshift", &raw.TimeShift, cfg.Plot.TimeShift)
	set("browser", &raw.Browser, cfg.Plot.Browser)
	if cfg.Plot.Window > 0 {
		set("window", &raw.Window, strconv.Itoa(cfg.Plot.Window))
	}
	if cfg.Plot.StartDay > 0 {
		set("startday", &raw.StartDay, strconv.Itoa(cfg.Plot.StartDay))
	}
	if !changed("svg") && cfg.Output.SVG {
		raw.SVG = true
	}
	raw.Reps = cfg.Bootstrap.Reps
	raw.Seed = cfg.Bootstrap.Seed
}

// watchInputs re-runs p whenever the activity or genotype file changes,
// until ctx is canceled.
func watchInputs(ctx context.Context, p *pipeline) error {
	w, err := watch.New(logger, watch.DefaultDebounce, p.opts.ActivityPath, p.opts.GenotypePath)
	if err != nil {
		return err
	}
	logger.Info("watching inputs, press Ctrl-C to stop",
		zap.String("activity", p.opts.ActivityPath),
		zap.String("genotype", p.opts.GenotypePath))

	// The browser was opened by the first run; reruns only rewrite files.
	p.flags.show = false
	err = w.Run(ctx, func(ctx context.Context, _ []string) error {
		if !p.InputsChanged() {
			logger.Debug("input content unchanged, skipping")
			return nil
		}
		return p.Run(ctx)
	})

	stats := w.Stats()
	logger.Info("stopped watching",
		zap.Int("events", stats.Events),
		zap.Int("reruns", stats.Runs),
		zap.Int("errors", stats.Errors))
	return err
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
