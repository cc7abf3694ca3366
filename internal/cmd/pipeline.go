package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/zebrafishlab/fishviz/internal/activity"
	"github.com/zebrafishlab/fishviz/internal/config"
	"github.com/zebrafishlab/fishviz/internal/options"
	"github.com/zebrafishlab/fishviz/internal/output"
	"github.com/zebrafishlab/fishviz/internal/publish"
	"github.com/zebrafishlab/fishviz/internal/render"
	"github.com/zebrafishlab/fishviz/internal/store"
	"github.com/zebrafishlab/fishviz/internal/summary"
	"github.com/zebrafishlab/fishviz/internal/visualize"
)

// pipelineFlags are the run switches that are not plot options.
type pipelineFlags struct {
	show      bool
	xlsx      bool
	publish   bool
	noHistory bool
}

// pipeline runs load, resample, figure and write for one set of options.
// Everything after the HTML write is best effort.
type pipeline struct {
	opts   *options.Options
	flags  pipelineFlags
	logger *zap.Logger

	writer    *render.Writer
	publisher publish.Publisher
	history   *store.Store

	// seen holds input hashes of the last successful run.
	seen map[string]string
}

func newPipeline(ctx context.Context, opts *options.Options, cfg *config.Config, flags pipelineFlags) *pipeline {
	p := &pipeline{
		opts:   opts,
		flags:  flags,
		logger: logger,
		writer: render.NewWriter(logger),
		seen:   make(map[string]string),
	}

	if flags.publish {
		pub, err := publish.New(ctx, cfg.Publish)
		if err != nil {
			logger.Warn("publishing disabled", zap.Error(err))
		} else {
			p.publisher = pub
		}
	}

	switch {
	case flags.noHistory:
	case cfg.Root == "" && !filepath.IsAbs(cfg.History.Path):
		// No project config: keep the working directory clean.
		logger.Debug("run history off without a project config",
			zap.String("path", cfg.History.Path))
	default:
		st, err := store.Open(cfg.History.Path)
		if err != nil {
			logger.Warn("run history disabled", zap.Error(err))
		} else {
			p.history = st
		}
	}
	return p
}

// Close releases the history database.
func (p *pipeline) Close() error {
	if p.history == nil {
		return nil
	}
	return p.history.Close()
}

// Run plots once and records the outcome. Only core failures are returned.
func (p *pipeline) Run(ctx context.Context) error {
	run := store.Run{
		StartedAt:    time.Now(),
		ActivityPath: p.opts.ActivityPath,
		GenotypePath: p.opts.GenotypePath,
		OutputPath:   p.opts.OutPath,
		Signal:       string(p.opts.Signal),
		Stat:         p.opts.Stat.String(),
		Window:       p.opts.Window,
		Status:       store.StatusOK,
	}
	if hash, err := store.HashFile(p.opts.ActivityPath); err == nil {
		run.ActivityHash = hash
	}

	err := p.plot(ctx, &run)
	run.Duration = time.Since(run.StartedAt)
	if err != nil {
		run.Status = store.StatusError
		run.Error = err.Error()
	}
	p.record(ctx, run)
	return err
}

// InputsChanged reports whether either input differs from what the last
// successful run read.
func (p *pipeline) InputsChanged() bool {
	for _, path := range p.inputs() {
		hash := hashOrEmpty(path)
		if hash == "" {
			return true
		}
		if p.history != nil {
			changed, err := p.history.IsInputChanged(path, hash)
			if err != nil || changed {
				return true
			}
			continue
		}
		if p.seen[path] != hash {
			return true
		}
	}
	return false
}

func (p *pipeline) inputs() []string {
	return []string{p.opts.ActivityPath, p.opts.GenotypePath}
}

func (p *pipeline) plot(ctx context.Context, run *store.Run) error {
	ds, err := activity.Load(p.opts.ActivityPath, p.opts.GenotypePath, p.opts.LoadParams())
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	ds, err = activity.Resample(ds, p.opts.Window)
	if err != nil {
		return fmt.Errorf("resample: %w", err)
	}
	run.Fish = len(ds.Fish())
	run.Genotypes = len(ds.Genotypes)
	p.logger.Debug("loaded dataset",
		zap.Int("fish", run.Fish),
		zap.Strings("genotypes", ds.Genotypes),
		zap.Duration("bin_width", ds.BinWidth))

	fig, err := visualize.Build(ctx, ds, p.opts.IgnoreGenotype, p.opts.SummaryOnly, p.opts.PlotParams())
	if err != nil {
		return fmt.Errorf("build figure: %w", err)
	}
	run.View = string(fig.View)

	res, err := p.writer.Write(fig, render.Request{
		HTMLPath: p.opts.OutPath,
		Browser:  p.opts.Browser,
		SVG:      p.opts.SVG,
		Show:     p.flags.show,
	})
	if err != nil {
		return fmt.Errorf("write figure: %w", err)
	}

	outputs := append([]string{res.HTMLPath}, res.SVGPaths...)
	if p.flags.xlsx {
		if path, err := p.writeWorkbook(ctx, ds); err != nil {
			p.logger.Warn("workbook export failed", zap.Error(err))
		} else {
			outputs = append(outputs, path)
		}
	}
	if p.publisher != nil {
		locations, err := p.publisher.Publish(ctx, outputs)
		if err != nil {
			p.logger.Warn("publish failed", zap.String("driver", p.publisher.Driver()), zap.Error(err))
		} else {
			p.logger.Info("published outputs", zap.Strings("locations", locations))
		}
	}
	return nil
}

func (p *pipeline) writeWorkbook(ctx context.Context, ds *activity.Dataset) (string, error) {
	if p.opts.IgnoreGenotype {
		ds = ds.Relabel(visualize.AllCombined)
	}
	traces, err := summary.ByGenotype(ctx, ds, p.opts.SummaryParams())
	if err != nil && !errors.Is(err, summary.ErrNoStat) {
		return "", err
	}
	path := output.WorkbookPath(p.opts.OutPath, p.inputs()...)
	if err := output.WriteWorkbook(path, ds, p.opts.Signal, traces); err != nil {
		return "", err
	}
	p.logger.Info("wrote workbook", zap.String("path", path))
	return path, nil
}

func (p *pipeline) record(ctx context.Context, run store.Run) {
	if run.Status == store.StatusOK {
		for _, path := range p.inputs() {
			p.seen[path] = hashOrEmpty(path)
		}
	}
	if p.history == nil {
		return
	}
	if _, err := p.history.RecordRun(ctx, run); err != nil {
		p.logger.Warn("could not record run", zap.Error(err))
		return
	}
	if run.Status != store.StatusOK {
		return
	}
	for _, path := range p.inputs() {
		if err := p.history.SetInputHash(path, p.seen[path]); err != nil {
			p.logger.Warn("could not record input hash", zap.String("path", path), zap.Error(err))
		}
	}
}

func hashOrEmpty(path string) string {
	hash, _ := store.HashFile(path)
	return hash
}
