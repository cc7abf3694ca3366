package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"github.com/zebrafishlab/fishviz/internal/config"
	"github.com/zebrafishlab/fishviz/internal/options"
	"github.com/zebrafishlab/fishviz/internal/output"
	"github.com/zebrafishlab/fishviz/internal/store"
)

// writeFixtures writes a two-fish recording spanning lights off and its
// genotype table, returning both paths.
func writeFixtures(t *testing.T, dir string) (string, string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("location\tanimal\tstdate\tsttime\tmiddur\n")
	for m := 0; m < 40; m++ {
		clock := fmt.Sprintf("22:%02d:00", 40+m%20)
		if m >= 20 {
			clock = fmt.Sprintf("23:%02d:00", m-20)
		}
		fmt.Fprintf(&b, "c001\t1\t03/01/2024\t%s\t%d\n", clock, m%3)
		fmt.Fprintf(&b, "c002\t1\t03/01/2024\t%s\t%d\n", clock, m%5)
	}
	activity := filepath.Join(dir, "run.txt")
	require.NoError(t, os.WriteFile(activity, []byte(b.String()), 0o644))

	genotype := filepath.Join(dir, "genotypes.txt")
	require.NoError(t, os.WriteFile(genotype, []byte("plate 1\nwt\tmut\n1\t2\n"), 0o644))
	return activity, genotype
}

func defaultRaw(t *testing.T, args ...string) options.Raw {
	t.Helper()
	var raw options.Raw
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addPlotFlags(fs, &raw)
	require.NoError(t, fs.Parse(args))
	return raw
}

func TestApplyConfigPrecedence(t *testing.T) {
	var raw options.Raw
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addPlotFlags(fs, &raw)
	require.NoError(t, fs.Parse([]string{"-c", "90", "-w", "5"}))

	cfg := config.DefaultConfig()
	cfg.Plot.ConfInt = "80"
	cfg.Plot.Window = 30
	cfg.Plot.Stat = "median"
	cfg.Plot.StartDay = 6
	cfg.Output.SVG = true
	cfg.Bootstrap.Reps = 200

	applyConfig(fs.Changed, &raw, cfg)

	assert.Equal(t, "90", raw.ConfInt, "flag beats config")
	assert.Equal(t, "5", raw.Window, "flag beats config")
	assert.Equal(t, "median", raw.Stat, "config beats default")
	assert.Equal(t, "6", raw.StartDay)
	assert.Equal(t, "9:00:00", raw.LightsOn)
	assert.True(t, raw.SVG)
	assert.Equal(t, 200, raw.Reps)
}

func TestApplyConfigKeepsDefaultsForEmptyValues(t *testing.T) {
	raw := defaultRaw(t)
	applyConfig(func(string) bool { return false }, &raw, &config.Config{})

	assert.Equal(t, "95", raw.ConfInt)
	assert.Equal(t, "10", raw.Window)
	assert.Equal(t, "4", raw.StartDay)
	assert.Equal(t, "center", raw.TimeShift)
}

func testPipeline(t *testing.T, flags pipelineFlags, args ...string) (*pipeline, *config.Config) {
	t.Helper()
	logger = zap.NewNop()
	dir := t.TempDir()
	activity, genotype := writeFixtures(t, dir)

	raw := defaultRaw(t, args...)
	raw.ActivityPath, raw.GenotypePath = activity, genotype
	raw.Window = "2"
	raw.Reps = 50
	opts, err := options.Resolve(raw)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.History.Path = filepath.Join(dir, ".fishviz", "history.db")
	cfg.Publish.Dir = filepath.Join(dir, "published")

	p := newPipeline(context.Background(), opts, cfg, flags)
	t.Cleanup(func() { p.Close() })
	return p, cfg
}

func TestPipelineRun(t *testing.T) {
	p, cfg := testPipeline(t, pipelineFlags{xlsx: true, publish: true}, "-s")
	ctx := context.Background()

	require.NoError(t, p.Run(ctx))

	assert.FileExists(t, p.opts.OutPath)
	assert.Equal(t, ".html", filepath.Ext(p.opts.OutPath))
	assert.FileExists(t, output.WorkbookPath(p.opts.OutPath, p.inputs()...))
	assert.FileExists(t, filepath.Join(cfg.Publish.Dir, "run.html"))
	assert.FileExists(t, filepath.Join(cfg.Publish.Dir, "run.xlsx"))

	runs, err := p.history.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.StatusOK, runs[0].Status)
	assert.Equal(t, "summary", runs[0].View)
	assert.Equal(t, 2, runs[0].Fish)
	assert.Equal(t, 2, runs[0].Genotypes)
	assert.NotEmpty(t, runs[0].ActivityHash)

	assert.False(t, p.InputsChanged())
	f, err := os.OpenFile(p.opts.ActivityPath, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("c001\t1\t03/01/2024\t23:20:00\t1\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.True(t, p.InputsChanged())
}

func TestPipelineKeepsWorkbookInput(t *testing.T) {
	p, _ := testPipeline(t, pipelineFlags{xlsx: true, noHistory: true}, "-s")

	// Re-save the recording as a workbook and point the run at it.
	text, err := os.ReadFile(p.opts.ActivityPath)
	require.NoError(t, err)
	wb := excelize.NewFile()
	for i, line := range strings.Split(strings.TrimSpace(string(text)), "\n") {
		var row []interface{}
		for _, cell := range strings.Split(line, "\t") {
			row = append(row, cell)
		}
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow("Sheet1", cellName, &row))
	}
	input := strings.TrimSuffix(p.opts.ActivityPath, ".txt") + ".xlsx"
	require.NoError(t, wb.SaveAs(input))
	require.NoError(t, wb.Close())
	before, err := os.ReadFile(input)
	require.NoError(t, err)

	p.opts.ActivityPath = input
	require.NoError(t, p.Run(context.Background()))

	after, err := os.ReadFile(input)
	require.NoError(t, err)
	assert.Equal(t, before, after, "input workbook untouched")
	assert.FileExists(t, filepath.Join(filepath.Dir(input), "run_summary.xlsx"))
}

func TestPipelineRecordsFailures(t *testing.T) {
	p, _ := testPipeline(t, pipelineFlags{})
	require.NoError(t, os.Remove(p.opts.GenotypePath))

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load")
	assert.NoFileExists(t, p.opts.OutPath)

	runs, err := p.history.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.StatusError, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
	assert.True(t, p.InputsChanged())
}

func TestPipelineWithoutHistory(t *testing.T) {
	p, cfg := testPipeline(t, pipelineFlags{noHistory: true})
	require.NoError(t, p.Run(context.Background()))
	assert.Nil(t, p.history)
	assert.NoFileExists(t, cfg.History.Path)
	assert.False(t, p.InputsChanged())
}

func TestPipelineWithoutProjectConfigLeavesWorkDirClean(t *testing.T) {
	logger = zap.NewNop()
	dir := t.TempDir()
	t.Chdir(dir)
	activity, genotype := writeFixtures(t, dir)

	raw := defaultRaw(t)
	raw.ActivityPath, raw.GenotypePath = activity, genotype
	raw.Window = "2"
	raw.Reps = 20
	opts, err := options.Resolve(raw)
	require.NoError(t, err)

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Empty(t, cfg.Root)

	p := newPipeline(context.Background(), opts, cfg, pipelineFlags{})
	defer p.Close()
	require.NoError(t, p.Run(context.Background()))

	assert.Nil(t, p.history)
	assert.FileExists(t, opts.OutPath)
	assert.NoDirExists(t, filepath.Join(dir, config.ConfigDirName))
}

func TestPipelineHistoryUnderProjectRoot(t *testing.T) {
	logger = zap.NewNop()
	root := t.TempDir()
	_, err := config.SaveDefault(root)
	require.NoError(t, err)
	work := filepath.Join(root, "day4")
	require.NoError(t, os.MkdirAll(work, 0o755))
	t.Chdir(work)
	activity, genotype := writeFixtures(t, work)

	raw := defaultRaw(t)
	raw.ActivityPath, raw.GenotypePath = activity, genotype
	raw.Window = "2"
	raw.Reps = 20
	opts, err := options.Resolve(raw)
	require.NoError(t, err)

	cfg, err := config.Load(work)
	require.NoError(t, err)
	p := newPipeline(context.Background(), opts, cfg, pipelineFlags{})
	defer p.Close()
	require.NoError(t, p.Run(context.Background()))

	require.NotNil(t, p.history)
	assert.FileExists(t, filepath.Join(root, config.ConfigDirName, "history.db"))
	assert.NoDirExists(t, filepath.Join(work, config.ConfigDirName))
}

func TestPipelineSummaryWithoutStatFails(t *testing.T) {
	p, _ := testPipeline(t, pipelineFlags{noHistory: true}, "-s", "-S", "none")
	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build figure")
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		configPath = ""
		historyLimit, historyID, historyClear = 10, "", false
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dir string, cfg *config.Config) string {
	t.Helper()
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestStatsCommand(t *testing.T) {
	dir := t.TempDir()
	activity, genotype := writeFixtures(t, dir)
	cfg := config.DefaultConfig()
	cfg.Bootstrap.Reps = 50
	path := writeConfig(t, dir, cfg)

	out, err := execute(t, "stats", "--config", path, "--format", "json", "-w", "5", activity, genotype)
	require.NoError(t, err)

	var summary output.SummaryOutput
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "activity", summary.Signal)
	assert.Equal(t, "mean", summary.Stat)
	assert.Equal(t, 5, summary.Window)
	assert.Equal(t, 2, summary.Fish)
	assert.Equal(t, []float64{2.5, 97.5}, summary.ConfInt)
	require.Len(t, summary.Genotypes, 2)
	assert.Equal(t, "wt", summary.Genotypes[0].Genotype)
	assert.NotEmpty(t, summary.Genotypes[0].Points)
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.History.Path = filepath.Join(dir, "history.db")
	path := writeConfig(t, dir, cfg)

	_, err := execute(t, "history", "--config", path)
	require.Error(t, err, "missing database")

	st, err := store.Open(cfg.History.Path)
	require.NoError(t, err)
	var ids []string
	for _, a := range []string{"a.txt", "b.txt"} {
		run, err := st.RecordRun(context.Background(), store.Run{ActivityPath: a, GenotypePath: "g.txt"})
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}
	_, err = st.RecordRun(context.Background(), store.Run{ActivityPath: "c.txt", GenotypePath: "g.txt", Status: store.StatusError})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "history", "--config", path, "--format", "json", "--limit", "1")
	require.NoError(t, err)

	var list output.RunListOutput
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "g.txt", list.Runs[0].GenotypePath)
	require.NotNil(t, list.Totals)
	assert.Equal(t, int64(3), list.Totals.Runs)
	assert.Equal(t, int64(1), list.Totals.Failed)

	out, err = execute(t, "history", "--config", path, "--format", "json", "--id", ids[0])
	require.NoError(t, err)
	var run store.Run
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, ids[0], run.ID)
	assert.Equal(t, "a.txt", run.ActivityPath)

	_, err = execute(t, "history", "--config", path, "--id", "missing")
	assert.ErrorContains(t, err, "no run with id")
}

func TestConfigShowCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, &config.Config{Plot: config.PlotConfig{Window: 20}})

	out, err := execute(t, "config", "show", "--config", path, "--format", "json")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 20, cfg.Plot.Window)
	assert.Equal(t, "95", cfg.Plot.ConfInt, "defaults are merged in")
}

func TestConfigInitCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, config.ConfigFileName)
	assert.FileExists(t, filepath.Join(dir, config.ConfigDirName, config.ConfigFileName))

	_, err = execute(t, "config", "init")
	assert.Error(t, err, "refuses to overwrite")
}

func TestRootNeedsTwoFiles(t *testing.T) {
	_, err := execute(t, "only-one.txt")
	assert.Error(t, err)
}

func TestBuildCommandInfo(t *testing.T) {
	info := buildCommandInfo(rootCmd)

	var names []string
	for _, sub := range info.Subcommands {
		names = append(names, sub.Name)
	}
	assert.ElementsMatch(t, []string{"config", "stats", "history"}, names)

	var flags []string
	for _, f := range info.Flags {
		flags = append(flags, f.Name)
	}
	assert.Contains(t, flags, "confint")
	assert.Contains(t, flags, "ignoregtype")
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(false, &buf)
	l.Debug("hidden")
	l.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	newLogger(true, &buf).Debug("debug on")
	assert.Contains(t, buf.String(), "debug on")
}

func TestWatchInputsRerunsAndReportsOnStop(t *testing.T) {
	p, _ := testPipeline(t, pipelineFlags{noHistory: true})
	require.NoError(t, p.Run(context.Background()))
	info, err := os.Stat(p.opts.OutPath)
	require.NoError(t, err)
	firstWrite := info.ModTime()

	core, logs := observer.New(zap.InfoLevel)
	logger = zap.New(core)
	t.Cleanup(func() { logger = zap.NewNop() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchInputs(ctx, p) }()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("watching inputs, press Ctrl-C to stop").Len() == 1
	}, 3*time.Second, 20*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(p.opts.ActivityPath, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("c002\t1\t03/01/2024\t23:20:00\t2\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		info, err := os.Stat(p.opts.OutPath)
		return err == nil && info.ModTime().After(firstWrite)
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	stopped := logs.FilterMessage("stopped watching").All()
	require.Len(t, stopped, 1)
	assert.GreaterOrEqual(t, stopped[0].ContextMap()["reruns"], int64(1))
	assert.False(t, p.flags.show, "reruns never reopen the browser")
}
