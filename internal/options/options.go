// Package options turns raw command-line values into a resolved run
// configuration: output path, confidence-interval percentiles, signal,
// summary statistic, time shift and light cycle.
package options

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zebrafishlab/fishviz/internal/activity"
	"github.com/zebrafishlab/fishviz/internal/summary"
	"github.com/zebrafishlab/fishviz/internal/visualize"
)

// ErrInvalidOption is returned for option values that cannot be coerced.
var ErrInvalidOption = errors.New("invalid option")

// DefaultPercentiles is the percentile pair kept when confidence intervals
// are disabled.
var DefaultPercentiles = [2]float64{2.5, 97.5}

// Raw holds option values as given on the command line.
type Raw struct {
	ActivityPath string
	GenotypePath string

	Out     string
	Browser string

	Sleep          bool
	Summary        bool
	SVG            bool
	IgnoreGenotype bool

	ConfInt   string
	Window    string
	LightsOn  string
	LightsOff string
	StartDay  string
	Stat      string
	TimeShift string

	Reps int
	Seed uint64
}

// Options is a resolved run configuration.
type Options struct {
	ActivityPath string
	GenotypePath string
	OutPath      string
	Browser      string

	Signal         activity.Signal
	Stat           summary.Stat
	TimeShift      visualize.TimeShift
	SummaryOnly    bool
	IgnoreGenotype bool
	SVG            bool

	ConfInt     bool
	Percentiles [2]float64

	Window   int
	Lights   activity.LightCycle
	StartDay int

	Reps int
	Seed uint64
}

// Resolve coerces raw values. Malformed values are returned as errors
// wrapping ErrInvalidOption.
func Resolve(raw Raw) (*Options, error) {
	o := &Options{
		ActivityPath:   raw.ActivityPath,
		GenotypePath:   raw.GenotypePath,
		OutPath:        OutputPath(raw.ActivityPath, raw.Out),
		Browser:        raw.Browser,
		Signal:         Signal(raw.Sleep),
		SummaryOnly:    raw.Summary,
		IgnoreGenotype: raw.IgnoreGenotype,
		SVG:            raw.SVG,
		Reps:           raw.Reps,
		Seed:           raw.Seed,
	}

	var err error
	if o.ConfInt, o.Percentiles, err = Percentiles(raw.ConfInt); err != nil {
		return nil, err
	}
	if o.Window, err = parseInt("window", raw.Window); err != nil {
		return nil, err
	}
	if o.Window < 1 {
		return nil, fmt.Errorf("%w: window must be at least 1, got %d", ErrInvalidOption, o.Window)
	}
	if o.StartDay, err = parseInt("startday", raw.StartDay); err != nil {
		return nil, err
	}
	if o.Lights.On, err = activity.ParseClock(raw.LightsOn); err != nil {
		return nil, fmt.Errorf("%w: lightson: %w", ErrInvalidOption, err)
	}
	if o.Lights.Off, err = activity.ParseClock(raw.LightsOff); err != nil {
		return nil, fmt.Errorf("%w: lightsoff: %w", ErrInvalidOption, err)
	}
	if o.Stat, err = Stat(raw.Stat); err != nil {
		return nil, err
	}
	if o.TimeShift, err = visualize.ParseTimeShift(raw.TimeShift); err != nil {
		return nil, fmt.Errorf("%w: timeshift: %w", ErrInvalidOption, err)
	}
	if o.Reps < 0 {
		return nil, fmt.Errorf("%w: reps must not be negative", ErrInvalidOption)
	}
	return o, nil
}

// OutputPath returns out when given, otherwise the activity path with its
// extension replaced by .html.
func OutputPath(activityPath, out string) string {
	if out != "" {
		return out
	}
	return strings.TrimSuffix(activityPath, filepath.Ext(activityPath)) + ".html"
}

// Percentiles derives the confidence-interval percentile pair from a
// confidence level in percent. The literal "0" disables the interval and
// keeps DefaultPercentiles.
func Percentiles(confint string) (enabled bool, pair [2]float64, err error) {
	confint = strings.TrimSpace(confint)
	if confint == "0" {
		return false, DefaultPercentiles, nil
	}
	c, err := strconv.ParseFloat(confint, 64)
	if err != nil {
		return false, pair, fmt.Errorf("%w: confint %q: %w", ErrInvalidOption, confint, err)
	}
	if math.IsNaN(c) || c <= 0 || c > 100 {
		return false, pair, fmt.Errorf("%w: confint %q must be in (0, 100] or 0 to disable", ErrInvalidOption, confint)
	}
	return true, [2]float64{50 - c/2, 50 + c/2}, nil
}

// Signal selects the plotted signal.
func Signal(sleep bool) activity.Signal {
	if sleep {
		return activity.SignalSleep
	}
	return activity.SignalActivity
}

// Stat parses a summary statistic name; "none" and "None" mean no statistic.
func Stat(s string) (summary.Stat, error) {
	st, err := summary.ParseStat(s)
	if err != nil {
		return summary.StatNone, fmt.Errorf("%w: stat: %w", ErrInvalidOption, err)
	}
	return st, nil
}

// PlotParams returns the figure parameters for these options.
func (o *Options) PlotParams() visualize.Params {
	return visualize.Params{
		Signal:      o.Signal,
		Stat:        o.Stat,
		TimeShift:   o.TimeShift,
		ConfInt:     o.ConfInt,
		Percentiles: o.Percentiles,
		Reps:        o.Reps,
		Seed:        o.Seed,
	}
}

// SummaryParams returns the summary trace parameters for these options.
func (o *Options) SummaryParams() summary.Params {
	return summary.Params{
		Signal:      o.Signal,
		Stat:        o.Stat,
		ConfInt:     o.ConfInt,
		Percentiles: o.Percentiles,
		Reps:        o.Reps,
		Seed:        o.Seed,
	}
}

// LoadParams returns the activity loading parameters for these options.
func (o *Options) LoadParams() activity.Params {
	return activity.Params{Lights: o.Lights, StartDay: o.StartDay}
}

func parseInt(name, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %w", ErrInvalidOption, name, s, err)
	}
	return n, nil
}
