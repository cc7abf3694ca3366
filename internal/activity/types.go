// Package activity loads zebrafish activity recordings and genotype tables,
// aligns them on the light/dark cycle and resamples them into coarser bins.
//
// An activity file holds one row per well per time bin, as exported by the
// tracking software: the well ("location"), the date and time the bin started
// and the number of seconds the fish moved during the bin ("middur"). The
// genotype file lists, per genotype column, the wells holding fish of that
// genotype. Fish that appear in the activity file but not in the genotype file
// are dropped.
//
// Time is expressed as zeitgeber time: hours since the lights came on on the
// first day of the experiment.
package activity

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrInvalidClock is returned for unparseable times of day.
	ErrInvalidClock = errors.New("invalid time of day")

	// ErrMissingColumn is returned when an activity file lacks a required column.
	ErrMissingColumn = errors.New("missing column")

	// ErrNoGenotypeHeader is returned when no header row can be found in a genotype file.
	ErrNoGenotypeHeader = errors.New("no genotype header row")

	// ErrDuplicateFish is returned when a fish is assigned more than one genotype.
	ErrDuplicateFish = errors.New("fish listed more than once")

	// ErrNoData is returned when no rows remain after matching fish to genotypes.
	ErrNoData = errors.New("no activity data for genotyped fish")

	// ErrInvalidWindow is returned by Resample for windows smaller than one bin.
	ErrInvalidWindow = errors.New("resample window must be at least 1")
)

// Signal names the measurement to plot.
type Signal string

const (
	// SignalActivity is the number of seconds of movement per bin.
	SignalActivity Signal = "activity"
	// SignalSleep is the number of minutes of sleep per bin.
	SignalSleep Signal = "sleep"
)

// Units returns the unit label of the signal's values.
func (s Signal) Units() string {
	if s == SignalSleep {
		return "min"
	}
	return "sec"
}

// Sample is one time bin of one fish.
type Sample struct {
	Fish     int
	Genotype string
	Time     time.Time
	Day      int
	Light    bool

	// Activity is the seconds of movement in the bin.
	Activity float64
	// Sleep is the minutes of sleep in the bin.
	Sleep float64

	// Left and Right bound the bin in zeitgeber hours.
	Left  float64
	Right float64
}

// Value returns the sample's measurement for sig.
func (s Sample) Value(sig Signal) float64 {
	if sig == SignalSleep {
		return s.Sleep
	}
	return s.Activity
}

// Key identifies the bin's position on the time axis, shared across fish.
func (s Sample) Key() int64 {
	return int64(math.Round(s.Left * 3600))
}

// Interval is a span of zeitgeber hours.
type Interval struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Dataset is a set of per-fish time series.
type Dataset struct {
	// Genotypes lists genotypes in genotype-file order, restricted to those with data.
	Genotypes []string
	// Series maps fish id to its time-ordered samples.
	Series map[int][]Sample
	// BinWidth is the duration covered by one sample.
	BinWidth time.Duration
	// Window is the number of recorded bins merged into each sample.
	Window int
	// Dark lists the dark periods of the recording.
	Dark []Interval
	// Start is the first recorded instant.
	Start time.Time
}

// Fish returns all fish ids in ascending order.
func (d *Dataset) Fish() []int {
	ids := make([]int, 0, len(d.Series))
	for id := range d.Series {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// FishOf returns the ids of the fish of genotype g in ascending order.
func (d *Dataset) FishOf(g string) []int {
	var ids []int
	for _, id := range d.Fish() {
		if s := d.Series[id]; len(s) > 0 && s[0].Genotype == g {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the total number of samples.
func (d *Dataset) Len() int {
	n := 0
	for _, s := range d.Series {
		n += len(s)
	}
	return n
}

// Relabel returns a copy of d in which every fish has genotype label.
func (d *Dataset) Relabel(label string) *Dataset {
	out := &Dataset{
		Genotypes: []string{label},
		Series:    make(map[int][]Sample, len(d.Series)),
		BinWidth:  d.BinWidth,
		Window:    d.Window,
		Dark:      d.Dark,
		Start:     d.Start,
	}
	for id, samples := range d.Series {
		cp := make([]Sample, len(samples))
		copy(cp, samples)
		for i := range cp {
			cp[i].Genotype = label
		}
		out.Series[id] = cp
	}
	return out
}

// String summarizes the dataset for logs.
func (d *Dataset) String() string {
	return fmt.Sprintf("%d fish, %d genotypes, %d samples, bin %s", len(d.Series), len(d.Genotypes), d.Len(), d.BinWidth)
}
