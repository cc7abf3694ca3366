// Package visualize turns datasets into backend-neutral figures and selects
// which view a run renders.
//
// A Figure is a list of panels, each holding line series and band series over
// zeitgeber time plus the dark periods to shade. Renderers in package render
// draw figures as interactive HTML or as SVG.
package visualize

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTimeShift is returned for time-shift names outside the known set.
	ErrUnknownTimeShift = errors.New("unknown time shift")

	// ErrSummaryNeedsStat is returned when the summary view is asked for without a statistic.
	ErrSummaryNeedsStat = errors.New("summary view requires a summary statistic")
)

// TimeShift selects which part of a resampled bin a point is drawn at.
type TimeShift string

const (
	ShiftLeft   TimeShift = "left"
	ShiftRight  TimeShift = "right"
	ShiftCenter TimeShift = "center"
	// ShiftInterval draws each bin as a step spanning the whole bin.
	ShiftInterval TimeShift = "interval"
)

// ParseTimeShift parses a time-shift name.
func ParseTimeShift(s string) (TimeShift, error) {
	switch ts := TimeShift(s); ts {
	case ShiftLeft, ShiftRight, ShiftCenter, ShiftInterval:
		return ts, nil
	}
	return "", fmt.Errorf("%w: %q (expected left, right, center or interval)", ErrUnknownTimeShift, s)
}

// X returns the x coordinate of a bin spanning [left, right].
func (ts TimeShift) X(left, right float64) float64 {
	switch ts {
	case ShiftRight:
		return right
	case ShiftCenter:
		return (left + right) / 2
	default:
		return left
	}
}

// Backend is the drawing surface a figure is currently set up for.
type Backend string

const (
	BackendCanvas Backend = "canvas"
	BackendSVG    Backend = "svg"
)

// SeriesKind distinguishes the roles series play in a panel.
type SeriesKind int

const (
	// KindFish is a single fish's trace.
	KindFish SeriesKind = iota
	// KindSummary is a summary statistic trace.
	KindSummary
	// KindBand is a confidence band; Low and High are set instead of Y.
	KindBand
)

// Series is a drawable sequence of points.
type Series struct {
	Name  string
	Group string
	Kind  SeriesKind
	X     []float64
	Y     []float64
	Low   []float64
	High  []float64
	Color string
	Alpha float64
	Width float64
	// Step draws horizontal segments from each x to the next.
	Step bool
}

// Panel is one set of axes.
type Panel struct {
	Title  string
	Legend bool
	Series []Series
	Dark   []Interval
}

// Interval is a span of the x axis.
type Interval struct {
	Start float64
	End   float64
}

// Figure is a complete plot.
type Figure struct {
	Title   string
	View    View
	XLabel  string
	YLabel  string
	Panels  []Panel
	Backend Backend
}

// YMax returns the largest y value drawn in the panel, 0 when empty.
func (p Panel) YMax() float64 {
	var m float64
	for _, s := range p.Series {
		for _, vs := range [][]float64{s.Y, s.High} {
			for _, v := range vs {
				if v > m {
					m = v
				}
			}
		}
	}
	return m
}

// XRange returns the smallest and largest x drawn in the panel.
func (p Panel) XRange() (lo, hi float64, ok bool) {
	for _, s := range p.Series {
		for _, x := range s.X {
			if !ok || x < lo {
				lo = x
			}
			if !ok || x > hi {
				hi = x
			}
			ok = true
		}
	}
	return lo, hi, ok
}

// palette is the category10 color cycle.
var palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// Color returns the i-th palette color, cycling.
func Color(i int) string {
	return palette[i%len(palette)]
}
