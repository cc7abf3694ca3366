// Package summary computes summary traces across fish and bootstrap
// confidence bands around them.
package summary

import (
	"errors"
	"fmt"
	"math"

	"github.com/aclements/go-moremath/stats"
)

// ErrUnknownStat is returned for statistic names outside Stats.
var ErrUnknownStat = errors.New("unknown summary statistic")

// Stat names a statistic computed across fish at each time point.
type Stat string

const (
	// StatNone means no summary trace.
	StatNone   Stat = ""
	StatMean   Stat = "mean"
	StatMedian Stat = "median"
	StatMax    Stat = "max"
	StatMin    Stat = "min"
)

// Stats lists the available statistics.
var Stats = []Stat{StatMean, StatMedian, StatMax, StatMin}

// ParseStat parses a statistic name. "none" and "None" select StatNone.
func ParseStat(s string) (Stat, error) {
	switch s {
	case "none", "None":
		return StatNone, nil
	}
	for _, st := range Stats {
		if string(st) == s {
			return st, nil
		}
	}
	return StatNone, fmt.Errorf("%w: %q (expected mean, median, max, min or none)", ErrUnknownStat, s)
}

// String returns the name of the statistic, "none" for StatNone.
func (s Stat) String() string {
	if s == StatNone {
		return "none"
	}
	return string(s)
}

// Apply computes the statistic of xs, ignoring NaN values. It returns NaN
// when no values remain or the statistic is StatNone.
func (s Stat) Apply(xs []float64) float64 {
	vals := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			vals = append(vals, x)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}

	sample := stats.Sample{Xs: vals}
	switch s {
	case StatMean:
		return sample.Mean()
	case StatMedian:
		return sample.Sort().Quantile(0.5)
	case StatMax:
		_, hi := sample.Bounds()
		return hi
	case StatMin:
		lo, _ := sample.Bounds()
		return lo
	default:
		return math.NaN()
	}
}

// Percentile returns the p-th percentile (0-100) of xs.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sample := stats.Sample{Xs: append([]float64(nil), xs...)}
	return sample.Sort().Quantile(p / 100)
}
