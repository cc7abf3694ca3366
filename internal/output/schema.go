package output

import (
	"math"

	"github.com/zebrafishlab/fishviz/internal/activity"
	"github.com/zebrafishlab/fishviz/internal/store"
	"github.com/zebrafishlab/fishviz/internal/summary"
)

// SummaryOutput is the per-genotype summary of one activity file.
type SummaryOutput struct {
	Activity string `yaml:"activity" json:"activity"`
	Signal   string `yaml:"signal" json:"signal"`
	Units    string `yaml:"units" json:"units"`
	Stat     string `yaml:"stat" json:"stat"`
	Window   int    `yaml:"window" json:"window"`
	BinWidth string `yaml:"bin_width" json:"bin_width"`
	Fish     int    `yaml:"fish" json:"fish"`

	// ConfInt is the percentile pair of the bounds, absent without a band.
	ConfInt []float64 `yaml:"confint,omitempty" json:"confint,omitempty"`

	Genotypes []GenotypeOutput `yaml:"genotypes" json:"genotypes"`
}

// GenotypeOutput is the summary trace of one genotype.
type GenotypeOutput struct {
	Genotype string        `yaml:"genotype" json:"genotype"`
	Fish     int           `yaml:"fish" json:"fish"`
	Points   []PointOutput `yaml:"points" json:"points"`
}

// PointOutput is one resampled time point, in zeitgeber hours.
type PointOutput struct {
	Left  float64  `yaml:"left" json:"left"`
	Right float64  `yaml:"right" json:"right"`
	N     int      `yaml:"n" json:"n"`
	Value *float64 `yaml:"value" json:"value"`
	Low   *float64 `yaml:"low,omitempty" json:"low,omitempty"`
	High  *float64 `yaml:"high,omitempty" json:"high,omitempty"`
}

// NewSummaryOutput builds the summary of ds from its traces.
func NewSummaryOutput(activityPath string, ds *activity.Dataset, p summary.Params, traces []summary.Trace) *SummaryOutput {
	out := &SummaryOutput{
		Activity: activityPath,
		Signal:   string(p.Signal),
		Units:    p.Signal.Units(),
		Stat:     p.Stat.String(),
		Window:   ds.Window,
		BinWidth: ds.BinWidth.String(),
		Fish:     len(ds.Fish()),
	}
	if p.ConfInt {
		out.ConfInt = []float64{p.Percentiles[0], p.Percentiles[1]}
	}

	for _, tr := range traces {
		g := GenotypeOutput{
			Genotype: tr.Genotype,
			Fish:     tr.Fish,
			Points:   make([]PointOutput, len(tr.Points)),
		}
		for i, pt := range tr.Points {
			g.Points[i] = PointOutput{
				Left:  pt.Left,
				Right: pt.Right,
				N:     pt.N,
				Value: finite(pt.Value),
			}
			if tr.Band {
				g.Points[i].Low = finite(pt.Low)
				g.Points[i].High = finite(pt.High)
			}
		}
		out.Genotypes = append(out.Genotypes, g)
	}
	return out
}

// RunListOutput lists recorded runs, newest first, with the totals of the
// whole history.
type RunListOutput struct {
	Count  int          `yaml:"count" json:"count"`
	Totals *store.Stats `yaml:"totals,omitempty" json:"totals,omitempty"`
	Runs   []store.Run  `yaml:"runs" json:"runs"`
}

// NewRunListOutput wraps runs for formatting. totals may be nil.
func NewRunListOutput(runs []store.Run, totals *store.Stats) *RunListOutput {
	if runs == nil {
		runs = []store.Run{}
	}
	return &RunListOutput{Count: len(runs), Totals: totals, Runs: runs}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
