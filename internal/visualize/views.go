package visualize

import (
	"context"
	"fmt"
	"strconv"

	"github.com/zebrafishlab/fishviz/internal/activity"
	"github.com/zebrafishlab/fishviz/internal/summary"
)

// AllCombined is the genotype label used when genotypes are ignored.
const AllCombined = "all combined"

// DefaultTitle is the page title of generated figures.
const DefaultTitle = "fish sleep explorer"

// View is one of the rendering paths.
type View string

const (
	ViewAllTraces View = "all-traces"
	ViewGrid      View = "grid"
	ViewSummary   View = "summary"
)

// Select maps the two view flags to a view.
func Select(ignoreGenotype, summaryOnly bool) View {
	switch {
	case summaryOnly:
		return ViewSummary
	case ignoreGenotype:
		return ViewAllTraces
	default:
		return ViewGrid
	}
}

// Params configures figure construction.
type Params struct {
	Signal    activity.Signal
	Stat      summary.Stat
	TimeShift TimeShift
	Title     string

	ConfInt     bool
	Percentiles [2]float64
	Reps        int
	Seed        uint64
}

// lineParams is summaryParams without the bootstrap band.
func (p Params) lineParams() summary.Params {
	sp := p.summaryParams()
	sp.ConfInt = false
	return sp
}

func (p Params) summaryParams() summary.Params {
	return summary.Params{
		Signal:      p.Signal,
		Stat:        p.Stat,
		ConfInt:     p.ConfInt,
		Percentiles: p.Percentiles,
		Reps:        p.Reps,
		Seed:        p.Seed,
	}
}

// Build dispatches to the view selected by the two flags. When genotypes are
// ignored in a summary, every fish is relabeled AllCombined and the legend is
// dropped.
func Build(ctx context.Context, ds *activity.Dataset, ignoreGenotype, summaryOnly bool, p Params) (*Figure, error) {
	switch Select(ignoreGenotype, summaryOnly) {
	case ViewSummary:
		if ignoreGenotype {
			return Summary(ctx, ds.Relabel(AllCombined), p, false)
		}
		return Summary(ctx, ds, p, true)
	case ViewAllTraces:
		return AllTraces(ds, p)
	default:
		return Grid(ds, p)
	}
}

// AllTraces draws every fish in one panel, with the summary across all fish on top.
func AllTraces(ds *activity.Dataset, p Params) (*Figure, error) {
	fig := newFigure(ds, ViewAllTraces, p)
	panel := Panel{Dark: darkIntervals(ds)}

	fish := ds.Fish()
	for _, id := range fish {
		panel.Series = append(panel.Series, fishSeries(ds.Series[id], id, Color(0), p))
	}
	if p.Stat != summary.StatNone {
		tr, err := summary.Compute(ds, AllCombined, fish, p.lineParams())
		if err != nil {
			return nil, err
		}
		panel.Series = append(panel.Series, traceSeries(tr, "#000000", p)...)
	}

	fig.Panels = []Panel{panel}
	return fig, nil
}

// Grid draws one panel per genotype holding its fish and its summary trace.
func Grid(ds *activity.Dataset, p Params) (*Figure, error) {
	fig := newFigure(ds, ViewGrid, p)
	for i, g := range ds.Genotypes {
		fish := ds.FishOf(g)
		panel := Panel{
			Title: fmt.Sprintf("%s (n = %d)", g, len(fish)),
			Dark:  darkIntervals(ds),
		}
		for _, id := range fish {
			panel.Series = append(panel.Series, fishSeries(ds.Series[id], id, Color(i), p))
		}
		if p.Stat != summary.StatNone {
			tr, err := summary.Compute(ds, g, fish, p.lineParams())
			if err != nil {
				return nil, err
			}
			panel.Series = append(panel.Series, traceSeries(tr, Color(i), p)...)
		}
		fig.Panels = append(fig.Panels, panel)
	}
	return fig, nil
}

// Summary draws one summary trace per genotype, with bootstrap bands when
// confidence intervals are enabled.
func Summary(ctx context.Context, ds *activity.Dataset, p Params, legend bool) (*Figure, error) {
	if p.Stat == summary.StatNone {
		return nil, ErrSummaryNeedsStat
	}

	traces, err := summary.ByGenotype(ctx, ds, p.summaryParams())
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	fig := newFigure(ds, ViewSummary, p)
	panel := Panel{Legend: legend, Dark: darkIntervals(ds)}
	for i, tr := range traces {
		panel.Series = append(panel.Series, traceSeries(tr, Color(i), p)...)
	}
	fig.Panels = []Panel{panel}
	return fig, nil
}

func newFigure(ds *activity.Dataset, view View, p Params) *Figure {
	title := p.Title
	if title == "" {
		title = DefaultTitle
	}
	return &Figure{
		Title:   title,
		View:    view,
		XLabel:  "time (hr)",
		YLabel:  yLabel(ds, p.Signal),
		Backend: BackendCanvas,
	}
}

func yLabel(ds *activity.Dataset, sig activity.Signal) string {
	minutes := strconv.FormatFloat(ds.BinWidth.Minutes(), 'g', -1, 64)
	return fmt.Sprintf("%s (%s./%s min)", sig, sig.Units(), minutes)
}

func darkIntervals(ds *activity.Dataset) []Interval {
	out := make([]Interval, len(ds.Dark))
	for i, d := range ds.Dark {
		out[i] = Interval{Start: d.Start, End: d.End}
	}
	return out
}

func fishSeries(samples []activity.Sample, fish int, color string, p Params) Series {
	s := Series{
		Name:  "fish " + strconv.Itoa(fish),
		Group: "fish",
		Kind:  KindFish,
		Color: color,
		Alpha: 0.3,
		Width: 1,
		Step:  p.TimeShift == ShiftInterval,
	}
	for _, smp := range samples {
		s.X = append(s.X, p.TimeShift.X(smp.Left, smp.Right))
		s.Y = append(s.Y, smp.Value(p.Signal))
	}
	if s.Step && len(samples) > 0 {
		last := samples[len(samples)-1]
		s.X = append(s.X, last.Right)
		s.Y = append(s.Y, last.Value(p.Signal))
	}
	return s
}

func traceSeries(tr summary.Trace, color string, p Params) []Series {
	name := tr.Genotype
	line := Series{
		Name:  name,
		Group: name,
		Kind:  KindSummary,
		Color: color,
		Alpha: 1,
		Width: 2.5,
		Step:  p.TimeShift == ShiftInterval,
	}
	band := Series{
		Name:  name,
		Group: name,
		Kind:  KindBand,
		Color: color,
		Alpha: 0.25,
		Step:  line.Step,
	}
	for _, pt := range tr.Points {
		x := p.TimeShift.X(pt.Left, pt.Right)
		line.X = append(line.X, x)
		line.Y = append(line.Y, pt.Value)
		band.X = append(band.X, x)
		band.Low = append(band.Low, pt.Low)
		band.High = append(band.High, pt.High)
	}
	if line.Step && len(tr.Points) > 0 {
		last := tr.Points[len(tr.Points)-1]
		line.X = append(line.X, last.Right)
		line.Y = append(line.Y, last.Value)
		band.X = append(band.X, last.Right)
		band.Low = append(band.Low, last.Low)
		band.High = append(band.High, last.High)
	}

	if !tr.Band {
		return []Series{line}
	}
	return []Series{band, line}
}
