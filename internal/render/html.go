// Package render writes figures to disk: an interactive HTML page built with
// go-echarts and, on request, SVG exports built with go-chart.
package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/zebrafishlab/fishviz/internal/visualize"
)

const (
	chartWidth  = "1100px"
	chartHeight = "440px"

	transparent = "rgba(0,0,0,0)"
	darkFill    = "rgba(120,120,120,0.18)"
	darkSeries  = "dark"
)

// WriteHTML renders fig as an interactive page at path.
func WriteHTML(path string, fig *visualize.Figure) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := HTML(f, fig); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}

// HTML renders fig as an interactive page, one chart per panel.
func HTML(w io.Writer, fig *visualize.Figure) error {
	page := components.NewPage()
	page.PageTitle = fig.Title
	page.SetLayout(components.PageFlexLayout)

	for _, panel := range fig.Panels {
		page.AddCharts(lineChart(fig, panel))
	}
	return page.Render(w)
}

// xValues collects the distinct x values of a panel in ascending order.
func xValues(panel visualize.Panel) []float64 {
	seen := make(map[float64]bool)
	var xs []float64
	for _, s := range panel.Series {
		for _, x := range s.X {
			if !seen[x] {
				seen[x] = true
				xs = append(xs, x)
			}
		}
	}
	sort.Float64s(xs)
	return xs
}

// lineData pairs xs with ys for a value axis. NaN values become "-" so the
// line breaks there while stacked series keep matching indices.
func lineData(xs, ys []float64) []opts.LineData {
	data := make([]opts.LineData, len(xs))
	for i, x := range xs {
		var y interface{} = "-"
		if i < len(ys) && !math.IsNaN(ys[i]) {
			y = ys[i]
		}
		data[i] = opts.LineData{Value: []interface{}{x, y}}
	}
	return data
}

func lineChart(fig *visualize.Figure, panel visualize.Panel) *charts.Line {
	line := charts.NewLine()

	tooltip := "item"
	if fig.View == visualize.ViewSummary {
		tooltip = "axis"
	}

	var legend []string
	seen := make(map[string]bool)
	for _, s := range panel.Series {
		if s.Kind != visualize.KindFish && !seen[s.Group] {
			seen[s.Group] = true
			legend = append(legend, s.Group)
		}
	}

	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: panelTitle(fig, panel)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: tooltip}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(panel.Legend), Data: legend}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}, opts.DataZoom{Type: "slider"}),
		charts.WithXAxisOpts(opts.XAxis{Name: fig.XLabel, Type: "value", Min: "dataMin", Max: "dataMax"}),
		charts.WithYAxisOpts(opts.YAxis{Name: fig.YLabel}),
	)

	addDarkSeries(line, xValues(panel), panel)
	for i, s := range panel.Series {
		addSeries(line, s, i)
	}
	return line
}

func panelTitle(fig *visualize.Figure, panel visualize.Panel) string {
	if panel.Title != "" {
		return panel.Title
	}
	return fig.Title
}

// addDarkSeries shades dark periods with a filled series reaching just above
// the tallest value in the panel.
func addDarkSeries(line *charts.Line, xs []float64, panel visualize.Panel) {
	if len(panel.Dark) == 0 || len(xs) == 0 {
		return
	}
	top := panel.YMax() * 1.05
	if top <= 0 {
		top = 1
	}

	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = math.NaN()
		for _, d := range panel.Dark {
			if x >= d.Start && x <= d.End {
				ys[i] = top
				break
			}
		}
	}

	line.AddSeries(darkSeries, lineData(xs, ys),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Step: "middle"}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: transparent}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: darkFill}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: darkFill}),
	)
}

func addSeries(line *charts.Line, s visualize.Series, i int) {
	var step interface{}
	if s.Step {
		step = "start"
	}

	switch s.Kind {
	case visualize.KindBand:
		// Stack the band height on an invisible lower bound so only the
		// region between the percentiles is filled.
		stack := "band-" + strconv.Itoa(i)
		height := make([]float64, len(s.High))
		for j := range height {
			height[j] = s.High[j] - s.Low[j]
		}
		line.AddSeries(s.Group, lineData(s.X, s.Low),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Step: step, Stack: stack}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: transparent}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
		)
		line.AddSeries(s.Group, lineData(s.X, height),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Step: step, Stack: stack}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: transparent}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Color: rgba(s.Color, s.Alpha)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
		)
	default:
		name := s.Group
		if s.Kind == visualize.KindFish {
			name = s.Name
		}
		line.AddSeries(name, lineData(s.X, s.Y),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), Step: step}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: rgba(s.Color, s.Alpha), Width: float32(s.Width)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
		)
	}
}

// rgba converts a #rrggbb color and an opacity to a CSS rgba() value.
func rgba(hex string, alpha float64) string {
	r, g, b := parseHex(hex)
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", r, g, b, strconv.FormatFloat(alpha, 'f', -1, 64))
}

func parseHex(hex string) (r, g, b uint8) {
	if len(hex) == 7 && hex[0] == '#' {
		hex = hex[1:]
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || len(hex) != 6 {
		return 0, 0, 0
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v)
}
