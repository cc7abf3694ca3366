package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/zebrafishlab/fishviz/internal/visualize"
)

// ErrBackend is returned when a figure is drawn on the wrong backend.
var ErrBackend = errors.New("figure backend is not svg")

const (
	svgWidth  = 1100
	svgHeight = 440
)

var darkColor = drawing.Color{R: 120, G: 120, B: 120, A: 46}

// SVGPath returns the SVG file written for panel i of the figure saved at
// htmlPath: the .html extension is replaced and panels after the first get
// a _i suffix.
func SVGPath(htmlPath string, i int) string {
	base := strings.TrimSuffix(htmlPath, ".html")
	if i > 0 {
		base = fmt.Sprintf("%s_%d", base, i)
	}
	return base + ".svg"
}

// ExportSVG writes one SVG per panel next to htmlPath and returns the paths
// written. The figure is switched to the SVG backend for the export and back
// to canvas afterwards, whatever the outcome.
func ExportSVG(fig *visualize.Figure, htmlPath string) ([]string, error) {
	fig.Backend = visualize.BackendSVG
	defer func() { fig.Backend = visualize.BackendCanvas }()

	var paths []string
	for i, panel := range fig.Panels {
		path := SVGPath(htmlPath, i)
		if err := writeSVG(path, fig, panel); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeSVG(path string, fig *visualize.Figure, panel visualize.Panel) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := SVG(f, fig, panel); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	return f.Close()
}

// SVG draws a single panel of fig as SVG.
func SVG(w io.Writer, fig *visualize.Figure, panel visualize.Panel) error {
	if fig.Backend != visualize.BackendSVG {
		return fmt.Errorf("%w: %s", ErrBackend, fig.Backend)
	}

	c := chart.Chart{
		Title:  panelTitle(fig, panel),
		Width:  svgWidth,
		Height: svgHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{Name: fig.XLabel},
		YAxis: chart.YAxis{Name: fig.YLabel},
	}

	c.Series = append(c.Series, darkBlocks(panel)...)
	for _, s := range panel.Series {
		c.Series = append(c.Series, chartSeries(s)...)
	}
	if len(c.Series) == 0 {
		return fmt.Errorf("panel %q has nothing to draw", c.Title)
	}
	if panel.Legend {
		c.Elements = []chart.Renderable{chart.Legend(&c)}
	}
	return c.Render(chart.SVG, w)
}

// darkBlocks shades dark periods within the panel's x range as filled blocks.
func darkBlocks(panel visualize.Panel) []chart.Series {
	lo, hi, ok := panel.XRange()
	if !ok {
		return nil
	}
	top := panel.YMax() * 1.05
	if top <= 0 {
		top = 1
	}

	var out []chart.Series
	for _, d := range panel.Dark {
		start, end := math.Max(d.Start, lo), math.Min(d.End, hi)
		if end <= start {
			continue
		}
		out = append(out, chart.ContinuousSeries{
			Name:    darkSeries,
			XValues: []float64{start, end},
			YValues: []float64{top, top},
			Style: chart.Style{
				StrokeColor: drawing.ColorTransparent,
				FillColor:   darkColor,
			},
		})
	}
	return out
}

func chartSeries(s visualize.Series) []chart.Series {
	color := hexColor(s.Color)

	if s.Kind == visualize.KindBand {
		style := chart.Style{
			StrokeColor:     color.WithAlpha(alpha(math.Max(s.Alpha*2, 0.5))),
			StrokeWidth:     1,
			StrokeDashArray: []float64{4, 3},
		}
		var out []chart.Series
		for _, b := range []struct {
			name string
			ys   []float64
		}{{s.Group + " low", s.Low}, {s.Group + " high", s.High}} {
			xs, ys := points(s.X, b.ys, s.Step)
			if len(xs) < 2 {
				continue
			}
			out = append(out, chart.ContinuousSeries{Name: b.name, XValues: xs, YValues: ys, Style: style})
		}
		return out
	}

	xs, ys := points(s.X, s.Y, s.Step)
	if len(xs) < 2 {
		return nil
	}
	name := s.Group
	if s.Kind == visualize.KindFish {
		name = s.Name
	}
	return []chart.Series{chart.ContinuousSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeColor: color.WithAlpha(alpha(s.Alpha)),
			StrokeWidth: s.Width,
		},
	}}
}

// points drops NaN values and, for step series, expands each point into a
// horizontal segment ending at the next x.
func points(xs, ys []float64, step bool) ([]float64, []float64) {
	var px, py []float64
	for i, x := range xs {
		if i >= len(ys) || math.IsNaN(ys[i]) {
			continue
		}
		if step && len(py) > 0 {
			px = append(px, x)
			py = append(py, py[len(py)-1])
		}
		px = append(px, x)
		py = append(py, ys[i])
	}
	return px, py
}

func hexColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

func alpha(a float64) uint8 {
	return uint8(math.Round(math.Min(math.Max(a, 0), 1) * 255))
}
