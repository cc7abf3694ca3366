package render

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/zebrafishlab/fishviz/internal/visualize"
)

// Request describes one figure to write.
type Request struct {
	HTMLPath string
	Browser  string
	SVG      bool
	Show     bool
}

// Result lists what a Write produced.
type Result struct {
	HTMLPath string
	SVGPaths []string
	Shown    bool
}

// Writer writes figures and shows them. Only the HTML output is required;
// SVG export and opening the browser log warnings on failure.
type Writer struct {
	Logger *zap.Logger

	// Open shows a written page. Defaults to Open.
	Open func(path, browser string) error

	// RendererVersion reports the linked SVG renderer version. Defaults to
	// RendererVersion.
	RendererVersion func() string

	// Export writes the SVG panels. Defaults to ExportSVG.
	Export func(fig *visualize.Figure, htmlPath string) ([]string, error)
}

// NewWriter returns a Writer using the system browser and build information.
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{Logger: logger, Open: Open, RendererVersion: RendererVersion, Export: ExportSVG}
}

// Write exports SVG when requested, writes the HTML page and opens it.
func (w *Writer) Write(fig *visualize.Figure, req Request) (*Result, error) {
	res := &Result{HTMLPath: req.HTMLPath}

	if req.SVG {
		res.SVGPaths = w.exportSVG(fig, req.HTMLPath)
	}

	if err := WriteHTML(req.HTMLPath, fig); err != nil {
		return nil, err
	}
	w.Logger.Info("wrote figure", zap.String("path", req.HTMLPath), zap.String("view", string(fig.View)))

	if req.Show {
		if err := w.open(req.HTMLPath, req.Browser); err != nil {
			w.Logger.Warn("could not open browser", zap.String("browser", req.Browser), zap.Error(err))
		} else {
			res.Shown = true
		}
	}
	return res, nil
}

func (w *Writer) exportSVG(fig *visualize.Figure, htmlPath string) []string {
	version := ""
	if w.RendererVersion != nil {
		version = w.RendererVersion()
	}
	if !SVGSupported(version) {
		w.Logger.Warn("svg export skipped",
			zap.String("module", SVGModule),
			zap.String("version", version),
			zap.String("minimum", MinSVGVersion))
		return nil
	}

	paths, err := w.export(fig, htmlPath)
	if err != nil {
		w.Logger.Warn("svg export failed", zap.Error(err))
	}
	for _, p := range paths {
		w.Logger.Info("wrote svg", zap.String("path", p))
	}
	return paths
}

// export runs the SVG exporter, turning a renderer panic into an error.
func (w *Writer) export(fig *visualize.Figure, htmlPath string) (paths []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			paths, err = nil, fmt.Errorf("svg renderer panicked: %v", r)
		}
	}()
	if w.Export == nil {
		return ExportSVG(fig, htmlPath)
	}
	return w.Export(fig, htmlPath)
}

func (w *Writer) open(path, browser string) error {
	if w.Open == nil {
		return Open(path, browser)
	}
	return w.Open(path, browser)
}
