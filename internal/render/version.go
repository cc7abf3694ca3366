package render

import (
	"runtime/debug"

	"golang.org/x/mod/semver"
)

const (
	// SVGModule is the module providing SVG rendering.
	SVGModule = "github.com/wcharczuk/go-chart/v2"

	// MinSVGVersion is the oldest SVGModule release whose SVG output is used.
	MinSVGVersion = "v2.1.0"
)

// RendererVersion reports the SVG renderer version linked into the binary,
// or "" when build information is unavailable.
func RendererVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, dep := range info.Deps {
		if dep.Path != SVGModule {
			continue
		}
		if dep.Replace != nil {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return ""
}

// SVGSupported reports whether renderer version v can export SVG. Unknown and
// development versions are assumed to be new enough.
func SVGSupported(v string) bool {
	if v == "" || v == "(devel)" {
		return true
	}
	if !semver.IsValid(v) {
		return false
	}
	return semver.Compare(v, MinSVGVersion) >= 0
}
