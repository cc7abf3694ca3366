// Package publish copies finished plot outputs (HTML, SVG and workbook files)
// to a shared location: a local directory or an S3 bucket.
package publish

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/zebrafishlab/fishviz/internal/config"
)

// ErrInvalidKey is returned when an output name cannot be used as a key.
var ErrInvalidKey = errors.New("invalid publish key")

// Publisher uploads local files and returns where each one ended up.
type Publisher interface {
	Driver() string
	Publish(ctx context.Context, paths []string) ([]string, error)
}

// New returns the Publisher selected by cfg.Driver.
func New(ctx context.Context, cfg config.PublishConfig) (Publisher, error) {
	switch cfg.Driver {
	case "", config.DriverFS:
		return NewFS(cfg.Dir, cfg.Prefix)
	case config.DriverS3:
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown publish driver %q", cfg.Driver)
	}
}

var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".svg":  "image/svg+xml",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".json": "application/json",
	".yaml": "application/yaml",
}

// ContentType returns the media type used when uploading file.
func ContentType(file string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(file))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Key joins prefix and the base name of file into a slash separated key.
func Key(prefix, file string) (string, error) {
	base := filepath.Base(file)
	if base == "." || base == string(filepath.Separator) || base == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, file)
	}
	prefix = strings.Trim(filepath.ToSlash(prefix), "/")
	if strings.Contains(prefix, "..") {
		return "", fmt.Errorf("%w: prefix %q", ErrInvalidKey, prefix)
	}
	if prefix == "" {
		return base, nil
	}
	return path.Join(prefix, base), nil
}
