package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zebrafishlab/fishviz/internal/config"
)

// FS copies outputs into a directory tree.
type FS struct {
	root   string
	prefix string
}

// NewFS returns a filesystem publisher rooted at root, creating it if needed.
func NewFS(root, prefix string) (*FS, error) {
	if root == "" {
		root = "published"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create publish dir: %w", err)
	}
	return &FS{root: root, prefix: prefix}, nil
}

func (p *FS) Driver() string { return config.DriverFS }

// Publish copies each file to root/prefix/<base name>, replacing older copies.
func (p *FS) Publish(ctx context.Context, paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, src := range paths {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		key, err := Key(p.prefix, src)
		if err != nil {
			return out, err
		}
		dst := filepath.Join(p.root, filepath.FromSlash(key))
		if err := copyFile(src, dst); err != nil {
			return out, fmt.Errorf("publish %s: %w", src, err)
		}
		out = append(out, dst)
	}
	return out, nil
}

// copyFile writes through a temp file so readers never see a partial copy.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".publish-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
