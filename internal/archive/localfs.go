package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalFS stores artifacts as plain files under a root directory.
type LocalFS struct {
	root string
}

// NewLocalFS creates the root directory if needed and returns a
// filesystem-backed store rooted there.
func NewLocalFS(root string) (*LocalFS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("archive root %s: %w", root, err)
	}
	return &LocalFS{root: root}, nil
}

// resolve maps a store path to a file path, rejecting anything that
// would escape the root.
func (l *LocalFS) resolve(path string) (string, error) {
	p := filepath.Join(l.root, filepath.FromSlash(path))
	if rel, err := filepath.Rel(l.root, p); err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %q escapes archive root", path)
	}
	return p, nil
}

func (l *LocalFS) Write(ctx context.Context, path string, data []byte) error {
	p, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("archive write %s: %w", path, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("archive write %s: %w", path, err)
	}
	return nil
}

func (l *LocalFS) Read(ctx context.Context, path string) ([]byte, error) {
	p, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (l *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	start, err := l.resolve(prefix)
	if err != nil {
		return nil, err
	}

	var paths []string
	walkErr := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(walkErr, fs.ErrNotExist) {
		return nil, nil
	}
	return paths, walkErr
}

func (l *LocalFS) Delete(ctx context.Context, path string) error {
	p, err := l.resolve(path)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

func (l *LocalFS) Exists(ctx context.Context, path string) (bool, error) {
	p, err := l.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
