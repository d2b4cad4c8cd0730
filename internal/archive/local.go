package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cardoc/cardoc-go/internal/errors"
)

// LocalTarget archives into a directory on the local filesystem.
type LocalTarget struct {
	root string
}

// NewLocalTarget creates root when missing.
func NewLocalTarget(root string) (*LocalTarget, error) {
	if root == "" {
		return nil, configError("archive path is required for the local target")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, archiveError(err, "local", "resolve_root")
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, archiveError(err, "local", "create_root")
	}
	return &LocalTarget{root: abs}, nil
}

// Name returns the name of this target
func (t *LocalTarget) Name() string {
	return "local"
}

// Root returns the archive directory.
func (t *LocalTarget) Root() string {
	return t.root
}

// resolve maps key under root and rejects keys that would escape it.
func (t *LocalTarget) resolve(key string) (string, error) {
	p := filepath.Join(t.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(t.root, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", errors.Newf("archive key %q escapes the archive root", key).
			Component("archive").
			Category(errors.CategoryValidation).
			Build()
	}
	return p, nil
}

// Store writes data atomically: a temporary file in the destination
// directory is synced and renamed over the final name.
func (t *LocalTarget) Store(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := t.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return archiveError(err, "local", "create_dir")
	}
	if err := atomicWriteFile(dst, data); err != nil {
		return archiveError(err, "local", "write")
	}
	return nil
}

// Delete removes the file stored under key.
func (t *LocalTarget) Delete(_ context.Context, key string) error {
	p, err := t.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return archiveError(err, "local", "delete")
	}
	return nil
}

func atomicWriteFile(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return err
	}
	success = true
	return nil
}
