package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matheus3301/pollchat/internal/wire"
)

// Dir stores uploaded blobs under a root directory, one file per key.
type Dir struct {
	root    string
	maxSize int64
}

// NewDir returns a blob store rooted at root. maxSize caps a single blob.
func NewDir(root string, maxSize int64) *Dir {
	return &Dir{root: root, maxSize: maxSize}
}

func (d *Dir) path(key string) (string, error) {
	if !ValidKey(key) {
		return "", fmt.Errorf("%w: malformed upload key", wire.ErrInvalidArgument)
	}
	return filepath.Join(d.root, filepath.FromSlash(key)), nil
}

// Put writes r to key. An existing blob is not overwritten.
func (d *Dir) Put(key string, r io.Reader) (int64, error) {
	path, err := d.path(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return 0, fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if errors.Is(err, os.ErrExist) {
		return 0, fmt.Errorf("%w: upload %s already exists", wire.ErrForbidden, key)
	}
	if err != nil {
		return 0, fmt.Errorf("create upload: %w", err)
	}

	src := r
	if d.maxSize > 0 {
		src = io.LimitReader(r, d.maxSize+1)
	}
	n, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && d.maxSize > 0 && n > d.maxSize {
		err = fmt.Errorf("%w: upload exceeds %d bytes", wire.ErrInvalidArgument, d.maxSize)
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return n, nil
}

// Open returns the blob at key.
func (d *Dir) Open(key string) (*os.File, error) {
	path, err := d.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("upload %s: %w", key, wire.ErrNotFound)
	}
	return f, err
}
