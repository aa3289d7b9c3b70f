package filer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/voxpage/voxpage/internal/pkg/utils"
)

// Local stores files in a directory on disk.
// Collision safety relies on generated names, there is no locking.
type Local struct {
	dir string
}

// NewLocal makes sure the directory exists and returns the storage
func NewLocal(dir string) (*Local, error) {
	if dir == "" || dir == "/" || dir == "." {
		return nil, fmt.Errorf("wrong storage dir '%s'", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("can't create dir %s: %w", dir, err)
	}
	return &Local{dir: dir}, nil
}

// SaveFile writes the reader content under the name
func (f *Local) SaveFile(ctx context.Context, name string, r io.Reader) error {
	p, err := f.Path(name)
	if err != nil {
		return err
	}
	goapp.Log.Info().Str("name", name).Msg("Save")
	out, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("can't create %s: %w", name, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("can't write %s: %w", name, err)
	}
	return nil
}

// LoadFile opens the stored file
func (f *Local) LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error) {
	p, err := f.Path(name)
	if err != nil {
		return nil, err
	}
	res, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("can't open %s: %w", name, err)
	}
	return res, nil
}

// Delete removes the stored file, missing file is not an error
func (f *Local) Delete(ctx context.Context, name string) error {
	p, err := f.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("can't delete %s: %w", name, err)
	}
	return nil
}

// Path resolves the on-disk location of a stored name, rejecting traversal
func (f *Local) Path(name string) (string, error) {
	n, err := utils.ValidateFileName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.dir, n), nil
}
