package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nao1215/drivercatalog/internal/catalog"
)

// File stores the catalog as a single blob on the local disk.
type File struct {
	path string
}

// NewFile returns a File store writing to path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the blob location.
func (f *File) Path() string {
	return f.path
}

// Load reads the blob. A missing file is an empty tree.
func (f *File) Load(ctx context.Context) (*catalog.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return catalog.NewTree(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStoreIO, f.path, err)
	}
	return Decode(blob)
}

// Save writes the blob to a temporary file in the same directory and renames
// it over the previous one, so readers never observe a partial catalog.
func (f *File) Save(ctx context.Context, tree *catalog.Tree) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	blob, err := Encode(tree)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrStoreIO, dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreIO, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write %s: %w", ErrStoreIO, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync %s: %w", ErrStoreIO, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrStoreIO, tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("%w: replace %s: %w", ErrStoreIO, f.path, err)
	}
	return nil
}

// Close is a no-op.
func (f *File) Close() error {
	return nil
}
