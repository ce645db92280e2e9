// Stores each document as its own file, replaced atomically.

package jsondb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend stores each document as dir/name.
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

// Path returns the file holding the named document.
func (b *FileBackend) Path(name string) string {
	return filepath.Join(b.dir, name)
}

// Load implements Backend.
func (b *FileBackend) Load(name string) ([]byte, error) {
	return os.ReadFile(b.Path(name)) //nolint:gosec // G304: names are fixed by the caller
}

// Store implements Backend. The new content is written to a temporary file
// in the same directory and renamed over the target.
func (b *FileBackend) Store(name string, data []byte) error {
	f, err := os.CreateTemp(b.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()
	if _, err := f.Write(data); err != nil {
		return errors.Join(fmt.Errorf("failed to write temp file: %w", err), f.Close(), os.Remove(tmpPath))
	}
	if err := f.Sync(); err != nil {
		return errors.Join(fmt.Errorf("failed to sync temp file: %w", err), f.Close(), os.Remove(tmpPath))
	}
	if err := f.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to close temp file: %w", err), os.Remove(tmpPath))
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil { //nolint:gosec // G302: documents are not secret
		return errors.Join(fmt.Errorf("failed to chmod temp file: %w", err), os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, b.Path(name)); err != nil {
		return errors.Join(fmt.Errorf("failed to rename %s into place: %w", name, err), os.Remove(tmpPath))
	}
	return nil
}
