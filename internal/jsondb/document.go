package jsondb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"
)

// ErrCorrupt is returned when a persisted document cannot be decoded.
var ErrCorrupt = errors.New("corrupt document")

// Cloner is implemented by document types that can clone themselves.
//
// A clone must be safe to mutate without affecting the original.
type Cloner[T any] interface {
	Clone() T
}

// Backend persists named documents.
type Backend interface {
	// Load returns the raw document, or an error matching fs.ErrNotExist.
	Load(name string) ([]byte, error)
	// Store replaces the raw document.
	Store(name string, data []byte) error
}

// Document is one JSON document cached in memory.
type Document[T Cloner[T]] struct {
	name    string
	backend Backend
	mu      sync.RWMutex

	value T
}

// Open loads the named document from the backend.
//
// When the document does not exist yet it is seeded with seed and persisted
// right away. When it exists but cannot be decoded, Open returns an error
// wrapping ErrCorrupt and leaves the stored bytes untouched.
func Open[T Cloner[T]](b Backend, name string, seed T) (*Document[T], error) {
	d := &Document[T]{name: name, backend: b}
	data, err := b.Load(name)
	if errors.Is(err, fs.ErrNotExist) {
		if err := d.store(seed); err != nil {
			return nil, err
		}
		d.value = seed
		return d, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", name, err)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, name, err)
	}
	if val, ok := any(v).(interface{ Validate() error }); ok {
		if err := val.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, name, err)
		}
	}
	d.value = v
	return d, nil
}

// Name returns the document name.
func (d *Document[T]) Name() string {
	return d.name
}

// Get returns the current value. It must not be mutated.
func (d *Document[T]) Get() T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.value
}

// Modify runs fn on a clone of the current value under the write lock and
// persists the result.
//
// If fn or the backend fails, the in-memory value is left unchanged and the
// error is returned.
func (d *Document[T]) Modify(fn func(T) (T, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	next, err := fn(d.value.Clone())
	if err != nil {
		return err
	}
	if err := d.store(next); err != nil {
		return err
	}
	d.value = next
	return nil
}

func (d *Document[T]) store(v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", d.name, err)
	}
	data = append(data, '\n')
	if err := d.backend.Store(d.name, data); err != nil {
		return fmt.Errorf("failed to store %s: %w", d.name, err)
	}
	return nil
}
