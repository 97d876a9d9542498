// Package storage keeps the small per-browser key/value map that survives
// reloads and restarts (the cached role lives here).
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const fileExt = ".yaml"

// Root is a directory holding one YAML file per namespace.
type Root struct {
	dir string
}

// NewRoot creates dir if needed.
func NewRoot(dir string) (*Root, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty storage dir", ErrPersist)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrPersist, dir, err)
	}
	return &Root{dir: dir}, nil
}

// Namespace opens the store for ns, loading whatever was persisted before.
func (r *Root) Namespace(ns string) (*FileStore, error) {
	if ns == "" || ns == "." || ns == ".." || strings.ContainsAny(ns, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNamespace, ns)
	}
	fs := &FileStore{path: filepath.Join(r.dir, ns+fileExt), data: map[string]string{}}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

// FileStore is one namespace. Every mutation rewrites the file.
type FileStore struct {
	path string

	mu   sync.Mutex
	data map[string]string
}

// Get returns the value for key.
func (f *FileStore) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

// Set stores value under key.
func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.data[key]
	f.data[key] = value
	if err := f.persistLocked(); err != nil {
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

// Remove deletes key. Removing a missing key is a no-op.
func (f *FileStore) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.data[key]
	if !had {
		return nil
	}
	delete(f.data, key)
	if err := f.persistLocked(); err != nil {
		f.data[key] = prev
		return err
	}
	return nil
}

func (f *FileStore) load() error {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrPersist, f.path, err)
	}
	if err := yaml.Unmarshal(raw, &f.data); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrPersist, f.path, err)
	}
	if f.data == nil {
		f.data = map[string]string{}
	}
	return nil
}

// persistLocked writes the map via a temp file. An empty map removes the file.
func (f *FileStore) persistLocked() error {
	if len(f.data) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: remove %s: %w", ErrPersist, f.path, err)
		}
		return nil
	}
	raw, err := yaml.Marshal(f.data)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersist, err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPersist, tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %w", ErrPersist, tmp, err)
	}
	return nil
}
