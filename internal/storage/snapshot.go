// Package storage persists collections as JSON snapshot files. It is the
// only package touching durable storage.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Collection names used by the rest of the system.
const (
	VideoSubscriptions  = "videos"
	StreamSubscriptions = "streams"
	Token               = "token"
)

// FileStore writes each collection as a single JSON file under a data
// directory. Writes go to a temp file first and are renamed into place, so
// a crash mid-write leaves either the old snapshot or the new one, never a
// truncated file.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save marshals v and atomically replaces the named snapshot.
func (fs *FileStore) Save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s snapshot: %w", name, err)
	}

	path := fs.path(name)
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync temp snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Load unmarshals the named snapshot into v. A missing file is not an
// error: v is left untouched (empty state). Unknown or absent JSON fields
// default rather than fail, so the schema stays additive.
func (fs *FileStore) Load(name string, v any) error {
	data, err := os.ReadFile(fs.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s snapshot: %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s snapshot: %w", name, err)
	}
	return nil
}

func (fs *FileStore) path(name string) string {
	return filepath.Join(fs.dir, name+".json")
}
