package geocache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/jukenmap/jukenmap/internal/model"
)

// JSONFileStore keeps the cache as one indented JSON object,
// {"<key>": {"lat": ..., "lng": ...}}.
type JSONFileStore struct {
	path string
}

// NewJSONFileStore returns a store for path. The file need not exist yet.
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

// Load reads the file. A missing file is an empty cache.
func (s *JSONFileStore) Load(_ context.Context) (map[string]model.Coordinate, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]model.Coordinate{}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "geocache: read %s", s.path)
	}

	entries := make(map[string]model.Coordinate)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrapf(err, "geocache: parse %s", s.path)
	}
	return entries, nil
}

// Save merges entries with what is on disk and rewrites the file atomically.
func (s *JSONFileStore) Save(ctx context.Context, entries map[string]model.Coordinate) error {
	merged, err := s.Load(ctx)
	if err != nil {
		return err
	}
	for k, v := range entries {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return eris.Wrap(err, "geocache: encode")
	}
	return writeFileAtomic(s.path, data)
}

// Close is a no-op.
func (s *JSONFileStore) Close() error { return nil }

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "geocache: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "geocache: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "geocache: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "geocache: close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "geocache: rename to %s", path)
	}
	return nil
}
