// FILE: internal/repository/implementation/file_response_cache_repository_impl.go
// JSON snapshot file holding every cached OpenDota response
package implementation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dota-report-be/internal/repository/contract"
)

type FileResponseCacheRepositoryImpl struct {
	path    string
	mu      sync.Mutex
	entries map[string]json.RawMessage
	dirty   int
}

// NewFileResponseCacheRepository loads the snapshot at path. A missing file
// starts an empty cache; an unreadable one is an error so a corrupt snapshot
// is never silently overwritten.
func NewFileResponseCacheRepository(path string) (contract.ResponseCacheRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	r := &FileResponseCacheRepositoryImpl{
		path:    path,
		entries: make(map[string]json.RawMessage),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	if err := json.Unmarshal(raw, &r.entries); err != nil {
		return nil, fmt.Errorf("failed to load cache file %s: %w", path, err)
	}
	return r, nil
}

func (r *FileResponseCacheRepositoryImpl) Get(_ context.Context, key string) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	body, ok := r.entries[key]
	return body, ok, nil
}

func (r *FileResponseCacheRepositoryImpl) Put(_ context.Context, key string, body []byte) error {
	if !json.Valid(body) {
		return fmt.Errorf("refusing to cache invalid JSON for %s", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = json.RawMessage(body)
	r.dirty++
	return nil
}

// Flush writes the snapshot to a temp file in the same directory and renames
// it over the previous one.
func (r *FileResponseCacheRepositoryImpl) Flush(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dirty == 0 {
		return nil
	}

	data, err := json.Marshal(r.entries)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), "cache-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	r.dirty = 0
	return nil
}
