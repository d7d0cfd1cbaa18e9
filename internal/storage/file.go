package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mutige-mungos/mungo-shift/internal/models"
)

// FileStore keeps the seen set as a JSON array of codes in a single file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store path %s: %w", path, err)
	}
	return &FileStore{path: abs}, nil
}

// Path returns the absolute location of the JSON file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Close() error {
	return nil
}

// GetSeen reads the seen set. A missing file is an empty set.
func (s *FileStore) GetSeen(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes, err := s.read()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		seen[code] = struct{}{}
	}
	return seen, nil
}

// SaveSeen merges codes into the file and rewrites it atomically.
func (s *FileStore) SaveSeen(_ context.Context, codes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read()
	if err != nil {
		return err
	}
	merged := mergeUnique(existing, codes)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create store directory: %w", models.ErrStoreUnavailable, err)
	}
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode seen set: %w", models.ErrStoreUnavailable, err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", models.ErrStoreUnavailable, s.path, err)
	}

	slog.Info("Saved seen codes", "path", s.path, "total", len(merged))
	return nil
}

// read returns the stored codes in file order. Non-string entries and
// non-array documents are ignored.
func (s *FileStore) read() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to read %s: %w", models.ErrStoreUnavailable, s.path, err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", models.ErrStoreUnavailable, s.path, err)
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, nil
	}
	codes := make([]string, 0, len(entries))
	for _, entry := range entries {
		if code, ok := entry.(string); ok {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

func mergeUnique(existing, codes []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(codes))
	merged := make([]string, 0, len(existing)+len(codes))
	for _, list := range [][]string{existing, codes} {
		for _, code := range list {
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			merged = append(merged, code)
		}
	}
	return merged
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
