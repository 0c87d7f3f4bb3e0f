package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cooksync/cooksync/internal/domain"
)

// JSONStore keeps the settings record in a single JSON file.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONStore returns a store backed by the file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load implements Store. A missing file loads as an empty record.
func (s *JSONStore) Load(ctx context.Context) (domain.PartialSettings, error) {
	if s.path == "" {
		return domain.PartialSettings{}, fmt.Errorf("settings path is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.PartialSettings{}, nil
		}
		return domain.PartialSettings{}, fmt.Errorf("read settings: %w", err)
	}
	if len(data) == 0 {
		return domain.PartialSettings{}, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.PartialSettings{}, fmt.Errorf("decode settings: %w", err)
	}
	return doc.partial(), nil
}

// Save implements Store. The file is replaced atomically.
func (s *JSONStore) Save(ctx context.Context, st domain.Settings) error {
	if s.path == "" {
		return fmt.Errorf("settings path is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read settings: %w", err)
	}
	data, err := encodeDocument(prev, toDocument(st))
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	// 0600: the record holds the auth token
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *JSONStore) Close() error { return nil }
