package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Flags are the operator settings persisted across restarts.
type Flags struct {
	Enabled bool `json:"enabled"`
}

// FlagStore persists operator flags to a JSON file. A nil store and a store
// with an empty path both degrade to no-op persistence.
type FlagStore struct {
	mu   sync.Mutex
	path string
}

// NewFlagStore creates a store writing to the given path.
func NewFlagStore(path string) *FlagStore {
	return &FlagStore{path: path}
}

// Load reads the persisted flags. A missing or empty file yields the
// defaults: guard enabled.
func (s *FlagStore) Load() (Flags, error) {
	defaults := Flags{Enabled: true}
	if s == nil || s.path == "" {
		return defaults, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return defaults, nil
	}
	if err != nil {
		return defaults, fmt.Errorf("status: read flag file: %w", err)
	}
	if len(data) == 0 {
		return defaults, nil
	}

	var f Flags
	if err := json.Unmarshal(data, &f); err != nil {
		return defaults, fmt.Errorf("status: parse flag file: %w", err)
	}
	return f, nil
}

// Save writes the flags atomically via a temp file rename.
func (s *FlagStore) Save(f Flags) error {
	if s == nil || s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("status: encode flags: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".flags-*")
	if err != nil {
		return fmt.Errorf("status: create temp flag file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("status: write flag file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("status: close flag file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("status: replace flag file: %w", err)
	}
	return nil
}
