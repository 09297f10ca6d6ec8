package textstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store keeps the full text of every ingested chunk in a local JSON file,
// mirrored in memory for serving. The cloud vector index only carries a
// short preview in its metadata, so answer assembly reads the full text
// from here.
type Store struct {
	lock sync.RWMutex
	path string
	data map[string]string
}

// New loads the store from path. A missing file is a legitimate empty
// start; an unreadable or malformed file is an error.
func New(path string) (*Store, error) {
	st := &Store{
		path: path,
		data: make(map[string]string),
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return nil, fmt.Errorf("read text store %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &st.data); err != nil {
		return nil, fmt.Errorf("text store %s is corrupted: %w", path, err)
	}
	return st, nil
}

// Get returns the stored text for id, or an empty string when the id is
// unknown. Absence is not an error; it signals a sync gap with the
// vector index and the caller decides how to surface it.
func (s *Store) Get(id string) string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.data[id]
}

func (s *Store) Put(id string, text string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.data[id] = text
}

func (s *Store) Count() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.data)
}

// Keys returns a snapshot of all stored chunk ids.
func (s *Store) Keys() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// Persist writes the full mapping as one snapshot, via a temp file and
// rename so a crash mid-write never leaves a truncated store behind.
// Map keys are serialized in sorted order, so persisting the same state
// twice produces identical bytes.
func (s *Store) Persist() error {
	s.lock.RLock()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	s.lock.RUnlock()
	if err != nil {
		return fmt.Errorf("encode text store: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create text store dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".textstore-*.tmp")
	if err != nil {
		return fmt.Errorf("create text store temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write text store temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close text store temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace text store %s: %w", s.path, err)
	}
	return nil
}
