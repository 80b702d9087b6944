package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// FSSessionStore persists session state as a single JSON file. It is
// the demo-mode analog of browser local storage: the demo session
// survives a process restart the way a browser keeps its stored user.
type FSSessionStore struct {
	StoragePath string

	mu sync.Mutex
}

func NewFSSessionStore(storagePath string) *FSSessionStore {
	return &FSSessionStore{StoragePath: storagePath}
}

func (s *FSSessionStore) filePath() string {
	return filepath.Join(s.StoragePath, "session.json")
}

func (s *FSSessionStore) load() map[string]string {
	data, err := os.ReadFile(s.filePath())
	if err != nil {
		return map[string]string{}
	}
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil || values == nil {
		return map[string]string{}
	}
	return values
}

func (s *FSSessionStore) save(values map[string]string) error {
	if err := os.MkdirAll(s.StoragePath, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(s.filePath(), data)
}

func (s *FSSessionStore) Get(_ context.Context, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.load()[key]
	return v, ok
}

func (s *FSSessionStore) Put(_ context.Context, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.load()
	values[key] = value
	if err := s.save(values); err != nil {
		log.Printf("Warning: failed to persist session: %v", err)
	}
}

func (s *FSSessionStore) Delete(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.load()
	delete(values, key)
	if err := s.save(values); err != nil {
		log.Printf("Warning: failed to persist session: %v", err)
	}
}

func (s *FSSessionStore) Clear(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(map[string]string{}); err != nil {
		log.Printf("Warning: failed to persist session: %v", err)
	}
}

// writeAtomicFile writes data to a file atomically by writing to a
// temp file first.
func writeAtomicFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
