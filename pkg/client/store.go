package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SnapshotKey is the fixed key the signed-in session is persisted under.
const SnapshotKey = "campusGrievanceUser"

// ErrSnapshotNotFound is returned by a SnapshotStore that holds nothing under the key.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore persists the serialised session between runs.
type SnapshotStore interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Delete(key string) error
}

// FileStore keeps one JSON file per key inside Dir.
type FileStore struct {
	Dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.Dir, key+".json")
}

// Load reads the snapshot stored under key.
func (s *FileStore) Load(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSnapshotNotFound
	}
	return data, err
}

// Save replaces the snapshot atomically.
func (s *FileStore) Save(key string, data []byte) error {
	tmp, err := os.CreateTemp(s.Dir, key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(key))
}

// Delete removes the snapshot. Deleting a missing key is not an error.
func (s *FileStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryStore is a SnapshotStore that lives for the process only.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Load(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[key]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Save(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
