package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"chatcast/internal/app/message"
)

// FileStore keeps the whole history in one JSON file and rewrites it on every Persist.
// Writes go to a temporary file in the same directory which is then renamed over the
// target, so a crash mid-write never leaves a truncated history behind.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = "messages.json"
	}
	return &FileStore{path: path}
}

func (s *FileStore) Name() string { return BackendFile }

func (s *FileStore) Load(ctx context.Context) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history file %s: %w", s.path, err)
	}

	return decodeHistory(data)
}

func (s *FileStore) Persist(ctx context.Context, history []message.Message) error {
	data, err := encodeHistory(history)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write history file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close history file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace history file: %w", err)
	}

	return nil
}

func (s *FileStore) Close() error { return nil }
