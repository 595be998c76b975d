package store

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
)

// FileStore persists credentials as a single JSON object on disk, the
// command-line equivalent of browser local storage. Every write replaces the
// file atomically through a temp file and rename. Reads and writes re-read
// the file when another process has replaced it since the last sync.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	data map[string]string
	seen fs.FileInfo
}

// NewFileStore opens (or lazily creates) the store at path. A missing file is
// an empty store; an unreadable or corrupt file is logged and also treated as
// empty so startup never fails on stale state.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &FileStore{
		path:   path,
		logger: logger,
		data:   make(map[string]string),
	}
	s.mu.Lock()
	s.syncLocked()
	s.mu.Unlock()
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// syncLocked reloads the cache if the file changed on disk.
func (s *FileStore) syncLocked() {
	info, err := os.Stat(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if s.seen != nil {
			s.data = make(map[string]string)
			s.seen = nil
		}
		return
	case err != nil:
		s.logger.Warn("credential file unreadable, keeping cached values", slog.String("path", s.path), slog.Any("error", err))
		return
	}
	if s.seen != nil && os.SameFile(s.seen, info) && s.seen.ModTime().Equal(info.ModTime()) && s.seen.Size() == info.Size() {
		return
	}

	s.seen = info
	raw, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Warn("credential file unreadable, starting empty", slog.String("path", s.path), slog.Any("error", err))
		s.data = make(map[string]string)
		return
	}
	data := make(map[string]string)
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Warn("credential file corrupt, starting empty", slog.String("path", s.path), slog.Any("error", err))
		data = make(map[string]string)
	}
	s.data = data
}

// Get returns the value for key as last written by any process.
func (s *FileStore) Get(_ context.Context, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncLocked()
	v, ok := s.data[key]
	return v, ok
}

// Set writes a single key.
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	return s.SetMany(ctx, map[string]string{key: value})
}

// SetMany merges values into the file in one atomic replace.
func (s *FileStore) SetMany(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncLocked()

	next := make(map[string]string, len(s.data)+len(values))
	for k, v := range s.data {
		next[k] = v
	}
	for k, v := range values {
		next[k] = v
	}
	if err := s.flush(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// Remove deletes keys. The file is only rewritten when something changed.
func (s *FileStore) Remove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncLocked()

	next := make(map[string]string, len(s.data))
	for k, v := range s.data {
		next[k] = v
	}
	changed := false
	for _, k := range keys {
		if _, ok := next[k]; ok {
			delete(next, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := s.flush(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

func (s *FileStore) flush(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if info, err := os.Stat(s.path); err == nil {
		s.seen = info
	}
	return nil
}
