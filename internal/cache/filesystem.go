package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/sstent/garmin-summary/internal/logger"
	"github.com/sstent/garmin-summary/internal/models"
)

// FileStore keeps the whole snapshot in one gzip compressed gob file.
type FileStore struct {
	path      string
	logger    *slog.Logger
	writeLock sync.Mutex
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string, log *slog.Logger) *FileStore {
	if log == nil {
		log = logger.Logger
	}
	return &FileStore{path: path, logger: log}
}

// Path returns the cache file location.
func (s *FileStore) Path() string {
	return s.path
}

// Read loads the snapshot. A missing file is an empty snapshot. A file that
// cannot be decoded is logged and also treated as empty so the caller
// rebuilds from scratch.
func (s *FileStore) Read(ctx context.Context) (map[string]*models.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]*models.Summary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache %s: %w", s.path, err)
	}

	snapshot, err := decodeSnapshot(data)
	if err != nil {
		s.logger.Warn("cache file unreadable, starting empty", "path", s.path, "error", err)
		return map[string]*models.Summary{}, nil
	}
	return snapshot, nil
}

// SkippedPath returns where the files without activity are remembered.
func (s *FileStore) SkippedPath() string {
	return s.path + ".skipped"
}

// ReadSkipped loads the filenames known to hold no activity. A missing or
// unreadable file is an empty set.
func (s *FileStore) ReadSkipped(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.SkippedPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	skipped := map[string]string{}
	raw, err := gunzip(data)
	if err == nil {
		err = decodeGob(raw, &skipped)
	}
	if err != nil {
		s.logger.Warn("skip list unreadable, starting empty", "path", path, "error", err)
		return map[string]string{}, nil
	}
	return skipped, nil
}

// WriteSkipped replaces the skip list atomically.
func (s *FileStore) WriteSkipped(ctx context.Context, skipped map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if err := writeGzipGob(s.SkippedPath(), skipped); err != nil {
		return fmt.Errorf("writing skip list: %w", err)
	}
	return nil
}

// decodeSnapshot accepts a map, a list or a single record.
func decodeSnapshot(data []byte) (map[string]*models.Summary, error) {
	raw, err := gunzip(data)
	if err != nil {
		return nil, err
	}

	var asMap map[string]*models.Summary
	if err := decodeGob(raw, &asMap); err == nil {
		return Normalize(asMap)
	}
	var asList []*models.Summary
	if err := decodeGob(raw, &asList); err == nil {
		return Normalize(asList)
	}
	var single models.Summary
	if err := decodeGob(raw, &single); err != nil {
		return nil, err
	}
	return Normalize(&single)
}

// Write replaces the cache file atomically.
func (s *FileStore) Write(ctx context.Context, snapshot map[string]*models.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if err := writeGzipGob(s.path, cloneSnapshot(snapshot)); err != nil {
		return fmt.Errorf("writing cache %s: %w", s.path, err)
	}
	return nil
}
