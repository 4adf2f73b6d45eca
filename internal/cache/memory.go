package cache

import (
	"context"
	"maps"
	"sync"

	"github.com/sstent/garmin-summary/internal/models"
)

// MemoryStore is an in-memory store. It counts reads and writes so tests can
// assert on store traffic.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]*models.Summary
	skipped  map[string]string
	reads    int
	writes   int
	writeErr error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*models.Summary),
		skipped: make(map[string]string),
	}
}

// Read returns a copy of the stored snapshot.
func (s *MemoryStore) Read(ctx context.Context) (map[string]*models.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return cloneSnapshot(s.records), nil
}

// Write stores a copy of snapshot.
func (s *MemoryStore) Write(ctx context.Context, snapshot map[string]*models.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	s.records = cloneSnapshot(snapshot)
	return nil
}

// ReadSkipped returns a copy of the skip list. It is not counted as a read.
func (s *MemoryStore) ReadSkipped(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.skipped), nil
}

// WriteSkipped stores a copy of skipped. It is not counted as a write.
func (s *MemoryStore) WriteSkipped(ctx context.Context, skipped map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped = maps.Clone(skipped)
	if s.skipped == nil {
		s.skipped = make(map[string]string)
	}
	return nil
}

// Reads returns how many times Read was called.
func (s *MemoryStore) Reads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reads
}

// Writes returns how many times Write was called.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// FailWrites makes every later Write return err (for testing).
func (s *MemoryStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Reset clears all records and counters (for testing).
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*models.Summary)
	s.skipped = make(map[string]string)
	s.reads, s.writes = 0, 0
	s.writeErr = nil
}

// Seed adds records directly without counting a write (for testing).
func (s *MemoryStore) Seed(records ...*models.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range cloneSnapshot(FromList(records)) {
		s.records[k] = v
	}
}
