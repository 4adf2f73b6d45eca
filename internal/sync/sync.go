// Package sync keeps one refreshed summary snapshot for long running
// processes. Refreshes are serialized, so the engine never sees two
// concurrent GetSummary calls.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	gosync "sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/sstent/garmin-summary/internal/cache"
	"github.com/sstent/garmin-summary/internal/database"
	"github.com/sstent/garmin-summary/internal/logger"
	"github.com/sstent/garmin-summary/internal/models"
)

const (
	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusError   = "error"
)

// DefaultDebounce is how long Watch waits for a burst of file events to
// settle before refreshing.
const DefaultDebounce = 2 * time.Second

// StateRecorder persists the outcome of each refresh.
type StateRecorder interface {
	UpdateSyncState(ctx context.Context, st database.SyncState) error
}

type SyncService struct {
	engine   *cache.Engine
	paths    []string
	options  cache.Options
	state    StateRecorder
	debounce time.Duration
	logger   *slog.Logger

	run gosync.Mutex // held for the whole refresh

	mu       gosync.RWMutex
	snapshot map[string]*models.Summary
	schedule string
	lastRun  time.Time
	lastErr  error
	cron     *cron.Cron
}

// Option configures a SyncService.
type Option func(*SyncService)

// WithStateRecorder records every refresh in r.
func WithStateRecorder(r StateRecorder) Option {
	return func(s *SyncService) { s.state = r }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(s *SyncService) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *SyncService) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSyncService(engine *cache.Engine, paths []string, opts cache.Options, options ...Option) *SyncService {
	s := &SyncService{
		engine:   engine,
		paths:    paths,
		options:  opts,
		debounce: DefaultDebounce,
		logger:   logger.Logger,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Sync refreshes the snapshot. A call made while another refresh is running
// waits for it and then refreshes again.
func (s *SyncService) Sync(ctx context.Context) (map[string]*models.Summary, error) {
	s.run.Lock()
	defer s.run.Unlock()

	start := time.Now()
	s.logger.Info("starting sync", "paths", s.paths)
	s.record(ctx, StatusRunning, nil)

	snapshot, err := s.engine.GetSummary(ctx, s.paths, s.options)

	s.mu.Lock()
	s.lastRun = start
	s.lastErr = err
	if err == nil {
		s.snapshot = snapshot
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("sync failed", "error", err)
		s.record(ctx, StatusError, err)
		return nil, err
	}
	s.logger.Info("sync completed", "records", len(snapshot), "duration", time.Since(start))
	s.record(ctx, StatusIdle, nil)
	return snapshot, nil
}

func (s *SyncService) record(ctx context.Context, status string, syncErr error) {
	if s.state == nil {
		return
	}
	s.mu.RLock()
	st := database.SyncState{
		Schedule: s.schedule,
		Status:   status,
		LastRun:  s.lastRun,
		Records:  len(s.snapshot),
	}
	s.mu.RUnlock()
	if syncErr != nil {
		st.LastError = syncErr.Error()
	}
	// cancellation of the refresh must not lose its outcome
	if err := s.state.UpdateSyncState(context.WithoutCancel(ctx), st); err != nil {
		s.logger.Warn("failed to record sync state", "error", err)
	}
}

// Snapshot returns the records of the last successful refresh. The map is a
// copy; the records are shared and must not be modified.
func (s *SyncService) Snapshot() map[string]*models.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.Summary, len(s.snapshot))
	for k, v := range s.snapshot {
		out[k] = v
	}
	return out
}

// Records returns the last snapshot sorted by begin time.
func (s *SyncService) Records() []*models.Summary {
	snap := s.Snapshot()
	out := make([]*models.Summary, 0, len(snap))
	for _, r := range snap {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BeginTime.Equal(out[j].BeginTime) {
			return out[i].BeginTime.Before(out[j].BeginTime)
		}
		return out[i].Filename < out[j].Filename
	})
	return out
}

// Status describes the last refresh.
type Status struct {
	Schedule  string      `json:"schedule,omitempty"`
	LastRun   time.Time   `json:"last_run"`
	LastError string      `json:"last_error,omitempty"`
	Records   int         `json:"records"`
	Stats     cache.Stats `json:"stats"`
}

func (s *SyncService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Schedule: s.schedule,
		LastRun:  s.lastRun,
		Records:  len(s.snapshot),
		Stats:    s.engine.Stats(),
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Schedule refreshes on the given cron spec until Stop is called.
func (s *SyncService) Schedule(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		s.logger.Info("starting scheduled sync")
		if _, err := s.Sync(context.Background()); err != nil {
			s.logger.Error("scheduled sync failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	if s.cron != nil {
		s.cron.Stop()
	}
	s.cron = c
	s.schedule = spec
	s.mu.Unlock()

	c.Start()
	return nil
}

// Stop halts the scheduler and waits for a running scheduled refresh.
func (s *SyncService) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Watch refreshes whenever an activity file under the configured paths is
// created, written or removed. It blocks until ctx is done.
func (s *SyncService) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, root := range s.paths {
		if err := addTree(watcher, root); err != nil {
			return err
		}
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, event.Name); err != nil {
						s.logger.Warn("failed to watch directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 ||
				!cache.IsCandidate(event.Name, s.engine.Extensions()) {
				continue
			}
			s.logger.Debug("activity file changed", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if _, err := s.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("sync after file change failed", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("file watcher error", "error", err)
		}
	}
}

// addTree watches root and every directory below it. Plain files are
// watched through their directory.
func addTree(w *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
