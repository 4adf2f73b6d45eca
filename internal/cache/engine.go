package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sstent/garmin-summary/internal/corrections"
	"github.com/sstent/garmin-summary/internal/logger"
	"github.com/sstent/garmin-summary/internal/models"
)

// Engine builds the filename keyed summary set for a list of paths,
// reparsing only new or changed files. Callers must not run two GetSummary
// calls against the same store at once.
type Engine struct {
	store       Store
	parser      Parser
	workers     int
	sideCache   *SideCache
	corrections corrections.Table
	extensions  []string
	exclude     []string
	taskTimeout time.Duration
	logger      *slog.Logger

	mu        sync.Mutex
	noData    map[string]string // filename -> fingerprint that held no activity
	lastStats Stats
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWorkers bounds the number of files parsed at once.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithSideCache writes every freshly parsed file to c.
func WithSideCache(c *SideCache) EngineOption {
	return func(e *Engine) {
		e.sideCache = c
		if c != nil {
			e.exclude = append(e.exclude, c.Dir())
		}
	}
}

// WithCorrections passes t to the parser.
func WithCorrections(t corrections.Table) EngineOption {
	return func(e *Engine) { e.corrections = t }
}

// WithExtensions overrides DefaultExtensions.
func WithExtensions(exts ...string) EngineOption {
	return func(e *Engine) { e.extensions = exts }
}

// WithExclude skips the given directories while walking.
func WithExclude(dirs ...string) EngineOption {
	return func(e *Engine) { e.exclude = append(e.exclude, dirs...) }
}

// WithTaskTimeout drops a file whose parse takes longer than d.
func WithTaskTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.taskTimeout = d }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over store using parser.
func NewEngine(store Store, parser Parser, opts ...EngineOption) *Engine {
	e := &Engine{
		store:      store,
		parser:     parser,
		workers:    runtime.NumCPU(),
		extensions: DefaultExtensions,
		logger:     logger.Logger,
		noData:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extensions returns the file name patterns the engine picks up.
func (e *Engine) Extensions() []string {
	return e.extensions
}

// Stats returns the counters of the last GetSummary call.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastStats
}

type parseTask struct {
	path     string
	filename string
	hash     string
}

type parseResult struct {
	filename string
	hash     string
	summary  *models.Summary // nil when the file was skipped
	noData   bool            // skipped because the content holds no activity
}

// GetSummary returns the up to date snapshot for paths and persists it when
// anything changed.
//
// Records are otherwise only removed by Invalidate, with one exception: when
// a file that has a record changes and its new content holds no activity, the
// record is deleted along with the stale data.
func (e *Engine) GetSummary(ctx context.Context, paths []string, opts Options) (map[string]*models.Summary, error) {
	snapshot, err := e.store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}
	if snapshot == nil {
		snapshot = map[string]*models.Summary{}
	}
	if err := e.loadNoData(ctx); err != nil {
		return nil, err
	}

	byHash := make(map[string]*models.Summary, len(snapshot))
	for _, s := range snapshot {
		byHash[s.MD5Sum] = s
	}
	reprocess := make(map[string]bool, len(opts.ReprocessKeys))
	for _, k := range opts.ReprocessKeys {
		reprocess[k] = true
	}

	files, err := Candidates(paths, e.extensions, e.exclude...)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	stats := Stats{Candidates: len(files)}
	changed := false
	skipChanged := false
	queued := make(map[string]int) // filename -> index in tasks
	var tasks []parseTask

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := filepath.Base(path)
		prior := snapshot[name]

		var hash string
		if prior != nil && !opts.HashRecheck {
			hash = prior.MD5Sum
		} else if hash, err = MD5File(path); err != nil {
			return nil, err
		}

		forced := prior != nil && reprocess[prior.BeginKey()]
		switch {
		case prior != nil && prior.MD5Sum == hash && !forced:
			stats.Reused++
			continue
		case e.knownNoData(name, hash):
			stats.Dropped++
			continue
		}

		// Same content already summarized under another name.
		if same, ok := byHash[hash]; ok && prior == nil && !reprocess[same.BeginKey()] {
			c := *same
			c.Filename = name
			snapshot[name] = &c
			if err := e.copySideCache(same.Filename, name); err != nil {
				return nil, err
			}
			if e.forgetNoData(name) {
				skipChanged = true
			}
			stats.Copied++
			changed = true
			continue
		}

		// Files sharing a base name map to one record; the last path wins.
		task := parseTask{path: path, filename: name, hash: hash}
		if i, ok := queued[name]; ok {
			tasks[i] = task
			continue
		}
		queued[name] = len(tasks)
		tasks = append(tasks, task)
	}

	results, err := e.parseAll(ctx, tasks)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.summary == nil {
			stats.Dropped++
			if r.noData && e.rememberNoData(r.filename, r.hash) {
				skipChanged = true
			}
			if _, ok := snapshot[r.filename]; ok {
				delete(snapshot, r.filename)
				changed = true
			}
			continue
		}
		stats.Reparsed++
		if e.forgetNoData(r.filename) {
			skipChanged = true
		}
		if !r.summary.Equal(snapshot[r.filename]) {
			changed = true
		}
		snapshot[r.filename] = r.summary
	}

	if changed {
		if err := e.store.Write(ctx, snapshot); err != nil {
			return nil, fmt.Errorf("writing store: %w", err)
		}
		stats.Written = true
	} else {
		e.logger.Debug("cache unchanged, skipping write")
	}
	if skipChanged {
		if err := e.saveNoData(ctx); err != nil {
			return nil, err
		}
	}

	e.logger.Info("cache updated",
		"files", stats.Candidates,
		"reused", stats.Reused,
		"copied", stats.Copied,
		"reparsed", stats.Reparsed,
		"dropped", stats.Dropped,
		"written", stats.Written)

	e.mu.Lock()
	e.lastStats = stats
	e.mu.Unlock()
	return snapshot, nil
}

// parseAll runs tasks on a bounded pool. Results come back in completion
// order, tagged with their filename and fingerprint.
func (e *Engine) parseAll(ctx context.Context, tasks []parseTask) ([]parseResult, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	out := make(chan parseResult, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, task := range tasks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s, noData, err := e.parseOne(gctx, task)
			if err != nil {
				return err
			}
			out <- parseResult{filename: task.filename, hash: task.hash, summary: s, noData: noData}
			return nil
		})
	}
	err := g.Wait()
	close(out)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]parseResult, 0, len(tasks))
	for r := range out {
		results = append(results, r)
	}
	return results, nil
}

type parsed struct {
	metrics *models.ActivityMetrics
	err     error
}

// parseOne parses and summarizes one file. A nil summary with a nil error
// means the file is skipped; noData tells whether it would be skipped again.
func (e *Engine) parseOne(ctx context.Context, task parseTask) (summary *models.Summary, noData bool, err error) {
	done := make(chan parsed, 1)
	go func() {
		m, err := e.parser.ParseFile(task.path, e.corrections)
		done <- parsed{m, err}
	}()

	var timeout <-chan time.Time
	if e.taskTimeout > 0 {
		timer := time.NewTimer(e.taskTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	var res parsed
	select {
	case res = <-done:
	case <-timeout:
		e.logger.Warn("parse timed out, skipping file", "file", task.path, "timeout", e.taskTimeout)
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}

	if errors.Is(res.err, models.ErrNoActivityData) {
		e.logger.Debug("skipping file", "file", task.path, "reason", res.err)
		return nil, true, nil
	}
	if res.err != nil {
		return nil, false, fmt.Errorf("parsing %s: %w", task.path, res.err)
	}

	summary, err = models.Summarize(task.filename, task.hash, res.metrics)
	if errors.Is(err, models.ErrNoActivityData) {
		e.logger.Debug("skipping file", "file", task.path, "reason", err)
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	if e.sideCache != nil {
		res.metrics.Filename = task.filename
		if err := e.sideCache.Write(res.metrics); err != nil {
			return nil, false, err
		}
	}
	return summary, false, nil
}

// copySideCache gives a record copied by fingerprint the side cache entry of
// the file it was copied from.
func (e *Engine) copySideCache(from, to string) error {
	if e.sideCache == nil {
		return nil
	}
	err := e.sideCache.Copy(from, to)
	if errors.Is(err, os.ErrNotExist) {
		e.logger.Debug("no side cache entry to copy", "from", from, "to", to)
		return nil
	}
	return err
}

func (e *Engine) knownNoData(filename, hash string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.noData[filename]
	return ok && h == hash
}

// rememberNoData reports whether the mark is new.
func (e *Engine) rememberNoData(filename, hash string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if h, ok := e.noData[filename]; ok && h == hash {
		return false
	}
	e.noData[filename] = hash
	return true
}

// forgetNoData reports whether a mark was removed.
func (e *Engine) forgetNoData(filename string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.noData[filename]; !ok {
		return false
	}
	delete(e.noData, filename)
	return true
}

// loadNoData replaces the in-memory marks with the persisted ones when the
// store keeps them.
func (e *Engine) loadNoData(ctx context.Context) error {
	ss, ok := e.store.(SkipStore)
	if !ok {
		return nil
	}
	skipped, err := ss.ReadSkipped(ctx)
	if err != nil {
		return fmt.Errorf("reading skip list: %w", err)
	}
	if skipped == nil {
		skipped = make(map[string]string)
	}
	e.mu.Lock()
	e.noData = skipped
	e.mu.Unlock()
	return nil
}

func (e *Engine) saveNoData(ctx context.Context) error {
	ss, ok := e.store.(SkipStore)
	if !ok {
		return nil
	}
	e.mu.Lock()
	skipped := maps.Clone(e.noData)
	e.mu.Unlock()
	if err := ss.WriteSkipped(ctx, skipped); err != nil {
		return fmt.Errorf("writing skip list: %w", err)
	}
	return nil
}

// Invalidate removes the named records from the store so the next
// GetSummary reparses them. Files remembered as holding no activity are
// retried too. It returns how many records were removed.
func (e *Engine) Invalidate(ctx context.Context, filenames ...string) (int, error) {
	snapshot, err := e.store.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading store: %w", err)
	}
	if err := e.loadNoData(ctx); err != nil {
		return 0, err
	}

	removed, unmarked := 0, 0
	for _, name := range filenames {
		name = filepath.Base(name)
		if e.forgetNoData(name) {
			unmarked++
		}
		if _, ok := snapshot[name]; ok {
			delete(snapshot, name)
			removed++
		}
	}

	if unmarked > 0 {
		if err := e.saveNoData(ctx); err != nil {
			return 0, err
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := e.store.Write(ctx, snapshot); err != nil {
		return 0, fmt.Errorf("writing store: %w", err)
	}
	e.logger.Info("invalidated cache records", "count", removed)
	return removed, nil
}
