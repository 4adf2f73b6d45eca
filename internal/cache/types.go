// Package cache keeps the per-file activity summaries up to date. Files are
// reparsed only when their content fingerprint changes.
package cache

import (
	"context"

	"github.com/sstent/garmin-summary/internal/corrections"
	"github.com/sstent/garmin-summary/internal/models"
)

// Store persists a snapshot of summaries keyed by filename. Write must
// replace the snapshot atomically: readers see the old or the new set, never
// a mix.
type Store interface {
	Read(ctx context.Context) (map[string]*models.Summary, error)
	Write(ctx context.Context, snapshot map[string]*models.Summary) error
}

// SkipStore is implemented by stores that also remember which files held no
// activity, keyed by filename with the fingerprint that was rejected. The
// engine uses it so that a later process does not reparse those files.
type SkipStore interface {
	ReadSkipped(ctx context.Context) (map[string]string, error)
	WriteSkipped(ctx context.Context, skipped map[string]string) error
}

// Parser turns one file into activity metrics. Errors wrapping
// models.ErrNoActivityData mean the file is skipped; any other error fails
// the whole GetSummary call.
type Parser interface {
	ParseFile(path string, corr corrections.Table) (*models.ActivityMetrics, error)
}

// Options controls one GetSummary call.
type Options struct {
	// HashRecheck recomputes the fingerprint of files that already have a
	// record. When false the recorded fingerprint is trusted, so a file
	// edited in place is not picked up until it is invalidated.
	HashRecheck bool

	// ReprocessKeys forces a reparse of records whose begin-time key (see
	// models.FormatBeginKey) is listed, e.g. after editing corrections.
	ReprocessKeys []string
}

// DefaultOptions rechecks every fingerprint and forces nothing.
func DefaultOptions() Options {
	return Options{HashRecheck: true}
}

// Stats describes what the last GetSummary call did.
type Stats struct {
	Candidates int
	Reused     int
	Copied     int
	Reparsed   int
	Dropped    int
	Written    bool
}

// DefaultExtensions are matched case-insensitively anywhere in a file name.
var DefaultExtensions = []string{".gmn", ".tcx", ".fit", ".txt"}
