// internal/database/sqlite.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sstent/garmin-summary/internal/models"
)

// SQLiteDB stores one row per summary in the garmin_summary table. It works
// with either the cgo driver ("sqlite3", github.com/mattn/go-sqlite3) or the
// pure Go one ("sqlite", modernc.org/sqlite); the caller imports the driver.
type SQLiteDB struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) the database at path.
func New(driver, path string) (*SQLiteDB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlite := &SQLiteDB{db: db, path: path}

	// Create tables
	if err := sqlite.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return sqlite, nil
}

// Path returns the database file path.
func (s *SQLiteDB) Path() string {
	return s.path
}

func (s *SQLiteDB) createTables() error {
	schema := `
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS garmin_summary (
		filename TEXT PRIMARY KEY NOT NULL,
		begin_datetime TEXT NOT NULL,
		sport TEXT,
		total_calories INTEGER NOT NULL DEFAULT 0,
		total_distance REAL NOT NULL DEFAULT 0,
		total_duration REAL NOT NULL DEFAULT 0,
		total_hr_dur REAL NOT NULL DEFAULT 0,
		total_hr_dis REAL NOT NULL DEFAULT 0,
		number_of_items INTEGER NOT NULL DEFAULT 1,
		md5sum TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_garmin_summary_begin ON garmin_summary(begin_datetime);
	CREATE INDEX IF NOT EXISTS idx_garmin_summary_sport ON garmin_summary(sport);

	CREATE TABLE IF NOT EXISTS garmin_skipped (
		filename TEXT PRIMARY KEY NOT NULL,
		md5sum TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daemon_config (
		id INTEGER PRIMARY KEY DEFAULT 1,
		schedule_cron TEXT DEFAULT '@hourly',
		status TEXT DEFAULT 'stopped',
		last_run TEXT,
		last_error TEXT,
		records INTEGER DEFAULT 0,
		CONSTRAINT single_config CHECK (id = 1)
	);

	INSERT OR IGNORE INTO daemon_config (id) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

const summaryColumns = `filename, begin_datetime, sport, total_calories, total_distance,
	total_duration, total_hr_dur, total_hr_dis, number_of_items, md5sum`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (*models.Summary, error) {
	var (
		s     models.Summary
		begin string
		sport sql.NullString
	)
	err := row.Scan(
		&s.Filename, &begin, &sport, &s.TotalCalories, &s.TotalDistance,
		&s.TotalDuration, &s.TotalHRDur, &s.TotalHRDis, &s.NumberOfItems, &s.MD5Sum,
	)
	if err != nil {
		return nil, err
	}
	if s.BeginTime, err = time.Parse(timeFormat, begin); err != nil {
		return nil, fmt.Errorf("row %s: %w", s.Filename, err)
	}
	s.Sport = models.Sport(sport.String)
	return &s, nil
}

// Read returns every row keyed by filename.
func (s *SQLiteDB) Read(ctx context.Context) (map[string]*models.Summary, error) {
	return readAll(ctx, s.db)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func readAll(ctx context.Context, q querier) (map[string]*models.Summary, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+summaryColumns+` FROM garmin_summary`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*models.Summary)
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out[sum.Filename] = sum
	}
	return out, rows.Err()
}

// Get returns the row for filename, or nil when there is none.
func (s *SQLiteDB) Get(ctx context.Context, filename string) (*models.Summary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+summaryColumns+` FROM garmin_summary WHERE filename = ?`, filename)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sum, err
}

// Write makes the table match snapshot. See Sync.
func (s *SQLiteDB) Write(ctx context.Context, snapshot map[string]*models.Summary) error {
	_, err := s.Sync(ctx, snapshot)
	return err
}

// Sync makes the table match snapshot in one transaction, touching only rows
// that differ. Invalid records fail with ErrInvalidRecord before any row is
// changed.
func (s *SQLiteDB) Sync(ctx context.Context, snapshot map[string]*models.Summary) (WriteStats, error) {
	var stats WriteStats
	for key, rec := range snapshot {
		if rec == nil {
			return stats, fmt.Errorf("%w: nil record for %q", ErrInvalidRecord, key)
		}
		if rec.Filename != key {
			return stats, fmt.Errorf("%w: record %q stored under %q", ErrInvalidRecord, rec.Filename, key)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, err
	}
	defer tx.Rollback()

	existing, err := readAll(ctx, tx)
	if err != nil {
		return stats, fmt.Errorf("reading existing rows: %w", err)
	}

	insert, err := tx.PrepareContext(ctx, `INSERT INTO garmin_summary (`+summaryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return stats, err
	}
	defer insert.Close()

	update, err := tx.PrepareContext(ctx, `UPDATE garmin_summary SET
		begin_datetime = ?, sport = ?, total_calories = ?, total_distance = ?,
		total_duration = ?, total_hr_dur = ?, total_hr_dis = ?, number_of_items = ?, md5sum = ?
		WHERE filename = ?`)
	if err != nil {
		return stats, err
	}
	defer update.Close()

	for name, rec := range snapshot {
		old, ok := existing[name]
		switch {
		case !ok:
			_, err = insert.ExecContext(ctx, rec.Filename, rec.BeginTime.UTC().Format(timeFormat),
				string(rec.Sport), rec.TotalCalories, rec.TotalDistance, rec.TotalDuration,
				rec.TotalHRDur, rec.TotalHRDis, rec.NumberOfItems, rec.MD5Sum)
			stats.Inserted++
		case !old.Equal(rec):
			_, err = update.ExecContext(ctx, rec.BeginTime.UTC().Format(timeFormat),
				string(rec.Sport), rec.TotalCalories, rec.TotalDistance, rec.TotalDuration,
				rec.TotalHRDur, rec.TotalHRDis, rec.NumberOfItems, rec.MD5Sum, rec.Filename)
			stats.Updated++
		default:
			stats.Unchanged++
		}
		if err != nil {
			return WriteStats{}, fmt.Errorf("writing %s: %w", name, err)
		}
	}

	for name := range existing {
		if _, ok := snapshot[name]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM garmin_summary WHERE filename = ?`, name); err != nil {
			return WriteStats{}, fmt.Errorf("deleting %s: %w", name, err)
		}
		stats.Deleted++
	}

	if err := tx.Commit(); err != nil {
		return WriteStats{}, err
	}
	return stats, nil
}

// ReadSkipped returns the files known to hold no activity, keyed by filename.
func (s *SQLiteDB) ReadSkipped(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename, md5sum FROM garmin_skipped`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, sum string
		if err := rows.Scan(&name, &sum); err != nil {
			return nil, err
		}
		out[name] = sum
	}
	return out, rows.Err()
}

// WriteSkipped replaces the skip list in one transaction.
func (s *SQLiteDB) WriteSkipped(ctx context.Context, skipped map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM garmin_skipped`); err != nil {
		return fmt.Errorf("clearing skip list: %w", err)
	}
	for name, sum := range skipped {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO garmin_skipped (filename, md5sum) VALUES (?, ?)`, name, sum); err != nil {
			return fmt.Errorf("writing skip entry %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// GetSyncState returns the background refresh state.
func (s *SQLiteDB) GetSyncState(ctx context.Context) (SyncState, error) {
	var (
		st               SyncState
		lastRun, lastErr sql.NullString
		schedule, status sql.NullString
		records          sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT schedule_cron, status, last_run, last_error, records FROM daemon_config WHERE id = 1`).
		Scan(&schedule, &status, &lastRun, &lastErr, &records)
	if err != nil {
		return st, err
	}
	st.Schedule = schedule.String
	st.Status = status.String
	st.LastError = lastErr.String
	st.Records = int(records.Int64)
	if lastRun.Valid && lastRun.String != "" {
		if st.LastRun, err = time.Parse(timeFormat, lastRun.String); err != nil {
			return st, err
		}
	}
	return st, nil
}

// UpdateSyncState records the outcome of a background refresh.
func (s *SQLiteDB) UpdateSyncState(ctx context.Context, st SyncState) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE daemon_config SET schedule_cron = ?, status = ?, last_run = ?, last_error = ?, records = ? WHERE id = 1`,
		st.Schedule, st.Status, st.LastRun.UTC().Format(timeFormat), st.LastError, st.Records)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
