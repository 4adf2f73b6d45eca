// internal/database/models.go
package database

import (
	"errors"
	"time"
)

// ErrInvalidRecord is returned when a snapshot handed to Write holds a nil
// record or a record stored under a key other than its filename.
var ErrInvalidRecord = errors.New("invalid summary record")

// WriteStats counts the rows a Sync touched.
type WriteStats struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
}

// Changed reports whether any row was touched.
func (w WriteStats) Changed() bool {
	return w.Inserted+w.Updated+w.Deleted > 0
}

// SyncState is the single row describing the last background refresh.
type SyncState struct {
	Schedule  string    `json:"schedule"`
	Status    string    `json:"status"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
	Records   int       `json:"records"`
}

const timeFormat = "2006-01-02 15:04:05.999999999"
