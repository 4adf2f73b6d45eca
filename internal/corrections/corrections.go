// Package corrections holds hand-entered fixes for laps whose recorded
// distance or duration is wrong, keyed by the activity's begin time.
package corrections

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/sstent/garmin-summary/internal/models"
)

// Lap overrides one lap. Distance is in miles; a zero Duration keeps the
// recorded duration.
type Lap struct {
	Distance float64
	Duration float64
}

// UnmarshalJSON accepts either a bare distance or a [distance, duration] pair.
func (l *Lap) UnmarshalJSON(data []byte) error {
	var dist float64
	if err := json.Unmarshal(data, &dist); err == nil {
		*l = Lap{Distance: dist}
		return nil
	}
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("lap correction %s: %w", data, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("lap correction %s: expected [distance, duration]", data)
	}
	*l = Lap{Distance: pair[0], Duration: pair[1]}
	return nil
}

// MarshalJSON writes the short form when no duration is set.
func (l Lap) MarshalJSON() ([]byte, error) {
	if l.Duration == 0 {
		return json.Marshal(l.Distance)
	}
	return json.Marshal([]float64{l.Distance, l.Duration})
}

// Table maps a begin-time key (see models.FormatBeginKey) to lap overrides
// by lap number.
type Table map[string]map[int]Lap

// Contains reports whether key has any override.
func (t Table) Contains(key string) bool {
	_, ok := t[key]
	return ok
}

// Laps returns the overrides for key, or nil.
func (t Table) Laps(key string) map[int]Lap {
	return t[key]
}

// Keys returns all begin-time keys in order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads a corrections JSON file. A missing file yields an empty table.
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading corrections: %w", err)
	}

	var raw map[string]map[string]Lap
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing corrections: %w", err)
	}

	table := make(Table, len(raw))
	for key, laps := range raw {
		entry := make(map[int]Lap, len(laps))
		for num, lap := range laps {
			n, err := strconv.Atoi(num)
			if err != nil {
				return nil, fmt.Errorf("parsing corrections: lap number %q for %s", num, key)
			}
			entry[n] = lap
		}
		table[key] = entry
	}
	return table, nil
}

// Save writes the table as indented JSON.
func Save(path string, t Table) error {
	raw := make(map[string]map[string]Lap, len(t))
	for key, laps := range t {
		entry := make(map[string]Lap, len(laps))
		for n, lap := range laps {
			entry[strconv.Itoa(n)] = lap
		}
		raw[key] = entry
	}

	data, err := json.MarshalIndent(raw, "", " ")
	if err != nil {
		return fmt.Errorf("encoding corrections: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating corrections directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Apply overrides lap distance and duration of m in place and recomputes
// its totals.
func (t Table) Apply(m *models.ActivityMetrics) {
	laps := t.Laps(models.FormatBeginKey(m.StartTime))
	if len(laps) == 0 {
		return
	}
	fixed := &models.ActivityMetrics{
		Filename:  m.Filename,
		FileType:  m.FileType,
		Sport:     m.Sport,
		StartTime: m.StartTime,
	}
	for i, lap := range m.Laps {
		if c, ok := laps[i]; ok {
			lap.Distance = c.Distance * models.MetersPerMile
			if c.Duration > 0 {
				lap.Duration = c.Duration
			}
		}
		fixed.AddLap(lap)
	}
	*m = *fixed
}

// Key is the canonical begin-time key for t.
func Key(t time.Time) string {
	return models.FormatBeginKey(t)
}
