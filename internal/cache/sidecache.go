package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sstent/garmin-summary/internal/models"
)

// SideCache keeps the full parse result of each activity file, one
// compressed gob per file at {dir}/{basename}.gob.gz.
type SideCache struct {
	dir string
}

// NewSideCache creates a side cache rooted at dir.
func NewSideCache(dir string) *SideCache {
	return &SideCache{dir: dir}
}

// Dir returns the cache directory.
func (c *SideCache) Dir() string {
	return c.dir
}

// Path returns where the entry for filename lives.
func (c *SideCache) Path(filename string) string {
	return filepath.Join(c.dir, filepath.Base(filename)+".gob.gz")
}

// Write stores m under its Filename.
func (c *SideCache) Write(m *models.ActivityMetrics) error {
	if m == nil || m.Filename == "" {
		return errors.New("side cache: metrics without filename")
	}
	if err := writeGzipGob(c.Path(m.Filename), m); err != nil {
		return fmt.Errorf("side cache: %w", err)
	}
	return nil
}

// Read loads the entry for filename. The error wraps os.ErrNotExist when
// there is none.
func (c *SideCache) Read(filename string) (*models.ActivityMetrics, error) {
	data, err := os.ReadFile(c.Path(filename))
	if err != nil {
		return nil, fmt.Errorf("side cache: %w", err)
	}
	raw, err := gunzip(data)
	if err != nil {
		return nil, fmt.Errorf("side cache %s: %w", filename, err)
	}
	var m models.ActivityMetrics
	if err := decodeGob(raw, &m); err != nil {
		return nil, fmt.Errorf("side cache %s: %w", filename, err)
	}
	return &m, nil
}

// Copy stores the entry of from again under to. The error wraps
// os.ErrNotExist when from has no entry.
func (c *SideCache) Copy(from, to string) error {
	m, err := c.Read(from)
	if err != nil {
		return err
	}
	m.Filename = filepath.Base(to)
	return c.Write(m)
}
