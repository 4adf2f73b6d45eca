package parser

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sstent/garmin-summary/internal/corrections"
	"github.com/sstent/garmin-summary/internal/logger"
	"github.com/sstent/garmin-summary/internal/models"
)

// FileParser reads an activity file from disk, picks a format parser and
// applies the sport relabelling and lap correction tables.
type FileParser struct {
	Logger *slog.Logger
}

// Default is the parser used by the cache engine.
var Default = &FileParser{}

// calorie rates recorded by the device per mile for biking and running;
// used to rescale activities saved under the wrong sport.
const (
	bikingCalPerMile  = 1701 / 26.26
	runningCalPerMile = 3390 / 26.43
)

func (p *FileParser) log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logger.Logger
}

// ParseFile parses path. Files that hold no usable activity, including files
// whose content cannot be decoded, return an error wrapping
// models.ErrNoActivityData. Only read failures are returned unwrapped.
func (p *FileParser) ParseFile(path string, corr corrections.Table) (*models.ActivityMetrics, error) {
	data, err := readMaybeGzip(path)
	if err != nil {
		return nil, err
	}

	var fp Parser
	ft := typeFromExt(path)
	if ft != FileTypeUnknown {
		fp = forType(ft)
	} else if fp, ft, err = NewFromData(data); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, models.ErrNoActivityData)
	}

	metrics, err := fp.ParseData(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	metrics.Filename = filepath.Base(path)
	metrics.FileType = string(ft)

	p.normalizeSport(metrics)
	p.relabel(metrics)
	corr.Apply(metrics)
	return metrics, nil
}

func (p *FileParser) normalizeSport(m *models.ActivityMetrics) {
	if m.Sport == "" || m.Sport.Valid() {
		return
	}
	sport, ok := models.ParseSport(string(m.Sport))
	if !ok {
		p.log().Warn("unknown sport, recording as other", "file", m.Filename, "sport", string(m.Sport))
		sport = models.SportOther
	}
	m.Sport = sport
}

func (p *FileParser) relabel(m *models.ActivityMetrics) {
	sport, ok := corrections.MislabeledSport(models.FormatBeginKey(m.StartTime))
	if !ok || sport == m.Sport {
		return
	}
	p.log().Debug("relabelling sport", "file", m.Filename, "from", string(m.Sport), "to", string(sport))

	scale := 1.0
	switch sport {
	case models.SportBiking:
		scale = bikingCalPerMile / runningCalPerMile
	case models.SportRunning:
		scale = runningCalPerMile / bikingCalPerMile
	}
	m.Sport = sport
	if scale == 1 {
		return
	}
	m.TotalCalories = 0
	for i := range m.Laps {
		m.Laps[i].Calories = int(float64(m.Laps[i].Calories) * scale)
		m.TotalCalories += m.Laps[i].Calories
	}
}

func readMaybeGzip(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return data, nil
	}
	// a damaged archive is bad content, not a failing disk
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w: %w", path, err, models.ErrNoActivityData)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w: %w", path, err, models.ErrNoActivityData)
	}
	return out, nil
}
