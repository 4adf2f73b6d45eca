package parser

import (
	"fmt"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/sstent/garmin-summary/internal/models"
)

// GPXParser reads GPS tracks. GPX files carry no lap or calorie data, so
// each track is reported as one running lap.
type GPXParser struct{}

func NewGPXParser() *GPXParser {
	return &GPXParser{}
}

func (p *GPXParser) ParseData(data []byte) (*models.ActivityMetrics, error) {
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode GPX file: %w: %w", err, models.ErrNoActivityData)
	}

	metrics := &models.ActivityMetrics{
		FileType: string(FileTypeGPX),
		Sport:    models.SportRunning,
	}
	for _, track := range g.Tracks {
		bounds := track.TimeBounds()
		if bounds.StartTime.IsZero() {
			continue
		}
		metrics.AddLap(models.LapMetrics{
			Start:    bounds.StartTime.UTC(),
			Distance: track.Length2D(),
			Duration: track.Duration(),
		})
	}
	if len(metrics.Laps) == 0 {
		return nil, fmt.Errorf("no timed track data found: %w", models.ErrNoActivityData)
	}
	return metrics, nil
}
