package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/sstent/garmin-summary/internal/models"
)

// TCXParser reads Garmin Training Center files lap by lap.
type TCXParser struct{}

func NewTCXParser() *TCXParser {
	return &TCXParser{}
}

type tcxDatabase struct {
	Activities []tcxActivity `xml:"Activities>Activity"`
}

type tcxActivity struct {
	Sport string   `xml:"Sport,attr"`
	Laps  []tcxLap `xml:"Lap"`
}

type tcxLap struct {
	StartTime        string  `xml:"StartTime,attr"`
	TotalTimeSeconds float64 `xml:"TotalTimeSeconds"`
	DistanceMeters   float64 `xml:"DistanceMeters"`
	Calories         int     `xml:"Calories"`
	AverageHeartRate float64 `xml:"AverageHeartRateBpm>Value"`
}

func (p *TCXParser) ParseData(data []byte) (*models.ActivityMetrics, error) {
	var tcx tcxDatabase
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&tcx); err != nil {
		return nil, fmt.Errorf("failed to decode TCX file: %w: %w", err, models.ErrNoActivityData)
	}
	if len(tcx.Activities) == 0 || len(tcx.Activities[0].Laps) == 0 {
		return nil, fmt.Errorf("no laps found in TCX file: %w", models.ErrNoActivityData)
	}

	activity := tcx.Activities[0]
	metrics := &models.ActivityMetrics{
		FileType: string(FileTypeTCX),
		Sport:    models.Sport(activity.Sport),
	}
	for _, lap := range activity.Laps {
		start, err := time.Parse(time.RFC3339, lap.StartTime)
		if err != nil {
			return nil, fmt.Errorf("lap start time %q: %w: %w", lap.StartTime, err, models.ErrNoActivityData)
		}
		metrics.AddLap(models.LapMetrics{
			Start:    start.UTC(),
			Distance: lap.DistanceMeters,
			Duration: lap.TotalTimeSeconds,
			Calories: lap.Calories,
			AvgHR:    lap.AverageHeartRate,
		})
	}
	return metrics, nil
}
