package parser

import (
	"bytes"
	"fmt"
	"math"

	"github.com/tormoder/fit"

	"github.com/sstent/garmin-summary/internal/models"
)

type FITParser struct{}

func NewFITParser() *FITParser {
	return &FITParser{}
}

func (p *FITParser) ParseData(data []byte) (*models.ActivityMetrics, error) {
	fitFile, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode FIT file: %w: %w", err, models.ErrNoActivityData)
	}

	activity, err := fitFile.Activity()
	if err != nil {
		return nil, fmt.Errorf("not an activity file (%v): %w", err, models.ErrNoActivityData)
	}
	if len(activity.Laps) == 0 {
		return nil, fmt.Errorf("no laps found in FIT file: %w", models.ErrNoActivityData)
	}

	metrics := &models.ActivityMetrics{FileType: string(FileTypeFIT)}
	if len(activity.Sessions) > 0 && activity.Sessions[0] != nil {
		metrics.Sport = fitSport(activity.Sessions[0].Sport)
	}

	for _, lap := range activity.Laps {
		if lap == nil {
			continue
		}
		if metrics.Sport == "" {
			metrics.Sport = fitSport(lap.Sport)
		}
		metrics.AddLap(models.LapMetrics{
			Start:    lap.StartTime.UTC(),
			Distance: scaled(lap.GetTotalDistanceScaled()),
			Duration: scaled(lap.GetTotalTimerTimeScaled()),
			Calories: int(safeU16(lap.TotalCalories)),
			AvgHR:    float64(safeU8(lap.AvgHeartRate)),
		})
	}
	return metrics, nil
}

func fitSport(s fit.Sport) models.Sport {
	switch s {
	case fit.SportRunning:
		return models.SportRunning
	case fit.SportCycling:
		return models.SportBiking
	case fit.SportWalking, fit.SportHiking:
		return models.SportWalking
	case fit.SportSwimming:
		return models.SportSwimming
	case fit.SportCrossCountrySkiing, fit.SportAlpineSkiing:
		return models.SportSkiing
	case fit.SportTraining:
		return models.SportLifting
	case fit.SportFitnessEquipment:
		return models.SportElliptical
	case fit.SportInvalid:
		return ""
	}
	return models.SportOther
}

// scaled maps the NaN used for invalid FIT fields to zero.
func scaled(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func safeU16(v uint16) uint16 {
	if v == ^uint16(0) {
		return 0
	}
	return v
}

func safeU8(v uint8) uint8 {
	if v == ^uint8(0) {
		return 0
	}
	return v
}
