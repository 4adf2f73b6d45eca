package models

import "time"

// LapMetrics is a single lap as read from an activity file, after any
// correction override has been applied.
type LapMetrics struct {
	Number   int
	Start    time.Time
	Distance float64 // meters
	Duration float64 // seconds
	Calories int
	AvgHR    float64 // 0 when the lap carries no heart rate
}

// ActivityMetrics contains everything extracted from one activity file
type ActivityMetrics struct {
	Filename      string
	FileType      string
	Sport         Sport
	StartTime     time.Time
	Laps          []LapMetrics
	TotalCalories int
	TotalDistance float64 // meters
	TotalDuration float64 // seconds
	TotalHRDur    float64 // sum of lap avg hr * lap duration
	TotalHRDis    float64 // sum of lap duration over laps with heart rate
}

// AddLap appends a lap and folds it into the file totals.
func (m *ActivityMetrics) AddLap(lap LapMetrics) {
	lap.Number = len(m.Laps)
	if len(m.Laps) == 0 && m.StartTime.IsZero() {
		m.StartTime = lap.Start
	}
	m.Laps = append(m.Laps, lap)
	m.TotalCalories += lap.Calories
	m.TotalDistance += lap.Distance
	m.TotalDuration += lap.Duration
	if lap.AvgHR > 0 {
		m.TotalHRDur += lap.AvgHR * lap.Duration
		m.TotalHRDis += lap.Duration
	}
}
