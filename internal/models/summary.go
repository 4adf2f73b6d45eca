// Package models holds the activity types shared by the parsers, the cache
// and the report.
package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// MetersPerMile is used for every mile conversion in reports.
const MetersPerMile = 1609.344

// ErrNoActivityData marks a file that parsed but holds no usable activity.
// The cache drops such files instead of failing the batch.
var ErrNoActivityData = errors.New("no usable activity data")

// Totals is the additive part of a summary. It is used both for a single
// file and as the accumulator of a report bucket.
type Totals struct {
	TotalCalories int     `json:"total_calories"`
	TotalDistance float64 `json:"total_distance"` // meters
	TotalDuration float64 `json:"total_duration"` // seconds
	TotalHRDur    float64 `json:"total_hr_dur"`   // sum of hr * seconds
	TotalHRDis    float64 `json:"total_hr_dis"`   // seconds carrying heart rate
	NumberOfItems int     `json:"number_of_items"`
}

// Add folds one activity into t.
func (t *Totals) Add(s *Summary) {
	t.TotalCalories += s.TotalCalories
	t.TotalDistance += s.TotalDistance
	t.TotalDuration += s.TotalDuration
	if s.TotalHRDur > 0 {
		t.TotalHRDur += s.TotalHRDur
		t.TotalHRDis += s.TotalHRDis
	}
	t.NumberOfItems++
}

// Merge folds another accumulator into t.
func (t *Totals) Merge(o Totals) {
	t.TotalCalories += o.TotalCalories
	t.TotalDistance += o.TotalDistance
	t.TotalDuration += o.TotalDuration
	t.TotalHRDur += o.TotalHRDur
	t.TotalHRDis += o.TotalHRDis
	t.NumberOfItems += o.NumberOfItems
}

// AvgHeartRate is the duration weighted heart rate. ok is false when no
// heart rate was recorded.
func (t Totals) AvgHeartRate() (bpm float64, ok bool) {
	if t.TotalHRDur <= 0 || t.TotalHRDis <= 0 {
		return 0, false
	}
	return t.TotalHRDur / t.TotalHRDis, true
}

// Summary is the reduced record for one activity file. It is keyed by
// Filename in the cache and superseded whenever MD5Sum changes.
type Summary struct {
	Filename  string    `json:"filename"`
	MD5Sum    string    `json:"md5sum"`
	BeginTime time.Time `json:"begin_datetime"`
	Sport     Sport     `json:"sport"`
	Totals
}

// BeginKey is the canonical begin-time string used by correction tables.
func (s *Summary) BeginKey() string {
	return FormatBeginKey(s.BeginTime)
}

// FormatBeginKey formats t the way correction tables key activities.
func FormatBeginKey(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// Equal compares every persisted field. Floats are compared exactly.
func (s *Summary) Equal(o *Summary) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Filename == o.Filename &&
		s.MD5Sum == o.MD5Sum &&
		s.BeginTime.Equal(o.BeginTime) &&
		s.Sport == o.Sport &&
		s.Totals == o.Totals
}

func (s *Summary) String() string {
	return fmt.Sprintf("Summary<%s %s %s %.0fm %.0fs %dcal>",
		s.Filename, FormatBeginKey(s.BeginTime), s.Sport,
		s.TotalDistance, s.TotalDuration, s.TotalCalories)
}

// Summarize reduces parsed metrics to a Summary. Activities without a sport,
// without duration, or with implausibly few calories are rejected with
// ErrNoActivityData.
func Summarize(filename, md5sum string, m *ActivityMetrics) (*Summary, error) {
	if m == nil {
		return nil, fmt.Errorf("%s: %w", filename, ErrNoActivityData)
	}
	if m.Sport == "" {
		return nil, fmt.Errorf("%s: no sport: %w", filename, ErrNoActivityData)
	}
	if m.TotalDuration <= 0 {
		return nil, fmt.Errorf("%s: no duration: %w", filename, ErrNoActivityData)
	}

	s := &Summary{
		Filename:  filename,
		MD5Sum:    md5sum,
		BeginTime: m.StartTime,
		Sport:     m.Sport,
		Totals: Totals{
			TotalCalories: m.TotalCalories,
			TotalDistance: m.TotalDistance,
			TotalDuration: m.TotalDuration,
			TotalHRDur:    m.TotalHRDur,
			TotalHRDis:    m.TotalHRDis,
			NumberOfItems: 1,
		},
	}

	switch {
	case s.TotalCalories == 0 && s.Sport == SportRunning && s.TotalDistance > 0:
		miles := s.TotalDistance / MetersPerMile
		pace := (s.TotalDuration / 60) / miles
		s.TotalCalories = int(ExpectedCalories(175, pace, miles))
	case s.TotalCalories == 0 && s.Sport == SportStairs:
		s.TotalCalories = int(325 * (s.TotalDuration / 1100.89))
	}
	if s.TotalCalories < 3 {
		return nil, fmt.Errorf("%s: %d calories: %w", filename, s.TotalCalories, ErrNoActivityData)
	}
	return s, nil
}

// ExpectedCalories estimates calories burnt running distance miles at the
// given pace (minutes per mile) for a runner of weight pounds.
func ExpectedCalories(weight, paceMinPerMile, distance float64) float64 {
	if paceMinPerMile <= 0 {
		return 0
	}
	mph := 60 / paceMinPerMile
	calPerMile := weight * (0.0395 + 0.00327*mph + 0.000455*math.Pow(mph, 2) +
		0.000801*((weight/154)*0.425/weight*math.Pow(mph, 3))*60/mph)
	return calPerMile * distance
}
