package report

import (
	"fmt"

	"github.com/sstent/garmin-summary/internal/models"
)

// Miles formats meters as miles with two decimals.
func Miles(meters float64) string {
	return fmt.Sprintf("%.2f mi", meters/models.MetersPerMile)
}

// HMS formats seconds as HH:MM:SS.
func HMS(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

// Pace formats seconds per unit as MM:SS, or HH:MM:SS past an hour.
func Pace(seconds float64) string {
	if seconds >= 3600 {
		return HMS(seconds)
	}
	s := int(seconds)
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

// PacePerMile and PacePerKm are empty when there is no distance.
func PacePerMile(t models.Totals) string {
	if t.TotalDistance <= 0 {
		return ""
	}
	return Pace(t.TotalDuration/(t.TotalDistance/models.MetersPerMile)) + " / mi"
}

func PacePerKm(t models.Totals) string {
	if t.TotalDistance <= 0 {
		return ""
	}
	return Pace(t.TotalDuration/(t.TotalDistance/1000)) + " / km"
}

// Speed formats the average speed in miles per hour.
func Speed(t models.Totals) string {
	if t.TotalDuration <= 0 {
		return ""
	}
	return fmt.Sprintf("%.2f mph", (t.TotalDistance/models.MetersPerMile)/(t.TotalDuration/3600))
}

// HeartRate formats the duration weighted heart rate. ok is false when no
// heart rate was recorded, in which case the column is left out.
func HeartRate(t models.Totals) (s string, ok bool) {
	bpm, ok := t.AvgHeartRate()
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%d bpm", int(bpm)), true
}
