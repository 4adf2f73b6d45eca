package corrections

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sstent/garmin-summary/internal/models"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrections.json")
	data := `{
 "2011-07-04T08:58:27Z": {"0": 3.1, "1": [2.0, 1200]},
 "2012-01-01T10:00:00Z": {"2": 1}
}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	laps := table.Laps("2011-07-04T08:58:27Z")
	if laps[0] != (Lap{Distance: 3.1}) {
		t.Errorf("Expected bare distance, got %+v", laps[0])
	}
	if laps[1] != (Lap{Distance: 2.0, Duration: 1200}) {
		t.Errorf("Expected distance and duration, got %+v", laps[1])
	}
	if keys := table.Keys(); len(keys) != 2 || keys[0] != "2011-07-04T08:58:27Z" {
		t.Errorf("unexpected keys %v", keys)
	}
	if !table.Contains("2012-01-01T10:00:00Z") {
		t.Error("Expected key to be present")
	}
}

func TestLoad_Missing(t *testing.T) {
	table, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table) != 0 {
		t.Errorf("Expected empty table, got %v", table)
	}
}

func TestLoad_BadLap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrections.json")
	if err := os.WriteFile(path, []byte(`{"k": {"0": [1, 2, 3]}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for a three element lap")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "corrections.json")
	want := Table{"2020-01-01T08:00:00Z": {0: {Distance: 1.5}, 3: {Distance: 2, Duration: 600}}}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for key, laps := range want {
		for n, lap := range laps {
			if got[key][n] != lap {
				t.Errorf("%s lap %d: expected %+v, got %+v", key, n, lap, got[key][n])
			}
		}
	}
}

func TestApply(t *testing.T) {
	start := time.Date(2020, 1, 1, 8, 0, 0, 0, time.UTC)
	m := &models.ActivityMetrics{Sport: models.SportRunning}
	m.AddLap(models.LapMetrics{Start: start, Distance: 1000, Duration: 300, Calories: 50, AvgHR: 140})
	m.AddLap(models.LapMetrics{Start: start.Add(300 * time.Second), Distance: 1000, Duration: 300, Calories: 50})

	table := Table{Key(start): {1: {Distance: 1, Duration: 400}}}
	table.Apply(m)

	if m.Laps[1].Distance != models.MetersPerMile || m.Laps[1].Duration != 400 {
		t.Errorf("lap not corrected: %+v", m.Laps[1])
	}
	if want := 1000 + models.MetersPerMile; m.TotalDistance != want {
		t.Errorf("Expected total distance %v, got %v", want, m.TotalDistance)
	}
	if m.TotalDuration != 700 {
		t.Errorf("Expected total duration 700, got %v", m.TotalDuration)
	}
	if m.TotalHRDis != 300 || m.TotalCalories != 100 {
		t.Errorf("unexpected totals %+v", m)
	}
}

func TestMislabeledSport(t *testing.T) {
	if s, ok := MislabeledSport("2012-02-08T20:43:05Z"); !ok || s != models.SportStairs {
		t.Errorf("Expected stairs, got %q (%v)", s, ok)
	}
	if _, ok := MislabeledSport("2020-01-01T00:00:00Z"); ok {
		t.Error("Expected no relabel")
	}
}
