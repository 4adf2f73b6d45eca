package report

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sstent/garmin-summary/internal/models"
)

func record(name string, begin time.Time, sport models.Sport, meters, seconds float64, calories int, hr float64) *models.Summary {
	s := &models.Summary{
		Filename:  name,
		MD5Sum:    name,
		BeginTime: begin,
		Sport:     sport,
		Totals: models.Totals{
			TotalCalories: calories,
			TotalDistance: meters,
			TotalDuration: seconds,
			NumberOfItems: 1,
		},
	}
	if hr > 0 {
		s.TotalHRDur = hr * seconds
		s.TotalHRDis = seconds
	}
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func scenario() []*models.Summary {
	return []*models.Summary{
		record("a.fit", day(2020, time.January, 1), models.SportRunning, 5000, 1800, 400, 150),
		record("b.fit", day(2020, time.January, 3), models.SportRunning, 10000, 3600, 800, 160),
		record("c.fit", day(2020, time.January, 10), models.SportBiking, 20000, 3600, 600, 0),
	}
}

func TestAggregate_WeekBuckets(t *testing.T) {
	agg := Aggregate(scenario(), "")

	run, ok := agg.Bucket(Week, models.SportRunning, 202001)
	if !ok {
		t.Fatal("Expected a running bucket for 2020 week 01")
	}
	if run.TotalDistance != 15000 || run.TotalDuration != 5400 {
		t.Errorf("unexpected running week: %+v", run.Totals)
	}
	if run.ActiveDays() != 2 {
		t.Errorf("Expected 2 active days, got %d", run.ActiveDays())
	}

	total, ok := agg.Bucket(Week, models.SportTotal, 202001)
	if !ok {
		t.Fatal("Expected a total bucket for 2020 week 01")
	}
	if total.Totals != run.Totals {
		t.Errorf("total week %+v differs from running %+v", total.Totals, run.Totals)
	}

	if _, ok := agg.Bucket(Week, models.SportBiking, 202001); ok {
		t.Error("biking has no activity in week 01")
	}
	if got := agg.Periods(Week); !cmp.Equal(got, []int{202001, 202002}) {
		t.Errorf("unexpected weeks %v", got)
	}
	if err := agg.CheckTotals(); err != nil {
		t.Error(err)
	}
}

func TestAggregate_SportFilter(t *testing.T) {
	agg := Aggregate(scenario(), models.SportBiking)
	if len(agg.Records()) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(agg.Records()))
	}
	if got := agg.Sports(); !cmp.Equal(got, []models.Sport{models.SportBiking}) {
		t.Errorf("unexpected sports %v", got)
	}
}

func TestPeriodKey(t *testing.T) {
	d := DateOf(day(2021, time.January, 2)) // ISO week 53 of 2020
	tests := []struct {
		g    Granularity
		want int
	}{
		{Day, 20210102},
		{Week, 202053},
		{Month, 202101},
		{Year, 2021},
		{Total, 0},
	}
	for _, tt := range tests {
		if got := PeriodKey(tt.g, d); got != tt.want {
			t.Errorf("PeriodKey(%s) = %d, want %d", tt.g, got, tt.want)
		}
	}
}

func TestAggregation_MergeMatchesWhole(t *testing.T) {
	records := append(scenario(),
		record("d.fit", day(2020, time.February, 2), models.SportRunning, 8000, 2700, 650, 140),
		record("e.fit", day(2020, time.February, 2), models.SportLifting, 0, 1800, 200, 110),
	)
	whole := Aggregate(records, "")

	left := Aggregate(records[:2], "")
	left.Merge(Aggregate(records[2:], ""))

	for _, g := range granularities {
		if !cmp.Equal(left.Periods(g), whole.Periods(g)) {
			t.Fatalf("%s periods differ", g)
		}
		for _, p := range whole.Periods(g) {
			for _, s := range append(whole.Sports(), models.SportTotal) {
				w, wok := whole.Bucket(g, s, p)
				m, mok := left.Bucket(g, s, p)
				if wok != mok {
					t.Fatalf("%s %s %d: presence differs", g, s, p)
				}
				if !wok {
					continue
				}
				if !approxEqual(w.Totals, m.Totals) || w.ActiveDays() != m.ActiveDays() {
					t.Errorf("%s %s %d: merged %+v, whole %+v", g, s, p, m.Totals, w.Totals)
				}
				wh, _ := w.AvgHeartRate()
				mh, _ := m.AvgHeartRate()
				if wh != mh {
					t.Errorf("%s %s %d: heart rate %v != %v", g, s, p, mh, wh)
				}
			}
		}
	}
	if err := left.CheckTotals(); err != nil {
		t.Error(err)
	}
	if len(left.Records()) != len(records) {
		t.Errorf("Expected %d records, got %d", len(records), len(left.Records()))
	}
}

func TestActivePeriods(t *testing.T) {
	agg := Aggregate(scenario(), "")
	if n := agg.ActivePeriods(Week, models.SportRunning); n != 1 {
		t.Errorf("Expected 1 running week, got %d", n)
	}
	if n := agg.ActivePeriods(Week, models.SportTotal); n != 2 {
		t.Errorf("Expected 2 weeks, got %d", n)
	}
	if n := agg.ActivePeriods(Day, models.SportTotal); n != 3 {
		t.Errorf("Expected 3 days, got %d", n)
	}
}

func TestOccurrences(t *testing.T) {
	agg := Aggregate(scenario(), "")
	occ := Occurrences(agg.Days())
	if diff := cmp.Diff(map[int]int{3: 1, 1: 1}, occ.Histogram); diff != "" {
		t.Errorf("histogram mismatch (-want +got):\n%s", diff)
	}
	if len(occ.Long()) != 0 {
		t.Errorf("Expected no long streaks, got %v", occ.Long())
	}

	var days []Date
	for d := 1; d <= 7; d++ {
		days = append(days, DateOf(day(2020, time.March, d)))
	}
	occ = Occurrences(days)
	if len(occ.Long()) != 1 || occ.Long()[0].Days() != 7 {
		t.Errorf("Expected one 7 day streak, got %v", occ.Streaks)
	}

	if got := Occurrences(nil); len(got.Streaks) != 0 {
		t.Errorf("Expected no streaks, got %v", got.Streaks)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"miles", Miles(models.MetersPerMile * 3), "3.00 mi"},
		{"hms", HMS(3725), "01:02:05"},
		{"pace", Pace(485), "08:05"},
		{"long pace", Pace(3700), "01:01:40"},
		{"pace per mile", PacePerMile(models.Totals{TotalDistance: models.MetersPerMile * 2, TotalDuration: 960}), "08:00 / mi"},
		{"pace per km", PacePerKm(models.Totals{TotalDistance: 5000, TotalDuration: 1500}), "05:00 / km"},
		{"no distance", PacePerMile(models.Totals{TotalDuration: 960}), ""},
		{"speed", Speed(models.Totals{TotalDistance: models.MetersPerMile * 15, TotalDuration: 3600}), "15.00 mph"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}

	if _, ok := HeartRate(models.Totals{TotalDuration: 10}); ok {
		t.Error("Expected no heart rate")
	}
	if hr, ok := HeartRate(models.Totals{TotalHRDur: 1500, TotalHRDis: 10}); !ok || hr != "150 bpm" {
		t.Errorf("unexpected heart rate %q", hr)
	}
}

func indexOf(lines []string, substr string) int {
	for i, l := range lines {
		if strings.Contains(l, substr) {
			return i
		}
	}
	return -1
}

func TestRender_SectionOrder(t *testing.T) {
	agg := Aggregate(scenario(), "")
	lines := Render(agg, Options{
		File: true, Day: true, Week: true, Month: true, Year: true,
		Average: true, Occurrence: true,
		Now: day(2021, time.June, 1),
	})

	order := []string{
		"a.fit",
		"2020-01-01 01 Wed",
		"2020 week 01",
		"2020 Jan",
		"average / day",
		"avg /   2 weeks",
		"total",
		"3 1",
	}
	last := -1
	for _, want := range order {
		i := indexOf(lines[last+1:], want)
		if i < 0 {
			t.Fatalf("%q not found after line %d in:\n%s", want, last, strings.Join(lines, "\n"))
		}
		last += i + 1
	}

	if i := indexOf(lines, "2020 Jan"); i < 0 || !strings.Contains(lines[i], "/ 31 days") {
		t.Errorf("Expected month span of 31 days")
	}
	if i := indexOf(lines, "2020 \t"); i < 0 || !strings.Contains(lines[i], "/ 366 days") {
		t.Errorf("Expected leap year span of 366 days")
	}
}

func TestRender_TotalLine(t *testing.T) {
	agg := Aggregate(scenario(), "")
	lines := Render(agg, Options{Now: day(2021, time.June, 1)})

	var total string
	for _, l := range lines {
		if strings.Count(l, "total") > 1 {
			total = l
		}
	}
	if total == "" {
		t.Fatalf("no total line in:\n%s", strings.Join(lines, "\n"))
	}
	if !strings.Contains(total, "3 / 10 days") {
		t.Errorf("unexpected total line %q", total)
	}
	if !strings.Contains(total, "1600 cal") {
		t.Errorf("Expected summed calories in %q", total)
	}
}

func TestRender_OmitsMissingHeartRate(t *testing.T) {
	agg := Aggregate(scenario(), models.SportBiking)
	lines := Render(agg, Options{File: true, Now: day(2021, time.June, 1)})
	for _, l := range lines {
		if strings.Contains(l, "bpm") {
			t.Errorf("unexpected heart rate column in %q", l)
		}
		// label and sport column both read total only on the all-sport line
		if strings.Count(l, "total") > 1 {
			t.Errorf("unexpected total line with a sport filter: %q", l)
		}
	}
	if i := indexOf(lines, "c.fit"); i < 0 || !strings.Contains(lines[i], "mph") {
		t.Errorf("Expected a biking speed column")
	}
}

func TestRender_CurrentPeriodIsTruncated(t *testing.T) {
	agg := Aggregate(scenario(), "")
	lines := Render(agg, Options{Month: true, Now: day(2020, time.January, 12)})
	i := indexOf(lines, "2020 Jan")
	if i < 0 || !strings.Contains(lines[i], "/ 12 days") {
		t.Errorf("Expected January truncated to 12 days, got %v", lines)
	}
}

func TestRender_Empty(t *testing.T) {
	if lines := Render(Aggregate(nil, ""), DefaultOptions()); lines != nil {
		t.Errorf("Expected no lines, got %v", lines)
	}
}
