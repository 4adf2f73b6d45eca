// Package report folds activity summaries into day, week, month, year and
// total buckets per sport and renders them as text report lines.
package report

import (
	"fmt"
	"math"
	"sort"

	"github.com/sstent/garmin-summary/internal/models"
)

// Granularity selects a bucket size.
type Granularity int

const (
	Day Granularity = iota
	Week
	Month
	Year
	Total
)

var granularities = []Granularity{Day, Week, Month, Year, Total}

func (g Granularity) String() string {
	switch g {
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Year:
		return "year"
	case Total:
		return "total"
	}
	return fmt.Sprintf("granularity(%d)", int(g))
}

// PeriodKey returns the bucket key of d: yyyymmdd for days, isoyear*100+week
// for weeks, yyyymm for months, yyyy for years and 0 for the total.
func PeriodKey(g Granularity, d Date) int {
	switch g {
	case Day:
		return d.Key()
	case Week:
		y, w := d.Time().ISOWeek()
		return y*100 + w
	case Month:
		return d.Year*100 + int(d.Month)
	case Year:
		return d.Year
	}
	return 0
}

// Bucket accumulates the activities of one sport (or all sports) in one
// period.
type Bucket struct {
	models.Totals
	days map[Date]struct{}
}

func newBucket() *Bucket {
	return &Bucket{days: make(map[Date]struct{})}
}

// Add folds s into the bucket.
func (b *Bucket) Add(s *models.Summary) {
	b.Totals.Add(s)
	b.days[DateOf(s.BeginTime)] = struct{}{}
}

// Merge folds o into the bucket.
func (b *Bucket) Merge(o *Bucket) {
	b.Totals.Merge(o.Totals)
	for d := range o.days {
		b.days[d] = struct{}{}
	}
}

// ActiveDays is the number of distinct days with at least one activity.
func (b *Bucket) ActiveDays() int {
	if b == nil {
		return 0
	}
	return len(b.days)
}

type bucketKey struct {
	gran   Granularity
	sport  models.Sport
	period int
}

// Aggregation holds every bucket for a set of records. Buckets keyed by
// models.SportTotal sum all sports.
type Aggregation struct {
	// Sport restricts the aggregation to one sport when set.
	Sport models.Sport

	records []*models.Summary
	buckets map[bucketKey]*Bucket
	periods map[Granularity]map[int]struct{}
	sports  map[models.Sport]struct{}
}

func newAggregation(sport models.Sport) *Aggregation {
	a := &Aggregation{
		Sport:   sport,
		buckets: make(map[bucketKey]*Bucket),
		periods: make(map[Granularity]map[int]struct{}),
		sports:  make(map[models.Sport]struct{}),
	}
	for _, g := range granularities {
		a.periods[g] = make(map[int]struct{})
	}
	return a
}

// Aggregate folds records into buckets. When sport is set, records of other
// sports are ignored.
func Aggregate(records []*models.Summary, sport models.Sport) *Aggregation {
	a := newAggregation(sport)
	for _, r := range records {
		a.Add(r)
	}
	return a
}

// Add folds one record into its sport's buckets and the total buckets.
func (a *Aggregation) Add(s *models.Summary) {
	if s == nil || (a.Sport != "" && s.Sport != a.Sport) {
		return
	}
	a.insertRecord(s)

	d := DateOf(s.BeginTime)
	a.sports[s.Sport] = struct{}{}
	for _, g := range granularities {
		p := PeriodKey(g, d)
		a.periods[g][p] = struct{}{}
		a.bucket(g, s.Sport, p).Add(s)
		a.bucket(g, models.SportTotal, p).Add(s)
	}
}

func (a *Aggregation) insertRecord(s *models.Summary) {
	i := sort.Search(len(a.records), func(i int) bool {
		return s.BeginTime.Before(a.records[i].BeginTime)
	})
	a.records = append(a.records, nil)
	copy(a.records[i+1:], a.records[i:])
	a.records[i] = s
}

func (a *Aggregation) bucket(g Granularity, sport models.Sport, period int) *Bucket {
	k := bucketKey{g, sport, period}
	b, ok := a.buckets[k]
	if !ok {
		b = newBucket()
		a.buckets[k] = b
	}
	return b
}

// Merge folds o into a. Aggregating two halves of a record set and merging
// gives the same buckets as aggregating the whole set.
func (a *Aggregation) Merge(o *Aggregation) {
	for _, r := range o.records {
		a.insertRecord(r)
	}
	for s := range o.sports {
		a.sports[s] = struct{}{}
	}
	for g, ps := range o.periods {
		for p := range ps {
			a.periods[g][p] = struct{}{}
		}
	}
	for k, b := range o.buckets {
		a.bucket(k.gran, k.sport, k.period).Merge(b)
	}
}

// Bucket returns the bucket for sport (or models.SportTotal) in period. ok is
// false when nothing was recorded there.
func (a *Aggregation) Bucket(g Granularity, sport models.Sport, period int) (b *Bucket, ok bool) {
	b, ok = a.buckets[bucketKey{g, sport, period}]
	return b, ok
}

// Records returns the aggregated records sorted by begin time.
func (a *Aggregation) Records() []*models.Summary {
	return a.records
}

// Periods returns the sorted keys of g that hold at least one activity.
func (a *Aggregation) Periods(g Granularity) []int {
	out := make([]int, 0, len(a.periods[g]))
	for p := range a.periods[g] {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Days returns the sorted distinct activity dates.
func (a *Aggregation) Days() []Date {
	keys := a.Periods(Day)
	out := make([]Date, len(keys))
	for i, k := range keys {
		out[i] = dateFromKey(k)
	}
	return out
}

// Sports returns the sports present, in report order.
func (a *Aggregation) Sports() []models.Sport {
	var out []models.Sport
	for _, s := range models.SportTypes {
		if _, ok := a.sports[s]; ok {
			out = append(out, s)
		}
	}
	var extra []string
	for s := range a.sports {
		if !s.Valid() {
			extra = append(extra, string(s))
		}
	}
	sort.Strings(extra)
	for _, s := range extra {
		out = append(out, models.Sport(s))
	}
	return out
}

// ActivePeriods counts the periods of g in which sport (or models.SportTotal)
// has at least one activity.
func (a *Aggregation) ActivePeriods(g Granularity, sport models.Sport) int {
	n := 0
	for k := range a.buckets {
		if k.gran == g && k.sport == sport {
			n++
		}
	}
	return n
}

// CheckTotals verifies that every total bucket equals the sum of the sport
// buckets of the same period.
func (a *Aggregation) CheckTotals() error {
	for _, g := range granularities {
		for p := range a.periods[g] {
			var sum models.Totals
			for s := range a.sports {
				if b, ok := a.Bucket(g, s, p); ok {
					sum.Merge(b.Totals)
				}
			}
			total, _ := a.Bucket(g, models.SportTotal, p)
			if total == nil || !approxEqual(sum, total.Totals) {
				return fmt.Errorf("%s %d: total bucket does not match the sum of sports", g, p)
			}
		}
	}
	return nil
}

func approxEqual(x, y models.Totals) bool {
	const eps = 1e-6
	near := func(a, b float64) bool {
		return math.Abs(a-b) <= eps*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	}
	return x.TotalCalories == y.TotalCalories &&
		x.NumberOfItems == y.NumberOfItems &&
		near(x.TotalDistance, y.TotalDistance) &&
		near(x.TotalDuration, y.TotalDuration) &&
		near(x.TotalHRDur, y.TotalHRDur) &&
		near(x.TotalHRDis, y.TotalHRDis)
}
