package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/sstent/garmin-summary/internal/models"
)

// Options selects the report sections. Sections always appear in the order
// file, day, week, month, year, averages, total, occurrence.
type Options struct {
	File       bool
	Day        bool
	Week       bool
	Month      bool
	Year       bool
	Average    bool
	Occurrence bool

	// Now truncates the day counts of the current week, month and year.
	// Zero means time.Now().
	Now time.Time
}

// DefaultOptions reports years, totals and averages.
func DefaultOptions() Options {
	return Options{Year: true, Average: true}
}

type lineKind int

const (
	plainLine lineKind = iota
	averageLine
)

type reportLine struct {
	label string
	sport models.Sport
	t     models.Totals
	kind  lineKind
	n     float64 // divisor for averages
	tail  string
}

func (l reportLine) String() string {
	t := l.t
	if l.kind == averageLine && l.n > 0 {
		t.TotalDistance /= l.n
		t.TotalCalories = int(float64(t.TotalCalories) / l.n)
		t.TotalDuration /= l.n
	}

	cols := []string{
		fmt.Sprintf("%17s", l.label),
		fmt.Sprintf("%10s", l.sport),
		fmt.Sprintf("%10s", Miles(t.TotalDistance)),
		fmt.Sprintf("%10s", fmt.Sprintf("%d cal", t.TotalCalories)),
	}
	// pace and speed are ratios; use the undivided totals
	switch l.sport {
	case models.SportRunning, models.SportWalking:
		cols = append(cols, fmt.Sprintf("%10s", PacePerMile(l.t)), fmt.Sprintf("%10s", PacePerKm(l.t)))
	case models.SportBiking:
		cols = append(cols, fmt.Sprintf("%10s", Speed(l.t)))
	default:
		cols = append(cols, fmt.Sprintf("%10s", ""))
	}
	cols = append(cols, fmt.Sprintf("%10s", HMS(t.TotalDuration)))
	if hr, ok := HeartRate(l.t); ok {
		cols = append(cols, fmt.Sprintf("%7s", hr))
	}
	if l.tail != "" {
		cols = append(cols, l.tail)
	}
	return strings.TrimRight(strings.Join(cols, " \t "), " \t")
}

type builder struct {
	lines []string
}

func (b *builder) add(l reportLine) {
	b.lines = append(b.lines, l.String())
}

func (b *builder) addText(s string) {
	b.lines = append(b.lines, s)
}

// section separates groups with a single blank line.
func (b *builder) section() {
	if n := len(b.lines); n > 0 && b.lines[n-1] != "" {
		b.lines = append(b.lines, "")
	}
}

// Render produces the report lines for agg.
func Render(agg *Aggregation, opts Options) []string {
	if len(agg.Records()) == 0 {
		return nil
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	r := renderer{agg: agg, now: DateOf(now), withTotal: agg.Sport == ""}
	b := &builder{}

	if opts.File {
		r.files(b)
	}
	if opts.Day {
		r.periods(b, Day)
	}
	if opts.Week {
		r.periods(b, Week)
	}
	if opts.Month {
		r.periods(b, Month)
	}
	if opts.Year {
		r.periods(b, Year)
	}
	if opts.Average {
		r.averages(b)
	}
	r.totals(b)
	if opts.Occurrence {
		r.occurrence(b)
	}

	lines := b.lines
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Text is Render joined with newlines.
func Text(agg *Aggregation, opts Options) string {
	lines := Render(agg, opts)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

type renderer struct {
	agg       *Aggregation
	now       Date
	withTotal bool // total lines are left out when a sport filter is set
}

func (r renderer) sports() []models.Sport {
	sports := r.agg.Sports()
	if r.withTotal {
		sports = append(sports, models.SportTotal)
	}
	return sports
}

func dayLabel(d Date) string {
	_, w := d.Time().ISOWeek()
	return fmt.Sprintf("%s %02d %s", d, w, d.Time().Weekday().String()[:3])
}

func (r renderer) files(b *builder) {
	for _, sport := range r.agg.Sports() {
		b.section()
		for _, rec := range r.agg.Records() {
			if rec.Sport != sport {
				continue
			}
			b.add(reportLine{
				label: dayLabel(DateOf(rec.BeginTime)),
				sport: sport,
				t:     rec.Totals,
				tail:  rec.Filename,
			})
		}
	}
}

func (r renderer) periods(b *builder, g Granularity) {
	for _, sport := range r.sports() {
		b.section()
		for _, p := range r.agg.Periods(g) {
			bucket, ok := r.agg.Bucket(g, sport, p)
			if !ok {
				continue
			}
			label, span := r.describe(g, p)
			l := reportLine{label: label, sport: sport, t: bucket.Totals}
			if g != Day {
				l.tail = fmt.Sprintf("%d / %d days", bucket.ActiveDays(), span)
			}
			b.add(l)
		}
	}
}

// describe returns the label of period p and its length in days, truncated
// to today for the current period.
func (r renderer) describe(g Granularity, p int) (string, int) {
	switch g {
	case Day:
		return dayLabel(dateFromKey(p)), 1
	case Week:
		year, week := p/100, p%100
		span := 7
		if y, w := r.now.Time().ISOWeek(); y == year && w == week {
			span = (int(r.now.Time().Weekday())+6)%7 + 1
		}
		return fmt.Sprintf("%d week %02d", year, week), span
	case Month:
		year, month := p/100, time.Month(p%100)
		span := daysInMonth(year, month)
		if r.now.Year == year && r.now.Month == month {
			span = r.now.Day
		}
		return fmt.Sprintf("%d %s", year, month.String()[:3]), span
	case Year:
		span := daysInYear(p)
		if r.now.Year == p {
			span = r.now.Time().YearDay()
		}
		return fmt.Sprintf("%d", p), span
	}
	return "", 0
}

// averages divide by the number of periods that had any activity.
func (r renderer) averages(b *builder) {
	for _, g := range []Granularity{Day, Week, Month} {
		b.section()
		for _, sport := range r.sports() {
			n := r.agg.ActivePeriods(g, sport)
			if n == 0 {
				continue
			}
			total, _ := r.agg.Bucket(Total, sport, 0)
			l := reportLine{sport: sport, t: total.Totals, kind: averageLine, n: float64(n)}
			switch g {
			case Day:
				l.label = "average / day"
			case Week:
				l.label = fmt.Sprintf("avg / %3d weeks", n)
				l.tail = fmt.Sprintf("%.1f / 7 days", float64(total.ActiveDays())/float64(n))
			case Month:
				l.label = fmt.Sprintf("avg / %3d months", n)
			}
			b.add(l)
		}
	}
}

func (r renderer) totals(b *builder) {
	days := r.agg.Days()
	span := days[0].DaysUntil(days[len(days)-1]) + 1
	b.section()
	for _, sport := range r.sports() {
		total, ok := r.agg.Bucket(Total, sport, 0)
		if !ok {
			continue
		}
		b.add(reportLine{
			label: "total",
			sport: sport,
			t:     total.Totals,
			tail:  fmt.Sprintf("%d / %d days", total.ActiveDays(), span),
		})
	}
}

func (r renderer) occurrence(b *builder) {
	occ := Occurrences(r.agg.Days())
	b.section()
	for _, s := range occ.Long() {
		b.addText(fmt.Sprintf("streak of %d days: %s to %s", s.Days(), s.Start, s.End))
	}
	for _, n := range occ.Lengths() {
		b.addText(fmt.Sprintf("%d %d", n, occ.Histogram[n]))
	}
}
