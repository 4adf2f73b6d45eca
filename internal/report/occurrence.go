package report

import "sort"

// Streak is a run of activity days in which no two consecutive activity
// dates are separated by more than one idle day.
type Streak struct {
	Start Date
	End   Date
}

// Days is the calendar length of the streak, both ends included.
func (s Streak) Days() int {
	return s.Start.DaysUntil(s.End) + 1
}

// LongStreakDays is the length above which a streak is listed on its own.
const LongStreakDays = 5

// Occurrence is a histogram of streak lengths.
type Occurrence struct {
	Streaks   []Streak
	Histogram map[int]int
}

// Long returns the streaks longer than LongStreakDays.
func (o Occurrence) Long() []Streak {
	var out []Streak
	for _, s := range o.Streaks {
		if s.Days() > LongStreakDays {
			out = append(out, s)
		}
	}
	return out
}

// Lengths returns the histogram keys in ascending order.
func (o Occurrence) Lengths() []int {
	out := make([]int, 0, len(o.Histogram))
	for k := range o.Histogram {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// Occurrences splits activity dates into streaks. A streak ends when more
// than one idle day lies before the next activity date. days must be sorted
// and distinct.
func Occurrences(days []Date) Occurrence {
	occ := Occurrence{Histogram: make(map[int]int)}
	if len(days) == 0 {
		return occ
	}

	start := days[0]
	for i := 1; i < len(days); i++ {
		if days[i-1].DaysUntil(days[i]) > 2 {
			occ.add(Streak{Start: start, End: days[i-1]})
			start = days[i]
		}
	}
	occ.add(Streak{Start: start, End: days[len(days)-1]})
	return occ
}

func (o *Occurrence) add(s Streak) {
	o.Streaks = append(o.Streaks, s)
	o.Histogram[s.Days()]++
}
