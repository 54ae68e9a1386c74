package availability

import (
	"sort"
	"time"
)

// IsWithinOpenPeriod reports whether t falls inside an open period on t's
// own calendar date, with the period's end excluded. Periods never span days.
func IsWithinOpenPeriod(t time.Time, periods []OpeningPeriod) bool {
	if t.IsZero() {
		return false
	}
	day := DateOf(t)
	tod := LocalTimeOf(t).Minutes()
	for _, p := range periods {
		if p.State != StateOpen || p.Date != day {
			continue
		}
		if tod >= p.Start.Minutes() && tod < p.End.Minutes() {
			return true
		}
	}
	return false
}

// IsSlotRangeOpen reports whether every instant of candidate is covered by
// open periods. Touching or overlapping periods are merged first, so split
// hours and midnight-crossing pairs cover a candidate that spans their seam.
func IsSlotRangeOpen(candidate Interval, periods []OpeningPeriod, loc *time.Location) bool {
	if !candidate.Valid() {
		return false
	}
	for _, win := range openWindows(periods, loc) {
		if !candidate.Start.Before(win.Start) && !candidate.End.After(win.End) {
			return true
		}
	}
	return false
}

// openWindows turns open periods into sorted, merged absolute intervals.
func openWindows(periods []OpeningPeriod, loc *time.Location) []Interval {
	wins := make([]Interval, 0, len(periods))
	for _, p := range periods {
		if p.State != StateOpen {
			continue
		}
		b := p.Bounds(loc)
		if b.End.After(b.Start) {
			wins = append(wins, b)
		}
	}
	if len(wins) < 2 {
		return wins
	}
	sort.Slice(wins, func(i, j int) bool {
		if wins[i].Start.Equal(wins[j].Start) {
			return wins[i].End.Before(wins[j].End)
		}
		return wins[i].Start.Before(wins[j].Start)
	})
	merged := make([]Interval, 0, len(wins))
	merged = append(merged, wins[0])
	for _, cur := range wins[1:] {
		last := &merged[len(merged)-1]
		if cur.Start.After(last.End) {
			merged = append(merged, cur)
			continue
		}
		if cur.End.After(last.End) {
			last.End = cur.End
		}
	}
	return merged
}

// periodsOn returns the open periods of day ordered by start time.
func periodsOn(day Date, periods []OpeningPeriod) []OpeningPeriod {
	var out []OpeningPeriod
	for _, p := range periods {
		if p.State == StateOpen && p.Date == day {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Start.Minutes() < out[j].Start.Minutes()
	})
	return out
}
