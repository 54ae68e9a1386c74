package availability

import "time"

// StartsOnGrid reports whether t lies on the granularity grid anchored at the
// opening time of the open period covering t's date. The period containing t
// wins; otherwise the earliest open period of the date is the anchor.
//
// No open period on the date, or an unrecognized granularity, yields false.
func StartsOnGrid(t time.Time, periods []OpeningPeriod, granularity StartInterval) bool {
	if !granularity.Valid() || t.IsZero() {
		return false
	}
	day := DateOf(t)
	candidates := periodsOn(day, periods)
	if len(candidates) == 0 {
		return false
	}
	anchor := candidates[0]
	tod := LocalTimeOf(t).Minutes()
	for _, p := range candidates {
		if tod >= p.Start.Minutes() && tod < p.End.Minutes() {
			anchor = p
			break
		}
	}
	if t.Second() != 0 || t.Nanosecond() != 0 {
		return false
	}
	// Wall-clock minutes, so a DST shift on the day does not move the grid.
	elapsed := tod - anchor.Start.Minutes()
	if elapsed < 0 {
		return false
	}
	return elapsed%int(granularity) == 0
}

// EnumerateDayIntervals lists start times from start through end inclusive in
// steps of granularity. end is included only when it falls on the grid.
// An empty range or an unrecognized granularity yields an empty slice.
func EnumerateDayIntervals(start, end LocalTime, granularity StartInterval) []LocalTime {
	if !granularity.Valid() || end.Minutes() <= start.Minutes() {
		return []LocalTime{}
	}
	step := int(granularity)
	out := make([]LocalTime, 0, (end.Minutes()-start.Minutes())/step+1)
	for m := start.Minutes(); m <= end.Minutes(); m += step {
		out = append(out, LocalTime{}.AddMinutes(m))
	}
	return out
}
