package availability

import "time"

// IsBlackedOut reports whether t falls inside any application round, from the
// start of its first day through 23:59:59.999 of its last day in loc.
// A nil loc uses t's own location.
func IsBlackedOut(t time.Time, periods []BlackoutPeriod, loc *time.Location) bool {
	if len(periods) == 0 || t.IsZero() {
		return false
	}
	if loc == nil {
		loc = t.Location()
	}
	for _, p := range periods {
		if p.Begin.IsZero() || p.End.IsZero() {
			continue
		}
		if !t.Before(p.Begin.StartOfDay(loc)) && !t.After(p.End.EndOfDay(loc)) {
			return true
		}
	}
	return false
}
