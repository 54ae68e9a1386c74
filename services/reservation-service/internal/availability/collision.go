package availability

import "time"

// IntervalsOverlap is half-open overlap: [a) and [b) overlap iff
// a.Start < b.End && b.Start < a.End. Back-to-back intervals do not overlap.
func IntervalsOverlap(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// CollidesWithReservations reports whether candidate overlaps any
// reservation's own interval.
func CollidesWithReservations(candidate Interval, reservations []Reservation) bool {
	for _, r := range reservations {
		if IntervalsOverlap(candidate, r.Interval()) {
			return true
		}
	}
	return false
}

// CollidesWithBuffers reports whether candidate, carrying its own before and
// after buffers, collides with any reservation through either side's buffers.
func CollidesWithBuffers(candidate Interval, before, after time.Duration, reservations []Reservation) bool {
	for _, r := range reservations {
		if BuffersOverlap(r, candidate, before, after) {
			return true
		}
	}
	return false
}

// Collisions returns the reservations that block candidate, directly or
// through buffers, in input order.
func Collisions(candidate Interval, before, after time.Duration, reservations []Reservation) []Reservation {
	var out []Reservation
	for _, r := range reservations {
		if IntervalsOverlap(candidate, r.Interval()) || BuffersOverlap(r, candidate, before, after) {
			out = append(out, r)
		}
	}
	return out
}
