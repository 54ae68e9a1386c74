package availability

import "time"

// BufferSide tells which end of a reservation a buffer visual belongs to.
type BufferSide string

const (
	BufferBefore BufferSide = "before"
	BufferAfter  BufferSide = "after"
)

// BufferVisual is a derived interval drawn next to a reservation. It is for
// display only and never takes part in collision checks.
type BufferVisual struct {
	Interval      Interval
	ReservationID string
	Side          BufferSide
}

// ExpandWithBuffer widens iv by before and after. Negative buffers count as 0.
func ExpandWithBuffer(iv Interval, before, after time.Duration) Interval {
	if before < 0 {
		before = 0
	}
	if after < 0 {
		after = 0
	}
	return Interval{Start: iv.Start.Add(-before), End: iv.End.Add(after)}
}

// BuffersOverlap reports whether the buffers of either side reach into the
// other side's own interval. Only sides with a non-zero buffer are expanded,
// and touching endpoints do not collide.
func BuffersOverlap(existing Reservation, candidate Interval, before, after time.Duration) bool {
	core := existing.Interval()
	if existing.BufferBefore > 0 || existing.BufferAfter > 0 {
		if IntervalsOverlap(ExpandWithBuffer(core, existing.BufferBefore, existing.BufferAfter), candidate) {
			return true
		}
	}
	if before > 0 || after > 0 {
		if IntervalsOverlap(ExpandWithBuffer(candidate, before, after), core) {
			return true
		}
	}
	return false
}

// DeriveBufferVisuals emits [begin-before, begin) and [end, end+after) for
// each reservation with a non-zero buffer, in input order.
func DeriveBufferVisuals(reservations []Reservation) []BufferVisual {
	out := make([]BufferVisual, 0, len(reservations))
	for _, r := range reservations {
		if r.BufferBefore > 0 {
			out = append(out, BufferVisual{
				Interval:      Interval{Start: r.Begin.Add(-r.BufferBefore), End: r.Begin},
				ReservationID: r.ID,
				Side:          BufferBefore,
			})
		}
		if r.BufferAfter > 0 {
			out = append(out, BufferVisual{
				Interval:      Interval{Start: r.End, End: r.End.Add(r.BufferAfter)},
				ReservationID: r.ID,
				Side:          BufferAfter,
			})
		}
	}
	return out
}
