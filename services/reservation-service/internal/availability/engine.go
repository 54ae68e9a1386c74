package availability

import "time"

// Reason names the first rule a candidate interval failed.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonMalformed       Reason = "malformed"
	ReasonInPast          Reason = "in_past"
	ReasonTooFarAhead     Reason = "too_far_ahead"
	ReasonClosed          Reason = "closed"
	ReasonOffGrid         Reason = "off_grid"
	ReasonTooShort        Reason = "too_short"
	ReasonTooLong         Reason = "too_long"
	ReasonBlackout        Reason = "blackout"
	ReasonCollision       Reason = "collision"
	ReasonBufferCollision Reason = "buffer_collision"
)

func (r Reason) String() string {
	if r == ReasonNone {
		return "ok"
	}
	return string(r)
}

// IsCollision reports whether the rejection came from another reservation.
func (r Reason) IsCollision() bool {
	return r == ReasonCollision || r == ReasonBufferCollision
}

// Check runs every reservability rule against candidate in a fixed order and
// returns the first failure, or ReasonNone. Malformed input is a rejection,
// never a panic.
func Check(candidate Interval, s Snapshot) Reason {
	if !candidate.Valid() || s.Constraints.malformed() {
		return ReasonMalformed
	}
	c := Interval{Start: s.local(candidate.Start), End: s.local(candidate.End)}
	loc := s.loc(candidate.Start)
	cons := s.Constraints

	if !c.Start.After(s.Now.AddDate(0, 0, cons.MinDaysBefore)) {
		return ReasonInPast
	}
	if cons.MaxDaysBefore > 0 && c.Start.After(s.Now.AddDate(0, 0, cons.MaxDaysBefore)) {
		return ReasonTooFarAhead
	}
	if !IsSlotRangeOpen(c, s.OpeningHours, loc) {
		return ReasonClosed
	}
	if cons.StartInterval.IsSet() && !StartsOnGrid(c.Start, s.OpeningHours, cons.StartInterval) {
		return ReasonOffGrid
	}
	if !ReservationLongEnough(c.Start, c.End, cons.MinDuration) {
		return ReasonTooShort
	}
	if !ReservationShortEnough(c.Start, c.End, cons.MaxDuration) {
		return ReasonTooLong
	}
	// Only the start instant is tested against application rounds.
	if IsBlackedOut(c.Start, s.Blackouts, loc) {
		return ReasonBlackout
	}
	if CollidesWithReservations(c, s.Reservations) {
		return ReasonCollision
	}
	if CollidesWithBuffers(c, cons.BufferBefore, cons.BufferAfter, s.Reservations) {
		return ReasonBufferCollision
	}
	return ReasonNone
}

// IsSlotReservable reports whether candidate passes every rule.
func IsSlotReservable(candidate Interval, s Snapshot) bool {
	return Check(candidate, s) == ReasonNone
}

// CellState is the classification of one calendar grid cell.
type CellState string

const (
	CellReservable CellState = "reservable"
	CellClosed     CellState = "closed"
	CellBuffered   CellState = "buffered"
	CellPast       CellState = "past"
)

// ClassifyCell classifies the cell starting at t: past, then buffered, then
// closed (not open or blacked out), else reservable.
func ClassifyCell(t time.Time, s Snapshot) CellState {
	if t.IsZero() {
		return CellClosed
	}
	lt := s.local(t)
	if lt.Before(s.Now) {
		return CellPast
	}
	for _, v := range DeriveBufferVisuals(s.Reservations) {
		if v.Interval.Contains(lt) {
			return CellBuffered
		}
	}
	if !IsWithinOpenPeriod(lt, s.OpeningHours) || IsBlackedOut(lt, s.Blackouts, s.loc(t)) {
		return CellClosed
	}
	return CellReservable
}
