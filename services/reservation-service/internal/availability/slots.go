package availability

import "time"

// Cell is one classified grid cell.
type Cell struct {
	Start time.Time
	State CellState
}

// DayGrid classifies every grid cell of day's open periods. Without a
// configured granularity the grid uses 15 minute cells; an unrecognized one
// yields no cells.
func DayGrid(day Date, s Snapshot) []Cell {
	loc := s.zone()
	var cells []Cell
	for _, p := range periodsOn(day, s.OpeningHours) {
		for _, lt := range EnumerateDayIntervals(p.Start, p.End, displayStep(s.Constraints.StartInterval)) {
			if lt == p.End {
				continue
			}
			t, ok := wallClock(day, lt, loc)
			if !ok {
				continue
			}
			cells = append(cells, Cell{Start: t, State: ClassifyCell(t, s)})
		}
	}
	return cells
}

// ReservableStarts returns the on-grid start times of day for which a
// reservation of the given length is reservable.
func ReservableStarts(day Date, length time.Duration, s Snapshot) []time.Time {
	if length <= 0 {
		return nil
	}
	loc := s.zone()
	var starts []time.Time
	for _, p := range periodsOn(day, s.OpeningHours) {
		for _, lt := range EnumerateDayIntervals(p.Start, p.End, displayStep(s.Constraints.StartInterval)) {
			if lt == p.End {
				continue
			}
			t, ok := wallClock(day, lt, loc)
			if !ok {
				continue
			}
			if IsSlotReservable(Interval{Start: t, End: t.Add(length)}, s) {
				starts = append(starts, t)
			}
		}
	}
	return starts
}

// wallClock returns lt on day in loc. It reports false when lt does not exist
// that day, as inside a DST gap.
func wallClock(day Date, lt LocalTime, loc *time.Location) (time.Time, bool) {
	t := day.At(lt, loc)
	return t, LocalTimeOf(t) == lt
}

func displayStep(g StartInterval) StartInterval {
	if !g.IsSet() {
		return Interval15Mins
	}
	return g
}

func (s Snapshot) zone() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	if !s.Now.IsZero() {
		return s.Now.Location()
	}
	return time.UTC
}
