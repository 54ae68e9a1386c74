// Package availability decides whether a time interval can be booked on a
// reservation unit and derives the buffer intervals drawn around existing
// reservations.
//
// Everything in this package is pure: inputs are read-only snapshots supplied
// per call and nothing is retained between calls.
package availability

import (
	"fmt"
	"strings"
	"time"
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether both bounds are set and Start is before End.
func (iv Interval) Valid() bool {
	return !iv.Start.IsZero() && !iv.End.IsZero() && iv.Start.Before(iv.End)
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Contains reports whether t is inside [Start, End).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// LocalTime is a wall-clock time of day. 24:00 is accepted as an end bound.
type LocalTime struct {
	Hour   int
	Minute int
}

// ParseLocalTime parses "15:04" or "15:04:05". Seconds must be valid but are
// dropped. "24:00" is the only hour-24 value.
func ParseLocalTime(s string) (LocalTime, error) {
	s = strings.TrimSpace(s)
	if s == "24:00" || s == "24:00:00" {
		return LocalTime{Hour: 24}, nil
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return LocalTime{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return LocalTime{}, fmt.Errorf("invalid local time %q", s)
}

// Minutes returns minutes since midnight.
func (lt LocalTime) Minutes() int {
	return lt.Hour*60 + lt.Minute
}

// AddMinutes returns lt shifted by n minutes. The result is not wrapped at
// midnight; callers bound it against an end time.
func (lt LocalTime) AddMinutes(n int) LocalTime {
	total := lt.Minutes() + n
	return LocalTime{Hour: total / 60, Minute: total % 60}
}

func (lt LocalTime) String() string {
	return fmt.Sprintf("%02d:%02d", lt.Hour, lt.Minute)
}

// LocalTimeOf returns the time of day of t in its own location.
func LocalTimeOf(t time.Time) LocalTime {
	return LocalTime{Hour: t.Hour(), Minute: t.Minute()}
}

// Date is a calendar date without a zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// At returns the instant at wall-clock lt on d in loc.
func (d Date) At(lt LocalTime, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, lt.Hour, lt.Minute, 0, 0, loc)
}

// StartOfDay returns 00:00 of d in loc.
func (d Date) StartOfDay(loc *time.Location) time.Time {
	return d.At(LocalTime{}, loc)
}

// EndOfDay returns the last millisecond of d in loc (23:59:59.999).
func (d Date) EndOfDay(loc *time.Location) time.Time {
	return d.AddDays(1).StartOfDay(loc).Add(-time.Millisecond)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// OpeningState is the state of an opening period. Only StateOpen periods
// can be reserved.
type OpeningState string

const (
	StateOpen          OpeningState = "open"
	StateClosed        OpeningState = "closed"
	StateHeld          OpeningState = "held"
	StateReserved      OpeningState = "reserved"
	StateConfirmed     OpeningState = "confirmed"
	StateWeatherClosed OpeningState = "weather_closed"
	StateNotInUse      OpeningState = "not_in_use"
	StateUnknown       OpeningState = "unknown"
)

// ParseOpeningState maps a source state name onto OpeningState. Unknown names
// map to StateUnknown, which is never reservable.
func ParseOpeningState(s string) OpeningState {
	switch OpeningState(strings.ToLower(strings.TrimSpace(s))) {
	case StateOpen:
		return StateOpen
	case StateClosed:
		return StateClosed
	case StateHeld:
		return StateHeld
	case StateReserved:
		return StateReserved
	case StateConfirmed:
		return StateConfirmed
	case StateWeatherClosed:
		return StateWeatherClosed
	case StateNotInUse:
		return StateNotInUse
	default:
		return StateUnknown
	}
}

// OpeningPeriod is one declared period on one date. A date may have several.
// Periods crossing midnight are supplied as two periods, one per date.
type OpeningPeriod struct {
	Date  Date
	Start LocalTime
	End   LocalTime
	State OpeningState
}

// Bounds returns the period as an absolute interval in loc.
func (p OpeningPeriod) Bounds(loc *time.Location) Interval {
	return Interval{Start: p.Date.At(p.Start, loc), End: p.Date.At(p.End, loc)}
}

// Reservation is an existing booking. Zero buffers mean none.
type Reservation struct {
	ID           string
	Begin        time.Time
	End          time.Time
	BufferBefore time.Duration
	BufferAfter  time.Duration
}

// Interval returns the reservation's own [Begin, End).
func (r Reservation) Interval() Interval {
	return Interval{Start: r.Begin, End: r.End}
}

// BlackoutPeriod is an application round: ad-hoc booking is closed from the
// start of Begin through the last instant of End.
type BlackoutPeriod struct {
	Begin Date
	End   Date
}

// StartInterval is the start-time granularity in minutes. The zero value means
// no granularity is configured.
type StartInterval int

const (
	StartIntervalUnset StartInterval = 0
	Interval15Mins     StartInterval = 15
	Interval30Mins     StartInterval = 30
	Interval60Mins     StartInterval = 60
	Interval90Mins     StartInterval = 90
)

// Valid reports whether g is one of the recognized step sizes.
func (g StartInterval) Valid() bool {
	switch g {
	case Interval15Mins, Interval30Mins, Interval60Mins, Interval90Mins:
		return true
	}
	return false
}

// IsSet reports whether a granularity was configured at all, recognized or not.
func (g StartInterval) IsSet() bool {
	return g != StartIntervalUnset
}

// Duration returns the step as a time.Duration; 0 when unrecognized.
func (g StartInterval) Duration() time.Duration {
	if !g.Valid() {
		return 0
	}
	return time.Duration(g) * time.Minute
}

// ParseStartInterval accepts "INTERVAL_15_MINS" style names and plain minute
// counts. Empty input yields StartIntervalUnset. Anything else is returned as
// a non-zero, unrecognized value so that it rejects every slot.
func ParseStartInterval(s string) StartInterval {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "":
		return StartIntervalUnset
	case "INTERVAL_15_MINS", "INTERVAL_15_MINUTES", "15":
		return Interval15Mins
	case "INTERVAL_30_MINS", "INTERVAL_30_MINUTES", "30":
		return Interval30Mins
	case "INTERVAL_60_MINS", "INTERVAL_60_MINUTES", "60":
		return Interval60Mins
	case "INTERVAL_90_MINS", "INTERVAL_90_MINUTES", "90":
		return Interval90Mins
	}
	return -1
}

// Constraints are the unit-level booking rules. Zero durations and day counts
// mean "not configured".
type Constraints struct {
	MinDuration   time.Duration
	MaxDuration   time.Duration
	StartInterval StartInterval
	BufferBefore  time.Duration
	BufferAfter   time.Duration
	// MinDaysBefore pushes the earliest bookable instant forward by whole days.
	MinDaysBefore int
	// MaxDaysBefore limits how far ahead a booking may start.
	MaxDaysBefore int
}

func (c Constraints) malformed() bool {
	return c.MinDuration < 0 || c.MaxDuration < 0 || c.BufferBefore < 0 || c.BufferAfter < 0 ||
		c.MinDaysBefore < 0 || c.MaxDaysBefore < 0
}

// Snapshot is everything one availability decision needs.
type Snapshot struct {
	Now time.Time
	// Location is the unit's zone. When nil, instants are compared in their
	// own location.
	Location     *time.Location
	OpeningHours []OpeningPeriod
	Reservations []Reservation
	Blackouts    []BlackoutPeriod
	Constraints  Constraints
}

func (s Snapshot) local(t time.Time) time.Time {
	if s.Location == nil {
		return t
	}
	return t.In(s.Location)
}

func (s Snapshot) loc(t time.Time) *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return t.Location()
}
