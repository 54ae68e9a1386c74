package model

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/varaamo/reservable/services/reservation-service/internal/availability"
)

// Reservation states that occupy a unit's calendar.
const (
	StateCreated          = "created"
	StateConfirmed        = "confirmed"
	StateRequiresHandling = "requires_handling"
	StateDenied           = "denied"
	StateCancelled        = "cancelled"
)

// BlockingStates lists the states whose reservations block new ones.
var BlockingStates = []string{StateCreated, StateConfirmed, StateRequiresHandling}

type ReservationUnit struct {
	ID                        string `json:"id"`
	Name                      string `json:"name"`
	Timezone                  string `json:"timezone"`
	MinReservationDuration    *int   `json:"min_reservation_duration,omitempty"`
	MaxReservationDuration    *int   `json:"max_reservation_duration,omitempty"`
	ReservationStartInterval  string `json:"reservation_start_interval,omitempty"`
	BufferTimeBefore          *int   `json:"buffer_time_before,omitempty"`
	BufferTimeAfter           *int   `json:"buffer_time_after,omitempty"`
	ReservationsMinDaysBefore int    `json:"reservations_min_days_before"`
	ReservationsMaxDaysBefore int    `json:"reservations_max_days_before"`
}

// Location resolves the unit's IANA timezone. An empty zone means UTC.
func (u ReservationUnit) Location() (*time.Location, error) {
	if u.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC, fmt.Errorf("unit %s timezone %q: %w", u.ID, u.Timezone, err)
	}
	return loc, nil
}

// Constraints converts the unit's stored rules (seconds, interval names) to
// engine constraints.
func (u ReservationUnit) Constraints() availability.Constraints {
	return availability.Constraints{
		MinDuration:   availability.SecondsToDuration(u.MinReservationDuration),
		MaxDuration:   availability.SecondsToDuration(u.MaxReservationDuration),
		StartInterval: availability.ParseStartInterval(u.ReservationStartInterval),
		BufferBefore:  availability.SecondsToDuration(u.BufferTimeBefore),
		BufferAfter:   availability.SecondsToDuration(u.BufferTimeAfter),
		MinDaysBefore: u.ReservationsMinDaysBefore,
		MaxDaysBefore: u.ReservationsMaxDaysBefore,
	}
}

type OpeningHour struct {
	UnitID    string `json:"unit_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	State     string `json:"state"`
}

func (h OpeningHour) Period() (availability.OpeningPeriod, error) {
	date, err := availability.ParseDate(h.Date)
	if err != nil {
		return availability.OpeningPeriod{}, fmt.Errorf("opening hour date: %w", err)
	}
	start, err := availability.ParseLocalTime(h.StartTime)
	if err != nil {
		return availability.OpeningPeriod{}, fmt.Errorf("opening hour %s start: %w", h.Date, err)
	}
	end, err := availability.ParseLocalTime(h.EndTime)
	if err != nil {
		return availability.OpeningPeriod{}, fmt.Errorf("opening hour %s end: %w", h.Date, err)
	}
	return availability.OpeningPeriod{
		Date:  date,
		Start: start,
		End:   end,
		State: availability.ParseOpeningState(h.State),
	}, nil
}

type ApplicationRound struct {
	ID                     string `json:"id"`
	UnitID                 string `json:"unit_id"`
	ReservationPeriodBegin string `json:"reservation_period_begin"`
	ReservationPeriodEnd   string `json:"reservation_period_end"`
}

func (a ApplicationRound) Blackout() (availability.BlackoutPeriod, error) {
	begin, err := availability.ParseDate(a.ReservationPeriodBegin)
	if err != nil {
		return availability.BlackoutPeriod{}, fmt.Errorf("application round %s begin: %w", a.ID, err)
	}
	end, err := availability.ParseDate(a.ReservationPeriodEnd)
	if err != nil {
		return availability.BlackoutPeriod{}, fmt.Errorf("application round %s end: %w", a.ID, err)
	}
	return availability.BlackoutPeriod{Begin: begin, End: end}, nil
}

type Reservation struct {
	ID               string    `json:"id"`
	UnitID           string    `json:"unit_id"`
	Begin            time.Time `json:"begin"`
	End              time.Time `json:"end"`
	BufferTimeBefore int       `json:"buffer_time_before"`
	BufferTimeAfter  int       `json:"buffer_time_after"`
	State            string    `json:"state"`
	ReserveeName     string    `json:"reservee_name"`
	CreatedAt        time.Time `json:"created_at"`
}

func (r Reservation) Blocking() bool {
	for _, s := range BlockingStates {
		if r.State == s {
			return true
		}
	}
	return false
}

func (r Reservation) Existing() availability.Reservation {
	return availability.Reservation{
		ID:           r.ID,
		Begin:        r.Begin,
		End:          r.End,
		BufferBefore: time.Duration(r.BufferTimeBefore) * time.Second,
		BufferAfter:  time.Duration(r.BufferTimeAfter) * time.Second,
	}
}

// UnitCalendar is the cacheable part of a unit's snapshot. Reservations are
// not part of it; they are always read live.
type UnitCalendar struct {
	Unit              ReservationUnit    `json:"unit"`
	OpeningHours      []OpeningHour      `json:"opening_hours"`
	ApplicationRounds []ApplicationRound `json:"application_rounds"`
}

// OpeningPeriods converts every row it can. Rows that fail to parse are
// skipped and reported together in the returned error.
func OpeningPeriods(hours []OpeningHour) ([]availability.OpeningPeriod, error) {
	out := make([]availability.OpeningPeriod, 0, len(hours))
	var errs []error
	for _, h := range hours {
		p, err := h.Period()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, p)
	}
	return out, errors.Join(errs...)
}

func Blackouts(rounds []ApplicationRound) ([]availability.BlackoutPeriod, error) {
	out := make([]availability.BlackoutPeriod, 0, len(rounds))
	var errs []error
	for _, a := range rounds {
		b, err := a.Blackout()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, b)
	}
	return out, errors.Join(errs...)
}

// ExistingReservations keeps only blocking reservations.
func ExistingReservations(rs []Reservation) []availability.Reservation {
	out := make([]availability.Reservation, 0, len(rs))
	for _, r := range rs {
		if !r.Blocking() {
			continue
		}
		out = append(out, r.Existing())
	}
	return out
}
