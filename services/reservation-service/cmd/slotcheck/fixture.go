package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/varaamo/reservable/services/reservation-service/internal/availability"
	"github.com/varaamo/reservable/services/reservation-service/internal/model"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML form of one unit's availability inputs. Durations accept
// ISO-8601 ("PT30M"), clock ("00:30") or seconds.
type Fixture struct {
	Now          string               `yaml:"now"`
	Timezone     string               `yaml:"timezone"`
	Constraints  FixtureConstraints   `yaml:"constraints"`
	OpeningHours []FixtureOpeningHour `yaml:"opening_hours"`
	Blackouts    []FixtureBlackout    `yaml:"blackouts"`
	Reservations []FixtureReservation `yaml:"reservations"`
}

type FixtureConstraints struct {
	MinDuration   string `yaml:"min_duration"`
	MaxDuration   string `yaml:"max_duration"`
	StartInterval string `yaml:"start_interval"`
	BufferBefore  string `yaml:"buffer_before"`
	BufferAfter   string `yaml:"buffer_after"`
	MinDaysBefore int    `yaml:"min_days_before"`
	MaxDaysBefore int    `yaml:"max_days_before"`
}

type FixtureOpeningHour struct {
	Date  string `yaml:"date"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	State string `yaml:"state"`
}

type FixtureBlackout struct {
	Begin string `yaml:"begin"`
	End   string `yaml:"end"`
}

type FixtureReservation struct {
	ID           string `yaml:"id"`
	Begin        string `yaml:"begin"`
	End          string `yaml:"end"`
	BufferBefore string `yaml:"buffer_before"`
	BufferAfter  string `yaml:"buffer_after"`
	State        string `yaml:"state"`
}

func loadFixture(path string) (Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, err
	}
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// Snapshot converts the fixture. now is used when the fixture has no "now".
// Every malformed entry is reported; nothing is silently skipped.
func (f Fixture) Snapshot(now time.Time) (availability.Snapshot, error) {
	var errs []error
	addErr := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if f.Now != "" {
		t, err := time.Parse(time.RFC3339, f.Now)
		addErr(err)
		now = t
	}

	unit := model.ReservationUnit{Timezone: f.Timezone}
	loc, err := unit.Location()
	addErr(err)

	cons, err := f.Constraints.constraints()
	addErr(err)

	hours := make([]model.OpeningHour, 0, len(f.OpeningHours))
	for _, h := range f.OpeningHours {
		hours = append(hours, model.OpeningHour{Date: h.Date, StartTime: h.Start, EndTime: h.End, State: h.State})
	}
	periods, err := model.OpeningPeriods(hours)
	addErr(err)

	rounds := make([]model.ApplicationRound, 0, len(f.Blackouts))
	for _, b := range f.Blackouts {
		rounds = append(rounds, model.ApplicationRound{ReservationPeriodBegin: b.Begin, ReservationPeriodEnd: b.End})
	}
	blackouts, err := model.Blackouts(rounds)
	addErr(err)

	reservations := make([]model.Reservation, 0, len(f.Reservations))
	for _, r := range f.Reservations {
		res, err := r.reservation()
		if err != nil {
			addErr(err)
			continue
		}
		reservations = append(reservations, res)
	}

	if len(errs) > 0 {
		return availability.Snapshot{}, errors.Join(errs...)
	}
	return availability.Snapshot{
		Now:          now,
		Location:     loc,
		OpeningHours: periods,
		Reservations: model.ExistingReservations(reservations),
		Blackouts:    blackouts,
		Constraints:  cons,
	}, nil
}

func (c FixtureConstraints) constraints() (availability.Constraints, error) {
	var errs []error
	parse := func(name, raw string) time.Duration {
		d, err := availability.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("constraints.%s: %w", name, err))
		}
		return d
	}
	out := availability.Constraints{
		MinDuration:   parse("min_duration", c.MinDuration),
		MaxDuration:   parse("max_duration", c.MaxDuration),
		StartInterval: availability.ParseStartInterval(c.StartInterval),
		BufferBefore:  parse("buffer_before", c.BufferBefore),
		BufferAfter:   parse("buffer_after", c.BufferAfter),
		MinDaysBefore: c.MinDaysBefore,
		MaxDaysBefore: c.MaxDaysBefore,
	}
	return out, errors.Join(errs...)
}

func (r FixtureReservation) reservation() (model.Reservation, error) {
	begin, err := time.Parse(time.RFC3339, r.Begin)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reservation %s begin: %w", r.ID, err)
	}
	end, err := time.Parse(time.RFC3339, r.End)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reservation %s end: %w", r.ID, err)
	}
	before, err := availability.ParseDuration(r.BufferBefore)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reservation %s buffer_before: %w", r.ID, err)
	}
	after, err := availability.ParseDuration(r.BufferAfter)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reservation %s buffer_after: %w", r.ID, err)
	}
	state := r.State
	if state == "" {
		state = model.StateConfirmed
	}
	return model.Reservation{
		ID:               r.ID,
		Begin:            begin,
		End:              end,
		BufferTimeBefore: int(before / time.Second),
		BufferTimeAfter:  int(after / time.Second),
		State:            state,
	}, nil
}
