package snapshot

import (
	"context"
	"log/slog"
	"time"

	"github.com/varaamo/reservable/services/reservation-service/internal/availability"
	"github.com/varaamo/reservable/services/reservation-service/internal/model"
)

// ReservationMargin is the minimum widening of the reservation query on both
// sides of the window, so buffers of neighbouring reservations are visible.
const ReservationMargin = 24 * time.Hour

// Margin is how far beyond a window reservations can still affect it: the
// larger of ReservationMargin and the unit's buffers. Reservations carry the
// unit's buffers, so a neighbour further away than that cannot collide.
func Margin(c availability.Constraints) time.Duration {
	return max(ReservationMargin, c.BufferBefore, c.BufferAfter)
}

type Store interface {
	GetUnit(ctx context.Context, unitID string) (model.ReservationUnit, error)
	ListOpeningHours(ctx context.Context, unitID, from, to string) ([]model.OpeningHour, error)
	ListApplicationRounds(ctx context.Context, unitID, from, to string) ([]model.ApplicationRound, error)
	ListReservations(ctx context.Context, unitID string, start, end time.Time) ([]model.Reservation, error)
}

// Cache holds unit calendars under a per-unit version. A calendar is written
// under the version read before it was loaded.
type Cache interface {
	Version(ctx context.Context, unitID string) (int64, error)
	Get(ctx context.Context, unitID string, version int64, window string) (model.UnitCalendar, bool, error)
	Set(ctx context.Context, unitID string, version int64, window string, cal model.UnitCalendar) error
}

// Result is a snapshot plus the unit it was built for.
type Result struct {
	Snapshot availability.Snapshot
	Unit     model.ReservationUnit
}

type Loader struct {
	store  Store
	cache  Cache
	logger *slog.Logger
}

// NewLoader builds a loader. cache may be nil.
func NewLoader(store Store, cache Cache, logger *slog.Logger) *Loader {
	return &Loader{store: store, cache: cache, logger: logger}
}

// Load assembles the snapshot needed to evaluate [from, to) on the unit.
// Calendar data may come from the cache; reservations are always read from
// the store.
func (l *Loader) Load(ctx context.Context, unitID string, from, to, now time.Time) (Result, error) {
	cal, err := l.calendar(ctx, unitID, from, to)
	if err != nil {
		return Result{}, err
	}

	constraints := cal.Unit.Constraints()
	margin := Margin(constraints)
	reservations, err := l.store.ListReservations(ctx, unitID, from.Add(-margin), to.Add(margin))
	if err != nil {
		return Result{}, err
	}

	loc, err := cal.Unit.Location()
	if err != nil {
		l.logger.Warn("unit timezone invalid; using UTC", "unit_id", unitID, "err", err)
	}
	periods, err := model.OpeningPeriods(cal.OpeningHours)
	if err != nil {
		l.logger.Warn("skipping malformed opening hours", "unit_id", unitID, "err", err)
	}
	blackouts, err := model.Blackouts(cal.ApplicationRounds)
	if err != nil {
		l.logger.Warn("skipping malformed application rounds", "unit_id", unitID, "err", err)
	}

	return Result{
		Unit: cal.Unit,
		Snapshot: availability.Snapshot{
			Now:          now,
			Location:     loc,
			OpeningHours: periods,
			Reservations: model.ExistingReservations(reservations),
			Blackouts:    blackouts,
			Constraints:  constraints,
		},
	}, nil
}

// calendarRange returns the dates to load for [from, to). One day of slack on
// each side covers any zone offset, since the unit's zone is not known yet.
func calendarRange(from, to time.Time) (string, string) {
	first := availability.DateOf(from.UTC()).AddDays(-1)
	last := availability.DateOf(to.UTC()).AddDays(1)
	return first.String(), last.String()
}

func (l *Loader) calendar(ctx context.Context, unitID string, from, to time.Time) (model.UnitCalendar, error) {
	first, last := calendarRange(from, to)
	window := first + ":" + last

	cached := l.cache != nil
	var version int64
	if cached {
		v, err := l.cache.Version(ctx, unitID)
		if err != nil {
			l.logger.Warn("snapshot cache version read failed", "unit_id", unitID, "err", err)
			cached = false
		}
		version = v
	}
	if cached {
		cal, ok, err := l.cache.Get(ctx, unitID, version, window)
		switch {
		case err != nil:
			l.logger.Warn("snapshot cache read failed", "unit_id", unitID, "err", err)
		case ok:
			return cal, nil
		}
	}

	unit, err := l.store.GetUnit(ctx, unitID)
	if err != nil {
		return model.UnitCalendar{}, err
	}
	hours, err := l.store.ListOpeningHours(ctx, unitID, first, last)
	if err != nil {
		return model.UnitCalendar{}, err
	}
	rounds, err := l.store.ListApplicationRounds(ctx, unitID, first, last)
	if err != nil {
		return model.UnitCalendar{}, err
	}
	cal := model.UnitCalendar{Unit: unit, OpeningHours: hours, ApplicationRounds: rounds}

	if cached {
		if err := l.cache.Set(ctx, unitID, version, window, cal); err != nil {
			l.logger.Warn("snapshot cache write failed", "unit_id", unitID, "err", err)
		}
	}
	return cal, nil
}
