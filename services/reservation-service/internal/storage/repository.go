package storage

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/varaamo/reservable/libs/db"
	"github.com/varaamo/reservable/services/reservation-service/internal/events"
	"github.com/varaamo/reservable/services/reservation-service/internal/model"
)

//go:embed schema.sql
var schema string

type ReservationRepository struct {
	pool   *db.Pool
	outbox *events.Outbox
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func NewReservationRepository(pool *db.Pool, outbox *events.Outbox) *ReservationRepository {
	return &ReservationRepository{pool: pool, outbox: outbox}
}

// Migrate applies the schema. Every statement is idempotent.
func (r *ReservationRepository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

func (r *ReservationRepository) GetUnit(ctx context.Context, unitID string) (model.ReservationUnit, error) {
	var u model.ReservationUnit
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, timezone,
			min_reservation_duration, max_reservation_duration,
			reservation_start_interval,
			buffer_time_before, buffer_time_after,
			reservations_min_days_before, reservations_max_days_before
		FROM reservation_units
		WHERE id = $1
	`, unitID).Scan(
		&u.ID,
		&u.Name,
		&u.Timezone,
		&u.MinReservationDuration,
		&u.MaxReservationDuration,
		&u.ReservationStartInterval,
		&u.BufferTimeBefore,
		&u.BufferTimeAfter,
		&u.ReservationsMinDaysBefore,
		&u.ReservationsMaxDaysBefore,
	)
	if err != nil {
		return model.ReservationUnit{}, err
	}
	return u, nil
}

// ListOpeningHours returns the unit's opening hours for dates in [from, to].
func (r *ReservationRepository) ListOpeningHours(ctx context.Context, unitID, from, to string) ([]model.OpeningHour, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT unit_id::text, date::text, start_time, end_time, state
		FROM opening_hours
		WHERE unit_id = $1
			AND date >= $2::date
			AND date <= $3::date
		ORDER BY date ASC, start_time ASC
	`, unitID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hours []model.OpeningHour
	for rows.Next() {
		var h model.OpeningHour
		if err := rows.Scan(&h.UnitID, &h.Date, &h.StartTime, &h.EndTime, &h.State); err != nil {
			return nil, err
		}
		hours = append(hours, h)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return hours, nil
}

// ListApplicationRounds returns rounds whose reservation period touches
// [from, to].
func (r *ReservationRepository) ListApplicationRounds(ctx context.Context, unitID, from, to string) ([]model.ApplicationRound, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, unit_id::text, reservation_period_begin::text, reservation_period_end::text
		FROM application_rounds
		WHERE unit_id = $1
			AND reservation_period_begin <= $3::date
			AND reservation_period_end >= $2::date
		ORDER BY reservation_period_begin ASC
	`, unitID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []model.ApplicationRound
	for rows.Next() {
		var a model.ApplicationRound
		if err := rows.Scan(&a.ID, &a.UnitID, &a.ReservationPeriodBegin, &a.ReservationPeriodEnd); err != nil {
			return nil, err
		}
		rounds = append(rounds, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rounds, nil
}

// ListReservations returns blocking reservations overlapping [start, end).
func (r *ReservationRepository) ListReservations(ctx context.Context, unitID string, start, end time.Time) ([]model.Reservation, error) {
	return listReservations(ctx, r.pool, unitID, start, end)
}

// CreateReservation inserts res after validate approves the reservations
// found within window of it. The unit row is locked for the duration of the
// transaction so concurrent creates for the same unit are serialized. The
// reservation.created event is written to the outbox in the same transaction.
func (r *ReservationRepository) CreateReservation(ctx context.Context, res *model.Reservation, window time.Duration, validate func([]model.Reservation) error) (string, error) {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.State == "" {
		res.State = model.StateCreated
	}

	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, `
			SELECT id::text FROM reservation_units WHERE id = $1 FOR UPDATE
		`, res.UnitID).Scan(&locked); err != nil {
			return err
		}

		existing, err := listReservations(ctx, tx, res.UnitID, res.Begin.Add(-window), res.End.Add(window))
		if err != nil {
			return err
		}
		if err := validate(existing); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO reservations
				(id, unit_id, begin_time, end_time, buffer_time_before, buffer_time_after, state, reservee_name)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at
		`, res.ID, res.UnitID, res.Begin, res.End, res.BufferTimeBefore, res.BufferTimeAfter,
			res.State, res.ReserveeName).Scan(&res.CreatedAt); err != nil {
			return err
		}

		evt, err := events.NewReservationCreated(*res)
		if err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, evt)
	})
	if err != nil {
		return "", err
	}
	return res.ID, nil
}

func listReservations(ctx context.Context, q querier, unitID string, start, end time.Time) ([]model.Reservation, error) {
	rows, err := q.Query(ctx, `
		SELECT id::text, unit_id::text, begin_time, end_time,
			buffer_time_before, buffer_time_after, state, reservee_name, created_at
		FROM reservations
		WHERE unit_id = $1
			AND state = ANY($4)
			AND begin_time < $3
			AND end_time > $2
		ORDER BY begin_time ASC
	`, unitID, start, end, model.BlockingStates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(
			&res.ID,
			&res.UnitID,
			&res.Begin,
			&res.End,
			&res.BufferTimeBefore,
			&res.BufferTimeAfter,
			&res.State,
			&res.ReserveeName,
			&res.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// IsConflict reports a violation of the reservations exclusion constraint.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
