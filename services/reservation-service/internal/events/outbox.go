package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/varaamo/reservable/libs/db"
	otelx "github.com/varaamo/reservable/libs/otel"
	"github.com/varaamo/reservable/services/reservation-service/internal/model"
)

const (
	TopicReservationCreated = "reservation.created.v1"
	TopicUnitChanged        = "reservation-unit.changed.v1"
)

// Event is the envelope written to the outbox table. The Kafka topic equals
// EventType.
type Event struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type ReservationCreated struct {
	ReservationID string    `json:"reservation_id"`
	UnitID        string    `json:"unit_id"`
	Begin         time.Time `json:"begin"`
	End           time.Time `json:"end"`
	State         string    `json:"state"`
	ReserveeName  string    `json:"reservee_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewReservationCreated builds the event for a stored reservation. It is keyed
// by unit so a unit's events stay ordered on one partition.
func NewReservationCreated(r model.Reservation) (Event, error) {
	payload, err := json.Marshal(ReservationCreated{
		ReservationID: r.ID,
		UnitID:        r.UnitID,
		Begin:         r.Begin.UTC(),
		End:           r.End.UTC(),
		State:         r.State,
		ReserveeName:  r.ReserveeName,
		CreatedAt:     r.CreatedAt.UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            uuid.NewString(),
		AggregateType: "reservation_unit",
		AggregateID:   r.UnitID,
		EventType:     TopicReservationCreated,
		Payload:       payload,
	}, nil
}

type Outbox struct {
	pool *db.Pool
}

func NewOutbox(pool *db.Pool) *Outbox {
	return &Outbox{pool: pool}
}

// Insert stores evt inside tx together with the caller's trace context.
func (o *Outbox) Insert(ctx context.Context, tx pgx.Tx, evt Event) error {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	tc := otelx.CaptureTraceContext(ctx)
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, evt.ID, evt.AggregateType, evt.AggregateID, evt.EventType, evt.Payload, tc.Traceparent, tc.Tracestate)
	return err
}

type Record struct {
	ID            int64
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Trace         otelx.TraceContext
	CreatedAt     time.Time
}

func (o *Outbox) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_id::text, aggregate_type, aggregate_id, event_type, payload,
			traceparent, tracestate, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rcd Record
		if err := rows.Scan(
			&rcd.ID,
			&rcd.EventID,
			&rcd.AggregateType,
			&rcd.AggregateID,
			&rcd.EventType,
			&rcd.Payload,
			&rcd.Trace.Traceparent,
			&rcd.Trace.Tracestate,
			&rcd.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rcd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func (o *Outbox) MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET published_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}
