package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/varaamo/reservable/services/reservation-service/internal/availability"
	"github.com/varaamo/reservable/services/reservation-service/internal/model"
	"github.com/varaamo/reservable/services/reservation-service/internal/snapshot"
	"github.com/varaamo/reservable/services/reservation-service/internal/storage"
)

// maxRange caps the span of any requested window or candidate interval.
const maxRange = 31 * 24 * time.Hour

type SnapshotLoader interface {
	Load(ctx context.Context, unitID string, from, to, now time.Time) (snapshot.Result, error)
}

type ReservationStore interface {
	CreateReservation(ctx context.Context, res *model.Reservation, window time.Duration, validate func([]model.Reservation) error) (string, error)
}

type ReservationHandler struct {
	loader SnapshotLoader
	store  ReservationStore
	logger *slog.Logger
	now    func() time.Time
}

func NewReservationHandler(loader SnapshotLoader, store ReservationStore, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{
		loader: loader,
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (h *ReservationHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/units/{id}/slots", h.Slots)
	mux.HandleFunc("GET /api/v1/units/{id}/grid", h.Grid)
	mux.HandleFunc("GET /api/v1/units/{id}/buffers", h.Buffers)
	mux.HandleFunc("POST /api/v1/units/{id}/check", h.Check)
	mux.HandleFunc("POST /api/v1/units/{id}/reservations", h.Create)
}

type intervalRequest struct {
	Begin        string `json:"begin"`
	End          string `json:"end"`
	ReserveeName string `json:"reservee_name"`
}

type checkResponse struct {
	Reservable bool     `json:"reservable"`
	Reason     string   `json:"reason"`
	Collisions []string `json:"collisions,omitempty"`
}

type createResponse struct {
	ReservationID string `json:"reservation_id"`
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type gridCell struct {
	Time      string `json:"time"`
	StartTime string `json:"start_time"`
	State     string `json:"state"`
}

type gridResponse struct {
	Date    string     `json:"date"`
	Weekday string     `json:"weekday"`
	Cells   []gridCell `json:"cells"`
}

type bufferItem struct {
	ReservationID string `json:"reservation_id"`
	Side          string `json:"side"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

func (h *ReservationHandler) Slots(w http.ResponseWriter, r *http.Request) {
	unitID, ok := unitIDFromPath(w, r)
	if !ok {
		return
	}
	day, ok := dateParam(w, r)
	if !ok {
		return
	}
	length, err := slotLength(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, ok := h.loadDay(w, r, unitID, day)
	if !ok {
		return
	}
	if length == 0 {
		length = res.Snapshot.Constraints.MinDuration
	}
	if length <= 0 {
		http.Error(w, "duration_minutes is required for units without a minimum duration", http.StatusBadRequest)
		return
	}

	starts := availability.ReservableStarts(day, length, res.Snapshot)
	loc := zoneOf(res.Snapshot)
	items := make([]slotItem, 0, len(starts))
	for _, s := range starts {
		items = append(items, slotItem{
			StartTime: s.In(loc).Format(time.RFC3339),
			EndTime:   s.Add(length).In(loc).Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ReservationHandler) Grid(w http.ResponseWriter, r *http.Request) {
	unitID, ok := unitIDFromPath(w, r)
	if !ok {
		return
	}
	day, ok := dateParam(w, r)
	if !ok {
		return
	}

	res, ok := h.loadDay(w, r, unitID, day)
	if !ok {
		return
	}

	loc := zoneOf(res.Snapshot)
	cells := availability.DayGrid(day, res.Snapshot)
	resp := gridResponse{
		Date:    day.String(),
		Weekday: availability.WeekdayLabel(day.StartOfDay(loc), availability.LabelsFor(r.URL.Query().Get("lang"))),
		Cells:   make([]gridCell, 0, len(cells)),
	}
	for _, c := range cells {
		local := c.Start.In(loc)
		resp.Cells = append(resp.Cells, gridCell{
			Time:      availability.LocalTimeOf(local).String(),
			StartTime: local.Format(time.RFC3339),
			State:     string(c.State),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ReservationHandler) Buffers(w http.ResponseWriter, r *http.Request) {
	unitID, ok := unitIDFromPath(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from, err := time.Parse(time.RFC3339, strings.TrimSpace(q.Get("from")))
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := time.Parse(time.RFC3339, strings.TrimSpace(q.Get("to")))
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}
	if !to.After(from) || to.Sub(from) > maxRange {
		http.Error(w, "to must be after from and within 31 days", http.StatusBadRequest)
		return
	}

	res, ok := h.load(w, r, unitID, from, to)
	if !ok {
		return
	}

	window := availability.Interval{Start: from, End: to}
	loc := zoneOf(res.Snapshot)
	items := []bufferItem{}
	for _, v := range availability.DeriveBufferVisuals(res.Snapshot.Reservations) {
		if !availability.IntervalsOverlap(v.Interval, window) {
			continue
		}
		items = append(items, bufferItem{
			ReservationID: v.ReservationID,
			Side:          string(v.Side),
			StartTime:     v.Interval.Start.In(loc).Format(time.RFC3339),
			EndTime:       v.Interval.End.In(loc).Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ReservationHandler) Check(w http.ResponseWriter, r *http.Request) {
	unitID, ok := unitIDFromPath(w, r)
	if !ok {
		return
	}
	candidate, _, ok := decodeInterval(w, r)
	if !ok {
		return
	}

	res, ok := h.load(w, r, unitID, candidate.Start, candidate.End)
	if !ok {
		return
	}

	reason := availability.Check(candidate, res.Snapshot)
	writeJSON(w, http.StatusOK, checkBody(candidate, reason, res.Snapshot))
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	unitID, ok := unitIDFromPath(w, r)
	if !ok {
		return
	}
	candidate, req, ok := decodeInterval(w, r)
	if !ok {
		return
	}
	name := strings.TrimSpace(req.ReserveeName)
	if name == "" {
		http.Error(w, "reservee_name is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	res, ok := h.load(w, r, unitID, candidate.Start, candidate.End)
	if !ok {
		return
	}
	snap := res.Snapshot
	if reason := availability.Check(candidate, snap); reason != availability.ReasonNone {
		h.reject(w, unitID, candidate, reason, snap)
		return
	}

	cons := snap.Constraints
	reservation := &model.Reservation{
		UnitID:           unitID,
		Begin:            candidate.Start.UTC(),
		End:              candidate.End.UTC(),
		BufferTimeBefore: int(cons.BufferBefore / time.Second),
		BufferTimeAfter:  int(cons.BufferAfter / time.Second),
		State:            model.StateCreated,
		ReserveeName:     name,
	}

	// Re-check against the reservations on the locked unit.
	id, err := h.store.CreateReservation(ctx, reservation, snapshot.Margin(cons), func(existing []model.Reservation) error {
		snap.Reservations = model.ExistingReservations(existing)
		snap.Now = h.now()
		if reason := availability.Check(candidate, snap); reason != availability.ReasonNone {
			return &storage.RejectedError{Reason: reason}
		}
		return nil
	})
	if err != nil {
		if reason, rejected := storage.Rejection(err); rejected {
			h.reject(w, unitID, candidate, reason, snap)
			return
		}
		if storage.IsConflict(err) {
			h.reject(w, unitID, candidate, availability.ReasonCollision, snap)
			return
		}
		if storage.IsNotFound(err) {
			http.Error(w, "unit not found", http.StatusNotFound)
			return
		}
		h.logger.Error("create reservation failed", "unit_id", unitID, "err", err)
		http.Error(w, "failed to create reservation", http.StatusInternalServerError)
		return
	}

	h.logger.Info("reservation created", "unit_id", unitID, "reservation_id", id)
	writeJSON(w, http.StatusCreated, createResponse{ReservationID: id})
}

func (h *ReservationHandler) reject(w http.ResponseWriter, unitID string, candidate availability.Interval, reason availability.Reason, snap availability.Snapshot) {
	h.logger.Info("reservation rejected", "unit_id", unitID, "reason", reason.String(),
		"begin", candidate.Start.UTC().Format(time.RFC3339), "end", candidate.End.UTC().Format(time.RFC3339))
	status := http.StatusUnprocessableEntity
	if reason.IsCollision() {
		status = http.StatusConflict
	}
	writeJSON(w, status, checkBody(candidate, reason, snap))
}

func checkBody(candidate availability.Interval, reason availability.Reason, snap availability.Snapshot) checkResponse {
	resp := checkResponse{Reservable: reason == availability.ReasonNone, Reason: reason.String()}
	if reason.IsCollision() {
		cons := snap.Constraints
		for _, c := range availability.Collisions(candidate, cons.BufferBefore, cons.BufferAfter, snap.Reservations) {
			resp.Collisions = append(resp.Collisions, c.ID)
		}
	}
	return resp
}

// loadDay loads a snapshot covering the calendar day in any zone. The loader
// widens the window further for buffers and zone offsets.
func (h *ReservationHandler) loadDay(w http.ResponseWriter, r *http.Request, unitID string, day availability.Date) (snapshot.Result, bool) {
	start := day.StartOfDay(time.UTC)
	return h.load(w, r, unitID, start, start.Add(24*time.Hour))
}

func (h *ReservationHandler) load(w http.ResponseWriter, r *http.Request, unitID string, from, to time.Time) (snapshot.Result, bool) {
	res, err := h.loader.Load(r.Context(), unitID, from, to, h.now())
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "unit not found", http.StatusNotFound)
			return snapshot.Result{}, false
		}
		h.logger.Error("snapshot load failed", "unit_id", unitID, "err", err)
		http.Error(w, "availability data unavailable", http.StatusServiceUnavailable)
		return snapshot.Result{}, false
	}
	return res, true
}

func unitIDFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if _, err := uuid.Parse(id); err != nil {
		http.Error(w, "unit not found", http.StatusNotFound)
		return "", false
	}
	return id, true
}

func dateParam(w http.ResponseWriter, r *http.Request) (availability.Date, bool) {
	day, err := availability.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return availability.Date{}, false
	}
	return day, true
}

// slotLength reads duration_minutes, or duration in ISO-8601 or clock form.
// Zero means the caller did not ask for a length.
func slotLength(r *http.Request) (time.Duration, error) {
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("duration_minutes")); raw != "" {
		mins, err := strconv.Atoi(raw)
		if err != nil || mins <= 0 {
			return 0, errors.New("duration_minutes must be a positive integer")
		}
		return time.Duration(mins) * time.Minute, nil
	}
	if raw := strings.TrimSpace(q.Get("duration")); raw != "" {
		d, err := availability.ParseDuration(raw)
		if err != nil || d <= 0 {
			return 0, errors.New("duration must be a positive duration")
		}
		return d, nil
	}
	return 0, nil
}

func decodeInterval(w http.ResponseWriter, r *http.Request) (availability.Interval, intervalRequest, bool) {
	var req intervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return availability.Interval{}, req, false
	}
	begin, err := time.Parse(time.RFC3339, strings.TrimSpace(req.Begin))
	if err != nil {
		http.Error(w, "invalid begin", http.StatusBadRequest)
		return availability.Interval{}, req, false
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(req.End))
	if err != nil {
		http.Error(w, "invalid end", http.StatusBadRequest)
		return availability.Interval{}, req, false
	}
	if !end.After(begin) {
		http.Error(w, "end must be after begin", http.StatusBadRequest)
		return availability.Interval{}, req, false
	}
	if end.Sub(begin) > maxRange {
		http.Error(w, "interval longer than 31 days", http.StatusBadRequest)
		return availability.Interval{}, req, false
	}
	return availability.Interval{Start: begin, End: end}, req, true
}

func zoneOf(s availability.Snapshot) *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
