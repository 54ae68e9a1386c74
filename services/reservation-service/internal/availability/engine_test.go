package availability

import (
	"testing"
	"time"
)

var testDay = Date{Year: 2026, Month: time.March, Day: 2}

func at(d Date, h, m int) time.Time {
	return d.At(LocalTime{Hour: h, Minute: m}, time.UTC)
}

func openDay(d Date, startH, endH int) OpeningPeriod {
	return OpeningPeriod{Date: d, Start: LocalTime{Hour: startH}, End: LocalTime{Hour: endH}, State: StateOpen}
}

func baseSnapshot() Snapshot {
	return Snapshot{
		Now: at(testDay, 8, 0),
		OpeningHours: []OpeningPeriod{
			openDay(testDay.AddDays(7), 9, 21),
			openDay(testDay.AddDays(8), 9, 21),
			openDay(testDay.AddDays(9), 9, 21),
		},
	}
}

func TestIsSlotReservable_PositiveCase(t *testing.T) {
	s := baseSnapshot()
	d := testDay.AddDays(7)
	candidate := Interval{Start: at(d, 11, 0), End: at(d, 12, 0)}
	if got := Check(candidate, s); got != ReasonNone {
		t.Fatalf("expected reservable, got %s", got)
	}
	if !IsSlotReservable(candidate, s) {
		t.Fatalf("expected IsSlotReservable true")
	}
}

func TestIsSlotReservable_BlackoutDay(t *testing.T) {
	s := baseSnapshot()
	blocked := testDay.AddDays(8)
	s.Blackouts = []BlackoutPeriod{{Begin: blocked, End: blocked}}

	onBlackout := Interval{Start: at(blocked, 9, 0), End: at(blocked, 10, 0)}
	if got := Check(onBlackout, s); got != ReasonBlackout {
		t.Fatalf("expected blackout, got %s", got)
	}

	dayBefore := testDay.AddDays(7)
	before := Interval{Start: at(dayBefore, 9, 0), End: at(dayBefore, 10, 0)}
	if !IsSlotReservable(before, s) {
		t.Fatalf("expected day before blackout to be reservable, got %s", Check(before, s))
	}

	dayAfter := testDay.AddDays(9)
	after := Interval{Start: at(dayAfter, 9, 0), End: at(dayAfter, 10, 0)}
	if !IsSlotReservable(after, s) {
		t.Fatalf("expected day after blackout to be reservable, got %s", Check(after, s))
	}
}

func TestIsSlotReservable_BlackoutOnlyChecksStart(t *testing.T) {
	s := baseSnapshot()
	d := testDay.AddDays(7)
	s.OpeningHours = []OpeningPeriod{
		{Date: d, Start: LocalTime{Hour: 20}, End: LocalTime{Hour: 24}, State: StateOpen},
		{Date: d.AddDays(1), Start: LocalTime{}, End: LocalTime{Hour: 2}, State: StateOpen},
	}
	s.Blackouts = []BlackoutPeriod{{Begin: d.AddDays(1), End: d.AddDays(1)}}

	candidate := Interval{Start: at(d, 23, 0), End: at(d.AddDays(1), 1, 0)}
	if got := Check(candidate, s); got != ReasonNone {
		t.Fatalf("expected start-only blackout check to accept, got %s", got)
	}
}

func TestIsSlotReservable_BufferCollision(t *testing.T) {
	d := testDay.AddDays(7)
	s := baseSnapshot()
	s.Reservations = []Reservation{{
		ID:           "r1",
		Begin:        at(d, 12, 0),
		End:          at(d, 13, 0),
		BufferBefore: time.Hour,
		BufferAfter:  time.Hour,
	}}

	s.Constraints.BufferBefore = 90 * time.Minute
	candidate := Interval{Start: at(d, 14, 0), End: at(d, 15, 0)}
	if got := Check(candidate, s); got != ReasonBufferCollision {
		t.Fatalf("expected buffer collision, got %s", got)
	}

	s.Constraints.BufferBefore = 0
	s.Constraints.BufferAfter = 90 * time.Minute
	short := Interval{Start: at(d, 14, 0), End: at(d, 14, 15)}
	if got := Check(short, s); got != ReasonNone {
		t.Fatalf("expected reservable, got %s", got)
	}
}

func TestCheck_RuleOrder(t *testing.T) {
	d := testDay.AddDays(7)
	tests := []struct {
		name      string
		mutate    func(*Snapshot)
		candidate Interval
		want      Reason
	}{
		{
			name:      "zero interval",
			candidate: Interval{},
			want:      ReasonMalformed,
		},
		{
			name:      "end before start",
			candidate: Interval{Start: at(d, 12, 0), End: at(d, 11, 0)},
			want:      ReasonMalformed,
		},
		{
			name:      "negative constraint",
			mutate:    func(s *Snapshot) { s.Constraints.MinDuration = -time.Minute },
			candidate: Interval{Start: at(d, 11, 0), End: at(d, 12, 0)},
			want:      ReasonMalformed,
		},
		{
			name:      "in the past",
			mutate:    func(s *Snapshot) { s.Now = at(d, 11, 30) },
			candidate: Interval{Start: at(d, 11, 0), End: at(d, 12, 0)},
			want:      ReasonInPast,
		},
		{
			name:      "start equal to now is past",
			mutate:    func(s *Snapshot) { s.Now = at(d, 11, 0) },
			candidate: Interval{Start: at(d, 11, 0), End: at(d, 12, 0)},
			want:      ReasonInPast,
		},
		{
			name:      "inside min days before",
			mutate:    func(s *Snapshot) { s.Constraints.MinDaysBefore = 8 },
			candidate: Interval{Start: at(d, 11, 0), End: at(d, 12, 0)},
			want:      ReasonInPast,
		},
		{
			name:      "beyond max days before",
			mutate:    func(s *Snapshot) { s.Constraints.MaxDaysBefore = 3 },
			candidate: Interval{Start: at(d, 11, 0), End: at(d, 12, 0)},
			want:      ReasonTooFarAhead,
		},
		{
			name:      "outside opening hours",
			candidate: Interval{Start: at(d, 20, 30), End: at(d, 21, 30)},
			want:      ReasonClosed,
		},
		{
			name:      "no opening hours at all",
			mutate:    func(s *Snapshot) { s.OpeningHours = nil },
			candidate: Interval{Start: at(d, 11, 0), End: at(d, 12, 0)},
			want:      ReasonClosed,
		},
		{
			name:      "off grid",
			mutate:    func(s *Snapshot) { s.Constraints.StartInterval = Interval30Mins },
			candidate: Interval{Start: at(d, 11, 15), End: at(d, 12, 15)},
			want:      ReasonOffGrid,
		},
		{
			name:      "unrecognized granularity",
			mutate:    func(s *Snapshot) { s.Constraints.StartInterval = StartInterval(45) },
			candidate: Interval{Start: at(d, 11, 0), End: at(d, 12, 0)},
			want:      ReasonOffGrid,
		},
		{
			name:      "too short",
			mutate:    func(s *Snapshot) { s.Constraints.MinDuration = 2 * time.Hour },
			candidate: Interval{Start: at(d, 11, 0), End: at(d, 12, 0)},
			want:      ReasonTooShort,
		},
		{
			name:      "too long",
			mutate:    func(s *Snapshot) { s.Constraints.MaxDuration = 30 * time.Minute },
			candidate: Interval{Start: at(d, 11, 0), End: at(d, 12, 0)},
			want:      ReasonTooLong,
		},
		{
			name: "direct collision",
			mutate: func(s *Snapshot) {
				s.Reservations = []Reservation{{ID: "r", Begin: at(d, 11, 30), End: at(d, 12, 30)}}
			},
			candidate: Interval{Start: at(d, 11, 0), End: at(d, 12, 0)},
			want:      ReasonCollision,
		},
		{
			name: "back to back is fine",
			mutate: func(s *Snapshot) {
				s.Reservations = []Reservation{{ID: "r", Begin: at(d, 12, 0), End: at(d, 13, 0)}}
			},
			candidate: Interval{Start: at(d, 11, 0), End: at(d, 12, 0)},
			want:      ReasonNone,
		},
		{
			name: "location converts instants",
			mutate: func(s *Snapshot) {
				s.Location = time.FixedZone("EET", 2*60*60)
			},
			candidate: Interval{Start: at(d, 9, 0), End: at(d, 10, 0)},
			want:      ReasonNone,
		},
		{
			name: "location shifts candidate out of hours",
			mutate: func(s *Snapshot) {
				s.Location = time.FixedZone("EET", 2*60*60)
			},
			candidate: Interval{Start: at(d, 18, 30), End: at(d, 19, 30)},
			want:      ReasonClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := baseSnapshot()
			if tt.mutate != nil {
				tt.mutate(&s)
			}
			if got := Check(tt.candidate, s); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestClassifyCell(t *testing.T) {
	d := testDay.AddDays(7)
	s := baseSnapshot()
	s.Reservations = []Reservation{{ID: "r", Begin: at(d, 12, 0), End: at(d, 13, 0), BufferAfter: 30 * time.Minute}}
	s.Blackouts = []BlackoutPeriod{{Begin: testDay.AddDays(9), End: testDay.AddDays(9)}}

	tests := []struct {
		name string
		t    time.Time
		want CellState
	}{
		{name: "past", t: at(testDay, 7, 0), want: CellPast},
		{name: "buffer after reservation", t: at(d, 13, 0), want: CellBuffered},
		{name: "end of buffer", t: at(d, 13, 30), want: CellReservable},
		{name: "before opening", t: at(d, 8, 45), want: CellClosed},
		{name: "closing time", t: at(d, 21, 0), want: CellClosed},
		{name: "blacked out", t: at(testDay.AddDays(9), 10, 0), want: CellClosed},
		{name: "open", t: at(d, 9, 0), want: CellReservable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyCell(tt.t, s); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
