package availability

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestIntervalsOverlap(t *testing.T) {
	t0 := at(testDay, 10, 0)
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{
			name: "back to back",
			a:    Interval{Start: t0, End: t0.Add(time.Hour)},
			b:    Interval{Start: t0.Add(time.Hour), End: t0.Add(2 * time.Hour)},
			want: false,
		},
		{
			name: "back to back reversed",
			a:    Interval{Start: t0.Add(time.Hour), End: t0.Add(2 * time.Hour)},
			b:    Interval{Start: t0, End: t0.Add(time.Hour)},
			want: false,
		},
		{
			name: "one minute overlap",
			a:    Interval{Start: t0, End: t0.Add(61 * time.Minute)},
			b:    Interval{Start: t0.Add(time.Hour), End: t0.Add(2 * time.Hour)},
			want: true,
		},
		{
			name: "contained",
			a:    Interval{Start: t0, End: t0.Add(4 * time.Hour)},
			b:    Interval{Start: t0.Add(time.Hour), End: t0.Add(2 * time.Hour)},
			want: true,
		},
		{
			name: "identical",
			a:    Interval{Start: t0, End: t0.Add(time.Hour)},
			b:    Interval{Start: t0, End: t0.Add(time.Hour)},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IntervalsOverlap(tt.a, tt.b); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestBuffersOverlap_AfterBufferSymmetry(t *testing.T) {
	r := Reservation{ID: "r", Begin: at(testDay, 10, 0), End: at(testDay, 11, 0), BufferAfter: 3600 * time.Second}

	atEnd := Interval{Start: r.End, End: r.End.Add(time.Hour)}
	if !BuffersOverlap(r, atEnd, 0, 0) {
		t.Fatalf("expected candidate starting at reservation end to hit the after buffer")
	}
	if CollidesWithReservations(atEnd, []Reservation{r}) {
		t.Fatalf("expected no raw collision for back to back candidate")
	}

	clear := Interval{Start: r.End.Add(time.Hour), End: r.End.Add(2 * time.Hour)}
	if BuffersOverlap(r, clear, 0, 0) {
		t.Fatalf("expected candidate after the buffer not to collide")
	}
	later := Interval{Start: r.End.Add(3 * time.Hour), End: r.End.Add(4 * time.Hour)}
	if CollidesWithBuffers(later, 0, 0, []Reservation{r}) {
		t.Fatalf("expected later candidate not to collide")
	}
}

func TestBuffersOverlap_BothSides(t *testing.T) {
	r := Reservation{ID: "r", Begin: at(testDay, 12, 0), End: at(testDay, 13, 0), BufferBefore: time.Hour, BufferAfter: time.Hour}

	withBefore := Interval{Start: at(testDay, 14, 0), End: at(testDay, 15, 0)}
	if !BuffersOverlap(r, withBefore, 5400*time.Second, 0) {
		t.Fatalf("expected candidate pre-buffer to reach the reservation")
	}

	withAfter := Interval{Start: at(testDay, 14, 0), End: at(testDay, 14, 15)}
	if BuffersOverlap(r, withAfter, 0, 5400*time.Second) {
		t.Fatalf("expected candidate post-buffer not to collide")
	}

	noBuffers := Reservation{ID: "n", Begin: r.Begin, End: r.End}
	if BuffersOverlap(noBuffers, withAfter, 0, 0) {
		t.Fatalf("expected no buffer overlap when neither side declares buffers")
	}
}

func TestCollisions(t *testing.T) {
	rs := []Reservation{
		{ID: "a", Begin: at(testDay, 9, 0), End: at(testDay, 10, 0)},
		{ID: "b", Begin: at(testDay, 11, 0), End: at(testDay, 12, 0), BufferBefore: 30 * time.Minute},
		{ID: "c", Begin: at(testDay, 15, 0), End: at(testDay, 16, 0)},
	}
	got := Collisions(Interval{Start: at(testDay, 9, 30), End: at(testDay, 10, 45)}, 0, 0, rs)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("expected collisions a and b, got %+v", got)
	}
}

func TestDeriveBufferVisuals(t *testing.T) {
	rs := []Reservation{
		{ID: "a", Begin: at(testDay, 10, 0), End: at(testDay, 11, 0), BufferBefore: 15 * time.Minute, BufferAfter: 30 * time.Minute},
		{ID: "b", Begin: at(testDay, 12, 0), End: at(testDay, 13, 0)},
		{ID: "c", Begin: at(testDay, 14, 0), End: at(testDay, 15, 0), BufferAfter: time.Hour},
	}
	got := DeriveBufferVisuals(rs)
	if len(got) != 3 {
		t.Fatalf("expected 3 visuals, got %d", len(got))
	}
	want := []BufferVisual{
		{Interval: Interval{Start: at(testDay, 9, 45), End: at(testDay, 10, 0)}, ReservationID: "a", Side: BufferBefore},
		{Interval: Interval{Start: at(testDay, 11, 0), End: at(testDay, 11, 30)}, ReservationID: "a", Side: BufferAfter},
		{Interval: Interval{Start: at(testDay, 15, 0), End: at(testDay, 16, 0)}, ReservationID: "c", Side: BufferAfter},
	}
	for i := range want {
		if got[i].ReservationID != want[i].ReservationID || got[i].Side != want[i].Side ||
			!got[i].Interval.Start.Equal(want[i].Interval.Start) || !got[i].Interval.End.Equal(want[i].Interval.End) {
			t.Fatalf("visual %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestExpandWithBuffer(t *testing.T) {
	iv := Interval{Start: at(testDay, 10, 0), End: at(testDay, 11, 0)}
	got := ExpandWithBuffer(iv, 30*time.Minute, 0)
	if !got.Start.Equal(at(testDay, 9, 30)) || !got.End.Equal(iv.End) {
		t.Fatalf("unexpected expansion %+v", got)
	}
}

func TestEnumerateDayIntervals(t *testing.T) {
	nine := LocalTime{Hour: 9}
	noon := LocalTime{Hour: 12}

	got := EnumerateDayIntervals(nine, noon, Interval15Mins)
	if len(got) != 13 {
		t.Fatalf("expected 13 entries, got %d", len(got))
	}
	if got[0].String() != "09:00" || got[1].String() != "09:15" || got[12].String() != "12:00" {
		t.Fatalf("unexpected sequence %v", got)
	}

	got = EnumerateDayIntervals(nine, noon, Interval90Mins)
	if len(got) != 3 || got[1].String() != "10:30" || got[2].String() != "12:00" {
		t.Fatalf("unexpected 90 minute sequence %v", got)
	}

	got = EnumerateDayIntervals(nine, LocalTime{Hour: 10, Minute: 45}, Interval60Mins)
	if len(got) != 2 || got[1].String() != "10:00" {
		t.Fatalf("expected unaligned end to be left out, got %v", got)
	}

	if got := EnumerateDayIntervals(nine, nine, Interval15Mins); len(got) != 0 {
		t.Fatalf("expected empty sequence for empty range, got %v", got)
	}
	if got := EnumerateDayIntervals(noon, nine, Interval15Mins); len(got) != 0 {
		t.Fatalf("expected empty sequence for reversed range, got %v", got)
	}
	if got := EnumerateDayIntervals(nine, noon, StartInterval(45)); len(got) != 0 {
		t.Fatalf("expected empty sequence for unknown granularity, got %v", got)
	}
}

func TestStartsOnGrid(t *testing.T) {
	periods := []OpeningPeriod{
		{Date: testDay, Start: LocalTime{Hour: 8, Minute: 30}, End: LocalTime{Hour: 12}, State: StateOpen},
		{Date: testDay, Start: LocalTime{Hour: 13, Minute: 15}, End: LocalTime{Hour: 18}, State: StateOpen},
	}
	tests := []struct {
		name        string
		t           time.Time
		granularity StartInterval
		want        bool
	}{
		{name: "opening time", t: at(testDay, 8, 30), granularity: Interval60Mins, want: true},
		{name: "one step in", t: at(testDay, 9, 30), granularity: Interval60Mins, want: true},
		{name: "full hour not on half hour grid", t: at(testDay, 9, 0), granularity: Interval60Mins, want: false},
		{name: "ninety minutes", t: at(testDay, 10, 0), granularity: Interval90Mins, want: true},
		{name: "second period anchors itself", t: at(testDay, 13, 45), granularity: Interval30Mins, want: true},
		{name: "second period off grid", t: at(testDay, 14, 0), granularity: Interval30Mins, want: false},
		{name: "before opening", t: at(testDay, 8, 0), granularity: Interval30Mins, want: false},
		{name: "seconds are off grid", t: at(testDay, 9, 30).Add(time.Second), granularity: Interval15Mins, want: false},
		{name: "no period on date", t: at(testDay.AddDays(1), 9, 30), granularity: Interval15Mins, want: false},
		{name: "unknown granularity", t: at(testDay, 8, 30), granularity: StartInterval(20), want: false},
		{name: "unset granularity", t: at(testDay, 8, 30), granularity: StartIntervalUnset, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StartsOnGrid(tt.t, periods, tt.granularity); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestStartsOnGrid_DSTDay(t *testing.T) {
	helsinki, err := time.LoadLocation("Europe/Helsinki")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	// Clocks jump from 03:00 to 04:00 on this day.
	day := Date{Year: 2026, Month: time.March, Day: 29}
	periods := []OpeningPeriod{{Date: day, Start: LocalTime{}, End: LocalTime{Hour: 12}, State: StateOpen}}

	for _, lt := range EnumerateDayIntervals(LocalTime{}, LocalTime{Hour: 12}, Interval90Mins) {
		tm := day.At(lt, helsinki)
		if LocalTimeOf(tm) != lt {
			continue
		}
		if !StartsOnGrid(tm, periods, Interval90Mins) {
			t.Fatalf("grid point %s rejected", lt)
		}
	}
	if StartsOnGrid(day.At(LocalTime{Hour: 4}, helsinki), periods, Interval90Mins) {
		t.Fatalf("04:00 is not on the wall-clock 90 minute grid")
	}

	s := Snapshot{
		Now:          time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Location:     helsinki,
		OpeningHours: periods,
		Constraints:  Constraints{StartInterval: Interval90Mins},
	}
	var got []string
	for _, start := range ReservableStarts(day, time.Hour, s) {
		got = append(got, LocalTimeOf(start.In(helsinki)).String())
	}
	want := "00:00 01:30 04:30 06:00 07:30 09:00 10:30"
	if strings.Join(got, " ") != want {
		t.Fatalf("expected starts %s, got %v", want, got)
	}
	for _, c := range DayGrid(day, s) {
		if LocalTimeOf(c.Start.In(helsinki)).String() == "04:00" {
			t.Fatalf("grid must not contain a cell shifted out of the DST gap")
		}
	}
}

func TestIsWithinOpenPeriod(t *testing.T) {
	periods := []OpeningPeriod{
		openDay(testDay, 9, 12),
		{Date: testDay, Start: LocalTime{Hour: 13}, End: LocalTime{Hour: 16}, State: StateClosed},
	}
	if !IsWithinOpenPeriod(at(testDay, 9, 0), periods) {
		t.Fatalf("expected opening instant to be open")
	}
	if IsWithinOpenPeriod(at(testDay, 12, 0), periods) {
		t.Fatalf("expected closing instant to be excluded")
	}
	if IsWithinOpenPeriod(at(testDay, 14, 0), periods) {
		t.Fatalf("expected closed period not to count")
	}
	if IsWithinOpenPeriod(at(testDay.AddDays(1), 10, 0), periods) {
		t.Fatalf("expected other date not to match")
	}
}

func TestIsSlotRangeOpen(t *testing.T) {
	split := []OpeningPeriod{openDay(testDay, 9, 12), openDay(testDay, 12, 15)}
	gap := []OpeningPeriod{openDay(testDay, 9, 12), openDay(testDay, 13, 15)}

	tests := []struct {
		name    string
		periods []OpeningPeriod
		c       Interval
		want    bool
	}{
		{name: "inside", periods: gap, c: Interval{Start: at(testDay, 9, 0), End: at(testDay, 12, 0)}, want: true},
		{name: "across touching periods", periods: split, c: Interval{Start: at(testDay, 11, 0), End: at(testDay, 13, 0)}, want: true},
		{name: "across a gap", periods: gap, c: Interval{Start: at(testDay, 11, 0), End: at(testDay, 13, 30)}, want: false},
		{name: "past closing", periods: gap, c: Interval{Start: at(testDay, 14, 0), End: at(testDay, 15, 30)}, want: false},
		{name: "no periods", periods: nil, c: Interval{Start: at(testDay, 9, 0), End: at(testDay, 10, 0)}, want: false},
		{name: "invalid candidate", periods: gap, c: Interval{Start: at(testDay, 10, 0), End: at(testDay, 10, 0)}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSlotRangeOpen(tt.c, tt.periods, time.UTC); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestIsBlackedOut_Inclusive(t *testing.T) {
	last := testDay.AddDays(8)
	periods := []BlackoutPeriod{{Begin: testDay.AddDays(6), End: last}}

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{name: "day before", t: at(testDay.AddDays(5), 23, 59), want: false},
		{name: "first instant", t: at(testDay.AddDays(6), 0, 0), want: true},
		{name: "last day late evening", t: at(last, 23, 59), want: true},
		{name: "last millisecond", t: last.EndOfDay(time.UTC), want: true},
		{name: "next day", t: at(last.AddDays(1), 0, 0), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBlackedOut(tt.t, periods, time.UTC); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
	if IsBlackedOut(at(last, 12, 0), nil, time.UTC) {
		t.Fatalf("expected empty list never to black out")
	}
}

func TestReservationDurationBounds(t *testing.T) {
	start := at(testDay, 10, 0)
	end := start.Add(time.Hour)
	if !ReservationLongEnough(start, end, time.Hour) || ReservationLongEnough(start, end, 61*time.Minute) {
		t.Fatalf("unexpected long-enough result")
	}
	if !ReservationShortEnough(start, end, time.Hour) || ReservationShortEnough(start, end, 59*time.Minute) {
		t.Fatalf("unexpected short-enough result")
	}
	if !ReservationLongEnough(start, end, 0) || !ReservationShortEnough(start, end, 0) {
		t.Fatalf("expected unset bounds to pass")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "PT1H30M", want: 90 * time.Minute},
		{in: "PT15M", want: 15 * time.Minute},
		{in: "01:30:00", want: 90 * time.Minute},
		{in: "00:45", want: 45 * time.Minute},
		{in: "5400", want: 90 * time.Minute},
		{in: "later", wantErr: true},
		{in: "1:xx:00", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "Inf", wantErr: true},
		{in: "-60", wantErr: true},
		{in: "1e300", wantErr: true},
		{in: "-PT1H", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("%q: expected %s, got %s", tt.in, tt.want, got)
		}
	}

	if got := DurationToMinutes("PT2H"); got != 120 {
		t.Fatalf("expected 120 minutes, got %d", got)
	}
	for _, raw := range []string{"", "NaN", "1e300", "-60"} {
		if got := DurationToMinutes(raw); got != 0 {
			t.Fatalf("%q: expected 0 minutes, got %d", raw, got)
		}
	}
	if got := SecondsToDuration(nil); got != 0 {
		t.Fatalf("expected zero for nil seconds, got %s", got)
	}
	secs := 1800
	if got := SecondsToDuration(&secs); got != 30*time.Minute {
		t.Fatalf("expected 30m, got %s", got)
	}
}

func TestParseStartInterval(t *testing.T) {
	tests := []struct {
		in    string
		want  StartInterval
		valid bool
	}{
		{in: "INTERVAL_15_MINS", want: Interval15Mins, valid: true},
		{in: "interval_90_mins", want: Interval90Mins, valid: true},
		{in: "60", want: Interval60Mins, valid: true},
		{in: "", want: StartIntervalUnset, valid: false},
	}
	for _, tt := range tests {
		got := ParseStartInterval(tt.in)
		if got != tt.want || got.Valid() != tt.valid {
			t.Fatalf("%q: expected %d (valid=%v), got %d", tt.in, tt.want, tt.valid, got)
		}
	}
	if got := ParseStartInterval("INTERVAL_45_MINS"); !got.IsSet() || got.Valid() {
		t.Fatalf("expected unknown interval to be set but invalid, got %d", got)
	}
}

func TestParseLocalTime(t *testing.T) {
	lt, err := ParseLocalTime("09:30:00")
	if err != nil || lt != (LocalTime{Hour: 9, Minute: 30}) {
		t.Fatalf("unexpected result %v %v", lt, err)
	}
	if lt, err := ParseLocalTime("24:00"); err != nil || lt.Minutes() != 24*60 {
		t.Fatalf("expected 24:00 to parse, got %v %v", lt, err)
	}
	for _, bad := range []string{"", "25:00", "10:60", "noon", "24:30", "10:00-12:00", "09:30xyz", "09:00:99", "9", "-1:00"} {
		if _, err := ParseLocalTime(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestWeekdayLabel(t *testing.T) {
	monday := at(testDay, 10, 0)
	if got := WeekdayLabel(monday, LabelsFor("fi")); got != "Ma" {
		t.Fatalf("expected Ma, got %s", got)
	}
	if got := WeekdayLabel(monday, WeekdayLabels{}); got != "Mon" {
		t.Fatalf("expected English fallback, got %s", got)
	}
}
