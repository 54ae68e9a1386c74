package availability

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

// ParseDuration reads a duration as sent by the booking API: ISO-8601
// ("PT1H30M"), clock form ("01:30:00") or a plain number of seconds.
// Empty input is zero.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if strings.HasPrefix(raw, "P") || strings.HasPrefix(raw, "-P") {
		d, err := duration.Parse(raw)
		if err != nil {
			return 0, fmt.Errorf("parse iso duration %q: %w", raw, err)
		}
		if d.Negative {
			return 0, fmt.Errorf("parse iso duration %q: negative", raw)
		}
		return d.ToTimeDuration(), nil
	}
	if strings.Contains(raw, ":") {
		parts := strings.Split(raw, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return 0, fmt.Errorf("parse clock duration %q", raw)
		}
		var total time.Duration
		units := []time.Duration{time.Hour, time.Minute, time.Second}
		for i, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("parse clock duration %q", raw)
			}
			total += time.Duration(n) * units[i]
		}
		return total, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse seconds %q: %w", raw, err)
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 || secs > maxSeconds {
		return 0, fmt.Errorf("parse seconds %q: out of range", raw)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// maxSeconds is the largest second count a time.Duration can hold.
var maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// DurationToMinutes returns whole minutes of raw. Empty or unparsable input
// is 0 so that an absent limit reads as "no limit".
func DurationToMinutes(raw string) int {
	d, err := ParseDuration(raw)
	if err != nil {
		return 0
	}
	return Minutes(d)
}

// SecondsToDuration converts an optional second count; nil is zero.
func SecondsToDuration(secs *int) time.Duration {
	if secs == nil {
		return 0
	}
	return time.Duration(*secs) * time.Second
}

// Minutes truncates d to whole minutes.
func Minutes(d time.Duration) int {
	return int(d / time.Minute)
}

// ReservationLongEnough reports end-start >= min. An unset min (<= 0) always
// passes.
func ReservationLongEnough(start, end time.Time, min time.Duration) bool {
	if min <= 0 {
		return true
	}
	return end.Sub(start) >= min
}

// ReservationShortEnough reports end-start <= max. An unset max (<= 0) always
// passes.
func ReservationShortEnough(start, end time.Time, max time.Duration) bool {
	if max <= 0 {
		return true
	}
	return end.Sub(start) <= max
}
