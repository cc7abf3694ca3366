package activity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day, stored as the offset from midnight.
type Clock time.Duration

// ParseClock parses a time of day such as "9:00:00" or "23:00".
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q (expected H:MM or H:MM:SS)", ErrInvalidClock, s)
	}

	limits := []int{23, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}

	var total time.Duration
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		total += time.Duration(n) * units[i]
	}
	return Clock(total), nil
}

// String formats the clock as HH:MM:SS.
func (c Clock) String() string {
	d := time.Duration(c)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	sec := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

// On returns the instant on the calendar day of t at which the clock reads c.
func (c Clock) On(t time.Time) time.Time {
	return midnight(t).Add(time.Duration(c))
}

// sinceMidnight returns the time of day of t.
func sinceMidnight(t time.Time) Clock {
	return Clock(t.Sub(midnight(t)))
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// LightCycle holds the times at which the lights go on and off.
// Lights may go off before they go on (a cycle spanning midnight).
type LightCycle struct {
	On  Clock
	Off Clock
}

// IsLight reports whether the lights are on at t.
func (lc LightCycle) IsLight(t time.Time) bool {
	tod := sinceMidnight(t)
	if lc.On <= lc.Off {
		return tod >= lc.On && tod < lc.Off
	}
	return tod >= lc.On || tod < lc.Off
}

// DarkIntervals returns the dark periods overlapping [start, end), clipped to it.
func (lc LightCycle) DarkIntervals(start, end time.Time) [][2]time.Time {
	if !end.After(start) || lc.On == lc.Off {
		return nil
	}

	var out [][2]time.Time
	// Begin one day early so a dark period that started the evening before is caught.
	for day := midnight(start).AddDate(0, 0, -1); day.Before(end); day = day.AddDate(0, 0, 1) {
		darkStart := lc.Off.On(day)
		darkEnd := lc.On.On(day)
		if lc.On <= lc.Off {
			darkEnd = lc.On.On(day.AddDate(0, 0, 1))
		}

		if darkStart.Before(start) {
			darkStart = start
		}
		if darkEnd.After(end) {
			darkEnd = end
		}
		if darkEnd.After(darkStart) {
			out = append(out, [2]time.Time{darkStart, darkEnd})
		}
	}
	return out
}
