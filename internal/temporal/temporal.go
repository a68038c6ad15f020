// Package temporal converts the string dates and wall-clock times stored on
// meetings into comparable instants and integral-minute durations.
package temporal

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date layout used by meetings.
const DateLayout = "2006-01-02"

var (
	// ErrEmpty is returned when a date or time string is blank.
	ErrEmpty = errors.New("temporal: empty value")
	// ErrMalformed is returned when a date or time string cannot be parsed.
	ErrMalformed = errors.New("temporal: malformed value")
)

// Clock is a wall-clock time of day expressed as minutes since midnight.
type Clock int

// ParseClock parses a zero-padded 24h "HH:mm" string.
func ParseClock(value string) (Clock, error) {
	if value == "" {
		return 0, ErrEmpty
	}
	if len(value) != 5 || value[2] != ':' {
		return 0, fmt.Errorf("%w: time %q", ErrMalformed, value)
	}
	hours, ok := twoDigits(value[0], value[1])
	if !ok || hours > 23 {
		return 0, fmt.Errorf("%w: time %q", ErrMalformed, value)
	}
	minutes, ok := twoDigits(value[3], value[4])
	if !ok || minutes > 59 {
		return 0, fmt.Errorf("%w: time %q", ErrMalformed, value)
	}
	return Clock(hours*60 + minutes), nil
}

// Hours returns the hour component.
func (c Clock) Hours() int { return int(c) / 60 }

// Minutes returns the minute component.
func (c Clock) Minutes() int { return int(c) % 60 }

// String renders the clock as "HH:mm".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hours(), c.Minutes())
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// ParseDate parses a "yyyy-MM-dd" calendar date. The result is midnight UTC.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, ErrEmpty
	}
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrMalformed, value)
	}
	return d, nil
}

// Instant combines a calendar date and a wall-clock time into an instant in
// loc. The boolean is false when either part is empty or malformed, in which
// case the pair is not comparable with anything.
func Instant(date, clock string, loc *time.Location) (time.Time, bool) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, false
	}
	c, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hours(), c.Minutes(), 0, 0, loc), true
}

// DurationMinutes returns floor((end - start) / 1 minute). The result is
// negative when end precedes start.
func DurationMinutes(start, end time.Time) int {
	d := end.Sub(start)
	minutes := d / time.Minute
	if d < 0 && d%time.Minute != 0 {
		minutes--
	}
	return int(minutes)
}

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}

// AddDays shifts a "yyyy-MM-dd" date by n days.
func AddDays(date string, n int) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, n).Format(DateLayout), nil
}
