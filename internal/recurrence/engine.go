// Package recurrence expands RFC 5545 recurrence rules into the calendar dates
// of a meeting series.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/example/meeting-scheduler/internal/temporal"
)

// DefaultLimit caps a series whose rule has neither COUNT nor UNTIL.
const DefaultLimit = 52

// MaxLimit is the largest series the engine will expand.
const MaxLimit = 366

var (
	// ErrInvalidRule indicates the RRULE text could not be parsed.
	ErrInvalidRule = errors.New("recurrence: invalid rule")
	// ErrInvalidStart indicates the first occurrence date or time is malformed.
	ErrInvalidStart = errors.New("recurrence: invalid first occurrence")
	// ErrNoOccurrences indicates the rule yields nothing from the first occurrence.
	ErrNoOccurrences = errors.New("recurrence: rule produces no occurrences")
)

// Occurrence is one expanded member of a series.
type Occurrence struct {
	Date  string
	Start time.Time
}

// Engine expands rules in a fixed location.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that evaluates rules in loc.
// If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Expand evaluates rule starting at date/clock and returns at most limit
// occurrences in chronological order. The first occurrence is always the
// given date when it matches the rule.
func (e *Engine) Expand(rule, date, clock string, limit int) ([]Occurrence, error) {
	start, ok := temporal.Instant(date, clock, e.location)
	if !ok {
		return nil, ErrInvalidStart
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	opt, err := rrule.StrToROptionInLocation(normalizeRule(rule), e.location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	opt.Dtstart = start

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	next := r.Iterator()
	occurrences := make([]Occurrence, 0, limit)
	for len(occurrences) < limit {
		t, ok := next()
		if !ok {
			break
		}
		t = t.In(e.location)
		occurrences = append(occurrences, Occurrence{Date: t.Format(temporal.DateLayout), Start: t})
	}
	if len(occurrences) == 0 {
		return nil, ErrNoOccurrences
	}
	return occurrences, nil
}

// Validate reports whether rule parses as an RRULE.
func Validate(rule string) error {
	if _, err := rrule.StrToROption(normalizeRule(rule)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return nil
}

func normalizeRule(rule string) string {
	return strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(rule)), "RRULE:")
}
