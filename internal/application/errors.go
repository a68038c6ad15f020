package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/meeting-scheduler/internal/scheduler"
)

var (
	// ErrUnauthorized is returned when the acting identity lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested meeting does not exist.
	ErrNotFound = errors.New("application: not found")
)

// ValidationError captures field level validation issues that callers can surface to users.
// Messages keeps every violated rule in the order it was found; FieldErrors keeps
// the first message per field.
type ValidationError struct {
	FieldErrors map[string]string
	Messages    []string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.Messages) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(v.Messages, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && (len(v.FieldErrors) > 0 || len(v.Messages) > 0)
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; !exists {
		v.FieldErrors[field] = message
	}
	v.Messages = append(v.Messages, message)
}

// ConflictError reports every scheduled meeting that competes with a candidate
// for a location or an attendee.
type ConflictError struct {
	Conflicts []scheduler.Conflict
}

// Error implements the error interface.
func (c *ConflictError) Error() string {
	if c == nil {
		return ""
	}
	parts := make([]string, 0, len(c.Conflicts))
	for _, conflict := range c.Conflicts {
		parts = append(parts, fmt.Sprintf("%q (%s)", conflict.Title, conflict.Window()))
	}
	return "scheduling conflict with " + strings.Join(parts, ", ")
}

// PersistenceError wraps a failure reported by the meeting store.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (p *PersistenceError) Error() string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("persist meetings during %s: %v", p.Op, p.Err)
}

// Unwrap exposes the store error to errors.Is/As.
func (p *PersistenceError) Unwrap() error {
	if p == nil {
		return nil
	}
	return p.Err
}
