// Package audit records who did what to which meeting and keeps the trail
// bounded to the newest entries.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/meeting-scheduler/internal/identity"
	"github.com/example/meeting-scheduler/internal/meeting"
	"github.com/example/meeting-scheduler/internal/persistence"
)

// Action names an audited operation.
type Action string

const (
	ActionCreateMeeting   Action = "create_meeting"
	ActionEditMeeting     Action = "edit_meeting"
	ActionDeleteMeeting   Action = "delete_meeting"
	ActionCancelMeeting   Action = "cancel_meeting"
	ActionCompleteMeeting Action = "complete_meeting"
	ActionCleanupMeetings Action = "cleanup_meetings"
	ActionLogin           Action = "login"
	ActionSystemError     Action = "system_error"
)

// Severity grades an audit entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// SeverityOf returns the severity recorded for action.
func SeverityOf(action Action) Severity {
	switch action {
	case ActionDeleteMeeting:
		return SeverityWarning
	case ActionSystemError:
		return SeverityError
	}
	return SeverityInfo
}

// DefaultMaxEntries bounds the trail when no retention is configured.
const DefaultMaxEntries = 1000

// Entry is one audit record as exposed to callers.
type Entry struct {
	ID          string            `json:"id"`
	Action      Action            `json:"action"`
	Severity    Severity          `json:"severity"`
	Description string            `json:"description"`
	ActorID     string            `json:"actorId"`
	ActorArea   string            `json:"actorArea"`
	MeetingID   string            `json:"meetingId,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Query narrows List. Zero values match everything.
type Query struct {
	Action    Action
	ActorID   string
	MeetingID string
	Limit     int
}

// Recorder appends entries to an AuditRepository and prunes old ones.
type Recorder struct {
	repo       persistence.AuditRepository
	maxEntries int
	now        func() time.Time
	newID      func() string
	logger     *slog.Logger
}

// Option customises a Recorder.
type Option func(*Recorder)

// WithMaxEntries sets how many of the newest entries are retained.
func WithMaxEntries(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.maxEntries = n
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides entry id generation.
func WithIDGenerator(newID func() string) Option {
	return func(r *Recorder) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// WithLogger sets the logger used for pruning diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRecorder builds a Recorder over repo.
func NewRecorder(repo persistence.AuditRepository, opts ...Option) *Recorder {
	r := &Recorder{
		repo:       repo,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		newID:      uuid.NewString,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record stores an entry for action. The actor is taken from the identity
// attached to ctx; m may be nil for actions not tied to one meeting.
func (r *Recorder) Record(ctx context.Context, action Action, description string, m *meeting.Meeting) error {
	details := map[string]string{}
	var meetingID string
	if m != nil {
		meetingID = m.ID
		details["title"] = m.Title
		details["date"] = m.Date
		details["status"] = string(m.Status)
	}
	return r.RecordDetails(ctx, action, description, meetingID, details)
}

// RecordDetails stores an entry carrying arbitrary details.
func (r *Recorder) RecordDetails(ctx context.Context, action Action, description, meetingID string, details map[string]string) error {
	if r == nil || r.repo == nil {
		return errors.New("audit: recorder not configured")
	}

	actorID, actorArea := "system", ""
	if who, ok := identity.FromContext(ctx); ok {
		actorID, actorArea = who.ID, who.Area
	}

	var encoded string
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		encoded = string(raw)
	}

	entry := persistence.AuditEntry{
		ID:          r.newID(),
		Action:      string(action),
		Severity:    string(SeverityOf(action)),
		Description: description,
		ActorID:     actorID,
		ActorArea:   actorArea,
		MeetingID:   meetingID,
		Details:     encoded,
		CreatedAt:   r.now().UTC().Format(persistence.TimestampLayout),
	}
	if err := r.repo.AppendAudit(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	removed, err := r.repo.PruneAudit(ctx, r.maxEntries)
	if err != nil {
		return fmt.Errorf("prune audit trail: %w", err)
	}
	if removed > 0 {
		r.logger.DebugContext(ctx, "audit trail pruned", "removed", removed, "max_entries", r.maxEntries)
	}
	return nil
}

// List returns entries newest first.
func (r *Recorder) List(ctx context.Context, q Query) ([]Entry, error) {
	rows, err := r.repo.ListAudit(ctx, persistence.AuditFilter{
		Action:    string(q.Action),
		ActorID:   q.ActorID,
		MeetingID: q.MeetingID,
		Limit:     q.Limit,
	})
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := entryFromRow(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func entryFromRow(row persistence.AuditEntry) (Entry, error) {
	ts, err := time.Parse(persistence.TimestampLayout, row.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse audit timestamp of %s: %w", row.ID, err)
	}
	entry := Entry{
		ID:          row.ID,
		Action:      Action(row.Action),
		Severity:    Severity(row.Severity),
		Description: row.Description,
		ActorID:     row.ActorID,
		ActorArea:   row.ActorArea,
		MeetingID:   row.MeetingID,
		Timestamp:   ts,
	}
	if row.Details != "" {
		if err := json.Unmarshal([]byte(row.Details), &entry.Details); err != nil {
			return Entry{}, fmt.Errorf("decode audit details of %s: %w", row.ID, err)
		}
	}
	return entry, nil
}
