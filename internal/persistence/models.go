package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/meeting-scheduler/internal/meeting"
)

// TimestampLayout is the text form of every stored instant.
const TimestampLayout = time.RFC3339Nano

// Meeting is the row form of a meeting.
type Meeting struct {
	ID               string        `db:"id"`
	Title            string        `db:"title"`
	Description      string        `db:"description"`
	Type             string        `db:"type"`
	Date             string        `db:"date"`
	StartTime        string        `db:"start_time"`
	EndTime          string        `db:"end_time"`
	Location         string        `db:"location"`
	Organizer        string        `db:"organizer"`
	Attendees        string        `db:"attendees"`
	ExternalEmails   string        `db:"external_emails"`
	Agenda           string        `db:"agenda"`
	Notes            string        `db:"notes"`
	Priority         string        `db:"priority"`
	Status           string        `db:"status"`
	CreatedAt        string        `db:"created_at"`
	UpdatedAt        string        `db:"updated_at"`
	CreatedBy        string        `db:"created_by"`
	Reminders        string        `db:"reminders"`
	Recurrence       string        `db:"recurrence"`
	ParentMeetingID  string        `db:"parent_meeting_id"`
	CancelReason     string        `db:"cancel_reason"`
	FeedbackScore    sql.NullInt64 `db:"feedback_score"`
	FeedbackComments string        `db:"feedback_comments"`
}

// MeetingFromDomain flattens a meeting into its row form.
func MeetingFromDomain(m *meeting.Meeting) (Meeting, error) {
	reminders, err := json.Marshal(m.Reminders)
	if err != nil {
		return Meeting{}, fmt.Errorf("encode reminders of %s: %w", m.ID, err)
	}
	row := Meeting{
		ID:               m.ID,
		Title:            m.Title,
		Description:      m.Description,
		Type:             string(m.Type),
		Date:             m.Date,
		StartTime:        m.StartTime,
		EndTime:          m.EndTime,
		Location:         m.Location,
		Organizer:        m.Organizer,
		Attendees:        m.Attendees,
		ExternalEmails:   m.ExternalEmails,
		Agenda:           m.Agenda,
		Notes:            m.Notes,
		Priority:         string(m.Priority),
		Status:           string(m.Status),
		CreatedAt:        m.CreatedAt.UTC().Format(TimestampLayout),
		UpdatedAt:        m.UpdatedAt.UTC().Format(TimestampLayout),
		CreatedBy:        m.CreatedBy,
		Reminders:        string(reminders),
		Recurrence:       m.Recurrence,
		ParentMeetingID:  m.ParentMeetingID,
		CancelReason:     m.CancelReason,
		FeedbackComments: m.FeedbackComments,
	}
	if m.FeedbackScore != nil {
		row.FeedbackScore = sql.NullInt64{Int64: int64(*m.FeedbackScore), Valid: true}
	}
	return row, nil
}

// Domain rebuilds the meeting from its row form.
func (r Meeting) Domain() (*meeting.Meeting, error) {
	createdAt, err := time.Parse(TimestampLayout, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at of %s: %w", r.ID, err)
	}
	updatedAt, err := time.Parse(TimestampLayout, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at of %s: %w", r.ID, err)
	}
	var reminders []int
	if r.Reminders != "" {
		if err := json.Unmarshal([]byte(r.Reminders), &reminders); err != nil {
			return nil, fmt.Errorf("decode reminders of %s: %w", r.ID, err)
		}
	}
	m := &meeting.Meeting{
		ID:               r.ID,
		Title:            r.Title,
		Description:      r.Description,
		Type:             meeting.Type(r.Type),
		Date:             r.Date,
		StartTime:        r.StartTime,
		EndTime:          r.EndTime,
		Location:         r.Location,
		Organizer:        r.Organizer,
		Attendees:        r.Attendees,
		ExternalEmails:   r.ExternalEmails,
		Agenda:           r.Agenda,
		Notes:            r.Notes,
		Priority:         meeting.Priority(r.Priority),
		Status:           meeting.Status(r.Status),
		CreatedAt:        createdAt.UTC(),
		UpdatedAt:        updatedAt.UTC(),
		CreatedBy:        r.CreatedBy,
		Reminders:        reminders,
		Recurrence:       r.Recurrence,
		ParentMeetingID:  r.ParentMeetingID,
		CancelReason:     r.CancelReason,
		FeedbackComments: r.FeedbackComments,
	}
	if r.FeedbackScore.Valid {
		score := int(r.FeedbackScore.Int64)
		m.FeedbackScore = &score
	}
	return m, nil
}

// AuditEntry is one recorded action on the calendar.
type AuditEntry struct {
	ID          string `db:"id"`
	Action      string `db:"action"`
	Severity    string `db:"severity"`
	Description string `db:"description"`
	ActorID     string `db:"actor_id"`
	ActorArea   string `db:"actor_area"`
	MeetingID   string `db:"meeting_id"`
	Details     string `db:"details"`
	CreatedAt   string `db:"created_at"`
}

// User is a directory account.
type User struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	Name         string `db:"name"`
	Area         string `db:"area"`
	Role         string `db:"role"`
	PasswordHash string `db:"password_hash"`
	Active       bool   `db:"active"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

// Session is an issued login session. Only the digest of the bearer token is
// stored. ExpiresAt is a Unix timestamp so expiry sweeps compare numerically.
type Session struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	TokenHash string         `db:"token_hash"`
	ExpiresAt int64          `db:"expires_at"`
	RevokedAt sql.NullString `db:"revoked_at"`
	CreatedAt string         `db:"created_at"`
}
