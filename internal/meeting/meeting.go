// Package meeting defines the scheduled-event entity, its validation rules and
// its plain-object serialization.
package meeting

import (
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/temporal"
)

// Meeting is a scheduled event. Dates are "yyyy-MM-dd" and times are
// same-day "HH:mm" wall-clock values.
type Meeting struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Type             Type      `json:"type"`
	Date             string    `json:"date"`
	StartTime        string    `json:"startTime"`
	EndTime          string    `json:"endTime"`
	Location         string    `json:"location"`
	Organizer        string    `json:"organizer"`
	Attendees        string    `json:"attendees"`
	ExternalEmails   string    `json:"externalEmails"`
	Agenda           string    `json:"agenda"`
	Notes            string    `json:"notes"`
	Priority         Priority  `json:"priority"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	CreatedBy        string    `json:"createdBy"`
	Reminders        []int     `json:"reminders"`
	Recurrence       string    `json:"recurrence"`
	ParentMeetingID  string    `json:"parentMeetingId"`
	CancelReason     string    `json:"cancelReason"`
	FeedbackScore    *int      `json:"feedbackScore"`
	FeedbackComments string    `json:"feedbackComments"`
}

// Draft captures the caller supplied attributes of a new meeting.
type Draft struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Type           Type     `json:"type"`
	Date           string   `json:"date"`
	StartTime      string   `json:"startTime"`
	EndTime        string   `json:"endTime"`
	Location       string   `json:"location"`
	Organizer      string   `json:"organizer"`
	Attendees      string   `json:"attendees"`
	ExternalEmails string   `json:"externalEmails"`
	Agenda         string   `json:"agenda"`
	Notes          string   `json:"notes"`
	Priority       Priority `json:"priority"`
	Reminders      []int    `json:"reminders"`
	Recurrence     string   `json:"recurrence"`
}

// New builds a scheduled meeting from a draft, applying the defaults for
// type, priority and reminders.
func New(id string, draft Draft, createdBy string, now time.Time) *Meeting {
	now = now.UTC()
	m := &Meeting{
		ID:             id,
		Title:          draft.Title,
		Description:    draft.Description,
		Type:           draft.Type,
		Date:           draft.Date,
		StartTime:      draft.StartTime,
		EndTime:        draft.EndTime,
		Location:       draft.Location,
		Organizer:      draft.Organizer,
		Attendees:      draft.Attendees,
		ExternalEmails: draft.ExternalEmails,
		Agenda:         draft.Agenda,
		Notes:          draft.Notes,
		Priority:       draft.Priority,
		Status:         StatusScheduled,
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      createdBy,
		Reminders:      append([]int(nil), draft.Reminders...),
		Recurrence:     draft.Recurrence,
	}
	m.applyDefaults()
	return m
}

func (m *Meeting) applyDefaults() {
	if m.Type == "" {
		m.Type = TypeInPerson
	}
	if m.Priority == "" {
		m.Priority = PriorityMedium
	}
	if m.Status == "" {
		m.Status = StatusScheduled
	}
	if len(m.Reminders) == 0 {
		m.Reminders = []int{DefaultReminderMinutes}
	}
}

// Start resolves the start instant in loc.
func (m *Meeting) Start(loc *time.Location) (time.Time, bool) {
	return temporal.Instant(m.Date, m.StartTime, loc)
}

// End resolves the end instant in loc.
func (m *Meeting) End(loc *time.Location) (time.Time, bool) {
	return temporal.Instant(m.Date, m.EndTime, loc)
}

// DurationMinutes returns the scheduled length, or 0 when the date or either
// time is missing.
func (m *Meeting) DurationMinutes() int {
	start, ok := m.Start(time.UTC)
	if !ok {
		return 0
	}
	end, ok := m.End(time.UTC)
	if !ok {
		return 0
	}
	return temporal.DurationMinutes(start, end)
}

// IsUpcoming reports whether the meeting starts after now.
func (m *Meeting) IsUpcoming(now time.Time, loc *time.Location) bool {
	start, ok := m.Start(loc)
	return ok && start.After(now)
}

// IsPast reports whether the meeting ended before now.
func (m *Meeting) IsPast(now time.Time, loc *time.Location) bool {
	end, ok := m.End(loc)
	return ok && end.Before(now)
}

// IsActive reports whether now falls within the meeting window and the
// meeting is still scheduled.
func (m *Meeting) IsActive(now time.Time, loc *time.Location) bool {
	if m.Status != StatusScheduled {
		return false
	}
	start, ok := m.Start(loc)
	if !ok {
		return false
	}
	end, ok := m.End(loc)
	if !ok {
		return false
	}
	return !now.Before(start) && !now.After(end)
}

// NeedsReminder reports whether now is inside the reminder window that opens
// minutesBefore the start of a scheduled, upcoming meeting.
func (m *Meeting) NeedsReminder(minutesBefore int, now time.Time, loc *time.Location) bool {
	if m.Status != StatusScheduled || !m.IsUpcoming(now, loc) {
		return false
	}
	start, _ := m.Start(loc)
	opensAt := start.Add(-time.Duration(minutesBefore) * time.Minute)
	return !now.Before(opensAt) && now.Before(start)
}

// AttendeeList splits the comma-delimited attendees, dropping blanks.
func (m *Meeting) AttendeeList() []string {
	return splitList(m.Attendees)
}

// ExternalEmailList splits the comma-delimited external emails, dropping blanks.
func (m *Meeting) ExternalEmailList() []string {
	return splitList(m.ExternalEmails)
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Cancel marks the meeting cancelled. Cancelling twice is harmless.
func (m *Meeting) Cancel(reason string, now time.Time) {
	m.Status = StatusCancelled
	m.CancelReason = reason
	m.UpdatedAt = now.UTC()
}

// MarkAsCompleted marks the meeting finished.
func (m *Meeting) MarkAsCompleted(now time.Time) {
	m.Status = StatusFinished
	m.UpdatedAt = now.UTC()
}

// Update copies every field present in patch and refreshes UpdatedAt. The
// identifier and creation time are never touched.
func (m *Meeting) Update(patch Patch, now time.Time) {
	patch.apply(m)
	m.UpdatedAt = now.UTC()
}

// Clone returns an independent deep copy.
func (m *Meeting) Clone() *Meeting {
	if m == nil {
		return nil
	}
	out := *m
	if m.Reminders != nil {
		out.Reminders = append([]int(nil), m.Reminders...)
	}
	if m.FeedbackScore != nil {
		score := *m.FeedbackScore
		out.FeedbackScore = &score
	}
	return &out
}
