package application

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/audit"
	"github.com/example/meeting-scheduler/internal/identity"
	"github.com/example/meeting-scheduler/internal/meeting"
)

// MeetingStore loads and saves the whole meeting collection.
type MeetingStore interface {
	LoadAll(ctx context.Context) ([]*meeting.Meeting, error)
	SaveAll(ctx context.Context, meetings []*meeting.Meeting) error
}

// IdentityProvider resolves the identity acting on the calendar.
type IdentityProvider interface {
	CurrentIdentity(ctx context.Context) (identity.Identity, bool)
}

// AuditSink receives a record of every successful mutation. Failures are
// logged by the caller and never undo the mutation.
type AuditSink interface {
	Record(ctx context.Context, action audit.Action, description string, m *meeting.Meeting) error
}

// Filter narrows List. Zero values match everything; DateFrom and DateTo are
// inclusive "yyyy-MM-dd" bounds.
type Filter struct {
	Status    meeting.Status   `json:"status,omitempty"`
	Organizer string           `json:"organizer,omitempty"`
	DateFrom  string           `json:"dateFrom,omitempty"`
	DateTo    string           `json:"dateTo,omitempty"`
	Priority  meeting.Priority `json:"priority,omitempty"`
	Search    string           `json:"search,omitempty"`
}

// cacheKey renders the filter canonically so equal filters share a cache slot.
func (f Filter) cacheKey() string {
	return strings.Join([]string{
		string(f.Status),
		f.Organizer,
		f.DateFrom,
		f.DateTo,
		string(f.Priority),
		strings.ToLower(strings.TrimSpace(f.Search)),
	}, "|")
}

func (f Filter) matches(m *meeting.Meeting) bool {
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.Organizer != "" && m.Organizer != f.Organizer {
		return false
	}
	if f.DateFrom != "" && m.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && m.Date > f.DateTo {
		return false
	}
	if f.Priority != "" && m.Priority != f.Priority {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(m.Title), q) &&
			!strings.Contains(strings.ToLower(m.Description), q) &&
			!strings.Contains(strings.ToLower(m.Agenda), q) {
			return false
		}
	}
	return true
}

// Stats aggregates the calendar.
type Stats struct {
	Total          int                      `json:"total"`
	ByStatus       map[meeting.Status]int   `json:"byStatus"`
	ByPriority     map[meeting.Priority]int `json:"byPriority"`
	ByOrganizer    map[string]int           `json:"byOrganizer"`
	TodayScheduled int                      `json:"todayScheduled"`
}

// Reminder is a reminder that is due for a scheduled meeting.
type Reminder struct {
	MeetingID     string    `json:"meetingId"`
	Title         string    `json:"title"`
	Attendees     []string  `json:"attendees"`
	MinutesBefore int       `json:"minutesBefore"`
	StartsAt      time.Time `json:"startsAt"`
}

// SeriesRequest describes a recurring meeting. The draft carries the first
// occurrence; Rule is an RFC 5545 RRULE.
type SeriesRequest struct {
	Draft meeting.Draft `json:"draft"`
	Rule  string        `json:"rule"`
	Limit int           `json:"limit"`
}

// CleanupResult reports what Cleanup removed.
type CleanupResult struct {
	Removed []string `json:"removed"`
	Cutoff  string   `json:"cutoff"`
}

func sortMeetings(meetings []*meeting.Meeting) {
	sort.SliceStable(meetings, func(i, j int) bool {
		a, b := meetings[i], meetings[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}

func cloneMeetings(meetings []*meeting.Meeting) []*meeting.Meeting {
	out := make([]*meeting.Meeting, len(meetings))
	for i, m := range meetings {
		out[i] = m.Clone()
	}
	return out
}
