package meeting

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/meeting-scheduler/internal/temporal"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Policy supplies the environment a meeting is validated against.
type Policy struct {
	Now      time.Time
	Location *time.Location
	// Areas restricts the organizer to known area codes when non-empty.
	Areas []string
}

// Violation describes one broken rule.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result aggregates every violation found on a meeting.
type Result struct {
	Violations []Violation
}

// Valid reports whether no rule was broken.
func (r Result) Valid() bool { return len(r.Violations) == 0 }

// Messages returns the violation messages in the order they were found.
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Message)
	}
	return out
}

func (r *Result) add(field, message string) {
	r.Violations = append(r.Violations, Violation{Field: field, Message: message})
}

// Validate checks every entity rule and reports all violations. Range and
// ordering checks only run once both the start and end resolve, so a missing
// date is reported once.
func (m *Meeting) Validate(policy Policy) Result {
	var result Result

	title := strings.TrimSpace(m.Title)
	if title == "" {
		result.add("title", "title is required")
	} else if utf8.RuneCountInString(m.Title) > MaxTitleLength {
		result.add("title", fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
	if utf8.RuneCountInString(m.Description) > MaxDescriptionLength {
		result.add("description", fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}

	checkDate(&result, m.Date)
	checkClock(&result, "startTime", "start time", m.StartTime)
	checkClock(&result, "endTime", "end time", m.EndTime)

	if strings.TrimSpace(m.Attendees) == "" {
		result.add("attendees", "attendees are required")
	}

	loc := policy.Location
	if loc == nil {
		loc = time.UTC
	}
	start, startOK := m.Start(loc)
	end, endOK := m.End(loc)
	if startOK && endOK {
		if !start.Before(end) {
			result.add("endTime", "end time must be after start time")
		}
		duration := m.DurationMinutes()
		if duration < MinDurationMinutes {
			result.add("endTime", fmt.Sprintf("meetings must last at least %d minutes", MinDurationMinutes))
		}
		if duration > MaxDurationMinutes {
			result.add("endTime", fmt.Sprintf("meetings must last at most %d hours", MaxDurationMinutes/60))
		}
		if !policy.Now.IsZero() && start.Before(policy.Now) {
			result.add("date", "meetings cannot be scheduled in the past")
		}
	}

	for _, email := range m.ExternalEmailList() {
		if !emailPattern.MatchString(email) {
			result.add("externalEmails", fmt.Sprintf("invalid email: %s", email))
		}
	}

	if m.Type != "" && !m.Type.Valid() {
		result.add("type", fmt.Sprintf("unknown meeting type %q", m.Type))
	}
	if m.Priority != "" && !m.Priority.Valid() {
		result.add("priority", fmt.Sprintf("unknown priority %q", m.Priority))
	}
	if m.Status != "" && !m.Status.Valid() {
		result.add("status", fmt.Sprintf("unknown status %q", m.Status))
	}
	if len(policy.Areas) > 0 && !slices.Contains(policy.Areas, m.Organizer) {
		result.add("organizer", fmt.Sprintf("unknown organizer area %q", m.Organizer))
	}
	for _, minutes := range m.Reminders {
		if minutes < 0 {
			result.add("reminders", "reminders must not be negative")
			break
		}
	}
	if m.FeedbackScore != nil && (*m.FeedbackScore < 1 || *m.FeedbackScore > 5) {
		result.add("feedbackScore", "feedback score must be between 1 and 5")
	}

	return result
}

func checkDate(result *Result, value string) {
	if value == "" {
		result.add("date", "date is required")
		return
	}
	if _, err := temporal.ParseDate(value); err != nil {
		result.add("date", "date must use the yyyy-MM-dd format")
	}
}

func checkClock(result *Result, field, label, value string) {
	if value == "" {
		result.add(field, label+" is required")
		return
	}
	if _, err := temporal.ParseClock(value); err != nil {
		result.add(field, label+" must use the HH:mm format")
	}
}
