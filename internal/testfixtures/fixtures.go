package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/meeting-scheduler/internal/identity"
	"github.com/example/meeting-scheduler/internal/meeting"
	"github.com/example/meeting-scheduler/internal/persistence"
)

var (
	meetingCounter uint64
	userCounter    uint64
)

var referenceTime = time.Date(2030, time.March, 14, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the calendar date offsetDays after ReferenceTime.
func ReferenceDate(offsetDays int) string {
	return referenceTime.AddDate(0, 0, offsetDays).Format("2006-01-02")
}

// ---------------------------- Meeting fixtures ----------------------------

// DraftOption configures a meeting draft fixture.
type DraftOption func(*meeting.Draft)

// NewDraft returns a valid in-person draft dated the day after ReferenceTime.
func NewDraft(opts ...DraftOption) meeting.Draft {
	idx := atomic.AddUint64(&meetingCounter, 1)
	draft := meeting.Draft{
		Title:     fmt.Sprintf("Meeting %03d", idx),
		Type:      meeting.TypeInPerson,
		Date:      ReferenceDate(1),
		StartTime: "10:00",
		EndTime:   "11:00",
		Location:  fmt.Sprintf("Room %03d", idx),
		Organizer: "finance",
		Attendees: fmt.Sprintf("Attendee %03d", idx),
		Priority:  meeting.PriorityMedium,
	}
	for _, opt := range opts {
		opt(&draft)
	}
	return draft
}

// WithTitle overrides the draft title.
func WithTitle(title string) DraftOption {
	return func(d *meeting.Draft) { d.Title = title }
}

// WithWindow overrides the date and times of the draft.
func WithWindow(date, start, end string) DraftOption {
	return func(d *meeting.Draft) {
		d.Date = date
		d.StartTime = start
		d.EndTime = end
	}
}

// WithPlace overrides the meeting type and location.
func WithPlace(kind meeting.Type, location string) DraftOption {
	return func(d *meeting.Draft) {
		d.Type = kind
		d.Location = location
	}
}

// WithOrganizer overrides the organizing area.
func WithOrganizer(area string) DraftOption {
	return func(d *meeting.Draft) { d.Organizer = area }
}

// WithAttendees overrides the comma-delimited attendees.
func WithAttendees(attendees string) DraftOption {
	return func(d *meeting.Draft) { d.Attendees = attendees }
}

// WithReminders overrides the reminder offsets in minutes.
func WithReminders(minutes ...int) DraftOption {
	return func(d *meeting.Draft) { d.Reminders = append([]int(nil), minutes...) }
}

// NewMeeting materialises a stored meeting from a draft fixture.
func NewMeeting(id string, opts ...DraftOption) *meeting.Meeting {
	return meeting.New(id, NewDraft(opts...), "system", referenceTime)
}

// ----------------------------- User fixtures ------------------------------

// UserOption configures a user fixture.
type UserOption func(*persistence.User)

// NewUser returns a deterministic active directory user.
func NewUser(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	stamp := referenceTime.Add(time.Duration(idx) * time.Minute).Format(persistence.TimestampLayout)
	user := persistence.User{
		ID:           fmt.Sprintf("user-%03d", idx),
		Email:        fmt.Sprintf("user-%03d@example.com", idx),
		Name:         fmt.Sprintf("User %03d", idx),
		Area:         "finance",
		Role:         string(identity.RoleCoordinator),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Active:       true,
		CreatedAt:    stamp,
		UpdatedAt:    stamp,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserArea overrides the organizational area.
func WithUserArea(area string) UserOption {
	return func(u *persistence.User) { u.Area = area }
}

// WithUserRole overrides the role.
func WithUserRole(role identity.Role) UserOption {
	return func(u *persistence.User) { u.Role = string(role) }
}

// Identity converts a persisted user into the identity seen by services.
func Identity(u persistence.User) identity.Identity {
	return identity.Identity{ID: u.ID, Email: u.Email, Name: u.Name, Area: u.Area, Role: identity.Role(u.Role)}
}
