// Package scheduler decides whether a candidate meeting can be admitted next to
// the meetings already on the calendar.
package scheduler

import (
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/meeting"
)

// ConflictType describes which resource two overlapping meetings compete for.
type ConflictType string

const (
	// ConflictTypeAttendee indicates an attendee is double-booked.
	ConflictTypeAttendee ConflictType = "attendee"
	// ConflictTypeLocation indicates a physical location is double-booked.
	ConflictTypeLocation ConflictType = "location"
)

// Conflict details an overlapping meeting relation that callers can present to users.
type Conflict struct {
	WithMeetingID string         `json:"meetingId"`
	Title         string         `json:"title"`
	Date          string         `json:"date"`
	StartTime     string         `json:"startTime"`
	EndTime       string         `json:"endTime"`
	Types         []ConflictType `json:"types"`
	Attendees     []string       `json:"attendees,omitempty"`
	Location      string         `json:"location,omitempty"`
}

// Window renders the conflicting meeting's time window.
func (c Conflict) Window() string {
	return c.Date + " " + c.StartTime + "-" + c.EndTime
}

// Overlaps reports strict half-open overlap. Meetings that only touch at an
// endpoint do not overlap, and unresolvable schedules never overlap.
func Overlaps(a, b *meeting.Meeting) bool {
	aStart, aEnd, ok := window(a)
	if !ok {
		return false
	}
	bStart, bEnd, ok := window(b)
	if !ok {
		return false
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Wall-clock values on a single day compare identically in any fixed zone.
func window(m *meeting.Meeting) (time.Time, time.Time, bool) {
	start, ok := m.Start(time.UTC)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := m.End(time.UTC)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// HasLocationConflict reports whether both meetings claim the same physical
// space. Two virtual meetings never do.
func HasLocationConflict(a, b *meeting.Meeting) bool {
	if a.Type == meeting.TypeVirtual && b.Type == meeting.TypeVirtual {
		return false
	}
	return a.Type == b.Type && a.Location != "" && a.Location == b.Location
}

// HasAttendeeConflict reports whether the meetings share an internal attendee,
// compared case-insensitively after trimming.
func HasAttendeeConflict(a, b *meeting.Meeting) bool {
	return len(sharedAttendees(a, b)) > 0
}

func sharedAttendees(a, b *meeting.Meeting) []string {
	seen := make(map[string]struct{})
	for _, name := range a.AttendeeList() {
		seen[strings.ToLower(name)] = struct{}{}
	}
	var shared []string
	for _, name := range b.AttendeeList() {
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			shared = append(shared, name)
			delete(seen, key)
		}
	}
	return shared
}

// DetectConflicts scans every existing meeting and returns all that overlap
// the candidate in time while competing for a location or an attendee. The
// meeting identified by excludeID is skipped, as are meetings that are not
// scheduled.
func DetectConflicts(candidate *meeting.Meeting, existing []*meeting.Meeting, excludeID string) []Conflict {
	var conflicts []Conflict
	for _, other := range existing {
		if other == nil || (excludeID != "" && other.ID == excludeID) {
			continue
		}
		if other.Status != meeting.StatusScheduled {
			continue
		}
		if !Overlaps(candidate, other) {
			continue
		}

		conflict := Conflict{
			WithMeetingID: other.ID,
			Title:         other.Title,
			Date:          other.Date,
			StartTime:     other.StartTime,
			EndTime:       other.EndTime,
		}
		if HasLocationConflict(candidate, other) {
			conflict.Types = append(conflict.Types, ConflictTypeLocation)
			conflict.Location = other.Location
		}
		if shared := sharedAttendees(candidate, other); len(shared) > 0 {
			conflict.Types = append(conflict.Types, ConflictTypeAttendee)
			conflict.Attendees = shared
		}
		if len(conflict.Types) > 0 {
			conflicts = append(conflicts, conflict)
		}
	}
	return conflicts
}
