package scheduler

import (
	"reflect"
	"testing"

	"github.com/example/meeting-scheduler/internal/meeting"
)

func scheduled(id string, typ meeting.Type, start, end, location, attendees string) *meeting.Meeting {
	return &meeting.Meeting{
		ID:        id,
		Title:     "meeting " + id,
		Type:      typ,
		Date:      "2024-03-15",
		StartTime: start,
		EndTime:   end,
		Location:  location,
		Attendees: attendees,
		Status:    meeting.StatusScheduled,
	}
}

func TestDetectConflicts(t *testing.T) {
	t.Run("location overlap produces conflict", func(t *testing.T) {
		existing := scheduled("a", meeting.TypeInPerson, "10:00", "11:00", "Room A", "Alice, Bob")
		candidate := scheduled("b", meeting.TypeInPerson, "10:30", "11:30", "Room A", "Carol")

		conflicts := DetectConflicts(candidate, []*meeting.Meeting{existing}, "")
		if len(conflicts) != 1 {
			t.Fatalf("expected one conflict, got %d", len(conflicts))
		}
		got := conflicts[0]
		if got.WithMeetingID != "a" || got.Title != "meeting a" {
			t.Fatalf("unexpected conflict target %+v", got)
		}
		if !reflect.DeepEqual(got.Types, []ConflictType{ConflictTypeLocation}) {
			t.Fatalf("expected location conflict, got %v", got.Types)
		}
		if got.Window() != "2024-03-15 10:00-11:00" {
			t.Fatalf("unexpected window %q", got.Window())
		}
	})

	t.Run("attendee overlap produces conflict", func(t *testing.T) {
		existing := scheduled("a", meeting.TypeVirtual, "10:00", "11:00", "", "Alice, Bob")
		candidate := scheduled("b", meeting.TypeVirtual, "10:30", "11:30", "", " bob ")

		conflicts := DetectConflicts(candidate, []*meeting.Meeting{existing}, "")
		if len(conflicts) != 1 {
			t.Fatalf("expected one conflict, got %d", len(conflicts))
		}
		if !reflect.DeepEqual(conflicts[0].Types, []ConflictType{ConflictTypeAttendee}) {
			t.Fatalf("expected attendee conflict, got %v", conflicts[0].Types)
		}
		if !reflect.DeepEqual(conflicts[0].Attendees, []string{"bob"}) {
			t.Fatalf("expected shared attendee bob, got %v", conflicts[0].Attendees)
		}
	})

	t.Run("every conflicting meeting is reported", func(t *testing.T) {
		existing := []*meeting.Meeting{
			scheduled("a", meeting.TypeInPerson, "09:00", "10:30", "Room A", "Alice"),
			scheduled("b", meeting.TypeInPerson, "10:45", "12:00", "Room B", "Dave"),
			scheduled("c", meeting.TypeInPerson, "11:00", "12:00", "Room C", "Erin"),
		}
		candidate := scheduled("x", meeting.TypeInPerson, "10:00", "11:30", "Room A", "Dave")

		conflicts := DetectConflicts(candidate, existing, "")
		var ids []string
		for _, c := range conflicts {
			ids = append(ids, c.WithMeetingID)
		}
		if !reflect.DeepEqual(ids, []string{"a", "b"}) {
			t.Fatalf("expected conflicts with a and b, got %v", ids)
		}
	})

	t.Run("excluded and inactive meetings are skipped", func(t *testing.T) {
		self := scheduled("a", meeting.TypeInPerson, "10:00", "11:00", "Room A", "Alice")
		cancelled := scheduled("b", meeting.TypeInPerson, "10:00", "11:00", "Room A", "Alice")
		cancelled.Status = meeting.StatusCancelled
		finished := scheduled("c", meeting.TypeInPerson, "10:00", "11:00", "Room A", "Alice")
		finished.Status = meeting.StatusFinished

		candidate := self.Clone()
		candidate.StartTime = "10:15"
		if got := DetectConflicts(candidate, []*meeting.Meeting{self, cancelled, finished}, "a"); len(got) != 0 {
			t.Fatalf("expected no conflicts, got %+v", got)
		}
	})

	t.Run("unresolvable schedules never conflict", func(t *testing.T) {
		existing := scheduled("a", meeting.TypeInPerson, "10:00", "11:00", "Room A", "Alice")
		existing.Date = ""
		candidate := scheduled("b", meeting.TypeInPerson, "10:00", "11:00", "Room A", "Alice")
		if got := DetectConflicts(candidate, []*meeting.Meeting{existing}, ""); len(got) != 0 {
			t.Fatalf("expected no conflicts, got %+v", got)
		}
	})

	t.Run("time overlap without shared resources is allowed", func(t *testing.T) {
		existing := scheduled("a", meeting.TypeInPerson, "10:00", "11:00", "Room A", "Alice, Bob")
		candidate := scheduled("b", meeting.TypeVirtual, "10:00", "11:00", "", "Dave")
		if got := DetectConflicts(candidate, []*meeting.Meeting{existing}, ""); len(got) != 0 {
			t.Fatalf("expected no conflicts, got %+v", got)
		}
	})
}

func TestOverlapsIsSymmetric(t *testing.T) {
	windows := [][2]string{
		{"09:00", "10:00"}, {"09:30", "10:30"}, {"10:00", "11:00"},
		{"08:00", "12:00"}, {"10:59", "11:15"}, {"", "10:00"},
	}
	for _, wa := range windows {
		for _, wb := range windows {
			a := scheduled("a", meeting.TypeInPerson, wa[0], wa[1], "Room A", "Alice")
			b := scheduled("b", meeting.TypeInPerson, wb[0], wb[1], "Room A", "Alice")
			if Overlaps(a, b) != Overlaps(b, a) {
				t.Fatalf("overlap not symmetric for %v and %v", wa, wb)
			}
		}
	}
}

func TestBackToBackMeetingsDoNotConflict(t *testing.T) {
	first := scheduled("a", meeting.TypeInPerson, "10:00", "11:00", "Room A", "Alice")
	second := scheduled("b", meeting.TypeInPerson, "11:00", "12:00", "Room A", "Alice")

	if Overlaps(first, second) {
		t.Fatalf("back-to-back meetings must not overlap")
	}
	if got := DetectConflicts(second, []*meeting.Meeting{first}, ""); len(got) != 0 {
		t.Fatalf("expected no conflicts, got %+v", got)
	}
	if got := DetectConflicts(first, []*meeting.Meeting{second}, ""); len(got) != 0 {
		t.Fatalf("expected no conflicts, got %+v", got)
	}
}

func TestVirtualMeetingsWithDisjointAttendeesNeverConflict(t *testing.T) {
	starts := []string{"08:00", "09:30", "10:00", "10:45"}
	for _, start := range starts {
		a := scheduled("a", meeting.TypeVirtual, "10:00", "11:00", "Zoom", "Alice, Bob")
		b := scheduled("b", meeting.TypeVirtual, start, "11:30", "Zoom", "Carol, Dave")
		if HasLocationConflict(a, b) || HasAttendeeConflict(a, b) {
			t.Fatalf("virtual meetings with disjoint attendees must not collide (start %s)", start)
		}
		if got := DetectConflicts(b, []*meeting.Meeting{a}, ""); len(got) != 0 {
			t.Fatalf("expected no conflicts for start %s, got %+v", start, got)
		}
	}
}

func TestHasLocationConflict(t *testing.T) {
	cases := []struct {
		name string
		a, b *meeting.Meeting
		want bool
	}{
		{
			name: "same room same type",
			a:    scheduled("a", meeting.TypeInPerson, "10:00", "11:00", "Room A", ""),
			b:    scheduled("b", meeting.TypeInPerson, "10:00", "11:00", "Room A", ""),
			want: true,
		},
		{
			name: "location is case sensitive",
			a:    scheduled("a", meeting.TypeInPerson, "10:00", "11:00", "Room A", ""),
			b:    scheduled("b", meeting.TypeInPerson, "10:00", "11:00", "room a", ""),
		},
		{
			name: "different type",
			a:    scheduled("a", meeting.TypeInPerson, "10:00", "11:00", "Office", ""),
			b:    scheduled("b", meeting.TypeDirectorOffice, "10:00", "11:00", "Office", ""),
		},
		{
			name: "empty location",
			a:    scheduled("a", meeting.TypeExecutiveOffice, "10:00", "11:00", "", ""),
			b:    scheduled("b", meeting.TypeExecutiveOffice, "10:00", "11:00", "", ""),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasLocationConflict(tc.a, tc.b); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
