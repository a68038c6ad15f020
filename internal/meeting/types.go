package meeting

// Type identifies where a meeting takes place.
type Type string

const (
	// TypeInPerson is held in a shared meeting room.
	TypeInPerson Type = "in-person"
	// TypeVirtual is held online and never occupies physical space.
	TypeVirtual Type = "virtual"
	// TypeDirectorOffice is held in a director's office.
	TypeDirectorOffice Type = "director-office"
	// TypeExecutiveOffice is held in the executive office.
	TypeExecutiveOffice Type = "executive-office"
)

// Valid reports whether t is a known meeting type.
func (t Type) Valid() bool {
	switch t {
	case TypeInPerson, TypeVirtual, TypeDirectorOffice, TypeExecutiveOffice:
		return true
	}
	return false
}

// Priority ranks meetings for reporting.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status tracks the lifecycle of a meeting.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusInProgress  Status = "in-progress"
	StatusFinished    Status = "finished"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusFinished, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusScheduled, StatusInProgress, StatusFinished, StatusCancelled, StatusRescheduled}
}

// Priorities lists every priority from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

const (
	// MaxTitleLength bounds the title in characters.
	MaxTitleLength = 100
	// MaxDescriptionLength bounds the description in characters.
	MaxDescriptionLength = 500
	// MinDurationMinutes is the shortest meeting that may be scheduled.
	MinDurationMinutes = 15
	// MaxDurationMinutes is the longest meeting that may be scheduled.
	MaxDurationMinutes = 480
	// DefaultReminderMinutes is applied when a meeting carries no reminders.
	DefaultReminderMinutes = 15
)
