package application

import (
	"github.com/example/meeting-scheduler/internal/identity"
	"github.com/example/meeting-scheduler/internal/meeting"
)

// canModify reports whether who may change m: administrators, members of the
// organizing area and the meeting's creator.
func canModify(who identity.Identity, ok bool, m *meeting.Meeting) bool {
	if !ok || m == nil {
		return false
	}
	if who.IsAdmin() {
		return true
	}
	if who.Area != "" && who.Area == m.Organizer {
		return true
	}
	return who.ID != "" && who.ID == m.CreatedBy
}
