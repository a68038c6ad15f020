package persistence

import (
	"context"
	"time"

	"github.com/example/meeting-scheduler/internal/meeting"
)

// MeetingRepository stores the whole meeting collection.
type MeetingRepository interface {
	LoadAll(ctx context.Context) ([]*meeting.Meeting, error)
	SaveAll(ctx context.Context, meetings []*meeting.Meeting) error
}

// AuditFilter narrows audit queries. Zero values match everything.
type AuditFilter struct {
	Action    string
	ActorID   string
	MeetingID string
	Limit     int
}

// AuditRepository appends and lists audit entries, newest first.
type AuditRepository interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
	PruneAudit(ctx context.Context, keep int) (int64, error)
}

// UserRepository exposes CRUD operations for directory users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// SessionRepository stores login sessions keyed by token digest.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, tokenHash string) (Session, error)
	RevokeSession(ctx context.Context, tokenHash string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}
