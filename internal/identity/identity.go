// Package identity resolves who is acting on the calendar: directory users,
// their organizational area and role, and the context plumbing that carries the
// authenticated identity into the meeting service.
package identity

import "context"

// Role classifies directory users.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleDirector    Role = "director"
	RoleCoordinator Role = "coordinator"
	RoleAssistant   Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDirector, RoleCoordinator, RoleAssistant:
		return true
	}
	return false
}

// Identity is the acting user as seen by the meeting service.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Area  string `json:"area"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the identity may act on every meeting.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type contextKey struct{}

// WithIdentity returns a derived context that carries the acting identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts an identity previously attached to the context.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// ContextProvider resolves the current identity from the request context.
type ContextProvider struct{}

// CurrentIdentity implements the meeting service identity collaborator.
func (ContextProvider) CurrentIdentity(ctx context.Context) (Identity, bool) {
	return FromContext(ctx)
}
