package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

const sessionColumns = `id, user_id, token_hash, expires_at, revoked_at, created_at`

// SessionRepository implements persistence.SessionRepository using SQLite
type SessionRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

var _ persistence.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SQLite session repository
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool, mapper: NewErrorMapper()}
}

// CreateSession stores a newly issued session
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	session.TokenHash = strings.TrimSpace(session.TokenHash)
	if session.ID == "" || session.UserID == "" || session.TokenHash == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (:id, :user_id, :token_hash, :expires_at, :revoked_at, :created_at)
	`
	if _, err := r.pool.DB().NamedExecContext(ctx, query, session); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetSession retrieves a session by its token digest
func (r *SessionRepository) GetSession(ctx context.Context, tokenHash string) (persistence.Session, error) {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	var session persistence.Session
	if err := r.pool.DB().GetContext(ctx, &session, `SELECT `+sessionColumns+` FROM sessions WHERE token_hash = ?`, tokenHash); err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return session, nil
}

// RevokeSession marks a session as revoked. Revoking twice keeps the first
// revocation time.
func (r *SessionRepository) RevokeSession(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return persistence.ErrNotFound
	}
	result, err := r.pool.DB().ExecContext(ctx,
		`UPDATE sessions SET revoked_at = COALESCE(revoked_at, ?) WHERE token_hash = ?`,
		revokedAt.UTC().Format(persistence.TimestampLayout), tokenHash,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired on or before reference
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, reference.Unix())
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return removed, nil
}
