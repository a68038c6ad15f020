package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/meeting-scheduler/internal/logging"
	"github.com/example/meeting-scheduler/internal/persistence"
)

var (
	ErrSessionInvalid = errors.New("identity: session not recognized")
	ErrSessionExpired = errors.New("identity: session expired")
	ErrSessionRevoked = errors.New("identity: session revoked")
)

// DefaultSessionTTL is the lifetime of a session when none is configured.
const DefaultSessionTTL = 12 * time.Hour

const tokenBytes = 32

// Session is an issued bearer token. The plain token is only available here;
// storage keeps its SHA-256 digest.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Identity  `json:"user"`
}

// Sessions issues and verifies login sessions. Verifying a token costs one
// indexed lookup, so protected requests never rehash passwords.
type Sessions struct {
	store  persistence.SessionRepository
	users  persistence.UserRepository
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// NewSessions wires the session and user stores. A non-positive ttl falls
// back to DefaultSessionTTL.
func NewSessions(store persistence.SessionRepository, users persistence.UserRepository, ttl time.Duration, logger *slog.Logger) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{
		store:  store,
		users:  users,
		ttl:    ttl,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger,
	}
}

// WithClock overrides the time source.
func (s *Sessions) WithClock(now func() time.Time) *Sessions {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Sessions) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContextOr(ctx, s.logger)
	pairs := append([]any{"service", "Sessions", "operation", operation}, attrs...)
	return logger.With(pairs...)
}

// Issue creates a session for an authenticated user. Expired sessions are
// swept first so the table stays bounded by active logins.
func (s *Sessions) Issue(ctx context.Context, who Identity) (session Session, err error) {
	if s == nil {
		return Session{}, fmt.Errorf("Sessions is nil")
	}
	logger := s.loggerWith(ctx, "Issue", "user_id", who.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to issue session", "error", err)
			return
		}
		logger.InfoContext(ctx, "session issued", "expires_at", session.ExpiresAt)
	}()

	if who.ID == "" {
		err = ErrSessionInvalid
		return
	}

	now := s.now().UTC()
	if _, err = s.store.DeleteExpiredSessions(ctx, now); err != nil {
		return
	}

	token, err := newToken()
	if err != nil {
		return
	}
	expiresAt := now.Add(s.ttl).Truncate(time.Second)
	if err = s.store.CreateSession(ctx, persistence.Session{
		ID:        s.newID(),
		UserID:    who.ID,
		TokenHash: HashToken(token),
		ExpiresAt: expiresAt.Unix(),
		CreatedAt: now.Format(persistence.TimestampLayout),
	}); err != nil {
		return
	}

	session = Session{Token: token, ExpiresAt: expiresAt, User: who}
	return
}

// Validate resolves the identity behind token. Disabled accounts lose their
// sessions immediately.
func (s *Sessions) Validate(ctx context.Context, token string) (who Identity, err error) {
	if s == nil {
		return Identity{}, fmt.Errorf("Sessions is nil")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrSessionInvalid
	}

	row, err := s.store.GetSession(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Identity{}, ErrSessionInvalid
		}
		return Identity{}, err
	}
	if row.RevokedAt.Valid {
		return Identity{}, ErrSessionRevoked
	}
	if s.now().Unix() >= row.ExpiresAt {
		return Identity{}, ErrSessionExpired
	}

	user, err := s.users.GetUser(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Identity{}, ErrSessionInvalid
		}
		return Identity{}, err
	}
	if !user.Active {
		return Identity{}, ErrAccountDisabled
	}
	return fromUser(user), nil
}

// Revoke ends the session behind token. Unknown tokens report ErrSessionInvalid.
func (s *Sessions) Revoke(ctx context.Context, token string) (err error) {
	if s == nil {
		return fmt.Errorf("Sessions is nil")
	}
	logger := s.loggerWith(ctx, "Revoke")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "failed to revoke session", "error", err)
			return
		}
		logger.InfoContext(ctx, "session revoked")
	}()

	err = s.store.RevokeSession(ctx, HashToken(strings.TrimSpace(token)), s.now())
	if errors.Is(err, persistence.ErrNotFound) {
		err = ErrSessionInvalid
	}
	return
}

// HashToken returns the hex SHA-256 digest under which a token is stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
