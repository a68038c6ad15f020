package identity

import (
	"context"
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
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrAccountDisabled    = errors.New("identity: account disabled")
	ErrEmailTaken         = errors.New("identity: email already registered")
	ErrInvalidUser        = errors.New("identity: invalid user")
)

// Registration describes a new directory user.
type Registration struct {
	Email    string
	Name     string
	Area     string
	Role     Role
	Password string
}

// Directory authenticates users stored in a persistence.UserRepository.
type Directory struct {
	users  persistence.UserRepository
	params Argon2idParams
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// NewDirectory wires the user store. A nil logger falls back to slog.Default.
func NewDirectory(users persistence.UserRepository, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		users:  users,
		params: DefaultArgon2idParams,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger,
	}
}

// WithHashParams overrides the argon2id parameters used for new hashes.
func (d *Directory) WithHashParams(params Argon2idParams) *Directory {
	d.params = params
	return d
}

func (d *Directory) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = d.logger
	}
	pairs := append([]any{"service", "Directory", "operation", operation}, attrs...)
	return logger.With(pairs...)
}

// Register validates and stores a new user with a hashed password.
func (d *Directory) Register(ctx context.Context, reg Registration) (id Identity, err error) {
	email := normalizeEmail(reg.Email)
	logger := d.loggerWith(ctx, "Register", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register user", "error", err)
			return
		}
		logger.InfoContext(ctx, "user registered", "user_id", id.ID, "role", id.Role)
	}()

	if email == "" || !strings.Contains(email, "@") || reg.Password == "" || !reg.Role.Valid() {
		err = ErrInvalidUser
		return
	}

	hash, err := HashPassword(reg.Password, d.params)
	if err != nil {
		return
	}

	stamp := d.now().UTC().Format(persistence.TimestampLayout)
	user := persistence.User{
		ID:           d.newID(),
		Email:        email,
		Name:         strings.TrimSpace(reg.Name),
		Area:         strings.TrimSpace(reg.Area),
		Role:         string(reg.Role),
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    stamp,
		UpdatedAt:    stamp,
	}
	if err = d.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			err = ErrEmailTaken
		}
		return
	}

	id = fromUser(user)
	return
}

// Authenticate verifies the password of an active user.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (id Identity, err error) {
	email = normalizeEmail(email)
	logger := d.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "authentication failed", "error", err)
			return
		}
		logger.InfoContext(ctx, "authentication succeeded", "user_id", id.ID)
	}()

	if email == "" || password == "" {
		err = ErrInvalidCredentials
		return
	}

	user, err := d.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}
	if !user.Active {
		err = ErrAccountDisabled
		return
	}
	if err = VerifyPassword(user.PasswordHash, password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	id = fromUser(user)
	return
}

// Lookup returns the identity of the user with the given id.
func (d *Directory) Lookup(ctx context.Context, userID string) (Identity, error) {
	user, err := d.users.GetUser(ctx, userID)
	if err != nil {
		return Identity{}, err
	}
	return fromUser(user), nil
}

// SetActive enables or disables a user account.
func (d *Directory) SetActive(ctx context.Context, userID string, active bool) error {
	user, err := d.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	user.Active = active
	user.UpdatedAt = d.now().UTC().Format(persistence.TimestampLayout)
	return d.users.UpdateUser(ctx, user)
}

// EnsureAdmin registers the bootstrap administrator unless one with that
// email already exists. It reports whether a user was created.
func (d *Directory) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := d.users.GetUserByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, persistence.ErrNotFound):
		return false, fmt.Errorf("lookup bootstrap admin: %w", err)
	}

	if _, err := d.Register(ctx, Registration{
		Email:    email,
		Name:     "Administrator",
		Role:     RoleAdmin,
		Password: password,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// List returns every directory user as an identity.
func (d *Directory) List(ctx context.Context) ([]Identity, error) {
	users, err := d.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]Identity, 0, len(users))
	for _, u := range users {
		ids = append(ids, fromUser(u))
	}
	return ids, nil
}

func fromUser(u persistence.User) Identity {
	return Identity{ID: u.ID, Email: u.Email, Name: u.Name, Area: u.Area, Role: Role(u.Role)}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
