package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/meeting-scheduler/internal/persistence"
)

const userColumns = `id, email, name, area, role, password_hash, active, created_at, updated_at`

// UserRepository implements persistence.UserRepository using SQLite
type UserRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

var _ persistence.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new SQLite user repository
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool, mapper: NewErrorMapper()}
}

// CreateUser inserts a new user into the database
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}
	user.Email = normalizeEmail(user.Email)

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (:id, :email, :name, :area, :role, :password_hash, :active, :created_at, :updated_at)
	`
	if _, err := r.pool.DB().NamedExecContext(ctx, query, user); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// UpdateUser updates an existing user in the database
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}
	user.Email = normalizeEmail(user.Email)

	query := `
		UPDATE users
		SET email = :email, name = :name, area = :area, role = :role, password_hash = :password_hash,
			active = :active, updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.pool.DB().NamedExecContext(ctx, query, user)
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

// GetUser retrieves a user by ID from the database
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	var user persistence.User
	if err := r.pool.DB().GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address from the database
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	if email == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	var user persistence.User
	if err := r.pool.DB().GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email)); err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	return user, nil
}

// ListUsers returns all users ordered by creation timestamp then ID
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	var users []persistence.User
	if err := r.pool.DB().SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
