package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/meeting-scheduler/internal/persistence"
)

// AuditRepository implements persistence.AuditRepository using SQLite
type AuditRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

var _ persistence.AuditRepository = (*AuditRepository)(nil)

// NewAuditRepository creates a new SQLite audit repository
func NewAuditRepository(pool *ConnectionPool) *AuditRepository {
	return &AuditRepository{pool: pool, mapper: NewErrorMapper()}
}

// AppendAudit stores a new audit entry.
func (r *AuditRepository) AppendAudit(ctx context.Context, entry persistence.AuditEntry) error {
	if entry.ID == "" || entry.Action == "" {
		return persistence.ErrConstraintViolation
	}
	query := `
		INSERT INTO audit_log (id, action, severity, description, actor_id, actor_area, meeting_id, details, created_at)
		VALUES (:id, :action, :severity, :description, :actor_id, :actor_area, :meeting_id, :details, :created_at)
	`
	if _, err := r.pool.DB().NamedExecContext(ctx, query, entry); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// ListAudit returns entries newest first.
func (r *AuditRepository) ListAudit(ctx context.Context, filter persistence.AuditFilter) ([]persistence.AuditEntry, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.ActorID != "" {
		clauses = append(clauses, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.MeetingID != "" {
		clauses = append(clauses, "meeting_id = ?")
		args = append(args, filter.MeetingID)
	}

	var b strings.Builder
	b.WriteString(`SELECT id, action, severity, description, actor_id, actor_area, meeting_id, details, created_at FROM audit_log`)
	if len(clauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}
	b.WriteString(" ORDER BY seq DESC")
	if filter.Limit > 0 {
		b.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
	}

	var entries []persistence.AuditEntry
	if err := r.pool.DB().SelectContext(ctx, &entries, b.String(), args...); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return entries, nil
}

// PruneAudit keeps only the newest keep entries and reports how many were removed.
func (r *AuditRepository) PruneAudit(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := r.pool.DB().ExecContext(ctx,
		`DELETE FROM audit_log WHERE seq NOT IN (SELECT seq FROM audit_log ORDER BY seq DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return removed, nil
}
