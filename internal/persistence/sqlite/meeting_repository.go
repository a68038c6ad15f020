package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/meeting-scheduler/internal/meeting"
	"github.com/example/meeting-scheduler/internal/persistence"
)

const meetingColumns = `id, title, description, type, date, start_time, end_time, location, organizer,
	attendees, external_emails, agenda, notes, priority, status, created_at, updated_at, created_by,
	reminders, recurrence, parent_meeting_id, cancel_reason, feedback_score, feedback_comments`

const insertMeetingSQL = `
	INSERT INTO meetings (` + meetingColumns + `)
	VALUES (:id, :title, :description, :type, :date, :start_time, :end_time, :location, :organizer,
		:attendees, :external_emails, :agenda, :notes, :priority, :status, :created_at, :updated_at, :created_by,
		:reminders, :recurrence, :parent_meeting_id, :cancel_reason, :feedback_score, :feedback_comments)
`

// MeetingRepository implements persistence.MeetingRepository using SQLite.
// The collection is saved as a whole snapshot.
type MeetingRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

var _ persistence.MeetingRepository = (*MeetingRepository)(nil)

// NewMeetingRepository creates a new SQLite meeting repository
func NewMeetingRepository(pool *ConnectionPool) *MeetingRepository {
	return &MeetingRepository{pool: pool, mapper: NewErrorMapper()}
}

// LoadAll returns every stored meeting ordered by date, start time and id.
func (r *MeetingRepository) LoadAll(ctx context.Context) ([]*meeting.Meeting, error) {
	var rows []persistence.Meeting
	query := `SELECT ` + meetingColumns + ` FROM meetings ORDER BY date ASC, start_time ASC, id ASC`
	if err := r.pool.DB().SelectContext(ctx, &rows, query); err != nil {
		return nil, r.mapper.MapError(err)
	}

	meetings := make([]*meeting.Meeting, 0, len(rows))
	for _, row := range rows {
		m, err := row.Domain()
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, nil
}

// SaveAll replaces the stored collection with meetings in one transaction.
func (r *MeetingRepository) SaveAll(ctx context.Context, meetings []*meeting.Meeting) error {
	rows := make([]persistence.Meeting, 0, len(meetings))
	for _, m := range meetings {
		if m == nil || m.ID == "" {
			return persistence.ErrConstraintViolation
		}
		row, err := persistence.MeetingFromDomain(m)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	return r.pool.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM meetings`); err != nil {
			return r.mapper.MapError(err)
		}
		if len(rows) == 0 {
			return nil
		}
		stmt, err := tx.PrepareNamedContext(ctx, insertMeetingSQL)
		if err != nil {
			return fmt.Errorf("prepare meeting insert: %w", err)
		}
		defer stmt.Close()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, row); err != nil {
				return r.mapper.MapError(err)
			}
		}
		return nil
	})
}
