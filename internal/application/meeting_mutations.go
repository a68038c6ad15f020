package application

import (
	"context"
	"fmt"
	"time"

	"github.com/example/meeting-scheduler/internal/audit"
	"github.com/example/meeting-scheduler/internal/meeting"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

const systemActor = "system"

// Create validates the draft, checks it against every scheduled meeting and
// stores it with a fresh id.
func (s *MeetingService) Create(ctx context.Context, draft meeting.Draft) (created *meeting.Meeting, err error) {
	if s == nil {
		return nil, fmt.Errorf("MeetingService is nil")
	}
	logger := s.loggerWith(ctx, "Create", "title", draft.Title, "date", draft.Date)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting created", "meeting_id", created.ID)
	}()

	created, err = s.create(ctx, draft)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, audit.ActionCreateMeeting, fmt.Sprintf("created meeting %q", created.Title), created)
	return created, nil
}

func (s *MeetingService) create(ctx context.Context, draft meeting.Draft) (*meeting.Meeting, error) {
	createdBy := systemActor
	if who, ok := s.currentIdentity(ctx); ok && who.ID != "" {
		createdBy = who.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	candidate := meeting.New("", draft, createdBy, now)
	if result := candidate.Validate(s.policy(now)); !result.Valid() {
		return nil, validationErrorFrom(result)
	}
	if conflicts := scheduler.DetectConflicts(candidate, s.existingLocked(), ""); len(conflicts) > 0 {
		return nil, &ConflictError{Conflicts: conflicts}
	}

	candidate.ID = s.newID()
	next := s.snapshotLocked()
	next[candidate.ID] = candidate
	if err := s.persistLocked(ctx, "create", next); err != nil {
		return nil, err
	}
	s.meetings = next
	s.cache.Invalidate()
	return candidate.Clone(), nil
}

// Update applies patch to the meeting after checking permission, validation
// and, when the patch moves the meeting or changes its resources, conflicts
// with every other scheduled meeting. A meeting whose start has passed can no
// longer be edited. Status only changes through Cancel and Complete.
func (s *MeetingService) Update(ctx context.Context, id string, patch meeting.Patch) (updated *meeting.Meeting, err error) {
	if s == nil {
		return nil, fmt.Errorf("MeetingService is nil")
	}
	logger := s.loggerWith(ctx, "Update", "meeting_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting updated", "schedule_changed", patch.TouchesSchedule())
	}()

	updated, err = s.update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, audit.ActionEditMeeting, fmt.Sprintf("edited meeting %q", updated.Title), updated)
	return updated, nil
}

func (s *MeetingService) update(ctx context.Context, id string, patch meeting.Patch) (*meeting.Meeting, error) {
	who, ok := s.currentIdentity(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	live, exists := s.meetings[id]
	if !exists {
		return nil, ErrNotFound
	}
	if !canModify(who, ok, live) {
		return nil, ErrUnauthorized
	}

	now := s.now()
	working := live.Clone()
	working.Update(patch, now)

	if result := working.Validate(s.policy(now)); !result.Valid() {
		return nil, validationErrorFrom(result)
	}

	recheck := patch.TouchesSchedule() || patch.TouchesResources()
	if recheck && working.Status == meeting.StatusScheduled {
		if conflicts := scheduler.DetectConflicts(working, s.existingLocked(), id); len(conflicts) > 0 {
			return nil, &ConflictError{Conflicts: conflicts}
		}
	}

	next := s.snapshotLocked()
	next[id] = working
	if err := s.persistLocked(ctx, "update", next); err != nil {
		return nil, err
	}
	live.Update(patch, now)
	s.cache.Invalidate()
	return live.Clone(), nil
}

// Delete removes the meeting whatever its status.
func (s *MeetingService) Delete(ctx context.Context, id string) (deleted bool, err error) {
	if s == nil {
		return false, fmt.Errorf("MeetingService is nil")
	}
	logger := s.loggerWith(ctx, "Delete", "meeting_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting deleted")
	}()

	removed, err := s.delete(ctx, id)
	if err != nil {
		return false, err
	}
	s.recordAudit(ctx, audit.ActionDeleteMeeting, fmt.Sprintf("deleted meeting %q", removed.Title), removed)
	return true, nil
}

func (s *MeetingService) delete(ctx context.Context, id string) (*meeting.Meeting, error) {
	who, ok := s.currentIdentity(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	live, exists := s.meetings[id]
	if !exists {
		return nil, ErrNotFound
	}
	if !canModify(who, ok, live) {
		return nil, ErrUnauthorized
	}

	next := s.snapshotLocked()
	delete(next, id)
	if err := s.persistLocked(ctx, "delete", next); err != nil {
		return nil, err
	}
	s.meetings = next
	s.cache.Invalidate()
	return live.Clone(), nil
}

// Cancel marks the meeting cancelled with reason. Cancelling an already
// cancelled meeting succeeds and refreshes the reason.
func (s *MeetingService) Cancel(ctx context.Context, id, reason string) (cancelled *meeting.Meeting, err error) {
	if s == nil {
		return nil, fmt.Errorf("MeetingService is nil")
	}
	logger := s.loggerWith(ctx, "Cancel", "meeting_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting cancelled")
	}()

	cancelled, err = s.transition(ctx, id, "cancel", func(m *meeting.Meeting, now time.Time) {
		m.Cancel(reason, now)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, audit.ActionCancelMeeting, fmt.Sprintf("cancelled meeting %q: %s", cancelled.Title, reason), cancelled)
	return cancelled, nil
}

// Complete marks the meeting finished.
func (s *MeetingService) Complete(ctx context.Context, id string) (completed *meeting.Meeting, err error) {
	if s == nil {
		return nil, fmt.Errorf("MeetingService is nil")
	}
	logger := s.loggerWith(ctx, "Complete", "meeting_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to complete meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting completed")
	}()

	completed, err = s.transition(ctx, id, "complete", func(m *meeting.Meeting, now time.Time) {
		m.MarkAsCompleted(now)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, audit.ActionCompleteMeeting, fmt.Sprintf("completed meeting %q", completed.Title), completed)
	return completed, nil
}

// transition applies a status change that can never introduce a conflict,
// so it skips validation and conflict detection.
func (s *MeetingService) transition(ctx context.Context, id, op string, apply func(*meeting.Meeting, time.Time)) (*meeting.Meeting, error) {
	who, ok := s.currentIdentity(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	live, exists := s.meetings[id]
	if !exists {
		return nil, ErrNotFound
	}
	if !canModify(who, ok, live) {
		return nil, ErrUnauthorized
	}

	now := s.now()
	working := live.Clone()
	apply(working, now)

	next := s.snapshotLocked()
	next[id] = working
	if err := s.persistLocked(ctx, op, next); err != nil {
		return nil, err
	}
	apply(live, now)
	s.cache.Invalidate()
	return live.Clone(), nil
}
