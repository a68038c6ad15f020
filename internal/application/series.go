package application

import (
	"context"
	"fmt"

	"github.com/example/meeting-scheduler/internal/audit"
	"github.com/example/meeting-scheduler/internal/meeting"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

// CreateSeries expands req.Rule from the draft's date and stores one meeting
// per occurrence. Every occurrence is validated and checked against the
// calendar and its siblings; if any fails, nothing is stored. The first
// occurrence is the parent of the others.
func (s *MeetingService) CreateSeries(ctx context.Context, req SeriesRequest) (created []*meeting.Meeting, err error) {
	if s == nil {
		return nil, fmt.Errorf("MeetingService is nil")
	}
	logger := s.loggerWith(ctx, "CreateSeries", "title", req.Draft.Title, "rule", req.Rule)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create meeting series", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meeting series created", "count", len(created), "parent_id", created[0].ID)
	}()

	created, err = s.createSeries(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, m := range created {
		s.recordAudit(ctx, audit.ActionCreateMeeting, fmt.Sprintf("created meeting %q (series occurrence %s)", m.Title, m.Date), m)
	}
	return created, nil
}

func (s *MeetingService) createSeries(ctx context.Context, req SeriesRequest) ([]*meeting.Meeting, error) {
	occurrences, err := s.recurrence.Expand(req.Rule, req.Draft.Date, req.Draft.StartTime, req.Limit)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("recurrence", err.Error())
		return nil, vErr
	}

	createdBy := systemActor
	if who, ok := s.currentIdentity(ctx); ok && who.ID != "" {
		createdBy = who.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	policy := s.policy(now)
	existing := s.existingLocked()
	series := make([]*meeting.Meeting, 0, len(occurrences))
	vErr := &ValidationError{}
	var conflicts []scheduler.Conflict

	for _, occ := range occurrences {
		draft := req.Draft
		draft.Date = occ.Date
		draft.Recurrence = req.Rule
		candidate := meeting.New("", draft, createdBy, now)

		if result := candidate.Validate(policy); !result.Valid() {
			for _, v := range result.Violations {
				vErr.add(v.Field, occ.Date+": "+v.Message)
			}
			continue
		}
		conflicts = append(conflicts, scheduler.DetectConflicts(candidate, existing, "")...)
		conflicts = append(conflicts, scheduler.DetectConflicts(candidate, series, "")...)
		series = append(series, candidate)
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	if len(conflicts) > 0 {
		return nil, &ConflictError{Conflicts: conflicts}
	}

	next := s.snapshotLocked()
	var parentID string
	for i, m := range series {
		m.ID = s.newID()
		if i == 0 {
			parentID = m.ID
		} else {
			m.ParentMeetingID = parentID
		}
		next[m.ID] = m
	}
	if err := s.persistLocked(ctx, "create_series", next); err != nil {
		return nil, err
	}
	s.meetings = next
	s.cache.Invalidate()
	return cloneMeetings(series), nil
}
