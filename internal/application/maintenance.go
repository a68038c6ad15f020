package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/example/meeting-scheduler/internal/audit"
	"github.com/example/meeting-scheduler/internal/meeting"
	"github.com/example/meeting-scheduler/internal/temporal"
)

// DefaultCleanupDays is how long finished meetings are kept.
const DefaultCleanupDays = 90

// Cleanup removes finished meetings dated more than days before today.
func (s *MeetingService) Cleanup(ctx context.Context, days int) (result CleanupResult, err error) {
	if s == nil {
		return CleanupResult{}, fmt.Errorf("MeetingService is nil")
	}
	if days <= 0 {
		days = DefaultCleanupDays
	}
	logger := s.loggerWith(ctx, "Cleanup", "days", days)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to clean up meetings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meetings cleaned up", "removed", len(result.Removed), "cutoff", result.Cutoff)
	}()

	result, err = s.cleanup(ctx, days)
	if err != nil {
		return CleanupResult{}, err
	}
	if len(result.Removed) > 0 {
		s.recordAudit(ctx, audit.ActionCleanupMeetings,
			fmt.Sprintf("removed %d finished meetings dated before %s", len(result.Removed), result.Cutoff), nil)
	}
	return result, nil
}

func (s *MeetingService) cleanup(ctx context.Context, days int) (CleanupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff, err := temporal.AddDays(temporal.Today(s.now(), s.location), -days)
	if err != nil {
		return CleanupResult{}, err
	}
	result := CleanupResult{Cutoff: cutoff, Removed: []string{}}

	next := s.snapshotLocked()
	for id, m := range s.meetings {
		if m.Status == meeting.StatusFinished && m.Date < cutoff {
			delete(next, id)
			result.Removed = append(result.Removed, id)
		}
	}
	if len(result.Removed) == 0 {
		return result, nil
	}
	sort.Strings(result.Removed)

	if err := s.persistLocked(ctx, "cleanup", next); err != nil {
		return CleanupResult{}, err
	}
	s.meetings = next
	s.cache.Invalidate()
	return result, nil
}

// DueReminders lists the reminders whose window is open at now, ordered by
// meeting start.
func (s *MeetingService) DueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	if s == nil {
		return nil, fmt.Errorf("MeetingService is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Reminder
	for _, m := range s.existingLocked() {
		for _, minutes := range m.Reminders {
			if !m.NeedsReminder(minutes, now, s.location) {
				continue
			}
			start, _ := m.Start(s.location)
			due = append(due, Reminder{
				MeetingID:     m.ID,
				Title:         m.Title,
				Attendees:     m.AttendeeList(),
				MinutesBefore: minutes,
				StartsAt:      start,
			})
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].StartsAt.Equal(due[j].StartsAt) {
			return due[i].StartsAt.Before(due[j].StartsAt)
		}
		return due[i].MinutesBefore > due[j].MinutesBefore
	})
	s.loggerWith(ctx, "DueReminders").DebugContext(ctx, "reminders evaluated", "due", len(due))
	return due, nil
}
