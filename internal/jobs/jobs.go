// Package jobs runs the periodic maintenance of the meeting calendar: the
// retention cleanup and the reminder sweep.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/robfig/cron/v3"

	"github.com/example/meeting-scheduler/internal/application"
)

const (
	sentReminderCapacity = 4096
	sentReminderTTL      = 24 * time.Hour
)

// Maintainer is the part of the meeting service the jobs drive.
type Maintainer interface {
	Cleanup(ctx context.Context, days int) (application.CleanupResult, error)
	DueReminders(ctx context.Context, now time.Time) ([]application.Reminder, error)
}

// Notifier delivers a due reminder.
type Notifier interface {
	Notify(ctx context.Context, reminder application.Reminder) error
}

// LogNotifier writes reminders to the log.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(ctx context.Context, r application.Reminder) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "meeting reminder due",
		"meeting_id", r.MeetingID,
		"title", r.Title,
		"minutes_before", r.MinutesBefore,
		"starts_at", r.StartsAt,
		"attendees", r.Attendees,
	)
	return nil
}

// Config selects when each job runs. Schedules use the standard five field
// cron syntax or descriptors such as "@daily" and "@every 1m". An empty
// schedule disables the job.
type Config struct {
	Location         *time.Location
	CleanupSchedule  string
	CleanupAfterDays int
	ReminderSchedule string
}

// Scheduler owns the cron runner and the jobs registered on it.
type Scheduler struct {
	cron        *cron.Cron
	maintainer  Maintainer
	notifier    Notifier
	cleanupDays int
	sent        *expirable.LRU[string, struct{}]
	now         func() time.Time
	logger      *slog.Logger
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithNotifier replaces the log notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Scheduler) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides the clock the reminder sweep evaluates against.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New registers the cleanup and reminder jobs. It fails when a schedule does
// not parse.
func New(m Maintainer, cfg Config, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	if m == nil {
		return nil, fmt.Errorf("jobs: maintainer is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	adapter := cronLogger{logger: logger.With("component", "cron")}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		maintainer:  m,
		notifier:    LogNotifier{Logger: logger},
		cleanupDays: cfg.CleanupAfterDays,
		sent:        expirable.NewLRU[string, struct{}](sentReminderCapacity, nil, sentReminderTTL),
		now:         time.Now,
		logger:      logger.With("component", "jobs"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.CleanupSchedule != "" {
		if _, err := s.cron.AddFunc(cfg.CleanupSchedule, func() { s.RunCleanup(context.Background()) }); err != nil {
			return nil, fmt.Errorf("jobs: cleanup schedule %q: %w", cfg.CleanupSchedule, err)
		}
	}
	if cfg.ReminderSchedule != "" {
		if _, err := s.cron.AddFunc(cfg.ReminderSchedule, func() { s.RunReminderSweep(context.Background()) }); err != nil {
			return nil, fmt.Errorf("jobs: reminder schedule %q: %w", cfg.ReminderSchedule, err)
		}
	}
	return s, nil
}

// Jobs returns how many jobs are registered.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start runs the jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("job scheduler started", "jobs", s.Jobs())
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("job scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("jobs: stop: %w", ctx.Err())
	}
}

// RunCleanup removes finished meetings past the retention horizon.
func (s *Scheduler) RunCleanup(ctx context.Context) {
	result, err := s.maintainer.Cleanup(ctx, s.cleanupDays)
	if err != nil {
		s.logger.ErrorContext(ctx, "cleanup job failed", "error", err, "error_kind", application.ErrorKind(err))
		return
	}
	s.logger.InfoContext(ctx, "cleanup job finished", "removed", len(result.Removed), "cutoff", result.Cutoff)
}

// RunReminderSweep notifies every reminder whose window is open. A reminder
// is notified once per meeting start and offset.
func (s *Scheduler) RunReminderSweep(ctx context.Context) int {
	due, err := s.maintainer.DueReminders(ctx, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "reminder sweep failed", "error", err)
		return 0
	}

	notified := 0
	for _, r := range due {
		key := fmt.Sprintf("%s|%d|%d", r.MeetingID, r.MinutesBefore, r.StartsAt.Unix())
		if s.sent.Contains(key) {
			continue
		}
		if err := s.notifier.Notify(ctx, r); err != nil {
			s.logger.WarnContext(ctx, "failed to deliver reminder", "meeting_id", r.MeetingID, "error", err)
			continue
		}
		s.sent.Add(key, struct{}{})
		notified++
	}
	return notified
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
