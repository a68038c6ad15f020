package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/audit"
	"github.com/example/meeting-scheduler/internal/config"
	httptransport "github.com/example/meeting-scheduler/internal/http"
	"github.com/example/meeting-scheduler/internal/identity"
	"github.com/example/meeting-scheduler/internal/jobs"
	"github.com/example/meeting-scheduler/internal/logging"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logging.New(os.Stdout, "info")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = logging.New(os.Stdout, cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
}

// app holds the wired components of the scheduler process.
type app struct {
	storage   *sqlite.Storage
	meetings  *application.MeetingService
	directory *identity.Directory
	sessions  *identity.Sessions
	recorder  *audit.Recorder
	jobs      *jobs.Scheduler
	handler   http.Handler
}

// newApp opens storage, bootstraps the administrator, loads the calendar
// and builds the HTTP handler.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", cfg.Timezone, err)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a := &app{storage: storage}
	fail := func(err error) (*app, error) {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
		return nil, err
	}

	if err := storage.Migrate(ctx); err != nil {
		return fail(fmt.Errorf("apply migrations: %w", err))
	}

	a.directory = identity.NewDirectory(storage.Users, logger)
	created, err := a.directory.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return fail(fmt.Errorf("bootstrap administrator: %w", err))
	}
	if created {
		logger.Info("bootstrap administrator created", "email", cfg.AdminEmail)
	}

	a.sessions = identity.NewSessions(storage.Sessions, storage.Users, cfg.SessionTTL, logger)

	a.recorder = audit.NewRecorder(storage.Audit,
		audit.WithMaxEntries(cfg.AuditMaxEntries),
		audit.WithLogger(logger),
	)

	a.meetings = application.NewMeetingService(storage.Meetings, identity.ContextProvider{}, a.recorder,
		application.WithLogger(logger),
		application.WithLocation(loc),
		application.WithAreas(cfg.Areas...),
		application.WithCache(cfg.CacheTTL, cfg.CacheMaxEntries),
	)
	if err := a.meetings.Load(ctx); err != nil {
		return fail(fmt.Errorf("load meetings: %w", err))
	}

	a.jobs, err = jobs.New(a.meetings, jobs.Config{
		Location:         loc,
		CleanupSchedule:  cfg.CleanupSchedule,
		CleanupAfterDays: cfg.CleanupAfterDays,
		ReminderSchedule: cfg.ReminderSchedule,
	}, logger)
	if err != nil {
		return fail(err)
	}

	var fallback func(http.Handler) http.Handler
	if cfg.BasicAuth {
		fallback = httptransport.RequireBasicAuth(a.directory, "meeting-scheduler", logger)
	}

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Meetings:     httptransport.NewMeetingHandler(a.meetings, logger),
		Auth:         httptransport.NewAuthHandler(a.directory, a.sessions, a.recorder, logger),
		Admin:        httptransport.NewAdminHandler(a.recorder, a.directory, logger),
		Authenticate: httptransport.RequireSession(a.sessions, fallback, logger),
		Health:       storage.Ping,
		Middleware:   []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
		Logger:       logger,
	})
	return a, nil
}

func (a *app) Close() error {
	return a.storage.Close()
}

// run serves the API until ctx is cancelled, then drains requests and jobs.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.jobs.Start()
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("scheduler API listening", "addr", server.Addr, "timezone", cfg.Timezone)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = a.jobs.Stop(context.Background())
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("failed to shutdown server", "error", err)
	}
	if err := a.jobs.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop jobs", "error", err)
	}
	logger.Info("scheduler stopped")
	return nil
}
