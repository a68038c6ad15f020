package testfixtures

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/audit"
	"github.com/example/meeting-scheduler/internal/identity"
	"github.com/example/meeting-scheduler/internal/meeting"
)

// ErrStoreUnavailable is returned by MemoryStore when failures are injected.
var ErrStoreUnavailable = errors.New("testfixtures: store unavailable")

// MemoryStore keeps the last saved meeting snapshot in memory.
type MemoryStore struct {
	mu    sync.Mutex
	saved []*meeting.Meeting
	saves int
	fail  bool
}

// NewMemoryStore seeds the store with meetings.
func NewMemoryStore(seed ...*meeting.Meeting) *MemoryStore {
	s := &MemoryStore{}
	for _, m := range seed {
		s.saved = append(s.saved, m.Clone())
	}
	return s
}

// LoadAll returns copies of the stored meetings.
func (s *MemoryStore) LoadAll(_ context.Context) ([]*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, ErrStoreUnavailable
	}
	return cloneAll(s.saved), nil
}

// SaveAll replaces the stored snapshot.
func (s *MemoryStore) SaveAll(_ context.Context, meetings []*meeting.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return ErrStoreUnavailable
	}
	s.saved = cloneAll(meetings)
	s.saves++
	return nil
}

// FailWith makes subsequent calls fail (true) or succeed (false).
func (s *MemoryStore) FailWith(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

// Saved returns copies of the last saved snapshot.
func (s *MemoryStore) Saved() []*meeting.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.saved)
}

// Saves counts successful SaveAll calls.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func cloneAll(meetings []*meeting.Meeting) []*meeting.Meeting {
	out := make([]*meeting.Meeting, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, m.Clone())
	}
	return out
}

// AuditCall is one call received by AuditLog.
type AuditCall struct {
	Action      audit.Action
	Description string
	MeetingID   string
}

// AuditLog records audit calls and optionally fails them.
type AuditLog struct {
	mu    sync.Mutex
	calls []AuditCall
	Err   error
}

// Record implements the meeting service audit sink.
func (a *AuditLog) Record(_ context.Context, action audit.Action, description string, m *meeting.Meeting) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	call := AuditCall{Action: action, Description: description}
	if m != nil {
		call.MeetingID = m.ID
	}
	a.calls = append(a.calls, call)
	return a.Err
}

// Calls returns the recorded calls in order.
func (a *AuditLog) Calls() []AuditCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]AuditCall(nil), a.calls...)
}

// StaticIdentity always reports the same identity, or none when Absent is set.
type StaticIdentity struct {
	Identity identity.Identity
	Absent   bool
}

// CurrentIdentity implements the meeting service identity provider.
func (s StaticIdentity) CurrentIdentity(context.Context) (identity.Identity, bool) {
	if s.Absent {
		return identity.Identity{}, false
	}
	return s.Identity, true
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("mtg"),
		Location:    time.UTC,
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		if clock != nil {
			factory.Clock = clock
		}
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		if generator != nil {
			factory.IDGenerator = generator
		}
	}
}

// MeetingServiceDeps captures the collaborators of a meeting service. Nil
// fields are left nil in the service.
type MeetingServiceDeps struct {
	Store      application.MeetingStore
	Identities application.IdentityProvider
	Audit      application.AuditSink
	Logger     *slog.Logger
	Options    []application.Option
}

// NewMeetingService builds a meeting service using the factory clock and ids.
func (f *ServiceFactory) NewMeetingService(deps MeetingServiceDeps) *application.MeetingService {
	logger := deps.Logger
	if logger == nil {
		logger = DiscardLogger()
	}
	opts := []application.Option{
		application.WithClock(f.Clock.NowFunc()),
		application.WithIDGenerator(f.IDGenerator.NextFunc()),
		application.WithLocation(f.Location),
		application.WithLogger(logger),
	}
	opts = append(opts, deps.Options...)
	return application.NewMeetingService(deps.Store, deps.Identities, deps.Audit, opts...)
}
