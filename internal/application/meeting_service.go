package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/meeting-scheduler/internal/audit"
	"github.com/example/meeting-scheduler/internal/identity"
	"github.com/example/meeting-scheduler/internal/meeting"
	"github.com/example/meeting-scheduler/internal/recurrence"
	"github.com/example/meeting-scheduler/internal/temporal"
)

// MeetingService owns the canonical meeting collection. Every public
// operation holds one mutex from the first read to the final swap, so the
// conflict check and the mutation it guards are never interleaved.
type MeetingService struct {
	mu       sync.Mutex
	meetings map[string]*meeting.Meeting

	store      MeetingStore
	identities IdentityProvider
	audit      AuditSink

	cache      *queryCache
	cacheTTL   time.Duration
	cacheSize  int
	recurrence *recurrence.Engine
	now        func() time.Time
	newID      func() string
	location   *time.Location
	areas      []string
	logger     *slog.Logger
}

// Option customises a MeetingService.
type Option func(*MeetingService)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *MeetingService) { s.logger = defaultLogger(logger) }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *MeetingService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides meeting id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *MeetingService) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithLocation sets the time zone meeting dates and times are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *MeetingService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithAreas restricts organizers to the given organizational area codes.
func WithAreas(areas ...string) Option {
	return func(s *MeetingService) {
		s.areas = append([]string(nil), areas...)
	}
}

// WithCache tunes the query cache. Non-positive values keep the defaults.
func WithCache(ttl time.Duration, maxEntries int) Option {
	return func(s *MeetingService) {
		s.cacheTTL = ttl
		s.cacheSize = maxEntries
	}
}

// NewMeetingService wires the collaborators of the meeting service. Any of
// them may be nil: a nil store keeps meetings in memory only, a nil identity
// provider denies every permission check and a nil audit sink records nothing.
func NewMeetingService(store MeetingStore, identities IdentityProvider, sink AuditSink, opts ...Option) *MeetingService {
	s := &MeetingService{
		meetings:   make(map[string]*meeting.Meeting),
		store:      store,
		identities: identities,
		audit:      sink,
		now:        time.Now,
		newID:      uuid.NewString,
		location:   time.UTC,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = newQueryCache(s.cacheTTL, s.cacheSize)
	s.recurrence = recurrence.NewEngine(s.location)
	return s
}

func (s *MeetingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MeetingService", operation, attrs...)
}

// Location returns the time zone the service evaluates meetings in.
func (s *MeetingService) Location() *time.Location {
	return s.location
}

// Load replaces the in-memory collection with the stored one.
func (s *MeetingService) Load(ctx context.Context) (err error) {
	if s == nil {
		return fmt.Errorf("MeetingService is nil")
	}
	logger := s.loggerWith(ctx, "Load")
	var count int
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load meetings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meetings loaded", "count", count)
	}()

	if s.store == nil {
		return nil
	}
	loaded, err := s.store.LoadAll(ctx)
	if err != nil {
		return &PersistenceError{Op: "load", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings = make(map[string]*meeting.Meeting, len(loaded))
	for _, m := range loaded {
		if m == nil || m.ID == "" {
			continue
		}
		s.meetings[m.ID] = m.Clone()
	}
	count = len(s.meetings)
	s.cache.Invalidate()
	return nil
}

// List returns detached copies of the meetings matching filter, ordered by
// date, start time and id.
func (s *MeetingService) List(ctx context.Context, filter Filter) ([]*meeting.Meeting, error) {
	if s == nil {
		return nil, fmt.Errorf("MeetingService is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(ctx, filter), nil
}

func (s *MeetingService) listLocked(ctx context.Context, filter Filter) []*meeting.Meeting {
	key := filter.cacheKey()
	if cached, ok := s.cache.Get(key); ok {
		s.loggerWith(ctx, "List").DebugContext(ctx, "query cache hit", "filter", key, "count", len(cached))
		return cached
	}

	matched := make([]*meeting.Meeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		if filter.matches(m) {
			matched = append(matched, m.Clone())
		}
	}
	sortMeetings(matched)
	s.cache.Store(key, matched)
	return matched
}

// GetByID returns a detached copy of the meeting or ErrNotFound.
func (s *MeetingService) GetByID(ctx context.Context, id string) (*meeting.Meeting, error) {
	if s == nil {
		return nil, fmt.Errorf("MeetingService is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.Clone(), nil
}

// GetByDateRange lists meetings dated between from and to inclusive.
func (s *MeetingService) GetByDateRange(ctx context.Context, from, to string) ([]*meeting.Meeting, error) {
	vErr := &ValidationError{}
	if _, err := temporal.ParseDate(from); err != nil {
		vErr.add("dateFrom", "invalid start date: "+from)
	}
	if _, err := temporal.ParseDate(to); err != nil {
		vErr.add("dateTo", "invalid end date: "+to)
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	return s.List(ctx, Filter{DateFrom: from, DateTo: to})
}

// GetUpcoming lists meetings dated from today through today plus days,
// whatever their status.
func (s *MeetingService) GetUpcoming(ctx context.Context, days int) ([]*meeting.Meeting, error) {
	if days < 0 {
		days = 0
	}
	today := temporal.Today(s.now(), s.location)
	until, err := temporal.AddDays(today, days)
	if err != nil {
		return nil, err
	}
	return s.GetByDateRange(ctx, today, until)
}

// Search lists meetings whose title, description or agenda contain query,
// ignoring case.
func (s *MeetingService) Search(ctx context.Context, query string) ([]*meeting.Meeting, error) {
	return s.List(ctx, Filter{Search: query})
}

// Stats aggregates every meeting by status, priority and organizer.
func (s *MeetingService) Stats(ctx context.Context) (Stats, error) {
	all, err := s.List(ctx, Filter{})
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Total:       len(all),
		ByStatus:    make(map[meeting.Status]int),
		ByPriority:  make(map[meeting.Priority]int),
		ByOrganizer: make(map[string]int),
	}
	today := temporal.Today(s.now(), s.location)
	for _, m := range all {
		stats.ByStatus[m.Status]++
		stats.ByPriority[m.Priority]++
		stats.ByOrganizer[m.Organizer]++
		if m.Date == today && m.Status == meeting.StatusScheduled {
			stats.TodayScheduled++
		}
	}
	return stats, nil
}

func (s *MeetingService) policy(now time.Time) meeting.Policy {
	return meeting.Policy{Now: now, Location: s.location, Areas: s.areas}
}

func (s *MeetingService) currentIdentity(ctx context.Context) (identity.Identity, bool) {
	if s.identities == nil {
		return identity.Identity{}, false
	}
	return s.identities.CurrentIdentity(ctx)
}

// persistLocked saves the post-mutation snapshot. The caller applies the
// mutation to memory only when this succeeds.
func (s *MeetingService) persistLocked(ctx context.Context, op string, snapshot map[string]*meeting.Meeting) error {
	if s.store == nil {
		return nil
	}
	all := make([]*meeting.Meeting, 0, len(snapshot))
	for _, m := range snapshot {
		all = append(all, m.Clone())
	}
	sortMeetings(all)
	if err := s.store.SaveAll(ctx, all); err != nil {
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

// snapshotLocked returns a shallow copy of the collection for building the
// post-mutation state.
func (s *MeetingService) snapshotLocked() map[string]*meeting.Meeting {
	next := make(map[string]*meeting.Meeting, len(s.meetings)+1)
	for id, m := range s.meetings {
		next[id] = m
	}
	return next
}

func (s *MeetingService) existingLocked() []*meeting.Meeting {
	out := make([]*meeting.Meeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		out = append(out, m)
	}
	sortMeetings(out)
	return out
}

func (s *MeetingService) recordAudit(ctx context.Context, action audit.Action, description string, m *meeting.Meeting) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, action, description, m); err != nil {
		s.loggerWith(ctx, "recordAudit", "action", action).WarnContext(ctx, "failed to record audit entry", "error", err)
	}
}

func validationErrorFrom(result meeting.Result) *ValidationError {
	vErr := &ValidationError{}
	for _, v := range result.Violations {
		vErr.add(v.Field, v.Message)
	}
	return vErr
}
