package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/meeting-scheduler/internal/audit"
	"github.com/example/meeting-scheduler/internal/identity"
	"github.com/example/meeting-scheduler/internal/meeting"
	"github.com/example/meeting-scheduler/internal/testfixtures"
)

type account struct {
	password string
	who      identity.Identity
	disabled bool
}

type authenticatorStub map[string]account

func (s authenticatorStub) Authenticate(ctx context.Context, email, password string) (identity.Identity, error) {
	acct, ok := s[email]
	if !ok || acct.password != password {
		return identity.Identity{}, identity.ErrInvalidCredentials
	}
	if acct.disabled {
		return identity.Identity{}, identity.ErrAccountDisabled
	}
	return acct.who, nil
}

var testAccounts = authenticatorStub{
	"fin@example.com":   {password: "fin-pass", who: identity.Identity{ID: "u-fin", Email: "fin@example.com", Area: "finance", Role: identity.RoleDirector}},
	"ops@example.com":   {password: "ops-pass", who: identity.Identity{ID: "u-ops", Email: "ops@example.com", Area: "ops", Role: identity.RoleCoordinator}},
	"admin@example.com": {password: "admin-pass", who: identity.Identity{ID: "u-admin", Email: "admin@example.com", Role: identity.RoleAdmin}},
	"off@example.com":   {password: "off-pass", who: identity.Identity{ID: "u-off"}, disabled: true},
}

type sessionStoreStub struct {
	mu       sync.Mutex
	tokens   map[string]identity.Identity
	disabled map[string]bool
	issued   int
}

func newSessionStoreStub() *sessionStoreStub {
	return &sessionStoreStub{tokens: map[string]identity.Identity{}, disabled: map[string]bool{}}
}

func (s *sessionStoreStub) Issue(ctx context.Context, who identity.Identity) (identity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	token := fmt.Sprintf("tok-%s-%d", who.ID, s.issued)
	s.tokens[token] = who
	return identity.Session{Token: token, ExpiresAt: time.Date(2030, 3, 14, 20, 0, 0, 0, time.UTC), User: who}, nil
}

func (s *sessionStoreStub) Validate(ctx context.Context, token string) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	who, ok := s.tokens[token]
	if !ok {
		return identity.Identity{}, identity.ErrSessionInvalid
	}
	if s.disabled[who.ID] {
		return identity.Identity{}, identity.ErrAccountDisabled
	}
	return who, nil
}

func (s *sessionStoreStub) Revoke(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token]; !ok {
		return identity.ErrSessionInvalid
	}
	delete(s.tokens, token)
	return nil
}

type auditLogStub struct {
	entries  []audit.Entry
	logins   []string
	lastSeen audit.Query
}

func (a *auditLogStub) List(ctx context.Context, q audit.Query) ([]audit.Entry, error) {
	a.lastSeen = q
	return a.entries, nil
}

func (a *auditLogStub) RecordDetails(ctx context.Context, action audit.Action, description, meetingID string, details map[string]string) error {
	who, _ := identity.FromContext(ctx)
	a.logins = append(a.logins, who.ID)
	return nil
}

type directoryStub struct {
	users  []identity.Identity
	active map[string]bool
}

func (d *directoryStub) List(ctx context.Context) ([]identity.Identity, error) { return d.users, nil }

func (d *directoryStub) Register(ctx context.Context, reg identity.Registration) (identity.Identity, error) {
	if !strings.Contains(reg.Email, "@") {
		return identity.Identity{}, identity.ErrInvalidUser
	}
	for _, u := range d.users {
		if u.Email == reg.Email {
			return identity.Identity{}, identity.ErrEmailTaken
		}
	}
	created := identity.Identity{ID: "u-new", Email: reg.Email, Area: reg.Area, Role: reg.Role}
	d.users = append(d.users, created)
	return created, nil
}

func (d *directoryStub) SetActive(ctx context.Context, userID string, active bool) error {
	if d.active == nil {
		d.active = map[string]bool{}
	}
	d.active[userID] = active
	return nil
}

type apiHarness struct {
	handler http.Handler
	store    *testfixtures.MemoryStore
	audit    *auditLogStub
	sessions *sessionStoreStub
	logs    *bytes.Buffer
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))
	store := testfixtures.NewMemoryStore()
	svc := testfixtures.NewServiceFactory().NewMeetingService(testfixtures.MeetingServiceDeps{
		Store:      store,
		Identities: identity.ContextProvider{},
		Audit:      &testfixtures.AuditLog{},
	})
	auditLog := &auditLogStub{entries: []audit.Entry{{ID: "a-1", Action: audit.ActionCreateMeeting}}}
	sessions := newSessionStoreStub()

	handler := NewRouter(RouterConfig{
		Meetings:     NewMeetingHandler(svc, logger),
		Auth:         NewAuthHandler(testAccounts, sessions, auditLog, logger),
		Admin:        NewAdminHandler(auditLog, &directoryStub{users: []identity.Identity{{ID: "u-fin", Email: "fin@example.com"}}}, logger),
		Authenticate: RequireSession(sessions, RequireBasicAuth(testAccounts, "meetings", logger), logger),
		Health:       func(context.Context) error { return nil },
		Middleware:   []func(http.Handler) http.Handler{RequestLogger(logger)},
		Logger:       logger,
	})
	return &apiHarness{handler: handler, store: store, audit: auditLog, sessions: sessions, logs: logs}
}

func (h *apiHarness) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.SetBasicAuth(user, testAccounts[user].password)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func budgetDraft() meeting.Draft {
	return testfixtures.NewDraft(
		testfixtures.WithTitle("Budget Review"),
		testfixtures.WithPlace(meeting.TypeInPerson, "Room A"),
		testfixtures.WithAttendees("Alice, Bob"),
	)
}

func TestMeetingHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create, conflict, update and lifecycle", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		rec := h.do(t, http.MethodPost, "/meetings", "fin@example.com", budgetDraft())
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		created := decode[meeting.Meeting](t, rec)
		if created.ID != "mtg-1" || created.CreatedBy != "u-fin" {
			t.Fatalf("unexpected meeting: %+v", created)
		}

		clash := testfixtures.NewDraft(
			testfixtures.WithOrganizer("ops"),
			testfixtures.WithPlace(meeting.TypeInPerson, "Room A"),
			testfixtures.WithWindow(created.Date, "10:30", "11:30"),
		)
		rec = h.do(t, http.MethodPost, "/meetings", "ops@example.com", clash)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
		conflict := decode[errorResponse](t, rec)
		if conflict.ErrorCode != "SCHEDULE_CONFLICT" || len(conflict.Conflicts) != 1 || conflict.Conflicts[0].Title != "Budget Review" {
			t.Fatalf("expected conflict naming Budget Review, got %+v", conflict)
		}

		rec = h.do(t, http.MethodPatch, "/meetings/mtg-1", "ops@example.com", map[string]string{"title": "Hijacked"})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for another area, got %d", rec.Code)
		}

		rec = h.do(t, http.MethodPatch, "/meetings/mtg-1", "fin@example.com", map[string]string{"startTime": "12:00", "endTime": "13:00", "id": "forged"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		moved := decode[meeting.Meeting](t, rec)
		if moved.ID != "mtg-1" || moved.StartTime != "12:00" {
			t.Fatalf("expected moved meeting with original id, got %+v", moved)
		}

		rec = h.do(t, http.MethodPost, "/meetings/mtg-1/cancel", "admin@example.com", map[string]string{"reason": "budget frozen"})
		if rec.Code != http.StatusOK || decode[meeting.Meeting](t, rec).Status != meeting.StatusCancelled {
			t.Fatalf("expected cancelled meeting, got %d: %s", rec.Code, rec.Body.String())
		}

		rec = h.do(t, http.MethodPost, "/meetings/mtg-1/complete", "fin@example.com", nil)
		if rec.Code != http.StatusOK || decode[meeting.Meeting](t, rec).Status != meeting.StatusFinished {
			t.Fatalf("expected finished meeting, got %d: %s", rec.Code, rec.Body.String())
		}

		rec = h.do(t, http.MethodDelete, "/meetings/mtg-1", "fin@example.com", nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		rec = h.do(t, http.MethodGet, "/meetings/mtg-1", "fin@example.com", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 after delete, got %d", rec.Code)
		}
	})

	t.Run("cancel accepts an empty or chunked body", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		cases := []struct {
			name   string
			body   io.Reader
			status int
		}{
			{name: "no body", status: http.StatusOK},
			{name: "chunked empty body", body: strings.NewReader(""), status: http.StatusOK},
			{name: "malformed body", body: strings.NewReader("{"), status: http.StatusBadRequest},
		}
		for _, tc := range cases {
			rec := h.do(t, http.MethodPost, "/meetings", "fin@example.com", budgetDraft())
			if rec.Code != http.StatusCreated {
				t.Fatalf("%s: expected 201, got %d: %s", tc.name, rec.Code, rec.Body.String())
			}
			id := decode[meeting.Meeting](t, rec).ID

			req := httptest.NewRequest(http.MethodPost, "/meetings/"+id+"/cancel", tc.body)
			if tc.body != nil {
				req.ContentLength = -1
			}
			req.SetBasicAuth("fin@example.com", testAccounts["fin@example.com"].password)
			rec = httptest.NewRecorder()
			h.handler.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.status, rec.Code, rec.Body.String())
			}

			rec = h.do(t, http.MethodDelete, "/meetings/"+id, "fin@example.com", nil)
			if rec.Code != http.StatusNoContent {
				t.Fatalf("%s: expected cleanup to succeed, got %d", tc.name, rec.Code)
			}
		}
	})

	t.Run("reports every validation error", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		rec := h.do(t, http.MethodPost, "/meetings", "fin@example.com", meeting.Draft{ExternalEmails: "nope"})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		body := decode[errorResponse](t, rec)
		for _, field := range []string{"title", "date", "attendees", "externalEmails"} {
			if body.Errors[field] == "" {
				t.Fatalf("expected error for %s, got %v", field, body.Errors)
			}
		}
		if len(body.Messages) < 4 {
			t.Fatalf("expected every message, got %v", body.Messages)
		}
	})

	t.Run("rejects malformed bodies and queries", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/meetings", strings.NewReader("{"))
		req.SetBasicAuth("fin@example.com", "fin-pass")
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for malformed JSON, got %d", rec.Code)
		}

		if rec := h.do(t, http.MethodGet, "/meetings/upcoming?days=soon", "fin@example.com", nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad days, got %d", rec.Code)
		}
		if rec := h.do(t, http.MethodGet, "/meetings/range?from=tomorrow&to=2030-03-20", "fin@example.com", nil); rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for bad range, got %d", rec.Code)
		}
	})

	t.Run("queries", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		drafts := []meeting.Draft{
			testfixtures.NewDraft(testfixtures.WithTitle("Forecast"), testfixtures.WithWindow(testfixtures.ReferenceDate(1), "09:00", "10:00")),
			testfixtures.NewDraft(testfixtures.WithTitle("Retro"), testfixtures.WithOrganizer("ops"), testfixtures.WithWindow(testfixtures.ReferenceDate(3), "09:00", "10:00")),
			testfixtures.NewDraft(testfixtures.WithTitle("Offsite"), testfixtures.WithWindow(testfixtures.ReferenceDate(30), "09:00", "10:00")),
		}
		for _, d := range drafts {
			if rec := h.do(t, http.MethodPost, "/meetings", "admin@example.com", d); rec.Code != http.StatusCreated {
				t.Fatalf("setup create failed: %d %s", rec.Code, rec.Body.String())
			}
		}

		cases := []struct {
			path  string
			count int
		}{
			{path: "/meetings", count: 3},
			{path: "/meetings?organizer=ops", count: 1},
			{path: "/meetings?from=" + testfixtures.ReferenceDate(2), count: 2},
			{path: "/meetings/upcoming", count: 2},
			{path: "/meetings/upcoming?days=60", count: 3},
			{path: "/meetings/range?from=" + testfixtures.ReferenceDate(0) + "&to=" + testfixtures.ReferenceDate(3), count: 2},
			{path: "/meetings/search?q=retro", count: 1},
		}
		for _, tc := range cases {
			rec := h.do(t, http.MethodGet, tc.path, "ops@example.com", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("%s: expected 200, got %d", tc.path, rec.Code)
			}
			if got := decode[listResponse](t, rec).Count; got != tc.count {
				t.Fatalf("%s: expected %d meetings, got %d", tc.path, tc.count, got)
			}
		}

		rec := h.do(t, http.MethodGet, "/meetings/stats", "ops@example.com", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for stats, got %d", rec.Code)
		}
		var stats struct {
			Total       int            `json:"total"`
			ByOrganizer map[string]int `json:"byOrganizer"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("failed to decode stats: %v", err)
		}
		if stats.Total != 3 || stats.ByOrganizer["finance"] != 2 {
			t.Fatalf("unexpected stats: %+v", stats)
		}
	})

	t.Run("creates a series", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		body := map[string]any{
			"title":     "Weekly Sync",
			"date":      testfixtures.ReferenceDate(1),
			"startTime": "15:00",
			"endTime":   "15:30",
			"organizer": "finance",
			"attendees": "Alice",
			"rule":      "FREQ=WEEKLY;COUNT=3",
		}
		rec := h.do(t, http.MethodPost, "/meetings/series", "fin@example.com", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		series := decode[listResponse](t, rec)
		if series.Count != 3 || series.Meetings[2].ParentMeetingID != series.Meetings[0].ID {
			t.Fatalf("unexpected series: %+v", series)
		}
	})

	t.Run("maps storage failures to 503", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)
		h.store.FailWith(true)

		rec := h.do(t, http.MethodPost, "/meetings", "fin@example.com", budgetDraft())
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		if decode[errorResponse](t, rec).ErrorCode != "STORAGE_UNAVAILABLE" {
			t.Fatalf("expected storage error code, got %s", rec.Body.String())
		}
	})
}

func TestAuthHandlers(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/login", "", loginRequest{Email: "FIN@example.com ", Password: "fin-pass"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	session := decode[identity.Session](t, rec)
	if session.Token == "" || session.User.ID != "u-fin" {
		t.Fatalf("unexpected session: %+v", session)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != session.Token || !cookie.HttpOnly || !cookie.Secure {
		t.Fatalf("expected secure session cookie, got %+v", cookie)
	}
	if len(h.audit.logins) != 1 || h.audit.logins[0] != "u-fin" {
		t.Fatalf("expected login to be audited for u-fin, got %v", h.audit.logins)
	}

	rec = h.do(t, http.MethodPost, "/login", "", loginRequest{Email: "fin@example.com", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = h.do(t, http.MethodPost, "/login", "", loginRequest{Email: "off@example.com", Password: "off-pass"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for disabled account, got %d", rec.Code)
	}
	if h.sessions.issued != 1 {
		t.Fatalf("expected failed logins to issue no session, got %d", h.sessions.issued)
	}

	withToken := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+session.Token)
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)
		return rec
	}

	rec = withToken(http.MethodGet, "/me")
	if rec.Code != http.StatusOK || decode[identity.Identity](t, rec).ID != "u-fin" {
		t.Fatalf("expected fin identity from token, got %d: %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected cookie to authenticate, got %d", rec.Code)
	}

	rec = h.do(t, http.MethodGet, "/me", "ops@example.com", nil)
	if rec.Code != http.StatusOK || decode[identity.Identity](t, rec).Area != "ops" {
		t.Fatalf("expected basic fallback to yield ops identity, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec = withToken(http.MethodPost, "/logout"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on logout, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec = withToken(http.MethodGet, "/me"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to be rejected, got %d", rec.Code)
	}
	if rec = withToken(http.MethodPost, "/logout"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected second logout to be rejected, got %d", rec.Code)
	}
	if rec = h.do(t, http.MethodPost, "/logout", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected logout without token to be rejected, got %d", rec.Code)
	}
}

func TestAdminHandlers(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)

	if rec := h.do(t, http.MethodGet, "/audit", "fin@example.com", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}

	rec := h.do(t, http.MethodGet, "/audit?action=create_meeting&limit=5", "admin@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decode[auditResponse](t, rec).Count != 1 {
		t.Fatalf("expected one entry, got %s", rec.Body.String())
	}
	if h.audit.lastSeen.Action != audit.ActionCreateMeeting || h.audit.lastSeen.Limit != 5 {
		t.Fatalf("expected query to be forwarded, got %+v", h.audit.lastSeen)
	}
	if rec := h.do(t, http.MethodGet, "/audit?limit=-1", "admin@example.com", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}

	rec = h.do(t, http.MethodPost, "/users", "admin@example.com", userRequest{Email: "new@example.com", Role: identity.RoleAssistant, Password: "pw"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = h.do(t, http.MethodPost, "/users", "admin@example.com", userRequest{Email: "fin@example.com", Role: identity.RoleAssistant, Password: "pw"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}
	rec = h.do(t, http.MethodPost, "/users", "admin@example.com", userRequest{Email: "broken", Password: "pw"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for invalid user, got %d", rec.Code)
	}

	rec = h.do(t, http.MethodPut, "/users/u-fin/active", "admin@example.com", activeRequest{Active: false})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = h.do(t, http.MethodGet, "/users", "admin@example.com", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "new@example.com") {
		t.Fatalf("expected registered user in listing, got %s", rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	healthy := NewRouter(RouterConfig{})
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	failing := NewRouter(RouterConfig{
		Health: func(context.Context) error { return errors.New("database locked") },
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
