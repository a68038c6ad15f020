package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/example/meeting-scheduler/internal/meeting"
	"github.com/example/meeting-scheduler/internal/persistence"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	storage, err := Open(filepath.Join(t.TempDir(), "scheduler.db"), logger)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	if err := storage.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return storage
}

func sampleMeeting(id, date, start string) *meeting.Meeting {
	now := time.Date(2030, 1, 1, 8, 30, 0, 123, time.UTC)
	m := meeting.New(id, meeting.Draft{
		Title:     "Planning " + id,
		Date:      date,
		StartTime: start,
		EndTime:   "11:00",
		Location:  "Sala 1",
		Organizer: "Despacho",
		Attendees: "Ana, Luis",
	}, "user-1", now)
	return m
}

func TestMeetingRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	storage := openTestStorage(t)
	ctx := context.Background()

	score := 4
	first := sampleMeeting("m-2", "2030-01-02", "10:00")
	first.FeedbackScore = &score
	first.Reminders = []int{5, 30}
	second := sampleMeeting("m-1", "2030-01-01", "09:00")
	second.Reminders = nil

	if err := storage.Meetings.SaveAll(ctx, []*meeting.Meeting{first, second}); err != nil {
		t.Fatalf("SaveAll returned error: %v", err)
	}

	loaded, err := storage.Meetings.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll returned error: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 meetings, got %d", len(loaded))
	}
	if loaded[0].ID != "m-1" || loaded[1].ID != "m-2" {
		t.Fatalf("expected chronological order, got %s, %s", loaded[0].ID, loaded[1].ID)
	}
	if !reflect.DeepEqual(loaded[1], first) {
		t.Fatalf("expected %+v, got %+v", first, loaded[1])
	}
	if !reflect.DeepEqual(loaded[0], second) {
		t.Fatalf("expected %+v, got %+v", second, loaded[0])
	}
}

func TestMeetingRepositorySaveAllReplacesSnapshot(t *testing.T) {
	t.Parallel()

	storage := openTestStorage(t)
	ctx := context.Background()

	if err := storage.Meetings.SaveAll(ctx, []*meeting.Meeting{
		sampleMeeting("a", "2030-01-01", "09:00"),
		sampleMeeting("b", "2030-01-01", "10:00"),
	}); err != nil {
		t.Fatalf("SaveAll returned error: %v", err)
	}
	if err := storage.Meetings.SaveAll(ctx, []*meeting.Meeting{sampleMeeting("c", "2030-01-03", "09:00")}); err != nil {
		t.Fatalf("SaveAll returned error: %v", err)
	}

	loaded, err := storage.Meetings.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll returned error: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "c" {
		t.Fatalf("expected only meeting c, got %+v", loaded)
	}
}

func TestMeetingRepositorySaveAllIsAtomic(t *testing.T) {
	t.Parallel()

	storage := openTestStorage(t)
	ctx := context.Background()

	original := sampleMeeting("keep", "2030-01-01", "09:00")
	if err := storage.Meetings.SaveAll(ctx, []*meeting.Meeting{original}); err != nil {
		t.Fatalf("SaveAll returned error: %v", err)
	}

	duplicate := []*meeting.Meeting{
		sampleMeeting("dup", "2030-01-01", "09:00"),
		sampleMeeting("dup", "2030-01-02", "09:00"),
	}
	err := storage.Meetings.SaveAll(ctx, duplicate)
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	loaded, err := storage.Meetings.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll returned error: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "keep" {
		t.Fatalf("expected previous snapshot to survive, got %+v", loaded)
	}
}

func TestMeetingRepositoryRejectsMissingID(t *testing.T) {
	t.Parallel()

	storage := openTestStorage(t)
	err := storage.Meetings.SaveAll(context.Background(), []*meeting.Meeting{sampleMeeting("", "2030-01-01", "09:00")})
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestAuditRepositoryListAndPrune(t *testing.T) {
	t.Parallel()

	storage := openTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		action := "create_meeting"
		if i%2 == 1 {
			action = "delete_meeting"
		}
		entry := persistence.AuditEntry{
			ID:          fmt.Sprintf("audit-%d", i),
			Action:      action,
			Severity:    "info",
			Description: fmt.Sprintf("entry %d", i),
			ActorID:     "user-1",
			MeetingID:   fmt.Sprintf("m-%d", i),
			CreatedAt:   time.Date(2030, 1, 1, 0, i, 0, 0, time.UTC).Format(persistence.TimestampLayout),
		}
		if err := storage.Audit.AppendAudit(ctx, entry); err != nil {
			t.Fatalf("AppendAudit returned error: %v", err)
		}
	}

	all, err := storage.Audit.ListAudit(ctx, persistence.AuditFilter{})
	if err != nil {
		t.Fatalf("ListAudit returned error: %v", err)
	}
	if len(all) != 5 || all[0].ID != "audit-4" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	deletes, err := storage.Audit.ListAudit(ctx, persistence.AuditFilter{Action: "delete_meeting", Limit: 1})
	if err != nil {
		t.Fatalf("ListAudit returned error: %v", err)
	}
	if len(deletes) != 1 || deletes[0].ID != "audit-3" {
		t.Fatalf("expected latest delete entry, got %+v", deletes)
	}

	removed, err := storage.Audit.PruneAudit(ctx, 2)
	if err != nil {
		t.Fatalf("PruneAudit returned error: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 entries removed, got %d", removed)
	}
	remaining, err := storage.Audit.ListAudit(ctx, persistence.AuditFilter{})
	if err != nil {
		t.Fatalf("ListAudit returned error: %v", err)
	}
	if len(remaining) != 2 || remaining[1].ID != "audit-3" {
		t.Fatalf("expected two newest entries, got %+v", remaining)
	}
}

func TestAuditRepositoryRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	storage := openTestStorage(t)
	ctx := context.Background()
	entry := persistence.AuditEntry{ID: "same", Action: "login", Severity: "info", CreatedAt: "2030-01-01T00:00:00Z"}
	if err := storage.Audit.AppendAudit(ctx, entry); err != nil {
		t.Fatalf("AppendAudit returned error: %v", err)
	}
	if err := storage.Audit.AppendAudit(ctx, entry); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUserRepositoryCRUD(t *testing.T) {
	t.Parallel()

	storage := openTestStorage(t)
	ctx := context.Background()
	stamp := "2030-01-01T00:00:00Z"

	user := persistence.User{
		ID:           "u-1",
		Email:        "  Ana@Example.com ",
		Name:         "Ana",
		Area:         "Despacho",
		Role:         "director",
		PasswordHash: "hash",
		Active:       true,
		CreatedAt:    stamp,
		UpdatedAt:    stamp,
	}
	if err := storage.Users.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	byEmail, err := storage.Users.GetUserByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail returned error: %v", err)
	}
	if byEmail.ID != "u-1" || byEmail.Email != "ana@example.com" || !byEmail.Active {
		t.Fatalf("unexpected user: %+v", byEmail)
	}

	duplicate := user
	duplicate.ID = "u-2"
	if err := storage.Users.CreateUser(ctx, duplicate); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	badRole := user
	badRole.ID = "u-3"
	badRole.Email = "other@example.com"
	badRole.Role = "janitor"
	if err := storage.Users.CreateUser(ctx, badRole); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}

	byEmail.Active = false
	byEmail.Name = "Ana María"
	if err := storage.Users.UpdateUser(ctx, byEmail); err != nil {
		t.Fatalf("UpdateUser returned error: %v", err)
	}
	updated, err := storage.Users.GetUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if updated.Active || updated.Name != "Ana María" {
		t.Fatalf("expected update to persist, got %+v", updated)
	}

	missing := byEmail
	missing.ID = "nope"
	if err := storage.Users.UpdateUser(ctx, missing); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := storage.Users.GetUser(ctx, "nope"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	users, err := storage.Users.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers returned error: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
}

func TestSessionRepositoryLifecycle(t *testing.T) {
	t.Parallel()

	storage := openTestStorage(t)
	ctx := context.Background()
	stamp := "2030-01-01T00:00:00Z"
	if err := storage.Users.CreateUser(ctx, persistence.User{
		ID: "u-1", Email: "ana@example.com", Role: "director", PasswordHash: "hash", Active: true, CreatedAt: stamp, UpdatedAt: stamp,
	}); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	issuedAt := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)
	live := persistence.Session{ID: "s-1", UserID: "u-1", TokenHash: "digest-live", ExpiresAt: issuedAt.Add(time.Hour).Unix(), CreatedAt: stamp}
	stale := persistence.Session{ID: "s-2", UserID: "u-1", TokenHash: "digest-stale", ExpiresAt: issuedAt.Add(-time.Minute).Unix(), CreatedAt: stamp}
	for _, s := range []persistence.Session{live, stale} {
		if err := storage.Sessions.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession(%s) returned error: %v", s.ID, err)
		}
	}

	duplicate := live
	duplicate.ID = "s-3"
	if err := storage.Sessions.CreateSession(ctx, duplicate); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for reused digest, got %v", err)
	}
	orphan := persistence.Session{ID: "s-4", UserID: "ghost", TokenHash: "digest-orphan", ExpiresAt: live.ExpiresAt, CreatedAt: stamp}
	if err := storage.Sessions.CreateSession(ctx, orphan); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for unknown user, got %v", err)
	}

	got, err := storage.Sessions.GetSession(ctx, "digest-live")
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if got.UserID != "u-1" || got.ExpiresAt != live.ExpiresAt || got.RevokedAt.Valid {
		t.Fatalf("unexpected session: %+v", got)
	}

	removed, err := storage.Sessions.DeleteExpiredSessions(ctx, issuedAt)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions returned error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 expired session removed, got %d", removed)
	}
	if _, err := storage.Sessions.GetSession(ctx, "digest-stale"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}

	first := issuedAt.Add(10 * time.Minute)
	if err := storage.Sessions.RevokeSession(ctx, "digest-live", first); err != nil {
		t.Fatalf("RevokeSession returned error: %v", err)
	}
	if err := storage.Sessions.RevokeSession(ctx, "digest-live", first.Add(time.Hour)); err != nil {
		t.Fatalf("second RevokeSession returned error: %v", err)
	}
	got, err = storage.Sessions.GetSession(ctx, "digest-live")
	if err != nil {
		t.Fatalf("GetSession returned error: %v", err)
	}
	if !got.RevokedAt.Valid || got.RevokedAt.String != first.Format(persistence.TimestampLayout) {
		t.Fatalf("expected first revocation time to be kept, got %+v", got.RevokedAt)
	}
	if err := storage.Sessions.RevokeSession(ctx, "digest-missing", first); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	storage := openTestStorage(t)
	if err := storage.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate returned error: %v", err)
	}
	if err := storage.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
}
