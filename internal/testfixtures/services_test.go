package testfixtures

import (
	"context"
	"errors"
	"testing"

	"github.com/example/meeting-scheduler/internal/identity"
)

func TestServiceFactoryNewMeetingService(t *testing.T) {
	factory := NewServiceFactory()
	store := NewMemoryStore()
	auditLog := &AuditLog{}

	svc := factory.NewMeetingService(MeetingServiceDeps{
		Store:      store,
		Identities: StaticIdentity{Identity: identity.Identity{ID: "user-1", Area: "finance"}},
		Audit:      auditLog,
	})

	created, err := svc.Create(context.Background(), NewDraft())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != "mtg-1" {
		t.Fatalf("expected generated ID mtg-1, got %q", created.ID)
	}
	if !created.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), created.CreatedAt)
	}
	if created.CreatedBy != "user-1" {
		t.Fatalf("expected creator from identity, got %q", created.CreatedBy)
	}
	if saved := store.Saved(); len(saved) != 1 || saved[0].ID != "mtg-1" {
		t.Fatalf("expected store to receive the meeting, got %+v", saved)
	}
	if calls := auditLog.Calls(); len(calls) != 1 || calls[0].MeetingID != "mtg-1" {
		t.Fatalf("expected one audit call, got %+v", calls)
	}
}

func TestMemoryStoreFailureInjection(t *testing.T) {
	store := NewMemoryStore(NewMeeting("seed"))
	store.FailWith(true)
	if _, err := store.LoadAll(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	store.FailWith(false)
	loaded, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll returned error: %v", err)
	}
	loaded[0].Title = "mutated"
	if store.Saved()[0].Title == "mutated" {
		t.Fatalf("expected store to hand out copies")
	}
}
