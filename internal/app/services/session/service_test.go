package session

import (
	"context"
	"testing"

	"github.com/sarkhq/console/internal/app/domain/messaging"
	"github.com/sarkhq/console/internal/app/domain/session"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/internal/app/storage/kv"
	"github.com/sarkhq/console/internal/app/storage/persist"
	"github.com/sarkhq/console/pkg/logger"
)

func newService(t *testing.T) (*Service, *persist.Writer, kv.Backend) {
	t.Helper()
	ctx := context.Background()
	backend := kv.NewMemory()
	writer := persist.NewWriter(backend, persist.WriterOptions{}, logger.NewNop())
	slot := persist.NewSlot[session.User](backend, storage.KeyCurrentUser, logger.NewNop())
	def := session.User{AdminID: 1, Name: "Alex", Email: "alex@example.com", Role: "SysAdmin"}
	return New(persist.Bind(ctx, slot, def, writer), logger.NewNop()), writer, backend
}

func TestUpdateProfilePersists(t *testing.T) {
	svc, writer, backend := newService(t)
	ctx := context.Background()

	if _, err := svc.UpdateProfile(ctx, session.User{Name: "Alex", Email: "nope"}); err == nil {
		t.Fatalf("expected email validation error")
	}

	updated, err := svc.UpdateProfile(ctx, session.User{AdminID: 9, Name: " Alex M ", Email: "alex.m@example.com", Bio: "hi"})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.AdminID != 1 || updated.Name != "Alex M" {
		t.Fatalf("unexpected profile %+v", updated)
	}
	if err := writer.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if _, err := backend.Get(ctx, storage.KeyCurrentUser); err != nil {
		t.Fatalf("expected persisted user: %v", err)
	}
	if got := svc.Reload(ctx); got.Bio != "hi" {
		t.Fatalf("reload lost profile: %+v", got)
	}
}

func TestFlags(t *testing.T) {
	svc, _, _ := newService(t)

	svc.SetLoading(true)
	if !svc.Loading() {
		t.Fatalf("expected loading")
	}
	svc.SetTyping(4, true)
	if !svc.Typing(4) || svc.Typing(5) {
		t.Fatalf("unexpected typing state")
	}
	svc.SetTyping(4, false)
	if svc.Typing(4) {
		t.Fatalf("typing should clear")
	}

	if svc.ActivePlatform() != messaging.PlatformDefault {
		t.Fatalf("expected default platform")
	}
	if err := svc.SetActivePlatform("WhatsApp"); err != nil {
		t.Fatalf("set platform: %v", err)
	}
	if svc.ActivePlatform() != messaging.PlatformWhatsApp {
		t.Fatalf("expected whatsapp")
	}
	if err := svc.SetActivePlatform("telegram"); err == nil {
		t.Fatalf("expected unknown platform error")
	}
}
