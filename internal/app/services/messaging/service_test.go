package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sarkhq/console/internal/app/chance"
	"github.com/sarkhq/console/internal/app/domain/admin"
	"github.com/sarkhq/console/internal/app/domain/messaging"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/internal/app/storage/memory"
	"github.com/sarkhq/console/internal/app/timers"
	"github.com/sarkhq/console/pkg/logger"
	"github.com/sarkhq/console/pkg/testutil"
)

type fixture struct {
	svc      *Service
	store    *memory.Store
	presence *testutil.Presence
	timers   *timers.Scheduler
	contact  admin.Administrator
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	contact, err := store.CreateAdmin(context.Background(), admin.Administrator{Name: "Priya Shah", Email: "priya@example.com", Role: admin.RoleSupport, Status: admin.StatusActive})
	if err != nil {
		t.Fatalf("seed contact: %v", err)
	}
	sched := timers.New(logger.NewNop())
	t.Cleanup(func() { _ = sched.Stop(context.Background()) })
	p := testutil.NewPresence(messaging.PlatformWhatsApp)
	opts := Options{ReplyDelayMin: 10 * time.Millisecond, ReplyDelayMax: 20 * time.Millisecond, Replies: []string{"ok"}}
	svc := New(store, store, p, sched, chance.Seeded(3), opts, logger.NewNop())
	return fixture{svc: svc, store: store, presence: p, timers: sched, contact: contact}
}

func TestStartConversationAndReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.StartConversation(ctx, f.contact.ID, "hello")
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}
	conv, err := f.svc.Conversation(ctx, id)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if conv.Platform != messaging.PlatformWhatsApp || conv.ContactName != "Priya Shah" || conv.LastMessage != "hello" {
		t.Fatalf("unexpected conversation %+v", conv)
	}
	if !f.presence.Typing(id) {
		t.Fatalf("contact should be typing")
	}
	if f.timers.Pending() != 1 {
		t.Fatalf("expected exactly one pending reply, got %d", f.timers.Pending())
	}

	require.Eventually(t, func() bool {
		msgs, _ := f.svc.Messages(ctx, id)
		return len(msgs) == 2
	}, time.Second, 5*time.Millisecond)

	msgs, _ := f.svc.Messages(ctx, id)
	require.Equal(t, messaging.SenderMe, msgs[0].Sender)
	require.Equal(t, messaging.SenderContact, msgs[1].Sender)
	require.Equal(t, "ok", msgs[1].Text)
	require.Equal(t, messaging.PlatformWhatsApp, msgs[1].Platform)
	require.Eventually(t, func() bool { return !f.presence.Typing(id) }, time.Second, 5*time.Millisecond)

	conv, _ = f.svc.Conversation(ctx, id)
	require.Equal(t, 1, conv.UnreadCount)
	require.Equal(t, "ok", conv.LastMessage)

	read, err := f.svc.MarkRead(ctx, id)
	require.NoError(t, err)
	require.Zero(t, read.UnreadCount)
}

func TestStartConversationReusesThread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.StartConversation(ctx, f.contact.ID, "one")
	require.NoError(t, err)
	second, err := f.svc.StartConversation(ctx, f.contact.ID, "two")
	require.NoError(t, err)
	require.Equal(t, first, second)

	f.presence.SetActivePlatform(messaging.PlatformMessenger)
	third, err := f.svc.StartConversation(ctx, f.contact.ID, "three")
	require.NoError(t, err)
	require.NotEqual(t, first, third)

	convs, _ := f.svc.Conversations(ctx)
	require.Len(t, convs, 2)
}

func TestStartConversationUnknownContact(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.StartConversation(context.Background(), 404, "hi")
	if !errors.Is(err, storage.ErrNotFound) || id != 0 {
		t.Fatalf("expected ErrNotFound and id 0, got %d %v", id, err)
	}
	convs, _ := f.svc.Conversations(context.Background())
	if len(convs) != 0 {
		t.Fatalf("no conversation should be created")
	}
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.SendMessage(ctx, "  ", 1, ""); err == nil {
		t.Fatalf("expected text validation error")
	}
	if _, err := f.svc.SendMessage(ctx, "hi", 99, ""); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.SendMessage(ctx, "hi", 1, "telegram"); err == nil {
		t.Fatalf("expected platform validation error")
	}
	if f.timers.Pending() != 0 {
		t.Fatalf("failed sends must not schedule replies")
	}
}

func TestSendMessageSchedulesOneReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv, err := f.store.CreateConversation(ctx, messaging.Conversation{ContactID: f.contact.ID, ContactName: f.contact.Name, Platform: messaging.PlatformWhatsApp})
	require.NoError(t, err)

	sent, err := f.svc.SendMessage(ctx, "hi", conv.ID, "WhatsApp")
	require.NoError(t, err)
	require.Equal(t, messaging.SenderMe, sent.Sender)
	require.Equal(t, messaging.PlatformWhatsApp, sent.Platform)

	msgs, _ := f.svc.Messages(ctx, conv.ID)
	require.Len(t, msgs, 1)
	got, _ := f.svc.Conversation(ctx, conv.ID)
	require.Equal(t, "hi", got.LastMessage)
	require.Zero(t, got.UnreadCount)

	require.Eventually(t, func() bool {
		msgs, _ := f.svc.Messages(ctx, conv.ID)
		return len(msgs) == 2
	}, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	msgs, _ = f.svc.Messages(ctx, conv.ID)
	require.Len(t, msgs, 2, "exactly one reply per message")
	require.Equal(t, messaging.SenderContact, msgs[1].Sender)
	got, _ = f.svc.Conversation(ctx, conv.ID)
	require.Equal(t, "ok", got.LastMessage)
	require.Equal(t, 1, got.UnreadCount)
}
