package apikeys

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sarkhq/console/internal/app/domain/apikey"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/internal/app/storage/memory"
)

func newService() *Service {
	svc := New(memory.New(), bcrypt.MinCost, nil)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc
}

func TestCreate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, "CI", []apikey.Scope{"write", "read", "read"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(created.Secret, apikey.SecretPrefix) || len(created.Secret) != len(apikey.SecretPrefix)+apikey.SecretLength {
		t.Fatalf("unexpected secret shape %q", created.Secret)
	}
	key := created.Key
	if key.ID != "key-1704164645000" || key.Status != apikey.StatusActive || key.LastUsed != nil {
		t.Fatalf("unexpected key %+v", key)
	}
	if len(key.Scopes) != 2 || key.Scopes[0] != apikey.ScopeRead {
		t.Fatalf("unexpected scopes %v", key.Scopes)
	}
	if strings.Contains(key.Hash, created.Secret) || !strings.HasPrefix(created.Secret, key.Prefix) {
		t.Fatalf("stored key must not expose the secret")
	}

	second, err := svc.Create(ctx, "Deploy bot", []apikey.Scope{apikey.ScopeDeploy})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.Key.ID == key.ID {
		t.Fatalf("ids must be unique within the same millisecond")
	}

	if _, err := svc.Create(ctx, "x", []apikey.Scope{"root"}); err == nil {
		t.Fatalf("expected unknown scope error")
	}
	if _, err := svc.Create(ctx, "x", nil); err == nil {
		t.Fatalf("expected missing scope error")
	}
}

func TestAuthenticateRevokeDelete(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	created, _ := svc.Create(ctx, "CI", []apikey.Scope{apikey.ScopeRead})

	used, err := svc.Authenticate(ctx, created.Secret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if used.LastUsed == nil {
		t.Fatalf("expected lastUsed to be set")
	}
	if _, err := svc.Authenticate(ctx, created.Secret+"x"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}

	revoked, err := svc.Revoke(ctx, created.Key.ID)
	if err != nil || revoked.Status != apikey.StatusRevoked {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Authenticate(ctx, created.Secret); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("revoked keys must not authenticate")
	}

	if err := svc.Delete(ctx, created.Key.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Revoke(ctx, created.Key.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
