package admins

import (
	"context"
	"errors"
	"testing"

	"github.com/sarkhq/console/internal/app/domain/admin"
	"github.com/sarkhq/console/internal/app/domain/session"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/internal/app/storage/memory"
)

type staticUser session.User

func (u staticUser) CurrentUser() session.User { return session.User(u) }

func TestAddDefaults(t *testing.T) {
	svc := New(memory.New(), nil, nil)
	ctx := context.Background()

	sys, err := svc.Add(ctx, admin.Input{Name: "Ada", Email: "Ada@Example.com", Role: admin.RoleSysAdmin})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sys.ID != 1 || sys.Status != admin.StatusActive || len(sys.Permissions) != 0 || len(sys.ActivityLogs) != 0 {
		t.Fatalf("unexpected defaults %+v", sys)
	}
	if sys.StorageUsage.Total != 25 || sys.Email != "ada@example.com" {
		t.Fatalf("unexpected storage/email %+v", sys)
	}

	support, err := svc.Add(ctx, admin.Input{Name: "Bo", Email: "bo@example.com", Role: admin.RoleSupport})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if support.ID != 2 || support.StorageUsage.Total != 10 {
		t.Fatalf("unexpected support admin %+v", support)
	}

	if _, err := svc.Add(ctx, admin.Input{Name: "X", Email: "x@example.com", Role: "Owner"}); err == nil {
		t.Fatalf("expected role validation error")
	}
}

func TestUpdateNormalizesPermissions(t *testing.T) {
	svc := New(memory.New(), nil, nil)
	ctx := context.Background()
	a, _ := svc.Add(ctx, admin.Input{Name: "Ada", Email: "ada@example.com", Role: admin.RoleManager})

	a.Permissions = []admin.Permission{"finance.view", "apps.view", "FINANCE.VIEW"}
	updated, err := svc.Update(ctx, a)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Permissions) != 2 || updated.Permissions[0] != admin.PermAppsView {
		t.Fatalf("unexpected permissions %v", updated.Permissions)
	}

	a.Permissions = []admin.Permission{"root"}
	if _, err := svc.Update(ctx, a); err == nil {
		t.Fatalf("expected unknown permission error")
	}
}

func TestDeleteProtectsCurrentUser(t *testing.T) {
	svc := New(memory.New(), staticUser{AdminID: 1}, nil)
	ctx := context.Background()
	me, _ := svc.Add(ctx, admin.Input{Name: "Me", Email: "me@example.com", Role: admin.RoleSysAdmin})
	other, _ := svc.Add(ctx, admin.Input{Name: "Other", Email: "o@example.com", Role: admin.RoleSupport})

	if err := svc.Delete(ctx, me.ID); !errors.Is(err, storage.ErrInUse) {
		t.Fatalf("expected ErrInUse, got %v", err)
	}
	if err := svc.Delete(ctx, other.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, other.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordActivityPrepends(t *testing.T) {
	svc := New(memory.New(), nil, nil)
	ctx := context.Background()
	a, _ := svc.Add(ctx, admin.Input{Name: "Ada", Email: "ada@example.com", Role: admin.RoleManager})

	if _, err := svc.RecordActivity(ctx, a.ID, "Login", ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	updated, err := svc.RecordActivity(ctx, a.ID, "Auto-Logout", "session expired")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(updated.ActivityLogs) != 2 || updated.ActivityLogs[0].Action != "Auto-Logout" {
		t.Fatalf("expected newest entry first, got %+v", updated.ActivityLogs)
	}
	if _, err := svc.RecordActivity(ctx, 99, "Login", ""); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
