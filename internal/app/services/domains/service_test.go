package domains

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sarkhq/console/internal/app/chance"
	"github.com/sarkhq/console/internal/app/domain/customdomain"
	"github.com/sarkhq/console/internal/app/services/notifications"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/internal/app/storage/memory"
	"github.com/sarkhq/console/internal/app/timers"
	"github.com/sarkhq/console/pkg/logger"
	"github.com/sarkhq/console/pkg/testutil"
)

func newService(t *testing.T, src chance.Source, delay time.Duration) (*Service, *notifications.Service, *timers.Scheduler) {
	t.Helper()
	store := memory.New()
	sched := timers.New(logger.NewNop())
	t.Cleanup(func() { _ = sched.Stop(context.Background()) })
	notes := notifications.New(store, logger.NewNop())
	return New(store, sched, notes, src, Options{VerifyDelay: delay, SuccessRate: 0.7}, logger.NewNop()), notes, sched
}

func TestAddDomain(t *testing.T) {
	svc, _, _ := newService(t, chance.Seeded(1), time.Second)
	ctx := context.Background()

	d, err := svc.Add(ctx, "Test.com")
	if err != nil {
		t.Fatalf("add domain: %v", err)
	}
	if d.Status != customdomain.StatusPending || d.DomainName != "test.com" {
		t.Fatalf("unexpected domain %+v", d)
	}
	if len(d.DNSRecords) != 1 || d.DNSRecords[0].Type != "TXT" {
		t.Fatalf("expected exactly one TXT record, got %+v", d.DNSRecords)
	}
	if _, err := svc.Add(ctx, "test.com"); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := svc.Add(ctx, "not a domain"); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestVerifyResolves(t *testing.T) {
	for _, tc := range []struct {
		name string
		roll float64
		want customdomain.Status
	}{
		{"success", 0.1, customdomain.StatusVerified},
		{"failure", 0.9, customdomain.StatusPending},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc, notes, _ := newService(t, testutil.NewSequence(tc.roll), 20*time.Millisecond)
			ctx := context.Background()
			d, _ := svc.Add(ctx, "test.com")

			verifying, err := svc.Verify(ctx, d.ID)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if verifying.Status != customdomain.StatusVerifying {
				t.Fatalf("expected Verifying, got %s", verifying.Status)
			}
			if _, err := svc.Verify(ctx, d.ID); !errors.Is(err, ErrVerificationState) {
				t.Fatalf("expected ErrVerificationState, got %v", err)
			}

			require.Eventually(t, func() bool {
				got, _ := svc.Get(ctx, d.ID)
				return got.Status != customdomain.StatusVerifying
			}, time.Second, 5*time.Millisecond)

			got, _ := svc.Get(ctx, d.ID)
			if got.Status != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got.Status)
			}
			require.Eventually(t, func() bool {
				list, _ := notes.List(ctx)
				return len(list) == 1
			}, time.Second, 5*time.Millisecond)
		})
	}
}

func TestDeleteCancelsVerification(t *testing.T) {
	svc, notes, sched := newService(t, testutil.NewSequence(0), 30*time.Millisecond)
	ctx := context.Background()
	d, _ := svc.Add(ctx, "test.com")
	if _, err := svc.Verify(ctx, d.ID); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.Delete(ctx, d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if sched.Pending() != 0 {
		t.Fatalf("expected verification cancelled")
	}
	time.Sleep(60 * time.Millisecond)
	list, _ := notes.List(ctx)
	if len(list) != 0 {
		t.Fatalf("no notification expected after delete, got %d", len(list))
	}
}
