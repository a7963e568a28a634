package apps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sarkhq/console/internal/app/chance"
	"github.com/sarkhq/console/internal/app/domain/managedapp"
	"github.com/sarkhq/console/internal/app/services/notifications"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/internal/app/storage/memory"
	"github.com/sarkhq/console/internal/app/timers"
	"github.com/sarkhq/console/pkg/logger"
)

type fixture struct {
	svc    *Service
	store  *memory.Store
	notes  *notifications.Service
	timers *timers.Scheduler
}

func newFixture(t *testing.T, deploy time.Duration) fixture {
	t.Helper()
	store := memory.New()
	sched := timers.New(logger.NewNop())
	t.Cleanup(func() { _ = sched.Stop(context.Background()) })
	notes := notifications.New(store, logger.NewNop())
	svc := New(store, sched, notes, chance.Seeded(7), Options{DeployDuration: deploy}, logger.NewNop())
	return fixture{svc: svc, store: store, notes: notes, timers: sched}
}

func TestAddApp(t *testing.T) {
	f := newFixture(t, time.Second)
	app, err := f.svc.Add(context.Background(), managedapp.Input{Name: "api", Platform: managedapp.PlatformAPIService, Repository: "github.com/x/api"})
	if err != nil {
		t.Fatalf("add app: %v", err)
	}
	if app.Status != managedapp.StatusStopped {
		t.Fatalf("expected Stopped, got %s", app.Status)
	}
	if len(app.Resources.CPU) != managedapp.HistoryLength || len(app.Resources.Memory) != managedapp.HistoryLength {
		t.Fatalf("expected %d samples", managedapp.HistoryLength)
	}
	for i := range app.Resources.CPU {
		if c := app.Resources.CPU[i]; c < 10 || c >= 40 {
			t.Fatalf("cpu sample out of range: %v", c)
		}
		if m := app.Resources.Memory[i]; m < 30 || m >= 60 {
			t.Fatalf("memory sample out of range: %v", m)
		}
	}
	if len(app.Deployments) != 0 || len(app.Logs) != 0 || len(app.EnvironmentVariables) != 0 {
		t.Fatalf("expected empty history")
	}
	if app.Resources.Storage.Used != 0 || app.Resources.Storage.Total != 20 {
		t.Fatalf("unexpected storage %+v", app.Resources.Storage)
	}

	second, _ := f.svc.Add(context.Background(), managedapp.Input{Name: "web", Platform: managedapp.PlatformWebApp})
	if second.ID != app.ID+1 {
		t.Fatalf("expected sequential ids")
	}
	if _, err := f.svc.Add(context.Background(), managedapp.Input{Name: "x", Platform: "Desktop"}); err == nil {
		t.Fatalf("expected platform validation error")
	}
}

func TestUpdateNormalizesAndValidates(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()
	app, _ := f.svc.Add(ctx, managedapp.Input{Name: "api", Platform: managedapp.PlatformWebApp})

	app.Resources.CPU = []float64{1, 2, 3}
	app.EnvironmentVariables = map[string]string{"API_URL": "x"}
	updated, err := f.svc.Update(ctx, app)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Resources.CPU) != managedapp.HistoryLength || managedapp.Last(updated.Resources.CPU) != 3 {
		t.Fatalf("cpu window not normalized: %v", updated.Resources.CPU)
	}

	app.EnvironmentVariables = map[string]string{"bad-key": "x"}
	if _, err := f.svc.Update(ctx, app); err == nil {
		t.Fatalf("expected env key validation error")
	}
}

func TestEnvVars(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()
	app, _ := f.svc.Add(ctx, managedapp.Input{Name: "api", Platform: managedapp.PlatformWebApp})

	if _, err := f.svc.SetEnvVar(ctx, app.ID, "lower", "x"); err == nil {
		t.Fatalf("expected invalid key error")
	}
	updated, err := f.svc.SetEnvVar(ctx, app.ID, "DATABASE_URL", "postgres://")
	if err != nil || updated.EnvironmentVariables["DATABASE_URL"] != "postgres://" {
		t.Fatalf("set env var: %v", err)
	}
	if _, err := f.svc.UnsetEnvVar(ctx, app.ID, "DATABASE_URL"); err != nil {
		t.Fatalf("unset env var: %v", err)
	}
	if _, err := f.svc.UnsetEnvVar(ctx, app.ID, "DATABASE_URL"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeployCompletes(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	ctx := context.Background()
	app, _ := f.svc.Add(ctx, managedapp.Input{Name: "api", Platform: managedapp.PlatformWebApp})

	deploying, err := f.svc.Deploy(ctx, app.ID, "v1.0.0")
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if deploying.Status != managedapp.StatusDeploying || len(deploying.Deployments) != 1 {
		t.Fatalf("unexpected deploying app %+v", deploying)
	}
	if _, err := f.svc.Start(ctx, app.ID); !errors.Is(err, ErrDeploying) {
		t.Fatalf("expected ErrDeploying, got %v", err)
	}

	require.Eventually(t, func() bool {
		got, _ := f.svc.Get(ctx, app.ID)
		return got.Status == managedapp.StatusRunning
	}, time.Second, 5*time.Millisecond)

	got, _ := f.svc.Get(ctx, app.ID)
	if got.LastDeployed == nil || got.Deployments[0].Status != "Success" {
		t.Fatalf("deploy not recorded: %+v", got)
	}
	notes, _ := f.notes.List(ctx)
	if len(notes) != 1 {
		t.Fatalf("expected one notification, got %d", len(notes))
	}
}

func TestDeleteCancelsPendingWork(t *testing.T) {
	f := newFixture(t, 30*time.Millisecond)
	ctx := context.Background()
	app, _ := f.svc.Add(ctx, managedapp.Input{Name: "api", Platform: managedapp.PlatformWebApp})
	if _, err := f.svc.Deploy(ctx, app.ID, "v2"); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if f.timers.Pending() != 1 {
		t.Fatalf("expected a pending deploy")
	}
	if err := f.svc.Delete(ctx, app.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if f.timers.Pending() != 0 {
		t.Fatalf("delete should cancel the pending deploy")
	}
	time.Sleep(60 * time.Millisecond)
	if _, err := f.svc.Get(ctx, app.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("app must stay deleted, got %v", err)
	}
}

func TestFlapRevertsToOriginal(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()
	app, _ := f.svc.Add(ctx, managedapp.Input{Name: "db", Platform: managedapp.PlatformDatabase})

	if flapped, _ := f.svc.Flap(ctx, app.ID, time.Millisecond); flapped {
		t.Fatalf("stopped apps must not flap")
	}

	app.Status = managedapp.StatusError
	if _, err := f.svc.Update(ctx, app); err != nil {
		t.Fatalf("update: %v", err)
	}
	flapped, err := f.svc.Flap(ctx, app.ID, 20*time.Millisecond)
	if err != nil || !flapped {
		t.Fatalf("expected flap: %v", err)
	}
	got, _ := f.svc.Get(ctx, app.ID)
	if got.Status != managedapp.StatusDeploying {
		t.Fatalf("expected Deploying, got %s", got.Status)
	}
	notes, _ := f.notes.List(ctx)
	if len(notes) != 1 {
		t.Fatalf("expected a recovering notification at flap time")
	}

	require.Eventually(t, func() bool {
		got, _ := f.svc.Get(ctx, app.ID)
		return got.Status == managedapp.StatusError
	}, time.Second, 5*time.Millisecond)
}

func TestFlapRevertSkippedWhenStatusChanged(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()
	app, _ := f.svc.Add(ctx, managedapp.Input{Name: "web", Platform: managedapp.PlatformWebApp})
	if _, err := f.svc.Start(ctx, app.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if flapped, _ := f.svc.Flap(ctx, app.ID, 20*time.Millisecond); !flapped {
		t.Fatalf("expected flap")
	}
	if _, err := f.svc.Stop(ctx, app.ID); err != nil {
		t.Fatalf("stop: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	got, _ := f.svc.Get(ctx, app.ID)
	if got.Status != managedapp.StatusStopped {
		t.Fatalf("revert must not override a later change, got %s", got.Status)
	}
}
