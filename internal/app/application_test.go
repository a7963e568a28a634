package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarkhq/console/internal/app/domain/finance"
	"github.com/sarkhq/console/internal/app/domain/task"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/internal/app/storage/kv"
	"github.com/sarkhq/console/internal/config"
	"github.com/sarkhq/console/pkg/isotime"
	"github.com/sarkhq/console/pkg/logger"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Storage.Driver = kv.DriverMemory
	cfg.APIKeys.HashCost = 4
	cfg.Simulation.Seed = 42
	cfg.Simulation.IncomeProbability = 0
	cfg.Simulation.FlapProbability = 0
	cfg.Simulation.ChurnProbability = 0
	cfg.Simulation.ResetDelay = 10 * time.Millisecond
	return cfg
}

func newApp(t *testing.T, backend kv.Backend) *Application {
	t.Helper()
	application, err := New(context.Background(), testConfig(), backend, logger.NewNop())
	require.NoError(t, err)
	return application
}

func TestApplicationLifecycle(t *testing.T) {
	application := newApp(t, kv.NewMemory())
	ctx := context.Background()

	assert.Equal(t, []string{"persist-writer", "timers", "realtime-generator"}, application.Services())
	require.NoError(t, application.Start(ctx))
	require.NoError(t, application.Stop(ctx))
}

func TestApplicationPersistsAcrossRestart(t *testing.T) {
	backend := kv.NewMemory()
	ctx := context.Background()

	first := newApp(t, backend)
	require.NoError(t, first.Start(ctx))
	created, err := first.Tasks.Add(ctx, task.Input{Title: "Renew TLS certificates", DueDate: isotime.From(time.Now().Add(48 * time.Hour))})
	require.NoError(t, err)
	checking, err := first.Finance.AccountByName(ctx, "Checking Account")
	require.NoError(t, err)
	_, err = first.Finance.AddTransaction(ctx, finance.TransactionInput{
		Description: "Refund",
		Amount:      decimal.RequireFromString("10.00"),
		Type:        finance.TypeIncome,
		AccountID:   checking.ID,
	})
	require.NoError(t, err)
	require.NoError(t, first.Stop(ctx))

	_, err = backend.Get(ctx, storage.KeyTasks)
	require.NoError(t, err)

	second := newApp(t, backend)
	list, err := second.Tasks.List(ctx)
	require.NoError(t, err)
	var found bool
	for _, tk := range list {
		if tk.ID == created.ID && tk.Title == created.Title {
			found = true
			assert.Equal(t, created.DueDate.UnixMilli(), tk.DueDate.UnixMilli())
		}
	}
	assert.True(t, found, "task should survive a restart")

	reloaded, err := second.Finance.Account(ctx, checking.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Balance.Equal(checking.Balance.Add(decimal.NewFromInt(10))))
}

func TestResetAllData(t *testing.T) {
	backend := kv.NewMemory()
	application := newApp(t, backend)
	ctx := context.Background()
	require.NoError(t, application.Start(ctx))
	t.Cleanup(func() { _ = application.Stop(context.Background()) })

	seeded := application.Snapshot()
	_, err := application.Tasks.Add(ctx, task.Input{Title: "temporary", DueDate: isotime.Now()})
	require.NoError(t, err)
	_, err = application.Domains.Add(ctx, "reset.example.com")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := backend.Get(ctx, storage.KeyTasks)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	application.ResetAllData(ctx)
	assert.True(t, application.Session.Loading())

	require.Eventually(t, func() bool { return !application.Session.Loading() }, 2*time.Second, 5*time.Millisecond)

	after := application.Snapshot()
	assert.Len(t, after.Tasks, len(seeded.Tasks))
	assert.Len(t, after.CustomDomains, len(seeded.CustomDomains))
	_, err = backend.Get(ctx, storage.KeyTasks)
	assert.ErrorIs(t, err, kv.ErrNotFound)
	assert.Equal(t, "Alex Morgan", application.Session.CurrentUser().Name)
}

func TestDashboardFromSeed(t *testing.T) {
	application := newApp(t, kv.NewMemory())
	dash, err := application.Views.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Len(t, dash.Budgets, len(application.BudgetTemplates()))
	assert.Positive(t, dash.RunningApps)
}
