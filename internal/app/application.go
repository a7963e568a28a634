package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sarkhq/console/internal/app/chance"
	"github.com/sarkhq/console/internal/app/domain/finance"
	"github.com/sarkhq/console/internal/app/domain/session"
	"github.com/sarkhq/console/internal/app/seed"
	"github.com/sarkhq/console/internal/app/services/admins"
	"github.com/sarkhq/console/internal/app/services/apikeys"
	"github.com/sarkhq/console/internal/app/services/apps"
	"github.com/sarkhq/console/internal/app/services/domains"
	financesvc "github.com/sarkhq/console/internal/app/services/finance"
	messagingsvc "github.com/sarkhq/console/internal/app/services/messaging"
	"github.com/sarkhq/console/internal/app/services/notifications"
	"github.com/sarkhq/console/internal/app/services/realtime"
	sessionsvc "github.com/sarkhq/console/internal/app/services/session"
	"github.com/sarkhq/console/internal/app/services/tasks"
	"github.com/sarkhq/console/internal/app/services/views"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/internal/app/storage/kv"
	"github.com/sarkhq/console/internal/app/storage/memory"
	"github.com/sarkhq/console/internal/app/storage/persist"
	"github.com/sarkhq/console/internal/app/system"
	"github.com/sarkhq/console/internal/app/timers"
	"github.com/sarkhq/console/internal/config"
	"github.com/sarkhq/console/pkg/logger"
)

const resetKey = "reset"

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	backend    kv.Backend
	store      *memory.Store
	writer     *persist.Writer
	timers     *timers.Scheduler
	resetDelay time.Duration
	templates  []finance.BudgetTemplate

	Session       *sessionsvc.Service
	Admins        *admins.Service
	Apps          *apps.Service
	Finance       *financesvc.Service
	Tasks         *tasks.Service
	Notifications *notifications.Service
	Messaging     *messagingsvc.Service
	APIKeys       *apikeys.Service
	Domains       *domains.Service
	Views         *views.Service
	Generator     *realtime.Generator
}

// New builds a fully initialised application over backend. Persisted
// collections are loaded once; anything missing or unreadable starts from
// the seed data.
func New(ctx context.Context, cfg config.Config, backend kv.Backend, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if backend == nil {
		backend = kv.NewMemory()
	}

	data, err := seed.Load(time.Now())
	if err != nil {
		return nil, fmt.Errorf("load seed data: %w", err)
	}
	templates, err := cfg.Simulation.Templates()
	if err != nil {
		return nil, err
	}
	if templates == nil {
		templates = data.BudgetTemplates
	}

	sim := cfg.Simulation
	src := chance.Default()
	if sim.Seed != 0 {
		src = chance.Seeded(sim.Seed)
	}

	writer := persist.NewWriter(backend, persist.WriterOptions{
		RatePerSecond: cfg.Storage.WriteRate,
		Burst:         cfg.Storage.WriteBurst,
	}, log.Named("persist-writer"))
	scheduler := timers.New(log.Named("timers"))

	store := memory.New()
	store.SetSource(src)
	store.Restore(persist.LoadSnapshot(ctx, backend, data.Snapshot, log.Named("persist")))
	store.SetMirror(writer)

	user := persist.Bind(ctx, persist.NewSlot[session.User](backend, storage.KeyCurrentUser, log.Named("persist")), data.CurrentUser, writer)
	sessionService := sessionsvc.New(user, log.Named("session"))
	notificationService := notifications.New(store, log.Named("notifications"))
	adminService := admins.New(store, sessionService, log.Named("admins"))
	appService := apps.New(store, scheduler, notificationService, src, apps.Options{
		DeployDuration: sim.DeployDuration,
	}, log.Named("apps"))
	financeService := financesvc.New(store, log.Named("finance"))
	messagingService := messagingsvc.New(store, store, sessionService, scheduler, src, messagingsvc.Options{
		ReplyDelayMin: sim.ReplyDelayMin,
		ReplyDelayMax: sim.ReplyDelayMax,
		Replies:       sim.Replies,
	}, log.Named("messaging"))
	domainService := domains.New(store, scheduler, notificationService, src, domains.Options{
		VerifyDelay: sim.VerifyDelay,
		SuccessRate: sim.VerifySuccessRate,
	}, log.Named("domains"))
	generator := realtime.New(appService, financeService, adminService, notificationService, src, realtime.Options{
		TickInterval:      sim.TickInterval,
		IncomeProbability: sim.IncomeProbability,
		IncomeMax:         sim.IncomeMax,
		IncomeAccount:     sim.IncomeAccount,
		FlapProbability:   sim.FlapProbability,
		FlapRevertAfter:   sim.FlapRevertAfter,
		ChurnProbability:  sim.ChurnProbability,
	}, log.Named("realtime"))

	manager := system.NewManager()
	for _, svc := range []system.Service{writer, scheduler, generator} {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:       manager,
		log:           log,
		backend:       backend,
		store:         store,
		writer:        writer,
		timers:        scheduler,
		resetDelay:    sim.ResetDelay,
		templates:     templates,
		Session:       sessionService,
		Admins:        adminService,
		Apps:          appService,
		Finance:       financeService,
		Tasks:         tasks.New(store, log.Named("tasks")),
		Notifications: notificationService,
		Messaging:     messagingService,
		APIKeys:       apikeys.New(store, cfg.APIKeys.HashCost, log.Named("apikeys")),
		Domains:       domainService,
		Views:         views.New(store, templates, log.Named("views")),
		Generator:     generator,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services. The generator stops first and the writer last, so
// every change made before Stop reaches the backend.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// Services lists the registered lifecycle services in start order.
func (a *Application) Services() []string {
	return a.manager.Services()
}

// Snapshot returns a deep copy of every collection.
func (a *Application) Snapshot() storage.Snapshot {
	return a.store.Snapshot()
}

// BudgetTemplates returns the dashboard budget templates in use.
func (a *Application) BudgetTemplates() []finance.BudgetTemplate {
	return append([]finance.BudgetTemplate(nil), a.templates...)
}

// ResetAllData flags the session as loading and, after the reset delay,
// wipes persisted state and returns every collection to the seed data.
func (a *Application) ResetAllData(ctx context.Context) {
	a.Session.SetLoading(true)
	a.timers.Cancel(resetKey)
	a.timers.After(resetKey, a.resetDelay, func(ctx context.Context) {
		a.reset(ctx)
	})
	a.log.WithField("delay", a.resetDelay.String()).Info("data reset scheduled")
}

func (a *Application) reset(ctx context.Context) {
	defer a.Session.SetLoading(false)

	cancelled := a.timers.CancelAll()
	data, err := seed.Load(time.Now())
	if err != nil {
		a.log.WithError(err).Error("load seed data for reset")
		return
	}
	a.store.Restore(data.Snapshot)
	dropped := a.writer.Discard()
	if err := persist.Clear(ctx, a.backend); err != nil {
		a.log.WithError(err).Warn("clear persisted data")
	}
	a.Session.Reload(ctx)
	a.log.WithField("cancelled_timers", cancelled).
		WithField("dropped_writes", dropped).
		Info("data reset to seed")
}
