// Package realtime simulates the outside world: resource metrics drift,
// small incomes arrive, apps flap and administrators get logged out.
package realtime

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/sarkhq/console/internal/app/chance"
	"github.com/sarkhq/console/internal/app/domain/admin"
	"github.com/sarkhq/console/internal/app/domain/finance"
	"github.com/sarkhq/console/internal/app/domain/managedapp"
	"github.com/sarkhq/console/internal/app/domain/notification"
	"github.com/sarkhq/console/internal/app/metrics"
	"github.com/sarkhq/console/internal/app/services/notifications"
	"github.com/sarkhq/console/internal/app/system"
	"github.com/sarkhq/console/pkg/logger"
)

var _ system.Service = (*Generator)(nil)

// Apps is the slice of the apps service the generator drives.
type Apps interface {
	List(ctx context.Context) ([]managedapp.ManagedApp, error)
	PushSample(ctx context.Context, id int64, cpu, memory float64) (managedapp.ManagedApp, error)
	Flap(ctx context.Context, id int64, revertAfter time.Duration) (bool, error)
}

// Ledger is the slice of the finance service the generator drives.
type Ledger interface {
	AccountByName(ctx context.Context, name string) (finance.Account, error)
	AddTransaction(ctx context.Context, in finance.TransactionInput) (finance.Transaction, error)
}

// Admins is the slice of the admins service the generator drives.
type Admins interface {
	List(ctx context.Context) ([]admin.Administrator, error)
	RecordActivity(ctx context.Context, id int64, action, detail string) (admin.Administrator, error)
}

// Options holds the simulation constants.
type Options struct {
	TickInterval      time.Duration
	IncomeProbability float64
	IncomeMax         float64
	IncomeAccount     string
	FlapProbability   float64
	FlapRevertAfter   time.Duration
	ChurnProbability  float64
}

// DefaultOptions returns the stock simulation constants.
func DefaultOptions() Options {
	return Options{
		TickInterval:      3 * time.Second,
		IncomeProbability: 0.2,
		IncomeMax:         5,
		IncomeAccount:     "Checking Account",
		FlapProbability:   0.1,
		FlapRevertAfter:   5 * time.Second,
		ChurnProbability:  0.15,
	}
}

const (
	incomeDescription = "Automated Micro-Income"
	churnAction       = "Auto-Logout"
)

// Generator runs one simulation tick on a cron schedule.
type Generator struct {
	apps     Apps
	ledger   Ledger
	admins   Admins
	notifier notifications.Notifier
	rand     chance.Source
	opts     Options
	log      *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// New constructs a generator. Zero option fields keep their defaults except
// probabilities, which are taken as given.
func New(apps Apps, ledger Ledger, admins Admins, notifier notifications.Notifier, src chance.Source, opts Options, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.NewDefault("realtime")
	}
	if src == nil {
		src = chance.Default()
	}
	def := DefaultOptions()
	if opts.TickInterval <= 0 {
		opts.TickInterval = def.TickInterval
	}
	if opts.IncomeMax <= 0 {
		opts.IncomeMax = def.IncomeMax
	}
	if opts.IncomeAccount == "" {
		opts.IncomeAccount = def.IncomeAccount
	}
	if opts.FlapRevertAfter <= 0 {
		opts.FlapRevertAfter = def.FlapRevertAfter
	}
	return &Generator{
		apps:     apps,
		ledger:   ledger,
		admins:   admins,
		notifier: notifier,
		rand:     src,
		opts:     opts,
		log:      log,
	}
}

func (g *Generator) Name() string { return "realtime-generator" }

func (g *Generator) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	spec := fmt.Sprintf("@every %s", g.opts.TickInterval)
	if _, err := c.AddFunc(spec, func() { g.Tick(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule generator: %w", err)
	}
	c.Start()

	g.cron = c
	g.cancel = cancel
	g.running = true
	g.log.WithField("interval", g.opts.TickInterval.String()).Info("realtime generator started")
	return nil
}

func (g *Generator) Stop(ctx context.Context) error {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return nil
	}
	c, cancel := g.cron, g.cancel
	g.cron, g.cancel, g.running = nil, nil, false
	g.mu.Unlock()

	done := c.Stop()
	cancel()
	select {
	case <-done.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	g.log.Info("realtime generator stopped")
	return nil
}

// Tick runs every behaviour once, in order. Pools are read fresh each time.
func (g *Generator) Tick(ctx context.Context) {
	metrics.RecordGeneratorTick()
	g.drift(ctx)
	if chance.Bernoulli(g.rand, g.opts.IncomeProbability) {
		g.income(ctx)
	}
	if chance.Bernoulli(g.rand, g.opts.FlapProbability) {
		g.flap(ctx)
	}
	if chance.Bernoulli(g.rand, g.opts.ChurnProbability) {
		g.churn(ctx)
	}
}

func (g *Generator) drift(ctx context.Context) {
	apps, err := g.apps.List(ctx)
	if err != nil {
		g.log.WithError(err).Warn("list apps for drift")
		return
	}
	for _, app := range apps {
		if app.Status != managedapp.StatusRunning {
			continue
		}
		cpu, memory := Drift(g.rand, managedapp.Last(app.Resources.CPU), managedapp.Last(app.Resources.Memory))
		if _, err := g.apps.PushSample(ctx, app.ID, cpu, memory); err != nil {
			g.log.WithField("app_id", app.ID).WithError(err).Warn("push resource sample")
			continue
		}
		metrics.RecordGeneratorEvent("drift")
	}
}

// Drift computes the next CPU and memory samples from the previous ones.
func Drift(src chance.Source, cpu, memory float64) (float64, float64) {
	return chance.Clamp(cpu+chance.Uniform(src, -5, 5), 5, 95),
		chance.Clamp(memory+chance.Uniform(src, -3, 3), 20, 95)
}

// IncomeAmount rounds a uniform draw in [0, ceiling) to cents, never below one
// cent.
func IncomeAmount(src chance.Source, ceiling float64) decimal.Decimal {
	cents := math.Round(chance.Uniform(src, 0, ceiling) * 100)
	if cents < 1 {
		cents = 1
	}
	return decimal.New(int64(cents), -2)
}

func (g *Generator) income(ctx context.Context) {
	acct, err := g.ledger.AccountByName(ctx, g.opts.IncomeAccount)
	if err != nil {
		g.log.WithField("account", g.opts.IncomeAccount).WithError(err).Warn("resolve income account")
		return
	}
	tx, err := g.ledger.AddTransaction(ctx, finance.TransactionInput{
		Description: incomeDescription,
		Amount:      IncomeAmount(g.rand, g.opts.IncomeMax),
		Type:        finance.TypeIncome,
		Category:    finance.CategoryOther,
		AccountID:   acct.ID,
	})
	if err != nil {
		g.log.WithError(err).Warn("record micro income")
		return
	}
	metrics.RecordGeneratorEvent("income")
	g.notify(ctx, notification.Notification{
		Title:       "Income received",
		Description: fmt.Sprintf("$%s credited to %s", tx.Amount.StringFixed(2), acct.Name),
		Tone:        notification.ToneSuccess,
		Icon:        "dollar",
	})
}

func (g *Generator) flap(ctx context.Context) {
	apps, err := g.apps.List(ctx)
	if err != nil || len(apps) == 0 {
		return
	}
	app := apps[chance.Pick(g.rand, len(apps))]
	flapped, err := g.apps.Flap(ctx, app.ID, g.opts.FlapRevertAfter)
	if err != nil {
		g.log.WithField("app_id", app.ID).WithError(err).Warn("flap app")
		return
	}
	if flapped {
		metrics.RecordGeneratorEvent("flap")
	}
}

func (g *Generator) churn(ctx context.Context) {
	admins, err := g.admins.List(ctx)
	if err != nil || len(admins) == 0 {
		return
	}
	a := admins[chance.Pick(g.rand, len(admins))]
	if _, err := g.admins.RecordActivity(ctx, a.ID, churnAction, "Session expired"); err != nil {
		g.log.WithField("admin_id", a.ID).WithError(err).Warn("record churn activity")
		return
	}
	metrics.RecordGeneratorEvent("churn")
	g.notify(ctx, notification.Notification{
		Title:       "Admin logged out",
		Description: fmt.Sprintf("%s was logged out automatically", a.Name),
		Tone:        notification.ToneInfo,
		Icon:        "log-out",
	})
}

func (g *Generator) notify(ctx context.Context, n notification.Notification) {
	if g.notifier == nil {
		return
	}
	if _, err := g.notifier.Add(ctx, n); err != nil {
		g.log.WithError(err).Warn("add notification")
	}
}
