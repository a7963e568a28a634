package views

import (
	"context"
	"time"

	"github.com/sarkhq/console/internal/app/domain/finance"
	"github.com/sarkhq/console/internal/app/domain/managedapp"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/pkg/logger"
)

// Dashboard bundles the console's landing page aggregates.
type Dashboard struct {
	Summary             FinancialSummary `json:"summary"`
	Budgets             []finance.Budget `json:"budgets"`
	ExpenseDistribution []CategoryTotal  `json:"expenseDistribution"`
	UnreadNotifications int              `json:"unreadNotifications"`
	RunningApps         int              `json:"runningApps"`
}

// Stores is every collection the views read.
type Stores interface {
	storage.AppStore
	storage.AdminStore
	storage.FinanceStore
	storage.TaskStore
	storage.NotificationStore
}

// Service computes views over live store snapshots.
type Service struct {
	store     Stores
	templates []finance.BudgetTemplate
	now       func() time.Time
	log       *logger.Logger
}

// New constructs a views service using templates for the dashboard budgets.
func New(store Stores, templates []finance.BudgetTemplate, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("views")
	}
	return &Service{store: store, templates: templates, now: time.Now, log: log}
}

// Dashboard computes the landing page aggregates.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	now := s.now()
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	apps, err := s.store.ListApps(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	notes, err := s.store.ListNotifications(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	out := Dashboard{
		Summary:             Summary(accounts, txs, now),
		Budgets:             BudgetsFromTemplate(s.templates, txs, now),
		ExpenseDistribution: ExpenseDistribution(txs, ExpenseFilter{From: now.Add(-SummaryWindow)}),
	}
	for _, n := range notes {
		if !n.Read {
			out.UnreadNotifications++
		}
	}
	for _, a := range apps {
		if a.Status == managedapp.StatusRunning {
			out.RunningApps++
		}
	}
	return out, nil
}

// Search runs a global search over the current collections.
func (s *Service) Search(ctx context.Context, query string) (SearchResults, error) {
	apps, err := s.store.ListApps(ctx)
	if err != nil {
		return SearchResults{}, err
	}
	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return SearchResults{}, err
	}
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return SearchResults{}, err
	}
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return SearchResults{}, err
	}
	res := Search(query, apps, admins, txs, tasks)
	s.log.WithField("query", query).WithField("empty", res.Empty()).Debug("search")
	return res, nil
}

// Expenses computes the expense distribution for filter.
func (s *Service) Expenses(ctx context.Context, filter ExpenseFilter) ([]CategoryTotal, error) {
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return ExpenseDistribution(txs, filter), nil
}
