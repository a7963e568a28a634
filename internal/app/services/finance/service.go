package finance

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sarkhq/console/internal/app/domain/finance"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/pkg/isotime"
	"github.com/sarkhq/console/pkg/logger"
)

// Service manages the ledger. Account balances move with every transaction;
// budget spend is derived from the ledger whenever budgets are read.
type Service struct {
	store storage.FinanceStore
	log   *logger.Logger
}

// New constructs a finance service.
func New(store storage.FinanceStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("finance")
	}
	return &Service{store: store, log: log}
}

// AddTransaction records a transaction and adjusts the referenced account in
// the same step. An unknown account leaves everything untouched.
func (s *Service) AddTransaction(ctx context.Context, in finance.TransactionInput) (finance.Transaction, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return finance.Transaction{}, fmt.Errorf("description is required")
	}
	if !in.Amount.IsPositive() {
		return finance.Transaction{}, fmt.Errorf("amount must be positive")
	}
	typ, err := finance.ParseType(string(in.Type))
	if err != nil {
		return finance.Transaction{}, err
	}
	if in.AccountID == 0 {
		return finance.Transaction{}, fmt.Errorf("account is required")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = finance.CategoryOther
	}
	date := in.Date
	if date.IsZero() {
		date = isotime.Now()
	}

	tx, acct, err := s.store.CreateTransaction(ctx, finance.Transaction{
		Description: description,
		Amount:      in.Amount,
		Type:        typ,
		Category:    category,
		AccountID:   in.AccountID,
		Date:        date,
	})
	if err != nil {
		return finance.Transaction{}, err
	}
	s.log.WithField("transaction_id", tx.ID).
		WithField("account_id", acct.ID).
		WithField("amount", tx.Signed().String()).
		WithField("balance", acct.Balance.String()).
		Info("transaction recorded")
	return tx, nil
}

// Transactions returns the ledger, newest first.
func (s *Service) Transactions(ctx context.Context) ([]finance.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

// Accounts returns every account.
func (s *Service) Accounts(ctx context.Context) ([]finance.Account, error) {
	return s.store.ListAccounts(ctx)
}

// Account returns one account.
func (s *Service) Account(ctx context.Context, id int64) (finance.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// AccountByName resolves an account by its exact display name.
func (s *Service) AccountByName(ctx context.Context, name string) (finance.Account, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return finance.Account{}, err
	}
	for _, a := range accounts {
		if a.Name == name {
			return a, nil
		}
	}
	return finance.Account{}, fmt.Errorf("%w: account %q", storage.ErrNotFound, name)
}

// DeleteAccount removes an account nothing references.
func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.log.WithField("account_id", id).Info("account deleted")
	return nil
}

// Recurring returns the scheduled transactions.
func (s *Service) Recurring(ctx context.Context) ([]finance.RecurringTransaction, error) {
	return s.store.ListRecurring(ctx)
}

// AddBudget creates a budget for a category without one.
func (s *Service) AddBudget(ctx context.Context, category string, limit decimal.Decimal) (finance.Budget, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return finance.Budget{}, fmt.Errorf("category is required")
	}
	if !limit.IsPositive() {
		return finance.Budget{}, fmt.Errorf("limit must be positive")
	}
	created, err := s.store.CreateBudget(ctx, finance.Budget{Category: category, Limit: limit})
	if err != nil {
		return finance.Budget{}, err
	}
	s.log.WithField("budget_id", created.ID).WithField("category", category).Info("budget added")
	return s.withSpent(ctx, created)
}

// UpdateBudget changes a budget's category or limit. Spent in the input is
// ignored.
func (s *Service) UpdateBudget(ctx context.Context, b finance.Budget) (finance.Budget, error) {
	b.Category = strings.TrimSpace(b.Category)
	if b.Category == "" {
		return finance.Budget{}, fmt.Errorf("category is required")
	}
	if !b.Limit.IsPositive() {
		return finance.Budget{}, fmt.Errorf("limit must be positive")
	}
	updated, err := s.store.UpdateBudget(ctx, b)
	if err != nil {
		return finance.Budget{}, err
	}
	s.log.WithField("budget_id", updated.ID).Info("budget updated")
	return s.withSpent(ctx, updated)
}

// DeleteBudget removes a budget.
func (s *Service) DeleteBudget(ctx context.Context, id int64) error {
	return s.store.DeleteBudget(ctx, id)
}

// Budget returns one budget with its current spend.
func (s *Service) Budget(ctx context.Context, id int64) (finance.Budget, error) {
	b, err := s.store.GetBudget(ctx, id)
	if err != nil {
		return finance.Budget{}, err
	}
	return s.withSpent(ctx, b)
}

// Budgets returns every budget with spend summed over all expense
// transactions of its category.
func (s *Service) Budgets(ctx context.Context) ([]finance.Budget, error) {
	budgets, err := s.store.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range budgets {
		budgets[i].Spent = finance.SumExpenses(txs, budgets[i].Category)
	}
	return budgets, nil
}

func (s *Service) withSpent(ctx context.Context, b finance.Budget) (finance.Budget, error) {
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return finance.Budget{}, err
	}
	b.Spent = finance.SumExpenses(txs, b.Category)
	return b, nil
}
