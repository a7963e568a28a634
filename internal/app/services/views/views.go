// Package views derives read-only aggregates from the entity store. Nothing
// here is persisted; every view is recomputed from the collections passed in.
package views

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sarkhq/console/internal/app/domain/admin"
	"github.com/sarkhq/console/internal/app/domain/finance"
	"github.com/sarkhq/console/internal/app/domain/managedapp"
	"github.com/sarkhq/console/internal/app/domain/task"
)

// Result caps per search category.
const (
	MaxAppResults         = 3
	MaxAdminResults       = 3
	MaxTransactionResults = 3
	MaxTaskResults        = 2
)

// SummaryWindow is the look-back of the income and expense totals.
const SummaryWindow = 30 * 24 * time.Hour

// FinancialSummary is the dashboard's money headline.
type FinancialSummary struct {
	TotalBalance decimal.Decimal `json:"totalBalance"`
	Income30d    decimal.Decimal `json:"income30d"`
	Expense30d   decimal.Decimal `json:"expense30d"`
}

// Summary totals account balances and the income and expenses dated within
// the last 30 days.
func Summary(accounts []finance.Account, txs []finance.Transaction, now time.Time) FinancialSummary {
	out := FinancialSummary{TotalBalance: decimal.Zero, Income30d: decimal.Zero, Expense30d: decimal.Zero}
	for _, a := range accounts {
		out.TotalBalance = out.TotalBalance.Add(a.Balance)
	}
	since := now.Add(-SummaryWindow)
	for _, tx := range txs {
		if tx.Date.Before(since) {
			continue
		}
		switch tx.Type {
		case finance.TypeIncome:
			out.Income30d = out.Income30d.Add(tx.Amount)
		case finance.TypeExpense:
			out.Expense30d = out.Expense30d.Add(tx.Amount)
		}
	}
	return out
}

// BudgetsFromTemplate builds one budget per template with spend counted over
// the expenses of now's calendar month. Template budgets carry no id.
func BudgetsFromTemplate(templates []finance.BudgetTemplate, txs []finance.Transaction, now time.Time) []finance.Budget {
	year, month, _ := now.Date()
	loc := now.Location()
	out := make([]finance.Budget, 0, len(templates))
	for _, tpl := range templates {
		spent := decimal.Zero
		for _, tx := range txs {
			if tx.Type != finance.TypeExpense || tx.Category != tpl.Category {
				continue
			}
			y, m, _ := tx.Date.In(loc).Date()
			if y == year && m == month {
				spent = spent.Add(tx.Amount)
			}
		}
		out = append(out, finance.Budget{Category: tpl.Category, Limit: tpl.Limit, Spent: spent})
	}
	return out
}

// SearchResults holds the capped matches per category.
type SearchResults struct {
	Apps         []managedapp.ManagedApp `json:"apps"`
	Admins       []admin.Administrator   `json:"admins"`
	Transactions []finance.Transaction   `json:"transactions"`
	Tasks        []task.Task             `json:"tasks"`
}

// Empty reports whether nothing matched.
func (r SearchResults) Empty() bool {
	return len(r.Apps)+len(r.Admins)+len(r.Transactions)+len(r.Tasks) == 0
}

// Search matches query case-insensitively as a substring of app names,
// administrator names and emails, transaction descriptions and categories,
// and task titles and descriptions. A blank query matches nothing.
func Search(query string, apps []managedapp.ManagedApp, admins []admin.Administrator, txs []finance.Transaction, tasks []task.Task) SearchResults {
	out := SearchResults{
		Apps:         []managedapp.ManagedApp{},
		Admins:       []admin.Administrator{},
		Transactions: []finance.Transaction{},
		Tasks:        []task.Task{},
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return out
	}
	for _, a := range apps {
		if len(out.Apps) == MaxAppResults {
			break
		}
		if contains(q, a.Name) {
			out.Apps = append(out.Apps, a)
		}
	}
	for _, a := range admins {
		if len(out.Admins) == MaxAdminResults {
			break
		}
		if contains(q, a.Name, a.Email) {
			out.Admins = append(out.Admins, a)
		}
	}
	for _, tx := range txs {
		if len(out.Transactions) == MaxTransactionResults {
			break
		}
		if contains(q, tx.Description, tx.Category) {
			out.Transactions = append(out.Transactions, tx)
		}
	}
	for _, t := range tasks {
		if len(out.Tasks) == MaxTaskResults {
			break
		}
		if contains(q, t.Title, t.Description) {
			out.Tasks = append(out.Tasks, t)
		}
	}
	return out
}

func contains(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// ExpenseFilter narrows the transactions feeding ExpenseDistribution. Zero
// fields do not filter.
type ExpenseFilter struct {
	From      time.Time
	To        time.Time
	AccountID int64
}

func (f ExpenseFilter) match(tx finance.Transaction) bool {
	if tx.Type != finance.TypeExpense {
		return false
	}
	if f.AccountID != 0 && tx.AccountID != f.AccountID {
		return false
	}
	if !f.From.IsZero() && tx.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To) {
		return false
	}
	return true
}

// CategoryTotal is one slice of the expense distribution.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// ExpenseDistribution sums filtered expenses per category, largest first.
// Equal totals are ordered by category name.
func ExpenseDistribution(txs []finance.Transaction, filter ExpenseFilter) []CategoryTotal {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if !filter.match(tx) {
			continue
		}
		if cur, ok := totals[tx.Category]; ok {
			totals[tx.Category] = cur.Add(tx.Amount)
			continue
		}
		totals[tx.Category] = tx.Amount
	}
	out := make([]CategoryTotal, 0, len(totals))
	for c, v := range totals {
		out = append(out, CategoryTotal{Category: c, Total: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Total.Cmp(out[j].Total); cmp != 0 {
			return cmp > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}
