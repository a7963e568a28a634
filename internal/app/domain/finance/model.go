package finance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sarkhq/console/pkg/isotime"
)

// TransactionType tells whether a transaction adds to or draws from an
// account. Amounts are always positive; the type carries the sign.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// AccountType is the kind of a financial account.
type AccountType string

const (
	AccountChecking   AccountType = "Checking"
	AccountSavings    AccountType = "Savings"
	AccountCreditCard AccountType = "Credit Card"
)

// Frequency is the cadence of a recurring transaction.
type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// CategoryOther is the catch-all category.
const CategoryOther = "Other"

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	AccountID   int64           `json:"accountId"`
	Account     string          `json:"account"`
	Date        isotime.Time    `json:"date"`
}

// TransactionInput carries the fields accepted by AddTransaction.
type TransactionInput struct {
	Description string
	Amount      decimal.Decimal
	Type        TransactionType
	Category    string
	AccountID   int64
	Date        isotime.Time
}

// Account is a balance-carrying account. Balance is maintained incrementally
// by transactions.
type Account struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Type          AccountType     `json:"type"`
	Balance       decimal.Decimal `json:"balance"`
	Currency      string          `json:"currency"`
	CardNumber    string          `json:"cardNumber,omitempty"`
	CVV           string          `json:"cvv,omitempty"`
	AccountNumber string          `json:"accountNumber,omitempty"`
	RoutingNumber string          `json:"routingNumber,omitempty"`
}

// Budget caps spending in a category. Spent is derived from transactions on
// every read and is never stored.
type Budget struct {
	ID       int64           `json:"id"`
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
	Spent    decimal.Decimal `json:"spent"`
}

// Remaining returns Limit-Spent.
func (b Budget) Remaining() decimal.Decimal {
	return b.Limit.Sub(b.Spent)
}

// RecurringTransaction is a scheduled charge or payment. It is informational
// only; nothing materializes it into transactions.
type RecurringTransaction struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Frequency   Frequency       `json:"frequency"`
	NextDueDate isotime.Time    `json:"nextDueDate"`
}

// ParseType validates a transaction type.
func ParseType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeIncome:
		return TypeIncome, nil
	case TypeExpense:
		return TypeExpense, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

// Signed returns the amount with the sign implied by the type.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// SumExpenses totals expense amounts in category across txs.
func SumExpenses(txs []Transaction, category string) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Type == TypeExpense && tx.Category == category {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// BudgetTemplate is a fixed monthly cap shown on the dashboard. Its spend is
// computed over the current calendar month only.
type BudgetTemplate struct {
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
}
