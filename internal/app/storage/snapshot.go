package storage

import (
	"github.com/sarkhq/console/internal/app/domain/admin"
	"github.com/sarkhq/console/internal/app/domain/apikey"
	"github.com/sarkhq/console/internal/app/domain/customdomain"
	"github.com/sarkhq/console/internal/app/domain/finance"
	"github.com/sarkhq/console/internal/app/domain/managedapp"
	"github.com/sarkhq/console/internal/app/domain/messaging"
	"github.com/sarkhq/console/internal/app/domain/notification"
	"github.com/sarkhq/console/internal/app/domain/task"
)

// Collection keys. Each key holds one JSON document in the key/value backend.
const (
	KeyAdministrators        = "administrators"
	KeyApps                  = "apps"
	KeyTransactions          = "transactions"
	KeyNotifications         = "notifications"
	KeyConversations         = "conversations"
	KeyMessages              = "messages"
	KeyAPIKeys               = "apiKeys"
	KeyCustomDomains         = "customDomains"
	KeyAccounts              = "accounts"
	KeyBudgets               = "budgets"
	KeyRecurringTransactions = "recurringTransactions"
	KeyCurrentUser           = "currentUser"
	KeyTasks                 = "tasks"
)

// AllKeys lists every persisted key.
func AllKeys() []string {
	return []string{
		KeyAdministrators, KeyApps, KeyTransactions, KeyNotifications,
		KeyConversations, KeyMessages, KeyAPIKeys, KeyCustomDomains,
		KeyAccounts, KeyBudgets, KeyRecurringTransactions, KeyCurrentUser,
		KeyTasks,
	}
}

// Snapshot is the complete entity state apart from the session user.
type Snapshot struct {
	Administrators        []admin.Administrator          `json:"administrators"`
	Apps                  []managedapp.ManagedApp        `json:"apps"`
	Transactions          []finance.Transaction          `json:"transactions"`
	Accounts              []finance.Account              `json:"accounts"`
	Budgets               []finance.Budget               `json:"budgets"`
	RecurringTransactions []finance.RecurringTransaction `json:"recurringTransactions"`
	Tasks                 []task.Task                    `json:"tasks"`
	Notifications         []notification.Notification    `json:"notifications"`
	Conversations         []messaging.Conversation       `json:"conversations"`
	Messages              []messaging.Message            `json:"messages"`
	APIKeys               []apikey.APIKey                `json:"apiKeys"`
	CustomDomains         []customdomain.CustomDomain    `json:"customDomains"`
}
