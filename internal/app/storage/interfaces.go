package storage

import (
	"context"

	"github.com/sarkhq/console/internal/app/domain/admin"
	"github.com/sarkhq/console/internal/app/domain/apikey"
	"github.com/sarkhq/console/internal/app/domain/customdomain"
	"github.com/sarkhq/console/internal/app/domain/finance"
	"github.com/sarkhq/console/internal/app/domain/managedapp"
	"github.com/sarkhq/console/internal/app/domain/messaging"
	"github.com/sarkhq/console/internal/app/domain/notification"
	"github.com/sarkhq/console/internal/app/domain/task"
)

// AdminStore persists administrators.
type AdminStore interface {
	CreateAdmin(ctx context.Context, a admin.Administrator) (admin.Administrator, error)
	UpdateAdmin(ctx context.Context, a admin.Administrator) (admin.Administrator, error)
	GetAdmin(ctx context.Context, id int64) (admin.Administrator, error)
	ListAdmins(ctx context.Context) ([]admin.Administrator, error)
	DeleteAdmin(ctx context.Context, id int64) error
	PrependActivity(ctx context.Context, id int64, entry admin.ActivityLog) (admin.Administrator, error)
}

// AppStore persists managed apps.
type AppStore interface {
	CreateApp(ctx context.Context, app managedapp.ManagedApp) (managedapp.ManagedApp, error)
	UpdateApp(ctx context.Context, app managedapp.ManagedApp) (managedapp.ManagedApp, error)
	GetApp(ctx context.Context, id int64) (managedapp.ManagedApp, error)
	ListApps(ctx context.Context) ([]managedapp.ManagedApp, error)
	DeleteApp(ctx context.Context, id int64) error
	// ModifyApp applies fn to the stored app as one atomic read-modify-write.
	// An error from fn aborts the change.
	ModifyApp(ctx context.Context, id int64, fn func(*managedapp.ManagedApp) error) (managedapp.ManagedApp, error)
	// PushResourceSample appends one CPU and one memory sample, keeping the
	// windows at managedapp.HistoryLength.
	PushResourceSample(ctx context.Context, id int64, cpu, memory float64) (managedapp.ManagedApp, error)
	// SwapAppStatus sets the status to next only when it currently equals
	// expected. The boolean reports whether the swap happened.
	SwapAppStatus(ctx context.Context, id int64, expected, next managedapp.Status) (managedapp.ManagedApp, bool, error)
}

// FinanceStore persists accounts, transactions, budgets and recurring
// transactions.
type FinanceStore interface {
	// CreateTransaction records tx and adjusts the referenced account's
	// balance in the same step.
	CreateTransaction(ctx context.Context, tx finance.Transaction) (finance.Transaction, finance.Account, error)
	ListTransactions(ctx context.Context) ([]finance.Transaction, error)

	GetAccount(ctx context.Context, id int64) (finance.Account, error)
	ListAccounts(ctx context.Context) ([]finance.Account, error)
	DeleteAccount(ctx context.Context, id int64) error

	CreateBudget(ctx context.Context, b finance.Budget) (finance.Budget, error)
	UpdateBudget(ctx context.Context, b finance.Budget) (finance.Budget, error)
	GetBudget(ctx context.Context, id int64) (finance.Budget, error)
	ListBudgets(ctx context.Context) ([]finance.Budget, error)
	DeleteBudget(ctx context.Context, id int64) error

	ListRecurring(ctx context.Context) ([]finance.RecurringTransaction, error)
}

// TaskStore persists tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, t task.Task) (task.Task, error)
	GetTask(ctx context.Context, id int64) (task.Task, error)
	ListTasks(ctx context.Context) ([]task.Task, error)
	ToggleTask(ctx context.Context, id int64) (task.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// NotificationStore persists notifications, newest first.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error)
	ListNotifications(ctx context.Context) ([]notification.Notification, error)
	MarkAllNotificationsRead(ctx context.Context) (int, error)
}

// MessagingStore persists conversations and messages.
type MessagingStore interface {
	CreateConversation(ctx context.Context, c messaging.Conversation) (messaging.Conversation, error)
	GetConversation(ctx context.Context, id int64) (messaging.Conversation, error)
	ListConversations(ctx context.Context) ([]messaging.Conversation, error)
	FindConversation(ctx context.Context, contactID int64, platform messaging.Platform) (messaging.Conversation, error)
	// AppendMessage stores msg and refreshes the conversation's last message,
	// timestamp and unread counter in the same step.
	AppendMessage(ctx context.Context, msg messaging.Message) (messaging.Message, messaging.Conversation, error)
	ListMessages(ctx context.Context, conversationID int64) ([]messaging.Message, error)
	MarkConversationRead(ctx context.Context, id int64) (messaging.Conversation, error)
}

// APIKeyStore persists API keys.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key apikey.APIKey) (apikey.APIKey, error)
	UpdateAPIKey(ctx context.Context, key apikey.APIKey) (apikey.APIKey, error)
	GetAPIKey(ctx context.Context, id string) (apikey.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]apikey.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) error
}

// DomainStore persists custom domains.
type DomainStore interface {
	CreateDomain(ctx context.Context, d customdomain.CustomDomain) (customdomain.CustomDomain, error)
	GetDomain(ctx context.Context, id int64) (customdomain.CustomDomain, error)
	ListDomains(ctx context.Context) ([]customdomain.CustomDomain, error)
	DeleteDomain(ctx context.Context, id int64) error
	// SwapDomainStatus sets the status to next only when it currently equals
	// expected.
	SwapDomainStatus(ctx context.Context, id int64, expected, next customdomain.Status) (customdomain.CustomDomain, bool, error)
}
