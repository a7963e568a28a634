package persist

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
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/internal/app/storage/kv"
	"github.com/sarkhq/console/pkg/logger"
)

// LoadSnapshot reads every collection key, using the matching collection of
// defaults for keys that are absent or unreadable.
func LoadSnapshot(ctx context.Context, backend kv.Backend, defaults storage.Snapshot, log *logger.Logger) storage.Snapshot {
	return storage.Snapshot{
		Administrators:        NewSlot[[]admin.Administrator](backend, storage.KeyAdministrators, log).Load(ctx, defaults.Administrators),
		Apps:                  NewSlot[[]managedapp.ManagedApp](backend, storage.KeyApps, log).Load(ctx, defaults.Apps),
		Transactions:          NewSlot[[]finance.Transaction](backend, storage.KeyTransactions, log).Load(ctx, defaults.Transactions),
		Accounts:              NewSlot[[]finance.Account](backend, storage.KeyAccounts, log).Load(ctx, defaults.Accounts),
		Budgets:               NewSlot[[]finance.Budget](backend, storage.KeyBudgets, log).Load(ctx, defaults.Budgets),
		RecurringTransactions: NewSlot[[]finance.RecurringTransaction](backend, storage.KeyRecurringTransactions, log).Load(ctx, defaults.RecurringTransactions),
		Tasks:                 NewSlot[[]task.Task](backend, storage.KeyTasks, log).Load(ctx, defaults.Tasks),
		Notifications:         NewSlot[[]notification.Notification](backend, storage.KeyNotifications, log).Load(ctx, defaults.Notifications),
		Conversations:         NewSlot[[]messaging.Conversation](backend, storage.KeyConversations, log).Load(ctx, defaults.Conversations),
		Messages:              NewSlot[[]messaging.Message](backend, storage.KeyMessages, log).Load(ctx, defaults.Messages),
		APIKeys:               NewSlot[[]apikey.APIKey](backend, storage.KeyAPIKeys, log).Load(ctx, defaults.APIKeys),
		CustomDomains:         NewSlot[[]customdomain.CustomDomain](backend, storage.KeyCustomDomains, log).Load(ctx, defaults.CustomDomains),
	}
}

// Clear deletes every persisted key.
func Clear(ctx context.Context, backend kv.Backend) error {
	return backend.Delete(ctx, storage.AllKeys()...)
}
