package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sarkhq/console/internal/app/chance"
	"github.com/sarkhq/console/internal/app/domain/admin"
	"github.com/sarkhq/console/internal/app/domain/apikey"
	"github.com/sarkhq/console/internal/app/domain/customdomain"
	"github.com/sarkhq/console/internal/app/domain/finance"
	"github.com/sarkhq/console/internal/app/domain/managedapp"
	"github.com/sarkhq/console/internal/app/domain/messaging"
	"github.com/sarkhq/console/internal/app/domain/notification"
	"github.com/sarkhq/console/internal/app/domain/task"
	"github.com/sarkhq/console/internal/app/metrics"
	"github.com/sarkhq/console/internal/app/storage"
)

// Mirror receives every collection the store replaces. The persistence
// writer implements it.
type Mirror interface {
	Persist(key string, value any)
}

// Store is the in-memory implementation of the storage interfaces. Every
// mutation swaps in a new slice for the affected collection under one lock,
// so readers never observe a half-applied change.
type Store struct {
	mu     sync.RWMutex
	mirror Mirror
	rand   chance.Source

	admins        []admin.Administrator
	apps          []managedapp.ManagedApp
	transactions  []finance.Transaction
	accounts      []finance.Account
	budgets       []finance.Budget
	recurring     []finance.RecurringTransaction
	tasks         []task.Task
	notifications []notification.Notification
	conversations []messaging.Conversation
	messages      []messaging.Message
	apiKeys       []apikey.APIKey
	domains       []customdomain.CustomDomain
}

var _ storage.AdminStore = (*Store)(nil)
var _ storage.AppStore = (*Store)(nil)
var _ storage.FinanceStore = (*Store)(nil)
var _ storage.TaskStore = (*Store)(nil)
var _ storage.NotificationStore = (*Store)(nil)
var _ storage.MessagingStore = (*Store)(nil)
var _ storage.APIKeyStore = (*Store)(nil)
var _ storage.DomainStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{rand: chance.Default()}
}

// SetMirror attaches the sink that receives replaced collections.
func (s *Store) SetMirror(m Mirror) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = m
}

// SetSource replaces the randomness used for transaction ids.
func (s *Store) SetSource(src chance.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src != nil {
		s.rand = src
	}
}

// Snapshot returns a deep copy of every collection.
func (s *Store) Snapshot() storage.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return storage.Snapshot{
		Administrators:        cloneAll(s.admins, cloneAdmin),
		Apps:                  cloneAll(s.apps, cloneApp),
		Transactions:          cloneAll(s.transactions, identity[finance.Transaction]),
		Accounts:              cloneAll(s.accounts, identity[finance.Account]),
		Budgets:               cloneAll(s.budgets, identity[finance.Budget]),
		RecurringTransactions: cloneAll(s.recurring, identity[finance.RecurringTransaction]),
		Tasks:                 cloneAll(s.tasks, identity[task.Task]),
		Notifications:         cloneAll(s.notifications, identity[notification.Notification]),
		Conversations:         cloneAll(s.conversations, identity[messaging.Conversation]),
		Messages:              cloneAll(s.messages, identity[messaging.Message]),
		APIKeys:               cloneAll(s.apiKeys, cloneAPIKey),
		CustomDomains:         cloneAll(s.domains, cloneDomain),
	}
}

// Restore replaces every collection with a copy of snap. Nothing is
// mirrored; callers restoring from the backend already hold these values.
func (s *Store) Restore(snap storage.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admins = cloneAll(snap.Administrators, cloneAdmin)
	s.apps = cloneAll(snap.Apps, cloneApp)
	s.transactions = cloneAll(snap.Transactions, identity[finance.Transaction])
	sortTransactions(s.transactions)
	s.accounts = cloneAll(snap.Accounts, identity[finance.Account])
	s.budgets = cloneAll(snap.Budgets, identity[finance.Budget])
	for i := range s.budgets {
		s.budgets[i].Spent = decimal.Zero
	}
	s.recurring = cloneAll(snap.RecurringTransactions, identity[finance.RecurringTransaction])
	s.tasks = cloneAll(snap.Tasks, identity[task.Task])
	s.notifications = cloneAll(snap.Notifications, identity[notification.Notification])
	s.conversations = cloneAll(snap.Conversations, identity[messaging.Conversation])
	s.messages = cloneAll(snap.Messages, identity[messaging.Message])
	s.apiKeys = cloneAll(snap.APIKeys, cloneAPIKey)
	s.domains = cloneAll(snap.CustomDomains, cloneDomain)
}

func (s *Store) publishLocked(key string, value any) {
	metrics.RecordMutation(key)
	if s.mirror != nil {
		s.mirror.Persist(key, value)
	}
}

func notFound(kind string, id any) error {
	return fmt.Errorf("%w: %s %v", storage.ErrNotFound, kind, id)
}

// AdminStore implementation ---------------------------------------------------

func (s *Store) CreateAdmin(_ context.Context, a admin.Administrator) (admin.Administrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == 0 {
		a.ID = nextID(s.admins, adminID)
	} else if indexOf(s.admins, a.ID, adminID) >= 0 {
		return admin.Administrator{}, fmt.Errorf("%w: administrator %d already exists", storage.ErrConflict, a.ID)
	}
	a = cloneAdmin(a)
	s.admins = append(cloneAll(s.admins, identity[admin.Administrator]), a)
	s.publishLocked(storage.KeyAdministrators, s.admins)
	return cloneAdmin(a), nil
}

func (s *Store) UpdateAdmin(_ context.Context, a admin.Administrator) (admin.Administrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.admins, a.ID, adminID)
	if idx < 0 {
		return admin.Administrator{}, notFound("administrator", a.ID)
	}
	next := cloneAll(s.admins, identity[admin.Administrator])
	next[idx] = cloneAdmin(a)
	s.admins = next
	s.publishLocked(storage.KeyAdministrators, s.admins)
	return cloneAdmin(a), nil
}

func (s *Store) GetAdmin(_ context.Context, id int64) (admin.Administrator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := indexOf(s.admins, id, adminID)
	if idx < 0 {
		return admin.Administrator{}, notFound("administrator", id)
	}
	return cloneAdmin(s.admins[idx]), nil
}

func (s *Store) ListAdmins(context.Context) ([]admin.Administrator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.admins, cloneAdmin), nil
}

func (s *Store) DeleteAdmin(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.admins, id, adminID)
	if idx < 0 {
		return notFound("administrator", id)
	}
	s.admins = without(s.admins, idx)
	s.publishLocked(storage.KeyAdministrators, s.admins)
	return nil
}

func (s *Store) PrependActivity(_ context.Context, id int64, entry admin.ActivityLog) (admin.Administrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.admins, id, adminID)
	if idx < 0 {
		return admin.Administrator{}, notFound("administrator", id)
	}
	next := cloneAll(s.admins, identity[admin.Administrator])
	a := cloneAdmin(next[idx])
	a.ActivityLogs = append([]admin.ActivityLog{entry}, a.ActivityLogs...)
	next[idx] = a
	s.admins = next
	s.publishLocked(storage.KeyAdministrators, s.admins)
	return cloneAdmin(a), nil
}

// AppStore implementation -----------------------------------------------------

func (s *Store) CreateApp(_ context.Context, app managedapp.ManagedApp) (managedapp.ManagedApp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if app.ID == 0 {
		app.ID = nextID(s.apps, appID)
	} else if indexOf(s.apps, app.ID, appID) >= 0 {
		return managedapp.ManagedApp{}, fmt.Errorf("%w: app %d already exists", storage.ErrConflict, app.ID)
	}
	app = cloneApp(app)
	s.apps = append(cloneAll(s.apps, identity[managedapp.ManagedApp]), app)
	s.publishLocked(storage.KeyApps, s.apps)
	return cloneApp(app), nil
}

func (s *Store) UpdateApp(_ context.Context, app managedapp.ManagedApp) (managedapp.ManagedApp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.apps, app.ID, appID)
	if idx < 0 {
		return managedapp.ManagedApp{}, notFound("app", app.ID)
	}
	s.replaceAppLocked(idx, cloneApp(app))
	return cloneApp(app), nil
}

func (s *Store) ModifyApp(_ context.Context, id int64, fn func(*managedapp.ManagedApp) error) (managedapp.ManagedApp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.apps, id, appID)
	if idx < 0 {
		return managedapp.ManagedApp{}, notFound("app", id)
	}
	app := cloneApp(s.apps[idx])
	if err := fn(&app); err != nil {
		return managedapp.ManagedApp{}, err
	}
	app.ID = id
	s.replaceAppLocked(idx, app)
	return cloneApp(app), nil
}

func (s *Store) GetApp(_ context.Context, id int64) (managedapp.ManagedApp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := indexOf(s.apps, id, appID)
	if idx < 0 {
		return managedapp.ManagedApp{}, notFound("app", id)
	}
	return cloneApp(s.apps[idx]), nil
}

func (s *Store) ListApps(context.Context) ([]managedapp.ManagedApp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.apps, cloneApp), nil
}

func (s *Store) DeleteApp(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.apps, id, appID)
	if idx < 0 {
		return notFound("app", id)
	}
	s.apps = without(s.apps, idx)
	s.publishLocked(storage.KeyApps, s.apps)
	return nil
}

func (s *Store) PushResourceSample(_ context.Context, id int64, cpu, memory float64) (managedapp.ManagedApp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.apps, id, appID)
	if idx < 0 {
		return managedapp.ManagedApp{}, notFound("app", id)
	}
	app := cloneApp(s.apps[idx])
	app.Resources.CPU = managedapp.Push(app.Resources.CPU, cpu)
	app.Resources.Memory = managedapp.Push(app.Resources.Memory, memory)
	s.replaceAppLocked(idx, app)
	return cloneApp(app), nil
}

func (s *Store) SwapAppStatus(_ context.Context, id int64, expected, next managedapp.Status) (managedapp.ManagedApp, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.apps, id, appID)
	if idx < 0 {
		return managedapp.ManagedApp{}, false, notFound("app", id)
	}
	current := s.apps[idx]
	if current.Status != expected {
		return cloneApp(current), false, nil
	}
	app := cloneApp(current)
	app.Status = next
	s.replaceAppLocked(idx, app)
	return cloneApp(app), true, nil
}

func (s *Store) replaceAppLocked(idx int, app managedapp.ManagedApp) {
	next := cloneAll(s.apps, identity[managedapp.ManagedApp])
	next[idx] = app
	s.apps = next
	s.publishLocked(storage.KeyApps, s.apps)
}

// FinanceStore implementation -------------------------------------------------

func (s *Store) CreateTransaction(_ context.Context, tx finance.Transaction) (finance.Transaction, finance.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accIdx := indexOf(s.accounts, tx.AccountID, accountID)
	if accIdx < 0 {
		return finance.Transaction{}, finance.Account{}, notFound("account", tx.AccountID)
	}

	if tx.ID == 0 {
		tx.ID = time.Now().UnixMilli()*1000 + int64(s.rand.IntN(1000))
	}
	if indexOf(s.transactions, tx.ID, transactionID) >= 0 {
		tx.ID = nextID(s.transactions, transactionID)
	}

	accounts := cloneAll(s.accounts, identity[finance.Account])
	acct := accounts[accIdx]
	tx.Account = acct.Name
	acct.Balance = acct.Balance.Add(tx.Signed())
	accounts[accIdx] = acct

	txs := make([]finance.Transaction, 0, len(s.transactions)+1)
	txs = append(txs, tx)
	txs = append(txs, s.transactions...)
	sortTransactions(txs)

	s.transactions = txs
	s.accounts = accounts
	s.publishLocked(storage.KeyTransactions, s.transactions)
	s.publishLocked(storage.KeyAccounts, s.accounts)
	return tx, acct, nil
}

func (s *Store) ListTransactions(context.Context) ([]finance.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.transactions, identity[finance.Transaction]), nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (finance.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := indexOf(s.accounts, id, accountID)
	if idx < 0 {
		return finance.Account{}, notFound("account", id)
	}
	return s.accounts[idx], nil
}

func (s *Store) ListAccounts(context.Context) ([]finance.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.accounts, identity[finance.Account]), nil
}

func (s *Store) DeleteAccount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.accounts, id, accountID)
	if idx < 0 {
		return notFound("account", id)
	}
	for _, tx := range s.transactions {
		if tx.AccountID == id {
			return fmt.Errorf("%w: account %d is referenced by transaction %d", storage.ErrInUse, id, tx.ID)
		}
	}
	s.accounts = without(s.accounts, idx)
	s.publishLocked(storage.KeyAccounts, s.accounts)
	return nil
}

func (s *Store) CreateBudget(_ context.Context, b finance.Budget) (finance.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.budgetCategoryTakenLocked(b.Category, 0) {
		return finance.Budget{}, fmt.Errorf("%w: budget for category %q already exists", storage.ErrConflict, b.Category)
	}
	b.ID = nextID(s.budgets, budgetID)
	b.Spent = decimal.Zero
	s.budgets = append(cloneAll(s.budgets, identity[finance.Budget]), b)
	s.publishLocked(storage.KeyBudgets, s.budgets)
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, b finance.Budget) (finance.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.budgets, b.ID, budgetID)
	if idx < 0 {
		return finance.Budget{}, notFound("budget", b.ID)
	}
	if s.budgetCategoryTakenLocked(b.Category, b.ID) {
		return finance.Budget{}, fmt.Errorf("%w: budget for category %q already exists", storage.ErrConflict, b.Category)
	}
	b.Spent = decimal.Zero
	next := cloneAll(s.budgets, identity[finance.Budget])
	next[idx] = b
	s.budgets = next
	s.publishLocked(storage.KeyBudgets, s.budgets)
	return b, nil
}

func (s *Store) GetBudget(_ context.Context, id int64) (finance.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := indexOf(s.budgets, id, budgetID)
	if idx < 0 {
		return finance.Budget{}, notFound("budget", id)
	}
	return s.budgets[idx], nil
}

func (s *Store) ListBudgets(context.Context) ([]finance.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.budgets, identity[finance.Budget]), nil
}

func (s *Store) DeleteBudget(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.budgets, id, budgetID)
	if idx < 0 {
		return notFound("budget", id)
	}
	s.budgets = without(s.budgets, idx)
	s.publishLocked(storage.KeyBudgets, s.budgets)
	return nil
}

func (s *Store) budgetCategoryTakenLocked(category string, self int64) bool {
	for _, b := range s.budgets {
		if b.ID != self && strings.EqualFold(b.Category, category) {
			return true
		}
	}
	return false
}

func (s *Store) ListRecurring(context.Context) ([]finance.RecurringTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.recurring, identity[finance.RecurringTransaction]), nil
}

// TaskStore implementation ----------------------------------------------------

func (s *Store) CreateTask(_ context.Context, t task.Task) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = nextID(s.tasks, taskID)
	s.tasks = append(cloneAll(s.tasks, identity[task.Task]), t)
	s.publishLocked(storage.KeyTasks, s.tasks)
	return t, nil
}

func (s *Store) GetTask(_ context.Context, id int64) (task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := indexOf(s.tasks, id, taskID)
	if idx < 0 {
		return task.Task{}, notFound("task", id)
	}
	return s.tasks[idx], nil
}

func (s *Store) ListTasks(context.Context) ([]task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.tasks, identity[task.Task]), nil
}

func (s *Store) ToggleTask(_ context.Context, id int64) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.tasks, id, taskID)
	if idx < 0 {
		return task.Task{}, notFound("task", id)
	}
	next := cloneAll(s.tasks, identity[task.Task])
	next[idx].Completed = !next[idx].Completed
	s.tasks = next
	s.publishLocked(storage.KeyTasks, s.tasks)
	return next[idx], nil
}

func (s *Store) DeleteTask(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.tasks, id, taskID)
	if idx < 0 {
		return notFound("task", id)
	}
	s.tasks = without(s.tasks, idx)
	s.publishLocked(storage.KeyTasks, s.tasks)
	return nil
}

// NotificationStore implementation --------------------------------------------

func (s *Store) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.notifications {
		if existing.ID == n.ID {
			return notification.Notification{}, fmt.Errorf("%w: notification %s already exists", storage.ErrConflict, n.ID)
		}
	}
	next := make([]notification.Notification, 0, len(s.notifications)+1)
	next = append(next, n)
	s.notifications = append(next, s.notifications...)
	s.publishLocked(storage.KeyNotifications, s.notifications)
	return n, nil
}

func (s *Store) ListNotifications(context.Context) ([]notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.notifications, identity[notification.Notification]), nil
}

func (s *Store) MarkAllNotificationsRead(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	next := cloneAll(s.notifications, identity[notification.Notification])
	for i := range next {
		if !next[i].Read {
			next[i].Read = true
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	s.notifications = next
	s.publishLocked(storage.KeyNotifications, s.notifications)
	return changed, nil
}

// MessagingStore implementation -----------------------------------------------

func (s *Store) CreateConversation(_ context.Context, c messaging.Conversation) (messaging.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.conversations {
		if existing.ContactID == c.ContactID && existing.Platform == c.Platform {
			return messaging.Conversation{}, fmt.Errorf("%w: conversation with contact %d on %s already exists",
				storage.ErrConflict, c.ContactID, c.Platform)
		}
	}
	c.ID = nextID(s.conversations, conversationID)
	next := make([]messaging.Conversation, 0, len(s.conversations)+1)
	next = append(next, c)
	s.conversations = append(next, s.conversations...)
	s.publishLocked(storage.KeyConversations, s.conversations)
	return c, nil
}

func (s *Store) GetConversation(_ context.Context, id int64) (messaging.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := indexOf(s.conversations, id, conversationID)
	if idx < 0 {
		return messaging.Conversation{}, notFound("conversation", id)
	}
	return s.conversations[idx], nil
}

func (s *Store) ListConversations(context.Context) ([]messaging.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.conversations, identity[messaging.Conversation]), nil
}

func (s *Store) FindConversation(_ context.Context, contactID int64, platform messaging.Platform) (messaging.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.conversations {
		if c.ContactID == contactID && c.Platform == platform {
			return c, nil
		}
	}
	return messaging.Conversation{}, fmt.Errorf("%w: conversation with contact %d on %s", storage.ErrNotFound, contactID, platform)
}

func (s *Store) AppendMessage(_ context.Context, msg messaging.Message) (messaging.Message, messaging.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.conversations, msg.ConversationID, conversationID)
	if idx < 0 {
		return messaging.Message{}, messaging.Conversation{}, notFound("conversation", msg.ConversationID)
	}
	if msg.Platform == "" {
		msg.Platform = s.conversations[idx].Platform
	}
	msg.ID = nextID(s.messages, messageID)

	convs := cloneAll(s.conversations, identity[messaging.Conversation])
	conv := convs[idx]
	conv.LastMessage = msg.Text
	conv.Timestamp = msg.Timestamp
	if msg.Sender == messaging.SenderContact {
		conv.UnreadCount++
	}
	convs[idx] = conv

	s.messages = append(cloneAll(s.messages, identity[messaging.Message]), msg)
	s.conversations = convs
	s.publishLocked(storage.KeyMessages, s.messages)
	s.publishLocked(storage.KeyConversations, s.conversations)
	return msg, conv, nil
}

func (s *Store) ListMessages(_ context.Context, id int64) ([]messaging.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if indexOf(s.conversations, id, conversationID) < 0 {
		return nil, notFound("conversation", id)
	}
	out := make([]messaging.Message, 0)
	for _, m := range s.messages {
		if m.ConversationID == id {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) MarkConversationRead(_ context.Context, id int64) (messaging.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.conversations, id, conversationID)
	if idx < 0 {
		return messaging.Conversation{}, notFound("conversation", id)
	}
	if s.conversations[idx].UnreadCount == 0 {
		return s.conversations[idx], nil
	}
	next := cloneAll(s.conversations, identity[messaging.Conversation])
	next[idx].UnreadCount = 0
	s.conversations = next
	s.publishLocked(storage.KeyConversations, s.conversations)
	return next[idx], nil
}

// APIKeyStore implementation --------------------------------------------------

func (s *Store) CreateAPIKey(_ context.Context, key apikey.APIKey) (apikey.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key.ID == "" {
		return apikey.APIKey{}, fmt.Errorf("api key id is required")
	}
	if indexOf(s.apiKeys, key.ID, apiKeyID) >= 0 {
		return apikey.APIKey{}, fmt.Errorf("%w: api key %s already exists", storage.ErrConflict, key.ID)
	}
	key = cloneAPIKey(key)
	next := make([]apikey.APIKey, 0, len(s.apiKeys)+1)
	next = append(next, key)
	s.apiKeys = append(next, s.apiKeys...)
	s.publishLocked(storage.KeyAPIKeys, s.apiKeys)
	return cloneAPIKey(key), nil
}

func (s *Store) UpdateAPIKey(_ context.Context, key apikey.APIKey) (apikey.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.apiKeys, key.ID, apiKeyID)
	if idx < 0 {
		return apikey.APIKey{}, notFound("api key", key.ID)
	}
	next := cloneAll(s.apiKeys, identity[apikey.APIKey])
	next[idx] = cloneAPIKey(key)
	s.apiKeys = next
	s.publishLocked(storage.KeyAPIKeys, s.apiKeys)
	return cloneAPIKey(key), nil
}

func (s *Store) GetAPIKey(_ context.Context, id string) (apikey.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := indexOf(s.apiKeys, id, apiKeyID)
	if idx < 0 {
		return apikey.APIKey{}, notFound("api key", id)
	}
	return cloneAPIKey(s.apiKeys[idx]), nil
}

func (s *Store) ListAPIKeys(context.Context) ([]apikey.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.apiKeys, cloneAPIKey), nil
}

func (s *Store) DeleteAPIKey(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.apiKeys, id, apiKeyID)
	if idx < 0 {
		return notFound("api key", id)
	}
	s.apiKeys = without(s.apiKeys, idx)
	s.publishLocked(storage.KeyAPIKeys, s.apiKeys)
	return nil
}

// DomainStore implementation --------------------------------------------------

func (s *Store) CreateDomain(_ context.Context, d customdomain.CustomDomain) (customdomain.CustomDomain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.domains {
		if existing.DomainName == d.DomainName {
			return customdomain.CustomDomain{}, fmt.Errorf("%w: domain %s already exists", storage.ErrConflict, d.DomainName)
		}
	}
	d.ID = nextID(s.domains, domainID)
	d = cloneDomain(d)
	s.domains = append(cloneAll(s.domains, identity[customdomain.CustomDomain]), d)
	s.publishLocked(storage.KeyCustomDomains, s.domains)
	return cloneDomain(d), nil
}

func (s *Store) GetDomain(_ context.Context, id int64) (customdomain.CustomDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := indexOf(s.domains, id, domainID)
	if idx < 0 {
		return customdomain.CustomDomain{}, notFound("domain", id)
	}
	return cloneDomain(s.domains[idx]), nil
}

func (s *Store) ListDomains(context.Context) ([]customdomain.CustomDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.domains, cloneDomain), nil
}

func (s *Store) DeleteDomain(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.domains, id, domainID)
	if idx < 0 {
		return notFound("domain", id)
	}
	s.domains = without(s.domains, idx)
	s.publishLocked(storage.KeyCustomDomains, s.domains)
	return nil
}

func (s *Store) SwapDomainStatus(_ context.Context, id int64, expected, next customdomain.Status) (customdomain.CustomDomain, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexOf(s.domains, id, domainID)
	if idx < 0 {
		return customdomain.CustomDomain{}, false, notFound("domain", id)
	}
	if s.domains[idx].Status != expected {
		return cloneDomain(s.domains[idx]), false, nil
	}
	domains := cloneAll(s.domains, identity[customdomain.CustomDomain])
	domains[idx].Status = next
	s.domains = domains
	s.publishLocked(storage.KeyCustomDomains, s.domains)
	return cloneDomain(domains[idx]), true, nil
}

// helpers ---------------------------------------------------------------------

func adminID(a admin.Administrator) int64 { return a.ID }
func appID(a managedapp.ManagedApp) int64 { return a.ID }
func transactionID(t finance.Transaction) int64 { return t.ID }
func accountID(a finance.Account) int64 { return a.ID }
func budgetID(b finance.Budget) int64 { return b.ID }
func taskID(t task.Task) int64 { return t.ID }
func conversationID(c messaging.Conversation) int64 { return c.ID }
func messageID(m messaging.Message) int64 { return m.ID }
func apiKeyID(k apikey.APIKey) string { return k.ID }
func domainID(d customdomain.CustomDomain) int64 { return d.ID }
func identity[T any](v T) T { return v }

func indexOf[T any, K comparable](items []T, id K, key func(T) K) int {
	for i, item := range items {
		if key(item) == id {
			return i
		}
	}
	return -1
}

func nextID[T any](items []T, key func(T) int64) int64 {
	var highest int64
	for _, item := range items {
		if id := key(item); id > highest {
			highest = id
		}
	}
	return highest + 1
}

func without[T any](items []T, idx int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:idx]...)
	return append(out, items[idx+1:]...)
}

func cloneAll[T any](items []T, clone func(T) T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = clone(item)
	}
	return out
}

func sortTransactions(txs []finance.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.After(txs[j].Date.Time)
	})
}

func cloneAdmin(a admin.Administrator) admin.Administrator {
	a.Permissions = append([]admin.Permission(nil), a.Permissions...)
	a.ActivityLogs = append([]admin.ActivityLog(nil), a.ActivityLogs...)
	if a.LastLogin != nil {
		ts := *a.LastLogin
		a.LastLogin = &ts
	}
	return a
}

func cloneApp(app managedapp.ManagedApp) managedapp.ManagedApp {
	app.Resources.CPU = append([]float64(nil), app.Resources.CPU...)
	app.Resources.Memory = append([]float64(nil), app.Resources.Memory...)
	app.Deployments = append([]managedapp.Deployment(nil), app.Deployments...)
	app.Logs = append([]managedapp.LogEntry(nil), app.Logs...)
	if app.EnvironmentVariables != nil {
		env := make(map[string]string, len(app.EnvironmentVariables))
		for k, v := range app.EnvironmentVariables {
			env[k] = v
		}
		app.EnvironmentVariables = env
	}
	if app.LastDeployed != nil {
		ts := *app.LastDeployed
		app.LastDeployed = &ts
	}
	return app
}

func cloneAPIKey(k apikey.APIKey) apikey.APIKey {
	k.Scopes = append([]apikey.Scope(nil), k.Scopes...)
	if k.LastUsed != nil {
		ts := *k.LastUsed
		k.LastUsed = &ts
	}
	return k
}

func cloneDomain(d customdomain.CustomDomain) customdomain.CustomDomain {
	d.DNSRecords = append([]customdomain.DNSRecord(nil), d.DNSRecords...)
	return d
}
