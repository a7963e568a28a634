// Package seed builds the demo data set the console starts with and falls
// back to after a reset. Fixture times are relative to the build instant.
package seed

import (
	_ "embed"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/sarkhq/console/internal/app/domain/admin"
	"github.com/sarkhq/console/internal/app/domain/customdomain"
	"github.com/sarkhq/console/internal/app/domain/finance"
	"github.com/sarkhq/console/internal/app/domain/managedapp"
	"github.com/sarkhq/console/internal/app/domain/messaging"
	"github.com/sarkhq/console/internal/app/domain/notification"
	"github.com/sarkhq/console/internal/app/domain/session"
	"github.com/sarkhq/console/internal/app/domain/task"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/pkg/isotime"
)

//go:embed seed.yaml
var fixtures []byte

// Data is everything the console needs to start from scratch.
type Data struct {
	Snapshot        storage.Snapshot
	CurrentUser     session.User
	BudgetTemplates []finance.BudgetTemplate
}

type file struct {
	CurrentUser     session.User     `yaml:"currentUser"`
	Administrators  []adminFixture   `yaml:"administrators"`
	Apps            []appFixture     `yaml:"apps"`
	Accounts        []accountFixture `yaml:"accounts"`
	Transactions    []txFixture      `yaml:"transactions"`
	Budgets         []budgetFixture  `yaml:"budgets"`
	BudgetTemplates []budgetFixture  `yaml:"budgetTemplates"`
	Recurring       []recurFixture   `yaml:"recurring"`
	Tasks           []taskFixture    `yaml:"tasks"`
	Notifications   []noticeFixture  `yaml:"notifications"`
	Conversations   []convFixture    `yaml:"conversations"`
	Domains         []domainFixture  `yaml:"domains"`
}

type adminFixture struct {
	ID                int64      `yaml:"id"`
	Name              string     `yaml:"name"`
	Email             string     `yaml:"email"`
	AvatarURL         string     `yaml:"avatarUrl"`
	Role              string     `yaml:"role"`
	Status            string     `yaml:"status"`
	LastLoginHoursAgo *float64   `yaml:"lastLoginHoursAgo"`
	TwoFactorEnabled  bool       `yaml:"twoFactorEnabled"`
	Permissions       []string   `yaml:"permissions"`
	StorageUsed       float64    `yaml:"storageUsed"`
	Activity          []activity `yaml:"activity"`
}

type activity struct {
	Action   string  `yaml:"action"`
	Detail   string  `yaml:"detail"`
	HoursAgo float64 `yaml:"hoursAgo"`
}

type appFixture struct {
	ID                   int64             `yaml:"id"`
	Name                 string            `yaml:"name"`
	Platform             string            `yaml:"platform"`
	Status               string            `yaml:"status"`
	Repository           string            `yaml:"repository"`
	LastDeployedHoursAgo *float64          `yaml:"lastDeployedHoursAgo"`
	CPU                  float64           `yaml:"cpu"`
	Memory               float64           `yaml:"memory"`
	StorageUsed          float64           `yaml:"storageUsed"`
	Env                  map[string]string `yaml:"env"`
	Deployments          []struct {
		Version  string  `yaml:"version"`
		Status   string  `yaml:"status"`
		HoursAgo float64 `yaml:"hoursAgo"`
	} `yaml:"deployments"`
	Logs []struct {
		Level    string  `yaml:"level"`
		Message  string  `yaml:"message"`
		HoursAgo float64 `yaml:"hoursAgo"`
	} `yaml:"logs"`
}

type accountFixture struct {
	ID            int64  `yaml:"id"`
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	Balance       string `yaml:"balance"`
	Currency      string `yaml:"currency"`
	CardNumber    string `yaml:"cardNumber"`
	CVV           string `yaml:"cvv"`
	AccountNumber string `yaml:"accountNumber"`
	RoutingNumber string `yaml:"routingNumber"`
}

type txFixture struct {
	Description string  `yaml:"description"`
	Amount      string  `yaml:"amount"`
	Type        string  `yaml:"type"`
	Category    string  `yaml:"category"`
	AccountID   int64   `yaml:"accountId"`
	DaysAgo     float64 `yaml:"daysAgo"`
}

type budgetFixture struct {
	Category string `yaml:"category"`
	Limit    string `yaml:"limit"`
}

type recurFixture struct {
	Description string  `yaml:"description"`
	Amount      string  `yaml:"amount"`
	Type        string  `yaml:"type"`
	Category    string  `yaml:"category"`
	Frequency   string  `yaml:"frequency"`
	DueInDays   float64 `yaml:"dueInDays"`
}

type taskFixture struct {
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	DueInDays   float64 `yaml:"dueInDays"`
	Priority    string  `yaml:"priority"`
	Completed   bool    `yaml:"completed"`
}

type noticeFixture struct {
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	HoursAgo    float64 `yaml:"hoursAgo"`
	Tone        string  `yaml:"tone"`
	Icon        string  `yaml:"icon"`
	Read        bool    `yaml:"read"`
}

type convFixture struct {
	ContactID int64  `yaml:"contactId"`
	Platform  string `yaml:"platform"`
	Status    string `yaml:"status"`
	Phone     string `yaml:"phone"`
	Unread    int    `yaml:"unread"`
	Messages  []struct {
		Sender     string  `yaml:"sender"`
		Text       string  `yaml:"text"`
		MinutesAgo float64 `yaml:"minutesAgo"`
	} `yaml:"messages"`
}

type domainFixture struct {
	Name    string  `yaml:"name"`
	Status  string  `yaml:"status"`
	Token   string  `yaml:"token"`
	DaysAgo float64 `yaml:"daysAgo"`
}

// Load builds the fixture set relative to now.
func Load(now time.Time) (Data, error) {
	var f file
	if err := yaml.Unmarshal(fixtures, &f); err != nil {
		return Data{}, fmt.Errorf("decode seed fixtures: %w", err)
	}
	b := builder{now: now.UTC()}
	return b.build(f)
}

// MustLoad is Load for callers that cannot recover from broken fixtures.
func MustLoad(now time.Time) Data {
	d, err := Load(now)
	if err != nil {
		panic(err)
	}
	return d
}

type builder struct {
	now time.Time
}

func (b builder) ago(d time.Duration) isotime.Time {
	return isotime.From(b.now.Add(-d))
}

func hours(h float64) time.Duration { return time.Duration(h * float64(time.Hour)) }

func (b builder) build(f file) (Data, error) {
	var (
		out Data
		err error
	)
	out.CurrentUser = f.CurrentUser

	if out.Snapshot.Administrators, err = b.admins(f.Administrators); err != nil {
		return Data{}, err
	}
	if out.Snapshot.Apps, err = b.apps(f.Apps); err != nil {
		return Data{}, err
	}
	if out.Snapshot.Accounts, err = accounts(f.Accounts); err != nil {
		return Data{}, err
	}
	if out.Snapshot.Transactions, err = b.transactions(f.Transactions, out.Snapshot.Accounts); err != nil {
		return Data{}, err
	}
	if out.Snapshot.Budgets, err = budgets(f.Budgets); err != nil {
		return Data{}, err
	}
	templates, err := budgets(f.BudgetTemplates)
	if err != nil {
		return Data{}, err
	}
	for _, t := range templates {
		out.BudgetTemplates = append(out.BudgetTemplates, finance.BudgetTemplate{Category: t.Category, Limit: t.Limit})
	}
	if out.Snapshot.RecurringTransactions, err = b.recurring(f.Recurring); err != nil {
		return Data{}, err
	}
	if out.Snapshot.Tasks, err = b.tasks(f.Tasks); err != nil {
		return Data{}, err
	}
	out.Snapshot.Notifications = b.notifications(f.Notifications)
	if out.Snapshot.Conversations, out.Snapshot.Messages, err = b.conversations(f.Conversations, out.Snapshot.Administrators); err != nil {
		return Data{}, err
	}
	if out.Snapshot.CustomDomains, err = b.domains(f.Domains); err != nil {
		return Data{}, err
	}
	return out, nil
}

func (b builder) admins(in []adminFixture) ([]admin.Administrator, error) {
	out := make([]admin.Administrator, 0, len(in))
	for _, fx := range in {
		role, err := admin.ParseRole(fx.Role)
		if err != nil {
			return nil, fmt.Errorf("administrator %d: %w", fx.ID, err)
		}
		status := admin.Status(fx.Status)
		if !admin.ValidStatus(status) {
			return nil, fmt.Errorf("administrator %d: unknown status %q", fx.ID, fx.Status)
		}
		perms := make([]admin.Permission, len(fx.Permissions))
		for i, p := range fx.Permissions {
			perms[i] = admin.Permission(p)
		}
		if perms, err = admin.NormalizePermissions(perms); err != nil {
			return nil, fmt.Errorf("administrator %d: %w", fx.ID, err)
		}
		a := admin.Administrator{
			ID:               fx.ID,
			Name:             fx.Name,
			Email:            fx.Email,
			AvatarURL:        fx.AvatarURL,
			Role:             role,
			Status:           status,
			TwoFactorEnabled: fx.TwoFactorEnabled,
			Permissions:      perms,
			ActivityLogs:     []admin.ActivityLog{},
			StorageUsage:     admin.StorageUsage{Used: fx.StorageUsed, Total: admin.DefaultStorageQuota(role)},
		}
		if fx.LastLoginHoursAgo != nil {
			ts := b.ago(hours(*fx.LastLoginHoursAgo))
			a.LastLogin = &ts
		}
		for i, act := range fx.Activity {
			a.ActivityLogs = append(a.ActivityLogs, admin.ActivityLog{
				ID:        fmt.Sprintf("log-%d-%d", fx.ID, i+1),
				Action:    act.Action,
				Detail:    act.Detail,
				Timestamp: b.ago(hours(act.HoursAgo)),
			})
		}
		out = append(out, a)
	}
	return out, nil
}

func (b builder) apps(in []appFixture) ([]managedapp.ManagedApp, error) {
	out := make([]managedapp.ManagedApp, 0, len(in))
	for _, fx := range in {
		platform, err := managedapp.ParsePlatform(fx.Platform)
		if err != nil {
			return nil, fmt.Errorf("app %d: %w", fx.ID, err)
		}
		status := managedapp.Status(fx.Status)
		if !managedapp.ValidStatus(status) {
			return nil, fmt.Errorf("app %d: unknown status %q", fx.ID, fx.Status)
		}
		env := make(map[string]string, len(fx.Env))
		for k, v := range fx.Env {
			if err := managedapp.ValidateEnvKey(k); err != nil {
				return nil, fmt.Errorf("app %d: %w", fx.ID, err)
			}
			env[k] = v
		}
		app := managedapp.ManagedApp{
			ID:         fx.ID,
			Name:       fx.Name,
			Platform:   platform,
			Status:     status,
			Repository: fx.Repository,
			Resources: managedapp.Resources{
				CPU:     flat(fx.CPU),
				Memory:  flat(fx.Memory),
				Storage: managedapp.StorageUsage{Used: fx.StorageUsed, Total: managedapp.DefaultStorageQuota(platform)},
			},
			EnvironmentVariables: env,
			Deployments:          []managedapp.Deployment{},
			Logs:                 []managedapp.LogEntry{},
		}
		if fx.LastDeployedHoursAgo != nil {
			ts := b.ago(hours(*fx.LastDeployedHoursAgo))
			app.LastDeployed = &ts
		}
		for i, d := range fx.Deployments {
			app.Deployments = append(app.Deployments, managedapp.Deployment{
				ID:        fmt.Sprintf("dep-%d-%d", fx.ID, i+1),
				Version:   d.Version,
				Status:    d.Status,
				Timestamp: b.ago(hours(d.HoursAgo)),
			})
		}
		for _, l := range fx.Logs {
			app.Logs = append(app.Logs, managedapp.LogEntry{Timestamp: b.ago(hours(l.HoursAgo)), Level: l.Level, Message: l.Message})
		}
		out = append(out, app)
	}
	return out, nil
}

func flat(v float64) []float64 {
	return managedapp.NormalizeWindow([]float64{v})
}

func accounts(in []accountFixture) ([]finance.Account, error) {
	out := make([]finance.Account, 0, len(in))
	for _, fx := range in {
		balance, err := decimal.NewFromString(fx.Balance)
		if err != nil {
			return nil, fmt.Errorf("account %d balance: %w", fx.ID, err)
		}
		out = append(out, finance.Account{
			ID:            fx.ID,
			Name:          fx.Name,
			Type:          finance.AccountType(fx.Type),
			Balance:       balance,
			Currency:      fx.Currency,
			CardNumber:    fx.CardNumber,
			CVV:           fx.CVV,
			AccountNumber: fx.AccountNumber,
			RoutingNumber: fx.RoutingNumber,
		})
	}
	return out, nil
}

func (b builder) transactions(in []txFixture, accts []finance.Account) ([]finance.Transaction, error) {
	names := make(map[int64]string, len(accts))
	for _, a := range accts {
		names[a.ID] = a.Name
	}
	out := make([]finance.Transaction, 0, len(in))
	for i, fx := range in {
		amount, err := decimal.NewFromString(fx.Amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %q amount: %w", fx.Description, err)
		}
		typ, err := finance.ParseType(fx.Type)
		if err != nil {
			return nil, fmt.Errorf("transaction %q: %w", fx.Description, err)
		}
		name, ok := names[fx.AccountID]
		if !ok {
			return nil, fmt.Errorf("transaction %q: unknown account %d", fx.Description, fx.AccountID)
		}
		date := b.ago(hours(fx.DaysAgo * 24))
		out = append(out, finance.Transaction{
			ID:          date.UnixMilli()*1000 + int64(i),
			Description: fx.Description,
			Amount:      amount,
			Type:        typ,
			Category:    fx.Category,
			AccountID:   fx.AccountID,
			Account:     name,
			Date:        date,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out, nil
}

func budgets(in []budgetFixture) ([]finance.Budget, error) {
	out := make([]finance.Budget, 0, len(in))
	for i, fx := range in {
		limit, err := decimal.NewFromString(fx.Limit)
		if err != nil {
			return nil, fmt.Errorf("budget %q limit: %w", fx.Category, err)
		}
		out = append(out, finance.Budget{ID: int64(i + 1), Category: fx.Category, Limit: limit, Spent: decimal.Zero})
	}
	return out, nil
}

func (b builder) recurring(in []recurFixture) ([]finance.RecurringTransaction, error) {
	out := make([]finance.RecurringTransaction, 0, len(in))
	for i, fx := range in {
		amount, err := decimal.NewFromString(fx.Amount)
		if err != nil {
			return nil, fmt.Errorf("recurring %q amount: %w", fx.Description, err)
		}
		typ, err := finance.ParseType(fx.Type)
		if err != nil {
			return nil, fmt.Errorf("recurring %q: %w", fx.Description, err)
		}
		out = append(out, finance.RecurringTransaction{
			ID:          int64(i + 1),
			Description: fx.Description,
			Amount:      amount,
			Type:        typ,
			Category:    fx.Category,
			Frequency:   finance.Frequency(fx.Frequency),
			NextDueDate: b.ago(-hours(fx.DueInDays * 24)),
		})
	}
	return out, nil
}

func (b builder) tasks(in []taskFixture) ([]task.Task, error) {
	out := make([]task.Task, 0, len(in))
	for i, fx := range in {
		priority, err := task.ParsePriority(fx.Priority)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", fx.Title, err)
		}
		out = append(out, task.Task{
			ID:          int64(i + 1),
			Title:       fx.Title,
			Description: fx.Description,
			DueDate:     b.ago(-hours(fx.DueInDays * 24)),
			Priority:    priority,
			Completed:   fx.Completed,
		})
	}
	return out, nil
}

func (b builder) notifications(in []noticeFixture) []notification.Notification {
	out := make([]notification.Notification, 0, len(in))
	for _, fx := range in {
		out = append(out, notification.Notification{
			ID:          uuid.NewString(),
			Title:       fx.Title,
			Description: fx.Description,
			Timestamp:   b.ago(hours(fx.HoursAgo)),
			Read:        fx.Read,
			Icon:        fx.Icon,
			Tone:        notification.Tone(fx.Tone),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp.Time) })
	return out
}

func (b builder) conversations(in []convFixture, admins []admin.Administrator) ([]messaging.Conversation, []messaging.Message, error) {
	contacts := make(map[int64]admin.Administrator, len(admins))
	for _, a := range admins {
		contacts[a.ID] = a
	}
	convs := make([]messaging.Conversation, 0, len(in))
	msgs := make([]messaging.Message, 0)
	for i, fx := range in {
		contact, ok := contacts[fx.ContactID]
		if !ok {
			return nil, nil, fmt.Errorf("conversation %d: unknown contact %d", i+1, fx.ContactID)
		}
		platform, err := messaging.ParsePlatform(fx.Platform)
		if err != nil {
			return nil, nil, fmt.Errorf("conversation %d: %w", i+1, err)
		}
		conv := messaging.Conversation{
			ID:          int64(i + 1),
			ContactID:   contact.ID,
			ContactName: contact.Name,
			AvatarURL:   contact.AvatarURL,
			UnreadCount: fx.Unread,
			Platform:    platform,
			Status:      messaging.Presence(fx.Status),
			Email:       contact.Email,
			Phone:       fx.Phone,
		}
		for _, m := range fx.Messages {
			msg := messaging.Message{
				ID:             int64(len(msgs) + 1),
				ConversationID: conv.ID,
				Text:           m.Text,
				Timestamp:      b.ago(time.Duration(m.MinutesAgo * float64(time.Minute))),
				Sender:         messaging.Sender(m.Sender),
				Platform:       platform,
			}
			msgs = append(msgs, msg)
			conv.LastMessage = msg.Text
			conv.Timestamp = msg.Timestamp
		}
		convs = append(convs, conv)
	}
	return convs, msgs, nil
}

func (b builder) domains(in []domainFixture) ([]customdomain.CustomDomain, error) {
	out := make([]customdomain.CustomDomain, 0, len(in))
	for i, fx := range in {
		name, err := customdomain.NormalizeName(fx.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, customdomain.CustomDomain{
			ID:         int64(i + 1),
			DomainName: name,
			Status:     customdomain.Status(fx.Status),
			DNSRecords: []customdomain.DNSRecord{customdomain.VerificationRecord(name, fx.Token)},
			CreatedAt:  b.ago(hours(fx.DaysAgo * 24)),
		})
	}
	return out, nil
}
