package seed

import (
	"testing"
	"time"

	"github.com/sarkhq/console/internal/app/domain/customdomain"
	"github.com/sarkhq/console/internal/app/domain/managedapp"
)

func TestLoadBuildsConsistentFixtures(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	data, err := Load(now)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	snap := data.Snapshot

	if len(snap.Administrators) == 0 || len(snap.Apps) == 0 || len(snap.Accounts) == 0 {
		t.Fatalf("expected populated fixtures")
	}
	if data.CurrentUser.AdminID != snap.Administrators[0].ID {
		t.Fatalf("current user should point at the first administrator")
	}
	for _, app := range snap.Apps {
		if len(app.Resources.CPU) != managedapp.HistoryLength || len(app.Resources.Memory) != managedapp.HistoryLength {
			t.Fatalf("app %s has a short resource window", app.Name)
		}
	}
	for i := 1; i < len(snap.Transactions); i++ {
		if snap.Transactions[i].Date.After(snap.Transactions[i-1].Date.Time) {
			t.Fatalf("transactions must be sorted newest first")
		}
	}
	for _, tx := range snap.Transactions {
		if tx.Account == "" || !tx.Amount.IsPositive() {
			t.Fatalf("invalid transaction %+v", tx)
		}
	}
	for _, d := range snap.CustomDomains {
		if len(d.DNSRecords) != 1 || d.DNSRecords[0].Type != "TXT" || d.DNSRecords[0].Host != customdomain.VerificationHost+"."+d.DomainName {
			t.Fatalf("unexpected dns records for %s: %+v", d.DomainName, d.DNSRecords)
		}
	}
	if len(snap.Messages) == 0 || snap.Conversations[0].LastMessage == "" {
		t.Fatalf("conversations should carry their last message")
	}
	if len(data.BudgetTemplates) == 0 {
		t.Fatalf("expected budget templates")
	}
	if !snap.Tasks[0].DueDate.After(now) {
		t.Fatalf("task due dates should be in the future")
	}
}
