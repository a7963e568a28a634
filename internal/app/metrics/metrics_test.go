package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordMutation(t *testing.T) {
	before := testutil.ToFloat64(storeMutations.WithLabelValues("add_transaction"))
	RecordMutation("add_transaction")
	after := testutil.ToFloat64(storeMutations.WithLabelValues("add_transaction"))
	if after-before != 1 {
		t.Fatalf("expected counter to advance by one, got %v -> %v", before, after)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordPersistWrite(false)
	SetPendingTimers(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"console_persist_writes_total", "console_timers_pending 3"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %q in metrics output", name)
		}
	}
}
