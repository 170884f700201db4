package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "/api/overview", 200, 15*time.Millisecond)
	m.ObserveRequest("GET", "", 404, time.Millisecond)
	m.EventPublished("expense.created", nil)
	m.EventPublished("expense.created", errors.New("broker down"))
	m.RecurringMaterialized(2)
	m.MirrorSynced(nil)
	m.RegisterCacheStats("users", func() (uint64, uint64) { return 3, 1 })

	out := scrape(t, m)
	want := []string{
		`fintrack_http_requests_total{method="GET",route="/api/overview",status="200"} 1`,
		`fintrack_http_requests_total{method="GET",route="unmatched",status="404"} 1`,
		`fintrack_ledger_events_total{kind="expense.created",result="error"} 1`,
		`fintrack_ledger_events_total{kind="expense.created",result="ok"} 1`,
		`fintrack_recurring_materialized_total 2`,
		`fintrack_sheet_mirror_syncs_total{result="ok"} 1`,
		`fintrack_cache_hits_total{cache="users"} 3`,
		`fintrack_cache_misses_total{cache="users"} 1`,
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("exposition missing %q", w)
		}
	}
}

func TestMetricsRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecurringMaterialized(5)
	if strings.Contains(scrape(t, b), "fintrack_recurring_materialized_total 5") {
		t.Fatal("registries share state")
	}
}
