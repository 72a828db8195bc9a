package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Update("confirm", OutcomeOK)
	m.Update("confirm", OutcomeOK)
	m.Update("text", OutcomeModelError)
	m.MirrorFailure("bigquery")
	m.PendingEvicted(3)
	m.PendingEvicted(0)
	m.Confirmed("purchase", 500)

	if got := testutil.ToFloat64(m.updates.WithLabelValues("confirm", OutcomeOK)); got != 2 {
		t.Errorf("confirm/ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.updates.WithLabelValues("text", OutcomeModelError)); got != 1 {
		t.Errorf("text/model_error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.mirrorFailures.WithLabelValues("bigquery")); got != 1 {
		t.Errorf("mirror failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.pendingEvicted); got != 3 {
		t.Errorf("pending evicted = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.confirmedAmount.WithLabelValues("purchase")); got != 500 {
		t.Errorf("confirmed amount = %v, want 500", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Update("help", OutcomeOK)
	m.ModelCall(time.Second, OutcomeOK)
	m.MirrorFailure("notion")
	m.PendingEvicted(1)
	m.Backup(OutcomeOK)
	m.Confirmed("sale", 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil handler status = %d, want 404", rec.Code)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Update("balance", OutcomeOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `farm_ledger_updates_total{command="balance",outcome="ok"} 1`) {
		t.Errorf("metrics output missing updates counter:\n%s", rec.Body.String())
	}
}
