package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveStage("extract", time.Second)
	m.IncProcessed("Laboratory Report", "rule_based", "ok")
	m.IncDegraded("placeholder")
	m.IncPassthrough("backend_error")
	m.IncCache("hit")
	m.IncEvent("ok")
	m.SetQueueDepth(3)
}

func TestCountersAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.IncProcessed("Laboratory Report", "rule_based", "ok")
	m.IncProcessed("Laboratory Report", "rule_based", "ok")
	m.IncPassthrough("same_language")

	if got := testutil.ToFloat64(m.DocumentsProcessed.WithLabelValues("Laboratory Report", "rule_based", "ok")); got != 2 {
		t.Fatalf("processed = %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `meddocs_translation_passthrough_total{reason="same_language"} 1`) {
		t.Fatalf("scrape output missing passthrough counter:\n%s", body)
	}
}
