package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/authstate"
	"github.com/MrEthical07/authstate/storage"
)

type fakeSource struct {
	snapshot authstate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authstate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authstate.MetricsSnapshot{
			Counters:   map[authstate.MetricID]uint64{},
			Histograms: map[authstate.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCountersAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authstate.MetricsSnapshot{
			Counters: map[authstate.MetricID]uint64{
				authstate.MetricLoginSuccess:      7,
				authstate.MetricReconcileRestored: 2,
			},
			Histograms: map[authstate.MetricID][]uint64{
				authstate.MetricLoginLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"authstate_login_success_total 7",
		"authstate_reconcile_restored_total 2",
		"authstate_logout_total 0",
		"authstate_login_latency_seconds_bucket{le=\"0.005\"} 1",
		"authstate_login_latency_seconds_bucket{le=\"+Inf\"} 36",
		"authstate_login_latency_seconds_count 36",
		"authstate_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderOmitsDisabledHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: authstate.MetricsSnapshot{
			Counters:   map[authstate.MetricID]uint64{authstate.MetricLogout: 1},
			Histograms: map[authstate.MetricID][]uint64{},
		},
	})
	if out := exp.Render(); strings.Contains(out, "latency") {
		t.Fatalf("expected no histogram without latency data, got:\n%s", out)
	}
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	tokens := storage.NewMemory()
	if err := tokens.Set(context.Background(), storage.DefaultKey, "abc"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	engine, err := authstate.New().WithStorage(tokens).WithMetricsEnabled(true).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	engine.Mount(context.Background())

	rec := httptest.NewRecorder()
	NewPrometheusExporter(engine).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if body := rec.Body.String(); !strings.Contains(body, "authstate_reconcile_restored_total 1") {
		t.Fatalf("expected restore counter, got:\n%s", body)
	}
}
