package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bimakw/volume-tracker/internal/reconcile"
)

func TestNormalizePath_UsesRoutePattern(t *testing.T) {
	var got string

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			got = normalizePath(req)
		})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/tokens/{id}/history", func(w http.ResponseWriter, req *http.Request) {})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tokens/42/history", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got != "/api/tokens/{id}/history" {
		t.Errorf("expected route pattern, got %s", got)
	}
}

func TestNormalizePath_Unmatched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/whatever/123", nil)
	if got := normalizePath(req); got != "unmatched" {
		t.Errorf("expected unmatched, got %s", got)
	}
}

// gathered returns the value of a single-series counter or gauge
func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name || len(mf.GetMetric()) == 0 {
			continue
		}
		m := mf.GetMetric()[0]
		if c := m.GetCounter(); c != nil {
			return c.GetValue()
		}
		return m.GetGauge().GetValue()
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func TestVolumeUpdateMetrics_ObserveBatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewVolumeUpdateMetrics(reg)

	m.ObserveBatch(reconcile.BatchResult{Updated: 3, Failed: 1, Skipped: 2, Total: 6}, 4*time.Second)
	m.ObserveBatch(reconcile.BatchResult{Updated: 1, Total: 1}, time.Second)

	if v := gathered(t, reg, "volume_update_tokens_updated_total"); v != 4 {
		t.Errorf("expected 4 updated, got %v", v)
	}
	if v := gathered(t, reg, "volume_update_tokens_failed_total"); v != 1 {
		t.Errorf("expected 1 failed, got %v", v)
	}
	if v := gathered(t, reg, "volume_update_tokens_skipped_total"); v != 2 {
		t.Errorf("expected 2 skipped, got %v", v)
	}
	if v := gathered(t, reg, "volume_update_runs_total"); v != 2 {
		t.Errorf("expected 2 runs, got %v", v)
	}
	if v := gathered(t, reg, "volume_update_last_run_timestamp_seconds"); v <= 0 {
		t.Errorf("expected last run timestamp, got %v", v)
	}
}

func TestLogger_LevelsByPath(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tokens", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zap.InfoLevel || entries[1].Level != zap.DebugLevel {
		t.Errorf("unexpected levels: %s, %s", entries[0].Level, entries[1].Level)
	}
	if status := entries[0].ContextMap()["status"]; status != int64(http.StatusTeapot) {
		t.Errorf("expected status 418 logged, got %v", status)
	}
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tokens", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("expected Access-Control-Allow-Origin to be set")
	}

	preflight := httptest.NewRequest(http.MethodOptions, "/api/tokens/1", nil)
	preflight.Header.Set("Origin", "https://dashboard.example")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, preflight)

	if rec.Code < 200 || rec.Code > 299 {
		t.Errorf("expected successful preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPut) {
		t.Errorf("expected PUT allowed, got %q", got)
	}
}

func TestRateLimiter_RejectsWithJSON(t *testing.T) {
	handler := RateLimiter(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/tokens", nil))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/tokens", nil))

	if first.Code != http.StatusOK {
		t.Errorf("expected first request allowed, got %d", first.Code)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("expected second request limited, got %d", second.Code)
	}
	if ct := second.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error, got %s", ct)
	}
}
