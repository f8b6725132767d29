package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return NewMetricsWith(reg, reg)
}

func TestMetrics_HandlerExposesCounters(t *testing.T) {
	m := newTestMetrics()
	m.SeriesTotal.WithLabelValues("RSI").Add(2)
	m.RequestsTotal.WithLabelValues("/api/v1/health", "200").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{`indsvc_series_total{type="RSI"} 2`, "indsvc_http_requests_total"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// Registering twice on fresh registries must not panic.
	newTestMetrics()
	newTestMetrics()
}

func TestHealthStatus_Healthy(t *testing.T) {
	h := NewHealthStatus("sqlite")
	h.CheckStore(context.Background(), pingFunc(func(context.Context) error { return nil }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["driver"] != "sqlite" {
		t.Errorf("body = %v", body)
	}
}

func TestHealthStatus_Degraded(t *testing.T) {
	h := NewHealthStatus("redis")
	h.CheckStore(context.Background(), pingFunc(func(context.Context) error { return errors.New("connection refused") }))

	if h.Healthy() {
		t.Error("expected unhealthy after failed ping")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Errorf("body should carry the last error: %s", rec.Body.String())
	}
}

func TestHealthStatus_StartLivenessCheckerProbesImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHealthStatus("postgres")
	h.StartLivenessChecker(ctx, pingFunc(func(context.Context) error { return nil }), time.Hour)
	if !h.Healthy() {
		t.Error("expected a synchronous first check")
	}
}

func TestMetrics_PushSendsGroupToGateway(t *testing.T) {
	var (
		gotMethod, gotPath string
		gotBody            []byte
	)
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	m := newTestMetrics()
	m.CandlesImported.Add(42)
	if err := m.Push(context.Background(), gw.URL, "indcalc"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/metrics/job/indcalc" {
		t.Errorf("request = %s %s, want PUT /metrics/job/indcalc", gotMethod, gotPath)
	}
	if !strings.Contains(string(gotBody), "indsvc_candles_imported_total") {
		t.Errorf("pushed body does not carry the import counter")
	}
}

func TestMetrics_PushReportsGatewayError(t *testing.T) {
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer gw.Close()

	if err := newTestMetrics().Push(context.Background(), gw.URL, "indcalc"); err == nil {
		t.Error("expected an error for a non-2xx gateway response")
	}
}
