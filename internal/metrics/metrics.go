package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds all Prometheus metrics for the indicator service.
type Metrics struct {
	// Indicator engine metrics
	ComputeDur      *prometheus.HistogramVec // labels: type
	SeriesTotal     *prometheus.CounterVec   // labels: type
	DegenerateTotal *prometheus.CounterVec   // labels: type; series with no finite value
	CandlesIn       prometheus.Histogram

	// Candle store metrics
	StoreReadDur    *prometheus.HistogramVec // labels: driver
	StoreErrors     *prometheus.CounterVec   // labels: driver
	CandlesImported prometheus.Counter

	// Circuit breaker metrics
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	// HTTP
	RequestsTotal *prometheus.CounterVec   // labels: route, code
	RequestDur    *prometheus.HistogramVec // labels: route

	gatherer prometheus.Gatherer
}

// NewMetrics registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewMetricsWith registers all metrics with reg and serves them from g.
// Tests pass a fresh prometheus.NewRegistry() for both.
func NewMetricsWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		ComputeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "indsvc_compute_duration_seconds",
			Help:    "Indicator compute latency per series",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}, []string{"type"}),
		SeriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indsvc_series_total",
			Help: "Indicator series computed (by type)",
		}, []string{"type"}),
		DegenerateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indsvc_degenerate_series_total",
			Help: "Series returned without a single finite value (insufficient data)",
		}, []string{"type"}),
		CandlesIn: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "indsvc_candles_per_request",
			Help:    "Number of candles fed to the engine per request",
			Buckets: prometheus.ExponentialBuckets(10, 4, 7),
		}),

		StoreReadDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "indsvc_store_read_duration_seconds",
			Help:    "Candle store read latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"driver"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indsvc_store_errors_total",
			Help: "Failed candle store reads",
		}, []string{"driver"}),
		CandlesImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indsvc_candles_imported_total",
			Help: "Candles written through the import path",
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indsvc_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indsvc_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indsvc_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		RequestDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "indsvc_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		gatherer: g,
	}

	reg.MustRegister(
		m.ComputeDur,
		m.SeriesTotal,
		m.DegenerateTotal,
		m.CandlesIn,
		m.StoreReadDur,
		m.StoreErrors,
		m.CandlesImported,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.RequestsTotal,
		m.RequestDur,
	)

	return m
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Push sends every gathered metric to a Pushgateway under job, replacing
// the job's previous group. Short-lived commands use it instead of /metrics.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(m.gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}

// Pinger is a dependency that can be pinged for liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus represents the service health.
type HealthStatus struct {
	mu sync.RWMutex

	Driver         string    `json:"driver"`
	StoreOK        bool      `json:"store_ok"`
	StoreLatencyMs float64   `json:"store_latency_ms"`
	LastError      string    `json:"last_error,omitempty"`
	LastCheckAt    time.Time `json:"last_check_at"`
	StartedAt      time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status for the given store driver.
func NewHealthStatus(driver string) *HealthStatus {
	return &HealthStatus{
		Driver:    driver,
		StartedAt: time.Now(),
	}
}

// CheckStore pings the candle store and records latency + health.
func (h *HealthStatus) CheckStore(ctx context.Context, p Pinger) {
	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.StoreOK = err == nil
	h.LastError = ""
	if err != nil {
		h.LastError = err.Error()
	}
	h.StoreLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker pings p once, then every interval until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, p Pinger, interval time.Duration) {
	check := func() {
		checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		h.CheckStore(checkCtx, p)
		cancel()
	}
	check()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()
}

// Healthy reports the result of the last store ping.
func (h *HealthStatus) Healthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.StoreOK
}

// ServeHTTP handles the health endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "ok"
	httpCode := http.StatusOK
	if !h.StoreOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	status := struct {
		Status         string  `json:"status"`
		Uptime         string  `json:"uptime"`
		Driver         string  `json:"driver"`
		StoreOK        bool    `json:"store_ok"`
		StoreLatencyMs float64 `json:"store_latency_ms"`
		LastError      string  `json:"last_error,omitempty"`
		LastCheckAt    string  `json:"last_check_at"`
	}{
		Status:         overallStatus,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		Driver:         h.Driver,
		StoreOK:        h.StoreOK,
		StoreLatencyMs: h.StoreLatencyMs,
		LastError:      h.LastError,
		LastCheckAt:    h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}
