package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// Every recording method is safe to call on a nil *Metrics.
type Metrics struct {
	// Analysis metrics
	AnalysisRequestsTotal *prometheus.CounterVec
	AnalysisDuration      *prometheus.HistogramVec
	AnalysisErrorsTotal   *prometheus.CounterVec
	SignalsTotal          *prometheus.CounterVec

	// Backtest metrics
	BacktestDuration    *prometheus.HistogramVec
	BacktestTradesTotal *prometheus.CounterVec
	BacktestEvents      *prometheus.HistogramVec

	// External API metrics
	ExternalAPIRequestsTotal *prometheus.CounterVec
	ExternalAPIErrorsTotal   *prometheus.CounterVec
	ExternalAPIDuration      *prometheus.HistogramVec
	RateLimitWaitDuration    *prometheus.HistogramVec
	ProviderFallbacksTotal   *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBErrorsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// eventBuckets are histogram buckets for signal events per backtest
var eventBuckets = []float64{0, 1, 2, 4, 8, 12, 16, 24, 32, 48}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		AnalysisRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "span",
				Subsystem: "analysis",
				Name:      "requests_total",
				Help:      "Total number of screening analysis requests",
			},
			[]string{"symbol"},
		),
		AnalysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "span",
				Subsystem: "analysis",
				Name:      "duration_seconds",
				Help:      "Duration of screening analysis in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"status"},
		),
		AnalysisErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "span",
				Subsystem: "analysis",
				Name:      "errors_total",
				Help:      "Total number of analysis errors",
			},
			[]string{"operation", "error_type"},
		),
		SignalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "span",
				Subsystem: "analysis",
				Name:      "signals_total",
				Help:      "Total number of signals produced by live analysis",
			},
			[]string{"signal", "confidence"},
		),
		BacktestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "span",
				Subsystem: "backtest",
				Name:      "duration_seconds",
				Help:      "Duration of backtest simulations in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"status"},
		),
		BacktestTradesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "span",
				Subsystem: "backtest",
				Name:      "trades_total",
				Help:      "Total number of simulated trades",
			},
			[]string{"type"},
		),
		BacktestEvents: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "span",
				Subsystem: "backtest",
				Name:      "signal_events",
				Help:      "Number of signal events per backtest",
				Buckets:   eventBuckets,
			},
			[]string{"cadence"},
		),
		ExternalAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "span",
				Subsystem: "external_api",
				Name:      "requests_total",
				Help:      "Total number of external API requests",
			},
			[]string{"service", "operation"},
		),
		ExternalAPIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "span",
				Subsystem: "external_api",
				Name:      "errors_total",
				Help:      "Total number of external API errors",
			},
			[]string{"service", "operation", "error_type"},
		),
		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "span",
				Subsystem: "external_api",
				Name:      "duration_seconds",
				Help:      "Duration of external API calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"service", "operation"},
		),
		RateLimitWaitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "span",
				Subsystem: "external_api",
				Name:      "rate_limit_wait_seconds",
				Help:      "Time spent waiting for a rate limiter slot",
				Buckets:   defaultBuckets,
			},
			[]string{"service"},
		),
		ProviderFallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "span",
				Subsystem: "provider",
				Name:      "fallbacks_total",
				Help:      "Total number of times a provider degraded to another source",
			},
			[]string{"provider", "operation"},
		),
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "span",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"namespace"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "span",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"namespace"},
		),
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "span",
				Subsystem: "database",
				Name:      "query_duration_seconds",
				Help:      "Duration of database queries in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "table"},
		),
		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "span",
				Subsystem: "database",
				Name:      "errors_total",
				Help:      "Total number of database errors",
			},
			[]string{"operation", "table"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "span",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "span",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "span",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "span",
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),
	}
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// RecordAnalysisRequest records a screening analysis request
func (m *Metrics) RecordAnalysisRequest(symbol string) {
	if m == nil {
		return
	}
	m.AnalysisRequestsTotal.WithLabelValues(symbol).Inc()
}

// RecordAnalysisDuration records the duration of a screening analysis
func (m *Metrics) RecordAnalysisDuration(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.AnalysisDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordAnalysisError records an analysis or backtest error
func (m *Metrics) RecordAnalysisError(operation, errorType string) {
	if m == nil {
		return
	}
	m.AnalysisErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordSignal records a live screening signal
func (m *Metrics) RecordSignal(signal, confidence string) {
	if m == nil {
		return
	}
	m.SignalsTotal.WithLabelValues(signal, confidence).Inc()
}

// RecordBacktest records a finished backtest
func (m *Metrics) RecordBacktest(status, cadence string, events int, duration time.Duration) {
	if m == nil {
		return
	}
	m.BacktestDuration.WithLabelValues(status).Observe(duration.Seconds())
	if status == "success" {
		m.BacktestEvents.WithLabelValues(cadence).Observe(float64(events))
	}
}

// RecordBacktestTrade records a simulated trade
func (m *Metrics) RecordBacktestTrade(tradeType string) {
	if m == nil {
		return
	}
	m.BacktestTradesTotal.WithLabelValues(tradeType).Inc()
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(service, operation string) {
	if m == nil {
		return
	}
	m.ExternalAPIRequestsTotal.WithLabelValues(service, operation).Inc()
}

// RecordExternalAPIError records an external API error
func (m *Metrics) RecordExternalAPIError(service, operation, errorType string) {
	if m == nil {
		return
	}
	m.ExternalAPIErrorsTotal.WithLabelValues(service, operation, errorType).Inc()
}

// RecordExternalAPIDuration records the duration of an external API call
func (m *Metrics) RecordExternalAPIDuration(service, operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ExternalAPIDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordRateLimitWait records time spent blocked on a rate limiter
func (m *Metrics) RecordRateLimitWait(service string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RateLimitWaitDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordProviderFallback records a degraded provider response
func (m *Metrics) RecordProviderFallback(provider, operation string) {
	if m == nil {
		return
	}
	m.ProviderFallbacksTotal.WithLabelValues(provider, operation).Inc()
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(namespace string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(namespace).Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(namespace string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(namespace).Inc()
}

// RecordDBQuery records a database query
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordDBError records a database error
func (m *Metrics) RecordDBError(operation, table string) {
	if m == nil {
		return
	}
	m.DBErrorsTotal.WithLabelValues(operation, table).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	if m == nil {
		return
	}
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveAnalysis records the analysis duration and status
func (t *Timer) ObserveAnalysis(status string) {
	t.metrics.RecordAnalysisDuration(status, time.Since(t.start))
}

// ObserveExternalAPI records the external API duration
func (t *Timer) ObserveExternalAPI(service, operation string) {
	t.metrics.RecordExternalAPIDuration(service, operation, time.Since(t.start))
}

// ObserveDB records the database query duration
func (t *Timer) ObserveDB(operation, table string) {
	t.metrics.RecordDBQuery(operation, table, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
