package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "economy",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "economy",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "economy",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "economy",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total number of economy operations by outcome.",
		},
		[]string{"operation", "result"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "economy",
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Duration of economy operations including store round trips.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"operation"},
	)

	moneyDestroyed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "economy",
			Subsystem: "ledger",
			Name:      "money_destroyed_total",
			Help:      "Currency removed from circulation by fees and fines.",
		},
		[]string{"sink"},
	)

	sweptItems = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "economy",
			Subsystem: "sweeper",
			Name:      "expired_items_total",
			Help:      "Inventory items removed by the expiry sweep.",
		},
	)

	expiredLoans = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "economy",
			Subsystem: "sweeper",
			Name:      "expired_loan_requests_total",
			Help:      "Pending loan requests dropped by the sweep.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		operations,
		operationDuration,
		moneyDestroyed,
		sweptItems,
		expiredLoans,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := routePattern(r)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// routePattern keeps label cardinality bounded by using the chi pattern
// (/accounts/{user_id}) instead of the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// RecordOperation records the outcome and duration of an economy operation.
func RecordOperation(operation string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	operations.WithLabelValues(operation, result).Inc()
	operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDestroyed counts currency removed by a sink ("fee" or "fine").
func RecordDestroyed(sink string, amount int64) {
	if amount > 0 {
		moneyDestroyed.WithLabelValues(sink).Add(float64(amount))
	}
}

// RecordSweep counts what one sweep removed.
func RecordSweep(items, loans int) {
	sweptItems.Add(float64(items))
	expiredLoans.Add(float64(loans))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
