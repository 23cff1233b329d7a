package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackwatch",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stackwatch",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stackwatch",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Watcher metrics
	watcherRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackwatch",
			Subsystem: "watcher",
			Name:      "runs_total",
			Help:      "Total number of watcher runs",
		},
		[]string{"technology", "status"},
	)

	watcherRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stackwatch",
			Subsystem: "watcher",
			Name:      "run_duration_seconds",
			Help:      "Duration of a watcher run in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"technology"},
	)

	watchedItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "stackwatch",
			Subsystem: "watcher",
			Name:      "items",
			Help:      "Number of items retrieved by the most recent watcher run",
		},
		[]string{"technology", "account"},
	)

	watcherExceptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackwatch",
			Subsystem: "watcher",
			Name:      "exceptions_total",
			Help:      "Total number of exceptions recorded while slurping",
		},
		[]string{"technology", "account"},
	)

	// Change metrics
	itemChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackwatch",
			Subsystem: "store",
			Name:      "changes_total",
			Help:      "Total number of item changes persisted",
		},
		[]string{"technology", "change"},
	)

	// Audit metrics
	auditIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stackwatch",
			Subsystem: "audit",
			Name:      "issues_total",
			Help:      "Total number of issues raised by auditors",
		},
		[]string{"technology", "severity"},
	)

	openIssues = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "stackwatch",
			Subsystem: "audit",
			Name:      "open_issues",
			Help:      "Number of unfixed, unjustified issues",
		},
		[]string{"technology", "severity"},
	)

	auditRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stackwatch",
			Subsystem: "audit",
			Name:      "run_duration_seconds",
			Help:      "Duration of an audit pass in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	// Database metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stackwatch",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "table"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWatcherRun records a completed or failed watcher run
func RecordWatcherRun(technology, status string, duration time.Duration) {
	watcherRunsTotal.WithLabelValues(technology, status).Inc()
	watcherRunDuration.WithLabelValues(technology).Observe(duration.Seconds())
}

// SetWatchedItems sets the gauge for items found by a watcher run
func SetWatchedItems(technology, account string, count float64) {
	watchedItems.WithLabelValues(technology, account).Set(count)
}

// RecordWatcherException records a slurp exception for an account
func RecordWatcherException(technology, account string) {
	watcherExceptions.WithLabelValues(technology, account).Inc()
}

// RecordItemChange records a persisted item change (new, changed, deleted)
func RecordItemChange(technology, change string) {
	itemChangesTotal.WithLabelValues(technology, change).Inc()
}

// RecordAuditIssue records an issue raised by an auditor
func RecordAuditIssue(technology, severity string) {
	auditIssuesTotal.WithLabelValues(technology, severity).Inc()
}

// SetOpenIssues sets the gauge for open issues by technology and severity
func SetOpenIssues(technology, severity string, count float64) {
	openIssues.WithLabelValues(technology, severity).Set(count)
}

// RecordAuditRunDuration records the duration of an audit pass
func RecordAuditRunDuration(duration time.Duration) {
	auditRunDuration.Observe(duration.Seconds())
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation, table string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}
