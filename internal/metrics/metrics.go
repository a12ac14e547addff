package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a ledger operation
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected" // business error: not found, invalid input, insufficient balance
	OutcomeFailed   = "failed"   // transaction failed
)

// LedgerMetrics counts ledger operations and the points they move
type LedgerMetrics struct {
	operations *prometheus.CounterVec
	points     *prometheus.CounterVec
}

// NewLedgerMetrics registers ledger metrics on reg. With nil reg every method is a no-op
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Ledger operations by name and outcome.",
	}, []string{"operation", "outcome"})
	points := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_spendable_points_total",
		Help: "Spendable points moved by direction.",
	}, []string{"direction"})
	reg.MustRegister(operations, points)

	return &LedgerMetrics{
		operations: operations,
		points:     points,
	}
}

func (m *LedgerMetrics) Observe(operation, outcome string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// AddPoints records a spendable delta: positive as granted, negative as spent
func (m *LedgerMetrics) AddPoints(delta float64) {
	if m == nil || m.points == nil || delta == 0 {
		return
	}

	switch {
	case delta > 0:
		m.points.WithLabelValues("granted").Add(delta)
	default:
		m.points.WithLabelValues("spent").Add(-delta)
	}
}

type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route pattern and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	reg.MustRegister(requests, duration)

	return &HTTPMetrics{
		requests: requests,
		duration: duration,
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware labels requests with the matched ServeMux pattern, so path ids do not blow up cardinality
func (m *HTTPMetrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil || m.requests == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.requests.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
			m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}
