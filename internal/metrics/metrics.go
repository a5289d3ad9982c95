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
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business logic metrics
	admissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Registration intake outcomes",
		},
		[]string{"outcome"},
	)

	promotionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admission_waitlist_promotions_total",
			Help: "Waitlist entrants promoted to confirmed",
		},
	)

	approvalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_approval_decisions_total",
			Help: "Approval decisions by kind and result",
		},
		[]string{"kind", "decision"},
	)

	checkInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_checkins_total",
			Help: "Attendee check-ins by source",
		},
		[]string{"source"},
	)

	outboxTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_outbox_messages_total",
			Help: "Outbox publish attempts by result",
		},
		[]string{"result"},
	)

	consumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_messages_consumed_total",
			Help: "Inbound messages by routing key and result",
		},
		[]string{"routing_key", "result"},
	)
)

// Outcome labels for RecordAdmission.
const (
	OutcomeConfirmed    = "confirmed"
	OutcomeWaitlisted   = "waitlisted"
	OutcomeRejected     = "rejected"
	OutcomeOperationErr = "error"
)

func RecordAdmission(outcome string) { admissionsTotal.WithLabelValues(outcome).Inc() }

func RecordPromotions(n int) {
	if n > 0 {
		promotionsTotal.Add(float64(n))
	}
}

func RecordApproval(kind, decision string) { approvalsTotal.WithLabelValues(kind, decision).Inc() }

func RecordCheckIn(source string) { checkInsTotal.WithLabelValues(source).Inc() }

// RecordOutbox takes "sent", "retry" or "dead".
func RecordOutbox(result string) { outboxTotal.WithLabelValues(result).Inc() }

// RecordConsumed takes "processed", "duplicate", "dropped" or "requeued".
func RecordConsumed(routingKey, result string) {
	consumedTotal.WithLabelValues(routingKey, result).Inc()
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records HTTP RED metrics (Rate, Errors, Duration).
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		// Use route pattern if available (chi router)
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusResponseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
