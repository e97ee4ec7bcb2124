package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal counts requests by route/method/status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	// HTTPRequestDuration tracks request latency by route/method.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	// ReasoningRequestsTotal counts reasoning-service calls by operation
	// and outcome (ok, error, empty).
	ReasoningRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reasoning_requests_total",
			Help: "Total number of reasoning service requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	// ReasoningRequestDuration tracks reasoning-service latency.
	ReasoningRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reasoning_request_duration_seconds",
			Help:    "Reasoning service request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"operation"},
	)

	// AnswerOverallScore records the distribution of per-answer overall scores.
	AnswerOverallScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "answer_overall_score",
			Help:    "Distribution of per-answer overall scores [0,100]",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
	// FinalDecisionsTotal counts final verdicts by route and decision.
	FinalDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "final_decisions_total",
			Help: "Total number of final decisions by route and decision",
		},
		[]string{"route", "decision"},
	)
	// FallbackTotal counts heuristic fallbacks by stage (answer,
	// final_tier1, final_tier2, final_conservative).
	FallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_total",
			Help: "Total number of heuristic fallbacks by stage",
		},
		[]string{"stage"},
	)
)

var initOnce sync.Once

// InitMetrics registers all metrics once per process.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			ReasoningRequestsTotal,
			ReasoningRequestDuration,
			AnswerOverallScore,
			FinalDecisionsTotal,
			FallbackTotal,
		)
	})
}

// ObserveReasoningRequest records one reasoning-service call.
func ObserveReasoningRequest(operation, outcome string, dur time.Duration) {
	ReasoningRequestsTotal.WithLabelValues(operation, outcome).Inc()
	ReasoningRequestDuration.WithLabelValues(operation).Observe(dur.Seconds())
}

// HTTPMetricsMiddleware instruments every request with count and latency.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
