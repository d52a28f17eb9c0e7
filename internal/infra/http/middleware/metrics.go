package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xavierca1/cohort-nurture/internal/entity"
	"github.com/xavierca1/cohort-nurture/internal/usecase"
)

var (
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
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		path := routePattern(r)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern keeps lead ids out of the label set.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// PrometheusRecorder records email and automation outcomes.
type PrometheusRecorder struct {
	emailsSent     *prometheus.CounterVec
	sweeps         *prometheus.CounterVec
	leadsProcessed *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
}

var _ usecase.MetricsRecorder = (*PrometheusRecorder)(nil)

func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		emailsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emails_sent_total",
				Help: "Total number of email delivery attempts",
			},
			[]string{"kind", "result"},
		),
		sweeps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "automation_sweeps_total",
				Help: "Total number of automation passes",
			},
			[]string{"result"},
		),
		leadsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "automation_leads_processed_total",
				Help: "Leads handled by automation passes",
			},
			[]string{"outcome"},
		),
		sweepDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "automation_sweep_duration_seconds",
				Help:    "Duration of automation passes in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (p *PrometheusRecorder) RecordEmail(kind entity.EmailKind, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	p.emailsSent.WithLabelValues(string(kind), result).Inc()
}

func (p *PrometheusRecorder) RecordSweep(report *usecase.SweepReport) {
	if report == nil {
		return
	}
	p.sweeps.WithLabelValues(report.Result()).Inc()
	p.leadsProcessed.WithLabelValues("sent").Add(float64(report.Sent))
	p.leadsProcessed.WithLabelValues("failed").Add(float64(report.Failed))
	p.leadsProcessed.WithLabelValues("stopped").Add(float64(report.Stopped))
	p.leadsProcessed.WithLabelValues("skipped").Add(float64(report.Skipped))
	p.sweepDuration.Observe(report.Duration().Seconds())
}
