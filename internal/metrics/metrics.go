package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vigilore"

// Metrics holds the service's instrumentation on its own registry, so tests
// can build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted       prometheus.Counter
	SessionsCompleted     prometheus.Counter
	AnswersAccepted       prometheus.Counter
	ValidationErrors      *prometheus.CounterVec
	ClarificationFailures prometheus.Counter
	ExportsGenerated      prometheus.Counter

	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
}

// New builds a Metrics instance backed by a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "interview",
			Name:      "sessions_started_total",
			Help:      "Interview sessions opened.",
		}),
		SessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "interview",
			Name:      "sessions_completed_total",
			Help:      "Interview sessions completed.",
		}),
		AnswersAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "interview",
			Name:      "answers_accepted_total",
			Help:      "Answers accepted into sessions.",
		}),
		ValidationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "interview",
			Name:      "validation_errors_total",
			Help:      "Rejected answer submissions by error kind.",
		}, []string{"kind"}),
		ClarificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "clarification_failures_total",
			Help:      "Clarification provider calls that degraded to empty results.",
		}),
		ExportsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "generated_total",
			Help:      "Compliance exports generated.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		RequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status class.",
		}, []string{"route", "method", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SessionsStarted,
		m.SessionsCompleted,
		m.AnswersAccepted,
		m.ValidationErrors,
		m.ClarificationFailures,
		m.ExportsGenerated,
		m.RequestDuration,
		m.RequestTotal,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
