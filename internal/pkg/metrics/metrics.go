package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服务指标
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	BillsGenerated *prometheus.CounterVec
	BillFailures   *prometheus.CounterVec

	StatementJobs   *prometheus.CounterVec
	RegistrationOps *prometheus.CounterVec
	PlansTerminated prometheus.Counter

	registry *prometheus.Registry
}

// New 创建并注册全部指标，registry 为 nil 时新建独立的 registry
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerplan_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "powerplan_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		BillsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerplan_bills_generated_total",
				Help: "Bills calculated or rendered",
			},
			[]string{"model", "kind"},
		),
		BillFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerplan_bill_failures_total",
				Help: "Bill requests that failed",
			},
			[]string{"reason"},
		),
		StatementJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerplan_statement_jobs_total",
				Help: "Archived statement jobs by final status",
			},
			[]string{"status"},
		),
		RegistrationOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerplan_registration_decisions_total",
				Help: "Registration approvals and rejections",
			},
			[]string{"decision"},
		),
		PlansTerminated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "powerplan_plans_terminated_total",
				Help: "Subscriptions removed by auto-termination",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BillsGenerated,
		m.BillFailures,
		m.StatementJobs,
		m.RegistrationOps,
		m.PlansTerminated,
	)

	return m
}

// Handler /metrics 暴露端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 底层 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
