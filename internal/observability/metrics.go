package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Ledger metrics
	LedgerOperationsTotal *prometheus.CounterVec
	CreditsDebitedTotal   prometheus.Counter
	AccountsOpenedTotal   prometheus.Counter

	// Setup and catalog metrics
	SetupRequestsTotal *prometheus.CounterVec
	PlanCatalogTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saaskit_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "saaskit_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LedgerOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saaskit_ledger_operations_total",
				Help: "Credit ledger operations by outcome",
			},
			[]string{"operation", "result"},
		),
		CreditsDebitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "saaskit_credits_debited_total",
				Help: "Sum of all successfully debited credits",
			},
		),
		AccountsOpenedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "saaskit_credit_accounts_opened_total",
				Help: "Credit accounts created with a welcome bonus",
			},
		),
		SetupRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saaskit_setup_requests_total",
				Help: "Setup endpoint calls by outcome",
			},
			[]string{"endpoint", "result"},
		),
		PlanCatalogTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saaskit_plan_catalog_requests_total",
				Help: "Plan catalog lookups by source",
			},
			[]string{"source"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LedgerOperationsTotal,
		m.CreditsDebitedTotal,
		m.AccountsOpenedTotal,
		m.SetupRequestsTotal,
		m.PlanCatalogTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latencies keyed by the chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) RecordLedger(operation, result string) {
	if m == nil {
		return
	}
	m.LedgerOperationsTotal.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) RecordDebit(amount int64) {
	if m == nil {
		return
	}
	m.CreditsDebitedTotal.Add(float64(amount))
}

func (m *Metrics) RecordAccountOpened() {
	if m == nil {
		return
	}
	m.AccountsOpenedTotal.Inc()
}

func (m *Metrics) RecordSetup(endpoint, result string) {
	if m == nil {
		return
	}
	m.SetupRequestsTotal.WithLabelValues(endpoint, result).Inc()
}

func (m *Metrics) RecordCatalog(source string) {
	if m == nil {
		return
	}
	m.PlanCatalogTotal.WithLabelValues(source).Inc()
}
