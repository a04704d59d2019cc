package daemon

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the daemon's Prometheus collectors. Each Service owns its
// registry so several services can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	budgetAmount      *prometheus.GaugeVec
	budgetSpent       *prometheus.GaugeVec
	budgetUtilization *prometheus.GaugeVec
	fetchFailures     *prometheus.CounterVec
	polls             *prometheus.CounterVec
	pollDuration      prometheus.Histogram
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,

		budgetAmount: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cloudburn_budget_amount",
				Help: "Budget amount of the current period",
			},
			[]string{"budget"},
		),

		budgetSpent: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cloudburn_budget_spent",
				Help: "Spend so far in the current budget period",
			},
			[]string{"budget"},
		),

		budgetUtilization: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cloudburn_budget_utilization_percent",
				Help: "Current period utilization as a percentage (0-100+)",
			},
			[]string{"budget"},
		),

		fetchFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudburn_fetch_failures_total",
				Help: "Sub-period fetches that failed and were counted as zero",
			},
			[]string{"budget"},
		),

		polls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudburn_polls_total",
				Help: "Budget polls by result",
			},
			[]string{"result"},
		),

		pollDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cloudburn_poll_duration_seconds",
				Help:    "Wall time of one poll over all budgets",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
		),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

func (m *Metrics) observeBudget(name string, snap BudgetSnapshot) {
	m.budgetAmount.WithLabelValues(name).Set(snap.Amount)
	m.budgetSpent.WithLabelValues(name).Set(snap.CurrentSpent)
	m.budgetUtilization.WithLabelValues(name).Set(snap.CurrentUtilization)
	if snap.FailedFetches > 0 {
		m.fetchFailures.WithLabelValues(name).Add(float64(snap.FailedFetches))
	}
}

func (m *Metrics) forget(name string) {
	m.budgetAmount.DeleteLabelValues(name)
	m.budgetSpent.DeleteLabelValues(name)
	m.budgetUtilization.DeleteLabelValues(name)
	m.fetchFailures.DeleteLabelValues(name)
}
