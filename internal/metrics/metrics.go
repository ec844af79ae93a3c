// Package metrics holds the Prometheus collectors of the service.
// A nil *Metrics is valid and records nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Исходы расчёта цены.
const (
	OutcomeCacheHit  = "cache_hit"
	OutcomeSkipped   = "skipped"
	OutcomeRequested = "requested"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeStale     = "stale"
)

type Metrics struct {
	priceCalcs *prometheus.CounterVec
	searches   prometheus.Counter
	imports    *prometheus.CounterVec
	sessions   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		priceCalcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos_catalog",
			Name:      "price_calculations_total",
			Help:      "Price calculation requests by outcome.",
		}, []string{"outcome"}),
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos_catalog",
			Name:      "catalog_searches_total",
			Help:      "Catalog search queries served.",
		}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos_catalog",
			Name:      "catalog_imports_total",
			Help:      "Catalog imports by result.",
		}, []string{"result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pos_catalog",
			Name:      "pricing_sessions",
			Help:      "Open price calculator sessions.",
		}),
	}
	reg.MustRegister(m.priceCalcs, m.searches, m.imports, m.sessions)
	return m
}

func (m *Metrics) PriceOutcome(outcome string) {
	if m == nil {
		return
	}
	m.priceCalcs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Search() {
	if m == nil {
		return
	}
	m.searches.Inc()
}

func (m *Metrics) Import(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.imports.WithLabelValues(result).Inc()
}

func (m *Metrics) SessionsOpen(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}
