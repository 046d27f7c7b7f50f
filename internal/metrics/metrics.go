package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sitelink"

// Metrics holds the Prometheus collectors for the sitelink service.
// Each instance owns its registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Verifications   *prometheus.CounterVec
	CORSDecisions   *prometheus.CounterVec
	RegistryLinks   prometheus.Gauge
	RegistryRebuild *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all collectors registered
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Transfer token verifications by result (linked, rejected)",
		}, []string{"result"}),
		CORSDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cors_decisions_total",
			Help:      "Cross-origin decisions by result (allowed, denied)",
		}, []string{"result"}),
		RegistryLinks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_links",
			Help:      "Links in the current registry snapshot",
		}),
		RegistryRebuild: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_rebuilds_total",
			Help:      "Registry rebuilds by result (ok, error)",
		}, []string{"result"}),
	}
}

// ObserveVerification counts a token verification.
func (m *Metrics) ObserveVerification(linked bool) {
	if linked {
		m.Verifications.WithLabelValues("linked").Inc()
		return
	}
	m.Verifications.WithLabelValues("rejected").Inc()
}

// ObserveCORS counts a cross-origin decision.
func (m *Metrics) ObserveCORS(authorized bool) {
	if authorized {
		m.CORSDecisions.WithLabelValues("allowed").Inc()
		return
	}
	m.CORSDecisions.WithLabelValues("denied").Inc()
}

// ObserveRebuild records a registry rebuild. On error the gauge keeps the
// size of the snapshot still being served.
func (m *Metrics) ObserveRebuild(links int, err error) {
	m.RegistryLinks.Set(float64(links))
	if err != nil {
		m.RegistryRebuild.WithLabelValues("error").Inc()
		return
	}
	m.RegistryRebuild.WithLabelValues("ok").Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
