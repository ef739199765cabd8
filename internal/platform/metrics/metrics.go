package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	ScansTotal           prometheus.Counter
	EntitiesCreatedTotal prometheus.Counter
	FragmentsLinkedTotal prometheus.Counter
	ErasuresTotal        prometheus.Counter
	RequestDuration      *prometheus.HistogramVec
}

// New creates and registers all metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScansTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "privacore_scans_total",
			Help: "Total number of fragment batches ingested",
		}),
		EntitiesCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "privacore_entities_created_total",
			Help: "Total number of golden records created",
		}),
		FragmentsLinkedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "privacore_fragments_linked_total",
			Help: "Total number of fragments linked to entities",
		}),
		ErasuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "privacore_erasures_total",
			Help: "Total number of entity erasures performed",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "privacore_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// RecordScan counts one ingested batch and its outcome.
func (m *Metrics) RecordScan(entitiesCreated, fragmentsLinked int) {
	m.ScansTotal.Inc()
	m.EntitiesCreatedTotal.Add(float64(entitiesCreated))
	m.FragmentsLinkedTotal.Add(float64(fragmentsLinked))
}

// RecordErasure counts one completed erasure.
func (m *Metrics) RecordErasure() {
	m.ErasuresTotal.Inc()
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, status string, seconds float64) {
	m.RequestDuration.WithLabelValues(route, status).Observe(seconds)
}
