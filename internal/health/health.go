// Package health exposes process health and Prometheus metrics.
package health

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters, histogram, and gauge this service exports.
type Metrics struct {
	IngestsTotal   *prometheus.CounterVec
	QueriesTotal   *prometheus.CounterVec
	EventsTotal    *prometheus.CounterVec
	PortLatency    *prometheus.HistogramVec
	Neo4jPoolInUse prometheus.Gauge
}

// NewMetrics registers and returns the service's metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		IngestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ragsvc_ingests_total",
			Help: "Count of ingest operations by tenant and outcome.",
		}, []string{"tenant", "outcome"}),
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ragsvc_queries_total",
			Help: "Count of query operations by tenant and outcome.",
		}, []string{"tenant", "outcome"}),
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ragsvc_events_total",
			Help: "Count of domain events published, by event type.",
		}, []string{"event_type"}),
		PortLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragsvc_port_call_duration_seconds",
			Help:    "Latency of calls to external ports (embedder, chat, vector store).",
			Buckets: prometheus.DefBuckets,
		}, []string{"port"}),
		Neo4jPoolInUse: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ragsvc_neo4j_pool_in_use",
			Help: "Connections currently checked out of the Neo4j driver pool.",
		}),
	}
}

// ObservePort records the duration of a call to a named port.
func (m *Metrics) ObservePort(port string, start time.Time) {
	m.PortLatency.WithLabelValues(port).Observe(time.Since(start).Seconds())
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandleHealthz writes a minimal liveness response.
func HandleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
