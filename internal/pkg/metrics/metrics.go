// Package metrics holds the Prometheus collectors of the service. They are
// registered with the default registry on import.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts served requests by route template and status
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biograph_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "biograph_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// UpstreamRequestsTotal counts calls to the academic records API, retries included
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biograph_upstream_requests_total",
			Help: "Total number of academic records API attempts",
		},
		[]string{"method", "outcome"},
	)

	// UpstreamRequestDuration tracks academic records API latency per attempt
	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "biograph_upstream_request_duration_seconds",
			Help:    "Academic records API latency per attempt",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// SnapshotRefreshTotal counts snapshot loads by source (upstream, cache)
	SnapshotRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biograph_snapshot_refresh_total",
			Help: "Total number of curriculum snapshot loads",
		},
		[]string{"source", "outcome"},
	)

	// SnapshotEntities tracks the size of the current snapshot
	SnapshotEntities = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "biograph_snapshot_entities",
			Help: "Number of entities in the current snapshot",
		},
		[]string{"kind"},
	)

	// SnapshotTimestamp is the unix time the current snapshot was fetched
	SnapshotTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "biograph_snapshot_timestamp_seconds",
			Help: "Fetch time of the current curriculum snapshot",
		},
	)

	// StatusChangesTotal counts discipline status change attempts
	StatusChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biograph_status_changes_total",
			Help: "Total number of discipline status change requests",
		},
		[]string{"status", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamRequestDuration)
	prometheus.MustRegister(SnapshotRefreshTotal)
	prometheus.MustRegister(SnapshotEntities)
	prometheus.MustRegister(SnapshotTimestamp)
	prometheus.MustRegister(StatusChangesTotal)
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
