// Package metrics holds the Prometheus instruments of the sync server.
// Collectors are registered on the Registerer passed to New so tests can
// use a private registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nestwatch"

// Upsert outcomes, matching the three upsert response variants.
const (
	OutcomeDelete       = "delete"
	OutcomeUpdateIDs    = "updateids"
	OutcomeUpdateChilds = "updatectrlids"
	OutcomeError        = "error"
)

type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	Upserts             *prometheus.CounterVec
	DuplicatesRemoved   prometheus.Counter
	ManifestCacheHits   prometheus.Counter
	ManifestCacheMisses prometheus.Counter
	BlobBytes           *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		HTTPRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		Upserts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "site_upserts_total",
			Help:      "Site upserts by outcome.",
		}, []string{"outcome"}),
		DuplicatesRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_sites_removed_total",
			Help:      "Sites tombstoned by the duplicate sweep.",
		}),
		ManifestCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_cache_hits_total",
			Help:      "Manifest requests served from cache.",
		}),
		ManifestCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_cache_misses_total",
			Help:      "Manifest requests built from the database.",
		}),
		BlobBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_bytes_total",
			Help:      "Photo bytes moved through the server by direction.",
		}, []string{"direction"}),
	}
}

// Nop returns instruments registered nowhere.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
