// Package metrics holds the Prometheus collectors exported on /metrics.
//
// The collectors are registered once on the default registry through promauto.
// Packages update them directly; nothing here owns any behaviour.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamRequests counts GitHub API calls by operation and outcome
	// ("ok", "not_found", "error").
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accessgit_upstream_requests_total",
		Help: "GitHub API calls by operation and outcome",
	}, []string{"operation", "outcome"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "accessgit_upstream_request_duration_seconds",
		Help:    "Latency of GitHub API calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	QueueInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "accessgit_queue_in_flight",
		Help: "Outbound calls currently admitted by the request queue",
	})

	QueueWaiting = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "accessgit_queue_waiting",
		Help: "Outbound calls waiting for a queue slot",
	})

	// CacheRequests counts lookups by cache name and result ("hit", "miss").
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accessgit_cache_requests_total",
		Help: "Short-TTL cache lookups",
	}, []string{"cache", "result"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "accessgit_http_request_duration_seconds",
		Help:    "Latency of HTTP requests served",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	TopicSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accessgit_topic_syncs_total",
		Help: "Topic sync runs by outcome",
	}, []string{"outcome"})
)
