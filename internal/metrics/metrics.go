// Package metrics holds Prometheus instruments used across the site.  All
// collectors are registered with the global registry, so importing this
// package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ResourceMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_mutations_total",
			Help: "Committed create, update, delete, and reorder calls per resource.",
		}, []string{"resource", "op"})

	ResourceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_errors_total",
			Help: "Controller error responses per resource and error kind.",
		}, []string{"resource", "kind"})

	ListCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "list_cache_hits_total",
			Help: "List cache lookups served from memory.",
		}, []string{"resource"})

	ListCacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "list_cache_misses_total",
			Help: "List cache lookups that reached the database.",
		}, []string{"resource"})

	NotifyFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_failures_total",
			Help: "Page-changed signals that could not be delivered.",
		}, []string{"topic"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests by method and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"})
)

func init() {
	prometheus.MustRegister(
		ResourceMutationsTotal,
		ResourceErrorsTotal,
		ListCacheHitsTotal,
		ListCacheMissesTotal,
		NotifyFailuresTotal,
		HTTPRequestDuration,
	)
}
