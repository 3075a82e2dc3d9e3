// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "customer_sites_requests_total",
			Help: "Customer-site API requests by operation and status code.",
		}, []string{"op", "status"})

	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "customer_sites_auth_failures_total",
			Help: "Rejected requests by reason (missing, mismatch, stale, timestamp, unconfigured).",
		}, []string{"reason"})

	StorageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "customer_sites_storage_duration_seconds",
			Help:    "Latency of storage adapter calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"backend", "op", "outcome"})

	BreakerOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "customer_sites_breaker_open",
			Help: "1 while the named circuit breaker is open.",
		}, []string{"breaker"})

	CacheSites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "customer_sites_cache_entries",
			Help: "Number of sites held in the client-side cache.",
		})
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		AuthFailuresTotal,
		StorageDuration,
		BreakerOpen,
		CacheSites,
	)
}
