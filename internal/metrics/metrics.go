// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// mounting promhttp.Handler() in main.go is enough to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_cache_hits_total",
			Help: "Reads answered from a fresh cache entry, by entry kind.",
		}, []string{"kind"})

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_cache_misses_total",
			Help: "Reads that found no fresh cache entry, by entry kind.",
		}, []string{"kind"})

	CacheEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "content_cache_evict_total",
			Help: "Expired fast-path entries removed by the sweeper.",
		})

	CoalescedWaits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "content_cache_coalesced_total",
			Help: "Callers that awaited an in-flight refresh instead of starting one.",
		})

	SnapshotRefreshTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshot_refresh_total",
			Help: "Cumulative number of successful bulk snapshot refreshes.",
		})

	SnapshotRefreshErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshot_refresh_errors_total",
			Help: "Cumulative number of failed bulk snapshot refreshes.",
		})

	SnapshotAge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_taken_at_seconds",
			Help: "Unix time at which the current snapshot was fetched.",
		})

	TierOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_tier_outcomes_total",
			Help: "Fallback tier results by table, tier, and outcome.",
		}, []string{"table", "tier", "outcome"})

	TenantResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_resolutions_total",
			Help: "Host resolutions by outcome (fast_path, matched, default).",
		}, []string{"outcome"})

	StoreRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "record_store_requests_total",
			Help: "Requests issued to the remote record store, by table and status class.",
		}, []string{"table", "status"})
)

func init() {
	prometheus.MustRegister(
		CacheHits,
		CacheMisses,
		CacheEvictTotal,
		CoalescedWaits,
		SnapshotRefreshTotal,
		SnapshotRefreshErrors,
		SnapshotAge,
		TierOutcomes,
		TenantResolutions,
		StoreRequests,
	)
}
