package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type cacheMetrics struct {
	hits            prometheus.Counter
	misses          prometheus.Counter
	pushes          prometheus.Counter
	evictions       prometheus.Counter
	refreshes       prometheus.Counter
	refreshFailures prometheus.Counter
}

func newCacheMetrics(name string, reg prometheus.Registerer) *cacheMetrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"cache": name}
	return &cacheMetrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name:        "routing_cache_hits_total",
			Help:        "Cache lookups that found a published entry.",
			ConstLabels: labels,
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name:        "routing_cache_misses_total",
			Help:        "Cache lookups that found no entry.",
			ConstLabels: labels,
		}),
		pushes: factory.NewCounter(prometheus.CounterOpts{
			Name:        "routing_cache_pushes_total",
			Help:        "Entries published into the cache.",
			ConstLabels: labels,
		}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Name:        "routing_cache_evictions_total",
			Help:        "Entries evicted by invalidation.",
			ConstLabels: labels,
		}),
		refreshes: factory.NewCounter(prometheus.CounterOpts{
			Name:        "routing_cache_refreshes_total",
			Help:        "Load-through refreshes that compiled and published an entry.",
			ConstLabels: labels,
		}),
		refreshFailures: factory.NewCounter(prometheus.CounterOpts{
			Name:        "routing_cache_refresh_failures_total",
			Help:        "Load-through refreshes that failed before publication.",
			ConstLabels: labels,
		}),
	}
}
