package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks tokens served from Redis
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_token_cache_hits_total",
			Help: "Total number of access tokens served from the cache",
		},
	)

	// CacheMisses tracks lookups that had to go to the identity platform
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_token_cache_misses_total",
			Help: "Total number of access token cache misses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_token_cache_errors_total",
			Help: "Total number of token cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "decode"
	)
)
