// Package metrics documents the Prometheus metrics exported by the fetcher
// and serves them. The metrics themselves are defined next to the code that
// records them (graph, ratelimit, cache, pagination, store) and registered
// through promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every package's promauto metrics land in.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back what Registry holds.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Paged fetches (pkg/pagination):
//   - directory_pages_fetched_total{collection} (Counter): Pages fetched by completed fetches
//   - directory_items_fetched_total{collection} (Counter): Items returned by completed fetches
//   - directory_fetch_failures_total{collection} (Counter): Fetches aborted by a failed page
//   - directory_fetch_duration_seconds{collection} (Histogram): Duration of a full fetch
//
// Store (pkg/store):
//   - directory_store_files_saved_total (Counter): Entity files written
//   - directory_store_errors_total{kind} (Counter): missing_input, prepare, missing_field, serialize, write
//
// Graph requests (pkg/graph):
//   - graph_requests_total{collection, status} (Counter): Requests by collection and HTTP status
//   - graph_request_duration_seconds{collection} (Histogram): Request duration
//   - graph_errors_total{class} (Counter): Errors by class (client, server, throttled, network)
//
// Throttling (pkg/ratelimit):
//   - graph_throttle_events_total{status} (Counter): 429/503 responses received
//   - graph_throttle_blocks_total (Counter): Requests refused while a throttle window was open
//   - graph_throttle_reset_seconds (Gauge): Seconds until the last throttle window closes
//
// Token cache (pkg/cache):
//   - graph_token_cache_hits_total (Counter): Access tokens served from Redis
//   - graph_token_cache_misses_total (Counter): Tokens requested from the identity platform
//   - graph_token_cache_errors_total{operation} (Counter): get, set, delete, decode
//
// Example Prometheus Queries:
//
//   # Token cache hit rate
//   sum(rate(graph_token_cache_hits_total[5m])) /
//   (sum(rate(graph_token_cache_hits_total[5m])) + sum(rate(graph_token_cache_misses_total[5m])))
//
//   # Throttled requests
//   rate(graph_throttle_events_total[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(graph_request_duration_seconds_bucket[5m]))
//
//   # Entities skipped by the store
//   sum by (kind) (rate(directory_store_errors_total[1h]))
