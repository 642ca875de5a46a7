package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "directory_pages_fetched_total",
		Help: "Total pages fetched by completed paged fetches",
	}, []string{"collection"})

	itemsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "directory_items_fetched_total",
		Help: "Total items returned by completed paged fetches",
	}, []string{"collection"})

	fetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "directory_fetch_failures_total",
		Help: "Total paged fetches aborted by a page request failure",
	}, []string{"collection"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "directory_fetch_duration_seconds",
		Help:    "Duration of a full paged fetch in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"collection"})
)
