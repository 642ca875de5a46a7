package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	filesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "directory_store_files_saved_total",
		Help: "Total entity files written by the store",
	})

	saveErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "directory_store_errors_total",
		Help: "Total store errors by kind",
	}, []string{"kind"}) // "missing_input", "prepare", "missing_field", "serialize", "write"
)
