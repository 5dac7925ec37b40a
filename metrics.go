package esmodel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bulkOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "esmodel",
		Subsystem: "session",
		Name:      "operations_total",
		Help:      "Bulk operations submitted to the store, by kind and outcome.",
	}, []string{"kind", "outcome"})

	commitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "esmodel",
		Subsystem: "session",
		Name:      "commit_duration_seconds",
		Help:      "Wall-clock duration of bulk commits, including all chunks.",
		Buckets:   prometheus.DefBuckets,
	})
)
