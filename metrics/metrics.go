package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsFinished tracks jobs reaching a terminal status
	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ebookgen_jobs_finished_total",
			Help: "Total number of jobs that reached a terminal status",
		},
		[]string{"kind", "status"},
	)

	// BatchesProcessed tracks completed generation batches
	BatchesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ebookgen_batches_processed_total",
			Help: "Total number of generation batches processed",
		},
	)

	// RecoveryTier tracks which parsing path produced a batch's sections
	RecoveryTier = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ebookgen_recovery_tier_total",
			Help: "Batch responses by the parse or recovery tier that handled them",
		},
		[]string{"tier"},
	)

	// ProducerRequests tracks text producer calls by outcome (ok, retry, fallback)
	ProducerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ebookgen_producer_requests_total",
			Help: "Total number of text producer requests",
		},
		[]string{"outcome"},
	)

	// ProducerLatency tracks the wall time of one Generate call including retries
	ProducerLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ebookgen_producer_latency_seconds",
			Help:    "Text producer call latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// SectionsPerJob tracks the number of sections in completed documents
	SectionsPerJob = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ebookgen_sections_per_job",
			Help:    "Sections in completed documents",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		},
	)

	// Renders tracks renderer outcomes
	Renders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ebookgen_renders_total",
			Help: "Total number of render attempts",
		},
		[]string{"kind", "result"},
	)

	// QueueDepth is the number of tasks waiting for a worker
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ebookgen_worker_queue_depth",
			Help: "Tasks waiting in the worker queue",
		},
	)
)
