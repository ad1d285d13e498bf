// Package metrics provides Prometheus metrics for the sorrel service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks reconciliation runs by mode and status
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of reconciliation runs by mode and status",
		},
		[]string{"collection", "mode", "status"},
	)

	// RunDuration tracks reconciliation run duration in seconds
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sorrel",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of reconciliation runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 900},
		},
		[]string{"collection", "mode"},
	)

	// DuplicateGroupsFound tracks duplicate groups detected
	DuplicateGroupsFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "grouping",
			Name:      "duplicate_groups_total",
			Help:      "Total number of duplicate groups detected",
		},
		[]string{"collection"},
	)

	// RecordsSkipped tracks records dropped before grouping
	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "grouping",
			Name:      "records_skipped_total",
			Help:      "Total number of records skipped for lacking a usable identity key",
		},
		[]string{"collection"},
	)

	// MutationsTotal tracks executed mutations by kind and outcome
	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "executor",
			Name:      "mutations_total",
			Help:      "Total number of mutations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// MutationDuration tracks store call duration per mutation
	MutationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sorrel",
			Subsystem: "executor",
			Name:      "mutation_duration_seconds",
			Help:      "Duration of mutation store calls in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	// HTTPRequestsTotal tracks outbound HTTP requests to the document API
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"method", "status_code"},
	)

	// HTTPRequestDuration tracks outbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sorrel",
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaPublishDuration tracks Kafka publish duration
	KafkaPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sorrel",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Duration of Kafka publish operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	// RedisOperationDuration tracks Redis operation duration
	RedisOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sorrel",
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Duration of Redis operations in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"operation"},
	)

	// SinkWritesTotal tracks backup and report sink writes
	SinkWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "sink",
			Name:      "writes_total",
			Help:      "Total number of backup and report sink writes by outcome",
		},
		[]string{"sink", "status"},
	)
)

// RecordRun records a finished reconciliation run
func RecordRun(collection, mode, status string, durationSeconds float64) {
	RunsTotal.WithLabelValues(collection, mode, status).Inc()
	RunDuration.WithLabelValues(collection, mode).Observe(durationSeconds)
}

// RecordGrouping records grouping totals for a run
func RecordGrouping(collection string, groups, skipped int) {
	DuplicateGroupsFound.WithLabelValues(collection).Add(float64(groups))
	RecordsSkipped.WithLabelValues(collection).Add(float64(skipped))
}

// RecordMutation records one mutation outcome
func RecordMutation(kind, outcome string, durationSeconds float64) {
	MutationsTotal.WithLabelValues(kind, outcome).Inc()
	MutationDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordHTTPRequest records an outbound HTTP request metric
func RecordHTTPRequest(method, statusCode string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string, durationSeconds float64) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
	KafkaPublishDuration.Observe(durationSeconds)
}

// RecordSinkWrite records a sink write
func RecordSinkWrite(sink, status string) {
	SinkWritesTotal.WithLabelValues(sink, status).Inc()
}
