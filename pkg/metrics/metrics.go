// Package metrics provides Prometheus metrics for trellis.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// ExecutionsTotal tracks mapping executions by source and status
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trellis",
			Subsystem: "execution",
			Name:      "executions_total",
			Help:      "Total number of mapping executions by status",
		},
		[]string{"tenant_id", "source", "status"},
	)

	// ExecutionDuration tracks mapping execution duration in seconds
	ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trellis",
			Subsystem: "execution",
			Name:      "duration_seconds",
			Help:      "Duration of mapping executions in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"source"},
	)

	// CacheLookups tracks plan cache lookups by tier
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trellis",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of mapping plan cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)

	// CacheEntries tracks compiled plans held in memory
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "trellis",
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Number of compiled mapping plans held in memory",
		},
	)

	// KafkaMessagesConsumed tracks execution requests read from Kafka
	KafkaMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trellis",
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Total number of execution requests consumed from Kafka",
		},
		[]string{"status"},
	)

	// KafkaMessagesPublished tracks results published to Kafka
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trellis",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// StoredDocumentWrites tracks mapping and schema writes
	StoredDocumentWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trellis",
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Total number of stored mapping and schema writes",
		},
		[]string{"kind", "operation"},
	)
)

// RecordExecution records one mapping execution. Source is "http", "kafka"
// or "cli".
func RecordExecution(tenantID, source, status string, durationSeconds float64) {
	ExecutionsTotal.WithLabelValues(tenantID, source, status).Inc()
	ExecutionDuration.WithLabelValues(source).Observe(durationSeconds)
}

func RecordCacheLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(tier, result).Inc()
}

func RecordWrite(kind, operation string) {
	StoredDocumentWrites.WithLabelValues(kind, operation).Inc()
}
