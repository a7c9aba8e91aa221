// Package metrics provides Prometheus metrics for the symtag service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsTaggedTotal tracks documents run through the engine
	DocumentsTaggedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "symtag",
			Subsystem: "engine",
			Name:      "documents_total",
			Help:      "Total number of documents tagged by outcome",
		},
		[]string{"outcome"}, // tagged, empty
	)

	// TaggingDuration tracks per-document tagging time
	TaggingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "symtag",
			Subsystem: "engine",
			Name:      "tag_duration_seconds",
			Help:      "Duration of tagging a single document in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	// MentionsTotal tracks raw mentions by strategy
	MentionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "symtag",
			Subsystem: "engine",
			Name:      "mentions_total",
			Help:      "Total number of raw mentions produced by match method",
		},
		[]string{"method"},
	)

	// ResultsTotal tracks merged results by dominant method
	ResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "symtag",
			Subsystem: "engine",
			Name:      "results_total",
			Help:      "Total number of merged tag results by dominant method",
		},
		[]string{"method"},
	)

	// ReloadsTotal tracks reference set reloads
	ReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "symtag",
			Subsystem: "reference",
			Name:      "reloads_total",
			Help:      "Total number of reference set reloads by outcome",
		},
		[]string{"outcome"}, // ok, degraded, locked
	)

	// ReferenceSize tracks the current snapshot's index sizes
	ReferenceSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "symtag",
			Subsystem: "reference",
			Name:      "entries",
			Help:      "Number of entries in the active reference snapshot by index",
		},
		[]string{"index"}, // symbols, names, aliases
	)

	// AssociationsTotal tracks persistence outcomes per result
	AssociationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "symtag",
			Subsystem: "persistence",
			Name:      "associations_total",
			Help:      "Total number of tag results persisted by outcome",
		},
		[]string{"outcome"}, // associated, existing, below_threshold, failed
	)

	// SecuritiesCreatedTotal tracks reference set growth through persistence
	SecuritiesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "symtag",
			Subsystem: "persistence",
			Name:      "securities_created_total",
			Help:      "Total number of securities created for previously unseen symbols",
		},
	)

	// KafkaMessagesTotal tracks consumed article messages
	KafkaMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "symtag",
			Subsystem: "kafka",
			Name:      "messages_total",
			Help:      "Total number of consumed article messages by status",
		},
		[]string{"topic", "status"},
	)

	// KafkaMessagesPublished tracks published tag events
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "symtag",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of published tag events by status",
		},
		[]string{"topic", "status"},
	)
)

// RecordDocumentTagged records one engine run
func RecordDocumentTagged(resultCount int, durationSeconds float64) {
	outcome := "tagged"
	if resultCount == 0 {
		outcome = "empty"
	}
	DocumentsTaggedTotal.WithLabelValues(outcome).Inc()
	TaggingDuration.Observe(durationSeconds)
}

// RecordMentions records raw mention counts keyed by method
func RecordMentions(byMethod map[string]int) {
	for method, n := range byMethod {
		MentionsTotal.WithLabelValues(method).Add(float64(n))
	}
}

// RecordResult records one merged result
func RecordResult(method string) {
	ResultsTotal.WithLabelValues(method).Inc()
}

// RecordReload records a reload and the resulting snapshot size
func RecordReload(outcome string, symbols, names, aliases int) {
	ReloadsTotal.WithLabelValues(outcome).Inc()
	if outcome == "locked" {
		return
	}
	ReferenceSize.WithLabelValues("symbols").Set(float64(symbols))
	ReferenceSize.WithLabelValues("names").Set(float64(names))
	ReferenceSize.WithLabelValues("aliases").Set(float64(aliases))
}

// RecordAssociation records one persistence outcome
func RecordAssociation(outcome string) {
	AssociationsTotal.WithLabelValues(outcome).Inc()
}

// RecordSecurityCreated records a security created by persistence
func RecordSecurityCreated() {
	SecuritiesCreatedTotal.Inc()
}

// RecordKafkaMessage records a consumed message
func RecordKafkaMessage(topic, status string) {
	KafkaMessagesTotal.WithLabelValues(topic, status).Inc()
}

// RecordKafkaPublish records a publish attempt
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}
