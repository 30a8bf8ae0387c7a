package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Consumer outcomes recorded in storefront_kafka_consumed_total.
const (
	outcomeProcessed    = "processed"
	outcomeFailed       = "failed"
	outcomeUndecodable  = "undecodable"
	outcomeDeadLettered = "dead_lettered"
)

var (
	publishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_kafka_published_total",
			Help: "Kafka publish attempts by topic and result (ok, error)",
		},
		[]string{"topic", "result"},
	)

	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_kafka_publish_duration_seconds",
			Help:    "Duration of Kafka publish calls in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"topic"},
	)

	consumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_kafka_consumed_total",
			Help: "Kafka messages handled by consumer outcome",
		},
		[]string{"topic", "consumer_group", "outcome"},
	)

	duplicatesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_kafka_duplicates_skipped_total",
			Help: "Events skipped because their id was already processed",
		},
		[]string{"event_type"},
	)
)
