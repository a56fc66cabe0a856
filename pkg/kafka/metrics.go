package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Publish failure stages.
const (
	stageMarshal = "marshal"
	stageWrite   = "write"
)

var (
	// EventsPublished counts catalog events accepted by the brokers.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Catalog events accepted by Kafka, by topic and event type",
		},
		[]string{"topic", "event_type"},
	)

	// PublishFailures counts catalog events that were not published.
	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog",
			Subsystem: "events",
			Name:      "publish_failures_total",
			Help:      "Catalog events that failed to publish, by topic and failing stage",
		},
		[]string{"topic", "stage"},
	)

	// PublishDuration observes the time spent writing one event.
	PublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalog",
			Subsystem: "events",
			Name:      "publish_duration_seconds",
			Help:      "Time spent publishing one catalog event",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"topic"},
	)
)
