package outbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelayPublished counts rows successfully published by the relay.
	RelayPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_relay_published_total",
			Help: "Total number of outbox rows published to Kafka",
		},
		[]string{"topic"},
	)

	// RelayPublishFailures counts individual publish attempts that failed.
	RelayPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_relay_publish_failures_total",
			Help: "Total number of failed outbox publish attempts",
		},
		[]string{"topic"},
	)

	// RelayParked counts rows parked as failed after exhausting attempts.
	RelayParked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_relay_parked_total",
			Help: "Total number of outbox rows parked after exhausting publish attempts",
		},
		[]string{"topic"},
	)

	// RelayLag observes the delay between row creation and successful publish.
	RelayLag = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outbox_relay_lag_seconds",
			Help:    "Delay between outbox row creation and successful publish",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
		},
		[]string{"topic"},
	)
)
