package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_events_dispatched_total",
			Help: "Events accepted by the dispatcher queue",
		},
		[]string{"event"},
	)

	eventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_events_dropped_total",
			Help: "Events dropped because the dispatcher queue was full or closed",
		},
		[]string{"event"},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_events_published_total",
			Help: "Events handed to the broker, by outcome",
		},
		[]string{"event", "outcome"},
	)

	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "order_event_publish_duration_ms",
			Help:    "Broker publish latency in ms",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"event"},
	)
)
