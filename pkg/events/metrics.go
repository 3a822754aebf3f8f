// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"github.com/LeeDigitalWorks/zapdrive/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// EventsEmittedTotal tracks total events emitted by event type
	EventsEmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zapdrive",
		Subsystem: "events",
		Name:      "emitted_total",
		Help:      "Total number of lifecycle events emitted",
	}, []string{"event_type"}) // event_type: "file.uploaded", etc.

	// EventsDroppedTotal tracks events dropped (emitter disabled or buffer full)
	EventsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zapdrive",
		Subsystem: "events",
		Name:      "dropped_total",
		Help:      "Total number of lifecycle events dropped",
	})

	// EventsErrorsTotal tracks event emission errors
	EventsErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zapdrive",
		Subsystem: "events",
		Name:      "errors_total",
		Help:      "Total number of event emission errors",
	}, []string{"error_type"}) // error_type: "marshal"

	// EventsDeliveredTotal tracks events delivered by publisher type
	EventsDeliveredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zapdrive",
		Subsystem: "events",
		Name:      "delivered_total",
		Help:      "Total number of lifecycle events delivered to publishers",
	}, []string{"publisher"}) // publisher: "log", "redis", "kafka"

	// EventsDeliveryErrorsTotal tracks delivery errors by publisher
	EventsDeliveryErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zapdrive",
		Subsystem: "events",
		Name:      "delivery_errors_total",
		Help:      "Total number of event delivery errors",
	}, []string{"publisher"})

	// EventsDeliveryDuration tracks event delivery latency by publisher
	EventsDeliveryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zapdrive",
		Subsystem: "events",
		Name:      "delivery_duration_seconds",
		Help:      "Time spent delivering events to publishers",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"publisher"})

	// EventsQueueDepth tracks current event queue depth
	EventsQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "zapdrive",
		Subsystem: "events",
		Name:      "queue_depth",
		Help:      "Current number of events pending delivery",
	})
)

func init() {
	debug.Registry().MustRegister(
		EventsEmittedTotal,
		EventsDroppedTotal,
		EventsErrorsTotal,
		EventsDeliveredTotal,
		EventsDeliveryErrorsTotal,
		EventsDeliveryDuration,
		EventsQueueDepth,
	)
}
