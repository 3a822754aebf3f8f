// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeeDigitalWorks/zapdrive/pkg/debug"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zapdrive",
		Subsystem: "api",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route, and status",
	}, []string{"method", "route", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zapdrive",
		Subsystem: "api",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"method", "route"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "zapdrive",
		Subsystem: "api",
		Name:      "http_inflight_requests",
		Help:      "HTTP requests currently being served",
	})

	rateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zapdrive",
		Subsystem: "api",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter",
	})
)

func init() {
	debug.Registry().MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		httpInflight,
		rateLimitedTotal,
	)
}
