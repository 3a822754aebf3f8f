// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package billing

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeeDigitalWorks/zapdrive/pkg/debug"
)

var receiptsAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "zapdrive",
	Subsystem: "billing",
	Name:      "receipts_applied_total",
	Help:      "Payment receipts successfully applied, by plan",
}, []string{"plan"})

func init() {
	debug.Registry().MustRegister(receiptsAppliedTotal)
}
