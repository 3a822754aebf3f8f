package blobstore

import (
	"time"

	"github.com/LeeDigitalWorks/zapdrive/pkg/debug"
	"github.com/LeeDigitalWorks/zapdrive/pkg/types"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// opDuration tracks blob store operation latency by op and backend
	opDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zapdrive",
		Subsystem: "blobstore",
		Name:      "operation_duration_seconds",
		Help:      "Latency of blob store operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "backend"})

	// opErrors tracks failed blob store operations
	opErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zapdrive",
		Subsystem: "blobstore",
		Name:      "operation_errors_total",
		Help:      "Total number of failed blob store operations",
	}, []string{"operation", "backend"})

	// bytesWrittenTotal tracks bytes written to each backend
	bytesWrittenTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zapdrive",
		Subsystem: "blobstore",
		Name:      "bytes_written_total",
		Help:      "Total bytes written to blob storage",
	}, []string{"backend"})
)

func init() {
	debug.Registry().MustRegister(
		opDuration,
		opErrors,
		bytesWrittenTotal,
	)
}

func observeOp(op string, backend types.StorageType, start time.Time, err error) {
	opDuration.WithLabelValues(op, string(backend)).Observe(time.Since(start).Seconds())
	if err != nil {
		opErrors.WithLabelValues(op, string(backend)).Inc()
	}
}
