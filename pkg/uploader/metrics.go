package uploader

import (
	"github.com/LeeDigitalWorks/zapdrive/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// uploadsStartedTotal counts file uploads that entered scheduling
	uploadsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zapdrive",
		Subsystem: "uploader",
		Name:      "uploads_started_total",
		Help:      "Total number of file uploads started",
	})

	// uploadsFinishedTotal counts uploads by terminal status
	uploadsFinishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zapdrive",
		Subsystem: "uploader",
		Name:      "uploads_finished_total",
		Help:      "Total number of file uploads by terminal status",
	}, []string{"status"}) // status: "complete", "cancelled", "failed"

	// chunksSentTotal counts successfully stored chunks
	chunksSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zapdrive",
		Subsystem: "uploader",
		Name:      "chunks_sent_total",
		Help:      "Total number of chunks successfully stored",
	})

	// chunkRetriesTotal counts chunk send re-attempts
	chunkRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zapdrive",
		Subsystem: "uploader",
		Name:      "chunk_retries_total",
		Help:      "Total number of chunk send retries",
	})

	// chunkSendDuration tracks per-attempt send latency
	chunkSendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "zapdrive",
		Subsystem: "uploader",
		Name:      "chunk_send_duration_seconds",
		Help:      "Time spent on individual chunk send attempts",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// bytesSentTotal counts bytes durably stored
	bytesSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zapdrive",
		Subsystem: "uploader",
		Name:      "bytes_sent_total",
		Help:      "Total bytes successfully stored",
	})

	// inflightChunks tracks chunk sends currently in flight
	inflightChunks = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "zapdrive",
		Subsystem: "uploader",
		Name:      "inflight_chunks",
		Help:      "Number of chunk sends currently in flight",
	})
)

func init() {
	debug.Registry().MustRegister(
		uploadsStartedTotal,
		uploadsFinishedTotal,
		chunksSentTotal,
		chunkRetriesTotal,
		chunkSendDuration,
		bytesSentTotal,
		inflightChunks,
	)
}
