// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts validated frames emitted, by kind (normal | exception)
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtuport_frames_total",
			Help: "Total number of validated response frames emitted",
		},
		[]string{"port", "kind"},
	)

	// BytesReceivedTotal counts raw bytes delivered by the transport
	BytesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtuport_bytes_received_total",
			Help: "Total number of raw bytes received from the transport",
		},
		[]string{"port"},
	)

	// BytesDiscardedTotal counts bytes dropped as noise, by reason (noise | overflow | idle)
	BytesDiscardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtuport_bytes_discarded_total",
			Help: "Total number of received bytes dropped without forming a frame",
		},
		[]string{"port", "reason"},
	)

	// RequestsTotal counts requests written, by outcome (ok | invalid | unrecognized | error)
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rtuport_requests_total",
			Help: "Total number of requests written to the transport",
		},
		[]string{"port", "outcome"},
	)

	// BufferedBytes tracks bytes waiting for a match
	BufferedBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rtuport_buffered_bytes",
			Help: "Number of received bytes retained awaiting a complete frame",
		},
		[]string{"port"},
	)

	// FrameSizeBytes tracks emitted frame sizes
	FrameSizeBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rtuport_frame_size_bytes",
			Help:    "Size of emitted response frames in bytes",
			Buckets: prometheus.ExponentialBuckets(4, 2, 7), // 4 .. 256
		},
		[]string{"port"},
	)
)

// Discard reasons
const (
	ReasonNoise    = "noise"
	ReasonOverflow = "overflow"
	ReasonIdle     = "idle"
)
