// Package metrics exposes Prometheus counters and histograms for the
// enrollment and recognition pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Enrollments counts enrollment attempts by outcome. Outcomes are
	// "enrolled", a rejection reason, or "error".
	Enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faceattend_enrollments_total",
		Help: "Enrollment attempts by outcome.",
	}, []string{"outcome"})

	// Recognitions counts recognition attempts by outcome. Outcomes are
	// "recognized", a rejection reason, or "error".
	Recognitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "faceattend_recognitions_total",
		Help: "Recognition attempts by outcome.",
	}, []string{"outcome"})

	// StageDuration measures per-stage latency of the pipelines.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "faceattend_stage_duration_seconds",
		Help:    "Pipeline stage latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// PublishFailures counts attendance events that could not be delivered
	// to the broker. Requests still succeed; this is the only signal.
	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "faceattend_event_publish_failures_total",
		Help: "Attendance events that failed to publish.",
	})
)
