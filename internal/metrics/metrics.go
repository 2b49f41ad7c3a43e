// Package metrics provides Prometheus metrics for the occurrence prediction
// service: prediction throughput and latency, confidence distribution,
// notification outcomes, and record-store health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service. Its methods satisfy
// the metrics interfaces of the ml and notify packages so those packages
// stay decoupled from Prometheus.
type Metrics struct {
	Predictions        prometheus.Counter   // Successful predictions served
	PredictionFailures prometheus.Counter   // Failed inference attempts
	PredictionLatency  prometheus.Histogram // End-to-end prediction latency in seconds
	Confidence         prometheus.Histogram // Distribution of prediction confidence scores
	ValidationErrors   prometheus.Counter   // Requests rejected at the input boundary

	NotificationsCreated    prometheus.Counter // Notifications written to the store
	NotificationsSuppressed prometheus.Counter // Notifications suppressed by policy
	RecordWriteFailures     prometheus.Counter // Best-effort record writes that failed

	ModelLoaded prometheus.Gauge // 1 when the artifact set is loaded
	ModelAge    prometheus.Gauge // Age of the served model in seconds
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, keeping tests
// isolated from the global one.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of successful predictions served",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed inference attempts",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "End-to-end prediction latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		Confidence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_confidence",
			Help:    "Distribution of prediction confidence scores",
			Buckets: prometheus.LinearBuckets(0.3, 0.05, 14),
		}),
		ValidationErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "validation_errors_total",
			Help: "Total number of requests rejected at the input boundary",
		}),
		NotificationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notifications written to the record store",
		}),
		NotificationsSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "notifications_suppressed_total",
			Help: "Total number of notifications suppressed by user preference policy",
		}),
		RecordWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "record_write_failures_total",
			Help: "Total number of best-effort record writes that failed",
		}),
		ModelLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_loaded",
			Help: "Whether the model artifact set is loaded (1) or not (0)",
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the served model in seconds",
		}),
	}
}

// ml.MetricsInterface

func (m *Metrics) PredictionsInc()                    { m.Predictions.Inc() }
func (m *Metrics) PredictionFailuresInc()             { m.PredictionFailures.Inc() }
func (m *Metrics) PredictionLatencyObserve(s float64) { m.PredictionLatency.Observe(s) }
func (m *Metrics) ConfidenceObserve(c float64)        { m.Confidence.Observe(c) }

// notify.MetricsInterface

func (m *Metrics) NotificationsCreatedInc()    { m.NotificationsCreated.Inc() }
func (m *Metrics) NotificationsSuppressedInc() { m.NotificationsSuppressed.Inc() }
func (m *Metrics) RecordWriteFailuresInc()     { m.RecordWriteFailures.Inc() }

// api boundary

func (m *Metrics) ValidationErrorsInc() { m.ValidationErrors.Inc() }
