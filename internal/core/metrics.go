package core

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	batchesTotal   *prometheus.CounterVec
	rowsTotal      *prometheus.CounterVec
	rowErrorsTotal *prometheus.CounterVec

	batchDuration *prometheus.HistogramVec

	activeBatches prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		batchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orgsync",
			Subsystem: "reconcile",
			Name:      "batches_total",
			Help:      "Total number of reconciled batches by status.",
		}, []string{"status"}),
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orgsync",
			Subsystem: "reconcile",
			Name:      "rows_total",
			Help:      "Total number of batch rows by outcome.",
		}, []string{"outcome"}),
		rowErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orgsync",
			Subsystem: "reconcile",
			Name:      "row_errors_total",
			Help:      "Total number of field coercion errors by column.",
		}, []string{"field"}),
		batchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orgsync",
			Subsystem: "reconcile",
			Name:      "batch_duration_seconds",
			Help:      "Latency distribution for batch reconciliation.",
			Buckets: []float64{
				0.005, 0.01, 0.05,
				0.1, 0.5,
				1, 5, 10, 30, 60,
			},
		}, []string{"status"}),
		activeBatches: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "orgsync",
			Subsystem: "reconcile",
			Name:      "active_batches",
			Help:      "Current number of batches holding a limiter slot.",
		}),
	}
})

const (
	statusAccepted = "accepted"
	statusRejected = "rejected"
	statusFailed   = "failed"

	outcomeCreated = "created"
	outcomeUpdated = "updated"
	outcomeSkipped = "skipped"
)
