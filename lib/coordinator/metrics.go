// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the coordinator's Prometheus collectors. All names are
// prefixed "awm_".
//
//   - awm_records_captured_total: observations turned into records
//   - awm_records_delivered_total{path}: confirmed uploads, path is
//     "immediate" or "sweep"
//   - awm_records_stored_total: records inserted as PENDING
//   - awm_records_lost_total: records that could be neither uploaded nor
//     stored
//   - awm_records_pending: PENDING records left after the last sweep
//   - awm_upload_failures_total{outcome}: failed attempts by outcome
//   - awm_sweeps_total{result}: sweeps by result ("offline", "empty",
//     "completed", "store_error")
//   - awm_store_failures_total{op}: store errors by operation
//   - awm_events_dropped_total{reason}: sensor events ignored, reason
//     is "invalid" or "no_fix"
//   - awm_immediate_queue_full_total: immediate uploads diverted to the
//     store because every worker was busy
type Metrics struct {
	Captured       prometheus.Counter
	Delivered      *prometheus.CounterVec
	Stored         prometheus.Counter
	Lost           prometheus.Counter
	Pending        prometheus.Gauge
	UploadFailures *prometheus.CounterVec
	Sweeps         *prometheus.CounterVec
	StoreFailures  *prometheus.CounterVec
	EventsDropped  *prometheus.CounterVec
	QueueFull      prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil
// reg leaves them unregistered, which is what tests and hosts without
// a metrics endpoint want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Captured: factory.NewCounter(prometheus.CounterOpts{
			Name: "awm_records_captured_total",
			Help: "Observations turned into records.",
		}),
		Delivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "awm_records_delivered_total",
			Help: "Records confirmed by the collection endpoint.",
		}, []string{"path"}),
		Stored: factory.NewCounter(prometheus.CounterOpts{
			Name: "awm_records_stored_total",
			Help: "Records inserted into the local store as pending.",
		}),
		Lost: factory.NewCounter(prometheus.CounterOpts{
			Name: "awm_records_lost_total",
			Help: "Records that could be neither uploaded nor stored.",
		}),
		Pending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "awm_records_pending",
			Help: "Pending records remaining after the most recent sweep.",
		}),
		UploadFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "awm_upload_failures_total",
			Help: "Failed upload attempts by outcome.",
		}, []string{"outcome"}),
		Sweeps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "awm_sweeps_total",
			Help: "Retry sweeps by result.",
		}, []string{"result"}),
		StoreFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "awm_store_failures_total",
			Help: "Local store errors by operation.",
		}, []string{"op"}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "awm_events_dropped_total",
			Help: "Sensor events ignored by reason.",
		}, []string{"reason"}),
		QueueFull: factory.NewCounter(prometheus.CounterOpts{
			Name: "awm_immediate_queue_full_total",
			Help: "Immediate uploads stored instead because the worker queue was full.",
		}),
	}
}
