// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

// Package coordinator decides, for every observation, whether it is
// uploaded immediately or persisted for a later retry sweep, and owns
// every upload_state transition in the local store.
//
// Lifecycle of one observation:
//
//	discovery event ─► record ─┬─► immediate upload (worker pool) ─► delivered
//	                           │            │ failure
//	                           │            ▼
//	                           └──────► Insert (PENDING) ─► sweep ─► MarkUploaded
//
// A record is inserted when immediate upload is disabled, when the
// oracle says uploads may not proceed, when the worker queue is full,
// or when the immediate attempt fails. Records delivered immediately
// are never stored.
//
// The retry sweep starts after InitialDelay and then runs every
// RetryInterval. Each sweep first asks the oracle; when uploads may not
// proceed it makes no network calls and touches nothing in the store.
// Otherwise it lists PENDING records in insertion order, hands them to
// the uploader as one batch, and marks each success UPLOADED. A record
// whose acknowledgment was lost, or whose MarkUploaded failed, is sent
// again on the next sweep: delivery is at-least-once.
//
// All store writes go through one mutex, so inserts from the event
// goroutine, inserts from upload workers, and sweep updates never
// interleave.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/compscidr/awm-lib/lib/clock"
	"github.com/compscidr/awm-lib/lib/connectivity"
	"github.com/compscidr/awm-lib/lib/event"
	"github.com/compscidr/awm-lib/lib/record"
	"github.com/compscidr/awm-lib/lib/uploader"
)

// Store is the subset of *store.Store the coordinator uses.
type Store interface {
	Insert(ctx context.Context, rec record.Record) (int64, error)
	MarkUploaded(ctx context.Context, id int64) error
	ListPending(ctx context.Context) ([]record.Record, error)
}

// Uploader is the subset of *uploader.Uploader the coordinator uses.
type Uploader interface {
	UploadOne(ctx context.Context, rec record.Record) uploader.Result
	UploadBatch(ctx context.Context, records []record.Record) []uploader.Result
}

// Default schedule and pool sizing.
const (
	DefaultInitialDelay  = 30 * time.Second
	DefaultRetryInterval = 5 * time.Second
	DefaultWorkers       = 4
	DefaultQueueSize     = 64
	DefaultShutdownGrace = 5 * time.Second
)

// Config holds the parameters for creating a Coordinator. Store,
// Uploader, Oracle, and DeviceUUID are required.
type Config struct {
	Store    Store
	Uploader Uploader
	Oracle   connectivity.Oracle

	// DeviceUUID and OS identify the reporting device in every record.
	DeviceUUID string
	OS         string

	// UploadImmediately sends each observation as it is captured when
	// the oracle allows it. When false every observation is stored and
	// only sweeps upload.
	UploadImmediately bool

	InitialDelay  time.Duration
	RetryInterval time.Duration

	// Workers is the number of concurrent immediate uploads; QueueSize
	// bounds how many more may wait for a worker.
	Workers   int
	QueueSize int

	// ShutdownGrace is how long in-flight immediate uploads may run
	// after the Run context is cancelled.
	ShutdownGrace time.Duration

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *Metrics
}

// SweepReport summarizes one retry sweep.
type SweepReport struct {
	// Skipped is true when the oracle did not allow uploads.
	Skipped bool

	// Pending is the number of PENDING records the sweep found.
	Pending int

	// Attempted is the number of records handed to the network. It is
	// less than Pending when the batch stopped early.
	Attempted int

	// Uploaded is the number of records marked UPLOADED.
	Uploaded int

	// Err is set when the pending list could not be read.
	Err error
}

// Coordinator is created with New and driven by Run.
type Coordinator struct {
	store             Store
	uploader          Uploader
	oracle            connectivity.Oracle
	uploadImmediately bool
	initialDelay      time.Duration
	retryInterval     time.Duration
	workers           int
	shutdownGrace     time.Duration
	clock             clock.Clock
	logger            *slog.Logger
	metrics           *Metrics

	device  *deviceState
	jobs    chan record.Record
	running atomic.Bool

	// writeMu serializes every store mutation.
	writeMu sync.Mutex

	// sweepMu keeps sweeps from overlapping when SweepNow races a tick.
	sweepMu sync.Mutex
}

// New validates cfg and returns a Coordinator.
func New(cfg Config) (*Coordinator, error) {
	var errs []error
	if cfg.Store == nil {
		errs = append(errs, errors.New("coordinator: Store is required"))
	}
	if cfg.Uploader == nil {
		errs = append(errs, errors.New("coordinator: Uploader is required"))
	}
	if cfg.Oracle == nil {
		errs = append(errs, errors.New("coordinator: Oracle is required"))
	}
	if cfg.DeviceUUID == "" {
		errs = append(errs, errors.New("coordinator: DeviceUUID is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	coordinator := &Coordinator{
		store:             cfg.Store,
		uploader:          cfg.Uploader,
		oracle:            cfg.Oracle,
		uploadImmediately: cfg.UploadImmediately,
		initialDelay:      cfg.InitialDelay,
		retryInterval:     cfg.RetryInterval,
		workers:           cfg.Workers,
		shutdownGrace:     cfg.ShutdownGrace,
		clock:             cfg.Clock,
		logger:            cfg.Logger,
		metrics:           cfg.Metrics,
		device:            newDeviceState(cfg.DeviceUUID, cfg.OS),
	}
	if coordinator.initialDelay <= 0 {
		coordinator.initialDelay = DefaultInitialDelay
	}
	if coordinator.retryInterval <= 0 {
		coordinator.retryInterval = DefaultRetryInterval
	}
	if coordinator.workers <= 0 {
		coordinator.workers = DefaultWorkers
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	coordinator.jobs = make(chan record.Record, queueSize)
	if coordinator.shutdownGrace <= 0 {
		coordinator.shutdownGrace = DefaultShutdownGrace
	}
	if coordinator.clock == nil {
		coordinator.clock = clock.Real()
	}
	if coordinator.logger == nil {
		coordinator.logger = slog.New(slog.DiscardHandler)
	}
	if coordinator.metrics == nil {
		coordinator.metrics = NewMetrics(nil)
	}
	return coordinator, nil
}

// Run consumes events until ctx is cancelled, running the retry sweep
// on its schedule and immediate uploads on the worker pool. A closed
// events channel means every producer has unregistered; sweeps keep
// running until ctx is cancelled.
//
// On cancellation Run stops intake and the sweep, then gives queued
// and in-flight immediate uploads ShutdownGrace to finish. Any that do
// not succeed are stored as PENDING. Run returns nil after a clean
// shutdown. A Coordinator can be Run only once.
func (c *Coordinator) Run(ctx context.Context, events <-chan event.Event) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("coordinator: Run called twice")
	}

	// Workers and store writes outlive ctx: the shutdown grace and the
	// final inserts happen after it is cancelled.
	detached := context.WithoutCancel(ctx)
	workerContext, cancelWorkers := context.WithCancel(detached)
	defer cancelWorkers()

	var workerGroup sync.WaitGroup
	for range c.workers {
		workerGroup.Add(1)
		go func() {
			defer workerGroup.Done()
			for rec := range c.jobs {
				c.deliver(workerContext, detached, rec)
			}
		}()
	}

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		c.sweepLoop(ctx, detached)
	}()

	c.logger.Info("coordinator started",
		"upload_immediately", c.uploadImmediately,
		"initial_delay", c.initialDelay,
		"retry_interval", c.retryInterval,
		"workers", c.workers,
	)

intake:
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				c.logger.Info("event source closed")
				events = nil
				continue
			}
			c.handle(ctx, detached, ev)
		case <-ctx.Done():
			break intake
		}
	}

	<-sweepDone
	close(c.jobs)

	workersDone := make(chan struct{})
	go func() {
		workerGroup.Wait()
		close(workersDone)
	}()
	select {
	case <-workersDone:
	case <-c.clock.After(c.shutdownGrace):
		c.logger.Warn("shutdown grace expired, cancelling in-flight uploads", "grace", c.shutdownGrace)
		cancelWorkers()
		<-workersDone
	}

	c.logger.Info("coordinator stopped")
	return nil
}

// handle processes one event on the event goroutine.
func (c *Coordinator) handle(ctx, storeContext context.Context, ev event.Event) {
	if err := ev.Validate(); err != nil {
		c.logger.Warn("dropping invalid event", "kind", string(ev.Kind()), "error", err)
		c.metrics.EventsDropped.WithLabelValues("invalid").Inc()
		return
	}

	discovery, ok := ev.(event.Discovery)
	if !ok {
		if position, isPosition := ev.(event.Position); isPosition && position.IsOrigin() {
			c.logger.Debug("ignoring position without a fix")
			c.metrics.EventsDropped.WithLabelValues("no_fix").Inc()
			return
		}
		c.device.apply(ev)
		return
	}

	status := c.oracle.Status(ctx)
	c.device.setConnectivity(status)
	rec := c.device.capture(discovery)
	rec.CapturedAt = c.clock.Now()
	c.metrics.Captured.Inc()

	if c.uploadImmediately && status.CanUpload() {
		select {
		case c.jobs <- rec:
			return
		default:
			c.logger.Warn("upload queue full, storing record for the retry sweep")
			c.metrics.QueueFull.Inc()
		}
	}
	c.insert(storeContext, rec)
}

// deliver runs on a worker: one immediate attempt, stored on failure.
func (c *Coordinator) deliver(ctx, storeContext context.Context, rec record.Record) {
	result := c.uploader.UploadOne(ctx, rec)
	if result.OK() {
		c.metrics.Delivered.WithLabelValues("immediate").Inc()
		return
	}
	c.metrics.UploadFailures.WithLabelValues(result.Outcome.String()).Inc()
	c.insert(storeContext, rec)
}

func (c *Coordinator) insert(ctx context.Context, rec record.Record) {
	c.writeMu.Lock()
	id, err := c.store.Insert(ctx, rec)
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Error("storing record failed, observation lost",
			"entities", len(rec.Observation.Entities),
			"error", err,
		)
		c.metrics.StoreFailures.WithLabelValues("insert").Inc()
		c.metrics.Lost.Inc()
		return
	}
	c.metrics.Stored.Inc()
	c.logger.Debug("record stored", "record_id", id)
}

func (c *Coordinator) sweepLoop(ctx, storeContext context.Context) {
	select {
	case <-c.clock.After(c.initialDelay):
	case <-ctx.Done():
		return
	}
	c.sweep(ctx, storeContext)

	ticker := c.clock.NewTicker(c.retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep(ctx, storeContext)
		case <-ctx.Done():
			return
		}
	}
}

// SweepNow runs one retry sweep synchronously, waiting for any sweep
// already in progress to finish first. It may be called whether or not
// Run is active.
func (c *Coordinator) SweepNow(ctx context.Context) SweepReport {
	return c.sweep(ctx, context.WithoutCancel(ctx))
}

func (c *Coordinator) sweep(ctx, storeContext context.Context) SweepReport {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	if status := c.oracle.Status(ctx); !status.CanUpload() {
		c.logger.Debug("sweep skipped, uploads not allowed", "connectivity", status.String())
		c.metrics.Sweeps.WithLabelValues("offline").Inc()
		return SweepReport{Skipped: true}
	}

	pending, err := c.store.ListPending(ctx)
	if err != nil {
		c.logger.Error("sweep: listing pending records failed", "error", err)
		c.metrics.StoreFailures.WithLabelValues("list_pending").Inc()
		c.metrics.Sweeps.WithLabelValues("store_error").Inc()
		return SweepReport{Err: err}
	}
	report := SweepReport{Pending: len(pending)}
	if len(pending) == 0 {
		c.metrics.Sweeps.WithLabelValues("empty").Inc()
		c.metrics.Pending.Set(0)
		return report
	}

	results := c.uploader.UploadBatch(ctx, pending)
	report.Attempted = len(results)
	for _, result := range results {
		if !result.OK() {
			c.metrics.UploadFailures.WithLabelValues(result.Outcome.String()).Inc()
			continue
		}
		c.writeMu.Lock()
		err := c.store.MarkUploaded(storeContext, result.RecordID)
		c.writeMu.Unlock()
		if err != nil {
			// Left PENDING; the next sweep sends it again.
			c.logger.Warn("sweep: marking record uploaded failed",
				"record_id", result.RecordID,
				"error", err,
			)
			c.metrics.StoreFailures.WithLabelValues("mark_uploaded").Inc()
			continue
		}
		report.Uploaded++
		c.metrics.Delivered.WithLabelValues("sweep").Inc()
	}

	c.metrics.Sweeps.WithLabelValues("completed").Inc()
	c.metrics.Pending.Set(float64(report.Pending - report.Uploaded))
	c.logger.Info("sweep finished",
		"pending", report.Pending,
		"attempted", report.Attempted,
		"uploaded", report.Uploaded,
	)
	return report
}
