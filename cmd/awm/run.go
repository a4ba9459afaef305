// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/compscidr/awm-lib/cmd/awm/cli"
	"github.com/compscidr/awm-lib/lib/config"
	"github.com/compscidr/awm-lib/lib/connectivity"
	"github.com/compscidr/awm-lib/lib/coordinator"
	"github.com/compscidr/awm-lib/lib/event"
	"github.com/compscidr/awm-lib/lib/identity"
	"github.com/compscidr/awm-lib/lib/store"
	"github.com/compscidr/awm-lib/lib/uploader"
)

type runOptions struct {
	configPath string
	eventsPath string
}

func runCommand() *cli.Command {
	var options runOptions
	return &cli.Command{
		Name:    "run",
		Summary: "Run the collector until interrupted",
		Description: "Read sensor events as JSON lines, capture a record for every\n" +
			"discovery, and deliver records to the collection endpoint.\n" +
			"Records that cannot be uploaded are stored and retried.",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flagSet.StringVar(&options.configPath, "config", "", "config file (default: $AWM_CONFIG)")
			flagSet.StringVar(&options.eventsPath, "events", "-", "JSON-lines event file, - for stdin")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Replay a recorded event log",
				Command:     "awm run --config awm.yaml --events scan.jsonl",
			},
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			return runCollector(ctx, options)
		},
	}
}

func runCollector(ctx context.Context, options runOptions) error {
	cfg, err := loadConfig(options.configPath)
	if err != nil {
		return err
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	logger, err := cli.NewLogger(os.Stderr, cfg.Log.Format, level)
	if err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	deviceID, err := identity.LoadOrCreate(cfg.Paths.Identity)
	if err != nil {
		return err
	}
	logger = logger.With("device", deviceID.String())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics := coordinator.NewMetrics(registry)

	records, err := store.Open(store.Config{
		Path:    cfg.Paths.Database,
		Durable: cfg.Store.Durable,
		Logger:  logger.With("component", "store"),
		OnUndecodable: func(int64, error) {
			metrics.StoreFailures.WithLabelValues("decode").Inc()
		},
	})
	if err != nil {
		return err
	}
	defer records.Close()

	upload, err := uploader.New(uploader.Config{
		Endpoint:    cfg.Upload.Endpoint,
		Timeout:     cfg.Upload.Timeout,
		Compression: uploader.Compression(cfg.Upload.Compression),
		Logger:      logger.With("component", "uploader"),
	})
	if err != nil {
		return err
	}

	coordinatorInstance, err := coordinator.New(coordinator.Config{
		Store:             records,
		Uploader:          upload,
		Oracle:            newOracle(cfg, logger),
		DeviceUUID:        deviceID.String(),
		OS:                cfg.Device.OS,
		UploadImmediately: cfg.Upload.Immediate,
		InitialDelay:      cfg.Retry.InitialDelay,
		RetryInterval:     cfg.Retry.Interval,
		Workers:           cfg.Coordinator.Workers,
		QueueSize:         cfg.Coordinator.QueueSize,
		ShutdownGrace:     cfg.Coordinator.ShutdownGrace,
		Logger:            logger.With("component", "coordinator"),
		Metrics:           metrics,
	})
	if err != nil {
		return err
	}

	if cfg.Metrics.Listen != "" {
		shutdownMetrics := serveMetrics(cfg.Metrics.Listen, registry, logger)
		defer shutdownMetrics()
	}

	source, closeSource, err := openEvents(options.eventsPath)
	if err != nil {
		return err
	}
	defer closeSource()

	events := make(chan event.Event)
	go readEvents(ctx, source, events, logger)

	return coordinatorInstance.Run(ctx, events)
}

func newOracle(cfg *config.Config, logger *slog.Logger) connectivity.Oracle {
	if cfg.Connectivity.AssumeOnline {
		return connectivity.NewStatic(connectivity.Online())
	}
	return connectivity.NewProber(connectivity.ProberConfig{
		ProbeURL: cfg.Connectivity.ProbeURL,
		TTL:      cfg.Connectivity.ProbeTTL,
		Timeout:  cfg.Connectivity.ProbeTimeout,
		Logger:   logger.With("component", "connectivity"),
	})
}

func openEvents(path string) (io.Reader, func(), error) {
	if path == "-" || path == "" {
		return os.Stdin, func() {}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening events: %w", err)
	}
	return file, func() { file.Close() }, nil
}

// serveMetrics serves /metrics in the background and returns a function
// that shuts the server down.
func serveMetrics(address string, registry *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "address", address, "error", err)
		}
	}()
	logger.Info("serving metrics", "address", address)

	return func() {
		shutdownContext, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownContext)
	}
}
