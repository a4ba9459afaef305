// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

// Command awm runs the store-and-forward telemetry collector.
//
//	awm run --config awm.yaml < events.jsonl
//	awm status --config awm.yaml
//	awm version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCommand().Execute(ctx, os.Args[1:])
}
