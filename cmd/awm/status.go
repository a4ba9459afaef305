// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/pflag"

	"github.com/compscidr/awm-lib/cmd/awm/cli"
	"github.com/compscidr/awm-lib/lib/identity"
	"github.com/compscidr/awm-lib/lib/store"
)

type statusOptions struct {
	configPath string
	json       bool
	check      bool
}

type statusReport struct {
	Device   string `json:"device,omitempty"`
	Database string `json:"database"`
	Pending  int64  `json:"pending"`
	Uploaded int64  `json:"uploaded"`
}

func statusCommand() *cli.Command {
	var options statusOptions
	return &cli.Command{
		Name:    "status",
		Summary: "Show stored record counts",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			flagSet.StringVar(&options.configPath, "config", "", "config file (default: $AWM_CONFIG)")
			flagSet.BoolVar(&options.json, "json", false, "print JSON")
			flagSet.BoolVar(&options.check, "check", false, "exit 1 while any record is pending")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			return showStatus(ctx, options, os.Stdout)
		},
	}
}

func showStatus(ctx context.Context, options statusOptions, w io.Writer) error {
	cfg, err := loadConfig(options.configPath)
	if err != nil {
		return err
	}

	counts, err := readCounts(ctx, cfg.Paths.Database)
	if err != nil {
		return err
	}
	report := statusReport{
		Database: cfg.Paths.Database,
		Pending:  counts.Pending,
		Uploaded: counts.Uploaded,
	}
	// The identity file appears on the first run; its absence is not
	// an error here.
	if deviceID, err := identity.Load(cfg.Paths.Identity); err == nil {
		report.Device = deviceID.String()
	}

	if options.json {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return err
		}
	} else {
		if report.Device != "" {
			fmt.Fprintf(w, "device:   %s\n", report.Device)
		}
		fmt.Fprintf(w, "database: %s\n", report.Database)
		fmt.Fprintf(w, "pending:  %d\n", report.Pending)
		fmt.Fprintf(w, "uploaded: %d\n", report.Uploaded)
	}

	if options.check && report.Pending > 0 {
		return &cli.ExitError{Code: 1}
	}
	return nil
}

// readCounts opens the store only when the database already exists;
// before the first run there is nothing pending and nothing is created.
func readCounts(ctx context.Context, path string) (store.Counts, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return store.Counts{}, nil
	} else if err != nil {
		return store.Counts{}, err
	}

	records, err := store.Open(store.Config{Path: path})
	if err != nil {
		return store.Counts{}, err
	}
	defer records.Close()
	return records.Counts(ctx)
}
