// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/compscidr/awm-lib/cmd/awm/cli"
	"github.com/compscidr/awm-lib/lib/config"
	"github.com/compscidr/awm-lib/lib/version"
)

func rootCommand() *cli.Command {
	return &cli.Command{
		Name: "awm",
		Description: "awm collects nearby-device observations, uploads them to a\n" +
			"collection server when WiFi is available, and keeps them in a local\n" +
			"store until an upload succeeds.",
		Subcommands: []*cli.Command{
			runCommand(),
			statusCommand(),
			versionCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(context.Context, []string) error {
			fmt.Fprintln(os.Stdout, version.Full())
			return nil
		},
	}
}

// loadConfig loads path, or the file named by AWM_CONFIG when path is
// empty, and validates it.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}
