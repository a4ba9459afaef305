// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func testTree(called *string, endpoint *string) *Command {
	return &Command{
		Name:   "awm",
		Output: &bytes.Buffer{},
		Subcommands: []*Command{
			{
				Name:    "run",
				Summary: "Run the collector",
				Flags: func() *pflag.FlagSet {
					flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
					flagSet.StringVar(endpoint, "endpoint", "", "collection URL")
					flagSet.String("events", "-", "event source")
					return flagSet
				},
				Run: func(_ context.Context, args []string) error {
					*called = "run " + strings.Join(args, " ")
					return nil
				},
			},
			{
				Name:    "status",
				Summary: "Show record counts",
				Run: func(context.Context, []string) error {
					*called = "status"
					return nil
				},
			},
		},
	}
}

func TestExecuteDispatchesWithFlags(t *testing.T) {
	var called, endpoint string
	root := testTree(&called, &endpoint)

	if err := root.Execute(context.Background(), []string{"run", "--endpoint", "http://x/", "extra"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if called != "run extra" {
		t.Errorf("called = %q, want %q", called, "run extra")
	}
	if endpoint != "http://x/" {
		t.Errorf("endpoint = %q", endpoint)
	}
}

func TestExecuteSuggestsCommand(t *testing.T) {
	var called, endpoint string
	err := testTree(&called, &endpoint).Execute(context.Background(), []string{"stauts"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "status"`) {
		t.Fatalf("err = %v, want a suggestion for status", err)
	}
}

func TestExecuteSuggestsFlag(t *testing.T) {
	var called, endpoint string
	err := testTree(&called, &endpoint).Execute(context.Background(), []string{"run", "--endpiont", "x"})
	if err == nil || !strings.Contains(err.Error(), "did you mean --endpoint?") {
		t.Fatalf("err = %v, want a suggestion for --endpoint", err)
	}
	if called != "" {
		t.Errorf("command ran despite a flag error")
	}
}

func TestExecuteRequiresSubcommand(t *testing.T) {
	var called, endpoint string
	root := testTree(&called, &endpoint)
	if err := root.Execute(context.Background(), nil); err == nil {
		t.Fatal("expected an error without a subcommand")
	}
	help := root.Output.(*bytes.Buffer).String()
	for _, want := range []string{"Usage:\n  awm <command> [flags]", "run", "Show record counts"} {
		if !strings.Contains(help, want) {
			t.Errorf("help output missing %q:\n%s", want, help)
		}
	}
}

func TestSubcommandHelpListsFlags(t *testing.T) {
	var called, endpoint string
	root := testTree(&called, &endpoint)
	if err := root.Execute(context.Background(), []string{"run", "--help"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	help := root.Output.(*bytes.Buffer).String()
	if !strings.Contains(help, "--endpoint") || !strings.Contains(help, "awm run [flags]") {
		t.Errorf("help output:\n%s", help)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"run", "", 3},
		{"status", "stauts", 2},
		{"kitten", "sitting", 3},
		{"version", "version", 0},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buffer bytes.Buffer

	logger, err := NewLogger(&buffer, "auto", slog.LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("hello", "record_id", 3)
	if !strings.HasPrefix(buffer.String(), "{") {
		t.Errorf("auto format on a non-terminal should be JSON, got %q", buffer.String())
	}

	buffer.Reset()
	logger, err = NewLogger(&buffer, "text", slog.LevelWarn)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("suppressed")
	logger.Warn("shown")
	if strings.Contains(buffer.String(), "suppressed") || !strings.Contains(buffer.String(), "msg=shown") {
		t.Errorf("text output = %q", buffer.String())
	}

	if _, err := NewLogger(&buffer, "xml", slog.LevelInfo); err == nil {
		t.Error("expected an error for an unknown format")
	}
}
