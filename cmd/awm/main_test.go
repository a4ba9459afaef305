// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/compscidr/awm-lib/cmd/awm/cli"
	"github.com/compscidr/awm-lib/lib/identity"
	"github.com/compscidr/awm-lib/lib/record"
	"github.com/compscidr/awm-lib/lib/store"
	"github.com/compscidr/awm-lib/lib/testutil"
)

// writeTestConfig writes a config rooted in a temp directory that
// talks to endpoint and never probes the network.
func writeTestConfig(t *testing.T, endpoint string) (configPath, root string) {
	t.Helper()
	root = t.TempDir()
	content := fmt.Sprintf(`
paths:
  root: %s
upload:
  endpoint: %s
  timeout: 5s
connectivity:
  assume_online: true
coordinator:
  shutdown_grace: 1s
log:
  level: error
  format: json
`, root, endpoint)
	configPath = filepath.Join(root, "awm.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath, root
}

func TestRunCollectorUploadsDiscoveries(t *testing.T) {
	collector := testutil.NewCollector(t, nil)
	configPath, root := writeTestConfig(t, collector.URL)

	eventsPath := filepath.Join(root, "events.jsonl")
	events := strings.Join([]string{
		`{"type":"position","longitude":12.34,"latitude":56.78}`,
		`{"type":"local_mac","mac_type":"wifi","mac":"AA:BB:CC:DD:EE:FF"}`,
		`{"type":"discovery","mac_type":"bluetooth","network_name":"cafe","macs":["11:22:33:44:55:66"]}`,
	}, "\n")
	if err := os.WriteFile(eventsPath, []byte(events), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runCollector(ctx, runOptions{configPath: configPath, eventsPath: eventsPath}) }()

	testutil.Eventually(t, 10*time.Second, func() bool { return collector.Count() == 1 }, "waiting for the upload")
	cancel()
	if err := testutil.RequireReceive(t, done, 10*time.Second, "waiting for runCollector"); err != nil {
		t.Fatalf("runCollector: %v", err)
	}

	reporting := collector.Requests()[0].Payload.Measure.ReportingDevice
	if reporting.Longitude != "12.340000" || reporting.Latitude != "56.780000" {
		t.Errorf("position = (%s, %s)", reporting.Longitude, reporting.Latitude)
	}
	if reporting.WiFiMAC != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("wifi_mac_address = %q", reporting.WiFiMAC)
	}

	deviceID, err := identity.Load(filepath.Join(root, "uuid.dat"))
	if err != nil {
		t.Fatalf("identity.Load: %v", err)
	}
	if reporting.UUID != deviceID.String() {
		t.Errorf("uuid = %q, want the persisted %s", reporting.UUID, deviceID)
	}
}

func TestStatusReportsCounts(t *testing.T) {
	configPath, root := writeTestConfig(t, "http://127.0.0.1:1/")

	records, err := store.Open(store.Config{Path: filepath.Join(root, "records.db")})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	ctx := context.Background()
	for _, name := range []string{"a", "b"} {
		rec := record.Record{
			Device:      record.NewDeviceSnapshot("5f1e2d3c-4b5a-4697-8877-665544332211", "linux"),
			Observation: record.NewObservation(record.MacWiFi, name, []string{"AA:AA:AA:AA:AA:AA"}),
			CapturedAt:  time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		}
		id, err := records.Insert(ctx, rec)
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if name == "a" {
			if err := records.MarkUploaded(ctx, id); err != nil {
				t.Fatalf("MarkUploaded: %v", err)
			}
		}
	}
	records.Close()

	var output bytes.Buffer
	if err := showStatus(ctx, statusOptions{configPath: configPath, json: true}, &output); err != nil {
		t.Fatalf("showStatus: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal(output.Bytes(), &report); err != nil {
		t.Fatalf("status output is not JSON: %v\n%s", err, output.String())
	}
	if report.Pending != 1 || report.Uploaded != 1 {
		t.Errorf("report = %+v, want 1 pending and 1 uploaded", report)
	}

	output.Reset()
	err = showStatus(ctx, statusOptions{configPath: configPath, check: true}, &output)
	var exitError *cli.ExitError
	if !errors.As(err, &exitError) || exitError.Code != 1 {
		t.Fatalf("showStatus --check = %v, want exit code 1", err)
	}
	if !strings.Contains(output.String(), "pending:  1") {
		t.Errorf("text output:\n%s", output.String())
	}
}

func TestStatusBeforeFirstRunCreatesNothing(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "state")
	configPath := filepath.Join(base, "awm.yaml")
	content := fmt.Sprintf("paths:\n  root: %s\n", root)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var output bytes.Buffer
	if err := showStatus(context.Background(), statusOptions{configPath: configPath, check: true}, &output); err != nil {
		t.Fatalf("showStatus on a fresh host: %v", err)
	}
	if !strings.Contains(output.String(), "pending:  0") || !strings.Contains(output.String(), "uploaded: 0") {
		t.Errorf("text output:\n%s", output.String())
	}
	if _, err := os.Stat(root); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("status created %s (stat error %v)", root, err)
	}
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "awm.yaml")
	if err := os.WriteFile(configPath, []byte("coordinator:\n  workers: 0\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := loadConfig(configPath)
	if err == nil || !strings.Contains(err.Error(), "coordinator.workers") {
		t.Fatalf("loadConfig = %v, want a workers validation error", err)
	}
}
