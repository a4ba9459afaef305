// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"testing"

	"github.com/compscidr/awm-lib/lib/connectivity"
	"github.com/compscidr/awm-lib/lib/event"
	"github.com/compscidr/awm-lib/lib/record"
)

func TestDeviceStateApply(t *testing.T) {
	device := newDeviceState(testDeviceUUID, "linux")

	device.apply(event.Position{Longitude: -123.1207, Latitude: 49.2827})
	device.apply(event.Position{})
	device.apply(event.Battery{Percent: 55.5})
	device.apply(event.Addresses{IPv4: "10.1.2.3"})
	device.apply(event.Addresses{IPv6: "2001:db8::7"})
	device.apply(event.LocalMAC{Type: record.MacWiFi, MAC: "AA:BB:CC:DD:EE:FF"})
	device.apply(event.LocalMAC{Type: record.MacBluetooth, MAC: "11:22:33:44:55:66"})
	device.apply(event.LinkQuality{Link: event.LinkWiFi, Throughput: 54, PingMillis: 12})
	device.apply(event.LinkQuality{Link: event.LinkCellular, Throughput: 7.5, PingMillis: 90})
	device.apply(event.Cellular{Operator: "Rogers", NetworkType: 13})
	device.setConnectivity(connectivity.Status{WiFiConnected: true, CellularConnected: true, InternetReachable: true})

	want := record.DeviceSnapshot{
		UUID:                testDeviceUUID,
		OS:                  "linux",
		IPv4Address:         "10.1.2.3",
		IPv6Address:         "2001:db8::7",
		Longitude:           -123.1207,
		Latitude:            49.2827,
		BluetoothMAC:        "11:22:33:44:55:66",
		WiFiMAC:             "AA:BB:CC:DD:EE:FF",
		BatteryPercent:      55.5,
		HasCellularInternet: true,
		HasWiFiInternet:     true,
		CellularThroughput:  7.5,
		WiFiThroughput:      54,
		CellularPing:        90,
		WiFiPing:            12,
		CellularOperator:    "Rogers",
		CellularNetworkType: 13,
	}
	if device.snapshot != want {
		t.Fatalf("snapshot:\n got %+v\nwant %+v", device.snapshot, want)
	}
}

func TestCaptureCopiesSnapshot(t *testing.T) {
	device := newDeviceState(testDeviceUUID, "linux")
	device.apply(event.Battery{Percent: 80})

	rec := device.capture(event.Discovery{
		Source:      record.MacBluetooth,
		NetworkName: "bus-stop",
		MACs:        []string{"CC:CC:CC:CC:CC:CC", "AA:AA:AA:AA:AA:AA", "CC:CC:CC:CC:CC:CC"},
	})
	device.apply(event.Battery{Percent: 20})

	if rec.Device.BatteryPercent != 80 {
		t.Errorf("captured battery = %v, later events must not leak into a record", rec.Device.BatteryPercent)
	}
	if len(rec.Observation.Entities) != 2 || rec.Observation.Entities[0].MAC != "AA:AA:AA:AA:AA:AA" {
		t.Errorf("entities = %+v, want two sorted unique entries", rec.Observation.Entities)
	}
	if rec.Observation.Entities[0].Type != record.MacBluetooth {
		t.Errorf("entity type = %v", rec.Observation.Entities[0].Type)
	}
}
