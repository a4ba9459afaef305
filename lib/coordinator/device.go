// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"github.com/compscidr/awm-lib/lib/connectivity"
	"github.com/compscidr/awm-lib/lib/event"
	"github.com/compscidr/awm-lib/lib/record"
)

// deviceState is the coordinator's running view of the reporting
// device. Only the event goroutine touches it; records receive copies.
type deviceState struct {
	snapshot record.DeviceSnapshot
}

func newDeviceState(uuid, os string) *deviceState {
	return &deviceState{snapshot: record.NewDeviceSnapshot(uuid, os)}
}

// apply folds a validated, non-discovery event into the state. A
// position at the origin is ignored so the last good fix survives.
func (d *deviceState) apply(ev event.Event) {
	switch ev := ev.(type) {
	case event.Position:
		if ev.IsOrigin() {
			return
		}
		d.snapshot.Longitude = ev.Longitude
		d.snapshot.Latitude = ev.Latitude
	case event.Battery:
		d.snapshot.BatteryPercent = ev.Percent
	case event.Addresses:
		if ev.IPv4 != "" {
			d.snapshot.IPv4Address = ev.IPv4
		}
		if ev.IPv6 != "" {
			d.snapshot.IPv6Address = ev.IPv6
		}
	case event.LocalMAC:
		switch ev.Type {
		case record.MacBluetooth:
			d.snapshot.BluetoothMAC = ev.MAC
		case record.MacWiFi:
			d.snapshot.WiFiMAC = ev.MAC
		}
	case event.LinkQuality:
		switch ev.Link {
		case event.LinkWiFi:
			d.snapshot.WiFiThroughput = ev.Throughput
			d.snapshot.WiFiPing = ev.PingMillis
		case event.LinkCellular:
			d.snapshot.CellularThroughput = ev.Throughput
			d.snapshot.CellularPing = ev.PingMillis
		}
	case event.Cellular:
		d.snapshot.CellularOperator = ev.Operator
		d.snapshot.CellularNetworkType = ev.NetworkType
	}
}

func (d *deviceState) setConnectivity(status connectivity.Status) {
	d.snapshot.HasWiFiInternet = status.HasWiFiInternet()
	d.snapshot.HasCellularInternet = status.HasCellularInternet()
}

// capture builds a record from the current state and a scan result.
func (d *deviceState) capture(discovery event.Discovery) record.Record {
	return record.Record{
		Device:      d.snapshot,
		Observation: record.NewObservation(discovery.Source, discovery.NetworkName, discovery.MACs),
	}
}
