// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

// Package record defines the observation record that flows through the
// delivery pipeline and its awm_measure JSON wire form.
//
// A Record pairs a DeviceSnapshot (the reporting device as it was at
// capture time) with an Observation (the entities a discovery scan
// found). Both are plain values: a Record never references live device
// state, so it can be handed between goroutines without locking.
package record

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// MacType identifies the radio a discovered MAC address was seen on.
// The numeric values are part of the wire format.
type MacType int

const (
	MacUnknown   MacType = -1
	MacBluetooth MacType = 0
	MacWiFi      MacType = 1
)

func (t MacType) String() string {
	switch t {
	case MacBluetooth:
		return "bluetooth"
	case MacWiFi:
		return "wifi"
	case MacUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("MacType(%d)", int(t))
	}
}

// ParseMacType accepts the names produced by String.
func ParseMacType(name string) (MacType, error) {
	switch strings.ToLower(name) {
	case "bluetooth", "bt":
		return MacBluetooth, nil
	case "wifi":
		return MacWiFi, nil
	case "unknown", "":
		return MacUnknown, nil
	default:
		return MacUnknown, fmt.Errorf("record: unknown mac type %q", name)
	}
}

// UploadState is the delivery state of a stored record. The only legal
// transition is Pending to Uploaded.
type UploadState uint8

const (
	Pending  UploadState = 0
	Uploaded UploadState = 1
)

func (s UploadState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Uploaded:
		return "uploaded"
	default:
		return fmt.Sprintf("UploadState(%d)", uint8(s))
	}
}

// Placeholder values reported until the corresponding sensor event
// arrives. They match what deployed collection servers already accept.
const (
	UnknownIPv4     = "0.0.0.0"
	UnknownIPv6     = "::"
	UnknownMAC      = "00:00:00:00:00"
	UnknownOperator = "unknown"
)

// DeviceSnapshot is the reporting device's state copied at capture
// time. The cbor tags fix the on-disk field names.
type DeviceSnapshot struct {
	UUID                string  `cbor:"uuid"`
	OS                  string  `cbor:"os"`
	IPv4Address         string  `cbor:"ipv4"`
	IPv6Address         string  `cbor:"ipv6"`
	Longitude           float64 `cbor:"lon"`
	Latitude            float64 `cbor:"lat"`
	BluetoothMAC        string  `cbor:"bt_mac"`
	WiFiMAC             string  `cbor:"wifi_mac"`
	BatteryPercent      float32 `cbor:"battery"`
	HasCellularInternet bool    `cbor:"cell_inet"`
	HasWiFiInternet     bool    `cbor:"wifi_inet"`
	CellularThroughput  float32 `cbor:"cell_tput"`
	WiFiThroughput      float32 `cbor:"wifi_tput"`
	CellularPing        int     `cbor:"cell_ping"`
	WiFiPing            int     `cbor:"wifi_ping"`
	CellularOperator    string  `cbor:"cell_op"`
	CellularNetworkType int     `cbor:"cell_net"`
}

// NewDeviceSnapshot returns the state of a device that has reported
// nothing yet: full battery, no position, placeholder addresses.
func NewDeviceSnapshot(uuid, os string) DeviceSnapshot {
	return DeviceSnapshot{
		UUID:             uuid,
		OS:               os,
		IPv4Address:      UnknownIPv4,
		IPv6Address:      UnknownIPv6,
		BluetoothMAC:     UnknownMAC,
		WiFiMAC:          UnknownMAC,
		BatteryPercent:   100,
		CellularOperator: UnknownOperator,
	}
}

// Entity is one discovered device.
type Entity struct {
	MAC         string  `cbor:"mac"`
	Type        MacType `cbor:"type"`
	NetworkName string  `cbor:"name"`
}

// Observation is the set of entities found by one discovery scan.
type Observation struct {
	Entities []Entity `cbor:"entities"`
}

// NewObservation builds an observation from a scan result. The MAC list
// is treated as a set: addresses are upper-cased, duplicates collapse,
// and entities are ordered by MAC so the same scan always produces the
// same payload.
func NewObservation(source MacType, networkName string, macs []string) Observation {
	unique := make([]string, len(macs))
	for i, mac := range macs {
		unique[i] = strings.ToUpper(strings.TrimSpace(mac))
	}
	slices.Sort(unique)
	unique = slices.Compact(unique)

	entities := make([]Entity, 0, len(unique))
	for _, mac := range unique {
		entities = append(entities, Entity{MAC: mac, Type: source, NetworkName: networkName})
	}
	return Observation{Entities: entities}
}

// Record is one observation plus the device snapshot it was captured
// with. ID is zero until the local store assigns one.
type Record struct {
	ID          int64
	Device      DeviceSnapshot
	Observation Observation
	CapturedAt  time.Time
	State       UploadState
}
