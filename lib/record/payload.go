// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TimestampLayout is the reporting_device timestamp format, always UTC.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Payload is the JSON document POSTed to the collection endpoint.
type Payload struct {
	Measure Measure `json:"awm_measure"`
}

// Measure is the body of an awm_measure document.
type Measure struct {
	ReportingDevice ReportingDevice `json:"reporting_device"`
	Devices         []DeviceEntry   `json:"devices"`
}

// ReportingDevice carries every field as a JSON string; the collection
// server parses them itself.
type ReportingDevice struct {
	UUID                string `json:"uuid"`
	IPv4Address         string `json:"ipv4_address"`
	IPv6Address         string `json:"ipv6_address"`
	Timestamp           string `json:"timestamp"`
	Longitude           string `json:"longitude"`
	Latitude            string `json:"latitude"`
	BluetoothMAC        string `json:"bt_mac_address"`
	WiFiMAC             string `json:"wifi_mac_address"`
	OS                  string `json:"OS"`
	BatteryLife         string `json:"battery_life"`
	HasCellularInternet string `json:"has_cellular_internet"`
	HasWiFiInternet     string `json:"has_wifi_internet"`
	CellularThroughput  string `json:"cellular_throughput"`
	WiFiThroughput      string `json:"wifi_throughput"`
	CellularPing        string `json:"cellular_ping"`
	WiFiPing            string `json:"wifi_ping"`
	CellularOperator    string `json:"cellular_operator"`
	CellularNetworkType string `json:"cellular_network_type"`
}

// DeviceEntry is one discovered device in the devices array.
type DeviceEntry struct {
	MACAddress  string  `json:"mac_address"`
	MACType     MacType `json:"mac_type"`
	NetworkName string  `json:"network_name"`
}

// Payload converts the record to its wire form.
func (r Record) Payload() Payload {
	device := r.Device
	devices := make([]DeviceEntry, 0, len(r.Observation.Entities))
	for _, entity := range r.Observation.Entities {
		devices = append(devices, DeviceEntry{
			MACAddress:  entity.MAC,
			MACType:     entity.Type,
			NetworkName: entity.NetworkName,
		})
	}

	return Payload{Measure: Measure{
		ReportingDevice: ReportingDevice{
			UUID:                device.UUID,
			IPv4Address:         device.IPv4Address,
			IPv6Address:         device.IPv6Address,
			Timestamp:           r.CapturedAt.UTC().Format(TimestampLayout),
			Longitude:           fmt.Sprintf("%f", device.Longitude),
			Latitude:            fmt.Sprintf("%f", device.Latitude),
			BluetoothMAC:        device.BluetoothMAC,
			WiFiMAC:             device.WiFiMAC,
			OS:                  device.OS,
			BatteryLife:         formatFloat32(device.BatteryPercent),
			HasCellularInternet: strconv.FormatBool(device.HasCellularInternet),
			HasWiFiInternet:     strconv.FormatBool(device.HasWiFiInternet),
			CellularThroughput:  formatFloat32(device.CellularThroughput),
			WiFiThroughput:      formatFloat32(device.WiFiThroughput),
			CellularPing:        strconv.Itoa(device.CellularPing),
			WiFiPing:            strconv.Itoa(device.WiFiPing),
			CellularOperator:    device.CellularOperator,
			CellularNetworkType: strconv.Itoa(device.CellularNetworkType),
		},
		Devices: devices,
	}}
}

// MarshalPayload returns the JSON request body for r.
func MarshalPayload(r Record) ([]byte, error) {
	data, err := json.Marshal(r.Payload())
	if err != nil {
		return nil, fmt.Errorf("record: marshal payload: %w", err)
	}
	return data, nil
}

// ParsePayload decodes an awm_measure document.
func ParsePayload(data []byte) (Payload, error) {
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Payload{}, fmt.Errorf("record: parse payload: %w", err)
	}
	return payload, nil
}

// Position parses the reported coordinates.
func (d ReportingDevice) Position() (longitude, latitude float64, err error) {
	longitude, err = strconv.ParseFloat(d.Longitude, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("record: longitude %q: %w", d.Longitude, err)
	}
	latitude, err = strconv.ParseFloat(d.Latitude, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("record: latitude %q: %w", d.Latitude, err)
	}
	return longitude, latitude, nil
}

// CapturedAt parses the reported timestamp.
func (d ReportingDevice) CapturedAt() (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, d.Timestamp, time.UTC)
}

func formatFloat32(value float32) string {
	return strconv.FormatFloat(float64(value), 'f', -1, 32)
}
