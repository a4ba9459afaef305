// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"encoding/json"
	"fmt"

	"github.com/compscidr/awm-lib/lib/record"
)

// wireEvent is the union of every encoded event's fields.
type wireEvent struct {
	Type Kind `json:"type"`

	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`

	Percent *float32 `json:"percent"`

	IPv4 string `json:"ipv4"`
	IPv6 string `json:"ipv6"`

	MacType string `json:"mac_type"`
	MAC     string `json:"mac"`

	Link       Link    `json:"link"`
	Throughput float32 `json:"throughput"`
	PingMillis int     `json:"ping_ms"`

	Operator    string `json:"operator"`
	NetworkType int    `json:"network_type"`

	NetworkName string   `json:"network_name"`
	MACs        []string `json:"macs"`
}

// Decode parses one JSON-lines event, for example
//
//	{"type":"position","longitude":-123.12,"latitude":49.28}
//	{"type":"discovery","mac_type":"wifi","network_name":"cafe","macs":["AA:BB:CC:DD:EE:FF"]}
//
// Decode checks shape only; call Validate for value ranges.
func Decode(line []byte) (Event, error) {
	var wire wireEvent
	if err := json.Unmarshal(line, &wire); err != nil {
		return nil, fmt.Errorf("event: decode: %w", err)
	}

	switch wire.Type {
	case KindPosition:
		if wire.Longitude == nil || wire.Latitude == nil {
			return nil, fmt.Errorf("event: position needs longitude and latitude")
		}
		return Position{Longitude: *wire.Longitude, Latitude: *wire.Latitude}, nil
	case KindBattery:
		if wire.Percent == nil {
			return nil, fmt.Errorf("event: battery needs percent")
		}
		return Battery{Percent: *wire.Percent}, nil
	case KindAddresses:
		return Addresses{IPv4: wire.IPv4, IPv6: wire.IPv6}, nil
	case KindLocalMAC:
		macType, err := record.ParseMacType(wire.MacType)
		if err != nil {
			return nil, fmt.Errorf("event: local_mac: %w", err)
		}
		return LocalMAC{Type: macType, MAC: wire.MAC}, nil
	case KindLinkQuality:
		return LinkQuality{Link: wire.Link, Throughput: wire.Throughput, PingMillis: wire.PingMillis}, nil
	case KindCellular:
		return Cellular{Operator: wire.Operator, NetworkType: wire.NetworkType}, nil
	case KindDiscovery:
		source, err := record.ParseMacType(wire.MacType)
		if err != nil {
			return nil, fmt.Errorf("event: discovery: %w", err)
		}
		return Discovery{Source: source, NetworkName: wire.NetworkName, MACs: wire.MACs}, nil
	case "":
		return nil, fmt.Errorf("event: missing type")
	default:
		return nil, fmt.Errorf("event: unknown type %q", wire.Type)
	}
}
