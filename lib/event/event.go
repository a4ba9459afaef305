// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

// Package event defines the sensor events a host feeds into the
// delivery coordinator.
//
// Producers send events on a channel they own and close it to
// unregister. Every event except Discovery only updates the
// coordinator's view of the device; a Discovery captures a record.
package event

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/netip"

	"github.com/compscidr/awm-lib/lib/record"
)

// Kind is the "type" field of an encoded event.
type Kind string

const (
	KindPosition    Kind = "position"
	KindBattery     Kind = "battery"
	KindAddresses   Kind = "addresses"
	KindLocalMAC    Kind = "local_mac"
	KindLinkQuality Kind = "link_quality"
	KindCellular    Kind = "cellular"
	KindDiscovery   Kind = "discovery"
)

// Event is implemented by every sensor event.
type Event interface {
	Kind() Kind
	Validate() error
}

// Position is a location fix in decimal degrees.
type Position struct {
	Longitude float64
	Latitude  float64
}

func (Position) Kind() Kind { return KindPosition }

// IsOrigin reports whether both coordinates are zero, which location
// providers emit when they have no fix.
func (p Position) IsOrigin() bool { return p.Longitude == 0 && p.Latitude == 0 }

func (p Position) Validate() error {
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("event: longitude %v out of range", p.Longitude)
	}
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("event: latitude %v out of range", p.Latitude)
	}
	return nil
}

// Battery is the charge level in percent.
type Battery struct {
	Percent float32
}

func (Battery) Kind() Kind { return KindBattery }

func (b Battery) Validate() error {
	if math.IsNaN(float64(b.Percent)) || b.Percent < 0 || b.Percent > 100 {
		return fmt.Errorf("event: battery %v outside 0..100", b.Percent)
	}
	return nil
}

// Addresses reports the device's current IP addresses. An empty field
// leaves that address unchanged.
type Addresses struct {
	IPv4 string
	IPv6 string
}

func (Addresses) Kind() Kind { return KindAddresses }

func (a Addresses) Validate() error {
	if a.IPv4 == "" && a.IPv6 == "" {
		return errors.New("event: addresses carries no address")
	}
	if a.IPv4 != "" {
		address, err := netip.ParseAddr(a.IPv4)
		if err != nil || !address.Is4() {
			return fmt.Errorf("event: %q is not an IPv4 address", a.IPv4)
		}
	}
	if a.IPv6 != "" {
		address, err := netip.ParseAddr(a.IPv6)
		if err != nil || !address.Is6() || address.Is4In6() {
			return fmt.Errorf("event: %q is not an IPv6 address", a.IPv6)
		}
	}
	return nil
}

// LocalMAC reports one of the device's own radio addresses.
type LocalMAC struct {
	Type record.MacType
	MAC  string
}

func (LocalMAC) Kind() Kind { return KindLocalMAC }

func (m LocalMAC) Validate() error {
	if m.Type != record.MacBluetooth && m.Type != record.MacWiFi {
		return fmt.Errorf("event: local mac type %v", m.Type)
	}
	return validateMAC(m.MAC)
}

// Link names a network link for quality reports.
type Link string

const (
	LinkWiFi     Link = "wifi"
	LinkCellular Link = "cellular"
)

// LinkQuality is a throughput and latency measurement for one link.
type LinkQuality struct {
	Link       Link
	Throughput float32
	PingMillis int
}

func (LinkQuality) Kind() Kind { return KindLinkQuality }

func (q LinkQuality) Validate() error {
	if q.Link != LinkWiFi && q.Link != LinkCellular {
		return fmt.Errorf("event: unknown link %q", q.Link)
	}
	if math.IsNaN(float64(q.Throughput)) || q.Throughput < 0 {
		return fmt.Errorf("event: throughput %v is negative", q.Throughput)
	}
	if q.PingMillis < 0 {
		return fmt.Errorf("event: ping %d is negative", q.PingMillis)
	}
	return nil
}

// Cellular describes the serving cellular network.
type Cellular struct {
	Operator    string
	NetworkType int
}

func (Cellular) Kind() Kind { return KindCellular }

func (c Cellular) Validate() error {
	if c.Operator == "" {
		return errors.New("event: cellular operator is empty")
	}
	if c.NetworkType < 0 {
		return fmt.Errorf("event: cellular network type %d is negative", c.NetworkType)
	}
	return nil
}

// Discovery is one scan result: the MACs seen on a radio, under the
// network name the scan reported.
type Discovery struct {
	Source      record.MacType
	NetworkName string
	MACs        []string
}

func (Discovery) Kind() Kind { return KindDiscovery }

func (d Discovery) Validate() error {
	if len(d.MACs) == 0 {
		return errors.New("event: discovery has no devices")
	}
	if d.Source != record.MacBluetooth && d.Source != record.MacWiFi && d.Source != record.MacUnknown {
		return fmt.Errorf("event: discovery source %v", d.Source)
	}
	for _, mac := range d.MACs {
		if err := validateMAC(mac); err != nil {
			return err
		}
	}
	return nil
}

func validateMAC(mac string) error {
	if _, err := net.ParseMAC(mac); err != nil {
		return fmt.Errorf("event: malformed mac %q", mac)
	}
	return nil
}
