// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

// Package connectivity answers one question for the delivery
// coordinator: may an upload be attempted right now?
//
// Uploads are allowed only over WiFi with confirmed internet
// reachability. Cellular links are reported (they end up in every
// record's has_cellular_internet flag) but never used for uploads.
package connectivity

import (
	"context"
	"fmt"
	"sync"
)

// Status is a connectivity snapshot.
type Status struct {
	WiFiConnected     bool
	CellularConnected bool
	InternetReachable bool
}

// CanUpload reports whether uploads may proceed.
func (s Status) CanUpload() bool {
	return s.WiFiConnected && s.InternetReachable
}

// HasWiFiInternet is the has_wifi_internet record flag.
func (s Status) HasWiFiInternet() bool { return s.WiFiConnected && s.InternetReachable }

// HasCellularInternet is the has_cellular_internet record flag.
func (s Status) HasCellularInternet() bool { return s.CellularConnected && s.InternetReachable }

func (s Status) String() string {
	return fmt.Sprintf("wifi=%t cellular=%t internet=%t", s.WiFiConnected, s.CellularConnected, s.InternetReachable)
}

// Oracle reports the current connectivity. Implementations must be
// safe for concurrent use and must not block longer than ctx allows.
type Oracle interface {
	Status(ctx context.Context) Status
}

// Static is an Oracle whose answer is set by the host. Hosts that track
// connectivity through platform callbacks feed them in with Set.
type Static struct {
	mu     sync.Mutex
	status Status
}

// NewStatic returns a Static oracle reporting status.
func NewStatic(status Status) *Static {
	return &Static{status: status}
}

// Online is shorthand for a WiFi link with internet.
func Online() Status {
	return Status{WiFiConnected: true, InternetReachable: true}
}

// Status returns the last value given to Set.
func (s *Static) Status(context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Set replaces the reported status.
func (s *Static) Set(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}
