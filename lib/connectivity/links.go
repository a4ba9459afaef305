// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package connectivity

import (
	"fmt"
	"net"
	"strings"
)

// Links reports which link types have an interface up.
type Links struct {
	WiFi     bool
	Cellular bool
}

// LinkFunc reads the current link state. It must be cheap: the Prober
// calls it on every Status.
type LinkFunc func() (Links, error)

type linkKind int

const (
	linkOther linkKind = iota
	linkWiFi
	linkCellular
)

// classifyInterface maps a Linux interface name to a link kind:
// wlan0/wlp2s0 are WiFi, wwan0/rmnet_data0 are cellular modems.
func classifyInterface(name string) linkKind {
	switch {
	case strings.HasPrefix(name, "wl"):
		return linkWiFi
	case strings.HasPrefix(name, "ww"), strings.HasPrefix(name, "rmnet"):
		return linkCellular
	default:
		return linkOther
	}
}

// InterfaceLinks is a LinkFunc for Linux hosts. It inspects up,
// non-loopback interfaces that carry at least one address.
func InterfaceLinks() (Links, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return Links{}, fmt.Errorf("connectivity: listing interfaces: %w", err)
	}
	var links Links
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		kind := classifyInterface(iface.Name)
		if kind == linkOther {
			continue
		}
		addresses, err := iface.Addrs()
		if err != nil || len(addresses) == 0 {
			continue
		}
		switch kind {
		case linkWiFi:
			links.WiFi = true
		case linkCellular:
			links.Cellular = true
		}
	}
	return links, nil
}
