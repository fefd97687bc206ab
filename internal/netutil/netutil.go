// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package netutil holds small address-handling helpers shared by the
// reference transports and the OAuth loopback-redirect client flow.
package netutil

import (
	"net"
	"net/netip"
	"strings"
)

// IsLoopback reports whether addr (host, or host:port) names the loopback
// interface. Used by mouldauth's authorization-code flow to decide whether
// a client's registered redirect URI qualifies for the loopback exception
// most OAuth servers grant native apps.
func IsLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = strings.Trim(addr, "[]")
	}
	if host == "localhost" {
		return true
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return ip.IsLoopback()
}

// Who derives a stable, log-friendly display identity for a connection from
// its remote address, stripping the port. It falls back to the raw addr
// when it isn't a host:port pair (e.g. a dial URL or "stdio").
func Who(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil || strings.Contains(addr, "/") {
		return addr
	}
	return host
}
