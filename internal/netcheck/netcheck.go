// SPDX-License-Identifier: MPL-2.0

// Package netcheck provides the single synchronous reachability probe
// used at startup to decide between local-only and remote-fallback mode.
package netcheck

import (
	"context"
	"net"
	"time"
)

// defaultPort is dialed when the target host carries no explicit port.
const defaultPort = "443"

// Probe reports whether target is reachable within timeout. The target
// may be "host" or "host:port". The probe is attempted exactly once; any
// dial failure, including a timeout, reports false. It is never retried
// and never consulted again after startup.
func Probe(ctx context.Context, target string, timeout time.Duration) bool {
	if target == "" {
		return false
	}

	if _, _, err := net.SplitHostPort(target); err != nil {
		target = net.JoinHostPort(target, defaultPort)
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return false
	}
	_ = conn.Close()

	return true
}
