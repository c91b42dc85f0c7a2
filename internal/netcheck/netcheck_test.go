// SPDX-License-Identifier: MPL-2.0

package netcheck

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestProbe_ReachableListener(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer func() { _ = ln.Close() }()

	if !Probe(context.Background(), ln.Addr().String(), time.Second) {
		t.Error("Probe = false for a live local listener, want true")
	}
}

func TestProbe_Unreachable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target string
	}{
		{name: "empty target", target: ""},
		{name: "closed port", target: closedPort(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if Probe(context.Background(), tt.target, 500*time.Millisecond) {
				t.Errorf("Probe(%q) = true, want false", tt.target)
			}
		})
	}
}

// closedPort reserves a port and closes it so nothing is listening there.
func closedPort(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	return addr
}
