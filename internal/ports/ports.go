package ports

import (
	"context"
	"fmt"
	"net"
	"time"
)

// FindFree returns the first port in [start, start+tries) that can be bound
// on host. If every candidate is busy the start port is returned unchanged;
// the caller proceeds and a bind failure surfaces from the dev server itself.
func FindFree(host string, start, tries int) int {
	if tries < 1 {
		tries = 1
	}
	for port := start; port < start+tries; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
		if err != nil {
			continue
		}
		ln.Close()
		return port
	}
	return start
}

// WaitReady polls for a successful TCP connect to host:port until it
// succeeds or the timeout elapses. Returns false on timeout or context
// cancellation; never an error, readiness is advisory.
func WaitReady(ctx context.Context, host string, port int, timeout time.Duration) bool {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			conn.Close()
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(500 * time.Millisecond):
		}
	}
	return false
}
