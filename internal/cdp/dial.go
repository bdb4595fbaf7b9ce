package cdp

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Strict WebView builds reject WebSocket upgrades based on the Origin
// header. Connection attempts run in a fixed fallback order: no Origin at
// all, then the synthetic inspector origin, then the loopback debug-port
// origin. The first success wins; after the third failure the last error
// is surfaced.

type originAttempt struct {
	name   string
	origin string
}

var originFallback = []originAttempt{
	{name: "no Origin", origin: ""},
	{name: "Origin chrome://inspect", origin: "chrome://inspect"},
	{name: "Origin http://localhost:9222", origin: "http://localhost:9222"},
}

type dialFunc func(url string, header http.Header) (*websocket.Conn, error)

func gorillaDial(url string, header http.Header) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(url, header)
	return conn, err
}

// Dial connects to the runtime's debug socket, negotiating the Origin
// header. Returns the connection and the name of the attempt that
// succeeded.
func Dial(wsURL string) (*websocket.Conn, string, error) {
	return dialWith(gorillaDial, wsURL)
}

func dialWith(dial dialFunc, wsURL string) (*websocket.Conn, string, error) {
	var lastErr error
	for _, attempt := range originFallback {
		var header http.Header
		if attempt.origin != "" {
			header = http.Header{"Origin": []string{attempt.origin}}
		}
		conn, err := dial(wsURL, header)
		if err == nil {
			return conn, attempt.name, nil
		}
		lastErr = err
	}
	return nil, "", fmt.Errorf("debug socket connect failed: %w", lastErr)
}
