package cdp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gorilla/websocket"

	"caplive/internal/adb"
	"caplive/internal/telemetry"
	"caplive/internal/ui"
)

const (
	// DefaultPort is the conventional local introspection port.
	DefaultPort = 9222
	// deviceSocket is the WebView's abstract debug socket on the device.
	deviceSocket = "localabstract:chrome_devtools_remote"
)

// Bridge connects to the on-device web runtime's debugging endpoint and
// republishes its console and log events on the interleaved console. It is
// strictly best-effort: every failure degrades to a warning and ends only
// the bridge, never the session.
type Bridge struct {
	Adb      adb.IClient
	Logger   *slog.Logger
	Out      io.Writer
	Serial   string
	Port     int
	Attempts int
}

// Forward asks the device bridge to forward the local introspection port to
// the runtime's debug socket.
func (b *Bridge) Forward(ctx context.Context) error {
	local := fmt.Sprintf("tcp:%d", b.port())
	return b.Adb.Forward(ctx, b.Serial, local, deviceSocket)
}

// Run performs discovery, connection negotiation, and the receive loop.
// It is meant to run on its own goroutine; it returns when the context is
// cancelled, the stream errors, or setup fails.
func (b *Bridge) Run(ctx context.Context) {
	out := b.Out
	if out == nil {
		out = os.Stdout
	}

	wsURL, ok := DiscoverPageURL(ctx, b.port(), b.attempts())
	if !ok {
		fmt.Fprintln(out, ui.Prefix("cdp")+"Warning: Could not connect to WebView DevTools. Console logs unavailable.")
		return
	}

	conn, mode, err := Dial(wsURL)
	if err != nil {
		b.Logger.Warn("debug bridge connect failed", "error", err)
		return
	}
	defer conn.Close()
	fmt.Fprintln(out, ui.Prefix("cdp")+"Connected to WebView DevTools ("+mode+")")

	// ReadMessage has no context parameter, and any read error (a deadline
	// included) poisons the connection permanently. A quiet page therefore
	// blocks in the read with no deadline; cancellation unblocks it by
	// closing the connection from the watcher below.
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watcherDone:
		}
	}()

	for _, req := range [][]byte{enableRuntime, enableLog} {
		if err := conn.WriteMessage(websocket.TextMessage, req); err != nil {
			b.Logger.Warn("debug bridge enable failed", "error", err)
			return
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				b.Logger.Warn("debug bridge stream ended", "error", err)
			}
			return
		}

		event, err := DecodeEvent(data)
		if err != nil {
			b.Logger.Debug("malformed debug message", "error", err)
			continue
		}
		if event == nil {
			continue
		}
		fmt.Fprintln(out, ui.Prefix("cdp")+event.ConsoleLine())
		switch event.(type) {
		case ConsoleEvent:
			telemetry.TrackDebugEvent("console")
		case LogEvent:
			telemetry.TrackDebugEvent("log")
		}
	}
}

func (b *Bridge) port() int {
	if b.Port == 0 {
		return DefaultPort
	}
	return b.Port
}

func (b *Bridge) attempts() int {
	if b.Attempts == 0 {
		return 30
	}
	return b.Attempts
}
