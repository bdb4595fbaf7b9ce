package cdp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caplive/internal/adb"
	"caplive/internal/ui"
)

func init() {
	ui.SetColorEnabled(false)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBridge_Forward(t *testing.T) {
	mock := &adb.MockClient{
		ForwardFunc: func(ctx context.Context, serial, local, remote string) error {
			assert.Equal(t, "serial1", serial)
			assert.Equal(t, "tcp:9222", local)
			assert.Equal(t, "localabstract:chrome_devtools_remote", remote)
			return nil
		},
	}
	b := &Bridge{Adb: mock, Logger: discardLogger(), Serial: "serial1"}
	require.NoError(t, b.Forward(context.Background()))
	assert.Equal(t, 1, mock.ForwardCalls)
}

func TestBridge_Run_RepublishesEvents(t *testing.T) {
	var wsURL string
	var mu sync.Mutex
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	mux := http.NewServeMux()
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		url := wsURL
		mu.Unlock()
		fmt.Fprintf(w, `[{"type":"page","webSocketDebuggerUrl":%q}]`, url)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		// The bridge must enable the console and log domains first.
		_, first, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":1,"method":"Runtime.enable"}`, string(first))
		_, second, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":2,"method":"Log.enable"}`, string(second))

		events := []string{
			`{"id":1,"result":{}}`,
			`{"method":"Runtime.consoleAPICalled","params":{"type":"log","args":[{"type":"string","value":"hello"},{"type":"number","value":1}]}}`,
			`{"method":"Log.entryAdded","params":{"entry":{"level":"error","text":"boom"}}}`,
		}
		for _, ev := range events {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(ev)))
		}
		// Give the bridge time to drain before the close tears it down.
		time.Sleep(200 * time.Millisecond)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	mu.Lock()
	wsURL = "ws://" + srv.Listener.Addr().String() + "/ws"
	mu.Unlock()

	out := &syncBuffer{}
	b := &Bridge{
		Adb:      &adb.MockClient{},
		Logger:   discardLogger(),
		Out:      out,
		Port:     port,
		Attempts: 1,
	}

	done := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go func() {
		b.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(15 * time.Second):
		t.Fatal("bridge did not terminate")
	}

	got := out.String()
	assert.Contains(t, got, "[cdp] Connected to WebView DevTools")
	assert.Contains(t, got, "[cdp] [console.log] hello 1")
	assert.Contains(t, got, "[cdp] [log.error] boom")
	assert.True(t, strings.Contains(got, "no Origin") || strings.Contains(got, "Origin "))
}

// startBridgeServer serves /json discovery and hands the upgraded websocket
// to handler once the enable handshake has been consumed.
func startBridgeServer(t *testing.T, handler func(conn *websocket.Conn)) int {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	var wsURL string
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		url := wsURL
		mu.Unlock()
		fmt.Fprintf(w, `[{"type":"page","webSocketDebuggerUrl":%q}]`, url)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_, _, err = conn.ReadMessage()
		require.NoError(t, err)
		_, _, err = conn.ReadMessage()
		require.NoError(t, err)
		handler(conn)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	mu.Lock()
	wsURL = "ws://" + srv.Listener.Addr().String() + "/ws"
	mu.Unlock()
	return srv.Listener.Addr().(*net.TCPAddr).Port
}

func TestBridge_Run_SurvivesQuietPage(t *testing.T) {
	if testing.Short() {
		t.Skip("long quiet-page test")
	}

	// Nothing arrives for several seconds after the handshake; the bridge
	// must keep waiting and pick up the late event when it finally comes.
	port := startBridgeServer(t, func(conn *websocket.Conn) {
		time.Sleep(6 * time.Second)
		err := conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"method":"Log.entryAdded","params":{"entry":{"level":"info","text":"late arrival"}}}`))
		require.NoError(t, err)
		time.Sleep(200 * time.Millisecond)
	})

	out := &syncBuffer{}
	b := &Bridge{
		Adb:      &adb.MockClient{},
		Logger:   discardLogger(),
		Out:      out,
		Port:     port,
		Attempts: 1,
	}

	done := make(chan struct{})
	go func() {
		b.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(15 * time.Second):
		t.Fatal("bridge did not terminate")
	}
	assert.Contains(t, out.String(), "[cdp] [log.info] late arrival")
}

func TestBridge_Run_CancelUnblocksSilentStream(t *testing.T) {
	hold := make(chan struct{})
	port := startBridgeServer(t, func(conn *websocket.Conn) {
		<-hold
	})
	defer close(hold)

	b := &Bridge{
		Adb:      &adb.MockClient{},
		Logger:   discardLogger(),
		Out:      &syncBuffer{},
		Port:     port,
		Attempts: 1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("cancellation did not unblock the bridge")
	}
}

func TestBridge_Run_DiscoveryFailureWarnsAndReturns(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	out := &syncBuffer{}
	b := &Bridge{
		Adb:      &adb.MockClient{},
		Logger:   discardLogger(),
		Out:      out,
		Port:     port,
		Attempts: 1,
	}
	b.Run(context.Background())
	assert.Contains(t, out.String(), "Could not connect to WebView DevTools")
}
