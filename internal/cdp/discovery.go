package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type targetInfo struct {
	Type                 string `json:"type"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

// fetchPageURL asks the forwarded introspection endpoint for its target
// list and returns the debug URL of the first page target.
func fetchPageURL(ctx context.Context, base string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/json", nil)
	if err != nil {
		return "", false
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	var targets []targetInfo
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return "", false
	}
	for _, t := range targets {
		if t.Type == "page" && t.WebSocketDebuggerURL != "" {
			return t.WebSocketDebuggerURL, true
		}
	}
	return "", false
}

// DiscoverPageURL polls the introspection endpoint at one-second intervals
// for up to attempts tries. An exhausted budget returns ("", false); the
// WebView may simply not be up, which is not an error.
func DiscoverPageURL(ctx context.Context, port, attempts int) (string, bool) {
	base := fmt.Sprintf("http://localhost:%d", port)
	for i := 0; i < attempts; i++ {
		if url, ok := fetchPageURL(ctx, base); ok {
			return url, true
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(time.Second):
		}
	}
	return "", false
}
