package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "caplive_sessions_started_total",
			Help: "Total number of live-reload sessions started",
		},
	)

	processExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caplive_process_exits_total",
			Help: "Managed child process exits observed mid-session",
		},
		[]string{"label"},
	)

	logLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caplive_log_lines_total",
			Help: "Lines streamed to the interleaved console output",
		},
		[]string{"source"},
	)

	debugEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caplive_debug_events_total",
			Help: "Remote-debug protocol events republished to the console",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(sessionsStarted, processExits, logLines, debugEvents)
}

// TrackSessionStart records the start of a session.
func TrackSessionStart() {
	sessionsStarted.Inc()
}

// TrackProcessExit records an unexpected exit of a managed child process.
func TrackProcessExit(label string) {
	processExits.WithLabelValues(label).Inc()
}

// TrackLogLine records one line written to the interleaved console output.
func TrackLogLine(source string) {
	logLines.WithLabelValues(source).Inc()
}

// TrackDebugEvent records a console or log event received over the debug bridge.
func TrackDebugEvent(kind string) {
	debugEvents.WithLabelValues(kind).Inc()
}

// StartMetricsServer starts a HTTP server exposing Prometheus metrics.
func StartMetricsServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
