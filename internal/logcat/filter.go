package logcat

import (
	"strconv"
	"strings"
)

// Mode selects which logcat lines reach the console.
type Mode string

const (
	// ModeConsole shows only web-runtime console/log lines.
	ModeConsole Mode = "console"
	// ModeApp shows only lines from the app's process once its pid is known.
	ModeApp Mode = "app"
	// ModeAll shows everything.
	ModeAll Mode = "all"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeConsole, ModeApp, ModeAll:
		return true
	}
	return false
}

// consoleTags identify web-runtime console output in logcat. The set is
// deliberately broad: different WebView builds tag console lines
// differently.
var consoleTags = []string{
	"CAPACITOR",
	"CHROMIUM",
	"CONSOLE",
	"WEBVIEW",
	"SYSTEMWEBCHROMECLIENT",
}

// IsConsoleLine reports whether a logcat line looks like web console output.
func IsConsoleLine(line string) bool {
	upper := strings.ToUpper(line)
	for _, tag := range consoleTags {
		if strings.Contains(upper, tag) {
			return true
		}
	}
	return false
}

// ParseThreadtimePid extracts the PID field from a `-v threadtime` line
// (third whitespace-separated field). Returns false for lines too short or
// malformed to carry one.
func ParseThreadtimePid(line string) (int, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return 0, false
	}
	pid, err := strconv.Atoi(fields[2])
	if err != nil {
		return 0, false
	}
	return pid, true
}

// Predicate returns the per-line filter for a mode, or nil when every line
// passes.
//
// Console mode does NOT filter by pid: WebView renderers often run
// sandboxed under a different process id than the main app, and pid
// filtering would hide exactly the console lines the developer wants.
// App mode fails open until the pid is discovered so the stream never
// stalls waiting on discovery.
func Predicate(mode Mode, pids *PidState) func(string) bool {
	switch mode {
	case ModeConsole:
		return IsConsoleLine
	case ModeApp:
		return func(line string) bool {
			pid, ok := pids.Get()
			if !ok {
				return true
			}
			linePid, ok := ParseThreadtimePid(line)
			return ok && linePid == pid
		}
	default:
		return nil
	}
}
