package session

import (
	"errors"
	"fmt"
	"time"

	"caplive/internal/logcat"
)

// Mode is how the device reaches the dev server.
type Mode string

const (
	// ModeUSB uses adb port forwarding over the cable.
	ModeUSB Mode = "usb"
	// ModeWifi points the app at the workstation's LAN address.
	ModeWifi Mode = "wifi"
)

// ErrSetup marks fatal setup errors: a missing required tool or an invalid
// flag combination. These abort before anything is spawned and map to exit
// code 2 at the CLI surface.
var ErrSetup = errors.New("setup error")

// Config is the immutable session configuration, resolved once at startup.
type Config struct {
	Mode          Mode
	Host          string
	PreferredPort int
	PortTries     int

	Target string
	AppID  string

	Logcat     bool
	LogcatMode logcat.Mode
	LogcatTags []string

	DevTools         bool
	DevToolsPort     int
	DevToolsAttempts int

	ProjectRoot string
	HistoryPath string

	// Command overrides. Empty means the standard npm/npx invocations.
	DevCommand    []string
	RunnerCommand []string

	DevReadyTimeout time.Duration
	PidWaitTimeout  time.Duration
}

// Validate checks the flag combination before any process is spawned.
func (c *Config) Validate() error {
	if c.Mode != ModeUSB && c.Mode != ModeWifi {
		return fmt.Errorf("%w: unknown mode %q", ErrSetup, c.Mode)
	}
	if c.Mode == ModeWifi && c.Host == "" {
		return fmt.Errorf("%w: --host is required for wifi mode", ErrSetup)
	}
	if c.Logcat && !c.LogcatMode.Valid() {
		return fmt.Errorf("%w: unknown logcat mode %q", ErrSetup, c.LogcatMode)
	}
	if c.PreferredPort <= 0 || c.PreferredPort > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrSetup, c.PreferredPort)
	}
	return nil
}
