package adb

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const commandTimeout = 10 * time.Second

// Client shells out to the adb binary. All one-shot invocations carry a
// bounded timeout; only the logcat stream (spawned by the supervisor, not
// here) runs unbounded.
type Client struct {
	bin    string
	logger *slog.Logger

	// runCommand allows tests to intercept adb invocations.
	runCommand func(ctx context.Context, args ...string) (string, error)
}

// NewClient resolves the adb binary and returns a bridge client.
func NewClient(logger *slog.Logger) *Client {
	c := &Client{
		bin:    ResolveCommand("adb"),
		logger: logger,
	}
	c.runCommand = c.run
	return c
}

// ResolveCommand maps a tool name to its Windows launcher when one exists.
// npm and npx install as .cmd shims there; adb does not, but resolving it
// the same way keeps the lookup uniform.
func ResolveCommand(name string) string {
	if runtime.GOOS == "windows" {
		cmd := name + ".cmd"
		if _, err := exec.LookPath(cmd); err == nil {
			return cmd
		}
	}
	return name
}

// Available reports whether the adb binary is on PATH.
func (c *Client) Available() bool {
	_, err := exec.LookPath(c.bin)
	return err == nil
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	out, err := exec.CommandContext(cmdCtx, c.bin, args...).CombinedOutput()
	if cmdCtx.Err() == context.DeadlineExceeded {
		return string(out), context.DeadlineExceeded
	}
	return string(out), err
}

// Devices enumerates attached devices in the "device" (ready) state.
// A timeout or missing binary yields an empty list and a warning, never a
// fatal error; the session degrades to running without a target.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	out, err := c.runCommand(ctx, "devices")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("adb devices timed out; unlock the phone and accept the USB debugging prompt, or pass --target")
		}
		return nil, nil
	}
	return parseDevices(out), nil
}

func parseDevices(out string) []Device {
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		serial, state := fields[0], fields[1]
		if state != "device" {
			continue
		}
		devices = append(devices, Device{
			Serial:     serial,
			IsEmulator: strings.HasPrefix(serial, "emulator-"),
		})
	}
	return devices
}

// AppPid looks up the process id owning appID via `adb shell pidof -s`.
func (c *Client) AppPid(ctx context.Context, serial, appID string) (int, bool) {
	args := serialArgs(serial)
	args = append(args, "shell", "pidof", "-s", appID)
	out, err := c.runCommand(ctx, args...)
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) == 0 {
		return 0, false
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return pid, true
}

// WaitForAppPid polls AppPid at one-second intervals until the app process
// appears or the timeout elapses.
func (c *Client) WaitForAppPid(ctx context.Context, serial, appID string, timeout time.Duration) (int, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if pid, ok := c.AppPid(ctx, serial, appID); ok {
			return pid, true
		}
		select {
		case <-ctx.Done():
			return 0, false
		case <-time.After(time.Second):
		}
	}
	return 0, false
}

// ClearLogBuffer drops the device's buffered logcat entries so a new
// session does not replay stale lines.
func (c *Client) ClearLogBuffer(ctx context.Context, serial string) error {
	args := serialArgs(serial)
	args = append(args, "logcat", "-c")
	_, err := c.runCommand(ctx, args...)
	return err
}

// Forward sets up adb port forwarding (local -> on-device socket).
func (c *Client) Forward(ctx context.Context, serial, local, remote string) error {
	args := serialArgs(serial)
	args = append(args, "forward", local, remote)
	_, err := c.runCommand(ctx, args...)
	return err
}

// LogcatCommand builds the argv for the continuous log stream. Tags are
// applied with `-s` only when the caller is not asking for everything.
func (c *Client) LogcatCommand(serial string, tags []string, allLogs bool) []string {
	args := append([]string{c.bin}, serialArgs(serial)...)
	args = append(args, "logcat", "-v", "threadtime")
	if !allLogs && len(tags) > 0 {
		args = append(args, "-s")
		args = append(args, tags...)
	}
	return args
}

func serialArgs(serial string) []string {
	if serial == "" {
		return nil
	}
	return []string{"-s", serial}
}
