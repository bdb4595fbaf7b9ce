package adb

import (
	"context"
	"time"
)

// Device is one attached Android device as reported by `adb devices`.
type Device struct {
	Serial     string
	IsEmulator bool
}

// IClient defines the interface for the device bridge.
// This allows for mocking in tests.
type IClient interface {
	Available() bool
	Devices(ctx context.Context) ([]Device, error)
	AppPid(ctx context.Context, serial, appID string) (int, bool)
	WaitForAppPid(ctx context.Context, serial, appID string, timeout time.Duration) (int, bool)
	ClearLogBuffer(ctx context.Context, serial string) error
	Forward(ctx context.Context, serial, local, remote string) error
	LogcatCommand(serial string, tags []string, allLogs bool) []string
}

// ChooseTarget picks the session's device. One device wins outright;
// with several, the first physical device beats any emulator so the
// common real-world target wins ties without prompting.
func ChooseTarget(devices []Device) (Device, bool) {
	if len(devices) == 0 {
		return Device{}, false
	}
	if len(devices) == 1 {
		return devices[0], true
	}
	for _, d := range devices {
		if !d.IsEmulator {
			return d, true
		}
	}
	return devices[0], true
}
