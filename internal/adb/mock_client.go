package adb

import (
	"context"
	"time"
)

// MockClient implements IClient for testing.
type MockClient struct {
	AvailableFunc      func() bool
	DevicesFunc        func(ctx context.Context) ([]Device, error)
	AppPidFunc         func(ctx context.Context, serial, appID string) (int, bool)
	WaitForAppPidFunc  func(ctx context.Context, serial, appID string, timeout time.Duration) (int, bool)
	ClearLogBufferFunc func(ctx context.Context, serial string) error
	ForwardFunc        func(ctx context.Context, serial, local, remote string) error
	LogcatCommandFunc  func(serial string, tags []string, allLogs bool) []string

	// Call bookkeeping for assertions.
	ClearLogBufferCalls int
	ForwardCalls        int
	WaitForAppPidCalls  int
}

func (m *MockClient) Available() bool {
	if m.AvailableFunc != nil {
		return m.AvailableFunc()
	}
	return true
}

func (m *MockClient) Devices(ctx context.Context) ([]Device, error) {
	if m.DevicesFunc != nil {
		return m.DevicesFunc(ctx)
	}
	return nil, nil
}

func (m *MockClient) AppPid(ctx context.Context, serial, appID string) (int, bool) {
	if m.AppPidFunc != nil {
		return m.AppPidFunc(ctx, serial, appID)
	}
	return 0, false
}

func (m *MockClient) WaitForAppPid(ctx context.Context, serial, appID string, timeout time.Duration) (int, bool) {
	m.WaitForAppPidCalls++
	if m.WaitForAppPidFunc != nil {
		return m.WaitForAppPidFunc(ctx, serial, appID, timeout)
	}
	return 0, false
}

func (m *MockClient) ClearLogBuffer(ctx context.Context, serial string) error {
	m.ClearLogBufferCalls++
	if m.ClearLogBufferFunc != nil {
		return m.ClearLogBufferFunc(ctx, serial)
	}
	return nil
}

func (m *MockClient) Forward(ctx context.Context, serial, local, remote string) error {
	m.ForwardCalls++
	if m.ForwardFunc != nil {
		return m.ForwardFunc(ctx, serial, local, remote)
	}
	return nil
}

func (m *MockClient) LogcatCommand(serial string, tags []string, allLogs bool) []string {
	if m.LogcatCommandFunc != nil {
		return m.LogcatCommandFunc(serial, tags, allLogs)
	}
	return []string{"adb", "logcat", "-v", "threadtime"}
}
