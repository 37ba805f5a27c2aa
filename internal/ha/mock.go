package ha

import (
	"context"
	"sync"
)

// MockRegistry is an in-memory DeviceRegistry for tests.
type MockRegistry struct {
	mu      sync.Mutex
	devices []DeviceEntry
	err     error
	calls   int
}

// NewMockRegistry returns a registry holding devices.
func NewMockRegistry(devices ...DeviceEntry) *MockRegistry {
	return &MockRegistry{devices: devices}
}

// ListDevices returns a copy of the configured devices or the configured
// error.
func (m *MockRegistry) ListDevices(ctx context.Context) ([]DeviceEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return append([]DeviceEntry(nil), m.devices...), nil
}

// SetDevices replaces the registry contents.
func (m *MockRegistry) SetDevices(devices ...DeviceEntry) {
	m.mu.Lock()
	m.devices = devices
	m.mu.Unlock()
}

// SetError makes every following call fail with err.
func (m *MockRegistry) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Calls returns how often ListDevices was called.
func (m *MockRegistry) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
