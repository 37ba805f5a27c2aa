package ha

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// DeviceLabeler names a region/queue by the device Home Assistant shows
// for it. The name is cached between calls to Refresh.
type DeviceLabeler struct {
	registry DeviceRegistry
	domain   string
	deviceID string
	logger   *zap.Logger

	mu     sync.RWMutex
	loaded bool
	label  string
	ok     bool
}

// NewDeviceLabeler looks up the device identified by (domain,
// "<region>_<queue>").
func NewDeviceLabeler(registry DeviceRegistry, domain, region, queue string, logger *zap.Logger) *DeviceLabeler {
	return &DeviceLabeler{
		registry: registry,
		domain:   domain,
		deviceID: region + "_" + queue,
		logger:   logger.Named("labeler"),
	}
}

// Label returns the cached device name, querying the registry only if
// nothing was loaded yet. Any failure only means no label.
func (l *DeviceLabeler) Label(ctx context.Context) (string, bool) {
	if l == nil || l.registry == nil {
		return "", false
	}

	l.mu.RLock()
	loaded, label, ok := l.loaded, l.label, l.ok
	l.mu.RUnlock()
	if !loaded {
		_ = l.Refresh(ctx)
		l.mu.RLock()
		label, ok = l.label, l.ok
		l.mu.RUnlock()
	}
	return label, ok
}

// Refresh reloads the device name from the registry. When the registry
// cannot be read the previous name is kept.
func (l *DeviceLabeler) Refresh(ctx context.Context) error {
	if l == nil || l.registry == nil {
		return nil
	}

	devices, err := l.registry.ListDevices(ctx)
	if err != nil {
		l.logger.Debug("Device registry unavailable", zap.Error(err))
		l.mu.Lock()
		l.loaded = true
		l.mu.Unlock()
		return err
	}

	label, ok := l.find(devices)

	l.mu.Lock()
	l.loaded, l.label, l.ok = true, label, ok
	l.mu.Unlock()
	return nil
}

func (l *DeviceLabeler) find(devices []DeviceEntry) (string, bool) {
	for _, d := range devices {
		if !d.HasIdentifier(l.domain, l.deviceID) {
			continue
		}
		if name := d.DisplayName(); name != "" {
			return name, true
		}
		return "", false
	}
	return "", false
}
