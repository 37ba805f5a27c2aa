// Package entity holds what the calendar and sensor entities of one
// region/queue have in common.
package entity

import (
	"context"
	"time"
)

const (
	// Domain is the identifier namespace of the devices this service owns.
	Domain       = "svitlo_live"
	Manufacturer = "svitlo.live"

	// NamePrefix starts every display name.
	NamePrefix = "Світло • "
)

// Entity is a unit of state published for one config entry.
type Entity interface {
	UniqueID() string
	Name(ctx context.Context) string
	DeviceInfo() DeviceInfo
	Available() bool
	State() string
	Attributes() map[string]any

	// Update recomputes the state from the latest coordinator data.
	Update(ctx context.Context) error
}

// Labeler supplies a human-readable name for a schedule. It is
// best-effort and reports false when no name is known.
type Labeler interface {
	Label(ctx context.Context) (string, bool)
}

// LabelRefresher is implemented by labelers that cache their name. The
// integration refreshes them once per schedule refresh.
type LabelRefresher interface {
	Refresh(ctx context.Context) error
}

// DeviceInfo groups entities of one region/queue into a device.
type DeviceInfo struct {
	Identifiers  [][2]string `json:"identifiers"`
	Name         string      `json:"name"`
	Manufacturer string      `json:"manufacturer"`
	Model        string      `json:"model"`
}

// DeviceID is the registry identifier of the region/queue device.
func DeviceID(region, queue string) string {
	return region + "_" + queue
}

// Device describes the device of a region/queue.
func Device(region, queue string) DeviceInfo {
	return DeviceInfo{
		Identifiers:  [][2]string{{Domain, DeviceID(region, queue)}},
		Name:         NamePrefix + DefaultLabel(region, queue),
		Manufacturer: Manufacturer,
		Model:        "Queue " + queue,
	}
}

// DefaultLabel is used when no device name is known.
func DefaultLabel(region, queue string) string {
	return region + " / " + queue
}

// Label asks l for a name and falls back to DefaultLabel.
func Label(ctx context.Context, l Labeler, region, queue string) string {
	if l != nil {
		if label, ok := l.Label(ctx); ok && label != "" {
			return label
		}
	}
	return DefaultLabel(region, queue)
}

// FormatTime renders an optional instant for entity attributes.
func FormatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
