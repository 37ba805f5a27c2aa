package ha

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDeviceLabeler(t *testing.T) {
	kyiv := DeviceEntry{
		ID:          "1",
		Identifiers: [][]string{{"svitlo_live", "kyiv_1.1"}},
		Name:        "Kyiv 1.1",
	}

	tests := []struct {
		name    string
		devices []DeviceEntry
		err     error
		want    string
		wantOK  bool
	}{
		{"integration name", []DeviceEntry{kyiv}, nil, "Kyiv 1.1", true},
		{
			"user name wins",
			[]DeviceEntry{{Identifiers: kyiv.Identifiers, Name: "Kyiv 1.1", NameByUser: "Дім"}},
			nil, "Дім", true,
		},
		{"no matching device", []DeviceEntry{{Identifiers: [][]string{{"svitlo_live", "kyiv_2.1"}}, Name: "Other"}}, nil, "", false},
		{"other domain", []DeviceEntry{{Identifiers: [][]string{{"hue", "kyiv_1.1"}}, Name: "Lamp"}}, nil, "", false},
		{"malformed identifier", []DeviceEntry{{Identifiers: [][]string{{"svitlo_live"}}, Name: "Broken"}}, nil, "", false},
		{"unnamed device", []DeviceEntry{{Identifiers: kyiv.Identifiers}}, nil, "", false},
		{"registry error", nil, errors.New("registry down"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewMockRegistry(tt.devices...)
			reg.SetError(tt.err)

			l := NewDeviceLabeler(reg, "svitlo_live", "kyiv", "1.1", zap.NewNop())
			got, ok := l.Label(context.Background())
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, reg.Calls())
		})
	}
}

func TestDeviceLabeler_NilRegistry(t *testing.T) {
	l := NewDeviceLabeler(nil, "svitlo_live", "kyiv", "1.1", zap.NewNop())
	_, ok := l.Label(context.Background())
	assert.False(t, ok)

	var none *DeviceLabeler
	_, ok = none.Label(context.Background())
	assert.False(t, ok)
}

func TestDeviceLabeler_CachesBetweenRefreshes(t *testing.T) {
	reg := NewMockRegistry(DeviceEntry{
		Identifiers: [][]string{{"svitlo_live", "kyiv_1.1"}},
		Name:        "Kyiv 1.1",
	})
	l := NewDeviceLabeler(reg, "svitlo_live", "kyiv", "1.1", zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, ok := l.Label(ctx)
		assert.True(t, ok)
		assert.Equal(t, "Kyiv 1.1", got)
	}
	assert.Equal(t, 1, reg.Calls(), "labels are served from the cache")

	reg.SetDevices(DeviceEntry{
		Identifiers: [][]string{{"svitlo_live", "kyiv_1.1"}},
		Name:        "Kyiv 1.1",
		NameByUser:  "Дача",
	})
	got, _ := l.Label(ctx)
	assert.Equal(t, "Kyiv 1.1", got, "a rename shows up after the next refresh")

	assert.NoError(t, l.Refresh(ctx))
	got, _ = l.Label(ctx)
	assert.Equal(t, "Дача", got)

	reg.SetError(errors.New("registry down"))
	assert.Error(t, l.Refresh(ctx))
	got, ok := l.Label(ctx)
	assert.True(t, ok, "the previous name survives a failed refresh")
	assert.Equal(t, "Дача", got)
	assert.Equal(t, 3, reg.Calls())
}

func TestDeviceLabeler_FailedFirstLoadIsNotRetriedPerCall(t *testing.T) {
	reg := NewMockRegistry()
	reg.SetError(errors.New("timeout"))
	l := NewDeviceLabeler(reg, "svitlo_live", "kyiv", "1.1", zap.NewNop())

	for i := 0; i < 3; i++ {
		_, ok := l.Label(context.Background())
		assert.False(t, ok)
	}
	assert.Equal(t, 1, reg.Calls())
}
