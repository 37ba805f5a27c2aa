package entity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fixedLabeler struct {
	label string
	ok    bool
}

func (l fixedLabeler) Label(context.Context) (string, bool) { return l.label, l.ok }

func TestDevice(t *testing.T) {
	assert.Equal(t, DeviceInfo{
		Identifiers:  [][2]string{{"svitlo_live", "odeska_4.2"}},
		Name:         "Світло • odeska / 4.2",
		Manufacturer: "svitlo.live",
		Model:        "Queue 4.2",
	}, Device("odeska", "4.2"))
}

func TestLabel(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "kyiv / 1.1", Label(ctx, nil, "kyiv", "1.1"))
	assert.Equal(t, "Дача", Label(ctx, fixedLabeler{"Дача", true}, "kyiv", "1.1"))
	assert.Equal(t, "kyiv / 1.1", Label(ctx, fixedLabeler{"ignored", false}, "kyiv", "1.1"))
	assert.Equal(t, "kyiv / 1.1", Label(ctx, fixedLabeler{"", true}, "kyiv", "1.1"))
}

func TestFormatTime(t *testing.T) {
	assert.Nil(t, FormatTime(time.Time{}))

	loc := time.FixedZone("UTC+3", 3*3600)
	assert.Equal(t, "2024-06-01T09:00:00Z", FormatTime(time.Date(2024, 6, 1, 12, 0, 0, 0, loc)))
}
