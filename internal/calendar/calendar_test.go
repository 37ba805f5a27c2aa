package calendar

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"svitlo/internal/clock"
	"svitlo/internal/coordinator"
	"svitlo/internal/entity"
	"svitlo/internal/outage"
	"svitlo/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticLabeler struct {
	label string
	ok    bool
}

func (l staticLabeler) Label(context.Context) (string, bool) { return l.label, l.ok }

func kyiv(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Europe/Kyiv")
	require.NoError(t, err)
	return loc
}

// 2024-06-01 in Kyiv is UTC+3.
func defaultDoc() map[string]any {
	return testutil.Snapshot(
		"2024-06-01", testutil.Slots([2]int{2, 5}, [2]int{44, 48}),
		"2024-06-02", testutil.Slots([2]int{0, 4}),
	)
}

func setup(t *testing.T, doc any, opts Options, now time.Time) (*Calendar, *coordinator.Coordinator, *clock.MockClock) {
	t.Helper()

	path := testutil.WriteSnapshot(t, t.TempDir(), doc)
	mc := clock.NewMockClock(now)
	coord := coordinator.New(coordinator.NewFileSource(path), coordinator.Options{
		Region: "kyiv",
		Queue:  "1.1",
		Clock:  mc,
	}, zap.NewNop())
	require.NoError(t, coord.Refresh(context.Background()))

	if opts.Location == nil {
		opts.Location = kyiv(t)
	}
	cal, err := New(coord, opts, zap.NewNop())
	require.NoError(t, err)
	return cal, coord, mc
}

var (
	farPast   = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	farFuture = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

func TestIdentity(t *testing.T) {
	cal, _, _ := setup(t, defaultDoc(), Options{}, farPast)

	assert.Equal(t, "svitlo_calendar_kyiv_1.1", cal.UniqueID())
	assert.Equal(t, "Світло • kyiv / 1.1", cal.Name(context.Background()))
	assert.Equal(t, entity.DeviceInfo{
		Identifiers:  [][2]string{{"svitlo_live", "kyiv_1.1"}},
		Name:         "Світло • kyiv / 1.1",
		Manufacturer: "svitlo.live",
		Model:        "Queue 1.1",
	}, cal.DeviceInfo())
}

func TestIdentity_Placeholders(t *testing.T) {
	coord := coordinator.New(coordinator.NewFileSource("missing.json"), coordinator.Options{}, zap.NewNop())
	cal, err := New(coord, Options{Location: time.UTC}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "svitlo_calendar_region_queue", cal.UniqueID())
	assert.Equal(t, "region / queue", cal.Label(context.Background()))
}

func TestNew_RequiresLocation(t *testing.T) {
	coord := coordinator.New(coordinator.NewFileSource("missing.json"), coordinator.Options{}, zap.NewNop())
	_, err := New(coord, Options{}, zap.NewNop())
	assert.ErrorIs(t, err, outage.ErrNoLocation)
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name    string
		labeler entity.Labeler
		want    string
	}{
		{"no labeler", nil, "kyiv / 1.1"},
		{"device name", staticLabeler{"Дім", true}, "Дім"},
		{"absent", staticLabeler{"", false}, "kyiv / 1.1"},
		{"empty name", staticLabeler{"", true}, "kyiv / 1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal, _, _ := setup(t, defaultDoc(), Options{Labeler: tt.labeler}, farPast)
			assert.Equal(t, tt.want, cal.Label(context.Background()))
			assert.Equal(t, "Світло • "+tt.want, cal.Name(context.Background()))
		})
	}
}

func TestEvents(t *testing.T) {
	cal, _, _ := setup(t, defaultDoc(), Options{Labeler: staticLabeler{"Дім", true}}, farPast)

	events, err := cal.Events(context.Background(), farPast, farFuture)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, Event{
		Summary:     "[Дім] ❌ Відключення електроенергії",
		Description: "[Дім] Немає світла 01:00–02:30",
		Start:       time.Date(2024, 5, 31, 22, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 5, 31, 23, 30, 0, 0, time.UTC),
	}, events[0])

	assert.Equal(t, "[Дім] Немає світла 22:00–00:00", events[1].Description)
	assert.Equal(t, time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC), events[1].End)
	assert.Equal(t, time.UTC, events[1].Start.Location())

	assert.Equal(t, "[Дім] Немає світла 00:00–02:00", events[2].Description)
	assert.Equal(t, events[1].End, events[2].Start, "days are not merged by default")
}

func TestEvents_MergeAcrossMidnight(t *testing.T) {
	cal, _, _ := setup(t, defaultDoc(), Options{MergeAcrossMidnight: true}, farPast)

	events, err := cal.Events(context.Background(), farPast, farFuture)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "[kyiv / 1.1] Немає світла 22:00–02:00", events[1].Description)
	assert.Equal(t, 4*time.Hour, events[1].End.Sub(events[1].Start))
}

func TestEvents_Window(t *testing.T) {
	cal, _, _ := setup(t, defaultDoc(), Options{}, farPast)

	// 2024-06-01 12:00 to 22:00 local.
	from := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)
	events, err := cal.Events(context.Background(), from, to)
	require.NoError(t, err)
	assert.Empty(t, events, "an event starting exactly at the window end is excluded")

	events, err = cal.Events(context.Background(), from, to.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, to, events[0].Start)
}

func TestEvents_InvalidDate(t *testing.T) {
	doc := testutil.Snapshot(
		"2024-06-01", testutil.Slots([2]int{2, 5}),
		"not-a-date", testutil.Slots([2]int{0, 4}),
	)
	cal, _, _ := setup(t, doc, Options{}, farPast)

	events, err := cal.Events(context.Background(), farPast, farFuture)
	require.Error(t, err)

	var perr *outage.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "not-a-date", perr.Input)
	assert.ErrorIs(t, err, outage.ErrInvalidDate)

	require.Len(t, events, 1, "the valid day still contributes")
	assert.Equal(t, time.Date(2024, 5, 31, 22, 0, 0, 0, time.UTC), events[0].Start)
}

func TestEvents_MalformedAndMissing(t *testing.T) {
	doc := map[string]any{
		"date":            "2024-06-01",
		"today_48half":    testutil.Slots([2]int{0, 4})[:47],
		"tomorrow_date":   nil,
		"tomorrow_48half": nil,
	}
	cal, _, _ := setup(t, doc, Options{}, farPast)

	events, err := cal.Events(context.Background(), farPast, farFuture)
	assert.NoError(t, err)
	assert.Empty(t, events)
}

func TestEvents_Pairs(t *testing.T) {
	doc := map[string]any{
		"events_today": []any{
			[]string{"2024-06-01T18:00:00+03:00", "2024-06-01T21:00:00+03:00"},
			nil,
		},
		"events_tomorrow": []any{
			[]string{"2024-06-02T06:00:00+03:00", "2024-06-02T09:00:00+03:00"},
		},
	}
	cal, _, _ := setup(t, doc, Options{}, farPast)

	events, err := cal.Events(context.Background(), farPast, farFuture)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Planned outage", events[0].Summary)
	assert.Equal(t, "Scheduled power outage", events[0].Description)
	assert.Equal(t, time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC), events[0].Start)
	assert.Equal(t, time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC), events[1].Start)
}

func TestEvents_NoData(t *testing.T) {
	coord := coordinator.New(coordinator.NewFileSource("missing.json"), coordinator.Options{}, zap.NewNop())
	cal, err := New(coord, Options{Location: time.UTC}, zap.NewNop())
	require.NoError(t, err)

	events, err := cal.Events(context.Background(), farPast, farFuture)
	assert.NoError(t, err)
	assert.Empty(t, events)
	assert.False(t, cal.Available())
}

func TestUpdate(t *testing.T) {
	// 01:30 local, inside the 01:00-02:30 outage.
	now := time.Date(2024, 5, 31, 22, 30, 0, 0, time.UTC)
	cal, _, mc := setup(t, defaultDoc(), Options{}, now)

	_, ok := cal.Event()
	assert.False(t, ok, "nothing before the first update")
	assert.True(t, cal.Available())

	require.NoError(t, cal.Update(context.Background()))
	ev, ok := cal.Event()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 5, 31, 22, 0, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, "on", cal.State())
	assert.Equal(t, map[string]any{
		"message":     "[kyiv / 1.1] ❌ Відключення електроенергії",
		"description": "[kyiv / 1.1] Немає світла 01:00–02:30",
		"start_time":  "2024-05-31T22:00:00Z",
		"end_time":    "2024-05-31T23:30:00Z",
	}, cal.Attributes())

	// 03:00 local: the next outage starts at 22:00.
	mc.Set(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, cal.Update(context.Background()))
	ev, ok = cal.Event()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, "off", cal.State())

	// After every known outage.
	mc.Set(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, cal.Update(context.Background()))
	_, ok = cal.Event()
	assert.False(t, ok)
	assert.Empty(t, cal.Attributes())
	assert.Equal(t, "off", cal.State())
}
