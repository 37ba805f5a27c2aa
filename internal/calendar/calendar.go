// Package calendar exposes the outage schedule of one region/queue as
// calendar events.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"svitlo/internal/coordinator"
	"svitlo/internal/entity"
	"svitlo/internal/outage"

	"go.uber.org/zap"
)

const (
	slotSummary     = "❌ Відключення електроенергії"
	slotDescription = "Немає світла"
	pairSummary     = "Planned outage"
	pairDescription = "Scheduled power outage"

	lookBehind = 24 * time.Hour
	lookAhead  = 48 * time.Hour
)

// Event is one outage as shown in a calendar.
type Event struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// Active reports whether now falls inside the event.
func (e Event) Active(now time.Time) bool {
	return !now.Before(e.Start) && now.Before(e.End)
}

// Options configures a Calendar.
type Options struct {
	// Location anchors the wall-clock slot times. Required.
	Location *time.Location

	// MergeAcrossMidnight joins an outage ending at midnight with one
	// starting at the same instant on the next day.
	MergeAcrossMidnight bool

	Labeler entity.Labeler
}

// Calendar is the outage calendar entity.
type Calendar struct {
	coord   *coordinator.Coordinator
	loc     *time.Location
	merge   bool
	labeler entity.Labeler
	logger  *zap.Logger

	region string
	queue  string

	mu    sync.RWMutex
	event *Event
}

// New creates a calendar reading from coord.
func New(coord *coordinator.Coordinator, opts Options, logger *zap.Logger) (*Calendar, error) {
	if opts.Location == nil {
		return nil, outage.ErrNoLocation
	}

	region, queue := coord.Identity()
	return &Calendar{
		coord:   coord,
		loc:     opts.Location,
		merge:   opts.MergeAcrossMidnight,
		labeler: opts.Labeler,
		logger:  logger.Named("calendar").With(zap.String("region", region), zap.String("queue", queue)),
		region:  region,
		queue:   queue,
	}, nil
}

// UniqueID identifies the entity across restarts.
func (c *Calendar) UniqueID() string {
	return fmt.Sprintf("svitlo_calendar_%s_%s", c.region, c.queue)
}

// Label returns the device name, or "<region> / <queue>".
func (c *Calendar) Label(ctx context.Context) string {
	return entity.Label(ctx, c.labeler, c.region, c.queue)
}

// Name is the display name, following renames of the device.
func (c *Calendar) Name(ctx context.Context) string {
	return entity.NamePrefix + c.Label(ctx)
}

// DeviceInfo describes the device the calendar belongs to.
func (c *Calendar) DeviceInfo() entity.DeviceInfo {
	return entity.Device(c.region, c.queue)
}

// Available reports whether the last refresh succeeded.
func (c *Calendar) Available() bool {
	return c.coord.LastUpdateSuccess()
}

// Events returns the outages overlapping [from, to), ordered by start.
//
// Today and tomorrow are extracted independently. A day whose date cannot
// be parsed contributes nothing; its error is returned alongside the
// events of the other day.
func (c *Calendar) Events(ctx context.Context, from, to time.Time) ([]Event, error) {
	snap := c.coord.Data()
	if snap == nil {
		return nil, nil
	}

	slots, err := snap.Intervals(c.loc)
	if err != nil {
		c.logger.Warn("Skipping day with invalid date",
			zap.String("date", snap.Date),
			zap.String("tomorrow_date", snap.TomorrowDate),
			zap.Error(err))
	}
	if c.merge {
		slots = outage.Coalesce(slots)
	}
	pairs := outage.FromPairs(snap.Pairs())

	label := c.Label(ctx)
	events := make([]Event, 0, len(slots)+len(pairs))
	for _, iv := range outage.Window(slots, from, to) {
		events = append(events, c.slotEvent(label, iv))
	}
	for _, iv := range outage.Window(pairs, from, to) {
		events = append(events, pairEvent(iv))
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })

	return events, err
}

func (c *Calendar) slotEvent(label string, iv outage.Interval) Event {
	prefix := "[" + label + "] "
	return Event{
		Summary: prefix + slotSummary,
		Description: fmt.Sprintf("%s%s %s–%s", prefix, slotDescription,
			iv.Start.In(c.loc).Format("15:04"), iv.End.In(c.loc).Format("15:04")),
		Start: iv.Start.UTC(),
		End:   iv.End.UTC(),
	}
}

func pairEvent(iv outage.Interval) Event {
	return Event{
		Summary:     pairSummary,
		Description: pairDescription,
		Start:       iv.Start.UTC(),
		End:         iv.End.UTC(),
	}
}

// Update recomputes the current or next event.
func (c *Calendar) Update(ctx context.Context) error {
	now := c.coord.Clock().Now()
	events, err := c.Events(ctx, now.Add(-lookBehind), now.Add(lookAhead))

	var next *Event
	for i := range events {
		if events[i].Active(now) {
			next = &events[i]
			break
		}
	}
	if next == nil {
		for i := range events {
			if events[i].Start.After(now) {
				next = &events[i]
				break
			}
		}
	}

	c.mu.Lock()
	c.event = next
	c.mu.Unlock()
	return err
}

// Event returns the current or next outage as of the last Update.
func (c *Calendar) Event() (Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.event == nil {
		return Event{}, false
	}
	return *c.event, true
}

// State is "on" while an outage is in progress.
func (c *Calendar) State() string {
	ev, ok := c.Event()
	if ok && ev.Active(c.coord.Clock().Now()) {
		return "on"
	}
	return "off"
}

// Attributes mirrors the current or next event.
func (c *Calendar) Attributes() map[string]any {
	ev, ok := c.Event()
	if !ok {
		return map[string]any{}
	}
	return map[string]any{
		"message":     ev.Summary,
		"description": ev.Description,
		"start_time":  entity.FormatTime(ev.Start),
		"end_time":    entity.FormatTime(ev.End),
	}
}
