// Package sensor provides the outage status entity.
package sensor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"svitlo/internal/coordinator"
	"svitlo/internal/entity"
	"svitlo/internal/outage"

	"go.uber.org/zap"
)

const (
	StatePowerOn  = "on"
	StatePowerOff = "off"
)

// Options configures a Status sensor.
type Options struct {
	Location            *time.Location
	MergeAcrossMidnight bool
	Labeler             entity.Labeler
}

// Status reports whether power is currently scheduled off and when the
// next outage happens.
type Status struct {
	coord   *coordinator.Coordinator
	loc     *time.Location
	merge   bool
	labeler entity.Labeler
	logger  *zap.Logger

	region string
	queue  string

	mu        sync.RWMutex
	intervals []outage.Interval
}

// New creates a status sensor reading from coord.
func New(coord *coordinator.Coordinator, opts Options, logger *zap.Logger) (*Status, error) {
	if opts.Location == nil {
		return nil, outage.ErrNoLocation
	}

	region, queue := coord.Identity()
	return &Status{
		coord:   coord,
		loc:     opts.Location,
		merge:   opts.MergeAcrossMidnight,
		labeler: opts.Labeler,
		logger:  logger.Named("sensor").With(zap.String("region", region), zap.String("queue", queue)),
		region:  region,
		queue:   queue,
	}, nil
}

func (s *Status) UniqueID() string {
	return fmt.Sprintf("svitlo_status_%s_%s", s.region, s.queue)
}

func (s *Status) Name(ctx context.Context) string {
	return entity.NamePrefix + entity.Label(ctx, s.labeler, s.region, s.queue) + " • статус"
}

func (s *Status) DeviceInfo() entity.DeviceInfo {
	return entity.Device(s.region, s.queue)
}

func (s *Status) Available() bool {
	return s.coord.LastUpdateSuccess()
}

// Update rebuilds the outage list from the latest snapshot. State and
// attributes are derived from it against the clock on every read.
func (s *Status) Update(ctx context.Context) error {
	snap := s.coord.Data()

	intervals, err := snap.Intervals(s.loc)
	if err != nil {
		s.logger.Warn("Schedule contains an invalid date", zap.Error(err))
	}
	intervals = outage.Merge(intervals, outage.FromPairs(snap.Pairs()))
	if s.merge {
		intervals = outage.Coalesce(intervals)
	}

	s.mu.Lock()
	s.intervals = intervals
	s.mu.Unlock()

	next, found := s.Next()
	s.logger.Debug("Status updated",
		zap.Int("outages", len(intervals)),
		zap.Bool("has_next", found),
		zap.Time("next_start", next.Start))
	return err
}

// Next returns the outage in progress or the upcoming one.
func (s *Status) Next() (outage.Interval, bool) {
	return s.nextAt(s.coord.Clock().Now())
}

func (s *Status) nextAt(now time.Time) (outage.Interval, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return outage.CurrentOrNext(s.intervals, now)
}

// State is "off" while an outage is in progress and "on" otherwise.
func (s *Status) State() string {
	now := s.coord.Clock().Now()
	if next, ok := s.nextAt(now); ok && next.Contains(now) {
		return StatePowerOff
	}
	return StatePowerOn
}

func (s *Status) Attributes() map[string]any {
	now := s.coord.Clock().Now()

	attrs := map[string]any{
		"next_outage_start":    nil,
		"next_outage_end":      nil,
		"minutes_until_outage": nil,
	}
	next, ok := s.nextAt(now)
	if !ok {
		return attrs
	}

	var until time.Duration
	if !next.Contains(now) {
		until = next.Start.Sub(now)
	}
	attrs["next_outage_start"] = entity.FormatTime(next.Start)
	attrs["next_outage_end"] = entity.FormatTime(next.End)
	attrs["minutes_until_outage"] = int(math.Ceil(until.Minutes()))
	return attrs
}
