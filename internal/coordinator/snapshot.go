package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"svitlo/internal/outage"
)

// Snapshot is one poll result as produced by the external schedule poller.
// Any field may be missing: a day without data is the normal state before
// the grid operator publishes it.
type Snapshot struct {
	Date         string   `json:"date"`
	Today        []string `json:"today_48half"`
	TomorrowDate string   `json:"tomorrow_date"`
	Tomorrow     []string `json:"tomorrow_48half"`

	// Pre-computed periods published by pair-based sources.
	EventsToday    []*outage.Pair `json:"events_today,omitempty"`
	EventsTomorrow []*outage.Pair `json:"events_tomorrow,omitempty"`
}

// DecodeSnapshot parses a JSON snapshot document.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}

// Pairs returns every pre-computed period of the snapshot.
func (s *Snapshot) Pairs() []*outage.Pair {
	if s == nil {
		return nil
	}
	out := make([]*outage.Pair, 0, len(s.EventsToday)+len(s.EventsTomorrow))
	out = append(out, s.EventsToday...)
	return append(out, s.EventsTomorrow...)
}

// InvalidPairs returns the decode errors of pre-computed periods that were
// skipped.
func (s *Snapshot) InvalidPairs() []error {
	var errs []error
	for _, p := range s.Pairs() {
		if err := p.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (s *Snapshot) clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Today = append([]string(nil), s.Today...)
	c.Tomorrow = append([]string(nil), s.Tomorrow...)
	c.EventsToday = append([]*outage.Pair(nil), s.EventsToday...)
	c.EventsTomorrow = append([]*outage.Pair(nil), s.EventsTomorrow...)
	return &c
}

// Intervals extracts the outages of today and tomorrow, each day on its
// own. A day whose date cannot be parsed contributes nothing and its error
// is returned alongside the intervals of the other day.
func (s *Snapshot) Intervals(loc *time.Location) ([]outage.Interval, error) {
	if s == nil {
		return nil, nil
	}

	today, errToday := outage.ExtractDay(s.Date, s.Today, loc)
	if errToday != nil {
		errToday = fmt.Errorf("today: %w", errToday)
	}
	tomorrow, errTomorrow := outage.ExtractDay(s.TomorrowDate, s.Tomorrow, loc)
	if errTomorrow != nil {
		errTomorrow = fmt.Errorf("tomorrow: %w", errTomorrow)
	}

	return outage.Merge(today, tomorrow), errors.Join(errToday, errTomorrow)
}
