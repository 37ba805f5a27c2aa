package outage

import (
	"encoding/json"
	"fmt"
	"time"
)

// Pair is a pre-computed outage period supplied by sources that publish
// start/end instants instead of half-hour slots.
type Pair struct {
	Start time.Time
	End   time.Time

	err error
}

// Err reports why the pair could not be decoded. FromPairs skips such
// pairs.
func (p *Pair) Err() error {
	if p == nil {
		return nil
	}
	return p.err
}

// UnmarshalJSON decodes a two-element array of RFC 3339 instants. A
// malformed entry does not fail the surrounding document: it is kept with
// Err set so the rest of the schedule still decodes.
func (p *Pair) UnmarshalJSON(data []byte) error {
	*p = Pair{}

	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		p.err = fmt.Errorf("%w: %w", ErrInvalidPair, err)
		return nil
	}
	if len(raw) != 2 {
		p.err = fmt.Errorf("%w: expected 2 instants, got %d", ErrInvalidPair, len(raw))
		return nil
	}

	start, err := time.Parse(time.RFC3339, raw[0])
	if err != nil {
		p.err = fmt.Errorf("%w: start: %w", ErrInvalidPair, err)
		return nil
	}
	end, err := time.Parse(time.RFC3339, raw[1])
	if err != nil {
		p.err = fmt.Errorf("%w: end: %w", ErrInvalidPair, err)
		return nil
	}

	p.Start, p.End = start, end
	return nil
}

// MarshalJSON encodes the pair as a two-element array of RFC 3339 instants.
func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339)})
}

// FromPairs converts pairs into sorted intervals, dropping nil entries,
// undecodable ones and pairs whose start is not before their end.
func FromPairs(pairs []*Pair) []Interval {
	var out []Interval
	for _, p := range pairs {
		if p == nil || p.err != nil || !p.Start.Before(p.End) {
			continue
		}
		out = append(out, Interval{Start: p.Start, End: p.End})
	}
	sortByStart(out)
	return out
}
