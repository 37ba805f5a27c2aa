package outage

import (
	"sort"
	"time"
)

// Interval is a half-open outage period [Start, End). Start is always
// strictly before End.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the interval.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Contains reports whether t lies in [Start, End).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Overlaps reports whether the interval intersects the open range (from, to).
func (iv Interval) Overlaps(from, to time.Time) bool {
	return iv.Start.Before(to) && iv.End.After(from)
}

// Extract returns one interval per maximal run of OFF slots, in
// chronological order. A schedule that does not hold exactly SlotsPerDay
// slots yields no intervals; partial upstream data is expected and is not
// an error. A run reaching the last slot ends at midnight of the next day.
func Extract(day DaySchedule, loc *time.Location) []Interval {
	if !day.Valid() || loc == nil {
		return nil
	}

	var intervals []Interval
	runStart := 0
	for i := 1; i <= SlotsPerDay; i++ {
		if i < SlotsPerDay && day.Slots[i] == day.Slots[runStart] {
			continue
		}
		if day.Slots[runStart] == SlotOff {
			if iv, ok := span(day.Date, runStart, i, loc); ok {
				intervals = append(intervals, iv)
			}
		}
		runStart = i
	}
	return intervals
}

// span converts the slot index range [from, to) of date into absolute
// instants. Runs that collapse inside a DST gap are reported as not ok.
func span(date Date, from, to int, loc *time.Location) (Interval, bool) {
	iv := Interval{
		Start: date.At(time.Duration(from)*SlotDuration, loc),
		End:   date.At(time.Duration(to)*SlotDuration, loc),
	}
	return iv, iv.Start.Before(iv.End)
}

// ExtractDay extracts the intervals of one day of the upstream mapping.
// A missing date or a slot list of the wrong length yields no intervals and
// no error. An unparseable date yields a *ParseError.
func ExtractDay(date string, markers []string, loc *time.Location) ([]Interval, error) {
	if date == "" || len(markers) != SlotsPerDay {
		return nil, nil
	}
	if loc == nil {
		return nil, ErrNoLocation
	}

	d, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	return Extract(DaySchedule{Date: d, Slots: ParseSlots(markers)}, loc), nil
}

// Merge concatenates independently extracted days and sorts the result by
// start. Intervals are not joined across day boundaries; see Coalesce.
func Merge(days ...[]Interval) []Interval {
	var n int
	for _, d := range days {
		n += len(d)
	}
	merged := make([]Interval, 0, n)
	for _, d := range days {
		merged = append(merged, d...)
	}
	sortByStart(merged)
	return merged
}

// Coalesce joins intervals that touch or overlap, such as a run ending at
// midnight followed by a run starting at midnight. The input is not
// modified.
func Coalesce(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := append([]Interval(nil), intervals...)
	sortByStart(sorted)

	out := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Window returns the intervals that intersect (from, to).
func Window(intervals []Interval, from, to time.Time) []Interval {
	var out []Interval
	for _, iv := range intervals {
		if iv.Overlaps(from, to) {
			out = append(out, iv)
		}
	}
	return out
}

// CurrentOrNext returns the interval containing now or, failing that, the
// earliest interval that starts after now.
func CurrentOrNext(intervals []Interval, now time.Time) (Interval, bool) {
	sorted := append([]Interval(nil), intervals...)
	sortByStart(sorted)

	for _, iv := range sorted {
		if iv.Contains(now) {
			return iv, true
		}
	}
	for _, iv := range sorted {
		if iv.Start.After(now) {
			return iv, true
		}
	}
	return Interval{}, false
}

func sortByStart(intervals []Interval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})
}
