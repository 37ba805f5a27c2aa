// Package outage converts half-hour outage schedules into absolute outage
// intervals.
//
// A day is described by 48 slots, one per 30 minutes starting at local
// midnight. Every maximal run of OFF slots becomes one Interval whose
// endpoints are resolved in an explicit timezone anchor, never in the
// process's local zone.
package outage

import (
	"strings"
	"time"
)

const (
	// SlotsPerDay is the number of half-hour slots in a schedule day.
	SlotsPerDay = 48

	// SlotDuration is the wall-clock length of one slot.
	SlotDuration = 30 * time.Minute

	// offMarker is the upstream marker for a slot without power.
	offMarker = "off"
)

// SlotState is the power state of one half-hour slot.
type SlotState uint8

const (
	SlotOn SlotState = iota
	SlotOff
)

func (s SlotState) String() string {
	if s == SlotOff {
		return "off"
	}
	return "on"
}

// ParseSlot maps an upstream marker to a slot state. Only "off" means an
// outage; every other marker (including "on" and "maybe") counts as power.
func ParseSlot(marker string) SlotState {
	if marker == offMarker {
		return SlotOff
	}
	return SlotOn
}

// ParseSlots maps a list of upstream markers to slot states.
func ParseSlots(markers []string) []SlotState {
	if markers == nil {
		return nil
	}
	slots := make([]SlotState, len(markers))
	for i, m := range markers {
		slots[i] = ParseSlot(m)
	}
	return slots
}

// Date is a civil calendar date without a zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the civil date of t in its own location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// At returns the instant of the given wall-clock offset from midnight of d
// in loc. Offsets past 24h roll into the following day.
func (d Date) At(offset time.Duration, loc *time.Location) time.Time {
	hour := int(offset / time.Hour)
	minute := int(offset % time.Hour / time.Minute)
	sec := int(offset % time.Minute / time.Second)
	nsec := int(offset % time.Second)
	return time.Date(d.Year, d.Month, d.Day, hour, minute, sec, nsec, loc)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return NewDate(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

func (d Date) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(time.DateOnly)
}

// dateLayouts are the accepted forms of an ISO calendar date. Date-times
// are accepted too; only their date part is used.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	time.DateTime,
}

// ParseDate parses an ISO calendar date such as "2024-01-15".
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return NewDate(t), nil
		}
		lastErr = err
	}
	return Date{}, &ParseError{Input: s, Err: lastErr}
}

// DaySchedule is one calendar day of half-hour slots.
type DaySchedule struct {
	Date  Date
	Slots []SlotState
}

// Valid reports whether the schedule has exactly SlotsPerDay slots.
func (d DaySchedule) Valid() bool {
	return len(d.Slots) == SlotsPerDay
}

// Slots rebuilds the slot array of date from intervals: a slot is OFF when
// its start instant lies inside any interval.
func Slots(intervals []Interval, date Date, loc *time.Location) []SlotState {
	slots := make([]SlotState, SlotsPerDay)
	for i := range slots {
		at := date.At(time.Duration(i)*SlotDuration, loc)
		for _, iv := range intervals {
			if iv.Contains(at) {
				slots[i] = SlotOff
				break
			}
		}
	}
	return slots
}
