package region

import "time"

// DefaultIntervalLabel is the polling interval preselected by the wizard.
const DefaultIntervalLabel = "15 хв"

// DefaultInterval is used whenever a label or a stored value is unknown.
const DefaultInterval = 15 * time.Minute

// PollInterval is one selectable polling interval.
type PollInterval struct {
	Label   string
	Seconds int
}

var pollIntervals = []PollInterval{
	{Label: "5 хв", Seconds: 300},
	{Label: "10 хв", Seconds: 600},
	{Label: "15 хв", Seconds: 900},
	{Label: "30 хв", Seconds: 1800},
	{Label: "1 год", Seconds: 3600},
}

// Intervals returns the selectable polling intervals, shortest first.
func Intervals() []PollInterval {
	return append([]PollInterval(nil), pollIntervals...)
}

// IntervalSeconds maps a label to seconds, falling back to the default.
func IntervalSeconds(label string) int {
	for _, p := range pollIntervals {
		if p.Label == label {
			return p.Seconds
		}
	}
	return int(DefaultInterval / time.Second)
}

// IntervalLabel maps seconds back to a label, falling back to the default.
func IntervalLabel(seconds int) string {
	for _, p := range pollIntervals {
		if p.Seconds == seconds {
			return p.Label
		}
	}
	return DefaultIntervalLabel
}
