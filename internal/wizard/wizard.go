// Package wizard walks a user through configuring one region/queue entry.
//
// The flow is an explicit state machine:
//
//	AwaitingRegion -> AwaitingDetails -> Done
//
// Every transition takes the current State by value and returns the next
// one, so a half-finished selection lives only in the State the caller
// holds.
package wizard

import (
	"errors"
	"fmt"
	"strings"

	"svitlo/internal/entity"
	"svitlo/internal/region"
)

var (
	// ErrAlreadyConfigured aborts a flow whose entry already exists.
	ErrAlreadyConfigured = errors.New("wizard: already configured")

	// ErrInvalidTransition is returned when a step does not apply to the
	// state it was given.
	ErrInvalidTransition = errors.New("wizard: invalid transition")
)

// Step identifies where a flow is.
type Step int

const (
	AwaitingRegion Step = iota
	AwaitingDetails
	Done
)

func (s Step) String() string {
	switch s {
	case AwaitingRegion:
		return "awaiting_region"
	case AwaitingDetails:
		return "awaiting_details"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// EntryData is the outcome of a completed flow.
type EntryData struct {
	Region       string `yaml:"region" json:"region"`
	Queue        string `yaml:"queue" json:"queue"`
	ScanInterval int    `yaml:"scan_interval" json:"scan_interval"`
	Title        string `yaml:"title" json:"title"`
	UniqueID     string `yaml:"unique_id" json:"unique_id"`
}

// State is a snapshot of a flow. The zero value is not valid; obtain one
// from Start or Reconfigure.
type State struct {
	Step Step

	// Region is set from AwaitingDetails on.
	Region region.Region

	// Defaults offered by the details form.
	Queue         string
	IntervalLabel string

	// Entry is set once Step is Done.
	Entry *EntryData

	// existing is the unique id being reconfigured, if any.
	existing string
}

// Form describes what the current step asks for.
type Form struct {
	Regions   []string
	Queues    []string
	Intervals []string

	DefaultRegion   string
	DefaultQueue    string
	DefaultInterval string
}

// Form returns the choices and defaults of the current step.
func (s State) Form() Form {
	switch s.Step {
	case AwaitingRegion:
		names := regionNames()
		f := Form{Regions: names}
		if len(names) > 0 {
			f.DefaultRegion = names[0]
		}
		return f
	case AwaitingDetails:
		return Form{
			Queues:          s.Region.Queues(),
			Intervals:       intervalLabels(),
			DefaultQueue:    s.Queue,
			DefaultInterval: s.IntervalLabel,
		}
	default:
		return Form{}
	}
}

// Configured reports whether an entry with uniqueID already exists.
type Configured func(uniqueID string) bool

// Flow runs configuration flows against a set of existing entries.
type Flow struct {
	configured Configured
}

// NewFlow creates a flow. A nil configured treats every id as new.
func NewFlow(configured Configured) *Flow {
	if configured == nil {
		configured = func(string) bool { return false }
	}
	return &Flow{configured: configured}
}

// Start begins a flow for a new entry.
func (f *Flow) Start() State {
	return State{Step: AwaitingRegion}
}

// Reconfigure begins an options flow for an existing entry, skipping
// straight to the details form with its current values.
func (f *Flow) Reconfigure(existing EntryData) (State, error) {
	r, err := region.Lookup(existing.Region)
	if err != nil {
		return State{}, err
	}

	queue := existing.Queue
	if r.ValidateQueue(queue) != nil {
		queue = r.DefaultQueue()
	}

	uid := existing.UniqueID
	if uid == "" {
		uid = entity.DeviceID(r.Slug, existing.Queue)
	}

	return State{
		Step:          AwaitingDetails,
		Region:        r,
		Queue:         queue,
		IntervalLabel: region.IntervalLabel(existing.ScanInterval),
		existing:      uid,
	}, nil
}

// SelectRegion records the region picked by its display name. It is also
// accepted while awaiting details, to change the region.
func (f *Flow) SelectRegion(s State, regionName string) (State, error) {
	if s.Step != AwaitingRegion && s.Step != AwaitingDetails {
		return s, fmt.Errorf("%w: select region in %s", ErrInvalidTransition, s.Step)
	}

	r, err := region.FromName(regionName)
	if err != nil {
		return s, err
	}

	next := s
	next.Step = AwaitingDetails
	next.Region = r
	if next.Queue == "" || r.ValidateQueue(next.Queue) != nil {
		next.Queue = r.DefaultQueue()
	}
	if next.IntervalLabel == "" {
		next.IntervalLabel = region.DefaultIntervalLabel
	}
	return next, nil
}

// SubmitDetails completes the flow with a queue and a polling interval
// label. Unknown labels fall back to the default interval.
func (f *Flow) SubmitDetails(s State, queue, intervalLabel string) (State, error) {
	if s.Step != AwaitingDetails {
		return s, fmt.Errorf("%w: submit details in %s", ErrInvalidTransition, s.Step)
	}
	queue = strings.TrimSpace(queue)
	if err := s.Region.ValidateQueue(queue); err != nil {
		return s, err
	}

	uid := entity.DeviceID(s.Region.Slug, queue)
	if uid != s.existing && f.configured(uid) {
		return s, fmt.Errorf("%w: %s", ErrAlreadyConfigured, uid)
	}

	next := s
	next.Step = Done
	next.Queue = queue
	next.IntervalLabel = region.IntervalLabel(region.IntervalSeconds(intervalLabel))
	next.Entry = &EntryData{
		Region:       s.Region.Slug,
		Queue:        queue,
		ScanInterval: region.IntervalSeconds(intervalLabel),
		Title:        s.Region.Name + " / " + queue,
		UniqueID:     uid,
	}
	return next, nil
}

func regionNames() []string {
	all := region.All()
	names := make([]string, 0, len(all))
	for _, r := range all {
		names = append(names, r.Name)
	}
	return names
}

func intervalLabels() []string {
	all := region.Intervals()
	labels := make([]string, 0, len(all))
	for _, i := range all {
		labels = append(labels, i.Label)
	}
	return labels
}
