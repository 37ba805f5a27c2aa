// Package region holds the grid regions the service knows about, the queue
// naming scheme each region uses and the selectable polling intervals.
package region

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrUnknownRegion = errors.New("region: unknown region")
	ErrInvalidQueue  = errors.New("region: invalid queue")
)

// QueueFormat describes how a region identifies its rotation schedules.
type QueueFormat string

const (
	// FormatSubqueue is "X.Y" with X in 1..6 and Y in 1..2.
	FormatSubqueue QueueFormat = "subqueue"
	// FormatQueue is a plain queue number in 1..Max.
	FormatQueue QueueFormat = "queue"
	// FormatGroup is a plain group number in 1..Max.
	FormatGroup QueueFormat = "group"
)

const (
	subqueueMajor = 6
	subqueueMinor = 2

	// DefaultQueue is preselected by the setup wizard.
	DefaultQueue = "1.1"
)

// Region is one supported grid region.
type Region struct {
	Slug   string
	Name   string
	Format QueueFormat
	// Max bounds plain queue and group numbers. Unused for subqueues.
	Max int
}

var regions = []Region{
	{Slug: "kyiv", Name: "м. Київ", Format: FormatSubqueue},
	{Slug: "kyivska-oblast", Name: "Київська область", Format: FormatSubqueue},
	{Slug: "odeska-oblast", Name: "Одеська область", Format: FormatSubqueue},
	{Slug: "dnipropetrovska-oblast", Name: "Дніпропетровська область", Format: FormatSubqueue},
	{Slug: "lvivska-oblast", Name: "Львівська область", Format: FormatSubqueue},
	{Slug: "kharkivska-oblast", Name: "Харківська область", Format: FormatSubqueue},
	{Slug: "zaporizka-oblast", Name: "Запорізька область", Format: FormatQueue, Max: 6},
	{Slug: "poltavska-oblast", Name: "Полтавська область", Format: FormatQueue, Max: 6},
	{Slug: "chernivetska-oblast", Name: "Чернівецька область", Format: FormatGroup, Max: 18},
	{Slug: "ternopilska-oblast", Name: "Тернопільська область", Format: FormatGroup, Max: 6},
	{Slug: "ivano-frankivska-oblast", Name: "Івано-Франківська область", Format: FormatGroup, Max: 10},
}

// All returns every region sorted by display name.
func All() []Region {
	out := append([]Region(nil), regions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a region by slug.
func Lookup(slug string) (Region, error) {
	for _, r := range regions {
		if r.Slug == slug {
			return r, nil
		}
	}
	return Region{}, fmt.Errorf("%w: %q", ErrUnknownRegion, slug)
}

// FromName resolves a display name back to its region. A slug is accepted
// as well so that stored entries resolve either way.
func FromName(name string) (Region, error) {
	for _, r := range regions {
		if r.Name == name {
			return r, nil
		}
	}
	return Lookup(name)
}

// Queues lists every valid queue identifier of the region in order.
func (r Region) Queues() []string {
	if r.Format == FormatSubqueue {
		out := make([]string, 0, subqueueMajor*subqueueMinor)
		for i := 1; i <= subqueueMajor; i++ {
			for j := 1; j <= subqueueMinor; j++ {
				out = append(out, fmt.Sprintf("%d.%d", i, j))
			}
		}
		return out
	}

	out := make([]string, 0, r.Max)
	for i := 1; i <= r.Max; i++ {
		out = append(out, strconv.Itoa(i))
	}
	return out
}

// DefaultQueue is the first queue of the region.
func (r Region) DefaultQueue() string {
	if r.Format == FormatSubqueue {
		return DefaultQueue
	}
	return "1"
}

// ValidateQueue checks queue against the region's naming scheme.
func (r Region) ValidateQueue(queue string) error {
	queue = strings.TrimSpace(queue)

	if r.Format == FormatSubqueue {
		major, minor, ok := strings.Cut(queue, ".")
		if !ok {
			return fmt.Errorf("%w: %q is not of the form X.Y", ErrInvalidQueue, queue)
		}
		if err := inRange(major, subqueueMajor); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidQueue, queue, err)
		}
		if err := inRange(minor, subqueueMinor); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidQueue, queue, err)
		}
		return nil
	}

	if err := inRange(queue, r.Max); err != nil {
		return fmt.Errorf("%w: %s %q for %s: %v", ErrInvalidQueue, r.Format, queue, r.Slug, err)
	}
	return nil
}

func inRange(s string, max int) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if n < 1 || n > max {
		return fmt.Errorf("must be between 1 and %d", max)
	}
	return nil
}

// ValidateQueue checks queue for the region identified by slug.
func ValidateQueue(slug, queue string) error {
	r, err := Lookup(slug)
	if err != nil {
		return err
	}
	return r.ValidateQueue(queue)
}
