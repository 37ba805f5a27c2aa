// Package coordinator polls a schedule source and shares the latest
// snapshot with the entities of one config entry.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"svitlo/internal/clock"

	"go.uber.org/zap"
)

const (
	defaultRegionLabel = "region"
	defaultQueueLabel  = "queue"

	// DefaultReadyTimeout bounds the wait for the first snapshot of a
	// push-based source.
	DefaultReadyTimeout = 10 * time.Second
)

// Options configures a Coordinator.
type Options struct {
	// Region and Queue identify the schedule. Either may be empty.
	Region string
	Queue  string

	Interval time.Duration
	Clock    clock.Clock

	// ReadyTimeout bounds how long FirstRefresh waits for a Waiter source.
	// Zero uses DefaultReadyTimeout.
	ReadyTimeout time.Duration
}

// Coordinator owns the latest snapshot of one region/queue.
type Coordinator struct {
	source   Source
	region   string
	queue    string
	interval time.Duration
	clock    clock.Clock
	logger   *zap.Logger

	readyTimeout time.Duration

	mu                sync.RWMutex
	data              *Snapshot
	lastUpdateSuccess bool
	lastUpdate        time.Time
	lastErr           error

	listenersMu  sync.Mutex
	listeners    map[int]func()
	nextListener int

	runMu  sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a coordinator. It does not fetch until Refresh or Start.
func New(source Source, opts Options, logger *zap.Logger) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = clock.NewRealClock()
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	return &Coordinator{
		source:    source,
		region:    opts.Region,
		queue:     opts.Queue,
		interval:  opts.Interval,
		clock:     opts.Clock,
		logger:    logger.Named("coordinator"),

		readyTimeout: opts.ReadyTimeout,
		listeners: make(map[int]func()),
	}
}

// Region returns the configured region and whether one was set.
func (c *Coordinator) Region() (string, bool) {
	return c.region, c.region != ""
}

// Queue returns the configured queue and whether one was set.
func (c *Coordinator) Queue() (string, bool) {
	return c.queue, c.queue != ""
}

// Identity returns region and queue, substituting placeholders for unset
// values.
func (c *Coordinator) Identity() (region, queue string) {
	region, queue = defaultRegionLabel, defaultQueueLabel
	if r, ok := c.Region(); ok {
		region = r
	}
	if q, ok := c.Queue(); ok {
		queue = q
	}
	return region, queue
}

// Clock returns the time source shared with the entities.
func (c *Coordinator) Clock() clock.Clock {
	return c.clock
}

// Data returns the latest successfully fetched snapshot, or nil.
func (c *Coordinator) Data() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data
}

// LastUpdateSuccess reports whether the most recent refresh succeeded.
func (c *Coordinator) LastUpdateSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdateSuccess
}

// LastUpdate returns when the most recent refresh finished and its error.
func (c *Coordinator) LastUpdate() (time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate, c.lastErr
}

// AddListener registers fn to run after every refresh. The returned func
// removes it again.
func (c *Coordinator) AddListener(fn func()) (remove func()) {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

func (c *Coordinator) notifyListeners() {
	c.listenersMu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for id := 0; id < c.nextListener; id++ {
		if fn, ok := c.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Refresh fetches a new snapshot. On failure the previous snapshot is kept
// and LastUpdateSuccess turns false. Listeners run either way.
func (c *Coordinator) Refresh(ctx context.Context) error {
	snap, err := c.source.Fetch(ctx)
	now := c.clock.Now()

	c.mu.Lock()
	c.lastUpdate = now
	c.lastErr = err
	if err == nil {
		c.data = snap
		c.lastUpdateSuccess = true
	} else {
		c.lastUpdateSuccess = false
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("Schedule refresh failed", zap.Error(err))
	} else {
		c.logger.Debug("Schedule refreshed",
			zap.String("date", snap.Date),
			zap.String("tomorrow_date", snap.TomorrowDate))
		for _, perr := range snap.InvalidPairs() {
			c.logger.Warn("Skipping malformed outage period", zap.Error(perr))
		}
	}

	c.notifyListeners()

	if err != nil {
		return fmt.Errorf("refresh schedule: %w", err)
	}
	return nil
}

// FirstRefresh performs the initial refresh of an entry; its failure
// aborts the entry setup. A Waiter source gets up to the ready timeout to
// deliver its first snapshot; if it does not, the refresh reports ErrNoData.
func (c *Coordinator) FirstRefresh(ctx context.Context) error {
	if w, ok := c.source.(Waiter); ok {
		waitCtx, cancel := context.WithTimeout(ctx, c.readyTimeout)
		err := w.WaitReady(waitCtx)
		cancel()
		if err != nil && ctx.Err() == nil {
			c.logger.Warn("No schedule received yet",
				zap.Duration("timeout", c.readyTimeout),
				zap.Error(err))
		}
	}

	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrFirstRefresh, err)
	}
	return nil
}

// Start polls the source every interval until Stop is called or ctx ends.
// Push-based sources also trigger a refresh when they signal an update.
func (c *Coordinator) Start(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.stopCh != nil {
		return ErrAlreadyStarted
	}
	if c.interval <= 0 {
		return fmt.Errorf("coordinator: poll interval must be positive, got %v", c.interval)
	}

	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})

	var updates <-chan struct{}
	if n, ok := c.source.(Notifier); ok {
		updates = n.Updates()
	}

	c.logger.Info("Starting schedule polling", zap.Duration("interval", c.interval))
	go c.run(ctx, c.stopCh, c.doneCh, updates)
	return nil
}

func (c *Coordinator) run(ctx context.Context, stop, done chan struct{}, updates <-chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-c.clock.After(c.interval):
		case <-updates:
			c.logger.Debug("Source signalled an update")
		}

		// Errors are logged by Refresh and surfaced through LastUpdateSuccess.
		_ = c.Refresh(ctx)
	}
}

// Stop ends polling and waits for the loop to exit.
func (c *Coordinator) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.stopCh == nil {
		return
	}

	close(c.stopCh)
	<-c.doneCh
	c.stopCh, c.doneCh = nil, nil
	c.logger.Info("Stopped schedule polling")
}
