// Package integration sets up and tears down config entries: one
// coordinator per region/queue plus the entities of every registered
// platform.
package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"svitlo/internal/clock"
	"svitlo/internal/coordinator"
	"svitlo/internal/entity"
	"svitlo/internal/outage"

	"go.uber.org/zap"
)

var (
	ErrAlreadyLoaded = errors.New("integration: entry already loaded")
	ErrNotLoaded     = errors.New("integration: entry not loaded")
)

// Entry is one configured region/queue.
type Entry struct {
	Region string
	Queue  string
	Title  string

	ScanInterval        time.Duration
	Location            *time.Location
	MergeAcrossMidnight bool
}

// UniqueID identifies the entry.
func (e Entry) UniqueID() string {
	return entity.DeviceID(e.Region, e.Queue)
}

// Deps are the collaborators of an entry.
type Deps struct {
	Source coordinator.Source

	// Labeler, Clock and Registry are optional. A nil Registry uses the
	// global one.
	Labeler  entity.Labeler
	Clock    clock.Clock
	Registry *Registry

	Logger *zap.Logger
}

// Handle is a loaded entry.
type Handle struct {
	entry    Entry
	coord    *coordinator.Coordinator
	entities []entity.Entity
	source   coordinator.Source
	labeler  entity.Labeler
	logger   *zap.Logger

	cancel         context.CancelFunc
	removeListener func()
	unloadOnce     sync.Once
}

// Setup builds the coordinator, runs the first refresh, creates the
// entities of all platforms and starts polling. A failed first refresh
// fails the setup.
func Setup(ctx context.Context, entry Entry, deps Deps) (*Handle, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("integration: entry %s has no source", entry.UniqueID())
	}
	if entry.Location == nil {
		return nil, outage.ErrNoLocation
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	registry := deps.Registry
	if registry == nil {
		registry = globalRegistry
	}
	logger := deps.Logger.Named("integration").With(zap.String("entry", entry.UniqueID()))

	coord := coordinator.New(deps.Source, coordinator.Options{
		Region:   entry.Region,
		Queue:    entry.Queue,
		Interval: entry.ScanInterval,
		Clock:    deps.Clock,
	}, deps.Logger)

	if err := coord.FirstRefresh(ctx); err != nil {
		return nil, err
	}

	pctx := &PlatformContext{
		Coordinator:         coord,
		Location:            entry.Location,
		MergeAcrossMidnight: entry.MergeAcrossMidnight,
		Labeler:             deps.Labeler,
		Logger:              deps.Logger,
	}

	h := &Handle{
		entry:   entry,
		coord:   coord,
		source:  deps.Source,
		labeler: deps.Labeler,
		logger:  logger,
	}

	for _, info := range registry.List() {
		ents, err := info.Factory(pctx)
		if err != nil {
			return nil, fmt.Errorf("failed to set up platform %s: %w", info.Name, err)
		}
		h.entities = append(h.entities, ents...)
		logger.Debug("Platform set up",
			zap.String("platform", info.Name),
			zap.Int("entities", len(ents)))
	}

	runCtx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	h.updateEntities(ctx)
	h.removeListener = coord.AddListener(func() { h.updateEntities(runCtx) })

	if err := coord.Start(runCtx); err != nil {
		h.removeListener()
		cancel()
		return nil, err
	}

	logger.Info("Entry set up",
		zap.String("title", entry.Title),
		zap.Int("entities", len(h.entities)),
		zap.Duration("scan_interval", entry.ScanInterval))
	return h, nil
}

func (h *Handle) updateEntities(ctx context.Context) {
	if r, ok := h.labeler.(entity.LabelRefresher); ok {
		if err := r.Refresh(ctx); err != nil {
			h.logger.Debug("Keeping previous device label", zap.Error(err))
		}
	}
	for _, e := range h.entities {
		if err := e.Update(ctx); err != nil {
			h.logger.Warn("Entity update reported an error",
				zap.String("entity", e.UniqueID()),
				zap.Error(err))
		}
	}
}

// Entry returns the configuration the handle was set up with.
func (h *Handle) Entry() Entry { return h.entry }

// Coordinator returns the entry's coordinator.
func (h *Handle) Coordinator() *coordinator.Coordinator { return h.coord }

// Entities returns the entry's entities in platform order.
func (h *Handle) Entities() []entity.Entity {
	return append([]entity.Entity(nil), h.entities...)
}

// Entity finds an entity by unique id.
func (h *Handle) Entity(uniqueID string) (entity.Entity, bool) {
	for _, e := range h.entities {
		if e.UniqueID() == uniqueID {
			return e, true
		}
	}
	return nil, false
}

// Unload stops polling and releases the source. It is safe to call more
// than once.
func (h *Handle) Unload() error {
	var err error
	h.unloadOnce.Do(func() {
		h.removeListener()
		h.coord.Stop()
		h.cancel()

		if c, ok := h.source.(io.Closer); ok {
			err = c.Close()
		}
		h.logger.Info("Entry unloaded")
	})
	return err
}

// Manager keeps track of the loaded entries.
type Manager struct {
	mu      sync.RWMutex
	handles map[string]*Handle
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{handles: make(map[string]*Handle)}
}

// Load sets up entry unless an entry with the same unique id is loaded.
func (m *Manager) Load(ctx context.Context, entry Entry, deps Deps) (*Handle, error) {
	id := entry.UniqueID()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.handles[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyLoaded, id)
	}

	h, err := Setup(ctx, entry, deps)
	if err != nil {
		return nil, err
	}
	m.handles[id] = h
	return h, nil
}

// Unload tears down the entry with uniqueID.
func (m *Manager) Unload(uniqueID string) error {
	m.mu.Lock()
	h, ok := m.handles[uniqueID]
	delete(m.handles, uniqueID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, uniqueID)
	}
	return h.Unload()
}

// UnloadAll tears down every entry.
func (m *Manager) UnloadAll() error {
	m.mu.Lock()
	handles := m.handles
	m.handles = make(map[string]*Handle)
	m.mu.Unlock()

	var errs []error
	for _, h := range handles {
		errs = append(errs, h.Unload())
	}
	return errors.Join(errs...)
}

// Configured reports whether an entry with uniqueID is loaded.
func (m *Manager) Configured(uniqueID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.handles[uniqueID]
	return ok
}

// Handles returns the loaded entries ordered by unique id.
func (m *Manager) Handles() []*Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].entry.UniqueID() < out[j].entry.UniqueID() })
	return out
}

// Entities returns the entities of every loaded entry.
func (m *Manager) Entities() []entity.Entity {
	var out []entity.Entity
	for _, h := range m.Handles() {
		out = append(out, h.Entities()...)
	}
	return out
}
