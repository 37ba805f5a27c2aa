package integration

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Priority constants for platform registration.
// Higher priority values override lower priority platforms with the same name.
const (
	PriorityDefault  = 0
	PriorityOverride = 100
)

// defaultOrder is used for platforms that do not set one.
const defaultOrder = 50

// PlatformInfo describes one entity platform.
type PlatformInfo struct {
	// Name is the unique identifier for the platform.
	Name string

	Description string

	// Priority decides which registration wins for the same name.
	Priority int

	// Factory creates the platform's entities for one entry.
	Factory Factory

	// Order specifies the setup order. Lower values are set up first.
	Order int
}

// Registry holds the platforms set up for every entry.
type Registry struct {
	mu        sync.RWMutex
	platforms map[string]PlatformInfo
	order     []string
}

// NewRegistry creates an empty platform registry.
func NewRegistry() *Registry {
	return &Registry{
		platforms: make(map[string]PlatformInfo),
	}
}

// Register adds a platform. For an existing name the higher priority wins;
// on equal priority the later registration wins.
func (r *Registry) Register(info PlatformInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info.Name == "" {
		return fmt.Errorf("platform name cannot be empty")
	}
	if info.Factory == nil {
		return fmt.Errorf("platform %s: factory cannot be nil", info.Name)
	}
	if info.Order == 0 {
		info.Order = defaultOrder
	}

	existing, exists := r.platforms[info.Name]
	if exists && info.Priority < existing.Priority {
		zap.L().Debug("Platform registration skipped",
			zap.String("platform", info.Name),
			zap.Int("priority", info.Priority),
			zap.Int("existing_priority", existing.Priority))
		return nil
	}

	r.platforms[info.Name] = info
	if !exists {
		r.order = append(r.order, info.Name)
	}

	zap.L().Debug("Platform registered",
		zap.String("platform", info.Name),
		zap.Int("priority", info.Priority),
		zap.Int("order", info.Order))
	return nil
}

// Get returns the platform info for name, or nil.
func (r *Registry) Get(name string) *PlatformInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.platforms[name]
	if !ok {
		return nil
	}
	return &info
}

// List returns all platforms sorted by order, then name.
func (r *Registry) List() []PlatformInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]PlatformInfo, 0, len(r.platforms))
	for _, name := range r.order {
		result = append(result, r.platforms[name])
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// Names returns platform names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

var globalRegistry = NewRegistry()

// Register adds a platform to the global registry. Platform packages call
// it from init.
func Register(info PlatformInfo) error {
	return globalRegistry.Register(info)
}

// Platforms returns the global registry.
func Platforms() *Registry {
	return globalRegistry
}
