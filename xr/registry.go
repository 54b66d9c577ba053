package xr

import (
	"sync"
)

// Runtime names used by the built-in priority order.
const (
	RuntimeOpenXR = "openxr"
	RuntimeSim    = "sim"
)

// Factory creates a runtime instance. A factory returns nil when its
// runtime is unavailable on this machine (loader missing, not supported).
type Factory func() Runtime

var (
	registryMu sync.RWMutex
	runtimes   = make(map[string]Factory)
	// Priority order for runtime selection (first available wins).
	// A real runtime always beats the simulator.
	runtimePriority = []string{RuntimeOpenXR, RuntimeSim}
)

// Register registers a runtime factory with the given name.
// This is typically called from init() functions in runtime packages.
// If a runtime with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	runtimes[name] = factory
}

// Unregister removes a runtime from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(runtimes, name)
}

// Available returns a list of registered runtime names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(runtimes))
	for name := range runtimes {
		names = append(names, name)
	}
	return names
}

// IsRegistered checks if a runtime with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := runtimes[name]
	return ok
}

// Get returns a runtime instance by name.
// Returns nil if the runtime is not registered or not available.
func Get(name string) Runtime {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := runtimes[name]
	if !ok {
		return nil
	}
	return factory()
}

// Default returns the best available runtime based on priority.
// Priority order: openxr > sim.
// Returns nil if no runtime is available.
func Default() Runtime {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range runtimePriority {
		if factory, ok := runtimes[name]; ok {
			if r := factory(); r != nil {
				return r
			}
		}
	}

	// Fallback: return first available
	for _, factory := range runtimes {
		if r := factory(); r != nil {
			return r
		}
	}

	return nil
}
