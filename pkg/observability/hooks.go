// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about layout ticks and scene loading.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so the layout engine never
// imports a metrics backend. [PrometheusHooks] is the bundled backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    hooks := observability.NewPrometheusHooks(prometheus.DefaultRegisterer)
//	    observability.SetLayoutHooks(hooks)
//	    observability.SetSceneHooks(hooks)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Layout().OnResize(width, height)
//	observability.Layout().OnTick(observability.TickInfo{...})
package observability

import (
	"sync"
	"time"
)

// =============================================================================
// Layout Hooks
// =============================================================================

// TickInfo summarizes one layout tick.
type TickInfo struct {
	Resized          bool          // a screen-dimension event was applied
	VisibilityEvents int           // visibility events consumed
	Updates          int           // constraint updates sent to the solver
	Rejected         int           // updates the solver refused
	ChangedVariables int           // solver variables whose value changed
	ChangedPositions int           // positions rewritten
	Duration         time.Duration // wall time of the tick
}

// LayoutHooks receives events from the layout engine.
type LayoutHooks interface {
	// OnTick records a completed tick.
	OnTick(info TickInfo)

	// OnResize records a window size applied to the root edit variables.
	OnResize(width, height uint32)

	// OnConstraintRejected records a structural solver rejection by error code.
	OnConstraintRejected(code string)
}

// =============================================================================
// Scene Hooks
// =============================================================================

// SceneHooks receives events from scene document loading.
type SceneHooks interface {
	// OnSceneLoad records a scene document decode and build.
	OnSceneLoad(format string, entities int, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnTick(TickInfo)             {}
func (NoopLayoutHooks) OnResize(uint32, uint32)     {}
func (NoopLayoutHooks) OnConstraintRejected(string) {}

// NoopSceneHooks is a no-op implementation of SceneHooks.
type NoopSceneHooks struct{}

func (NoopSceneHooks) OnSceneLoad(string, int, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	layoutHooks LayoutHooks = NoopLayoutHooks{}
	sceneHooks  SceneHooks  = NoopSceneHooks{}
	hooksMu     sync.RWMutex
)

// SetLayoutHooks registers custom layout hooks.
// This should be called once at application startup before any engine ticks.
func SetLayoutHooks(h LayoutHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		layoutHooks = h
	}
}

// SetSceneHooks registers custom scene hooks.
// This should be called once at application startup before any scene loads.
func SetSceneHooks(h SceneHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		sceneHooks = h
	}
}

// Layout returns the registered layout hooks.
func Layout() LayoutHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return layoutHooks
}

// Scene returns the registered scene hooks.
func Scene() SceneHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return sceneHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	layoutHooks = NoopLayoutHooks{}
	sceneHooks = NoopSceneHooks{}
}
