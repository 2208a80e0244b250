package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/framekit/pkg/draw"
	"github.com/matzehuels/framekit/pkg/layout"
	"github.com/matzehuels/framekit/pkg/scene"
)

// ErrStopped is returned by Host operations after Run has returned.
var ErrStopped = errors.New("host stopped")

// Snapshot is the layout published after a tick.
type Snapshot struct {
	Document string                  `json:"document"`
	Tick     uint64                  `json:"tick"`
	Window   layout.ScreenDimensions `json:"window"`
	Nodes    []scene.Node            `json:"nodes"`
	Stats    layout.TickStats        `json:"stats"`
}

// Node returns the named node of the snapshot.
func (s Snapshot) Node(name string) (scene.Node, bool) {
	for _, n := range s.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return scene.Node{}, false
}

type op struct {
	apply func(w *scene.World) error
	reply chan error
}

// Host owns a World and drives it from a single goroutine. Other goroutines
// submit operations, each of which is applied and followed by a tick before
// the caller is answered, and read the last published Snapshot.
type Host struct {
	world  *scene.World
	logger *log.Logger
	ops    chan op
	done   chan struct{}

	mu   sync.RWMutex
	snap Snapshot
	tick uint64
}

// NewHost ticks w once and returns a host for it. Call Run to start serving
// operations.
func NewHost(w *scene.World, logger *log.Logger) *Host {
	if logger == nil {
		logger = log.Default()
	}
	h := &Host{
		world:  w,
		logger: logger,
		ops:    make(chan op),
		done:   make(chan struct{}),
	}
	h.publish(w.Tick())
	return h
}

// Run applies operations until ctx is done. The world is closed on return.
func (h *Host) Run(ctx context.Context) error {
	defer close(h.done)
	defer h.world.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case o := <-h.ops:
			err := o.apply(h.world)
			if err == nil {
				h.publish(h.world.Tick())
			}
			o.reply <- err
		}
	}
}

func (h *Host) publish(stats layout.TickStats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tick++
	h.snap = Snapshot{
		Document: h.world.Document().ID,
		Tick:     h.tick,
		Window:   h.world.Dimensions(),
		Nodes:    h.world.Nodes(),
		Stats:    stats,
	}
	h.logger.Debug("layout published", "tick", h.tick, "changed", stats.ChangedPositions, "took", stats.Duration)
}

// Snapshot returns the last published layout.
func (h *Host) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}

func (h *Host) submit(ctx context.Context, apply func(w *scene.World) error) error {
	o := op{apply: apply, reply: make(chan error, 1)}
	select {
	case h.ops <- o:
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-o.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resize sets the window size and waits for the resulting tick.
func (h *Host) Resize(ctx context.Context, width, height uint32) error {
	return h.submit(ctx, func(w *scene.World) error {
		w.Resize(width, height)
		return nil
	})
}

// SetVisibility changes an entity's visibility and waits for the resulting
// tick.
func (h *Host) SetVisibility(ctx context.Context, name string, state draw.VisibilityState) error {
	return h.submit(ctx, func(w *scene.World) error {
		return w.SetVisibility(name, state)
	})
}

// Refresh runs a tick with no input, which republishes the snapshot.
func (h *Host) Refresh(ctx context.Context) error {
	return h.submit(ctx, func(*scene.World) error { return nil })
}

// waitTimeout bounds how long a request waits for the tick goroutine.
const waitTimeout = 5 * time.Second
