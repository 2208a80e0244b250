package layout

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/framekit/pkg/core/solver"
	"github.com/matzehuels/framekit/pkg/draw"
	"github.com/matzehuels/framekit/pkg/ecs"
	"github.com/matzehuels/framekit/pkg/errors"
	"github.com/matzehuels/framekit/pkg/event"
	"github.com/matzehuels/framekit/pkg/observability"
)

// testWorld wires storages, channels and an engine the way an application
// would.
type testWorld struct {
	entities *ecs.Entities
	res      Resources
	engine   *Engine
	logs     *bytes.Buffer
}

func newTestWorld(t *testing.T, width, height uint32) *testWorld {
	t.Helper()
	w := &testWorld{entities: ecs.NewEntities(), logs: &bytes.Buffer{}}
	w.res = Resources{
		Root:             w.entities.Create(),
		Positions:        ecs.NewStorage[*Position](),
		Constraints:      NewConstraintsStorage(),
		Visibility:       ecs.NewStorage[draw.Visibility](),
		Dimensions:       event.NewChannel[ScreenDimensions](),
		VisibilityEvents: event.NewChannel[draw.VisibilityEvent](),
		Initial:          ScreenDimensions{Width: width, Height: height},
	}
	w.start(t)
	return w
}

func (w *testWorld) start(t *testing.T) {
	t.Helper()
	logger := log.NewWithOptions(w.logs, log.Options{Level: log.DebugLevel})
	engine, err := NewEngine(w.res, Options{Logger: logger})
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	w.engine = engine
}

func (w *testWorld) root() *Position {
	p, _ := w.res.Positions.Get(w.res.Root)
	return p
}

// spawn creates an entity with a fresh position and the constraints built
// by fn.
func (w *testWorld) spawn(name string, fn func(p *Position) []*solver.Constraint) (ecs.Entity, *Position, *Constraints) {
	e := w.entities.Create()
	p := NewPosition(name)
	c := NewConstraints(p, fn(p)...)
	w.res.Constraints.Insert(e, c)
	return e, p, c
}

func (w *testWorld) setVisibility(e ecs.Entity, state draw.VisibilityState) {
	draw.SetVisibility(w.res.Visibility, w.res.VisibilityEvents, e, state)
}

func eq(lhs, rhs solver.Expression) *solver.Constraint {
	return solver.NewConstraint(lhs, solver.EQ, rhs, solver.Required)
}

func num(v float64) solver.Expression { return solver.Constant(v) }

// row lays out a fixed-size box to the right of prev (or at the root's left
// edge when prev is nil).
func row(root, prev *Position, width, height float64) func(p *Position) []*solver.Constraint {
	return func(p *Position) []*solver.Constraint {
		left := root.Edge(EdgeLeft)
		if prev != nil {
			left = prev.Edge(EdgeRight)
		}
		return []*solver.Constraint{
			eq(p.Edge(EdgeLeft), left),
			eq(p.Edge(EdgeTop), root.Edge(EdgeTop)),
			eq(p.Edge(EdgeWidth), num(width)),
			eq(p.Edge(EdgeHeight), num(height)),
		}
	}
}

func wantRect(t *testing.T, name string, got, want Rect) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func wantNoRejects(t *testing.T, stats TickStats) {
	t.Helper()
	if stats.Rejected != 0 {
		t.Errorf("Rejected = %d, want 0", stats.Rejected)
	}
}

func wantLogged(t *testing.T, w *testWorld, code errors.Code) {
	t.Helper()
	if !strings.Contains(w.logs.String(), string(code)) {
		t.Errorf("log does not mention %s:\n%s", code, w.logs.String())
	}
}

func TestRootFollowsResize(t *testing.T) {
	w := newTestWorld(t, 0, 0)

	w.res.Dimensions.Write(ScreenDimensions{Width: 640, Height: 480})
	if stats := w.engine.Tick(); !stats.Resized {
		t.Error("Resized = false after a dimension event")
	}
	wantRect(t, "root", w.root().Rect(), Rect{Left: 0, Top: 0, Width: 640, Height: 480})

	// only the newest queued size is applied
	w.res.Dimensions.WriteAll(
		ScreenDimensions{Width: 100, Height: 100},
		ScreenDimensions{Width: 1024, Height: 768},
		ScreenDimensions{Width: 320, Height: 240},
	)
	w.engine.Tick()
	wantRect(t, "root", w.root().Rect(), Rect{Width: 320, Height: 240})
	if got := w.engine.Dimensions(); got != (ScreenDimensions{Width: 320, Height: 240}) {
		t.Errorf("Dimensions() = %+v", got)
	}

	stats := w.engine.Tick()
	if stats.Resized || stats.ChangedVariables != 0 {
		t.Errorf("idle tick: Resized=%v ChangedVariables=%d", stats.Resized, stats.ChangedVariables)
	}
}

func TestFullWidthBanner(t *testing.T) {
	w := newTestWorld(t, 800, 600)
	root := w.root()

	_, a, _ := w.spawn("a", func(p *Position) []*solver.Constraint {
		return []*solver.Constraint{
			eq(p.Edge(EdgeWidth), root.Edge(EdgeWidth)),
			eq(p.Edge(EdgeHeight), num(50)),
			eq(p.Edge(EdgeTop), num(0)),
		}
	})

	w.engine.Tick()
	wantRect(t, "a", a.Rect(), Rect{Left: 0, Top: 0, Width: 800, Height: 50})

	w.res.Dimensions.Write(ScreenDimensions{Width: 400, Height: 600})
	w.engine.Tick()
	wantRect(t, "a", a.Rect(), Rect{Left: 0, Top: 0, Width: 400, Height: 50})
	wantRect(t, "root", root.Rect(), Rect{Width: 400, Height: 600})
}

func TestPositionAdoptedOnFirstTick(t *testing.T) {
	w := newTestWorld(t, 200, 100)
	e, p, _ := w.spawn("box", row(w.root(), nil, 30, 10))

	if w.res.Positions.Has(e) {
		t.Fatal("position stored before the first tick")
	}
	w.engine.Tick()
	got, ok := w.res.Positions.Get(e)
	if !ok {
		t.Fatal("position not adopted")
	}
	if got != p {
		t.Error("adopted position is not the one owned by the constraints")
	}
	wantRect(t, "box", p.Rect(), Rect{Width: 30, Height: 10})
}

func TestCollapseReflowsSiblings(t *testing.T) {
	w := newTestWorld(t, 300, 100)
	root := w.root()

	aEnt, a, aCons := w.spawn("a", row(root, nil, 100, 20))
	_, b, _ := w.spawn("b", row(root, a, 100, 20))
	aCons.SetCollapsed(eq(a.Edge(EdgeLeft), root.Edge(EdgeLeft)))

	w.engine.Tick()
	wantA := Rect{Width: 100, Height: 20}
	wantB := Rect{Left: 100, Width: 100, Height: 20}
	if a.Rect() != wantA || b.Rect() != wantB {
		t.Fatalf("initial layout a=%v b=%v", a.Rect(), b.Rect())
	}

	w.setVisibility(aEnt, draw.Collapsed)
	wantNoRejects(t, w.engine.Tick())
	if !aCons.IsCollapsed() {
		t.Error("IsCollapsed() = false")
	}
	wantRect(t, "collapsed a", a.Rect(), Rect{})
	wantRect(t, "b", b.Rect(), Rect{Left: 0, Width: 100, Height: 20})

	w.setVisibility(aEnt, draw.Visible)
	w.engine.Tick()
	if aCons.IsCollapsed() {
		t.Error("IsCollapsed() = true after expand")
	}
	wantRect(t, "a", a.Rect(), wantA)
	wantRect(t, "b", b.Rect(), wantB)
}

func TestCollapseMiddleOfRow(t *testing.T) {
	w := newTestWorld(t, 400, 100)
	root := w.root()

	_, a, _ := w.spawn("a", row(root, nil, 100, 20))
	bEnt, b, bCons := w.spawn("b", row(root, a, 50, 20))
	_, c, _ := w.spawn("c", row(root, b, 70, 20))

	w.engine.Tick()
	if b.Rect() != (Rect{Left: 100, Width: 50, Height: 20}) || c.Rect() != (Rect{Left: 150, Width: 70, Height: 20}) {
		t.Fatalf("initial layout b=%v c=%v", b.Rect(), c.Rect())
	}

	w.setVisibility(bEnt, draw.Collapsed)
	wantNoRejects(t, w.engine.Tick())
	wantRect(t, "collapsed b", b.Rect(), Rect{Left: 100})
	wantRect(t, "c", c.Rect(), Rect{Left: 100, Width: 70, Height: 20})
	wantRect(t, "a", a.Rect(), Rect{Width: 100, Height: 20})

	// edits made while collapsed move the collapsed box too
	moved := eq(b.Edge(EdgeLeft), a.Edge(EdgeRight).AddConstant(10))
	bCons.Replace(
		moved,
		eq(b.Edge(EdgeTop), root.Edge(EdgeTop)),
		eq(b.Edge(EdgeWidth), num(50)),
		eq(b.Edge(EdgeHeight), num(20)),
	)
	w.engine.Tick()
	if got := c.Rect().Left; got != 110 {
		t.Errorf("c.Left = %g after moving collapsed b, want 110", got)
	}

	w.setVisibility(bEnt, draw.Visible)
	wantNoRejects(t, w.engine.Tick())
	wantRect(t, "b", b.Rect(), Rect{Left: 110, Width: 50, Height: 20})
	wantRect(t, "c", c.Rect(), Rect{Left: 160, Width: 70, Height: 20})
}

func TestVisibilityTransitions(t *testing.T) {
	w := newTestWorld(t, 300, 100)
	aEnt, a, _ := w.spawn("a", row(w.root(), nil, 100, 20))
	w.engine.Tick()
	before := a.Rect()

	t.Run("hidden is layout neutral", func(t *testing.T) {
		w.setVisibility(aEnt, draw.Hidden)
		stats := w.engine.Tick()
		if stats.VisibilityEvents != 1 {
			t.Errorf("VisibilityEvents = %d, want 1", stats.VisibilityEvents)
		}
		if stats.Updates != 0 || stats.ChangedVariables != 0 || stats.ChangedPositions != 0 {
			t.Errorf("hidden caused work: %+v", stats)
		}
		wantRect(t, "a", a.Rect(), before)
	})

	t.Run("hidden to visible does not recompute", func(t *testing.T) {
		w.setVisibility(aEnt, draw.Visible)
		stats := w.engine.Tick()
		if stats.Updates != 0 || stats.ChangedPositions != 0 {
			t.Errorf("unhide caused work: %+v", stats)
		}
		wantRect(t, "a", a.Rect(), before)
	})

	t.Run("collapsed to visible recomputes", func(t *testing.T) {
		w.setVisibility(aEnt, draw.Collapsed)
		w.engine.Tick()
		w.setVisibility(aEnt, draw.Visible)
		stats := w.engine.Tick()
		if stats.Updates == 0 || stats.ChangedPositions == 0 {
			t.Errorf("expand did no work: %+v", stats)
		}
		wantRect(t, "a", a.Rect(), before)
	})

	t.Run("collapsed to hidden expands", func(t *testing.T) {
		w.setVisibility(aEnt, draw.Collapsed)
		w.engine.Tick()
		w.setVisibility(aEnt, draw.Hidden)
		w.engine.Tick()
		wantRect(t, "a", a.Rect(), before)
	})

	t.Run("every queued visibility event is applied", func(t *testing.T) {
		w.setVisibility(aEnt, draw.Collapsed)
		w.setVisibility(aEnt, draw.Visible)
		w.setVisibility(aEnt, draw.Collapsed)
		stats := w.engine.Tick()
		if stats.VisibilityEvents != 3 {
			t.Errorf("VisibilityEvents = %d, want 3", stats.VisibilityEvents)
		}
		wantNoRejects(t, stats)
		if a.Rect().Width != 0 {
			t.Errorf("width = %g, want 0 after final collapse", a.Rect().Width)
		}
	})
}

func TestDuplicateConstraintRejected(t *testing.T) {
	w := newTestWorld(t, 300, 100)
	var width *solver.Constraint
	_, a, c := w.spawn("a", func(p *Position) []*solver.Constraint {
		cons := row(w.root(), nil, 100, 20)(p)
		width = cons[2]
		return cons
	})
	w.engine.Tick()
	before := a.Rect()

	c.Add(width)
	stats := w.engine.Tick()
	if stats.Updates != 1 || stats.Rejected != 1 {
		t.Errorf("Updates=%d Rejected=%d, want 1 and 1", stats.Updates, stats.Rejected)
	}
	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}
	wantRect(t, "a", a.Rect(), before)
	wantLogged(t, w, errors.ErrCodeDuplicateConstraint)
}

func TestUnsatisfiableConstraintSkipped(t *testing.T) {
	w := newTestWorld(t, 300, 100)
	_, a, _ := w.spawn("a", func(p *Position) []*solver.Constraint {
		return []*solver.Constraint{
			eq(p.Edge(EdgeWidth), num(100)),
			eq(p.Edge(EdgeWidth), num(200)),
			eq(p.Edge(EdgeHeight), num(30)),
		}
	})

	stats := w.engine.Tick()
	if stats.Updates != 3 || stats.Rejected != 1 {
		t.Errorf("Updates=%d Rejected=%d, want 3 and 1", stats.Updates, stats.Rejected)
	}
	if r := a.Rect(); r.Width != 100 || r.Height != 30 {
		t.Errorf("a = %v, want 100x30", r)
	}
	wantLogged(t, w, errors.ErrCodeUnsatisfiableConstraint)
}

func TestRemoveUnknownConstraintLogged(t *testing.T) {
	w := newTestWorld(t, 300, 100)
	_, p, c := w.spawn("a", row(w.root(), nil, 10, 10))
	w.engine.Tick()

	c.Remove(eq(p.Edge(EdgeWidth), num(10)))
	if stats := w.engine.Tick(); stats.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", stats.Rejected)
	}
	wantLogged(t, w, errors.ErrCodeUnknownConstraint)
	if got := p.Rect().Width; got != 10 {
		t.Errorf("width = %g, want 10", got)
	}
}

func TestReplaceAppliesOnlyDifference(t *testing.T) {
	w := newTestWorld(t, 300, 100)
	root := w.root()
	var cons []*solver.Constraint
	_, p, c := w.spawn("cell", func(p *Position) []*solver.Constraint {
		cons = row(root, nil, 50, 10)(p)
		return cons
	})
	w.engine.Tick()

	wider := eq(p.Edge(EdgeWidth), num(80))
	c.Replace(cons[0], cons[1], wider, cons[3])
	stats := w.engine.Tick()
	if stats.Updates != 2 {
		t.Errorf("Updates = %d, want 2", stats.Updates)
	}
	wantNoRejects(t, stats)
	wantRect(t, "cell", p.Rect(), Rect{Width: 80, Height: 10})
}

func TestRemoveEntityRetractsConstraints(t *testing.T) {
	w := newTestWorld(t, 300, 100)
	e, _, c := w.spawn("a", row(w.root(), nil, 10, 10))
	w.engine.Tick()
	active := c.Active()

	if !w.res.Constraints.Remove(e) {
		t.Fatal("Remove() = false for a stored entity")
	}
	stats := w.engine.Tick()
	if stats.Updates != len(active) {
		t.Errorf("Updates = %d, want %d", stats.Updates, len(active))
	}
	wantNoRejects(t, stats)
	for _, cn := range active {
		if w.engine.solver.solver.HasConstraint(cn) {
			t.Errorf("%s still in solver", cn)
		}
	}
}

func TestInitiallyCollapsedEntity(t *testing.T) {
	w := &testWorld{entities: ecs.NewEntities(), logs: &bytes.Buffer{}}
	w.res = Resources{
		Root:             w.entities.Create(),
		Positions:        ecs.NewStorage[*Position](),
		Constraints:      NewConstraintsStorage(),
		Visibility:       ecs.NewStorage[draw.Visibility](),
		Dimensions:       event.NewChannel[ScreenDimensions](),
		VisibilityEvents: event.NewChannel[draw.VisibilityEvent](),
		Initial:          ScreenDimensions{Width: 100, Height: 100},
	}
	e, p, c := w.spawn("a", func(p *Position) []*solver.Constraint {
		return []*solver.Constraint{eq(p.Edge(EdgeWidth), num(40)), eq(p.Edge(EdgeHeight), num(40))}
	})
	// no reader is registered yet, so only the component records the state
	w.setVisibility(e, draw.Collapsed)

	w.start(t)
	wantNoRejects(t, w.engine.Tick())
	if !c.IsCollapsed() {
		t.Error("IsCollapsed() = false")
	}
	wantRect(t, "a", p.Rect(), Rect{})
}

func TestAccumulatorClearedEveryTick(t *testing.T) {
	w := newTestWorld(t, 300, 100)
	w.spawn("a", row(w.root(), nil, 10, 10))

	if stats := w.engine.Tick(); stats.ChangedVariables == 0 {
		t.Error("first tick changed no variables")
	}
	if n := len(w.engine.solver.changes); n != 0 {
		t.Errorf("%d changes left after tick", n)
	}

	for range 3 {
		if stats := w.engine.Tick(); stats.ChangedVariables != 0 {
			t.Errorf("idle tick changed %d variables", stats.ChangedVariables)
		}
		if n := len(w.engine.solver.changes); n != 0 {
			t.Errorf("%d changes left after idle tick", n)
		}
	}
}
// convergencePool returns constraints over one position that never conflict
// at required strength, and the weak baseline that keeps every variable
// uniquely determined whatever subset of the pool is active.
func convergencePool(p *Position) (pool, baseline []*solver.Constraint) {
	pool = []*solver.Constraint{
		eq(p.Edge(EdgeLeft), num(10)),
		eq(p.Edge(EdgeTop), num(5)),
		eq(p.Edge(EdgeWidth), num(100)),
		eq(p.Edge(EdgeHeight), num(50)),
		solver.NewConstraint(p.Edge(EdgeWidth), solver.LE, num(150), solver.Required),
		solver.NewConstraint(p.Edge(EdgeTop), solver.GE, num(2), solver.Required),
	}
	baseline = []*solver.Constraint{
		solver.NewConstraint(p.Edge(EdgeLeft), solver.EQ, num(0), solver.Weak),
		solver.NewConstraint(p.Edge(EdgeTop), solver.EQ, num(0), solver.Weak),
		solver.NewConstraint(p.Edge(EdgeWidth), solver.EQ, num(200), solver.Weak),
		solver.NewConstraint(p.Edge(EdgeHeight), solver.EQ, num(200), solver.Weak),
	}
	return pool, baseline
}

func TestIdempotentConvergence(t *testing.T) {
	for seed := uint64(1); seed <= 8; seed++ {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(seed, 42))

			w := newTestWorld(t, 300, 300)
			var pool []*solver.Constraint
			_, p, c := w.spawn("a", func(p *Position) []*solver.Constraint {
				var baseline []*solver.Constraint
				pool, baseline = convergencePool(p)
				return baseline
			})

			live := make([]bool, len(pool))
			for i := range 120 {
				k := rng.IntN(len(pool))
				if rng.IntN(2) == 0 {
					c.Add(pool[k])
					live[k] = true
				} else {
					c.Remove(pool[k])
					live[k] = false
				}
				if i%7 == 0 {
					w.engine.Tick()
				}
			}
			w.engine.Tick()

			fresh := newTestWorld(t, 300, 300)
			_, q, _ := fresh.spawn("a", func(q *Position) []*solver.Constraint {
				freshPool, baseline := convergencePool(q)
				for k, on := range live {
					if on {
						baseline = append(baseline, freshPool[k])
					}
				}
				return baseline
			})
			if stats := fresh.engine.Tick(); stats.Rejected != 0 {
				t.Fatalf("fresh build rejected %d constraints", stats.Rejected)
			}

			got, want := p.Rect(), q.Rect()
			for _, d := range []struct {
				edge      string
				got, want float64
			}{
				{"left", got.Left, want.Left},
				{"top", got.Top, want.Top},
				{"width", got.Width, want.Width},
				{"height", got.Height, want.Height},
			} {
				if math.Abs(d.got-d.want) > 1e-9 {
					t.Errorf("%s = %g, fresh build has %g", d.edge, d.got, d.want)
				}
			}
		})
	}
}

func TestHooksReceiveTicks(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	hooks := &recordingHooks{}
	observability.SetLayoutHooks(hooks)

	w := newTestWorld(t, 300, 100)
	_, p, c := w.spawn("a", row(w.root(), nil, 10, 10))
	w.engine.Tick()
	c.Add(eq(p.Edge(EdgeWidth), num(99)))
	w.engine.Tick()

	if hooks.ticks != 2 || hooks.resizes != 1 {
		t.Errorf("ticks=%d resizes=%d, want 2 and 1", hooks.ticks, hooks.resizes)
	}
	if !slices.Equal(hooks.rejected, []string{string(errors.ErrCodeUnsatisfiableConstraint)}) {
		t.Errorf("rejected = %v", hooks.rejected)
	}
}

type recordingHooks struct {
	ticks, resizes int
	rejected       []string
}

func (h *recordingHooks) OnTick(observability.TickInfo)    { h.ticks++ }
func (h *recordingHooks) OnResize(uint32, uint32)          { h.resizes++ }
func (h *recordingHooks) OnConstraintRejected(code string) { h.rejected = append(h.rejected, code) }

func TestNewEngineValidation(t *testing.T) {
	full := func() Resources {
		return Resources{
			Positions:        ecs.NewStorage[*Position](),
			Constraints:      NewConstraintsStorage(),
			Dimensions:       event.NewChannel[ScreenDimensions](),
			VisibilityEvents: event.NewChannel[draw.VisibilityEvent](),
		}
	}
	tests := []struct {
		name   string
		mutate func(*Resources, *Options)
	}{
		{"no positions", func(r *Resources, _ *Options) { r.Positions = nil }},
		{"no constraints", func(r *Resources, _ *Options) { r.Constraints = nil }},
		{"no dimensions", func(r *Resources, _ *Options) { r.Dimensions = nil }},
		{"no visibility events", func(r *Resources, _ *Options) { r.VisibilityEvents = nil }},
		{"required edit strength", func(_ *Resources, o *Options) { o.EditStrength = solver.Required }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := full()
			opts := Options{Logger: log.NewWithOptions(io.Discard, log.Options{})}
			tt.mutate(&res, &opts)
			_, err := NewEngine(res, opts)
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("NewEngine() error = %v, want %s", err, errors.ErrCodeInvalidInput)
			}
		})
	}
}

func TestEngineClose(t *testing.T) {
	w := newTestWorld(t, 10, 10)
	w.engine.Close()
	w.res.Dimensions.Write(ScreenDimensions{Width: 5, Height: 5})
	if n := w.res.Dimensions.Len(); n != 0 {
		t.Errorf("closed engine still receives dimensions: %d queued", n)
	}
}
