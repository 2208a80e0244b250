package layout

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/framekit/pkg/core/solver"
	"github.com/matzehuels/framekit/pkg/draw"
	"github.com/matzehuels/framekit/pkg/ecs"
	"github.com/matzehuels/framekit/pkg/errors"
	"github.com/matzehuels/framekit/pkg/event"
	"github.com/matzehuels/framekit/pkg/observability"
)

// ScreenDimensions is a window size event.
type ScreenDimensions struct {
	Width  uint32 `json:"width" yaml:"width"`
	Height uint32 `json:"height" yaml:"height"`
}

// Resources are the storages and channels the engine works on. The engine
// writes Positions and Constraints and only reads Visibility.
type Resources struct {
	Root        ecs.Entity
	Positions   *ecs.Storage[*Position]
	Constraints *ConstraintsStorage
	Visibility  *ecs.Storage[draw.Visibility]

	Dimensions       *event.Channel[ScreenDimensions]
	VisibilityEvents *event.Channel[draw.VisibilityEvent]

	// Initial is applied to the window edit variables at construction.
	Initial ScreenDimensions
}

// DefaultEditStrength keeps the window size adjustable under conflicting
// required constraints.
var DefaultEditStrength = solver.Required - 1

// Options configures an Engine.
type Options struct {
	Logger       *log.Logger
	EditStrength solver.Strength
}

// SetDefaults fills unset fields.
func (o *Options) SetDefaults() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.EditStrength == 0 {
		o.EditStrength = DefaultEditStrength
	}
}

// TickStats describes what one Tick did.
type TickStats struct {
	Resized          bool          `json:"resized"`
	VisibilityEvents int           `json:"visibility_events"`
	Updates          int           `json:"updates"`
	Rejected         int           `json:"rejected"`
	ChangedVariables int           `json:"changed_variables"`
	ChangedPositions int           `json:"changed_positions"`
	Duration         time.Duration `json:"duration_ns"`
}

// Engine resolves Constraints into Positions once per tick. It is not safe
// for concurrent use; run Tick after all producers of a frame's events and
// before anything reads Position.
type Engine struct {
	res        Resources
	solver     *layoutSolver
	dimsReader event.ReaderID
	visReader  event.ReaderID
	dims       ScreenDimensions
	logger     *log.Logger
}

// NewEngine registers readers on the event channels, pins the root position
// to the window and applies res.Initial. Entities already Collapsed in
// res.Visibility are collapsed before the first tick.
func NewEngine(res Resources, opts Options) (*Engine, error) {
	if res.Positions == nil || res.Constraints == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "layout engine needs position and constraint storages")
	}
	if res.Dimensions == nil || res.VisibilityEvents == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "layout engine needs dimension and visibility channels")
	}
	if opts.EditStrength.IsRequired() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "edit strength must be below required")
	}
	opts.SetDefaults()

	e := &Engine{
		res:        res,
		solver:     newLayoutSolver(opts.Logger, opts.EditStrength),
		dimsReader: res.Dimensions.Register(),
		visReader:  res.VisibilityEvents.Register(),
		logger:     opts.Logger,
	}
	res.Positions.Insert(res.Root, rootPosition(e.solver.zero, e.solver.width, e.solver.height))
	e.resize(res.Initial)

	if res.Visibility != nil {
		res.Visibility.Each(func(ent ecs.Entity, v draw.Visibility) {
			if v.Get() != draw.Collapsed {
				return
			}
			if c, ok := res.Constraints.Get(ent); ok {
				c.Collapse()
			}
		})
	}
	return e, nil
}

// Root returns the root entity.
func (e *Engine) Root() ecs.Entity { return e.res.Root }

// Dimensions returns the window size last applied.
func (e *Engine) Dimensions() ScreenDimensions { return e.dims }

// Value returns the solved value of v.
func (e *Engine) Value(v solver.Variable) float64 { return e.solver.value(v) }

// Close unregisters the engine's event readers.
func (e *Engine) Close() {
	e.res.Dimensions.Unregister(e.dimsReader)
	e.res.VisibilityEvents.Unregister(e.visReader)
}

// Tick runs one layout pass: the newest resize, every visibility event,
// every queued constraint update, then a position refresh from the changed
// variables. Structural solver errors are logged and skipped. Broken
// variable bookkeeping panics with an *errors.Error.
func (e *Engine) Tick() TickStats {
	start := time.Now()
	var stats TickStats

	if dims, ok := e.res.Dimensions.ReadLast(e.dimsReader); ok {
		e.resize(dims)
		stats.Resized = true
	}

	for _, ev := range e.res.VisibilityEvents.Read(e.visReader) {
		stats.VisibilityEvents++
		needsLayout, changed := ev.NeedsLayoutChanged()
		if !changed {
			continue
		}
		c, ok := e.res.Constraints.Get(ev.Entity)
		if !ok {
			e.logger.Debug("visibility change without constraints", "entity", ev.Entity, "old", ev.Old, "new", ev.New)
			continue
		}
		if needsLayout {
			c.Expand()
		} else {
			c.Collapse()
		}
	}

	stats.Updates = e.res.Constraints.HandleUpdates(func(u ConstraintUpdate) {
		var o outcome
		if u.Kind == AddConstraint {
			o = e.solver.addConstraint(u.Constraint)
		} else {
			o = e.solver.removeConstraint(u.Constraint)
		}
		if !e.solver.must(o) {
			stats.Rejected++
			observability.Layout().OnConstraintRejected(string(o.reason.Code))
		}
	})

	e.adoptPositions()

	changes := e.solver.fetchChanges()
	stats.ChangedVariables = len(changes)
	if len(changes) > 0 {
		e.logger.Debug("apply", "variables", len(changes))
		e.res.Positions.Each(func(_ ecs.Entity, p *Position) {
			if p.Update(changes) {
				stats.ChangedPositions++
			}
		})
	}
	e.solver.clearChanges()

	stats.Duration = time.Since(start)
	observability.Layout().OnTick(observability.TickInfo{
		Resized:          stats.Resized,
		VisibilityEvents: stats.VisibilityEvents,
		Updates:          stats.Updates,
		Rejected:         stats.Rejected,
		ChangedVariables: stats.ChangedVariables,
		ChangedPositions: stats.ChangedPositions,
		Duration:         stats.Duration,
	})
	return stats
}

func (e *Engine) resize(dims ScreenDimensions) {
	e.solver.must(e.solver.resize(e.solver.width, float64(dims.Width)))
	e.solver.must(e.solver.resize(e.solver.height, float64(dims.Height)))
	e.dims = dims
	observability.Layout().OnResize(dims.Width, dims.Height)
}

// adoptPositions inserts the Position of every entity that gained
// Constraints since the last tick.
func (e *Engine) adoptPositions() {
	e.res.Constraints.Each(func(ent ecs.Entity, c *Constraints) {
		if e.res.Positions.Has(ent) {
			return
		}
		p := c.Position()
		p.sync(e.solver.value)
		e.res.Positions.Insert(ent, p)
	})
}
