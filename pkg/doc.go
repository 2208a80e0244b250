// Package pkg provides the libraries behind framekit, an incremental
// constraint-based UI layout engine.
//
// # Overview
//
// Every entity in a scene owns four layout variables (left, top, width,
// height) and a set of linear constraints over them and over other entities'
// variables. A Cassowary solver keeps the constraints satisfied as the window
// resizes and as entities are hidden or collapsed, and each tick reports only
// the positions that changed.
//
// # Architecture
//
//	scene document (TOML / YAML)
//	         ↓
//	    [scene] (parse, validate, resolve constraint expressions)
//	         ↓
//	    [layout] (engine: resize + visibility events → solver updates)
//	         ↓
//	    [core/solver] (incremental Cassowary)
//	         ↓
//	    rectangles → [render] (SVG/PDF/PNG/DOT) or [server] (HTTP)
//
// # Quick Start
//
//	doc, _ := scene.Load("dashboard.toml")
//	w, _ := scene.Build(doc, layout.Options{})
//	defer w.Close()
//
//	w.Tick()
//	w.Resize(1024, 768)
//	_ = w.SetVisibility("sidebar", draw.Collapsed)
//	stats := w.Tick()
//	fmt.Println(stats.ChangedPositions)
//
// # Main Packages
//
// [core/solver] - Incremental Cassowary simplex solver: required and
// weighted constraints, edit variables, dual-simplex re-optimisation.
//
// [ecs] and [event] - Component storage keyed by entity and the
// single-producer event channels the engine reads each tick.
//
// [draw] - The Visible/Hidden/Collapsed visibility state.
//
// [layout] - Positions, constraint sets, rectangles and the tick-driven
// engine that feeds resize and visibility events to the solver.
//
// [scene] - Scene documents and the World that builds entities from them.
//
// [render/wireframe] and [render/nodelink] - Wireframe SVG of solved
// rectangles and Graphviz diagrams of the entity tree.
//
// [server] - A single-goroutine host for a World and its HTTP API.
//
// [observability] - Hooks for ticks, resizes and rejected constraints, with
// a Prometheus implementation.
//
// [cache] - Rendered artifact cache keyed by the solved layout.
//
// [errors] - Coded errors shared by the CLI and the HTTP API.
//
// [core/solver]: https://pkg.go.dev/github.com/matzehuels/framekit/pkg/core/solver
// [ecs]: https://pkg.go.dev/github.com/matzehuels/framekit/pkg/ecs
// [event]: https://pkg.go.dev/github.com/matzehuels/framekit/pkg/event
// [draw]: https://pkg.go.dev/github.com/matzehuels/framekit/pkg/draw
// [layout]: https://pkg.go.dev/github.com/matzehuels/framekit/pkg/layout
// [scene]: https://pkg.go.dev/github.com/matzehuels/framekit/pkg/scene
// [render]: https://pkg.go.dev/github.com/matzehuels/framekit/pkg/render
// [render/wireframe]: https://pkg.go.dev/github.com/matzehuels/framekit/pkg/render/wireframe
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/framekit/pkg/render/nodelink
// [server]: https://pkg.go.dev/github.com/matzehuels/framekit/pkg/server
// [observability]: https://pkg.go.dev/github.com/matzehuels/framekit/pkg/observability
// [cache]: https://pkg.go.dev/github.com/matzehuels/framekit/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/framekit/pkg/errors
package pkg
