// Package wireframe draws a solved scene as SVG rectangles.
//
// Every entity that takes part in layout becomes a translucent box at its
// resolved position, labelled with its name. The canvas is the window size
// the scene was last solved for:
//
//	world.Tick()
//	svg := wireframe.RenderSVG(world.Nodes(), world.Dimensions(), wireframe.WithHidden())
//
// Collapsed entities are never drawn. Hidden entities are skipped unless
// [WithHidden] is passed, in which case they get a dashed outline so the
// space they reserve stays visible.
package wireframe
