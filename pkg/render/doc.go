// Package render turns solved scenes into pictures.
//
// # Overview
//
// Two renderers live in subpackages:
//
//   - [wireframe] draws every laid-out entity as a labelled rectangle at its
//     solved position, which is what the layout actually looks like.
//   - [nodelink] draws the entity tree and constraint references as a
//     Graphviz diagram, which is how the layout is wired.
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
//	svg := wireframe.RenderSVG(world.Nodes(), world.Dimensions())
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
package render
