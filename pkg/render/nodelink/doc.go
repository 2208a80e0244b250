// Package nodelink renders a scene's entity tree as a node-link diagram.
//
// # Overview
//
// Entities appear as boxes connected by arrows from parent to child. With
// [Options.References] set, dashed edges show which other entities each
// entity's constraints refer to, which is usually the quickest way to see why
// one box moves when another collapses.
//
// # Usage
//
//	dot := nodelink.ToDOT(world.Nodes(), nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)  // 2x scale
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG go through rsvg-convert, see [render.ToPDF].
package nodelink
