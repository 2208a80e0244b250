package wireframe

import (
	"bytes"
	"fmt"
	"html"

	"github.com/matzehuels/framekit/pkg/draw"
	"github.com/matzehuels/framekit/pkg/layout"
	"github.com/matzehuels/framekit/pkg/scene"
)

const boxInteractionCSS = `
    .box { transition: stroke-width 0.2s ease; }
    .box:hover { stroke-width: 3; }
    .box.hidden { stroke-dasharray: 6 4; fill-opacity: 0.15; }
    .box-text { font-family: ui-monospace, monospace; pointer-events: none; }`

// SVGOption configures RenderSVG.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	labels     bool
	hidden     bool
	root       bool
	fontSize   float64
	palette    []string
	background string
}

// WithoutLabels omits entity names.
func WithoutLabels() SVGOption { return func(r *svgRenderer) { r.labels = false } }

// WithHidden draws Hidden entities with a dashed outline instead of skipping
// them.
func WithHidden() SVGOption { return func(r *svgRenderer) { r.hidden = true } }

// WithRoot draws the root entity as the window frame.
func WithRoot() SVGOption { return func(r *svgRenderer) { r.root = true } }

// WithFontSize sets the label size in pixels.
func WithFontSize(px float64) SVGOption { return func(r *svgRenderer) { r.fontSize = px } }

// WithBackground sets the canvas fill.
func WithBackground(color string) SVGOption { return func(r *svgRenderer) { r.background = color } }

// RenderSVG draws every entity of nodes at its solved position on a canvas
// the size of dims. Collapsed entities and empty rectangles are skipped.
// Boxes are drawn in document order, so children paint over parents.
func RenderSVG(nodes []scene.Node, dims layout.ScreenDimensions, opts ...SVGOption) []byte {
	r := newSVGRenderer(opts...)
	w, h := float64(dims.Width), float64(dims.Height)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		w, h, w, h)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", boxInteractionCSS)
	if r.background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", r.background)
	}

	boxes := r.visible(nodes)
	for i, n := range boxes {
		r.renderBox(&buf, n, r.palette[i%len(r.palette)])
	}
	if r.labels {
		for _, n := range boxes {
			r.renderText(&buf, n)
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func newSVGRenderer(opts ...SVGOption) svgRenderer {
	r := svgRenderer{
		labels:   true,
		fontSize: 12,
		palette:  defaultPalette,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func (r *svgRenderer) visible(nodes []scene.Node) []scene.Node {
	out := make([]scene.Node, 0, len(nodes))
	for _, n := range nodes {
		switch {
		case n.Name == scene.RootName && !r.root:
		case n.State == draw.Collapsed, n.Rect.IsEmpty():
		case n.State == draw.Hidden && !r.hidden:
		default:
			out = append(out, n)
		}
	}
	return out
}

func (r *svgRenderer) renderBox(buf *bytes.Buffer, n scene.Node, fill string) {
	class := "box"
	if n.State == draw.Hidden {
		class += " hidden"
	}
	if n.Name == scene.RootName {
		fill = "none"
	}
	fmt.Fprintf(buf, `  <rect id="box-%s" class="%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" fill-opacity="0.35" stroke="#333" stroke-width="1"><title>%s %s</title></rect>`+"\n",
		html.EscapeString(n.Name), class, n.Rect.Left, n.Rect.Top, n.Rect.Width, n.Rect.Height, fill,
		html.EscapeString(n.Name), n.Rect)
}

func (r *svgRenderer) renderText(buf *bytes.Buffer, n scene.Node) {
	size := min(r.fontSize, n.Rect.Height*0.6)
	if size < 4 {
		return
	}
	fmt.Fprintf(buf, `  <text class="box-text" x="%.2f" y="%.2f" font-size="%.1f" text-anchor="middle" dominant-baseline="middle">%s</text>`+"\n",
		n.Rect.CenterX(), n.Rect.CenterY(), size, html.EscapeString(n.Name))
}

var defaultPalette = []string{
	"#8ecae6", "#ffb703", "#90be6d", "#f28482", "#b8c0ff", "#f6bd60", "#84a59d", "#cdb4db",
}
