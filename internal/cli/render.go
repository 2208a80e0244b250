package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/framekit/pkg/cache"
	"github.com/matzehuels/framekit/pkg/errors"
	"github.com/matzehuels/framekit/pkg/render"
	"github.com/matzehuels/framekit/pkg/render/nodelink"
	"github.com/matzehuels/framekit/pkg/render/wireframe"
	"github.com/matzehuels/framekit/pkg/scene"
)

const (
	vizWireframe = "wireframe" // solved rectangles on a window-sized canvas
	vizNodelink  = "nodelink"  // entity tree and constraint references
	pngScale     = 2.0
	artifactTTL  = 7 * 24 * time.Hour
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	sceneOpts
	output     string   // output file path (or base path for multiple outputs)
	vizTypes   []string // visualization types: "wireframe", "nodelink"
	formats    []string // output formats: "svg", "pdf", "png", "dot"
	detailed   bool     // show rects and state in nodelink labels
	references bool     // draw constraint reference edges in nodelink diagrams
	hidden     bool     // outline hidden entities in wireframes
	noCache    bool      // bypass the artifact cache
	progress   io.Writer // spinner output for slow conversions
}

func (c *CLI) renderCommand() *cobra.Command {
	var vizTypesStr, formatsStr string
	opts := renderOpts{references: true}

	cmd := &cobra.Command{
		Use:               "render [scene]",
		Short:             "Render a solved scene to SVG, PDF, PNG or DOT",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: sceneFileCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.vizTypes = parseVizTypes(vizTypesStr)
			opts.formats = parseFormats(formatsStr)
			if err := validateVizTypes(opts.vizTypes); err != nil {
				return err
			}
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			opts.progress = cmd.ErrOrStderr()
			return c.runRender(cmd.Context(), cmd.OutOrStdout(), args[0], &opts)
		},
	}

	opts.sceneOpts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single type/format) or base path (multiple)")
	cmd.Flags().StringVarP(&vizTypesStr, "type", "t", "", "visualization type(s): wireframe (default), nodelink (comma-separated)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), pdf, png, dot (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show rectangles and visibility in nodelink labels")
	cmd.Flags().BoolVar(&opts.references, "references", opts.references, "draw constraint reference edges (nodelink)")
	cmd.Flags().BoolVar(&opts.hidden, "hidden", false, "outline hidden entities (wireframe)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "render even when a cached artifact exists")

	return cmd
}

// parseVizTypes parses the --type flag. If empty, defaults to ["wireframe"].
func parseVizTypes(s string) []string {
	if s == "" {
		return []string{vizWireframe}
	}
	return strings.Split(s, ",")
}

// parseFormats parses the --format flag. If empty, defaults to ["svg"].
func parseFormats(s string) []string {
	if s == "" {
		return []string{"svg"}
	}
	return strings.Split(s, ",")
}

// validFormats is the set of supported output formats.
var validFormats = map[string]bool{"svg": true, "pdf": true, "png": true, "dot": true}

func validateFormats(formats []string) error {
	for _, f := range formats {
		if !validFormats[f] {
			return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %s (must be 'svg', 'pdf', 'png', or 'dot')", f)
		}
	}
	return nil
}

func validateVizTypes(types []string) error {
	for _, t := range types {
		if t != vizWireframe && t != vizNodelink {
			return errors.New(errors.ErrCodeInvalidInput, "invalid type: %s (must be 'wireframe' or 'nodelink')", t)
		}
	}
	return nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .pdf, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if validFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// outputPath names one output file. The type is only part of the name when
// more than one type is rendered.
func outputPath(base, vizType, format string, multipleTypes bool) string {
	if multipleTypes {
		return fmt.Sprintf("%s_%s.%s", base, vizType, format)
	}
	return fmt.Sprintf("%s.%s", base, format)
}

// errSkipFormat marks an unsupported visualization/format combination.
var errSkipFormat = stderrors.New("skip unsupported format")

func (c *CLI) runRender(ctx context.Context, stdout io.Writer, input string, opts *renderOpts) error {
	w, _, err := c.loadWorld(input, opts.sceneOpts)
	if err != nil {
		return err
	}
	defer w.Close()

	store := c.openCache(opts.noCache)
	defer store.Close()

	single := len(opts.vizTypes) == 1 && len(opts.formats) == 1
	base := basePath(opts.output, input)

	for _, vizType := range opts.vizTypes {
		for _, format := range opts.formats {
			data, err := c.renderCached(ctx, store, w, vizType, format, opts)
			if stderrors.Is(err, errSkipFormat) {
				c.Logger.Debugf("Skipping %s/%s (unsupported combination)", vizType, format)
				continue
			}
			if err != nil {
				return fmt.Errorf("%s/%s: %w", vizType, format, err)
			}

			path := outputPath(base, vizType, format, len(opts.vizTypes) > 1)
			if single && opts.output != "" {
				path = opts.output
			}
			if err := writeFile(path, data); err != nil {
				return err
			}
			c.Logger.Debugf("Generated %s: %d bytes", path, len(data))
			printFile(stdout, path)
		}
	}
	return nil
}

// renderCached returns the cached artifact for the current layout, rendering
// and storing it on a miss. Cache failures only cost a re-render.
func (c *CLI) renderCached(ctx context.Context, store cache.Cache, w *scene.World, vizType, format string, opts *renderOpts) ([]byte, error) {
	key := cache.Key("artifact", vizType, format, w.Dimensions(), w.Nodes(),
		opts.detailed, opts.references, opts.hidden)

	if data, ok, err := store.Get(ctx, key); err != nil {
		c.Logger.Warn("Cache read failed", "err", err)
	} else if ok {
		c.Logger.Debugf("Cache hit for %s/%s", vizType, format)
		return data, nil
	}

	data, err := c.renderScene(ctx, w, vizType, format, opts)
	if err != nil {
		return nil, err
	}
	if err := store.Set(ctx, key, data, artifactTTL); err != nil {
		c.Logger.Warn("Cache write failed", "err", err)
	}
	return data, nil
}

func (c *CLI) renderScene(ctx context.Context, w *scene.World, vizType, format string, opts *renderOpts) ([]byte, error) {
	switch vizType {
	case vizNodelink:
		return c.renderNodeLink(ctx, w, format, opts)
	case vizWireframe:
		return c.renderWireframe(ctx, w, format, opts)
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown visualization type: %s", vizType)
}

func (c *CLI) renderNodeLink(ctx context.Context, w *scene.World, format string, opts *renderOpts) ([]byte, error) {
	dot := nodelink.ToDOT(w.Nodes(), nodelink.Options{Detailed: opts.detailed, References: opts.references})

	switch format {
	case "dot":
		return []byte(dot), nil
	case "svg":
		c.Logger.Info("Rendering node-link SVG")
		return nodelink.RenderSVG(ctx, dot)
	case "pdf":
		return withSpinner(ctx, opts.progress, "Rendering node-link PDF", func() ([]byte, error) {
			return nodelink.RenderPDF(ctx, dot)
		})
	case "png":
		return withSpinner(ctx, opts.progress, "Rendering node-link PNG", func() ([]byte, error) {
			return nodelink.RenderPNG(ctx, dot, pngScale)
		})
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown format: %s", format)
}

func (c *CLI) renderWireframe(ctx context.Context, w *scene.World, format string, opts *renderOpts) ([]byte, error) {
	var svgOpts []wireframe.SVGOption
	if opts.hidden {
		svgOpts = append(svgOpts, wireframe.WithHidden())
	}
	if format != "svg" {
		// Converted output has no page colour of its own.
		svgOpts = append(svgOpts, wireframe.WithBackground("white"))
	}
	svg := wireframe.RenderSVG(w.Nodes(), w.Dimensions(), svgOpts...)

	switch format {
	case "dot":
		return nil, errSkipFormat
	case "svg":
		c.Logger.Info("Rendering wireframe SVG")
		return svg, nil
	case "pdf":
		return withSpinner(ctx, opts.progress, "Rendering wireframe PDF", func() ([]byte, error) {
			return render.ToPDF(ctx, svg)
		})
	case "png":
		return withSpinner(ctx, opts.progress, "Rendering wireframe PNG", func() ([]byte, error) {
			return render.ToPNG(ctx, svg, pngScale)
		})
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown format: %s", format)
}

func writeFile(path string, data []byte) error {
	out, err := openOutput(path, io.Discard)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := out.Write(data); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}
