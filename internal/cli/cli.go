// Package cli implements the framekit command-line interface.
package cli

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/framekit/pkg/buildinfo"
	"github.com/matzehuels/framekit/pkg/draw"
	"github.com/matzehuels/framekit/pkg/errors"
	"github.com/matzehuels/framekit/pkg/layout"
	"github.com/matzehuels/framekit/pkg/scene"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display and completions.
	appName = "framekit"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Framekit solves constraint-based UI layouts",
		Long:         `Framekit loads a scene of entities and linear layout constraints, solves it incrementally for a window size, and shows how it reflows as the window resizes and entities collapse.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.solveCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Scene Helpers
// =============================================================================

// sceneOpts are the flags shared by every command that loads a scene.
type sceneOpts struct {
	width    uint32   // overrides the document's window width when non-zero
	height   uint32   // overrides the document's window height when non-zero
	collapse []string // entities to collapse before solving
	hide     []string // entities to hide before solving
}

func (o *sceneOpts) register(cmd *cobra.Command) {
	cmd.Flags().Uint32Var(&o.width, "width", 0, "window width (default from the scene)")
	cmd.Flags().Uint32Var(&o.height, "height", 0, "window height (default from the scene)")
	cmd.Flags().StringSliceVar(&o.collapse, "collapse", nil, "entities to collapse (comma-separated)")
	cmd.Flags().StringSliceVar(&o.hide, "hide", nil, "entities to hide (comma-separated)")
}

// loadWorld loads the scene at path, applies the window override and the
// visibility flags, and runs the first tick.
func (c *CLI) loadWorld(path string, opts sceneOpts) (*scene.World, layout.TickStats, error) {
	prog := newProgress(c.Logger)
	doc, err := scene.Load(path)
	if err != nil {
		return nil, layout.TickStats{}, err
	}
	if opts.width != 0 {
		doc.Window.Width = opts.width
	}
	if opts.height != 0 {
		doc.Window.Height = opts.height
	}

	w, err := scene.Build(doc, layout.Options{Logger: c.Logger})
	if err != nil {
		return nil, layout.TickStats{}, err
	}
	if err := applyVisibility(w, opts.hide, draw.Hidden); err != nil {
		w.Close()
		return nil, layout.TickStats{}, err
	}
	if err := applyVisibility(w, opts.collapse, draw.Collapsed); err != nil {
		w.Close()
		return nil, layout.TickStats{}, err
	}

	stats := w.Tick()
	c.Logger.Debugf("First tick: %d updates, %d rejected, %d positions changed",
		stats.Updates, stats.Rejected, stats.ChangedPositions)
	prog.done("Solved " + path)
	return w, stats, nil
}

func applyVisibility(w *scene.World, names []string, state draw.VisibilityState) error {
	for _, name := range names {
		if err := w.SetVisibility(strings.TrimSpace(name), state); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Output Helpers
// =============================================================================

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput opens path for writing, or returns w when path is empty.
func openOutput(path string, w io.Writer) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{w}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", path)
	}
	return f, nil
}
