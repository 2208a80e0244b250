package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/framekit/pkg/errors"
	"github.com/matzehuels/framekit/pkg/layout"
	"github.com/matzehuels/framekit/pkg/scene"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// solveOpts holds the command-line flags for the solve command.
type solveOpts struct {
	sceneOpts
	format string   // output format: table, json, yaml
	output string   // output file, stdout when empty
	resize []string // window sizes applied after the first tick, one tick each
	ticks  int      // extra idle ticks after the last resize
}

// solveResult is the machine-readable output of solve.
type solveResult struct {
	Document string                  `json:"document" yaml:"document"`
	Window   layout.ScreenDimensions `json:"window" yaml:"window"`
	Rejected int                     `json:"rejected" yaml:"rejected"`
	Nodes    []scene.Node            `json:"nodes" yaml:"nodes"`
}

func (c *CLI) solveCommand() *cobra.Command {
	opts := solveOpts{format: formatTable}

	cmd := &cobra.Command{
		Use:   "solve [scene]",
		Short: "Solve a scene and print every entity's rectangle",
		Long: `Solve loads a scene document (.toml, .yaml or .yml), applies the requested
visibility changes and window sizes, and prints the resolved rectangles.

Examples:
  framekit solve dashboard.toml
  framekit solve dashboard.toml --collapse sidebar --resize 400x600
  framekit solve toolbar.yaml --format json -o layout.json`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: sceneFileCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateSolveFormat(opts.format); err != nil {
				return err
			}
			return c.runSolve(cmd.OutOrStdout(), args[0], opts)
		},
	}

	opts.sceneOpts.register(cmd)
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: table, json, yaml")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringArrayVar(&opts.resize, "resize", nil, "resize to WIDTHxHEIGHT and tick (repeatable)")
	cmd.Flags().IntVar(&opts.ticks, "ticks", 0, "extra idle ticks after the last resize")

	return cmd
}

func validateSolveFormat(f string) error {
	switch f {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %s (must be 'table', 'json', or 'yaml')", f)
}

// parseSize parses "WIDTHxHEIGHT".
func parseSize(s string) (layout.ScreenDimensions, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return layout.ScreenDimensions{}, errors.New(errors.ErrCodeInvalidInput, "invalid size %q (want WIDTHxHEIGHT)", s)
	}
	w, err := strconv.ParseUint(ws, 10, 32)
	if err != nil {
		return layout.ScreenDimensions{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid width in %q", s)
	}
	h, err := strconv.ParseUint(hs, 10, 32)
	if err != nil {
		return layout.ScreenDimensions{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid height in %q", s)
	}
	return layout.ScreenDimensions{Width: uint32(w), Height: uint32(h)}, nil
}

func (c *CLI) runSolve(stdout io.Writer, path string, opts solveOpts) error {
	sizes := make([]layout.ScreenDimensions, 0, len(opts.resize))
	for _, s := range opts.resize {
		dims, err := parseSize(s)
		if err != nil {
			return err
		}
		sizes = append(sizes, dims)
	}

	w, last, err := c.loadWorld(path, opts.sceneOpts)
	if err != nil {
		return err
	}
	defer w.Close()

	rejected := last.Rejected
	for _, dims := range sizes {
		w.Resize(dims.Width, dims.Height)
		last = w.Tick()
		rejected += last.Rejected
		c.Logger.Debugf("Resized to %dx%d: %d positions changed", dims.Width, dims.Height, last.ChangedPositions)
	}
	for i := 0; i < opts.ticks; i++ {
		last = w.Tick()
		rejected += last.Rejected
	}

	res := solveResult{
		Document: w.Document().ID,
		Window:   w.Dimensions(),
		Rejected: rejected,
		Nodes:    w.Nodes(),
	}

	out, err := openOutput(opts.output, stdout)
	if err != nil {
		return err
	}
	defer out.Close()

	switch opts.format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(res)
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		err = enc.Encode(res)
		if err == nil {
			err = enc.Close()
		}
	default:
		printKeyValue(out, "Document", res.Document)
		printKeyValue(out, "Window", fmt.Sprintf("%d × %d", res.Window.Width, res.Window.Height))
		fmt.Fprintln(out, renderNodeTable(res.Nodes))
		printStats(out, last)
		if res.Rejected > 0 {
			printWarning(out, "%d constraint updates were rejected (run with -v for details)", res.Rejected)
		}
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s output", opts.format)
	}
	if opts.output != "" {
		printSuccess(stdout, "Layout written")
		printFile(stdout, opts.output)
	}
	return nil
}

// renderNodeTable renders nodes as a bordered table. Hidden and collapsed
// entities are tinted.
func renderNodeTable(nodes []scene.Node) string {
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, []string{
			n.Name,
			n.Parent,
			n.State.String(),
			formatCoord(n.Rect.Left),
			formatCoord(n.Rect.Top),
			formatCoord(n.Rect.Width),
			formatCoord(n.Rect.Height),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Entity", "Parent", "State", "Left", "Top", "Width", "Height").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader.Padding(0, 1)
			}
			base := stateStyle(nodes[row].State).Padding(0, 1)
			if col >= 3 {
				return base.Align(lipgloss.Right)
			}
			return base
		})
	return t.Render()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
