package cli

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/framekit/pkg/draw"
	"github.com/matzehuels/framekit/pkg/layout"
	"github.com/matzehuels/framekit/pkg/scene"
)

// chromeRows is the number of terminal rows the viewer uses for its header
// and footer. The scene gets the rest.
const chromeRows = 2

// viewOpts holds the command-line flags for the view command.
type viewOpts struct {
	sceneOpts
	metricsAddr string // expose Prometheus metrics while viewing
	logFile     string // write logs here instead of discarding them
}

func (c *CLI) viewCommand() *cobra.Command {
	var opts viewOpts

	cmd := &cobra.Command{
		Use:   "view [scene]",
		Short: "Interactively resize a scene and toggle entity visibility",
		Long: `View lays the scene out in the terminal: the window is the terminal, one
cell per unit. Resize the terminal to resize the scene.

Keys:
  ↑/↓ or j/k   select entity
  c            toggle collapsed
  h            toggle hidden
  v            make visible
  tab          switch between boxes and table
  q            quit`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: sceneFileCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(cmd, args[0], opts)
		},
	}

	opts.sceneOpts.register(cmd)
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "write logs to this file (logs are discarded otherwise)")

	return cmd
}

func (c *CLI) runView(cmd *cobra.Command, path string, opts viewOpts) error {
	// The viewer owns the terminal, so logs must not go to stderr.
	var logOut io.Writer = io.Discard
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	c.Logger.SetOutput(logOut)

	if opts.metricsAddr != "" {
		reg := installMetrics()
		addr, err := c.serveMetrics(cmd.Context(), opts.metricsAddr, reg)
		if err != nil {
			return err
		}
		c.Logger.Info("Serving metrics", "addr", addr)
	}

	w, _, err := c.loadWorld(path, opts.sceneOpts)
	if err != nil {
		return err
	}
	defer w.Close()

	p := tea.NewProgram(newViewModel(w), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}

// =============================================================================
// viewModel - Interactive scene viewer
// =============================================================================

type viewModel struct {
	world     *scene.World
	names     []string
	cursor    int
	showTable bool
	stats     layout.TickStats
	status    string
}

func newViewModel(w *scene.World) viewModel {
	return viewModel{world: w, names: w.Names()}
}

func (m viewModel) Init() tea.Cmd {
	return nil
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := max(msg.Height-chromeRows, 1)
		m.world.Resize(uint32(max(msg.Width, 1)), uint32(height))
		m.stats = m.world.Tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.names)-1 {
				m.cursor++
			}
		case "tab":
			m.showTable = !m.showTable
		case "c":
			m.toggle(draw.Collapsed)
		case "h":
			m.toggle(draw.Hidden)
		case "v":
			m.set(draw.Visible)
		}
	}
	return m, nil
}

func (m *viewModel) selected() string {
	if len(m.names) == 0 {
		return ""
	}
	return m.names[m.cursor]
}

func (m *viewModel) toggle(state draw.VisibilityState) {
	if err := m.world.Toggle(m.selected(), state); err != nil {
		m.status = err.Error()
		return
	}
	m.stats = m.world.Tick()
	m.status = ""
}

func (m *viewModel) set(state draw.VisibilityState) {
	if err := m.world.SetVisibility(m.selected(), state); err != nil {
		m.status = err.Error()
		return
	}
	m.stats = m.world.Tick()
	m.status = ""
}

func (m viewModel) View() string {
	var b strings.Builder
	nodes := m.world.Nodes()
	dims := m.world.Dimensions()

	selected := m.selected()
	state, _ := m.world.Visibility(selected)
	b.WriteString(StyleTitle.Render(m.world.Document().ID))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %d×%d  ", dims.Width, dims.Height)))
	b.WriteString(stateStyle(state).Bold(true).Render(selected))
	b.WriteString(StyleDim.Render(" " + state.String()))
	b.WriteString("\n")

	if m.showTable {
		b.WriteString(renderNodeTable(nodes))
		b.WriteString("\n")
	} else {
		b.WriteString(renderCanvas(nodes, dims, selected))
	}

	footer := fmt.Sprintf("↑/↓ select  c collapse  h hide  v show  tab table  q quit  ·  %d changed in %s",
		m.stats.ChangedPositions, m.stats.Duration)
	if m.status != "" {
		b.WriteString(styleIconError.Render(iconError + " " + m.status))
	} else {
		b.WriteString(StyleDim.Render(footer))
	}
	return b.String()
}

// =============================================================================
// Canvas
// =============================================================================

type boxRunes struct {
	h, v, tl, tr, bl, br rune
}

var (
	thinBox  = boxRunes{'─', '│', '┌', '┐', '└', '┘'}
	heavyBox = boxRunes{'━', '┃', '┏', '┓', '┗', '┛'}
)

// renderCanvas draws every laid-out, drawable entity as a box outline, one
// cell per layout unit. The selected entity is drawn last with heavy lines.
func renderCanvas(nodes []scene.Node, dims layout.ScreenDimensions, selected string) string {
	w, h := int(dims.Width), int(dims.Height)
	if w <= 0 || h <= 0 {
		return ""
	}
	grid := make([][]rune, h)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", w))
	}

	var sel *scene.Node
	for i := range nodes {
		n := &nodes[i]
		if n.Name == scene.RootName || !drawable(n) {
			continue
		}
		if n.Name == selected {
			sel = n
			continue
		}
		drawBox(grid, n, thinBox)
	}
	if sel != nil {
		drawBox(grid, sel, heavyBox)
	}

	var b strings.Builder
	for _, row := range grid {
		b.WriteString(lipgloss.NewStyle().Foreground(colorGray).Render(string(row)))
		b.WriteString("\n")
	}
	return b.String()
}

func drawable(n *scene.Node) bool {
	return n.State == draw.Visible && !n.Rect.IsEmpty()
}

// drawBox outlines n's rectangle in grid, clipped to the grid, and writes the
// entity name into the top edge when it fits.
func drawBox(grid [][]rune, n *scene.Node, r boxRunes) {
	x0, y0 := int(math.Round(n.Rect.Left)), int(math.Round(n.Rect.Top))
	x1, y1 := int(math.Round(n.Rect.Right()))-1, int(math.Round(n.Rect.Bottom()))-1
	if x1 < x0 || y1 < y0 {
		return
	}

	set := func(x, y int, c rune) {
		if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[y]) {
			grid[y][x] = c
		}
	}
	for x := x0; x <= x1; x++ {
		set(x, y0, r.h)
		set(x, y1, r.h)
	}
	for y := y0; y <= y1; y++ {
		set(x0, y, r.v)
		set(x1, y, r.v)
	}
	set(x0, y0, r.tl)
	set(x1, y0, r.tr)
	set(x0, y1, r.bl)
	set(x1, y1, r.br)

	label := []rune(n.Name)
	if len(label) <= x1-x0-1 {
		for i, c := range label {
			set(x0+1+i, y0, c)
		}
	}
}
