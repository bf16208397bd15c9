package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mCRL2org/ltsgraph/pkg/graph"
	ltsio "github.com/mCRL2org/ltsgraph/pkg/io"
	"github.com/mCRL2org/ltsgraph/pkg/layout"
	"github.com/mCRL2org/ltsgraph/pkg/render/ascii"
	"github.com/mCRL2org/ltsgraph/pkg/worker"
)

// frameInterval is how often the watch view redraws.
const frameInterval = 100 * time.Millisecond

// Watch styles
var (
	watchHeaderStyle = StyleTitle
	watchStatusStyle = lipgloss.NewStyle().Foreground(colorGray)
	watchStableStyle = StyleSuccess
	watchHelpStyle   = lipgloss.NewStyle().Foreground(colorDim)
)

// watchCommand creates the watch command, a live terminal view of a layout
// in progress.
func (c *CLI) watchCommand() *cobra.Command {
	var labels bool

	cmd := &cobra.Command{
		Use:   "watch [model.aut|model.json]",
		Short: "Watch a layout settle in the terminal",
		Long: `Watch a layout settle in the terminal.

The model is laid out by a background worker while the terminal shows the XY
projection of the graph. Keys:

  space  pause or resume
  r      scatter the nodes again
  t      toggle the Barnes-Hut tree
  e      toggle exploration from the initial state
  o      open the next closed state while exploring
  l      toggle labels
  q      quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			m, err := ltsio.ImportModel(args[0])
			if err != nil {
				return err
			}

			store := graph.NewStore()
			engine := layout.New(store, append(cfg.EngineOptions(), layout.WithLogger(c.Logger))...)
			if err := engine.Load(m); err != nil {
				return err
			}
			w := worker.New(engine, worker.WithPeriod(cfg.Worker.Period()), worker.WithLogger(c.Logger))

			model := newWatchModel(cmd.Context(), args[0], engine, w)
			model.labels = labels
			model.worker.Start(model.ctx)
			defer model.worker.Wait()
			defer model.worker.Stop()

			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&labels, "labels", false, "show state labels")
	return cmd
}

// =============================================================================
// watchModel - Live layout view
// =============================================================================

type frameMsg time.Time

// watchModel is the bubbletea model for the watch command.
type watchModel struct {
	ctx    context.Context
	name   string
	engine *layout.Engine
	worker *worker.Worker

	width, height int
	labels        bool
	frame         string
	stats         layout.Stats
	exploring     bool
}

func newWatchModel(ctx context.Context, name string, e *layout.Engine, w *worker.Worker) *watchModel {
	return &watchModel{
		ctx:    ctx,
		name:   name,
		engine: e,
		worker: w,
		width:  80,
		height: 24,
	}
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *watchModel) Init() tea.Cmd {
	m.redraw()
	return tick()
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			if m.worker.Active() {
				m.worker.Stop()
			} else {
				m.worker.Start(m.ctx)
			}
		case "r":
			m.engine.Randomize()
		case "t":
			m.engine.SetTreeEnabled(!m.engine.TreeEnabled())
		case "e":
			m.store().Update(func(g *graph.Graph) {
				if g.Exploring() {
					g.DiscardExploration()
				} else {
					g.StartExploration()
				}
			})
		case "o":
			m.store().Update(openNext)
		case "l":
			m.labels = !m.labels
		}
		m.redraw()
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.redraw()
	case frameMsg:
		m.redraw()
		return m, tick()
	}
	return m, nil
}

// openNext opens the first visible state that is still closed.
func openNext(g *graph.Graph) {
	if !g.Exploring() {
		return
	}
	for i := range g.WorkingNodeCount() {
		idx := g.WorkingNode(i)
		if !g.Node(idx).Active && g.CanToggle(idx) {
			_ = g.ToggleOpen(idx)
			return
		}
	}
}

func (m *watchModel) store() *graph.Store { return m.engine.Store() }

// redraw snapshots the graph into a text frame.
func (m *watchModel) redraw() {
	opts := ascii.Options{
		Width:  m.width,
		Height: max(m.height-3, 1),
		Labels: m.labels,
	}
	m.store().Read(func(g *graph.Graph) {
		m.frame = ascii.Draw(g, opts).String()
		m.exploring = g.Exploring()
	})
	m.stats = m.engine.LastStats()
}

func (m *watchModel) View() string {
	var b strings.Builder

	b.WriteString(watchHeaderStyle.Render(appName + " " + m.name))
	b.WriteString("\n")
	b.WriteString(m.frame)
	b.WriteString("\n")

	state := "running"
	switch {
	case m.stats.Stable:
		state = watchStableStyle.Render("stable")
	case !m.worker.Active():
		state = "paused"
	}
	tree := "off"
	if m.engine.TreeEnabled() {
		tree = "on"
	}
	status := fmt.Sprintf("%s · iter %d · %d nodes · %d edges · T %.3f · tree %s",
		state, m.stats.Iteration, m.stats.Nodes, m.stats.Edges, m.stats.Temperature, tree)
	if m.exploring {
		status += " · exploring"
	}
	b.WriteString(watchStatusStyle.Render(status))
	b.WriteString("\n")
	b.WriteString(watchHelpStyle.Render("space pause  r randomize  t tree  e explore  o open  l labels  q quit"))

	return b.String()
}
