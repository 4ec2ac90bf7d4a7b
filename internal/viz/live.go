package viz

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/Ratz-innovator/fusionsim/internal/metrics"
	"github.com/Ratz-innovator/fusionsim/internal/pde"
	"github.com/Ratz-innovator/fusionsim/internal/render"
)

const (
	canvasCols  = 64
	canvasRows  = 18
	tickRate    = time.Second / 30
	maxPerTick  = 64
	peakHistory = 200
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model steps a run live and keeps every retained snapshot so the user can
// scrub back through them once stepping pauses or finishes.
type Model struct {
	cfg     pde.Config
	stepper *pde.Stepper
	bounds  render.Bounds
	canvas  *Canvas
	theme   Theme
	keys    keyMap
	help    help.Model

	history  pde.Snapshots
	steps    []int
	playHead int
	peaks    []float64

	running bool
	perTick int
	gifPath string
	notice  string
	err     error
}

// NewModel prepares a player for cfg. gifPath is where the G key writes the
// animation of a finished run.
func NewModel(cfg pde.Config, gifPath string) (Model, error) {
	st, err := pde.NewStepper(cfg)
	if err != nil {
		return Model{}, err
	}
	initial := st.Field()
	return Model{
		cfg:      cfg,
		stepper:  st,
		bounds:   render.NewBounds(cfg, pde.Snapshots{initial}),
		canvas:   NewCanvas(canvasCols, canvasRows),
		theme:    ThemeThermal,
		keys:     defaultKeys(),
		help:     fullHelp(),
		history:  pde.Snapshots{initial},
		steps:    []int{0},
		playHead: -1,
		peaks:    []float64{initial.Max()},
		running:  true,
		perTick:  1,
		gifPath:  gifPath,
	}, nil
}

func fullHelp() help.Model {
	h := help.New()
	h.ShowAll = true
	return h
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.running = !m.running
		case key.Matches(msg, m.keys.Reset):
			m.reset()
		case key.Matches(msg, m.keys.Back):
			m.scrub(-1)
		case key.Matches(msg, m.keys.Ahead):
			m.scrub(1)
		case key.Matches(msg, m.keys.Faster):
			m.perTick = min(m.perTick*2, maxPerTick)
		case key.Matches(msg, m.keys.Slower):
			m.perTick = max(m.perTick/2, 1)
		case key.Matches(msg, m.keys.Theme):
			m.theme = m.theme.Next()
		case key.Matches(msg, m.keys.Save):
			m.saveGIF()
		}
	case TickMsg:
		if m.running && m.playHead == -1 {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

// advance runs up to perTick steps, recording retained states.
func (m *Model) advance() {
	for i := 0; i < m.perTick && m.stepper.Phase() != pde.PhaseDone; i++ {
		keep, err := m.stepper.Step()
		if err != nil {
			m.err = err
			m.running = false
			return
		}

		f := m.stepper.Field()
		m.peaks = append(m.peaks, f.Max())
		if len(m.peaks) > peakHistory {
			m.peaks = m.peaks[1:]
		}
		if keep {
			m.history = append(m.history, f)
			m.steps = append(m.steps, m.stepper.StepIndex())
		}
	}
	if m.stepper.Phase() == pde.PhaseDone {
		m.running = false
	}
}

func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

func (m *Model) reset() {
	st, err := pde.NewStepper(m.cfg)
	if err != nil {
		m.err = err
		return
	}
	initial := st.Field()
	m.stepper = st
	m.history = pde.Snapshots{initial}
	m.steps = []int{0}
	m.peaks = []float64{initial.Max()}
	m.playHead = -1
	m.running = true
	m.err = nil
	m.notice = ""
}

func (m *Model) saveGIF() {
	if m.stepper.Phase() != pde.PhaseDone {
		m.notice = "finish the run before saving"
		return
	}
	f, err := os.Create(m.gifPath)
	if err != nil {
		m.notice = err.Error()
		return
	}
	defer f.Close()
	if err := render.WriteGIF(f, m.cfg, m.history, render.DefaultOptions()); err != nil {
		m.notice = err.Error()
		return
	}
	m.notice = "saved " + m.gifPath
}

// current returns the field on screen and its step index.
func (m Model) current() ([]float64, int) {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead], m.steps[m.playHead]
	}
	return m.stepper.Field(), m.stepper.StepIndex()
}

func (m Model) View() string {
	st := newStyles(m.theme)
	field, step := m.current()

	m.canvas.Clear()
	m.canvas.Plot(field, m.bounds.YMin, m.bounds.YMax)
	canvasView := st.canvas.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.cfg.Kind().Title())) + "\n")

	switch {
	case m.err != nil:
		s.WriteString(st.failed.Render("FAILED") + "\n" + st.value.Render(m.err.Error()) + "\n\n")
	case m.playHead >= 0:
		s.WriteString(st.status.Render(fmt.Sprintf("REPLAY %d/%d", m.playHead+1, len(m.history))) + "\n\n")
	case m.stepper.Phase() == pde.PhaseDone:
		s.WriteString(st.status.Render("DONE") + "\n\n")
	case m.running:
		s.WriteString(st.status.Render(fmt.Sprintf("RUNNING x%d", m.perTick)) + "\n\n")
	default:
		s.WriteString(st.status.Render("PAUSED") + "\n\n")
	}

	if len(m.peaks) > 1 {
		chart := asciigraph.Plot(m.peaks, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Peak"))
		s.WriteString(st.graph.Render(chart) + "\n\n")
	}

	dx := m.cfg.CellSize
	mesh, _ := pde.NewMesh(m.cfg.CellCount, dx)
	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Step", fmt.Sprintf("%d / %d", step, m.cfg.StepCount))
	row("Time", fmt.Sprintf("%.3f", float64(step)*m.cfg.TimeStep))
	row("Peak", fmt.Sprintf("%.4f", pde.Field(field).Max()))
	row("Mass", fmt.Sprintf("%.4f", metrics.Mass(field, dx)))
	if mesh != nil {
		row("Centroid", fmt.Sprintf("%.3f", metrics.Centroid(field, mesh.Centers())))
	}
	row("Frames", fmt.Sprintf("%d", len(m.history)))
	if m.notice != "" {
		s.WriteString("\n" + st.value.Render(m.notice) + "\n")
	}

	s.WriteString(st.help.Render(m.help.View(m.keys)))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.panel.Render(s.String()))
}

// Snapshots returns the states retained so far.
func (m Model) Snapshots() pde.Snapshots { return m.history }

// Err returns the failure that stopped the run, if any.
func (m Model) Err() error { return m.err }

// Run starts the player full screen and blocks until the user quits.
func Run(cfg pde.Config, gifPath string) error {
	m, err := NewModel(cfg, gifPath)
	if err != nil {
		return err
	}
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		return fm.Err()
	}
	return nil
}
