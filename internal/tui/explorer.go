// Package tui is an interactive terminal explorer driving a fractal session.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/fraclab/internal/analysis"
	"github.com/san-kum/fraclab/internal/config"
	"github.com/san-kum/fraclab/internal/session"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))

	frame = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("238"))
)

type opMsg struct {
	res session.Result
	err error
}

type model struct {
	sess      *session.Session
	presets   []string
	presetIdx int

	snap     session.Snapshot
	busy     bool
	status   string
	err      error
	showHist bool
	hist     analysis.Histogram

	width  int
	height int
}

func newModel(sess *session.Session) model {
	return model{
		sess:      sess,
		presets:   config.ListPresets(),
		presetIdx: -1,
		snap:      sess.Snapshot(),
		width:     80,
		height:    24,
	}
}

func (m model) Init() tea.Cmd {
	return m.run(func(s *session.Session) (session.Result, error) {
		return s.Generate(session.GenerateParams{})
	})
}

func (m model) run(op func(*session.Session) (session.Result, error)) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		res, err := op(sess)
		return opMsg{res: res, err: err}
	}
}

func (m model) generate(p session.GenerateParams) tea.Cmd {
	return m.run(func(s *session.Session) (session.Result, error) { return s.Generate(p) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case opMsg:
		m.busy = false
		m.err = msg.err
		m.snap = m.sess.Snapshot()
		if msg.err != nil {
			m.status = msg.res.Op + " failed"
		} else {
			m.status = fmt.Sprintf("%s %s in %s", msg.res.Op, msg.res.Image, msg.res.Duration.Round(time.Millisecond))
		}
		if m.showHist {
			m.refreshHistogram()
		}
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	key := msg.String()
	if key == "q" || key == "ctrl+c" {
		return m, tea.Quit
	}
	if key == "h" {
		m.showHist = !m.showHist
		if m.showHist {
			m.refreshHistogram()
		}
		return m, nil
	}
	if m.busy {
		return m, nil
	}

	p := m.snap.Params
	spanRe := float64(p.Cols) * p.PixelPitch
	spanIm := float64(p.Rows) * p.PixelPitch

	var cmd tea.Cmd
	switch key {
	case "left":
		cmd = m.generate(session.GenerateParams{CenterRe: session.Float64(p.CenterRe - spanRe/10)})
	case "right":
		cmd = m.generate(session.GenerateParams{CenterRe: session.Float64(p.CenterRe + spanRe/10)})
	case "up":
		cmd = m.generate(session.GenerateParams{CenterIm: session.Float64(p.CenterIm + spanIm/10)})
	case "down":
		cmd = m.generate(session.GenerateParams{CenterIm: session.Float64(p.CenterIm - spanIm/10)})
	case "+", "=":
		cmd = m.generate(session.GenerateParams{PixelPitch: session.Float64(p.PixelPitch / 2)})
	case "-", "_":
		cmd = m.generate(session.GenerateParams{PixelPitch: session.Float64(p.PixelPitch * 2)})
	case "[":
		its := p.MaxIterations / 2
		if its < 1 {
			its = 1
		}
		cmd = m.generate(session.GenerateParams{MaxIterations: session.Uint32(its)})
	case "]":
		its := p.MaxIterations * 2
		if its > session.MaxIterationsCap {
			its = session.MaxIterationsCap
		}
		cmd = m.generate(session.GenerateParams{MaxIterations: session.Uint32(its)})
	case "p":
		if len(m.presets) == 0 {
			return m, nil
		}
		m.presetIdx = (m.presetIdx + 1) % len(m.presets)
		preset, _ := config.GetPreset(m.presets[m.presetIdx])
		d := preset.Apply(config.ViewDefaults{Rows: p.Rows, Cols: p.Cols, MaxIterations: p.MaxIterations})
		cmd = m.generate(session.GenerateParams{
			CenterRe:      session.Float64(d.CenterRe),
			CenterIm:      session.Float64(d.CenterIm),
			PixelPitch:    session.Float64(d.Pitch),
			MaxIterations: session.Uint32(d.MaxIterations),
		})
	case "r":
		cmd = m.run(func(s *session.Session) (session.Result, error) { return s.Render() })
	default:
		return m, nil
	}
	m.busy = true
	m.status = "working..."
	return m, cmd
}

func (m *model) refreshHistogram() {
	res, err := m.sess.Histogram()
	if err != nil {
		m.hist = analysis.Histogram{}
		return
	}
	m.hist = res.Histogram
}

func (m model) View() string {
	var b strings.Builder
	p := m.snap.Params

	b.WriteString("\n")
	b.WriteString("  " + cyan.Render("f r a c l a b") + "  " + dim.Render(m.snap.State.String()))
	if m.presetIdx >= 0 {
		b.WriteString("  " + magenta.Render(m.presets[m.presetIdx]))
	}
	b.WriteString("\n")
	b.WriteString(dimmer.Render("  "+strings.Repeat("─", 40)) + "\n")
	b.WriteString(fmt.Sprintf("  %s %s  %s %s  %s %s\n",
		dim.Render("center"), white.Render(fmt.Sprintf("%.10g%+.10gi", p.CenterRe, p.CenterIm)),
		dim.Render("pitch"), white.Render(fmt.Sprintf("%.3g", p.PixelPitch)),
		dim.Render("its"), white.Render(fmt.Sprintf("%d", p.MaxIterations)),
	))
	b.WriteString(fmt.Sprintf("  %s %s  %s %s\n",
		dim.Render("size"), white.Render(fmt.Sprintf("%dx%d", p.Cols, p.Rows)),
		dim.Render("palette"), white.Render(p.PaletteFile),
	))

	pw, ph := m.previewSize()
	if lines := Preview(m.snap.Grid, pw, ph); lines != nil {
		b.WriteString(frame.Render(strings.Join(lines, "\n")) + "\n")
	} else {
		b.WriteString(dim.Render("  no grid yet") + "\n")
	}

	if m.showHist {
		if plot := HistogramPlot(m.hist, pw-8, 6, "escape counts"); plot != "" {
			b.WriteString(plot + "\n")
		}
	}

	switch {
	case m.err != nil:
		b.WriteString("  " + red.Render(m.err.Error()) + "\n")
	case m.busy:
		b.WriteString("  " + yellow.Render(m.status) + "\n")
	case m.status != "":
		b.WriteString("  " + green.Render(m.status) + "\n")
	}
	b.WriteString(dim.Render("  ←↑↓→ pan  +/- zoom  [ ] iterations  p preset  r render  h histogram  q quit") + "\n")
	return b.String()
}

func (m model) previewSize() (int, int) {
	w := m.width - 4
	h := m.height - 12
	if m.showHist {
		h -= 8
	}
	if w < 20 {
		w = 20
	}
	if h < 6 {
		h = 6
	}
	return w, h
}

// Run starts the explorer on sess in the alternate screen.
func Run(sess *session.Session) error {
	p := tea.NewProgram(newModel(sess), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
