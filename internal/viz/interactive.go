package viz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/popsim/internal/config"
	"github.com/san-kum/popsim/internal/experiment"
	"github.com/san-kum/popsim/internal/models"
	"github.com/san-kum/popsim/internal/plot"
)

const formWidth = 36

// runMsg asks the lab to integrate the current coefficient set.
type runMsg struct{}

// Lab is the interactive form: one editable field per coefficient, a plot of
// the last run and a few status lines. Runs are synchronous; the view is
// redrawn once the integration returns.
type Lab struct {
	session *experiment.Session
	fields  []string
	cursor  int
	editing bool
	editBuf string

	xAxis, yAxis plot.Axis
	runs         int
	status       string
	failed       bool

	theme         int
	styles        styles
	width, height int
}

func NewLab(session *experiment.Session, cfg *config.Config) Lab {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return Lab{
		session: session,
		fields:  models.Names,
		xAxis:   cfg.Plot.X,
		yAxis:   cfg.Plot.Y,
		styles:  newStyles(Themes[0]),
		width:   100,
		height:  30,
	}
}

// RunLab starts the lab full screen and blocks until the user quits.
func RunLab(session *experiment.Session, cfg *config.Config) error {
	_, err := tea.NewProgram(NewLab(session, cfg), tea.WithAltScreen()).Run()
	return err
}

func (m Lab) Init() tea.Cmd {
	return func() tea.Msg { return runMsg{} }
}

func (m Lab) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runMsg:
		m.rerun()
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		if m.editing {
			return m.editKey(msg), nil
		}
		return m.formKey(msg)
	}
	return m, nil
}

func (m Lab) formKey(msg tea.KeyMsg) (Lab, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j", "tab":
		if m.cursor < len(m.fields)-1 {
			m.cursor++
		}
	case "enter":
		m.editing, m.editBuf = true, ""
	case "r":
		m.rerun()
	case "x":
		m.xAxis = m.xAxis.Next()
	case "y":
		m.yAxis = m.yAxis.Next()
	case "t":
		m.theme = (m.theme + 1) % len(Themes)
		m.styles = newStyles(Themes[m.theme])
	default:
		if isNumeric(key) && key != "e" && key != "E" {
			m.editing, m.editBuf = true, key
		}
	}
	return m, nil
}

func (m Lab) editKey(msg tea.KeyMsg) Lab {
	switch key := msg.String(); key {
	case "enter":
		m.commit()
	case "esc":
		m.editing, m.editBuf = false, ""
	case "backspace":
		if len(m.editBuf) > 0 {
			m.editBuf = m.editBuf[:len(m.editBuf)-1]
		}
	default:
		if isNumeric(key) {
			m.editBuf += key
		}
	}
	return m
}

// commit applies the edit buffer to the selected field. Input that does not
// parse to a positive number is dropped and the old value kept.
func (m *Lab) commit() {
	name := m.fields[m.cursor]
	if m.session.SetCoefficientText(name, m.editBuf) {
		v, _ := m.session.Coefficients().Get(name)
		m.status, m.failed = fmt.Sprintf("%s = %g", models.Label(name), v), false
	} else {
		m.status, m.failed = fmt.Sprintf("ignored input for %s", models.Label(name)), false
	}
	m.editing, m.editBuf = false, ""
}

func (m *Lab) rerun() {
	res, err := m.session.Run(context.Background())
	m.runs++
	if err != nil {
		m.status, m.failed = "run failed: "+err.Error(), true
		return
	}
	m.status, m.failed = fmt.Sprintf("%s: %d steps, %d rejected", res.Integrator, res.Stats.Steps, res.Stats.Rejected), false
}

func isNumeric(key string) bool {
	if len(key) != 1 {
		return false
	}
	c := key[0]
	return (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E'
}

// Axes returns the plot axes currently selected.
func (m Lab) Axes() (plot.Axis, plot.Axis) { return m.xAxis, m.yAxis }

// Runs counts the integrations performed so far, failed ones included.
func (m Lab) Runs() int { return m.runs }

func (m Lab) Status() string { return m.status }

func (m Lab) View() string {
	s := m.styles
	form := s.panel.Width(formWidth).Render(m.viewForm())

	plotWidth := m.width - formWidth - 8
	plotHeight := m.height - 12
	if plotHeight < 8 {
		plotHeight = 8
	}
	fig := plot.Select(m.xAxis, m.yAxis, m.session.Last())
	chart := s.panel.Render(s.title.Render(fig.Kind.String()) + "\n" + RenderFigure(fig, plotWidth, plotHeight))

	var b strings.Builder
	b.WriteString(s.title.Render("POPSIM") + "  " + s.subtitle.Render("three species food chain") + "\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, form, " ", chart) + "\n")
	b.WriteString(m.viewStatus() + "\n")
	b.WriteString(s.hints("j/k", "select", "enter", "edit", "r", "run", "x/y", "axes", "t", "theme", "q", "quit") + "\n")
	return b.String()
}

func (m Lab) viewForm() string {
	s := m.styles
	coef := m.session.Coefficients()

	var b strings.Builder
	for i, name := range m.fields {
		v, _ := coef.Get(name)
		val := fmt.Sprintf("%10.4g", v)
		if m.editing && i == m.cursor {
			val = fmt.Sprintf("%10s", m.editBuf+"_")
		}
		label := fmt.Sprintf("%-18s", models.Label(name))
		if i == m.cursor {
			b.WriteString(s.cursor.Render("▸ ") + s.selected.Render(label) + s.value.Render(val))
		} else {
			b.WriteString("  " + s.label.Render(label) + s.muted.Render(val))
		}
		if i < len(m.fields)-1 {
			b.WriteString("\n")
		}
		if name == models.RateNames[len(models.RateNames)-1] {
			b.WriteString(s.separator(formWidth-2) + "\n")
		}
	}
	return b.String()
}

func (m Lab) viewStatus() string {
	s := m.styles
	var lines []string

	res := m.session.Last()
	switch {
	case res == nil:
		lines = append(lines, s.muted.Render("no run yet"))
	case res.HasEquilibrium():
		eq := res.Equilibrium
		line := s.label.Render("steady state ") + s.value.Render(fmt.Sprintf("x1*=%.4g  x2*=%.4g  x3*=%.4g", eq.X1, eq.X2, eq.X3))
		if !eq.Feasible {
			line += "  " + s.err.Render("not feasible")
		}
		if res.Stability != nil {
			line += "  " + s.label.Render(string(res.Stability.Class))
		}
		lines = append(lines, line)
	case errors.Is(res.EquilibriumErr, models.ErrNoInteriorEquilibrium):
		lines = append(lines, s.err.Render("no interior equilibrium"))
	default:
		lines = append(lines, s.err.Render(res.EquilibriumErr.Error()))
	}

	lines = append(lines, s.label.Render("axes ")+s.value.Render(m.xAxis.String()+" / "+m.yAxis.String()))
	if m.status != "" {
		if m.failed {
			lines = append(lines, s.err.Render(m.status))
		} else {
			lines = append(lines, s.ok.Render(m.status))
		}
	}
	return strings.Join(lines, "\n")
}
