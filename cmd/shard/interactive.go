package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	shardruntime "github.com/wippyai/shard-runtime"
	"github.com/wippyai/shard-runtime/cmd/shard/internal/config"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// chrome is the number of rows the model draws around the canvas.
const chrome = 5

type interactiveModel struct {
	err     error
	s       *session
	input   textinput.Model
	size    shardruntime.Size
	fixed   bool
	editing bool
	loaded  bool
}

type loadedMsg struct {
	err error
}

func newInteractiveModel(s *session, initial shardruntime.Size, fixed bool) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "WxH, e.g. 60x20 or 60x*"
	ti.CharLimit = 16
	ti.Width = 24
	return &interactiveModel{s: s, input: ti, size: initial, fixed: fixed}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.reload
}

func (m *interactiveModel) reload() tea.Msg {
	return loadedMsg{err: m.s.load(m.size)}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.err = msg.err
		m.loaded = m.loaded || msg.err == nil
		return m, nil

	case tea.WindowSizeMsg:
		if m.fixed {
			return m, nil
		}
		m.size = shardruntime.Size{
			Width:  float32(msg.Width),
			Height: float32(max(msg.Height-chrome, 1)),
		}
		if m.loaded {
			m.err = m.s.measure(m.size)
		}
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, m.reload
		case "s", "enter":
			m.editing = true
			m.input.SetValue("")
			return m, m.input.Focus()
		}
	}
	return m, nil
}

func (m *interactiveModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.editing = false
		m.input.Blur()
		return m, nil
	case "enter":
		m.editing = false
		m.input.Blur()
		size, err := parseSize(m.input.Value())
		if err != nil {
			m.err = err
			return m, nil
		}
		m.size, m.fixed = size, true
		if m.loaded {
			m.err = m.s.measure(size)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("shard " + m.s.file))
	b.WriteString("\n\n")

	out, err := m.s.render()
	switch {
	case err != nil:
		b.WriteString(errorStyle.Render(err.Error()))
	default:
		b.WriteString(out)
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render(fmt.Sprintf("viewport %s  %s", formatSize(m.size), m.s.stats())))
	b.WriteString("\n")

	if m.editing {
		b.WriteString("size: " + m.input.View())
	} else {
		b.WriteString(helpStyle.Render("s: set size  r: reload  q: quit"))
	}
	return b.String()
}

// parseSize reads "WxH"; an empty or "*" axis is unbounded.
func parseSize(s string) (shardruntime.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return shardruntime.Size{}, fmt.Errorf("size %q is not WxH", s)
	}
	width, err := parseAxis(w)
	if err != nil {
		return shardruntime.Size{}, err
	}
	height, err := parseAxis(h)
	if err != nil {
		return shardruntime.Size{}, err
	}
	return shardruntime.Size{Width: width, Height: height}, nil
}

func parseAxis(s string) (float32, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return shardruntime.Unbounded, nil
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return float32(v), nil
}

func formatSize(s shardruntime.Size) string {
	axis := func(v float32) string {
		if shardruntime.IsUnbounded(v) {
			return "*"
		}
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return axis(s.Width) + "x" + axis(s.Height)
}

func runInteractive(cfg *config.Config, file string, log *zap.Logger) error {
	if cfg.Host != config.HostTerm {
		return fmt.Errorf("interactive mode needs -host %s, got %q", config.HostTerm, cfg.Host)
	}
	s, err := newSession(context.Background(), cfg, file, log)
	if err != nil {
		return err
	}
	defer s.close()

	fixed := cfg.Viewport.Width > 0 || cfg.Viewport.Height > 0
	p := tea.NewProgram(newInteractiveModel(s, viewport(cfg.Viewport.Width, cfg.Viewport.Height), fixed), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
