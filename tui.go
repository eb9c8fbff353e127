package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parlo/lesson"
	"parlo/live"
)

// TUI message types
type StatusMsg struct{ Status live.Status }
type TranscriptMsg struct{ Entries []live.Entry }
type SessionErrorMsg struct{ Text string }
type tickMsg time.Time

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	vocabStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	liveStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	connectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	youStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	tutorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
)

type tuiModel struct {
	ctrl *live.Controller
	cfg  live.SessionConfig
	les  *lesson.Lesson

	status        live.Status
	errLine       string
	entries       []live.Entry
	frame         int
	width, height int
}

func NewTUIProgram(ctrl *live.Controller, cfg live.SessionConfig, les *lesson.Lesson) *tea.Program {
	m := tuiModel{ctrl: ctrl, cfg: cfg, les: les, status: live.StatusIdle}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			ctrl := m.ctrl
			return m, tea.Sequence(
				func() tea.Msg { ctrl.Stop(); return nil },
				tea.Quit,
			)
		case " ":
			return m, m.toggle()
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case StatusMsg:
		m.status = msg.Status
		if msg.Status != live.StatusError {
			m.errLine = ""
		}

	case TranscriptMsg:
		m.entries = msg.Entries

	case SessionErrorMsg:
		m.errLine = msg.Text
	}
	return m, nil
}

// toggle starts or stops the session off the update loop. Start dials
// asynchronously; progress arrives as StatusMsg through the sink.
func (m tuiModel) toggle() tea.Cmd {
	ctrl, cfg := m.ctrl, m.cfg
	switch m.status {
	case live.StatusConnecting, live.StatusActive:
		return func() tea.Msg {
			ctrl.Stop()
			return nil
		}
	default:
		return func() tea.Msg {
			ctrl.Start(context.Background(), cfg)
			return nil
		}
	}
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(m.les.Title) + "\n")
	if words := m.les.Words(); len(words) > 0 {
		b.WriteString(vocabStyle.Render("vocabulary: "+strings.Join(words, " · ")) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(m.statusLine() + "\n")
	if m.errLine != "" {
		b.WriteString(errStyle.Render(m.errLine) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(m.transcriptView())

	b.WriteString("\n")
	b.WriteString(helpKeyStyle.Render("space") + helpStyle.Render(" talk/stop  ") +
		helpKeyStyle.Render("q") + helpStyle.Render(" quit  ") +
		helpStyle.Render("parlo "+version))
	return b.String()
}

func (m tuiModel) statusLine() string {
	switch m.status {
	case live.StatusConnecting:
		dots := strings.Repeat(".", m.frame%4)
		return connectStyle.Render("◌ connecting" + dots)
	case live.StatusActive:
		dot := "●"
		if m.frame%2 == 0 {
			dot = "○"
		}
		return liveStyle.Render(dot + " live — speak, then press space to stop")
	case live.StatusStopped:
		return idleStyle.Render("○ stopped — press space to talk again")
	case live.StatusError:
		return errStyle.Render("✗ error")
	default:
		return idleStyle.Render("○ ready — press space to talk")
	}
}

func (m tuiModel) transcriptView() string {
	if len(m.entries) == 0 {
		return idleStyle.Render("No conversation yet.") + "\n"
	}

	wrapWidth := m.width - 8
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	// Render newest entries that fit above the footer.
	var lines []string
	for _, e := range m.entries {
		label, style := "tutor", tutorStyle
		if e.Speaker == live.RoleUser {
			label, style = "you", youStyle
		}
		for i, line := range wrapText(e.Text, wrapWidth) {
			prefix := "       "
			if i == 0 {
				prefix = labelStyle.Render(fmt.Sprintf("%-5s", label)) + "  "
			}
			lines = append(lines, prefix+style.Render(line))
		}
	}

	avail := m.height - 8
	if avail < 1 {
		avail = 1
	}
	if len(lines) > avail {
		lines = lines[len(lines)-avail:]
	}
	return strings.Join(lines, "\n") + "\n"
}

// wrapText breaks text into lines of at most width runes, preferring to split
// at a space. Indexing is by rune so a forced split never lands inside a
// multi-byte character.
func wrapText(text string, width int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(runes) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if runes[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, string(runes[:splitAt]))
		runes = runes[splitAt:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	return lines
}
