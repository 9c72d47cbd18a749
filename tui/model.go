package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"midi-selector/midi"
	"midi-selector/router"
	"midi-selector/theme"
	"midi-selector/widgets"
)

// Router is what the UI drives: key presses in, status out
type Router interface {
	OnKey(key string) bool
	Status() router.Status
	Updates() <-chan struct{}
}

type Model struct {
	Router Router
	Theme  *theme.Theme

	showMessages bool
	quitting     bool
	status       router.Status
	lastKey      string
	switched     bool
}

type UpdateMsg struct{}

func NewModel(r Router, th *theme.Theme, showMessages bool) Model {
	return Model{
		Router:       r,
		Theme:        th,
		showMessages: showMessages,
		status:       r.Status(),
	}
}

func ListenForUpdates(r Router) tea.Cmd {
	return func() tea.Msg {
		<-r.Updates()
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Router)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// q is a port label, so only ctrl+c and esc quit
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		default:
			m.lastKey = msg.String()
			m.switched = m.Router.OnKey(msg.String())
			m.status = m.Router.Status()
		}

	case UpdateMsg:
		m.status = m.Router.Status()
		return m, ListenForUpdates(m.Router)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	s := m.status

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	fgStyle := lipgloss.NewStyle().Foreground(m.Theme.FG())
	onStyle := lipgloss.NewStyle().Foreground(m.Theme.Active()).Bold(true)
	noteStyle := lipgloss.NewStyle().Foreground(m.Theme.Success())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	header := headerStyle.Render(fmt.Sprintf("midi-selector  %s router  [%s]", s.Mode, s.State))

	routes := make([]widgets.Route, len(s.Destinations))
	for i, d := range s.Destinations {
		routes[i] = widgets.Route{Key: d.Key, Name: d.Name, Active: d.ID == s.Current}
	}
	strip := widgets.RenderRoutes(routes, onStyle, dimStyle, m.Theme.Symbols.Selected, m.Theme.Symbols.Idle)

	names := make([]string, len(s.Notes))
	for i, n := range s.Notes {
		names[i] = midi.NoteName(n)
	}
	notes := fmt.Sprintf("%c %s", m.Theme.Symbols.Note, widgets.RenderNotes(names, noteStyle))

	counters := fmt.Sprintf("forwarded %d  dropped %d  switches %d", s.Forwarded, s.Dropped, s.Switches)
	if s.Failed > 0 {
		counters += "  " + warnStyle.Render(fmt.Sprintf("failed %d", s.Failed))
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(strip)
	out.WriteString("\n\n")
	out.WriteString(notes)
	out.WriteString("\n")
	out.WriteString(fgStyle.Render(counters))
	out.WriteString("\n")

	if m.showMessages && s.LastMessage != "" {
		out.WriteString(dimStyle.Render("last: " + s.LastMessage))
		out.WriteString("\n")
	}
	if s.LastSwitch != "" {
		out.WriteString(dimStyle.Render("switch: " + s.LastSwitch))
		out.WriteString("\n")
	}
	if m.lastKey != "" && !m.switched {
		out.WriteString(dimStyle.Render(fmt.Sprintf("key %q: no change", m.lastKey)))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(dimStyle.Render(widgets.RenderKeyHelp(m.help())))
	return out.String()
}

func (m Model) help() []widgets.KeySection {
	sec := widgets.KeySection{Title: "keys"}
	for _, d := range m.status.Destinations {
		sec.Keys = append(sec.Keys, widgets.KeyBinding{Key: d.Key, Desc: d.Name})
	}
	sec.Keys = append(sec.Keys, widgets.KeyBinding{Key: "esc/ctrl+c", Desc: "quit"})
	return []widgets.KeySection{sec}
}
