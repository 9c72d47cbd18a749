package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Route is one entry of the destination strip
type Route struct {
	Key    string
	Name   string
	Active bool
}

// RenderRoutes renders destinations side by side: "[1] MIDI-1"
func RenderRoutes(routes []Route, on, off lipgloss.Style, selected, idle rune) string {
	cells := make([]string, 0, len(routes))
	for _, r := range routes {
		mark, style := idle, off
		if r.Active {
			mark, style = selected, on
		}
		cells = append(cells, style.Render(fmt.Sprintf("%c [%s] %s", mark, r.Key, r.Name)))
	}
	return strings.Join(cells, "   ")
}

// RenderNotes renders sounding notes as names, or a placeholder
func RenderNotes(names []string, style lipgloss.Style) string {
	if len(names) == 0 {
		return style.Render("-")
	}
	return style.Render(strings.Join(names, " "))
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
