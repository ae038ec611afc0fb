package main

import (
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
)

// styles holds the lipgloss styles used to render the fixed character
// grid, one per screen.Attr value a 5250/3270 host cell can carry.
type styles struct {
	normal      lipgloss.Style
	intensified lipgloss.Style
	nonDisplay  lipgloss.Style
	reverse     lipgloss.Style
	cursor      lipgloss.Style
	statusBar   lipgloss.Style
	errorText   lipgloss.Style
}

// newStyles picks colors via go-colorful (for a perceptually-even
// intensified/normal pair) and asks termenv what the terminal's color
// profile actually supports before lipgloss renders anything, so a
// dumb terminal degrades to ANSI-16 instead of emitting truecolor codes
// it can't display.
func newStyles() styles {
	profile := termenv.ColorProfile()

	normalFg, _ := colorful.Hex("#d0d0d0")
	intensifiedFg, _ := colorful.Hex("#ffffff")

	clamp := func(c colorful.Color) lipgloss.Color {
		if profile <= termenv.ANSI {
			// No truecolor support: fall back to a named ANSI color
			// rather than a hex string termenv can't render faithfully.
			return lipgloss.Color("15")
		}
		return lipgloss.Color(c.Hex())
	}

	return styles{
		normal:      lipgloss.NewStyle().Foreground(clamp(normalFg)),
		intensified: lipgloss.NewStyle().Foreground(clamp(intensifiedFg)).Bold(true),
		nonDisplay:  lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("0")),
		reverse:     lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("252")),
		cursor:      lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")),
		statusBar:   lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		errorText:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
}
