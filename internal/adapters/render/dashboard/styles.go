package dashboard

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	empty   lipgloss.Style
	err     lipgloss.Style
	help    lipgloss.Style
	status  lipgloss.Style
	section lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("241")).Padding(0, 1),
		cell:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Padding(0, 1),
		empty:   lipgloss.NewStyle().Faint(true),
		err:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		help:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		status:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		section: lipgloss.NewStyle().MarginTop(1),
	}
}
