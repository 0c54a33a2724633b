// Package render turns analysis results into terminal output and export
// formats. Every function takes the values it renders explicitly.
package render

import "github.com/charmbracelet/lipgloss"

var (
	Subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	Highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	Special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	Warning   = lipgloss.Color("196")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("#FFF7DB")).
			Background(Highlight)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Highlight).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().Foreground(Subtle).Width(22)
	ValueStyle = lipgloss.NewStyle().Bold(true)
	BarStyle   = lipgloss.NewStyle().Foreground(Special)
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(Warning)
)
