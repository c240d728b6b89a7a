package report

import "github.com/charmbracelet/lipgloss"

var (
	colorRegression  = lipgloss.Color("#FF5F87") // Pink/Red
	colorImprovement = lipgloss.Color("#04B575") // Green
	colorSubtle      = lipgloss.Color("#767676") // Gray
	colorWarning     = lipgloss.Color("#FFAF00") // Gold

	styleRegression  = lipgloss.NewStyle().Foreground(colorRegression).Bold(true)
	styleImprovement = lipgloss.NewStyle().Foreground(colorImprovement)
	styleInvariant   = lipgloss.NewStyle().Foreground(colorSubtle)
	styleMarker      = lipgloss.NewStyle().Foreground(colorWarning)
	styleGroup       = lipgloss.NewStyle().Bold(true)
)
