package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/haskel/benchfox/internal/progress"
)

// Colors
var (
	colorPrimary   = lipgloss.Color("86")  // Cyan
	colorSecondary = lipgloss.Color("240") // Gray
	colorSuccess   = lipgloss.Color("82")  // Green
	colorWarning   = lipgloss.Color("214") // Orange
	colorDanger    = lipgloss.Color("196") // Red
	colorMuted     = lipgloss.Color("245") // Light gray
)

// Styles
var (
	// Title bar
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginBottom(0)

	// Help text
	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	// Section headers
	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPrimary)

	// Table
	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPrimary).
				BorderBottom(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colorSecondary)

	tableCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// Values
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	// Error
	errorStyle = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)
)

// statusColor returns the color of an operation status.
func statusColor(s progress.Status) lipgloss.Color {
	switch s {
	case progress.StatusRunning:
		return colorPrimary
	case progress.StatusComplete:
		return colorSuccess
	case progress.StatusCancelled:
		return colorWarning
	case progress.StatusError:
		return colorDanger
	default:
		return colorSecondary
	}
}
