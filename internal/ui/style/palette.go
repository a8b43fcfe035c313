package style

import "github.com/charmbracelet/lipgloss"

// Color palette shared by every screen
var (
	// Primary colors
	Cyan    = lipgloss.Color("#00E5FF") // Primary highlight
	Magenta = lipgloss.Color("#FF1B6B") // Accent
	Yellow  = lipgloss.Color("#FFB500") // Warnings / pending
	Green   = lipgloss.Color("#2AFFAA") // Success
	Red     = lipgloss.Color("#FF5555") // Errors
	Blue    = lipgloss.Color("#3B82F6") // Info / links

	// Base colors
	Base03 = lipgloss.Color("#1B1D23") // Background
	Base02 = lipgloss.Color("#262831") // Darker background
	Base01 = lipgloss.Color("#6C7280") // Muted text
	Base2  = lipgloss.Color("#ECEFF4") // Primary text
	Base1  = lipgloss.Color("#B4BCC8") // Secondary text

	// Status colors
	SuccessColor = Green
	ErrorColor   = Red
	WarningColor = Yellow
	InfoColor    = Blue
)

// Title renders screen headers.
var Title = lipgloss.NewStyle().
	Bold(true).
	Foreground(Cyan).
	MarginBottom(1)

// Muted renders secondary detail lines.
var Muted = lipgloss.NewStyle().Foreground(Base01)

// Success renders confirmed steps and results.
var Success = lipgloss.NewStyle().Foreground(SuccessColor)

// Error renders failures.
var Error = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)

// Pending renders in-flight steps.
var Pending = lipgloss.NewStyle().Foreground(WarningColor)

// Hint renders the keybinding help line.
var Hint = lipgloss.NewStyle().Foreground(Base1).MarginTop(1)

// Box frames the deployment summary.
var Box = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Base01).
	Padding(0, 1)
