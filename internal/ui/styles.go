package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the TUI.
var (
	ColorRed     = lipgloss.Color("#FF0000")
	ColorGreen   = lipgloss.Color("#00FF00")
	ColorYellow  = lipgloss.Color("#FFFF00")
	ColorCyan    = lipgloss.Color("#00FFFF")
	ColorBlue    = lipgloss.Color("#5F87FF")
	ColorGray    = lipgloss.Color("#666666")
	ColorDimGray = lipgloss.Color("#444444")
	ColorWhite   = lipgloss.Color("#FFFFFF")
	ColorMagenta = lipgloss.Color("#FF00FF")
)

// Base styles reused by UI components.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	WarnTextStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	PanelTitleActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorCyan)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	PendingBadgeStyle = lipgloss.NewStyle().
				Foreground(ColorYellow).
				Bold(true)

	CleanBadgeStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)
)

// Timeline block styles.
var (
	LaneLabelStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	TrackStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	BlockStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	BlockSelectedStyle = lipgloss.NewStyle().
				Foreground(ColorCyan).
				Bold(true)

	BlockOverlapStyle = lipgloss.NewStyle().
				Foreground(ColorRed).
				Bold(true)

	ZeroMarkerStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	BlockMutedStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	BlockRemovedStyle = lipgloss.NewStyle().
				Foreground(ColorDimGray).
				Strikethrough(true)
)
