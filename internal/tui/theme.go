package tui

import "github.com/charmbracelet/lipgloss"

// ---------------------------------------------------------------------------
// Catppuccin Mocha palette, true-color hex values.
// https://catppuccin.com/palette
// ---------------------------------------------------------------------------

const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorMauve    lipgloss.Color = "#cba6f7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"

	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay2 lipgloss.Color = "#9399b2"
	colorSurface1 lipgloss.Color = "#45475a"
	colorSurface0 lipgloss.Color = "#313244"
)

// Semantic aliases.
const (
	colorAccent  = colorPink
	colorFocus   = colorLavender
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
)

var (
	styleUserMsg   = lipgloss.NewStyle().Foreground(colorText)
	styleSystemMsg = lipgloss.NewStyle().Foreground(colorSubtext0)
	styleSender    = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	styleTimestamp = lipgloss.NewStyle().Foreground(colorOverlay2)
	styleStatus    = lipgloss.NewStyle().Foreground(colorWarning)
	styleErr       = lipgloss.NewStyle().Foreground(colorError)
	styleAmount    = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	stylePending   = lipgloss.NewStyle().Foreground(colorOverlay2).Italic(true)
	styleSelected  = lipgloss.NewStyle().Background(colorSurface0)
	styleHelp      = lipgloss.NewStyle().Foreground(colorOverlay2)

	styleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface1).
			Padding(0, 1)

	styleModal = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFocus).
			Padding(1, 2)
)
