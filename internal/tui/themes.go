package tui

import "github.com/charmbracelet/lipgloss"

// Colors, adapted from the teacher's CLONE THEME palette in model.go
// (Tokyo-Night-derived), trimmed to the set this dashboard actually
// renders with — a single-screen liveness view has no theme switcher.
var (
	ColorBorder  = lipgloss.Color("#2e7de9")
	ColorText    = lipgloss.Color("#a9b1d6")
	ColorActive  = lipgloss.Color("#7aa2f7")
	ColorWarning = lipgloss.Color("#ff9e64")
	ColorInfo    = lipgloss.Color("#7dcfff")
	ColorProfit  = lipgloss.Color("#9ece6a")
	ColorLoss    = lipgloss.Color("#f7768e")

	StyleHeader = lipgloss.NewStyle().Bold(true).Foreground(ColorActive)
	StyleKey    = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
	StyleFooter = lipgloss.NewStyle().Foreground(ColorText)
	StyleProfit = lipgloss.NewStyle().Foreground(ColorProfit)
	StyleLoss   = lipgloss.NewStyle().Foreground(ColorLoss)
	StyleBox    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorBorder).Padding(0, 1)
)

// RenderHotKey renders one footer hotkey hint, e.g. "[Q]uit".
func RenderHotKey(k, d string) string {
	return StyleKey.Render("["+k+"]") + d
}
