package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var launcherColors = map[string]string{
	"Steam":      "#1b2838",
	"EA":         "#ff4747",
	"Epic":       "#aaaaaa",
	"GOG":        "#8a2be2",
	"Ubisoft":    "#0070ff",
	"Battle.net": "#00aeff",
	"Xbox":       "#107c10",
}

// Colorize applies the launcher's accent color to the text using lipgloss.
// Unknown launchers (custom slots included) render unstyled.
func Colorize(text, launcher string) string {
	hex, ok := launcherColors[launcher]
	if !ok {
		return text
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
	return style.Render(text)
}

// Label renders a bold section label for command output.
func Label(text string) string {
	return lipgloss.NewStyle().Bold(true).Render(text)
}

// Good and Bad render success/failure markers for summaries.
func Good(text string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(text)
}

func Bad(text string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(text)
}
