package logging

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

type renderer interface {
	Render(strs ...string) string
}

var (
	colorPrimary = lipgloss.Color("39")  // Blue
	colorError   = lipgloss.Color("196") // Red
	colorMuted   = lipgloss.Color("240") // Dark gray

	stepStyle    renderer = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	errorStyle   renderer = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	verboseStyle renderer = lipgloss.NewStyle().Foreground(colorMuted)
)

// ColorEnabled reports whether output to f should be styled: f must be a
// terminal and neither NO_COLOR nor CI may be set.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("CI") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
