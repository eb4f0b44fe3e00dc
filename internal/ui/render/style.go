package render

import "github.com/charmbracelet/lipgloss"

// Palette of the command-line output.
var (
	primary = lipgloss.Color("#a78bfa")
	muted   = lipgloss.Color("#808080")
	success = lipgloss.Color("#42b883")
	failure = lipgloss.Color("#ff5555")
	warning = lipgloss.Color("#f1a208")
)

// Styles used across commands. lipgloss drops the colors when stdout is not
// a terminal.
var (
	TitleStyle   = lipgloss.NewStyle().Bold(true)
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(primary)
	MutedStyle   = lipgloss.NewStyle().Foreground(muted)
	CurrentStyle = lipgloss.NewStyle().Bold(true).Foreground(primary)
	SuccessStyle = lipgloss.NewStyle().Foreground(success)
	ErrorStyle   = lipgloss.NewStyle().Foreground(failure)
	WarningStyle = lipgloss.NewStyle().Foreground(warning)
)

// Success renders a confirmation line.
func Success(s string) string {
	return SuccessStyle.Render("✓ ") + s
}

// Failure renders an error line.
func Failure(s string) string {
	return ErrorStyle.Render("✗ ") + s
}

// Warning renders a warning line.
func Warning(s string) string {
	return WarningStyle.Render("! ") + s
}
