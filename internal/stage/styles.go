package stage

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Color constants
const (
	ColorPrimary = "39"  // Blue
	ColorSuccess = "42"  // Green
	ColorError   = "196" // Red
	ColorMuted   = "245" // Gray
	ColorWarning = "214" // Orange
)

// Styles holds the styles for stage notices.
type Styles struct {
	Command lipgloss.Style
	Skip    lipgloss.Style
	DryRun  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// NewStyles returns the notice styles for w. Colour is only emitted when w
// is a terminal.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Command: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorPrimary)),
		Skip: r.NewStyle().
			Foreground(lipgloss.Color(ColorMuted)),
		DryRun: r.NewStyle().
			Foreground(lipgloss.Color(ColorWarning)),
		Success: r.NewStyle().
			Foreground(lipgloss.Color(ColorSuccess)),
		Error: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorError)),
		Muted: r.NewStyle().
			Foreground(lipgloss.Color(ColorMuted)),
	}
}

// Notice prefixes
const (
	PrefixSkip   = "#skip: "
	PrefixDryRun = "#dry-run: "
)
