package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Shared text styles. DisableColors swaps the color profile underneath them,
// so they stay valid after --no-color.
var (
	SuccessStyle  = lipgloss.NewStyle().Foreground(ColorSuccess)
	AlertStyle    = lipgloss.NewStyle().Foreground(ColorError)
	WarningStyle  = lipgloss.NewStyle().Foreground(ColorWarning)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	ProgressStyle = lipgloss.NewStyle().Foreground(ColorSecondary)
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
)

// DisableColors switches every style to plain ASCII output.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// IsTerminal reports whether w is a terminal. Anything that isn't an
// *os.File (buffers in tests, pipes wrapped by callers) is not.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of w, or fallback when it can't be read.
func TerminalWidth(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
