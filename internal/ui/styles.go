package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// This file centralizes the lipgloss styles for the interleaved console
// output. Each source gets a stable color so the merged stream stays
// readable.

var (
	devPrefixStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")). // Cyan
			Bold(true)

	capPrefixStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // Pink
			Bold(true)

	logcatPrefixStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("248")) // Gray

	cdpPrefixStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")). // Yellow
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")). // Orange
			Bold(true)
)

var colorEnabled = termenv.NewOutput(os.Stdout).Profile != termenv.Ascii

// SetColorEnabled overrides terminal detection, mainly for tests.
func SetColorEnabled(on bool) {
	colorEnabled = on
}

// Prefix renders the "[label] " prefix for a given output source.
func Prefix(label string) string {
	raw := "[" + label + "] "
	if !colorEnabled {
		return raw
	}
	switch label {
	case "dev":
		return devPrefixStyle.Render("["+label+"]") + " "
	case "cap":
		return capPrefixStyle.Render("["+label+"]") + " "
	case "logcat":
		return logcatPrefixStyle.Render("["+label+"]") + " "
	case "cdp":
		return cdpPrefixStyle.Render("["+label+"]") + " "
	default:
		return raw
	}
}

// Warn renders a warning line for the console stream.
func Warn(text string) string {
	if !colorEnabled {
		return "Warning: " + text
	}
	return warnStyle.Render("Warning:") + " " + text
}
