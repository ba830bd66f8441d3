// Package tui implements the interactive snapshot review screen. It walks
// every pending snapshot, shows the diff against the committed state, and
// records the reviewer's decision; committing the decisions is the
// caller's job.
package tui

import "github.com/charmbracelet/lipgloss"

// Decision glyphs — convey meaning without relying on color alone.
const (
	GlyphAccepted = "✓"
	GlyphRejected = "✗"
	GlyphSkipped  = "⏭"
	GlyphPending  = "○"
)

// Palette adapts to terminal capabilities via lipgloss.
var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
	colorWhite  = lipgloss.Color("255")
)

// --- Header styles ---

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorCyan).
	Padding(0, 1)

var progressStyle = lipgloss.NewStyle().
	Foreground(colorDim).
	Padding(0, 1)

// --- Diff panel styles ---

var (
	diffPanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	sourceStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// --- Decision styles ---

var (
	acceptedStyle = lipgloss.NewStyle().Foreground(colorGreen)
	rejectedStyle = lipgloss.NewStyle().Foreground(colorRed)
	skippedStyle  = lipgloss.NewStyle().Faint(true)

	newBadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(colorYellow).
			Padding(0, 1)
)

// --- Footer ---

var footerStyle = lipgloss.NewStyle().
	Foreground(colorDim).
	Padding(0, 1)
