// Package render produces the human-facing text for snapshot review:
// a one-line summary locating the call site, and a unified diff between
// the stored and the freshly recorded value.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	difflib "github.com/pmezard/go-difflib/difflib"

	"github.com/ormasoftchile/snapfile/pkg/snapshot"
)

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Summary locates a snapshot for a human: source path, optional line, and
// optional snapshot name. Printed before any diff or error text so the
// call site stays findable even when output is truncated.
func Summary(snap *snapshot.Snapshot, line int) string {
	var b strings.Builder
	if snap.Metadata.Source != "" {
		b.WriteString(snap.Metadata.Source)
	}
	if line > 0 {
		fmt.Fprintf(&b, ":%d", line)
	}
	if snap.Name != "" {
		fmt.Fprintf(&b, " (%s)", snap.Name)
	}
	return b.String()
}

// Diff renders a unified diff between the stored and new snapshot bodies.
// Binary bodies are described rather than diffed.
func Diff(old, new *snapshot.Snapshot) string {
	if (old != nil && old.Contents.IsBinary()) || new.Contents.IsBinary() {
		return binaryDiff(old, new)
	}

	var oldText string
	if old != nil {
		oldText = old.Contents.String()
	}
	diff := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(oldText),
		B:        splitLinesKeepNL(new.Contents.String()),
		FromFile: "old snapshot",
		ToFile:   "new results",
		Context:  4,
	}
	s, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("diff unavailable: %v", err)
	}
	if s == "" {
		return "(contents identical; metadata changed)\n"
	}
	return s
}

func binaryDiff(old, new *snapshot.Snapshot) string {
	var b strings.Builder
	if old != nil && old.Contents.IsBinary() {
		fmt.Fprintf(&b, "-old binary: %d bytes (.%s)\n",
			len(old.Contents.Binary()), old.Contents.Extension())
	} else if old != nil {
		b.WriteString("-old: text snapshot\n")
	}
	if new.Contents.IsBinary() {
		fmt.Fprintf(&b, "+new binary: %d bytes (.%s)\n",
			len(new.Contents.Binary()), new.Contents.Extension())
	} else {
		b.WriteString("+new: text snapshot\n")
	}
	return b.String()
}

// Colorize styles a unified diff line by line for terminal display.
func Colorize(diff string) string {
	lines := strings.Split(diff, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = dimStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = hunkStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = addedStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = removedStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// splitLinesKeepNL splits into lines that keep their trailing newline,
// the shape difflib expects.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] += "\n"
	}
	return lines
}
