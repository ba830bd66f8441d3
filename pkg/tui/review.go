package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ormasoftchile/snapfile/pkg/container"
	"github.com/ormasoftchile/snapfile/pkg/render"
)

// entry pairs a reviewable snapshot with the container that commits it.
type entry struct {
	container *container.Container
	snap      *container.PendingSnapshot
}

// Outcome summarizes the decisions made during one review session.
type Outcome struct {
	Accepted []string
	Rejected []string
	Skipped  []string
	// Aborted means the reviewer quit; undecided entries stay pending.
	Aborted bool
}

// --- Model ---

// Model is the top-level Bubble Tea model for snapshot review.
type Model struct {
	entries []entry
	idx     int

	// Cached rendering for the current entry.
	diffLines []string
	scroll    int

	done    bool
	aborted bool

	width  int
	height int
}

// New builds a review model over the pending snapshots of the given
// containers, in discovery order.
func New(containers []*container.Container) Model {
	m := Model{}
	for _, c := range containers {
		for _, s := range c.Snapshots() {
			m.entries = append(m.entries, entry{container: c, snap: s})
		}
	}
	if len(m.entries) > 0 {
		m.renderCurrent()
	}
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.aborted = !m.done
			return m, tea.Quit
		case key.Matches(msg, keys.Accept):
			return m.decide(container.OpAccept)
		case key.Matches(msg, keys.Reject):
			return m.decide(container.OpReject)
		case key.Matches(msg, keys.Skip):
			return m.decide(container.OpSkip)
		case key.Matches(msg, keys.AcceptAll):
			for i := m.idx; i < len(m.entries); i++ {
				m.entries[i].snap.Op = container.OpAccept
			}
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, keys.Back):
			if m.idx > 0 {
				m.idx--
				m.renderCurrent()
			}
			return m, nil
		case key.Matches(msg, keys.Up):
			m.scrollBy(-1)
			return m, nil
		case key.Matches(msg, keys.Down):
			m.scrollBy(1)
			return m, nil
		case key.Matches(msg, keys.PgUp):
			m.scrollBy(-m.diffHeight())
			return m, nil
		case key.Matches(msg, keys.PgDown):
			m.scrollBy(m.diffHeight())
			return m, nil
		}
	}
	return m, nil
}

// decide records the operation for the current entry and advances.
func (m Model) decide(op container.Operation) (tea.Model, tea.Cmd) {
	if m.done || len(m.entries) == 0 {
		return m, nil
	}
	m.entries[m.idx].snap.Op = op
	if m.idx == len(m.entries)-1 {
		m.done = true
		return m, tea.Quit
	}
	m.idx++
	m.renderCurrent()
	return m, nil
}

func (m *Model) renderCurrent() {
	e := m.entries[m.idx]
	diff := render.Colorize(render.Diff(e.snap.Old, e.snap.New))
	m.diffLines = strings.Split(strings.TrimRight(diff, "\n"), "\n")
	m.scroll = 0
}

func (m *Model) scrollBy(delta int) {
	m.scroll += delta
	max := len(m.diffLines) - m.diffHeight()
	if m.scroll > max {
		m.scroll = max
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
}

// diffHeight is the number of diff lines that fit between header and
// footer.
func (m *Model) diffHeight() int {
	h := m.height - 7
	if h < 4 {
		h = 4
	}
	return h
}

func (m Model) View() string {
	if len(m.entries) == 0 {
		return headerStyle.Render("snapfile review") + "\n\nno pending snapshots\n"
	}
	if m.done || m.aborted {
		return ""
	}
	e := m.entries[m.idx]

	var b strings.Builder
	b.WriteString(headerStyle.Render("snapfile review"))
	b.WriteString(progressStyle.Render(fmt.Sprintf("snapshot %d of %d", m.idx+1, len(m.entries))))
	if e.snap.Old == nil {
		b.WriteString(" " + newBadgeStyle.Render("NEW"))
	}
	b.WriteString("\n")
	b.WriteString(sourceStyle.Render(e.snap.Summary()))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(render.Summary(e.snap.New, m.assertionLine(e))))
	b.WriteString("\n")

	h := m.diffHeight()
	end := m.scroll + h
	if end > len(m.diffLines) {
		end = len(m.diffLines)
	}
	visible := strings.Join(m.diffLines[m.scroll:end], "\n")
	if len(m.diffLines) > h {
		visible += "\n" + metaStyle.Render(fmt.Sprintf("(%d-%d of %d lines)", m.scroll+1, end, len(m.diffLines)))
	}
	b.WriteString(diffPanel.Render(visible))
	b.WriteString("\n")
	b.WriteString(footerStyle.Render(m.footer()))
	b.WriteString("\n")
	return b.String()
}

func (m Model) assertionLine(e entry) int {
	if e.snap.Line > 0 {
		return e.snap.Line
	}
	return e.snap.New.Metadata.AssertionLine
}

func (m Model) footer() string {
	parts := []string{
		acceptedStyle.Render(GlyphAccepted) + " a accept",
		rejectedStyle.Render(GlyphRejected) + " r reject",
		skippedStyle.Render(GlyphSkipped) + " s skip",
		"A accept rest",
		"b back",
		"q quit",
	}
	return strings.Join(parts, "  ")
}

// Outcome reports the decisions after the program has finished.
func (m Model) Outcome() Outcome {
	out := Outcome{Aborted: m.aborted}
	for i, e := range m.entries {
		if m.aborted || (!m.done && i >= m.idx) {
			e.snap.Op = container.OpSkip
		}
		name := e.snap.Summary()
		switch e.snap.Op {
		case container.OpAccept:
			out.Accepted = append(out.Accepted, name)
		case container.OpReject:
			out.Rejected = append(out.Rejected, name)
		default:
			out.Skipped = append(out.Skipped, name)
		}
	}
	return out
}

// Run launches the interactive review over the containers and returns the
// decisions. Committing them is the caller's responsibility.
func Run(containers []*container.Container) (Outcome, error) {
	m := New(containers)
	if len(m.entries) == 0 {
		return Outcome{}, nil
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Outcome{}, fmt.Errorf("run review ui: %w", err)
	}
	return final.(Model).Outcome(), nil
}
