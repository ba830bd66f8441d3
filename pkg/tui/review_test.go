package tui

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ormasoftchile/snapfile/pkg/container"
	"github.com/ormasoftchile/snapfile/pkg/snapshot"
)

func pendingContainer(t *testing.T, name, oldBody, newBody string) *container.Container {
	t.Helper()
	dir := t.TempDir()
	target := filepath.Join(dir, "demo_test__"+name+".snap")
	md := snapshot.Metadata{Source: "demo_test.go"}
	if oldBody != "" {
		old := snapshot.New("demo_test", name, md, snapshot.NewText(oldBody, snapshot.KindFile))
		if err := old.Save(target); err != nil {
			t.Fatal(err)
		}
	}
	fresh := snapshot.New("demo_test", name, md, snapshot.NewText(newBody, snapshot.KindFile))
	if _, err := fresh.SaveNew(target); err != nil {
		t.Fatal(err)
	}
	c, err := container.Load(target+".new", container.KindExternal)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func press(m tea.Model, r rune) tea.Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	return next
}

func TestReviewDecisions(t *testing.T) {
	a := pendingContainer(t, "alpha", "v1", "v2")
	b := pendingContainer(t, "beta", "", "fresh")
	c := pendingContainer(t, "gamma", "x", "y")

	var m tea.Model = New([]*container.Container{a, b, c})
	m = press(m, 'a')
	m = press(m, 'r')
	m = press(m, 's')

	out := m.(Model).Outcome()
	if out.Aborted {
		t.Fatal("session should have completed")
	}
	if len(out.Accepted) != 1 || out.Accepted[0] != "alpha" {
		t.Errorf("accepted = %v", out.Accepted)
	}
	if len(out.Rejected) != 1 || out.Rejected[0] != "beta (new)" {
		t.Errorf("rejected = %v", out.Rejected)
	}
	if len(out.Skipped) != 1 || out.Skipped[0] != "gamma" {
		t.Errorf("skipped = %v", out.Skipped)
	}
	if a.Snapshots()[0].Op != container.OpAccept {
		t.Error("decision not recorded on the container entry")
	}
}

func TestReviewAcceptRest(t *testing.T) {
	a := pendingContainer(t, "alpha", "v1", "v2")
	b := pendingContainer(t, "beta", "v1", "v2")

	var m tea.Model = New([]*container.Container{a, b})
	m = press(m, 'A')

	out := m.(Model).Outcome()
	if len(out.Accepted) != 2 {
		t.Errorf("accepted = %v", out.Accepted)
	}
}

func TestReviewQuitSkipsRemaining(t *testing.T) {
	a := pendingContainer(t, "alpha", "v1", "v2")
	b := pendingContainer(t, "beta", "v1", "v2")

	var m tea.Model = New([]*container.Container{a, b})
	m = press(m, 'a')
	m = press(m, 'q')

	out := m.(Model).Outcome()
	if !out.Aborted {
		t.Fatal("quit must abort the session")
	}
	if len(out.Skipped) != 2 {
		t.Errorf("aborted session must leave everything pending: %v", out)
	}
}

func TestReviewViewShowsProgress(t *testing.T) {
	a := pendingContainer(t, "alpha", "v1", "v2")
	var m tea.Model = New([]*container.Container{a})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	view := m.View()
	if view == "" {
		t.Fatal("empty view for live session")
	}
}
