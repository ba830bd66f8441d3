package patch

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ormasoftchile/snapfile/pkg/snapshot"
)

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo_test.go")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// lineOf returns the 1-based line of the first line containing substr.
func lineOf(t *testing.T, src, substr string) int {
	t.Helper()
	for i, l := range strings.Split(src, "\n") {
		if strings.Contains(l, substr) {
			return i + 1
		}
	}
	t.Fatalf("no line contains %q", substr)
	return 0
}

func inline(body string) snapshot.Contents {
	return snapshot.NewText(body, snapshot.KindInline)
}

const simpleSrc = `package demo

func TestGreeting(t *T) {
	snaptest.MatchInline(t, greet(), snaptest.Inline(""))
}
`

func TestReplaceSingleLineLiteral(t *testing.T) {
	path := writeSource(t, simpleSrc)
	p, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !p.AddInlineSite(lineOf(t, simpleSrc, "MatchInline")) {
		t.Fatal("site not found")
	}
	p.SetContents(0, inline("hi"))
	if err := p.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Replace(simpleSrc, `Inline("")`, `Inline("hi")`, 1)
	if string(got) != want {
		t.Errorf("patched file:\n%s\nwant:\n%s", got, want)
	}
}

func TestReplaceWithMultilineLiteral(t *testing.T) {
	path := writeSource(t, simpleSrc)
	p, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !p.AddInlineSite(lineOf(t, simpleSrc, "MatchInline")) {
		t.Fatal("site not found")
	}
	p.SetContents(0, inline("a\nb"))
	if err := p.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "package demo\n" +
		"\n" +
		"func TestGreeting(t *T) {\n" +
		"\tsnaptest.MatchInline(t, greet(), snaptest.Inline(`\n" +
		"\ta\n" +
		"\tb\n" +
		"\t`))\n" +
		"}\n"
	if string(got) != want {
		t.Errorf("patched file:\n%s\nwant:\n%s", got, want)
	}
}

const batchSrc = `package demo

func TestBatch(t *T) {
	snaptest.MatchInline(t, one(), snaptest.Inline("old1"))
	snaptest.MatchInline(t, two(), snaptest.Inline(` + "`" + `
	old
	two
	` + "`" + `))
	snaptest.MatchInline(t, three(), snaptest.Inline("old3"))
}
`

// Applying edits in ascending line order must keep later spans correct as
// earlier edits grow or shrink the file.
func TestBatchEditOffsetSafety(t *testing.T) {
	path := writeSource(t, batchSrc)
	p, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, marker := range []string{"one()", "two()", "three()"} {
		if !p.AddInlineSite(lineOf(t, batchSrc, marker)) {
			t.Fatalf("site for %s not found", marker)
		}
	}

	// Grow the first, shrink the second, touch the third.
	p.SetContents(0, inline("first\ngrown"))
	p.SetContents(1, inline("squashed"))
	p.SetContents(2, inline("third"))
	if err := p.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "package demo\n" +
		"\n" +
		"func TestBatch(t *T) {\n" +
		"\tsnaptest.MatchInline(t, one(), snaptest.Inline(`\n" +
		"\tfirst\n" +
		"\tgrown\n" +
		"\t`))\n" +
		"\tsnaptest.MatchInline(t, two(), snaptest.Inline(\"squashed\"))\n" +
		"\tsnaptest.MatchInline(t, three(), snaptest.Inline(\"third\"))\n" +
		"}\n"
	if string(got) != want {
		t.Errorf("patched file:\n%s\nwant:\n%s", got, want)
	}
}

func TestNewLineTracksEdits(t *testing.T) {
	path := writeSource(t, batchSrc)
	p, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, marker := range []string{"one()", "two()", "three()"} {
		if !p.AddInlineSite(lineOf(t, batchSrc, marker)) {
			t.Fatalf("site for %s not found", marker)
		}
	}
	thirdBefore := p.NewLine(2)
	p.SetContents(0, inline("a\nb\nc")) // adds 4 lines
	if got := p.NewLine(2); got != thirdBefore+4 {
		t.Errorf("NewLine(2) = %d, want %d", got, thirdBefore+4)
	}
}

func TestCallSiteNotFound(t *testing.T) {
	path := writeSource(t, simpleSrc)
	p, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if p.AddInlineSite(2) {
		t.Error("line 2 has no candidate; AddInlineSite must report false")
	}
}

func TestDuplicateSiteIgnored(t *testing.T) {
	src := `package demo

func TestLoop(t *T) {
	for i := 0; i < 3; i++ {
		snaptest.MatchInline(t, f(i), snaptest.Inline("x"))
	}
}
`
	path := writeSource(t, src)
	p, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	line := lineOf(t, src, "MatchInline")
	if !p.AddInlineSite(line) {
		t.Fatal("first request should find the site")
	}
	if p.AddInlineSite(line) {
		t.Error("second request for the same span must be ignored")
	}
}

func TestIndentFromCallLine(t *testing.T) {
	src := `package demo

func TestCond(t *T) {
	if ok {
		use(snaptest.MatchInline(t, v(), snaptest.Inline("")))
	}
}
`
	path := writeSource(t, src)
	p, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !p.AddInlineSite(lineOf(t, src, "MatchInline")) {
		t.Fatal("site not found")
	}
	p.SetContents(0, inline("x\ny"))
	joined := strings.Join(p.lines, "\n")
	if !strings.Contains(joined, "\n\t\tx\n\t\ty\n\t\t`") {
		t.Errorf("replacement should use the call line's leading whitespace:\n%s", joined)
	}
}

func TestFindsCandidateInsideGroupingBlock(t *testing.T) {
	src := `package demo

func TestDup(t *T) {
	snaptest.AllowDuplicates(t, func() {
		snaptest.MatchInline(t, v(), snaptest.Inline("y"))
	})
}
`
	path := writeSource(t, src)
	p, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !p.AddInlineSite(lineOf(t, src, "MatchInline")) {
		t.Fatal("candidate inside the grouping block should be found")
	}
	p.SetContents(0, inline("z"))
	joined := strings.Join(p.lines, "\n")
	if !strings.Contains(joined, `Inline("z")`) {
		t.Errorf("inner literal not replaced:\n%s", joined)
	}
	if strings.Contains(joined, "AllowDuplicates(t, \"z\"") {
		t.Error("grouping call itself must never be patched")
	}
}

func TestParseFailureIsFatal(t *testing.T) {
	path := writeSource(t, "package demo\n\nfunc broken( {\n")
	_, err := Open(path)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want ParseError", err)
	}
	if parseErr.Path != path {
		t.Errorf("Path = %q", parseErr.Path)
	}
}

func TestCRLFPreserved(t *testing.T) {
	src := strings.ReplaceAll(simpleSrc, "\n", "\r\n")
	path := writeSource(t, src)
	p, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !p.AddInlineSite(lineOf(t, simpleSrc, "MatchInline")) {
		t.Fatal("site not found")
	}
	p.SetContents(0, inline("hi"))
	if err := p.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), "\r\n") {
		t.Error("CRLF line endings should be preserved")
	}
	if !strings.Contains(string(got), `Inline("hi")`) {
		t.Error("literal not replaced")
	}
}
