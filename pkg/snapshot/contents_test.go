package snapshot

import (
	"strconv"
	"strings"
	"testing"
)

func TestMinIndentation(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"\n   1\n   2\n    ", "   "},
		{"\n            1\n    2", "    "},
		{"\n            1\n            2\n    ", "            "},
		{"\n   1\n   2\n", "   "},
		{"\n        a\n    ", "        "},
		{"", ""},
		{"\n    a\n    b\nc\n    ", ""},
		{"\na\n    ", ""},
		{"\n    a", "    "},
		{"a\n  a", ""},
		{"\n \t1\n \t2\n    ", " \t"},
		{"\n  \t  \t  \t1\n  \t2", "  \t"},
		{"\n\t\t\t1\n\t2", "\t"},
	}
	for i, tc := range cases {
		if got := minIndentation(tc.in); got != tc.want {
			t.Errorf("case %d: minIndentation(%q) = %q, want %q", i, tc.in, got, tc.want)
		}
	}
}

func TestNormalizeInline(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"\n   1\n   2\n   ", "\n1\n2\n"},
		{"\n            1\n    2", "\n        1\n2"},
		{"\n            1\n            2\n    ", "\n1\n2\n"},
		{"\n   1\n   2\n", "\n1\n2"},
		{"\n        a\n    ", "\na\n"},
		{"", ""},
		{"\n    a\n    b\nc\n    ", "\n    a\n    b\nc\n    "},
		{"\na\n    ", "\na\n    "},
		{"\n    a", "\na"},
		{"a\n  a", "a\n  a"},
		{"\n", ""},
	}
	for i, tc := range cases {
		if got := normalizeInline(tc.in); got != tc.want {
			t.Errorf("case %d: normalizeInline(%q) = %q, want %q", i, tc.in, got, tc.want)
		}
	}
}

func TestCanonicalForm(t *testing.T) {
	cases := []struct {
		name string
		c    Contents
		want string
	}{
		{"single line untouched", NewText("hello", KindInline), "hello"},
		{"crlf normalized", NewText("a\r\nb", KindFile), "a\nb"},
		{"surrounding breaks trimmed", NewText("\nbody\n", KindFile), "body"},
		{"only blank lines", NewText("\n   \n\t\n", KindInline), ""},
		{"indent stripped inline only", NewText("\n    a\n    b\n", KindInline), "a\nb"},
		{"file keeps indentation", NewText("    a\n    b", KindFile), "    a\n    b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.c.String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestToInline(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		indent string
		want   string
	}{
		{"simple", "testing", "", `"testing"`},
		{"single line with quote", `say "hi"`, "", `"say \"hi\""`},
		{"multiline", "a\nb", "", "`\na\nb\n`"},
		{"multiline indented", "a\nb", "    ", "`\n    a\n    b\n    `"},
		{"inner blank line unindented", "a\n\nb", "    ", "`\n    a\n\n    b\n    `"},
		{"already padded", "\n    ab\n", "", `"ab"`},
		{"tab kept raw", "a\t\nb", "", "`\na\t\nb\n`"},
		{"backquote forces escape", "a`b\nc", "", "\"a`b\\nc\""},
		{"carriage return escaped", "a\rb", "", `"a\rb"`},
		{"nul escaped", "a\x00b", "", `"a\x00b"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NewText(tc.body, KindInline).ToInline(tc.indent)
			if got != tc.want {
				t.Errorf("ToInline(%q, %q) = %q, want %q", tc.body, tc.indent, got, tc.want)
			}
		})
	}
}

// Rendering then re-reading the literal must canonicalize back to the same
// body, for any indentation.
func TestToInlineRoundTrip(t *testing.T) {
	bodies := []string{
		"",
		"hello",
		"a\nb",
		"a\nb\n",
		"\n  lead\ntrail  \n",
		"line with \"quotes\"",
		"a\n\nb",
		"tabs\there\nand\tthere",
	}
	indents := []string{"", "    ", "\t\t"}
	for _, body := range bodies {
		for _, indent := range indents {
			rendered := NewText(body, KindInline).ToInline(indent)
			var inner string
			if strings.HasPrefix(rendered, "`") {
				inner = rendered[1 : len(rendered)-1]
			} else {
				var err error
				inner, err = strconv.Unquote(rendered)
				if err != nil {
					t.Fatalf("unquote %q: %v", rendered, err)
				}
			}
			got := NewText(inner, KindInline).String()
			want := NewText(body, KindInline).String()
			if got != want {
				t.Errorf("round trip body %q indent %q: got %q, want %q", body, indent, got, want)
			}
		}
	}
}

func TestLegacyMatch(t *testing.T) {
	warnings := 0
	prev := LegacyWarning
	LegacyWarning = func(string) { warnings++ }
	defer func() { LegacyWarning = prev }()

	stored := NewText("⋮hello", KindInline)
	current := NewText("hello", KindInline)

	if stored.MatchesLatest(current) {
		t.Error("legacy framing must not match under latest rules")
	}
	if !stored.MatchesLegacy(current) {
		t.Error("legacy framing should match under legacy rules")
	}
	if !stored.Equal(current) {
		t.Error("Equal should fall back to legacy rules")
	}
	if warnings != 1 {
		t.Errorf("warnings = %d, want exactly 1", warnings)
	}
}

func TestLegacyDashPrefix(t *testing.T) {
	prev := LegacyWarning
	LegacyWarning = func(string) {}
	defer func() { LegacyWarning = prev }()

	stored := NewText("---\nvalue", KindFile)
	current := NewText("value", KindFile)
	if !stored.MatchesLegacy(current) {
		t.Error("leading --- marker should be stripped under legacy rules")
	}
	if stored.MatchesLatest(current) {
		t.Error("latest rules must not strip the --- marker")
	}
}

func TestLegacyMultilineFraming(t *testing.T) {
	stored := NewText("\n⋮one line\n", KindInline)
	current := NewText("one line", KindInline)
	if !stored.MatchesLegacy(current) {
		t.Error("single line stored as framed multiline should legacy-match")
	}
	if stored.MatchesLatest(current) {
		t.Error("framed multiline must not latest-match its unwrapped form")
	}
}

func TestBinaryEqual(t *testing.T) {
	a := NewBinary([]byte{1, 2, 3}, "bin")
	b := NewBinary([]byte{1, 2, 3}, "bin")
	c := NewBinary([]byte{9}, "bin")
	if !a.Equal(b) {
		t.Error("identical payloads should be equal")
	}
	if a.Equal(c) {
		t.Error("different payloads should not be equal")
	}
	if a.Equal(NewText("123", KindFile)) {
		t.Error("binary and text must never be equal")
	}
	if a.Equal(NewBinary([]byte{1, 2, 3}, "png")) {
		t.Error("same payload under a different extension should not be equal")
	}
}
