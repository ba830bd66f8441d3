// Package snaptest is the public assertion surface. Matchers capture the
// call site, serialize the value under test, and hand off to the runtime;
// failing assertions leave pending artifacts that `snapfile review`
// consumes.
package snaptest

import (
	"encoding/json"
	"fmt"
	"runtime"

	"gopkg.in/yaml.v3"

	snapruntime "github.com/ormasoftchile/snapfile/pkg/runtime"
	"github.com/ormasoftchile/snapfile/pkg/snapshot"
)

// TB is re-exported so callers do not import the runtime package for the
// interface alone.
type TB = snapruntime.TB

// InlineLiteral wraps the expected literal of an inline assertion. The
// review tool rewrites the literal inside the Inline call in test source,
// so the argument must be a plain string literal, not a variable.
type InlineLiteral struct {
	value string
}

// Inline marks an expected inline snapshot value.
func Inline(value string) InlineLiteral {
	return InlineLiteral{value: value}
}

// MatchSnapshot compares the value against the stored snapshot named
// after the running test.
func MatchSnapshot(t TB, value any) {
	t.Helper()
	match(t, assertionAt(1), textContents(value, snapshot.KindFile))
}

// MatchNamedSnapshot compares the value against the stored snapshot with
// an explicit name.
func MatchNamedSnapshot(t TB, name string, value any) {
	t.Helper()
	a := assertionAt(1)
	a.Name = name
	match(t, a, textContents(value, snapshot.KindFile))
}

// MatchInline compares the value against the literal at the call site.
func MatchInline(t TB, value any, expected InlineLiteral) {
	t.Helper()
	a := assertionAt(1)
	a.Inline = &expected.value
	match(t, a, textContents(value, snapshot.KindInline))
}

// MatchJSON serializes the value as indented JSON before snapshotting.
func MatchJSON(t TB, value any) {
	t.Helper()
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("snapfile: serialize value as JSON: %v", err)
		return
	}
	a := assertionAt(1)
	a.Expression = "json"
	match(t, a, textContents(string(data), snapshot.KindFile))
}

// MatchJSONInline is MatchJSON against an inline literal.
func MatchJSONInline(t TB, value any, expected InlineLiteral) {
	t.Helper()
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("snapfile: serialize value as JSON: %v", err)
		return
	}
	a := assertionAt(1)
	a.Expression = "json"
	a.Inline = &expected.value
	match(t, a, textContents(string(data), snapshot.KindInline))
}

// MatchYAML serializes the value as YAML before snapshotting.
func MatchYAML(t TB, value any) {
	t.Helper()
	data, err := yaml.Marshal(value)
	if err != nil {
		t.Fatalf("snapfile: serialize value as YAML: %v", err)
		return
	}
	a := assertionAt(1)
	a.Expression = "yaml"
	match(t, a, textContents(string(data), snapshot.KindFile))
}

// MatchBinary snapshots raw bytes. The payload is stored in a sibling
// file named after the extension; the extension participates in equality.
func MatchBinary(t TB, data []byte, extension string) {
	t.Helper()
	match(t, assertionAt(1), snapshot.NewBinary(data, extension))
}

// AllowDuplicates runs fn with repeated assertions permitted for the
// current test. Every execution of the same call site must produce the
// same value.
func AllowDuplicates(t TB, fn func()) {
	t.Helper()
	snapruntime.Default.PushDuplicateBlock(t.Name())
	defer snapruntime.Default.PopDuplicateBlock(t.Name())
	fn()
}

func match(t TB, a snapruntime.Assertion, contents snapshot.Contents) {
	t.Helper()
	s := currentSettings()
	a.Description = s.Description
	a.Info = s.Info
	a.InputFile = s.InputFile
	a.SnapshotDir = s.SnapshotDir
	a.DisableModulePrefix = s.DisableModulePrefix
	a.Suffix = s.Suffix
	a.Comparator = s.Comparator
	if !contents.IsBinary() && len(s.Redactors) > 0 {
		text := contents.Raw()
		for _, r := range s.Redactors {
			text = r.Redact(text)
		}
		contents = snapshot.NewText(text, contents.TextKind())
	}
	snapruntime.Default.Assert(t, a, contents)
}

// assertionAt captures the caller's source position. skip counts frames
// above the exported matcher.
func assertionAt(skip int) snapruntime.Assertion {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		file, line = "unknown", 0
	}
	return snapruntime.Assertion{File: file, Line: line}
}

// textContents renders the value under test as snapshot text. Strings
// pass through; Stringers use their String form; everything else is
// formatted with %+v.
func textContents(value any, kind snapshot.TextKind) snapshot.Contents {
	var text string
	switch v := value.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	case fmt.Stringer:
		text = v.String()
	case error:
		text = v.Error()
	default:
		text = fmt.Sprintf("%+v", v)
	}
	return snapshot.NewText(text, kind)
}
