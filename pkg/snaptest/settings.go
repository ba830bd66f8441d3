package snaptest

import (
	"regexp"
	"sync"

	snapruntime "github.com/ormasoftchile/snapfile/pkg/runtime"
)

// Redactor rewrites serialized snapshot text before comparison, for
// values that vary between runs (timestamps, ids, host names).
type Redactor interface {
	Redact(text string) string
}

// RedactFunc adapts a function to the Redactor interface.
type RedactFunc func(text string) string

func (f RedactFunc) Redact(text string) string { return f(text) }

// PatternRedactor replaces every match of a regular expression with a
// fixed placeholder.
type PatternRedactor struct {
	Pattern     *regexp.Regexp
	Replacement string
}

func (r PatternRedactor) Redact(text string) string {
	return r.Pattern.ReplaceAllString(text, r.Replacement)
}

// Settings adjusts how assertions executed under Bind behave. The zero
// value is the default behavior.
type Settings struct {
	// Description is stored in snapshot metadata and shown in review.
	Description string
	// Info is an arbitrary metadata blob persisted with the snapshot.
	Info any
	// InputFile references the fixture the snapshot was generated from.
	InputFile string
	// SnapshotDir overrides the storage directory, resolved relative to
	// the test source file unless absolute.
	SnapshotDir string
	// DisableModulePrefix drops the source-file prefix from snapshot
	// file names.
	DisableModulePrefix bool
	// Suffix is appended to the snapshot name as name@suffix.
	Suffix string
	// Comparator overrides equality for binary snapshots.
	Comparator snapruntime.Comparator
	// Redactors run in order over serialized text contents.
	Redactors []Redactor
}

var (
	settingsMu sync.Mutex
	boundStack []*Settings
)

// Bind runs fn with these settings active for every assertion it
// executes, restoring the previous settings afterwards even if fn
// panics. Bound settings are process-global; tests running assertions in
// parallel should not bind conflicting settings.
func (s Settings) Bind(fn func()) {
	settingsMu.Lock()
	boundStack = append(boundStack, &s)
	settingsMu.Unlock()
	defer func() {
		settingsMu.Lock()
		boundStack = boundStack[:len(boundStack)-1]
		settingsMu.Unlock()
	}()
	fn()
}

func currentSettings() *Settings {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	if len(boundStack) == 0 {
		return &Settings{}
	}
	return boundStack[len(boundStack)-1]
}
