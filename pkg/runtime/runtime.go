// Package runtime executes snapshot assertions inside the test process:
// it loads the prior snapshot for a call site, classifies the comparison,
// and — depending on the configured update behavior — writes the result in
// place, stores a pending sibling artifact, or appends a pending inline
// record. It never blocks on human input.
package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ormasoftchile/snapfile/pkg/pending"
	"github.com/ormasoftchile/snapfile/pkg/render"
	"github.com/ormasoftchile/snapfile/pkg/snapshot"
)

// DefaultSnapshotDir is where standalone snapshots live, relative to the
// directory of the test source file.
const DefaultSnapshotDir = "testdata/snapshots"

// TB is the subset of testing.TB the runtime reports through.
type TB interface {
	Helper()
	Name() string
	Logf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// Comparator decides equality for binary snapshot bodies. The default is
// byte equality plus extension equality.
type Comparator interface {
	Matches(old, new snapshot.Contents) bool
}

// Assertion carries everything the runtime needs about one call site.
type Assertion struct {
	// Name is the explicit snapshot name; empty means automatic.
	Name string
	// Inline is the literal at the call site for inline assertions,
	// nil for file-backed ones.
	Inline *string
	// File and Line locate the assertion in test source.
	File string
	Line int
	// Expression is the source expression text, if the caller captured
	// one.
	Expression string

	// Settings resolved by the caller (description, info blob, input
	// fixture reference, storage layout overrides, comparator).
	Description         string
	Info                any
	InputFile           string
	SnapshotDir         string
	DisableModulePrefix bool
	Suffix              string
	Comparator          Comparator
}

// assertionContext is the prepared state for one assertion.
type assertionContext struct {
	rc           *RunContext
	a            *Assertion
	moduleName   string
	snapshotName string
	snapshotFile string // empty for inline
	pendingPath  string // empty for file-backed
	old          *snapshot.Snapshot
	unseen       bool
}

// Assert runs the full assertion state machine and reports failures
// through t. Infrastructure errors (unreadable snapshot file, name clash)
// are fatal for the test.
func (rc *RunContext) Assert(t TB, a Assertion, contents snapshot.Contents) {
	t.Helper()
	if err := rc.assert(t, &a, contents); err != nil {
		t.Fatalf("snapfile: %v", err)
	}
}

func (rc *RunContext) assert(t TB, a *Assertion, contents snapshot.Contents) error {
	ctx, err := rc.prepare(t, a)
	if err != nil {
		return err
	}

	newSnap := snapshot.New(ctx.moduleName, ctx.snapshotName, snapshot.Metadata{
		Source:        storagePath(a.File),
		AssertionLine: a.Line,
		Description:   a.Description,
		Expression:    a.Expression,
		Info:          a.Info,
		InputFile:     a.InputFile,
		Extension:     contents.Extension(),
		SnapshotKind:  kindMarker(contents),
	}, contents)

	// Inside a duplicates block every execution of the same call site
	// must agree on the value.
	dupKey := fmt.Sprintf("%s|%s|%d", t.Name(), a.File, a.Line)
	if prev, active := rc.recordDuplicate(t.Name(), dupKey, newSnap); active && prev != nil {
		if !prev.Matches(newSnap) {
			fmt.Fprintf(os.Stderr, "%s\n%s", render.Summary(newSnap, a.Line), render.Diff(prev, newSnap))
			t.Fatalf("snapshot assertion for '%s' failed in line %d: result does not match previous value in duplicates block",
				displayName(ctx), a.Line)
			return nil
		}
	}

	pass := ctx.old != nil && ctx.matches(newSnap)
	if pass {
		if err := ctx.cleanupPassing(newSnap); err != nil {
			return err
		}
		if rc.ForceUpdate {
			if _, err := ctx.updateSnapshot(newSnap, ActionInPlace); err != nil {
				return err
			}
		}
		return nil
	}

	fmt.Fprintf(os.Stderr, "%s\n%s", render.Summary(newSnap, a.Line), render.Diff(ctx.old, newSnap))

	action := rc.Behavior.Resolve(ctx.unseen, rc.CI)
	applied, err := ctx.updateSnapshot(newSnap, action)
	if err != nil {
		return err
	}
	ctx.finalize(t, applied)
	return nil
}

// matches compares the prior snapshot against the new one under the run's
// configured strictness, routing binary bodies through the comparator.
func (ctx *assertionContext) matches(newSnap *snapshot.Snapshot) bool {
	if ctx.a.Comparator != nil && ctx.old.Contents.IsBinary() && newSnap.Contents.IsBinary() {
		return ctx.a.Comparator.Matches(ctx.old.Contents, newSnap.Contents) &&
			ctx.old.Contents.Extension() == newSnap.Contents.Extension()
	}
	if ctx.rc.RequireFullMatch {
		return ctx.old.MatchesFully(newSnap)
	}
	return ctx.old.Matches(newSnap)
}

// prepare resolves names and paths and loads the prior snapshot.
func (rc *RunContext) prepare(t TB, a *Assertion) (*assertionContext, error) {
	module := strings.TrimSuffix(filepath.Base(a.File), ".go")
	ctx := &assertionContext{rc: rc, a: a, moduleName: module}

	if a.Inline != nil {
		if err := rc.visitInline(t.Name(), a.File, a.Line); err != nil {
			return nil, err
		}
		ctx.snapshotName = a.Name
		base := filepath.Base(a.File)
		ctx.pendingPath = filepath.Join(filepath.Dir(a.File), "."+base+".pending-snap")
		ctx.old = snapshot.New(module, "", snapshot.Metadata{},
			snapshot.NewText(*a.Inline, snapshot.KindInline))
		return ctx, nil
	}

	name := a.Name
	if name == "" {
		detected, err := rc.detectName(t.Name(), module)
		if err != nil {
			return nil, err
		}
		name = detected
	}
	name = applySuffix(name, a.Suffix)
	ctx.snapshotName = name

	dir := a.SnapshotDir
	if dir == "" {
		dir = DefaultSnapshotDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(a.File), dir)
	}
	fileName := sanitizeName(name) + ".snap"
	if !a.DisableModulePrefix {
		fileName = module + "__" + fileName
	}
	ctx.snapshotFile = filepath.Join(dir, fileName)

	if _, err := os.Stat(ctx.snapshotFile); err == nil {
		old, err := snapshot.FromFile(ctx.snapshotFile)
		if err != nil {
			return nil, err
		}
		ctx.old = old
	} else {
		ctx.unseen = true
	}
	return ctx, nil
}

// cleanupPassing removes pending artifacts for a call site that now
// passes, so a previously pending, now-fixed assertion does not linger in
// review.
func (ctx *assertionContext) cleanupPassing(newSnap *snapshot.Snapshot) error {
	if ctx.snapshotFile != "" {
		os.Remove(ctx.snapshotFile + ".new")
		if ext := newSnap.Contents.Extension(); ext != "" {
			os.Remove(snapshot.BinaryPath(ctx.snapshotFile+".new", ext))
		}
	}
	if ctx.pendingPath != "" {
		if _, err := os.Stat(ctx.pendingPath); err == nil {
			// Deletion marker: the reviewer drops the stale entry.
			if err := pending.Append(ctx.pendingPath, pending.NewRecord(nil, nil, ctx.a.Line)); err != nil {
				return err
			}
		}
	}
	return nil
}

// updateSnapshot performs the storage side effect for the resolved action
// and returns the action actually applied. Inline call sites have no
// snapshot file to overwrite, so in-place updates degrade to pending
// records.
func (ctx *assertionContext) updateSnapshot(newSnap *snapshot.Snapshot, action Action) (Action, error) {
	if action == ActionInPlace && ctx.snapshotFile == "" {
		action = ActionNewFile
	}

	switch action {
	case ActionInPlace:
		if err := newSnap.Save(ctx.snapshotFile); err != nil {
			return action, err
		}
		if ctx.unseen {
			note("created previously unseen snapshot %s", ctx.snapshotFile)
		} else {
			note("updated snapshot %s", ctx.snapshotFile)
		}
		os.Remove(ctx.snapshotFile + ".new")
		if ext := newSnap.Contents.Extension(); ext != "" {
			os.Remove(snapshot.BinaryPath(ctx.snapshotFile+".new", ext))
		}

	case ActionNewFile:
		if ctx.snapshotFile != "" {
			newPath, err := newSnap.SaveNew(ctx.snapshotFile)
			if err != nil {
				return action, err
			}
			note("stored new snapshot %s", newPath)
		} else if ctx.old == nil || !ctx.old.Contents.MatchesLatest(newSnap.Contents) {
			rec := pending.NewRecord(newSnap, ctx.old, ctx.a.Line)
			if err := pending.Append(ctx.pendingPath, rec); err != nil {
				return action, err
			}
		}

	case ActionNoUpdate:
	}
	return action, nil
}

// finalize fails the test unless the snapshot was updated in place or the
// run is configured to force-pass.
func (ctx *assertionContext) finalize(t TB, applied Action) {
	t.Helper()
	if applied == ActionInPlace || ctx.rc.ForcePass {
		return
	}
	if applied == ActionNewFile {
		note("to update snapshots run `snapfile review`")
	}
	t.Fatalf("snapshot assertion for '%s' failed in line %d", displayName(ctx), ctx.a.Line)
}

func displayName(ctx *assertionContext) string {
	if ctx.snapshotName != "" {
		return ctx.snapshotName
	}
	return "unnamed snapshot"
}

func applySuffix(name, suffix string) string {
	if suffix == "" {
		return name
	}
	return name + "@" + suffix
}

func sanitizeName(name string) string {
	return strings.NewReplacer("/", "__", "\\", "__").Replace(name)
}

func kindMarker(c snapshot.Contents) string {
	if c.IsBinary() {
		return "binary"
	}
	return ""
}

// storagePath stores the source path relative to the working directory
// when possible, falling back to the bare file name.
func storagePath(file string) string {
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, file); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(file)
}

// note writes reviewer-facing hints to stderr, outside the test runner's
// captured output stream.
func note(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
