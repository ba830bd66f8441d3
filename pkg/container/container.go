// Package container groups pending snapshots for review and applies
// accept/reject/skip decisions atomically per artifact. One container
// wraps either a single .snap.new sibling or all pending inline records
// of one source file.
package container

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ormasoftchile/snapfile/pkg/patch"
	"github.com/ormasoftchile/snapfile/pkg/pending"
	"github.com/ormasoftchile/snapfile/pkg/snapshot"
)

// Operation is the reviewer's decision for one pending snapshot.
type Operation int

const (
	// OpSkip leaves the pending artifact for a later review.
	OpSkip Operation = iota
	// OpAccept commits the new snapshot.
	OpAccept
	// OpReject discards it.
	OpReject
)

// Kind distinguishes file-backed pending snapshots from inline ones.
type Kind int

const (
	// KindExternal is a .snap.new sibling of a snapshot file.
	KindExternal Kind = iota
	// KindInline is a pending record targeting a source literal.
	KindInline
)

// PendingSnapshot is one reviewable change and the decision attached to
// it.
type PendingSnapshot struct {
	// Op is the pending decision, OpSkip until the reviewer sets it.
	Op Operation
	// Old is the currently committed snapshot, nil for new ones.
	Old *snapshot.Snapshot
	// New is the recorded result.
	New *snapshot.Snapshot
	// Line is the assertion line for inline snapshots.
	Line int

	id int
}

// Summary is the one-line description shown in review lists.
func (p *PendingSnapshot) Summary() string {
	name := p.New.Name
	if name == "" {
		name = fmt.Sprintf("inline at line %d", p.Line)
	}
	if p.Old == nil {
		return fmt.Sprintf("%s (new)", name)
	}
	return name
}

// Container holds the pending snapshots of one artifact.
type Container struct {
	kind        Kind
	target      string
	pendingPath string
	snapshots   []*PendingSnapshot
	patcher     *patch.FilePatcher
}

// Load reads a pending artifact. kind selects the interpretation of
// path: a .snap.new file or a .pending-snap record file.
func Load(path string, kind Kind) (*Container, error) {
	switch kind {
	case KindExternal:
		return loadExternal(path)
	case KindInline:
		return loadInline(path)
	}
	return nil, fmt.Errorf("unknown container kind %d", kind)
}

func loadExternal(path string) (*Container, error) {
	target := strings.TrimSuffix(path, ".new")
	newSnap, err := snapshot.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load pending snapshot: %w", err)
	}
	var old *snapshot.Snapshot
	if _, err := os.Stat(target); err == nil {
		old, err = snapshot.FromFile(target)
		if err != nil {
			return nil, fmt.Errorf("load committed snapshot: %w", err)
		}
	}
	return &Container{
		kind:        KindExternal,
		target:      target,
		pendingPath: path,
		snapshots:   []*PendingSnapshot{{Old: old, New: newSnap}},
	}, nil
}

func loadInline(path string) (*Container, error) {
	target := inlineTargetOf(path)
	records, err := pending.LoadBatch(path)
	if err != nil {
		return nil, err
	}

	// A deletion marker supersedes the earlier records for its line: the
	// assertion passed again on a later execution.
	var live []*pending.Record
	for _, rec := range records {
		kept := live[:0]
		for _, prev := range live {
			if prev.Line != rec.Line {
				kept = append(kept, prev)
			}
		}
		live = kept
		if rec.New != nil {
			live = append(live, rec)
		}
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].Line < live[j].Line })

	c := &Container{kind: KindInline, target: target, pendingPath: path}
	if len(live) == 0 {
		// Nothing left to review; drop the record file.
		if err := pending.SaveBatch(path, nil); err != nil {
			return nil, err
		}
		return c, nil
	}

	patcher, err := patch.Open(target)
	if err != nil {
		return nil, err
	}
	var surviving []*pending.Record
	for _, rec := range live {
		// Call sites can move or disappear between the test run and the
		// review; records without a surviving literal are dropped.
		if !patcher.AddInlineSite(rec.Line) {
			continue
		}
		surviving = append(surviving, rec)
		c.snapshots = append(c.snapshots, &PendingSnapshot{
			Old:  rec.Old,
			New:  rec.New,
			Line: rec.Line,
			id:   patcher.Len() - 1,
		})
	}
	if len(surviving) < len(live) {
		if err := pending.SaveBatch(path, surviving); err != nil {
			return nil, err
		}
	}
	if len(c.snapshots) > 0 {
		c.patcher = patcher
	}
	return c, nil
}

// Snapshots returns the reviewable entries in order.
func (c *Container) Snapshots() []*PendingSnapshot { return c.snapshots }

// Len returns the number of reviewable entries.
func (c *Container) Len() int { return len(c.snapshots) }

// Kind returns the container's artifact kind.
func (c *Container) Kind() Kind { return c.kind }

// TargetFile is the file a commit modifies: the .snap file for external
// snapshots, the test source file for inline ones.
func (c *Container) TargetFile() string { return c.target }

// PendingFile is the artifact holding the uncommitted state.
func (c *Container) PendingFile() string { return c.pendingPath }

// Commit applies the attached operations. Skipped entries keep their
// pending artifacts; once no pending entries remain the artifact is
// removed. A pending file already removed by a concurrent run is logged
// and ignored.
func (c *Container) Commit() error {
	switch c.kind {
	case KindExternal:
		return c.commitExternal()
	default:
		return c.commitInline()
	}
}

func (c *Container) commitExternal() error {
	if len(c.snapshots) == 0 {
		return nil
	}
	s := c.snapshots[0]
	switch s.Op {
	case OpSkip:
		return nil
	case OpAccept:
		if _, err := os.Stat(c.pendingPath); os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "pending snapshot %s removed concurrently, skipping\n", c.pendingPath)
			return nil
		}
		if err := s.New.Save(c.target); err != nil {
			return err
		}
		// A re-recorded binary snapshot can change extension; the old
		// payload sibling would otherwise linger.
		if s.Old != nil && s.Old.Contents.IsBinary() {
			oldExt := s.Old.Contents.Extension()
			if !s.New.Contents.IsBinary() || s.New.Contents.Extension() != oldExt {
				os.Remove(snapshot.BinaryPath(c.target, oldExt))
			}
		}
	case OpReject:
	}
	return c.removePending(s.New)
}

func (c *Container) removePending(newSnap *snapshot.Snapshot) error {
	if err := os.Remove(c.pendingPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pending artifact: %w", err)
	}
	if newSnap != nil && newSnap.Contents.IsBinary() {
		os.Remove(snapshot.BinaryPath(c.pendingPath, newSnap.Contents.Extension()))
	}
	return nil
}

func (c *Container) commitInline() error {
	var remaining []*pending.Record
	patched := false
	for _, s := range c.snapshots {
		switch s.Op {
		case OpAccept:
			c.patcher.SetContents(s.id, s.New.Contents)
			patched = true
		case OpReject:
		case OpSkip:
			// Earlier accepted edits can shift this site; persist the
			// literal's current line so the next session binds the
			// record to the right call.
			remaining = append(remaining, &pending.Record{
				RunID: pending.RunID(),
				Line:  c.patcher.NewLine(s.id),
				New:   s.New,
				Old:   s.Old,
			})
		}
	}
	if patched {
		if err := c.patcher.Save(); err != nil {
			return err
		}
	}
	return pending.SaveBatch(c.pendingPath, remaining)
}

// SetAll applies one operation to every entry, for the non-interactive
// accept/reject commands.
func (c *Container) SetAll(op Operation) {
	for _, s := range c.snapshots {
		s.Op = op
	}
}

// inlineTargetOf maps .<name>.pending-snap back to the source file the
// records point into.
func inlineTargetOf(path string) string {
	dir, base := splitPath(path)
	base = strings.TrimPrefix(base, ".")
	base = strings.TrimSuffix(base, ".pending-snap")
	if dir == "" {
		return base
	}
	return dir + base
}

func splitPath(path string) (dir, base string) {
	if idx := strings.LastIndexByte(path, os.PathSeparator); idx >= 0 {
		return path[:idx+1], path[idx+1:]
	}
	return "", path
}
