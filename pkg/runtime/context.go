package runtime

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/ormasoftchile/snapfile/pkg/snapshot"
)

// RunContext holds the per-test-run shared state: name counters for
// repeated assertions in one test, clash detection between test functions
// whose snapshot names normalize identically, and the set of inline call
// sites already visited. It is passed explicitly into assertions; all maps
// are mutex-guarded and append-only during a run.
type RunContext struct {
	// Behavior is the externally resolved update behavior.
	Behavior Behavior
	// CI marks an automated context (affects BehaviorAuto).
	CI bool
	// ForcePass suppresses assertion failures while keeping all pending
	// write side effects, for exploratory workflows.
	ForcePass bool
	// ForceUpdate rewrites snapshots even when the assertion passes.
	ForceUpdate bool
	// RequireFullMatch also compares persisted metadata.
	RequireFullMatch bool

	mu           sync.Mutex
	nameCounters map[string]int
	clashSeen    map[string]bool
	inlineSeen   map[string]struct{}
	dupBlocks    map[string]map[string]*snapshot.Snapshot
}

// NewRunContext creates a run context with behavior and CI detection
// resolved from the environment.
func NewRunContext() *RunContext {
	return &RunContext{
		Behavior:     BehaviorFromEnv(),
		CI:           InCI(),
		nameCounters: make(map[string]int),
		clashSeen:    make(map[string]bool),
		inlineSeen:   make(map[string]struct{}),
		dupBlocks:    make(map[string]map[string]*snapshot.Snapshot),
	}
}

// Default is the process-wide run context used by the plain assertion
// helpers. Tests that need isolation construct their own.
var Default = NewRunContext()

// NameClashError reports two call sites normalizing to the same snapshot
// identity within one module. Both names are included so the user can
// rename one.
type NameClashError struct {
	Module string
	NameA  string
	NameB  string
}

func (e *NameClashError) Error() string {
	return fmt.Sprintf("snapshot name clash between '%s' and '%s' in '%s': rename one test",
		e.NameA, e.NameB, e.Module)
}

// detectName derives the automatic snapshot name from the running test's
// name, de-duplicating repeated assertions in the same test with a
// counter suffix.
func (rc *RunContext) detectName(testName, module string) (string, error) {
	base := testName
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	prefixed := false
	if strings.HasPrefix(base, "Test") && len(base) > len("Test") {
		base = base[len("Test"):]
		prefixed = true
	}
	name := toSnake(base)
	key := module + "::" + name

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if wasPrefixed, seen := rc.clashSeen[key]; seen {
		if wasPrefixed != prefixed {
			return "", &NameClashError{Module: module, NameA: name, NameB: "Test" + base}
		}
	} else {
		rc.clashSeen[key] = prefixed
	}

	if rc.duplicatesAllowedLocked(testName) {
		return name, nil
	}

	rc.nameCounters[key]++
	if idx := rc.nameCounters[key]; idx > 1 {
		name = fmt.Sprintf("%s-%d", name, idx)
	}
	return name, nil
}

// visitInline marks an inline call site as seen for this run. Revisiting
// one (a loop body) is rejected unless a duplicates block is active.
func (rc *RunContext) visitInline(testName, file string, line int) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.duplicatesAllowedLocked(testName) {
		return nil
	}
	key := fmt.Sprintf("%s|%d", file, line)
	if _, seen := rc.inlineSeen[key]; seen {
		return fmt.Errorf("inline snapshot assertions cannot run in loops; wrap them in snaptest.AllowDuplicates")
	}
	rc.inlineSeen[key] = struct{}{}
	return nil
}

// --- duplicate blocks ---

// PushDuplicateBlock enables duplicate recording for assertions executed
// by the named test until the matching Pop.
func (rc *RunContext) PushDuplicateBlock(testName string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.dupBlocks[testName] = make(map[string]*snapshot.Snapshot)
}

// PopDuplicateBlock disables duplicate recording for the named test.
func (rc *RunContext) PopDuplicateBlock(testName string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.dupBlocks, testName)
}

func (rc *RunContext) duplicatesAllowedLocked(testName string) bool {
	_, ok := rc.dupBlocks[testName]
	return ok
}

// recordDuplicate stores the first value seen for a call site inside a
// duplicates block and returns the previously recorded one, if any, so the
// caller can verify every execution agreed.
func (rc *RunContext) recordDuplicate(testName, key string, snap *snapshot.Snapshot) (prev *snapshot.Snapshot, active bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	block, ok := rc.dupBlocks[testName]
	if !ok {
		return nil, false
	}
	if existing, seen := block[key]; seen {
		return existing, true
	}
	block[key] = snap
	return nil, true
}

// toSnake converts a Go test name to the snake_case snapshot convention.
func toSnake(s string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		if unicode.IsUpper(r) {
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
			continue
		}
		b.WriteRune(r)
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return b.String()
}
