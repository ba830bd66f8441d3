package runtime

import (
	"fmt"
	"os"
	"strings"
)

// Behavior is the externally resolved update-behavior enum. The runtime
// only consumes the value; resolving it from environment or config files
// is a collaborator concern (BehaviorFromEnv is the thin default shim).
type Behavior int

const (
	// BehaviorAuto stores pending artifacts interactively, nothing in CI.
	BehaviorAuto Behavior = iota
	// BehaviorAlways writes snapshots in place regardless of match.
	BehaviorAlways
	// BehaviorUnseen writes in place only for previously unseen call
	// sites; everything else becomes a pending artifact.
	BehaviorUnseen
	// BehaviorNew always stores pending artifacts.
	BehaviorNew
	// BehaviorNo performs no storage side effects at all.
	BehaviorNo
	// BehaviorForce is like BehaviorAlways and additionally rewrites
	// passing snapshots, normalizing stored formats.
	BehaviorForce
)

var behaviorNames = map[Behavior]string{
	BehaviorAuto:   "auto",
	BehaviorAlways: "always",
	BehaviorUnseen: "unseen",
	BehaviorNew:    "new",
	BehaviorNo:     "no",
	BehaviorForce:  "force",
}

func (b Behavior) String() string {
	if name, ok := behaviorNames[b]; ok {
		return name
	}
	return fmt.Sprintf("Behavior(%d)", int(b))
}

// ParseBehavior maps the external string form onto the enum.
func ParseBehavior(s string) (Behavior, error) {
	for b, name := range behaviorNames {
		if name == strings.ToLower(strings.TrimSpace(s)) {
			return b, nil
		}
	}
	return BehaviorAuto, fmt.Errorf("unknown update behavior %q", s)
}

// Action is what the runtime does with a freshly recorded snapshot.
type Action int

const (
	// ActionNoUpdate leaves storage untouched.
	ActionNoUpdate Action = iota
	// ActionNewFile stores a pending sibling artifact (standalone) or
	// appends a pending record (inline).
	ActionNewFile
	// ActionInPlace overwrites the authoritative snapshot file.
	ActionInPlace
)

// Resolve crosses the behavior with whether this call site is previously
// unseen and whether the process runs in an automated context.
func (b Behavior) Resolve(unseen, ci bool) Action {
	switch b {
	case BehaviorAlways, BehaviorForce:
		return ActionInPlace
	case BehaviorUnseen:
		if unseen {
			return ActionInPlace
		}
		return ActionNewFile
	case BehaviorNew:
		return ActionNewFile
	case BehaviorNo:
		return ActionNoUpdate
	default: // BehaviorAuto
		if ci {
			return ActionNoUpdate
		}
		return ActionNewFile
	}
}

// BehaviorFromEnv resolves the update behavior from SNAPFILE_UPDATE,
// defaulting to auto. Unknown values also fall back to auto rather than
// breaking the test run.
func BehaviorFromEnv() Behavior {
	v := os.Getenv("SNAPFILE_UPDATE")
	if v == "" {
		return BehaviorAuto
	}
	b, err := ParseBehavior(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v; using auto\n", err)
		return BehaviorAuto
	}
	return b
}

// InCI detects an automated context the way most CI systems advertise it.
func InCI() bool {
	v := strings.ToLower(os.Getenv("CI"))
	return v != "" && v != "0" && v != "false"
}
