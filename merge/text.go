package merge

import (
	"fmt"
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// TextPolicy selects which diff segments survive when two leaf texts are combined.
type TextPolicy int

const (
	// PolicyDropRemoved keeps every segment except those removed from local on the way to remote.
	// Characters added by either side survive; a character only local has is dropped.
	PolicyDropRemoved TextPolicy = iota

	// PolicyUnion keeps every segment, removed ones included, so no side ever loses a character.
	// Deletions made by a client never reach the canonical document under this policy.
	PolicyUnion
)

func (p TextPolicy) String() string {
	switch p {
	case PolicyDropRemoved:
		return "drop-removed"
	case PolicyUnion:
		return "union"
	}
	return fmt.Sprintf("TextPolicy(%d)", int(p))
}

// ParseTextPolicy parses the name returned by TextPolicy.String.
func ParseTextPolicy(s string) (TextPolicy, error) {
	switch s {
	case "drop-removed", "":
		return PolicyDropRemoved, nil
	case "union":
		return PolicyUnion, nil
	}
	return 0, fmt.Errorf("unknown text policy %q", s)
}

// Reconciler combines two versions of a leaf string with a character diff.
//
// The diff always runs from local to remote. This is a best-effort union, not a
// three-way merge: without a common ancestor it cannot tell an insertion on one
// side from a deletion on the other.
type Reconciler struct {
	Policy TextPolicy
}

// Combine merges left (local) and right (remote) into one string.
func (r Reconciler) Combine(left, right string) string {
	if left == right {
		return left
	}

	dmp := diffpatch.New()
	// No timeout: the result must not depend on how fast the machine is.
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMain(left, right, false)

	var b strings.Builder
	for _, d := range diffs {
		if d.Type == diffpatch.DiffDelete && r.Policy == PolicyDropRemoved {
			continue
		}
		b.WriteString(d.Text)
	}
	return b.String()
}
