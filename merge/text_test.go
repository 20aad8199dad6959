package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCombine_Identical(t *testing.T) {
	inputs := []string{"", "a", "hello world", "héllo wörld", "line one\nline two", "  "}

	for _, policy := range []TextPolicy{PolicyDropRemoved, PolicyUnion} {
		r := Reconciler{Policy: policy}
		for _, s := range inputs {
			got := r.Combine(s, s)
			if got != s {
				t.Errorf("(%v) got != want; got = %q, expected = %q\n", policy, got, s)
			}
		}
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		description string
		left        string
		right       string
		dropRemoved string
		union       string
	}{
		{description: "diverging tails", left: "ab", right: "ac", dropRemoved: "ac", union: "abc"},
		{description: "empty local", left: "", right: "abc", dropRemoved: "abc", union: "abc"},
		{description: "empty remote", left: "abc", right: "", dropRemoved: "", union: "abc"},
		{description: "insert in middle", left: "abc", right: "abxc", dropRemoved: "abxc", union: "abxc"},
		{description: "word insert", left: "hello world", right: "hello brave world", dropRemoved: "hello brave world", union: "hello brave world"},
		{description: "remote deletes", left: "hello brave world", right: "hello world", dropRemoved: "hello world", union: "hello brave world"},
		{description: "multibyte replace", left: "héllo", right: "hállo", dropRemoved: "hállo", union: "héállo"},
	}

	for _, tc := range tests {
		got := Reconciler{Policy: PolicyDropRemoved}.Combine(tc.left, tc.right)
		if got != tc.dropRemoved {
			t.Errorf("(%s, drop-removed) got != want; got = %q, expected = %q\n", tc.description, got, tc.dropRemoved)
		}

		got = Reconciler{Policy: PolicyUnion}.Combine(tc.left, tc.right)
		if got != tc.union {
			t.Errorf("(%s, union) got != want; got = %q, expected = %q\n", tc.description, got, tc.union)
		}
	}
}

func TestParseTextPolicy(t *testing.T) {
	for _, p := range []TextPolicy{PolicyDropRemoved, PolicyUnion} {
		got, err := ParseTextPolicy(p.String())
		if err != nil {
			t.Errorf("error: %v\n", err)
		}
		if !cmp.Equal(got, p) {
			t.Errorf("got != want; diff = %v\n", cmp.Diff(got, p))
		}
	}

	if _, err := ParseTextPolicy("three-way"); err == nil {
		t.Errorf("expected an error for an unknown policy")
	}
}
