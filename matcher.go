package decompose

import (
	"strings"

	"github.com/slatecc/decompose/internal/lower"
)

// FunctionMatcher marks callees whose calls must be hoisted out of
// expression position.
//
// Frontends use this for calls that a later pipeline stage expands into
// statements (inlined bodies, suspending calls): every marked call behaves
// like a statement-shaped construct for decomposition purposes, which is
// what forces loop and conditional restructuring around it.
type FunctionMatcher = lower.CallMatcher

// ExactMatcher matches an exact list of callee names.
type ExactMatcher struct {
	names map[string]bool
}

// NewExactMatcher creates a matcher from a list of callee names.
func NewExactMatcher(names []string) *ExactMatcher {
	m := &ExactMatcher{names: make(map[string]bool)}
	for _, n := range names {
		m.names[n] = true
	}
	return m
}

// Match returns true if the callee is in the list.
func (m *ExactMatcher) Match(callee string) bool {
	return m.names[callee]
}

// PrefixMatcher matches callees by name prefix, e.g. every callee a
// frontend namespaces under "inline$".
type PrefixMatcher struct {
	prefixes []string
}

// NewPrefixMatcher creates a matcher from a list of name prefixes.
func NewPrefixMatcher(prefixes []string) *PrefixMatcher {
	return &PrefixMatcher{prefixes: prefixes}
}

// Match returns true if the callee starts with any prefix.
func (m *PrefixMatcher) Match(callee string) bool {
	for _, p := range m.prefixes {
		if strings.HasPrefix(callee, p) {
			return true
		}
	}
	return false
}

// MatcherFunc adapts a plain function to a FunctionMatcher.
type MatcherFunc func(callee string) bool

// Match calls the underlying function.
func (f MatcherFunc) Match(callee string) bool {
	return f(callee)
}
