// Package extract implements the pattern-driven extraction engine: the
// closure builder that lambda-lifts matched subterms into fresh constants,
// the rule-driven traversal, the recursion-equation extractor and the
// concrete-function definer. Everything here threads an immutable theory
// context and returns the extended version; callers decide when to commit.
package extract

import (
	"errors"
	"fmt"
)

// User-level failures of the extraction commands. Fatal to the command, no
// state change becomes visible.
var (
	// ErrNoSuchVariable reports a requested parameter name that is not a
	// variable of the source fact.
	ErrNoSuchVariable = errors.New("no such variable in fact")
	// ErrNoPatternMatch reports a conclusion no supplied pattern matches.
	ErrNoPatternMatch = errors.New("conclusion matches no pattern")
	// ErrNotEquation reports a source fact that is not equation-shaped.
	ErrNotEquation = errors.New("fact is not an equation")
)

// WarningKind classifies non-fatal diagnostics.
type WarningKind string

const (
	// WarnMultiHole flags a matched pattern with several holes; only the
	// first hole drives extraction.
	WarnMultiHole WarningKind = "ambiguous-multi-hole-pattern"
	// WarnBadPattern flags a structurally unusable pattern that was skipped.
	WarnBadPattern WarningKind = "invalid-pattern-skipped"
	// WarnUnresolved flags a code equation whose side conditions survived
	// both discharge attempts.
	WarnUnresolved WarningKind = "unresolved-side-conditions"
)

// Warning is one diagnostic; the command that produced it still succeeded.
type Warning struct {
	Kind   WarningKind
	Detail string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Detail)
}

// Report accumulates warnings across one command. A nil *Report discards
// everything, so deeply nested code can emit unconditionally.
type Report struct {
	Warnings []Warning
}

// Addf records a warning.
func (r *Report) Addf(kind WarningKind, format string, args ...interface{}) {
	if r == nil {
		return
	}
	r.Warnings = append(r.Warnings, Warning{Kind: kind, Detail: fmt.Sprintf(format, args...)})
}

// Has tests whether any warning of the kind was recorded.
func (r *Report) Has(kind WarningKind) bool {
	if r == nil {
		return false
	}
	for _, w := range r.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
