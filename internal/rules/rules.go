// Package rules holds the registries the extraction engine is driven by:
// extraction rule sets keyed by mode name, conclusion pattern sets, and the
// plain ordered fact collections the VC solver consumes.
//
// Every collection here is a value: updates return a new collection and never
// mutate the receiver. The session layer threads registry versions through
// command execution and commits them only when a command succeeds, which is
// what makes commands transactional.
package rules

import (
	"errors"
	"fmt"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/kernel"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

var (
	// ErrUnknownMode reports an extraction-mode name nobody registered.
	ErrUnknownMode = errors.New("unknown extraction mode")
	// ErrEmptyRuleSet reports a mode selection that resolved to zero rules.
	ErrEmptyRuleSet = errors.New("selected rule set is empty")
)

// ProofContext is the capability handed to a discharge procedure: read-only
// access to the registered facts and the solver rule sets. The theory context
// implements it.
type ProofContext interface {
	// Facts lists every registered fact in registration order.
	Facts() []*kernel.Thm
	// FactsByName resolves a qualified fact name; an unknown name yields nil.
	FactsByName(name string) []*kernel.Thm
	// IntroRules lists the recursive intro rules for goal decomposition.
	IntroRules() []*kernel.Thm
	// SolveRules lists the leaf-closing solve rules.
	SolveRules() []*kernel.Thm
}

// DischargeProc attempts to close a side-condition goal. On success the
// returned theorem's proposition is alpha-equivalent to the goal; on failure
// the procedure reports an error and must leave no trace behind.
type DischargeProc func(pc ProofContext, goal term.Term) (*kernel.Thm, error)

// Rule pairs an extraction pattern with the derivation schema used to build
// the matched constant's code equation and the procedure that discharges the
// schema's side conditions.
type Rule struct {
	Pattern term.Term
	Schema  *kernel.Thm
	// Discharge closes the schema's side conditions; DischargeName is its
	// registered name, kept for display and auditing since function values
	// have no identity.
	Discharge     DischargeProc
	DischargeName string
}

// SamePattern is rule identity: structural pattern equality with binder
// display names ignored. Registering a rule whose pattern is identical to an
// existing one replaces that rule in place.
func SamePattern(a, b Rule) bool {
	return term.Aconv(a.Pattern, b.Pattern)
}

// Set is an ordered, pattern-deduplicated collection of extraction rules with
// a by-head retrieval index. The zero value is an empty set.
type Set struct {
	rules  []Rule
	byHead map[string][]int
}

// NewSet builds a set from rules in order, later duplicates replacing earlier
// ones in place.
func NewSet(rs ...Rule) Set {
	s := Set{}
	for _, r := range rs {
		s = s.Add(r)
	}
	return s
}

// Add inserts a rule. A rule with a pattern identical to an existing entry
// replaces it without moving it; a new pattern is appended.
func (s Set) Add(r Rule) Set {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	replaced := false
	for i := range out {
		if SamePattern(out[i], r) {
			out[i] = r
			replaced = true
			break
		}
	}
	if !replaced {
		out = append(out, r)
	}
	return Set{rules: out, byHead: indexByHead(out)}
}

// Union folds the other set's rules into this one: identical patterns take
// the other's payload, new patterns append in the other's order.
func (s Set) Union(other Set) Set {
	out := s
	for _, r := range other.rules {
		out = out.Add(r)
	}
	return out
}

// Len counts rules.
func (s Set) Len() int {
	return len(s.rules)
}

// Rules returns the rules in registration order.
func (s Set) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Candidates returns the rules whose pattern could match t, in registration
// order: the bucket for t's head symbol merged with the flexible-head bucket.
func (s Set) Candidates(t term.Term) []Rule {
	head := term.HeadName(t)
	var idxs []int
	if head != "" {
		idxs = mergeSorted(s.byHead[head], s.byHead[""])
	} else {
		idxs = s.byHead[""]
	}
	out := make([]Rule, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, s.rules[i])
	}
	return out
}

func indexByHead(rs []Rule) map[string][]int {
	idx := map[string][]int{}
	for i, r := range rs {
		h := term.HeadName(r.Pattern)
		idx[h] = append(idx[h], i)
	}
	return idx
}

// mergeSorted merges two ascending index lists.
func mergeSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] < b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// Describe renders a one-line summary per rule for the modes command.
func (s Set) Describe() []string {
	out := make([]string, len(s.rules))
	for i, r := range s.rules {
		out[i] = fmt.Sprintf("pattern %s  schema %s  discharge %s",
			term.String(r.Pattern), term.String(r.Schema.Prop()), r.DischargeName)
	}
	return out
}
