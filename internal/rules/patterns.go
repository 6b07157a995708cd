package rules

import (
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

// Patterns is the ordered set of default conclusion patterns the definer
// falls back to when a command supplies none. Deduplication is by normalized
// alpha equivalence, so two patterns differing only in hole or binder naming
// count as one.
type Patterns struct {
	pats []term.Term
}

// NewPatterns builds a pattern set in order.
func NewPatterns(ps ...term.Term) Patterns {
	out := Patterns{}
	for _, p := range ps {
		out = out.Add(p)
	}
	return out
}

// Add appends a pattern unless an equivalent one is already present.
func (ps Patterns) Add(p term.Term) Patterns {
	if ps.Contains(p) {
		return ps
	}
	out := make([]term.Term, len(ps.pats), len(ps.pats)+1)
	copy(out, ps.pats)
	return Patterns{pats: append(out, p)}
}

// Delete removes the pattern equivalent to p, if present.
func (ps Patterns) Delete(p term.Term) Patterns {
	norm := term.Normalize(p)
	out := make([]term.Term, 0, len(ps.pats))
	for _, q := range ps.pats {
		if !term.Aconv(term.Normalize(q), norm) {
			out = append(out, q)
		}
	}
	return Patterns{pats: out}
}

// Contains tests membership under normalized equivalence.
func (ps Patterns) Contains(p term.Term) bool {
	norm := term.Normalize(p)
	for _, q := range ps.pats {
		if term.Aconv(term.Normalize(q), norm) {
			return true
		}
	}
	return false
}

// Union appends the other set's novel patterns in their order.
func (ps Patterns) Union(other Patterns) Patterns {
	out := ps
	for _, p := range other.pats {
		out = out.Add(p)
	}
	return out
}

// List returns the patterns in order.
func (ps Patterns) List() []term.Term {
	out := make([]term.Term, len(ps.pats))
	copy(out, ps.pats)
	return out
}

// Len counts patterns.
func (ps Patterns) Len() int {
	return len(ps.pats)
}
