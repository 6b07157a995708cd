package rules

import (
	"github.com/seanpm2001/mirror-afp-2016-1/internal/kernel"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

// FactSet is a plain ordered collection of theorems deduplicated by
// proposition. The recursive-intro and solve rule stores the VC solver reads
// are fact sets; they carry no matching index because the solver scans them
// in order anyway.
type FactSet struct {
	facts []*kernel.Thm
}

// NewFactSet builds a fact set in order.
func NewFactSet(ths ...*kernel.Thm) FactSet {
	out := FactSet{}
	for _, th := range ths {
		out = out.Add(th)
	}
	return out
}

// Add appends a theorem unless one with an alpha-equivalent proposition is
// already present.
func (fs FactSet) Add(th *kernel.Thm) FactSet {
	if fs.Contains(th) {
		return fs
	}
	out := make([]*kernel.Thm, len(fs.facts), len(fs.facts)+1)
	copy(out, fs.facts)
	return FactSet{facts: append(out, th)}
}

// Delete removes the entry with an alpha-equivalent proposition, if any.
func (fs FactSet) Delete(th *kernel.Thm) FactSet {
	out := make([]*kernel.Thm, 0, len(fs.facts))
	for _, f := range fs.facts {
		if !term.Aconv(f.Prop(), th.Prop()) {
			out = append(out, f)
		}
	}
	return FactSet{facts: out}
}

// Contains tests membership by alpha-equivalent proposition.
func (fs FactSet) Contains(th *kernel.Thm) bool {
	for _, f := range fs.facts {
		if term.Aconv(f.Prop(), th.Prop()) {
			return true
		}
	}
	return false
}

// Union appends the other set's novel facts in their order.
func (fs FactSet) Union(other FactSet) FactSet {
	out := fs
	for _, th := range other.facts {
		out = out.Add(th)
	}
	return out
}

// List returns the theorems in order.
func (fs FactSet) List() []*kernel.Thm {
	out := make([]*kernel.Thm, len(fs.facts))
	copy(out, fs.facts)
	return out
}

// Len counts facts.
func (fs FactSet) Len() int {
	return len(fs.facts)
}
