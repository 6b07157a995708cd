// Package match implements one-way first-order matching of pattern terms
// against candidates. Schematic variables in the pattern bind subterms of the
// candidate; type variables in the pattern bind types. The candidate is taken
// literally, schematics inside it included.
//
// Soundness contract: when Terms succeeds with substitution s,
// term.Instantiate(pattern, s) is alpha-equivalent to the candidate.
package match

import (
	"errors"
	"fmt"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

// ErrNoMatch reports that the candidate does not fit the pattern. Callers
// test with errors.Is.
var ErrNoMatch = errors.New("term does not match pattern")

// Terms matches pattern against t. outer lists the types of binders enclosing
// t, innermost first; it is consulted to type candidate subterms when a hole
// carries a type to check. A nil outer means t is closed.
func Terms(pattern, t term.Term, outer []term.Type) (*term.Subst, error) {
	m := &matcher{subst: term.NewSubst(), outer: outer}
	if err := m.terms(pattern, t, 0); err != nil {
		return nil, err
	}
	return m.subst, nil
}

type matcher struct {
	subst *term.Subst
	outer []term.Type
	// binders holds candidate-side binder types crossed during the walk,
	// innermost first.
	binders []term.Type
}

func (m *matcher) terms(p, t term.Term, depth int) error {
	switch p := p.(type) {
	case term.Schematic:
		return m.bindHole(p, t, depth)
	case term.Const:
		c, ok := t.(term.Const)
		if !ok || c.Name != p.Name {
			return ErrNoMatch
		}
		return m.types(p.Ty, c.Ty)
	case term.Free:
		f, ok := t.(term.Free)
		if !ok || f.Name != p.Name {
			return ErrNoMatch
		}
		return m.types(p.Ty, f.Ty)
	case term.Bound:
		b, ok := t.(term.Bound)
		if !ok || b.Index != p.Index {
			return ErrNoMatch
		}
		return nil
	case term.Abs:
		a, ok := t.(term.Abs)
		if !ok {
			return ErrNoMatch
		}
		if err := m.types(p.Ty, a.Ty); err != nil {
			return err
		}
		m.binders = append([]term.Type{a.Ty}, m.binders...)
		err := m.terms(p.Body, a.Body, depth+1)
		m.binders = m.binders[1:]
		return err
	case term.App:
		a, ok := t.(term.App)
		if !ok {
			return ErrNoMatch
		}
		if err := m.terms(p.Fun, a.Fun, depth); err != nil {
			return err
		}
		return m.terms(p.Arg, a.Arg, depth)
	}
	return fmt.Errorf("unknown pattern node %T: %w", p, ErrNoMatch)
}

// bindHole binds the schematic p to the candidate t seen at the given binder
// depth inside the pattern. The candidate may not mention binders the pattern
// introduced above the hole; its remaining loose references are renumbered to
// the hole's own frame so that instantiation replays the walk.
func (m *matcher) bindHole(p term.Schematic, t term.Term, depth int) error {
	for _, idx := range term.LooseBounds(t) {
		if idx < depth {
			return ErrNoMatch
		}
	}
	image := term.Shift(-depth, 0, t)

	if prev, ok := m.subst.LookupTerm(p); ok {
		if !term.Aconv(prev, image) {
			return ErrNoMatch
		}
		return nil
	}

	ty, err := term.TypeOfUnder(m.candidateEnv(), t)
	if err != nil {
		return fmt.Errorf("untypable candidate for ?%s: %w", p.Name, ErrNoMatch)
	}
	if err := m.types(p.Ty, ty); err != nil {
		return err
	}
	m.subst.BindTerm(p, image)
	return nil
}

// candidateEnv is the binder environment of the current candidate position:
// binders crossed during the walk, then the caller-supplied outer context.
func (m *matcher) candidateEnv() []term.Type {
	env := make([]term.Type, 0, len(m.binders)+len(m.outer))
	env = append(env, m.binders...)
	env = append(env, m.outer...)
	return env
}

func (m *matcher) types(p, ty term.Type) error {
	switch p := p.(type) {
	case term.TVar:
		if prev, ok := m.subst.LookupType(p.Name); ok {
			if !term.TypeEq(prev, ty) {
				return ErrNoMatch
			}
			return nil
		}
		m.subst.BindType(p.Name, ty)
		return nil
	case term.TCon:
		c, ok := ty.(term.TCon)
		if !ok || c.Name != p.Name || len(c.Args) != len(p.Args) {
			return ErrNoMatch
		}
		for i := range p.Args {
			if err := m.types(p.Args[i], c.Args[i]); err != nil {
				return err
			}
		}
		return nil
	}
	return ErrNoMatch
}
