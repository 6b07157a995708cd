package kernel

import (
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

// Primitive inference rules. Each constructor validates its inputs and
// returns either a new theorem or a wrapped ErrRejected.

// Axiom admits prop as proved without derivation. The name is recorded for
// auditing. Axioms carry the trust of whoever states them.
func Axiom(name string, prop term.Term) (*Thm, error) {
	if err := checkProp(prop); err != nil {
		return nil, err
	}
	th := mk("axiom", prop)
	th.note = name
	return th, nil
}

// Reflexive proves t == t.
func Reflexive(t term.Term) (*Thm, error) {
	if !term.IsClosed(t) {
		return nil, rejectf("reflexivity over open term %s", term.String(t))
	}
	prop, err := term.MkEq(t, t)
	if err != nil {
		return nil, rejectf("reflexivity: %v", err)
	}
	return mk("reflexive", prop), nil
}

// Symmetric turns a == b into b == a.
func Symmetric(th *Thm) (*Thm, error) {
	lhs, rhs, err := destEqThm(th, "symmetry")
	if err != nil {
		return nil, err
	}
	prop, err := term.MkEq(rhs, lhs)
	if err != nil {
		return nil, rejectf("symmetry: %v", err)
	}
	return mk("symmetric", prop, th), nil
}

// Transitive chains a == b and b == c into a == c. The middle terms must be
// alpha-equivalent.
func Transitive(ab, bc *Thm) (*Thm, error) {
	a, b1, err := destEqThm(ab, "transitivity")
	if err != nil {
		return nil, err
	}
	b2, c, err := destEqThm(bc, "transitivity")
	if err != nil {
		return nil, err
	}
	if !term.Aconv(b1, b2) {
		return nil, rejectf("transitivity middle terms differ: %s vs %s", term.String(b1), term.String(b2))
	}
	prop, err := term.MkEq(a, c)
	if err != nil {
		return nil, rejectf("transitivity: %v", err)
	}
	return mk("transitive", prop, ab, bc), nil
}

// Combination lifts equality through application: from f == g and a == b
// conclude f a == g b, provided the applications type-check.
func Combination(fg, ab *Thm) (*Thm, error) {
	f, g, err := destEqThm(fg, "combination")
	if err != nil {
		return nil, err
	}
	a, b, err := destEqThm(ab, "combination")
	if err != nil {
		return nil, err
	}
	lhs := term.App{Fun: f, Arg: a}
	rhs := term.App{Fun: g, Arg: b}
	prop, err := term.MkEq(lhs, rhs)
	if err != nil {
		return nil, rejectf("combination: %v", err)
	}
	return mk("combination", prop, fg, ab), nil
}

// Abstract lifts equality under a binder: from a == b conclude
// (%v. a) == (%v. b), abstracting the free variable v on both sides.
func Abstract(v term.Free, th *Thm) (*Thm, error) {
	a, b, err := destEqThm(th, "abstraction")
	if err != nil {
		return nil, err
	}
	lhs := term.Bind(v, a)
	rhs := term.Bind(v, b)
	prop, err := term.MkEq(lhs, rhs)
	if err != nil {
		return nil, rejectf("abstraction: %v", err)
	}
	out := mk("abstract", prop, th)
	out.note = v.Name
	return out, nil
}

// BetaConv proves t == u where u is the beta-normal form of t.
func BetaConv(t term.Term) (*Thm, error) {
	if !term.IsClosed(t) {
		return nil, rejectf("beta conversion over open term %s", term.String(t))
	}
	if _, err := term.TypeOf(t); err != nil {
		return nil, rejectf("beta conversion: %v", err)
	}
	prop, err := term.MkEq(t, term.Betas(t))
	if err != nil {
		return nil, rejectf("beta conversion: %v", err)
	}
	return mk("beta", prop), nil
}

// Instantiate applies a substitution to a theorem's schematic and type
// variables. The instantiated proposition is re-checked; substitutions that
// break typing are rejected.
func Instantiate(th *Thm, s *term.Subst) (*Thm, error) {
	prop := term.Instantiate(th.prop, s)
	if err := checkProp(prop); err != nil {
		return nil, err
	}
	out := mk("instantiate", prop, th)
	if n := s.Len(); n > 0 {
		out.note = instNote(s)
	}
	return out, nil
}

// ImpElim is modus ponens: from A ==> B and A conclude B.
func ImpElim(imp, fact *Thm) (*Thm, error) {
	prem, concl, ok := term.DestImp(imp.prop)
	if !ok {
		return nil, rejectf("modus ponens wants an implication, got %s", term.String(imp.prop))
	}
	if !term.Aconv(prem, fact.prop) {
		return nil, rejectf("modus ponens premise mismatch: want %s, have %s", term.String(prem), term.String(fact.prop))
	}
	return mk("imp-elim", concl, imp, fact), nil
}

// EqMP transports truth along a propositional equation: from P == Q and P
// conclude Q.
func EqMP(eq, fact *Thm) (*Thm, error) {
	p, q, err := destEqThm(eq, "equality modus ponens")
	if err != nil {
		return nil, err
	}
	if !term.Aconv(p, fact.prop) {
		return nil, rejectf("equality modus ponens mismatch: want %s, have %s", term.String(p), term.String(fact.prop))
	}
	return mk("eq-mp", q, eq, fact), nil
}

func instNote(s *term.Subst) string {
	out := ""
	for i, k := range s.TermKeys() {
		if i > 0 {
			out += ", "
		}
		img, _ := s.TermByKey(k)
		out += "?" + k + " := " + term.String(img)
	}
	return out
}
