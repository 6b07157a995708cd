// Package kernel is the trusted core of the prover: the only way to obtain a
// Thm is through the inference rules and the definitional principle in this
// package. Everything above the kernel (rewriting, extraction, tactics)
// manufactures theorems exclusively out of these primitives, so a bug up
// there can produce a useless theorem but never an unsound one.
//
// A Thm records the rule and premises that produced it, forming a full
// derivation tree for auditing.
package kernel

import (
	"errors"
	"fmt"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

// ErrRejected tags every kernel-level refusal: ill-typed input, wrong
// proposition shape, mismatched premises. Callers classify with errors.Is and
// must propagate these unchanged.
var ErrRejected = errors.New("kernel rejected inference")

func rejectf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrRejected)...)
}

// Thm is a proved proposition. The zero value is meaningless; instances come
// only from this package.
type Thm struct {
	prop  term.Term
	rule  string
	prems []*Thm
	note  string
}

// Prop returns the proved proposition.
func (th *Thm) Prop() term.Term {
	return th.prop
}

// Rule names the inference rule that produced this theorem.
func (th *Thm) Rule() string {
	return th.rule
}

// Premises returns the theorems this one was derived from.
func (th *Thm) Premises() []*Thm {
	return th.prems
}

// Note returns the rule-specific annotation, such as an axiom name.
func (th *Thm) Note() string {
	return th.note
}

func (th *Thm) String() string {
	return "|- " + term.String(th.prop)
}

func mk(rule string, prop term.Term, prems ...*Thm) *Thm {
	return &Thm{prop: prop, rule: rule, prems: prems}
}

// checkProp verifies that a proposition is a closed boolean term.
func checkProp(t term.Term) error {
	if !term.IsClosed(t) {
		return rejectf("proposition has loose bound variables: %s", term.String(t))
	}
	ty, err := term.TypeOf(t)
	if err != nil {
		return rejectf("ill-typed proposition %s: %v", term.String(t), err)
	}
	if !term.TypeEq(ty, term.BoolT) {
		return rejectf("proposition %s has type %s, want bool", term.String(t), ty)
	}
	return nil
}

// destEqThm splits a theorem expected to be an equation.
func destEqThm(th *Thm, who string) (lhs, rhs term.Term, err error) {
	lhs, rhs, ok := term.DestEq(th.prop)
	if !ok {
		return nil, nil, rejectf("%s wants an equation, got %s", who, term.String(th.prop))
	}
	return lhs, rhs, nil
}
