// Package tactic provides the discharge procedures used to close side
// conditions during code-equation extraction. A tactic takes a proof context
// and a goal and either returns a theorem proving the goal or an error.
// Tactics compose through combinators and are resolved by name through a
// Registry, so extraction rules can refer to automation without linking
// against it.
package tactic

import (
	"fmt"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/kernel"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/match"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/rules"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

// Tactic proves a single goal in a proof context. It has the same shape as
// rules.DischargeProc so a tactic can be plugged into an extraction rule
// directly.
type Tactic func(pc rules.ProofContext, goal term.Term) (*kernel.Thm, error)

// Proc adapts the tactic for use as an extraction-rule discharge procedure.
func (t Tactic) Proc() rules.DischargeProc {
	return rules.DischargeProc(t)
}

// ============================================================================
// PRIMITIVES
// ============================================================================

// Assumption proves the goal from a registered fact, instantiating the
// fact's schematic variables as needed.
func Assumption() Tactic {
	return func(pc rules.ProofContext, goal term.Term) (*kernel.Thm, error) {
		return byFacts(pc.Facts(), goal)
	}
}

// ByName proves the goal from the facts registered under one name.
func ByName(qname string) Tactic {
	return func(pc rules.ProofContext, goal term.Term) (*kernel.Thm, error) {
		ths := pc.FactsByName(qname)
		if len(ths) == 0 {
			return nil, fmt.Errorf("no facts under %s", qname)
		}
		return byFacts(ths, goal)
	}
}

// Refl proves goals of the form t == t.
func Refl() Tactic {
	return func(pc rules.ProofContext, goal term.Term) (*kernel.Thm, error) {
		lhs, rhs, ok := term.DestEq(goal)
		if !ok {
			return nil, fmt.Errorf("%s is not an equation", term.String(goal))
		}
		if !term.Aconv(term.Betas(lhs), term.Betas(rhs)) {
			return nil, fmt.Errorf("%s: sides differ", term.String(goal))
		}
		th, err := kernel.BetaConv(lhs)
		if err != nil {
			return nil, err
		}
		if term.Aconv(lhs, rhs) {
			return kernel.Reflexive(lhs)
		}
		back, err := kernel.BetaConv(rhs)
		if err != nil {
			return nil, err
		}
		sym, err := kernel.Symmetric(back)
		if err != nil {
			return nil, err
		}
		return kernel.Transitive(th, sym)
	}
}

// Simp proves an equational goal by rewriting both sides with the given
// facts until they meet, or a non-equational goal by rewriting it into a
// registered fact.
func Simp(eqNames ...string) Tactic {
	return func(pc rules.ProofContext, goal term.Term) (*kernel.Thm, error) {
		var eqs []*kernel.Thm
		if len(eqNames) == 0 {
			eqs = equationalFacts(pc.Facts())
		} else {
			for _, n := range eqNames {
				eqs = append(eqs, pc.FactsByName(n)...)
			}
		}
		rw, err := kernel.NewRewriter(eqs)
		if err != nil {
			return nil, err
		}
		if lhs, rhs, ok := term.DestEq(goal); ok {
			return rw.ProveEq(lhs, rhs)
		}
		conv, err := rw.Conv(goal)
		if err != nil {
			return nil, err
		}
		_, reduced, _ := term.DestEq(conv.Prop())
		proof, err := byFacts(pc.Facts(), reduced)
		if err != nil {
			return nil, err
		}
		back, err := kernel.Symmetric(conv)
		if err != nil {
			return nil, err
		}
		return kernel.EqMP(back, proof)
	}
}

// ============================================================================
// COMBINATORS
// ============================================================================

// OrElse tries the first tactic and falls back to the second.
func OrElse(a, b Tactic) Tactic {
	return func(pc rules.ProofContext, goal term.Term) (*kernel.Thm, error) {
		th, err := a(pc, goal)
		if err == nil {
			return th, nil
		}
		return b(pc, goal)
	}
}

// First tries each tactic in order and returns the first proof.
func First(ts ...Tactic) Tactic {
	return func(pc rules.ProofContext, goal term.Term) (*kernel.Thm, error) {
		var last error
		for _, t := range ts {
			th, err := t(pc, goal)
			if err == nil {
				return th, nil
			}
			last = err
		}
		if last == nil {
			last = fmt.Errorf("no tactic given")
		}
		return nil, fmt.Errorf("no tactic proves %s: %w", term.String(goal), last)
	}
}

// ============================================================================
// SHARED MACHINERY
// ============================================================================

// byFacts closes the goal with the first fact that matches it, replaying the
// match through kernel instantiation so the result is exactly the goal.
func byFacts(ths []*kernel.Thm, goal term.Term) (*kernel.Thm, error) {
	for _, th := range ths {
		s, err := match.Terms(th.Prop(), goal, nil)
		if err != nil {
			continue
		}
		inst, err := kernel.Instantiate(th, s)
		if err != nil {
			continue
		}
		if term.Aconv(inst.Prop(), goal) {
			return inst, nil
		}
	}
	return nil, fmt.Errorf("no fact proves %s", term.String(goal))
}

// equationalFacts keeps the unconditional equations of a fact list.
func equationalFacts(ths []*kernel.Thm) []*kernel.Thm {
	var out []*kernel.Thm
	for _, th := range ths {
		if _, _, ok := term.DestEq(th.Prop()); ok {
			out = append(out, th)
		}
	}
	return out
}
