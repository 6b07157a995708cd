package tactic

import (
	"fmt"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/kernel"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/match"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/rules"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

// DefaultDepth bounds the backward-chaining search of VCSolve.
const DefaultDepth = 32

// VCSolve discharges verification conditions by backward chaining: the goal
// is matched against the conclusions of the registered intro rules, whose
// premises become subgoals, until a solve rule, a registered fact, or
// reflexivity closes a branch. The search is depth-bounded and
// deterministic: rules apply in registration order, first match wins on
// each branch with backtracking across rules.
func VCSolve() Tactic {
	return VCSolveDepth(DefaultDepth)
}

// VCSolveDepth is VCSolve with an explicit depth bound.
func VCSolveDepth(depth int) Tactic {
	return func(pc rules.ProofContext, goal term.Term) (*kernel.Thm, error) {
		th, err := solve(pc, goal, depth)
		if err != nil {
			return nil, fmt.Errorf("vc_solve: %w", err)
		}
		return th, nil
	}
}

func solve(pc rules.ProofContext, goal term.Term, depth int) (*kernel.Thm, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("depth bound reached at %s", term.String(goal))
	}
	if th, err := byFacts(pc.Facts(), goal); err == nil {
		return th, nil
	}
	if lhs, rhs, ok := term.DestEq(goal); ok && term.Aconv(lhs, rhs) {
		return kernel.Reflexive(lhs)
	}
	if th, err := closeWith(pc.SolveRules(), pc, goal, depth); err == nil {
		return th, nil
	}
	if th, err := closeWith(pc.IntroRules(), pc, goal, depth); err == nil {
		return th, nil
	}
	return nil, fmt.Errorf("no rule closes %s", term.String(goal))
}

// closeWith applies the first rule whose conclusion matches the goal and
// whose instantiated premises can all be solved recursively.
func closeWith(ths []*kernel.Thm, pc rules.ProofContext, goal term.Term, depth int) (*kernel.Thm, error) {
	for _, th := range ths {
		_, concl := term.StripImp(th.Prop())
		s, err := match.Terms(concl, goal, nil)
		if err != nil {
			continue
		}
		inst, err := kernel.Instantiate(th, s)
		if err != nil {
			continue
		}
		proof, err := dischargePremises(pc, inst, depth)
		if err != nil {
			continue
		}
		if term.Aconv(finalConclusion(proof), goal) {
			return proof, nil
		}
	}
	return nil, fmt.Errorf("no applicable rule for %s", term.String(goal))
}

func dischargePremises(pc rules.ProofContext, th *kernel.Thm, depth int) (*kernel.Thm, error) {
	cur := th
	for {
		prem, _, ok := term.DestImp(cur.Prop())
		if !ok {
			return cur, nil
		}
		sub, err := solve(pc, prem, depth-1)
		if err != nil {
			return nil, err
		}
		cur, err = kernel.ImpElim(cur, sub)
		if err != nil {
			return nil, err
		}
	}
}

func finalConclusion(th *kernel.Thm) term.Term {
	_, concl := term.StripImp(th.Prop())
	return concl
}
