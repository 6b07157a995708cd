package kernel

import (
	"errors"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/match"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

// The rewriter turns a finite set of unconditional equations into a directed,
// innermost-first simplifier. Every step is justified through the primitive
// rules, so the result is a genuine theorem t == nf(t). Termination is the
// caller's contract (definitional equations strictly decrease); a fuel
// counter converts accidental cycles into an error instead of a hang.

// ErrFuel reports a rewrite that did not reach a normal form within the fuel
// budget, which in practice means a cyclic rule set.
var ErrFuel = errors.New("rewrite fuel exhausted")

// DefaultFuel bounds the number of rule applications in one rewrite.
const DefaultFuel = 10000

// Rewriter applies a fixed list of equations left to right, innermost first,
// until no rule fires.
type Rewriter struct {
	eqs  []*Thm
	fuel int
}

// NewRewriter validates that every rule is an unconditional equation and
// builds a rewriter over them. Rules apply in the given order at each node.
func NewRewriter(eqs []*Thm) (*Rewriter, error) {
	for _, eq := range eqs {
		if _, _, ok := term.DestEq(eq.prop); !ok {
			return nil, rejectf("rewrite rule is not an equation: %s", term.String(eq.prop))
		}
	}
	return &Rewriter{eqs: eqs, fuel: DefaultFuel}, nil
}

// WithFuel overrides the fuel budget.
func (rw *Rewriter) WithFuel(fuel int) *Rewriter {
	return &Rewriter{eqs: rw.eqs, fuel: fuel}
}

// Conv proves t == nf(t) for the rewriter's rule set.
func (rw *Rewriter) Conv(t term.Term) (*Thm, error) {
	fuel := rw.fuel
	th, _, err := rw.rewrite(t, &fuel)
	return th, err
}

// Thm rewrites inside a proved proposition: from |- P it derives |- nf(P).
func (rw *Rewriter) Thm(th *Thm) (*Thm, error) {
	eq, err := rw.Conv(th.prop)
	if err != nil {
		return nil, err
	}
	if _, rhs, _ := term.DestEq(eq.prop); term.Aconv(th.prop, rhs) {
		return th, nil
	}
	return EqMP(eq, th)
}

// ProveEq proves lhs == rhs by rewriting both sides to a common normal form.
func (rw *Rewriter) ProveEq(lhs, rhs term.Term) (*Thm, error) {
	le, err := rw.Conv(lhs)
	if err != nil {
		return nil, err
	}
	re, err := rw.Conv(rhs)
	if err != nil {
		return nil, err
	}
	_, ln, _ := term.DestEq(le.prop)
	_, rn, _ := term.DestEq(re.prop)
	if !term.Aconv(ln, rn) {
		return nil, rejectf("normal forms differ: %s vs %s", term.String(ln), term.String(rn))
	}
	back, err := Symmetric(re)
	if err != nil {
		return nil, err
	}
	return Transitive(le, back)
}

// rewrite performs the innermost-first pass: children reach normal form
// before rules fire on the parent, and every rewritten result is normalized
// again. Returns |- t == t' and whether anything changed.
func (rw *Rewriter) rewrite(t term.Term, fuel *int) (*Thm, bool, error) {
	th, changed, err := rw.subterms(t, fuel)
	if err != nil {
		return nil, false, err
	}
	for {
		_, cur, _ := term.DestEq(th.prop)
		step, fired, err := rw.applyAt(cur, fuel)
		if err != nil {
			return nil, false, err
		}
		if !fired {
			return th, changed, nil
		}
		changed = true
		// Normalize inside the freshly substituted right-hand side.
		_, next, _ := term.DestEq(step.prop)
		inner, innerChanged, err := rw.subterms(next, fuel)
		if err != nil {
			return nil, false, err
		}
		if innerChanged {
			step, err = Transitive(step, inner)
			if err != nil {
				return nil, false, err
			}
		}
		th, err = Transitive(th, step)
		if err != nil {
			return nil, false, err
		}
	}
}

// subterms rewrites strictly below the root.
func (rw *Rewriter) subterms(t term.Term, fuel *int) (*Thm, bool, error) {
	switch t := t.(type) {
	case term.Abs:
		v := term.Free{Name: openName(t), Ty: t.Ty}
		opened := term.Beta(term.App{Fun: t, Arg: v})
		body, changed, err := rw.rewrite(opened, fuel)
		if err != nil {
			return nil, false, err
		}
		if !changed {
			refl, err := Reflexive(t)
			return refl, false, err
		}
		th, err := Abstract(v, body)
		return th, true, err
	case term.App:
		fn, fc, err := rw.rewrite(t.Fun, fuel)
		if err != nil {
			return nil, false, err
		}
		arg, ac, err := rw.rewrite(t.Arg, fuel)
		if err != nil {
			return nil, false, err
		}
		if !fc && !ac {
			refl, err := Reflexive(t)
			return refl, false, err
		}
		th, err := Combination(fn, arg)
		return th, true, err
	default:
		refl, err := Reflexive(t)
		return refl, false, err
	}
}

// applyAt tries each rule once at the root of t; the first match fires.
func (rw *Rewriter) applyAt(t term.Term, fuel *int) (*Thm, bool, error) {
	for _, eq := range rw.eqs {
		lhs, _, _ := term.DestEq(eq.prop)
		s, err := match.Terms(lhs, t, nil)
		if err != nil {
			if errors.Is(err, match.ErrNoMatch) {
				continue
			}
			return nil, false, err
		}
		if *fuel <= 0 {
			return nil, false, ErrFuel
		}
		*fuel--
		inst, err := Instantiate(eq, s)
		if err != nil {
			return nil, false, err
		}
		_, rhs, _ := term.DestEq(inst.prop)
		if !term.Aconv(rhs, term.Betas(rhs)) {
			beta, err := BetaConv(rhs)
			if err != nil {
				return nil, false, err
			}
			inst, err = Transitive(inst, beta)
			if err != nil {
				return nil, false, err
			}
		}
		return inst, true, nil
	}
	return nil, false, nil
}

// openName picks a display-stable fresh name for descending under a binder.
func openName(a term.Abs) string {
	return term.Variant(displayName(a.Name), func(s string) bool {
		return term.OccursFree(s, a.Body)
	})
}

func displayName(n string) string {
	if n == "" {
		return "x"
	}
	return n
}

// BetaNorm beta-normalizes a theorem's proposition.
func BetaNorm(th *Thm) (*Thm, error) {
	if term.Aconv(th.prop, term.Betas(th.prop)) {
		return th, nil
	}
	eq, err := BetaConv(th.prop)
	if err != nil {
		return nil, err
	}
	return EqMP(eq, th)
}

// Simplify rewrites a theorem with the equations left to right.
func Simplify(th *Thm, eqs []*Thm) (*Thm, error) {
	rw, err := NewRewriter(eqs)
	if err != nil {
		return nil, err
	}
	return rw.Thm(th)
}

// Fold rewrites a theorem with the equations right to left, replacing
// definition bodies by their defined constants.
func Fold(th *Thm, defs []*Thm) (*Thm, error) {
	reversed := make([]*Thm, len(defs))
	for i, d := range defs {
		r, err := Symmetric(d)
		if err != nil {
			return nil, err
		}
		reversed[i] = r
	}
	rw, err := NewRewriter(reversed)
	if err != nil {
		return nil, err
	}
	return rw.Thm(th)
}

// Specialize matches a schema's first premise against a fact, instantiates
// the schema accordingly and discharges that premise, returning the rest of
// the implication. Schematics of the schema not fixed by the match stay
// schematic.
func Specialize(schema, fact *Thm) (*Thm, error) {
	prem, _, ok := term.DestImp(schema.prop)
	if !ok {
		return nil, rejectf("specialization wants an implication schema, got %s", term.String(schema.prop))
	}
	s, err := match.Terms(prem, fact.prop, nil)
	if err != nil {
		if errors.Is(err, match.ErrNoMatch) {
			return nil, rejectf("fact %s does not fit schema premise %s", term.String(fact.prop), term.String(prem))
		}
		return nil, err
	}
	inst, err := Instantiate(schema, s)
	if err != nil {
		return nil, err
	}
	return ImpElim(inst, fact)
}
