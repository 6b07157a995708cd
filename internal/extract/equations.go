package extract

import (
	"fmt"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/kernel"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/rules"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/theory"
)

// CodeEq is one derived code equation. Resolved reports whether every side
// condition of the derivation schema was discharged; an unresolved equation
// keeps its remaining premises and is registered anyway, flagged for the
// audit trail.
type CodeEq struct {
	Def      GeneratedDef
	Thm      *kernel.Thm
	Resolved bool
}

// Result is the outcome of one extraction run: the extended theory, the
// transported top-level fact, the generated definitions and their code
// equations.
type Result struct {
	Ctx     *theory.Context
	NewFact *kernel.Thm
	Defs    []GeneratedDef
	CodeEqs []CodeEq
}

// Equations runs the recursion-equation extractor on an equation-shaped
// fact: resolve the mode selection, extract over the right-hand side,
// re-derive the equation in terms of the generated constants, then derive a
// code equation per generated definition through its rule's schema and
// discharge procedure. Definitions register under basename.defs, the new
// fact and the code equations under basename.code.
func Equations(ctx *theory.Context, modes []string, basename string, src *kernel.Thm, rep *Report) (*Result, error) {
	rs, err := ctx.Modes().Resolve(modes)
	if err != nil {
		return nil, err
	}

	imported, _, err := importFact(src)
	if err != nil {
		return nil, err
	}
	_, rhs, ok := term.DestEq(imported.Prop())
	if !ok {
		return nil, fmt.Errorf("%s: %w", term.String(imported.Prop()), ErrNotEquation)
	}

	st := &PassState{Basename: basename}
	ctx2, rhs2, err := Traverse(ctx, rs, st, rhs)
	if err != nil {
		return nil, err
	}

	defThms := make([]*kernel.Thm, len(st.Defs))
	for i, d := range st.Defs {
		defThms[i] = d.Def
	}
	if len(defThms) > 0 {
		ctx2 = ctx2.Register(basename+".defs", defThms, "defs")
	}

	newFact, err := rederive(imported, rhs2, defThms)
	if err != nil {
		return nil, err
	}

	rewriteSet := append([]*kernel.Thm{imported}, defThms...)
	codeEqs := make([]CodeEq, 0, len(st.Defs))
	for _, gd := range st.Defs {
		ce := deriveCodeEq(ctx2, gd, rewriteSet, rep)
		if ce.Thm == nil {
			continue
		}
		codeEqs = append(codeEqs, ce)
	}

	ctx2 = ctx2.Register(basename+".code", []*kernel.Thm{newFact}, "code")
	for _, ce := range codeEqs {
		tags := []string{"code"}
		if !ce.Resolved {
			tags = append(tags, "unresolved")
		}
		ctx2 = ctx2.Register(basename+".code", []*kernel.Thm{ce.Thm}, tags...)
	}

	return &Result{Ctx: ctx2, NewFact: newFact, Defs: st.Defs, CodeEqs: codeEqs}, nil
}

// rederive proves lhs == rhs' from the imported source equation and the
// generated definitions: unfolding every definition inside rhs' restores the
// original right-hand side, and transitivity closes the gap.
func rederive(imported *kernel.Thm, rhs2 term.Term, defThms []*kernel.Thm) (*kernel.Thm, error) {
	if len(defThms) == 0 {
		return imported, nil
	}
	rw, err := kernel.NewRewriter(defThms)
	if err != nil {
		return nil, err
	}
	unfold, err := rw.Conv(rhs2)
	if err != nil {
		return nil, err
	}
	_, restored, _ := term.DestEq(unfold.Prop())
	_, rhs, _ := term.DestEq(imported.Prop())
	if !term.Aconv(restored, rhs) {
		return nil, fmt.Errorf("unfolding the generated definitions gives %s, want %s", term.String(restored), term.String(rhs))
	}
	back, err := kernel.Symmetric(unfold)
	if err != nil {
		return nil, err
	}
	return kernel.Transitive(imported, back)
}

// deriveCodeEq combines a generated definition with its rule's schema and
// discharges the side conditions. Tier one specializes the schema by the
// definitional fact and runs the discharge procedure directly; tier two
// first simplifies the conditional equation with the pass's rewrite set and
// tries again. Whatever premises survive both tiers stay in the equation,
// with a warning.
func deriveCodeEq(pc rules.ProofContext, gd GeneratedDef, rewriteSet []*kernel.Thm, rep *Report) CodeEq {
	out := CodeEq{Def: gd}
	if gd.Rule.Schema == nil {
		return out
	}

	cond, err := kernel.Specialize(gd.Rule.Schema, gd.Def)
	if err != nil {
		rep.Addf(WarnUnresolved, "%s: schema does not apply to the definition: %v", gd.Name, err)
		return out
	}

	if th, err := dischargeAll(pc, gd.Rule.Discharge, cond); err == nil {
		out.Thm, out.Resolved = th, true
		return finishCodeEq(out, gd, rep)
	}

	simplified, err := kernel.Simplify(cond, rewriteSet)
	if err != nil {
		simplified = cond
	}
	if th, err := dischargeAll(pc, gd.Rule.Discharge, simplified); err == nil {
		out.Thm, out.Resolved = th, true
		return finishCodeEq(out, gd, rep)
	}

	rep.Addf(WarnUnresolved, "%s: side conditions remain: %s", gd.Name, remainingPremises(cond))
	out.Thm, out.Resolved = cond, false
	return finishCodeEq(out, gd, rep)
}

// finishCodeEq beta-normalizes the derived equation; normalization failures
// keep the raw form.
func finishCodeEq(ce CodeEq, gd GeneratedDef, rep *Report) CodeEq {
	norm, err := kernel.BetaNorm(ce.Thm)
	if err != nil {
		rep.Addf(WarnUnresolved, "%s: could not normalize the code equation: %v", gd.Name, err)
		return ce
	}
	ce.Thm = norm
	return ce
}

// dischargeAll peels the implication premises one by one through the
// discharge procedure. It either closes them all or fails without effect.
func dischargeAll(pc rules.ProofContext, discharge rules.DischargeProc, th *kernel.Thm) (*kernel.Thm, error) {
	if discharge == nil {
		if _, _, ok := term.DestImp(th.Prop()); ok {
			return nil, fmt.Errorf("no discharge procedure for %s", term.String(th.Prop()))
		}
		return th, nil
	}
	cur := th
	for {
		prem, _, ok := term.DestImp(cur.Prop())
		if !ok {
			return cur, nil
		}
		proof, err := discharge(pc, prem)
		if err != nil {
			return nil, err
		}
		cur, err = kernel.ImpElim(cur, proof)
		if err != nil {
			return nil, err
		}
	}
}

func remainingPremises(th *kernel.Thm) string {
	prems, _ := term.StripImp(th.Prop())
	s := ""
	for i, p := range prems {
		if i > 0 {
			s += "; "
		}
		s += term.String(p)
	}
	return s
}

// importFact renames a fact's schematic variables to fresh free variables so
// the traversal and closure builder work over frees and bounds only. The
// returned theorem proves the imported proposition; the substitution that
// produced it is returned for callers that track the renaming.
func importFact(src *kernel.Thm) (*kernel.Thm, *term.Subst, error) {
	prop := src.Prop()
	sv := term.SchematicsOf(prop)
	if len(sv) == 0 {
		return src, term.NewSubst(), nil
	}
	taken := map[string]bool{}
	for _, f := range term.FreesOf(prop) {
		taken[f.Name] = true
	}
	s := term.NewSubst()
	for _, v := range sv {
		name := term.Variant(v.Name, func(n string) bool { return taken[n] })
		taken[name] = true
		s.BindTerm(v, term.Free{Name: name, Ty: v.Ty})
	}
	th, err := kernel.Instantiate(src, s)
	if err != nil {
		return nil, nil, err
	}
	return th, s, nil
}
