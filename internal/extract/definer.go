package extract

import (
	"fmt"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/kernel"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/match"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/theory"
)

// DefineResult is the outcome of a concrete definition: the extended theory,
// the new constant with its definitional fact, the source fact restated in
// terms of the constant, and the optional equation-extraction result.
type DefineResult struct {
	Ctx     *theory.Context
	Const   term.Const
	Params  []term.Free
	DefThm  *kernel.Thm
	Refined *kernel.Thm
	Extract *Result
}

// Concrete carves a named definition out of a fact. The fact's conclusion is
// matched against the pattern list in order; the first hole of the first
// matching pattern marks the subterm that becomes the definition body. The
// named parameters are abstracted first, any remaining free variables of the
// body after them, and the source fact is re-registered under name.refine
// with the body folded into the new constant.
func Concrete(ctx *theory.Context, name string, params []string, src *kernel.Thm, pats []term.Term, extractModes []string, doExtract bool, rep *Report) (*DefineResult, error) {
	imported, byName, err := importNamed(src)
	if err != nil {
		return nil, err
	}

	_, concl := term.StripImp(imported.Prop())
	body, err := matchPatterns(pats, concl, rep)
	if err != nil {
		return nil, err
	}

	bodyFrees := term.FreesOf(body)
	chosen := make([]term.Free, 0, len(params)+len(bodyFrees))
	seen := map[string]bool{}
	for _, p := range params {
		f, ok := byName[p]
		if !ok {
			return nil, fmt.Errorf("%q: %w", p, ErrNoSuchVariable)
		}
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		chosen = append(chosen, f)
	}
	for _, f := range bodyFrees {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		chosen = append(chosen, f)
	}

	ctx2, cst, defThm, err := ctx.Define(name, chosen, body)
	if err != nil {
		return nil, err
	}

	refined, err := kernel.Fold(imported, []*kernel.Thm{defThm})
	if err != nil {
		return nil, err
	}
	ctx2 = ctx2.Register(name+".refine", []*kernel.Thm{refined}, "refine")

	out := &DefineResult{Ctx: ctx2, Const: cst, Params: chosen, DefThm: defThm, Refined: refined}
	if doExtract {
		res, err := Equations(ctx2, extractModes, name, defThm, rep)
		if err != nil {
			return nil, err
		}
		out.Ctx = res.Ctx
		out.Extract = res
	}
	return out, nil
}

// matchPatterns tries each pattern against the conclusion in registration
// order and returns the image of the pattern's first hole. Patterns without
// holes or that fail to typecheck are skipped with a warning; a pattern with
// several holes matches through its first one.
func matchPatterns(pats []term.Term, concl term.Term, rep *Report) (term.Term, error) {
	for _, pat := range pats {
		holes := term.SchematicsOf(pat)
		if len(holes) == 0 {
			rep.Addf(WarnBadPattern, "%s has no hole", term.String(pat))
			continue
		}
		if _, err := term.TypeOf(pat); err != nil {
			rep.Addf(WarnBadPattern, "%s: %v", term.String(pat), err)
			continue
		}
		s, err := match.Terms(pat, concl, nil)
		if err != nil {
			continue
		}
		if len(holes) > 1 {
			rep.Addf(WarnMultiHole, "%s has %d holes, taking %s", term.String(pat), len(holes), term.String(holes[0]))
		}
		body, ok := s.TermByKey(holes[0].Key())
		if !ok {
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("%s: %w", term.String(concl), ErrNoPatternMatch)
}

// importNamed imports a fact like importFact and additionally returns a
// lookup table from the source variable names to the imported frees. A
// schematic is reachable under its base name, a free under its own.
func importNamed(src *kernel.Thm) (*kernel.Thm, map[string]term.Free, error) {
	imported, s, err := importFact(src)
	if err != nil {
		return nil, nil, err
	}
	byName := map[string]term.Free{}
	for _, f := range term.FreesOf(src.Prop()) {
		byName[f.Name] = f
	}
	for _, v := range term.SchematicsOf(src.Prop()) {
		img, ok := s.TermByKey(v.Key())
		if !ok {
			continue
		}
		f, ok := img.(term.Free)
		if !ok {
			continue
		}
		if _, dup := byName[v.Name]; !dup {
			byName[v.Name] = f
		}
	}
	return imported, byName, nil
}
