package extract

import (
	"fmt"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/kernel"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/rules"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/theory"
)

// EnvEntry is one enclosing binder, as seen by the traversal. Environments
// list binders outermost first.
type EnvEntry struct {
	Name string
	Ty   term.Type
}

// GeneratedDef records one constant the engine introduced: its closure
// parameters in definition order, the body, the defining theorem and the
// rule whose match triggered it.
type GeneratedDef struct {
	Name   string
	Const  term.Const
	Params []term.Free
	Body   term.Term
	Def    *kernel.Thm
	Rule   rules.Rule
}

// BuildClosure lambda-lifts a subterm into a fresh named constant.
//
// The subterm sits inside the binder nest described by env and may reference
// those binders by de Bruijn index. The new constant closes over exactly the
// binders the subterm actually uses, outermost first, prefixed by the
// subterm's free variables in occurrence order (they become parameters too,
// keeping the definition self-contained). The returned replacement applies
// the constant to the original references and is therefore valid at the
// subterm's original position.
func BuildClosure(ctx *theory.Context, name string, env []EnvEntry, sub term.Term) (*theory.Context, term.Term, GeneratedDef, error) {
	var zero GeneratedDef

	loose := term.LooseBounds(sub)
	for _, idx := range loose {
		if idx >= len(env) {
			return nil, nil, zero, fmt.Errorf("subterm references binder %d outside its environment of %d", idx, len(env))
		}
	}

	// Fresh display names for the full environment, collision-avoiding
	// against the subterm's own variables and the signature.
	bases := make([]string, len(env))
	for i, e := range env {
		bases[i] = displayBase(e.Name)
	}
	names := term.Variants(bases, func(s string) bool {
		if term.OccursFree(s, sub) {
			return true
		}
		_, declared := ctx.LookupConst(s)
		return declared
	})

	// Substitute the fresh names for the de Bruijn references. Loose index i
	// counts binders inward from the subterm, so it names env entry
	// len(env)-1-i.
	image := map[int]term.Term{}
	closureParams := make([]term.Free, 0, len(loose))
	for k := len(loose) - 1; k >= 0; k-- { // outermost referenced binder first
		idx := loose[k]
		pos := len(env) - 1 - idx
		v := term.Free{Name: names[pos], Ty: env[pos].Ty}
		image[idx] = v
		closureParams = append(closureParams, v)
	}
	body := term.SubstBounds(sub, image)

	params := append(append([]term.Free{}, term.FreesOf(sub)...), closureParams...)

	freshName := ctx.FreshConstName(name)
	ctx2, cst, def, err := ctx.Define(freshName, params, body)
	if err != nil {
		return nil, nil, zero, err
	}

	// Re-express the applied arguments with the original references so the
	// replacement stays valid inside the binder nest.
	args := make([]term.Term, 0, len(params))
	for _, f := range term.FreesOf(sub) {
		args = append(args, f)
	}
	for k := len(loose) - 1; k >= 0; k-- {
		args = append(args, term.Bound{Index: loose[k]})
	}
	repl := term.Apply(cst, args...)

	gd := GeneratedDef{
		Name:   freshName,
		Const:  cst,
		Params: params,
		Body:   body,
		Def:    def,
	}
	return ctx2, repl, gd, nil
}

func displayBase(n string) string {
	if n == "" {
		return "x"
	}
	return n
}
