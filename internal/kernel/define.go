package kernel

import (
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

// Define is the definitional principle: it introduces a brand-new constant
// together with the theorem
//
//	name ?p1 ... ?pn == body
//
// universally quantified over the parameters. The body must be closed, must
// mention no variables beyond the parameters, and must type-check; anything
// else is rejected. Name freshness against a signature is the caller's
// concern, the kernel only guarantees the equation is well-formed.
func Define(name string, params []term.Free, body term.Term) (term.Const, *Thm, error) {
	var zero term.Const
	if name == "" {
		return zero, nil, rejectf("definition needs a name")
	}
	seen := map[string]bool{}
	for _, p := range params {
		if seen[p.Name] {
			return zero, nil, rejectf("duplicate definition parameter %s", p.Name)
		}
		seen[p.Name] = true
	}
	if !term.IsClosed(body) {
		return zero, nil, rejectf("definition body has loose bound variables: %s", term.String(body))
	}
	if sv := term.SchematicsOf(body); len(sv) > 0 {
		return zero, nil, rejectf("definition body contains schematic ?%s", sv[0].Name)
	}
	byName := map[string]term.Free{}
	for _, p := range params {
		byName[p.Name] = p
	}
	for _, f := range term.FreesOf(body) {
		p, ok := byName[f.Name]
		if !ok {
			return zero, nil, rejectf("definition body mentions undeclared variable %s", f.Name)
		}
		if !term.TypeEq(p.Ty, f.Ty) {
			return zero, nil, rejectf("variable %s has type %s in body, declared %s", f.Name, f.Ty, p.Ty)
		}
	}

	bodyTy, err := term.TypeOf(body)
	if err != nil {
		return zero, nil, rejectf("definition body: %v", err)
	}
	paramTys := make([]term.Type, len(params))
	for i, p := range params {
		paramTys[i] = p.Ty
	}
	c := term.Const{Name: name, Ty: term.FunN(paramTys, bodyTy)}

	holes := make([]term.Term, len(params))
	for i, p := range params {
		holes[i] = term.Schematic{Name: p.Name, Ty: p.Ty}
	}
	lhs := term.Apply(c, holes...)
	rhs := exportFrees(body, params)
	prop, err := term.MkEq(lhs, rhs)
	if err != nil {
		return zero, nil, rejectf("definition equation: %v", err)
	}
	th := mk("define", prop)
	th.note = name
	return c, th, nil
}

// Generalize exports every free variable of a theorem to a schematic
// variable, making the result usable as a rewrite rule or schema. Schematic
// indices are bumped past any already present so imported and exported
// generations never collide.
func Generalize(th *Thm) *Thm {
	frees := term.FreesOf(th.prop)
	if len(frees) == 0 {
		return th
	}
	idx := term.MaxSchematicIndex(th.prop) + 1
	prop := th.prop
	for _, f := range frees {
		prop = replaceFree(prop, f, term.Schematic{Name: f.Name, Index: idx, Ty: f.Ty})
	}
	return mk("generalize", prop, th)
}

// exportFrees replaces each parameter occurrence in t by the matching
// schematic.
func exportFrees(t term.Term, params []term.Free) term.Term {
	switch t := t.(type) {
	case term.Free:
		for _, p := range params {
			if p.Name == t.Name {
				return term.Schematic{Name: t.Name, Ty: t.Ty}
			}
		}
		return t
	case term.Abs:
		return term.Abs{Name: t.Name, Ty: t.Ty, Body: exportFrees(t.Body, params)}
	case term.App:
		return term.App{Fun: exportFrees(t.Fun, params), Arg: exportFrees(t.Arg, params)}
	}
	return t
}

// replaceFree substitutes a schematic for every occurrence of the free v.
func replaceFree(t term.Term, v term.Free, by term.Schematic) term.Term {
	switch t := t.(type) {
	case term.Free:
		if t.Name == v.Name {
			return by
		}
		return t
	case term.Abs:
		return term.Abs{Name: t.Name, Ty: t.Ty, Body: replaceFree(t.Body, v, by)}
	case term.App:
		return term.App{Fun: replaceFree(t.Fun, v, by), Arg: replaceFree(t.Arg, v, by)}
	}
	return t
}
