package syntax

import (
	"fmt"
	"strings"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

// Inference variables carry a '?' prefix, which the lexer can never produce
// for a surface type variable, so they cannot collide with user annotations.
const uvarPrefix = "?u"

func isUVar(name string) bool {
	return strings.HasPrefix(name, uvarPrefix)
}

type binder struct {
	name string
	ty   term.Type
}

// elab infers types over the raw syntax tree by first-order unification.
// Every occurrence of a free or schematic name shares one type; every
// constant occurrence gets a fresh instance of its declared generic type;
// every anonymous hole is a distinct schematic.
type elab struct {
	sig    Signature
	bind   map[string]term.Type
	frees  map[string]term.Type
	schems map[string]term.Type
	nvar   int
	nhole  int
}

func newElab(sig Signature) *elab {
	return &elab{
		sig:    sig,
		bind:   map[string]term.Type{},
		frees:  map[string]term.Type{},
		schems: map[string]term.Type{},
	}
}

func (e *elab) fresh() term.Type {
	v := term.TVar{Name: fmt.Sprintf("%s%d", uvarPrefix, e.nvar)}
	e.nvar++
	return v
}

func (e *elab) holeName() string {
	for {
		name := fmt.Sprintf("_h%d", e.nhole)
		e.nhole++
		if _, taken := e.schems[name]; !taken {
			return name
		}
	}
}

func (e *elab) walk(n node, env []binder) (term.Term, term.Type, error) {
	switch n := n.(type) {
	case nName:
		for i := len(env) - 1; i >= 0; i-- {
			if env[i].name == n.name {
				return term.Bound{Index: len(env) - 1 - i}, env[i].ty, nil
			}
		}
		if gen, ok := e.sig.LookupConst(n.name); ok {
			ty := e.instance(gen)
			return term.Const{Name: n.name, Ty: ty}, ty, nil
		}
		ty, ok := e.frees[n.name]
		if !ok {
			ty = e.fresh()
			e.frees[n.name] = ty
		}
		return term.Free{Name: n.name, Ty: ty}, ty, nil

	case nSchematic:
		ty, ok := e.schems[n.name]
		if !ok {
			ty = e.fresh()
			e.schems[n.name] = ty
		}
		return term.Schematic{Name: n.name, Ty: ty}, ty, nil

	case nHole:
		name := e.holeName()
		ty := e.fresh()
		e.schems[name] = ty
		return term.Schematic{Name: name, Ty: ty}, ty, nil

	case nNumber:
		return term.Const{Name: n.text, Ty: term.NatT}, term.NatT, nil

	case nApp:
		f, ft, err := e.walk(n.fun, env)
		if err != nil {
			return nil, nil, err
		}
		a, at, err := e.walk(n.arg, env)
		if err != nil {
			return nil, nil, err
		}
		rt := e.fresh()
		if err := e.unify(ft, term.Fun(at, rt)); err != nil {
			return nil, nil, fmt.Errorf("cannot apply %s to %s: %w", term.String(f), term.String(a), err)
		}
		return term.App{Fun: f, Arg: a}, rt, nil

	case nLam:
		ty := n.ty
		if ty == nil {
			ty = e.fresh()
		}
		body, bt, err := e.walk(n.body, append(env, binder{name: n.name, ty: ty}))
		if err != nil {
			return nil, nil, err
		}
		return term.Abs{Name: n.name, Ty: ty, Body: body}, term.Fun(ty, bt), nil
	}
	return nil, nil, fmt.Errorf("unhandled syntax node %T", n)
}

// instance freshens the type variables of a declared generic type, so each
// occurrence of a polymorphic constant unifies independently.
func (e *elab) instance(gen term.Type) term.Type {
	names := term.TVarsOf(gen)
	if len(names) == 0 {
		return gen
	}
	s := term.NewSubst()
	for _, name := range names {
		s.BindType(name, e.fresh())
	}
	return term.InstantiateType(gen, s)
}

func (e *elab) unify(a, b term.Type) error {
	a, b = e.resolve(a), e.resolve(b)
	switch at := a.(type) {
	case term.TVar:
		bt, bIsVar := b.(term.TVar)
		if bIsVar && bt.Name == at.Name {
			return nil
		}
		// Bind inference variables in preference to user-written ones,
		// so annotations keep their names where possible.
		if !isUVar(at.Name) && bIsVar && isUVar(bt.Name) {
			return e.bindVar(bt, a)
		}
		return e.bindVar(at, b)
	case term.TCon:
		switch bt := b.(type) {
		case term.TVar:
			return e.bindVar(bt, a)
		case term.TCon:
			if at.Name != bt.Name || len(at.Args) != len(bt.Args) {
				return fmt.Errorf("type mismatch: %s vs %s", e.deep(a), e.deep(b))
			}
			for i := range at.Args {
				if err := e.unify(at.Args[i], bt.Args[i]); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return fmt.Errorf("type mismatch: %s vs %s", a, b)
}

func (e *elab) bindVar(v term.TVar, t term.Type) error {
	if e.occurs(v.Name, t) {
		return fmt.Errorf("infinite type: '%s occurs in %s", v.Name, e.deep(t))
	}
	e.bind[v.Name] = t
	return nil
}

func (e *elab) occurs(name string, t term.Type) bool {
	switch t := e.resolve(t).(type) {
	case term.TVar:
		return t.Name == name
	case term.TCon:
		for _, a := range t.Args {
			if e.occurs(name, a) {
				return true
			}
		}
	}
	return false
}

// resolve follows variable bindings at the head only.
func (e *elab) resolve(t term.Type) term.Type {
	for {
		v, ok := t.(term.TVar)
		if !ok {
			return t
		}
		b, bound := e.bind[v.Name]
		if !bound {
			return t
		}
		t = b
	}
}

// deep resolves a type all the way down.
func (e *elab) deep(t term.Type) term.Type {
	t = e.resolve(t)
	c, ok := t.(term.TCon)
	if !ok || len(c.Args) == 0 {
		return t
	}
	args := make([]term.Type, len(c.Args))
	for i, a := range c.Args {
		args[i] = e.deep(a)
	}
	return term.TCon{Name: c.Name, Args: args}
}

// zonk writes the solved types back into the term and renames inference
// variables that stayed unconstrained to 'a, 'b, …, skipping names the
// user wrote in annotations.
func (e *elab) zonk(t term.Term) term.Term {
	t = e.zonkTerm(t)
	var leftover []string
	used := map[string]bool{}
	seen := map[string]bool{}
	for _, name := range termTVarNames(t) {
		if isUVar(name) {
			if !seen[name] {
				seen[name] = true
				leftover = append(leftover, name)
			}
		} else {
			used[name] = true
		}
	}
	if len(leftover) == 0 {
		return t
	}
	s := term.NewSubst()
	k := 0
	for _, name := range leftover {
		var pick string
		for {
			pick = letterName(k)
			k++
			if !used[pick] {
				break
			}
		}
		s.BindType(name, term.TVar{Name: pick})
	}
	return term.Instantiate(t, s)
}

func (e *elab) zonkTerm(t term.Term) term.Term {
	switch t := t.(type) {
	case term.Const:
		return term.Const{Name: t.Name, Ty: e.deep(t.Ty)}
	case term.Free:
		return term.Free{Name: t.Name, Ty: e.deep(t.Ty)}
	case term.Schematic:
		return term.Schematic{Name: t.Name, Index: t.Index, Ty: e.deep(t.Ty)}
	case term.Abs:
		return term.Abs{Name: t.Name, Ty: e.deep(t.Ty), Body: e.zonkTerm(t.Body)}
	case term.App:
		return term.App{Fun: e.zonkTerm(t.Fun), Arg: e.zonkTerm(t.Arg)}
	}
	return t
}

func termTVarNames(t term.Term) []string {
	var names []string
	var walkTy func(term.Type)
	walkTy = func(ty term.Type) {
		switch ty := ty.(type) {
		case term.TVar:
			names = append(names, ty.Name)
		case term.TCon:
			for _, a := range ty.Args {
				walkTy(a)
			}
		}
	}
	var walk func(term.Term)
	walk = func(t term.Term) {
		switch t := t.(type) {
		case term.Const:
			walkTy(t.Ty)
		case term.Free:
			walkTy(t.Ty)
		case term.Schematic:
			walkTy(t.Ty)
		case term.Abs:
			walkTy(t.Ty)
			walk(t.Body)
		case term.App:
			walk(t.Fun)
			walk(t.Arg)
		}
	}
	walk(t)
	return names
}

func letterName(i int) string {
	s := string(rune('a' + i%26))
	for i /= 26; i > 0; i /= 26 {
		i--
		s = string(rune('a'+i%26)) + s
	}
	return s
}
