package term

import (
	"fmt"
	"sort"
)

// =============================================================================
// DE BRUIJN SHIFTING AND SUBSTITUTION
// =============================================================================

// Shift adds d to every bound index >= cutoff. Indices below cutoff refer to
// binders inside t and stay put.
func Shift(d, cutoff int, t Term) Term {
	switch t := t.(type) {
	case Bound:
		if t.Index >= cutoff {
			return Bound{Index: t.Index + d}
		}
		return t
	case Abs:
		return Abs{Name: t.Name, Ty: t.Ty, Body: Shift(d, cutoff+1, t.Body)}
	case App:
		return App{Fun: Shift(d, cutoff, t.Fun), Arg: Shift(d, cutoff, t.Arg)}
	}
	return t
}

// LooseBounds lists the bound indices of t that point above its root, in
// ascending order. A closed term reports none.
func LooseBounds(t Term) []int {
	seen := map[int]bool{}
	var walk func(Term, int)
	walk = func(t Term, depth int) {
		switch t := t.(type) {
		case Bound:
			if t.Index >= depth {
				seen[t.Index-depth] = true
			}
		case Abs:
			walk(t.Body, depth+1)
		case App:
			walk(t.Fun, depth)
			walk(t.Arg, depth)
		}
	}
	walk(t, 0)
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sortInts(out)
	return out
}

// IsClosed reports whether t has no loose bound variables.
func IsClosed(t Term) bool {
	return len(LooseBounds(t)) == 0
}

// SubstBounds replaces loose bound variables of t by image terms. The image
// map is keyed by loose index as seen from the root of t; images are shifted
// as substitution descends under binders.
func SubstBounds(t Term, image map[int]Term) Term {
	var walk func(Term, int) Term
	walk = func(t Term, depth int) Term {
		switch t := t.(type) {
		case Bound:
			if t.Index >= depth {
				if img, ok := image[t.Index-depth]; ok {
					return Shift(depth, 0, img)
				}
			}
			return t
		case Abs:
			return Abs{Name: t.Name, Ty: t.Ty, Body: walk(t.Body, depth+1)}
		case App:
			return App{Fun: walk(t.Fun, depth), Arg: walk(t.Arg, depth)}
		}
		return t
	}
	return walk(t, 0)
}

// substTop substitutes arg for Bound{0} in body and removes the binder level.
func substTop(body, arg Term) Term {
	shifted := Shift(1, 0, arg)
	replaced := SubstBounds(body, map[int]Term{0: shifted})
	return Shift(-1, 0, replaced)
}

// Beta reduces a single outermost redex; returns t unchanged if t is not a
// redex.
func Beta(t Term) Term {
	app, ok := t.(App)
	if !ok {
		return t
	}
	abs, ok := app.Fun.(Abs)
	if !ok {
		return t
	}
	return substTop(abs.Body, app.Arg)
}

// Betas computes the beta-normal form. Terms are simply typed, so reduction
// terminates.
func Betas(t Term) Term {
	switch t := t.(type) {
	case Abs:
		return Abs{Name: t.Name, Ty: t.Ty, Body: Betas(t.Body)}
	case App:
		fun := Betas(t.Fun)
		arg := Betas(t.Arg)
		if abs, ok := fun.(Abs); ok {
			return Betas(substTop(abs.Body, arg))
		}
		return App{Fun: fun, Arg: arg}
	}
	return t
}

// Bind abstracts the free variable v out of body, producing %v. body[v:=0].
func Bind(v Free, body Term) Term {
	var walk func(Term, int) Term
	walk = func(t Term, depth int) Term {
		switch t := t.(type) {
		case Free:
			if t.Name == v.Name {
				return Bound{Index: depth}
			}
			return t
		case Bound:
			if t.Index >= depth {
				return Bound{Index: t.Index + 1}
			}
			return t
		case Abs:
			return Abs{Name: t.Name, Ty: t.Ty, Body: walk(t.Body, depth+1)}
		case App:
			return App{Fun: walk(t.Fun, depth), Arg: walk(t.Arg, depth)}
		}
		return t
	}
	return Abs{Name: v.Name, Ty: v.Ty, Body: walk(body, 0)}
}

// BindAll abstracts vars left to right, so vars[0] becomes the outermost
// binder.
func BindAll(vars []Free, body Term) Term {
	t := body
	for i := len(vars) - 1; i >= 0; i-- {
		t = Bind(vars[i], t)
	}
	return t
}

// =============================================================================
// SUBSTITUTIONS
// =============================================================================

// Subst maps schematic variables to terms and type variables to types. The
// zero value is not usable; call NewSubst.
type Subst struct {
	terms map[string]Term
	types map[string]Type
}

// NewSubst returns an empty substitution.
func NewSubst() *Subst {
	return &Subst{terms: map[string]Term{}, types: map[string]Type{}}
}

// BindTerm records v := t, overwriting any previous binding of v.
func (s *Subst) BindTerm(v Schematic, t Term) {
	s.terms[v.Key()] = t
}

// LookupTerm looks up the binding of v.
func (s *Subst) LookupTerm(v Schematic) (Term, bool) {
	t, ok := s.terms[v.Key()]
	return t, ok
}

// BindType records 'name := ty.
func (s *Subst) BindType(name string, ty Type) {
	s.types[name] = ty
}

// LookupType looks up the binding of a type variable.
func (s *Subst) LookupType(name string) (Type, bool) {
	ty, ok := s.types[name]
	return ty, ok
}

// Len counts term bindings.
func (s *Subst) Len() int {
	return len(s.terms)
}

// TermKeys lists bound schematic keys in sorted order, for stable traces.
func (s *Subst) TermKeys() []string {
	keys := make([]string, 0, len(s.terms))
	for k := range s.terms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TermByKey resolves a key produced by TermKeys.
func (s *Subst) TermByKey(key string) (Term, bool) {
	t, ok := s.terms[key]
	return t, ok
}

// Clone copies the substitution.
func (s *Subst) Clone() *Subst {
	out := NewSubst()
	for k, v := range s.terms {
		out.terms[k] = v
	}
	for k, v := range s.types {
		out.types[k] = v
	}
	return out
}

// InstantiateType applies the type part of s to ty.
func InstantiateType(ty Type, s *Subst) Type {
	switch ty := ty.(type) {
	case TVar:
		if r, ok := s.types[ty.Name]; ok {
			return r
		}
		return ty
	case TCon:
		args := make([]Type, len(ty.Args))
		for i, a := range ty.Args {
			args[i] = InstantiateType(a, s)
		}
		return TCon{Name: ty.Name, Args: args}
	}
	return ty
}

// Instantiate applies s to t. Schematic variables with a binding are replaced
// by their image, shifted past any binders crossed on the way down; unbound
// schematics keep their (type-instantiated) selves. Free variables are never
// renamed, so an image mentioning a free that is also bound above stays as
// written.
func Instantiate(t Term, s *Subst) Term {
	var walk func(Term, int) Term
	walk = func(t Term, depth int) Term {
		switch t := t.(type) {
		case Const:
			return Const{Name: t.Name, Ty: InstantiateType(t.Ty, s)}
		case Free:
			return Free{Name: t.Name, Ty: InstantiateType(t.Ty, s)}
		case Schematic:
			if img, ok := s.terms[t.Key()]; ok {
				return Shift(depth, 0, img)
			}
			return Schematic{Name: t.Name, Index: t.Index, Ty: InstantiateType(t.Ty, s)}
		case Bound:
			return t
		case Abs:
			return Abs{Name: t.Name, Ty: InstantiateType(t.Ty, s), Body: walk(t.Body, depth+1)}
		case App:
			return App{Fun: walk(t.Fun, depth), Arg: walk(t.Arg, depth)}
		}
		return t
	}
	return walk(t, 0)
}

// =============================================================================
// SUBTERM ADDRESSING
// =============================================================================

// Path addresses a subterm from the root: 0 descends into an Abs body or an
// App function, 1 into an App argument.
type Path []int

// Clone copies the path.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

func (p Path) String() string {
	if len(p) == 0 {
		return "ε"
	}
	s := ""
	for i, step := range p {
		if i > 0 {
			s += "."
		}
		s += fmt.Sprintf("%d", step)
	}
	return s
}

// SubtermAt resolves a path.
func SubtermAt(t Term, p Path) (Term, error) {
	for i, step := range p {
		switch cur := t.(type) {
		case Abs:
			if step != 0 {
				return nil, fmt.Errorf("path step %d: abstraction has only branch 0", i)
			}
			t = cur.Body
		case App:
			switch step {
			case 0:
				t = cur.Fun
			case 1:
				t = cur.Arg
			default:
				return nil, fmt.Errorf("path step %d: application has branches 0 and 1", i)
			}
		default:
			return nil, fmt.Errorf("path step %d: atom has no subterms", i)
		}
	}
	return t, nil
}

// ReplaceAt rebuilds t with the subterm at p replaced by repl. The
// replacement is spliced in as given; the caller accounts for binders above
// the hole.
func ReplaceAt(t Term, p Path, repl Term) (Term, error) {
	if len(p) == 0 {
		return repl, nil
	}
	step, rest := p[0], p[1:]
	switch cur := t.(type) {
	case Abs:
		if step != 0 {
			return nil, fmt.Errorf("path into abstraction must take branch 0")
		}
		body, err := ReplaceAt(cur.Body, rest, repl)
		if err != nil {
			return nil, err
		}
		return Abs{Name: cur.Name, Ty: cur.Ty, Body: body}, nil
	case App:
		switch step {
		case 0:
			fun, err := ReplaceAt(cur.Fun, rest, repl)
			if err != nil {
				return nil, err
			}
			return App{Fun: fun, Arg: cur.Arg}, nil
		case 1:
			arg, err := ReplaceAt(cur.Arg, rest, repl)
			if err != nil {
				return nil, err
			}
			return App{Fun: cur.Fun, Arg: arg}, nil
		default:
			return nil, fmt.Errorf("path into application must take branch 0 or 1")
		}
	default:
		return nil, fmt.Errorf("path descends into an atom")
	}
}

// BindersAbove lists the binder types crossed while walking p, innermost
// first, together with their display names. The result aligns with the bound
// indices loose in the subterm at p.
func BindersAbove(t Term, p Path) (names []string, types []Type, err error) {
	for i, step := range p {
		switch cur := t.(type) {
		case Abs:
			if step != 0 {
				return nil, nil, fmt.Errorf("path step %d: abstraction has only branch 0", i)
			}
			names = append([]string{cur.Name}, names...)
			types = append([]Type{cur.Ty}, types...)
			t = cur.Body
		case App:
			switch step {
			case 0:
				t = cur.Fun
			case 1:
				t = cur.Arg
			default:
				return nil, nil, fmt.Errorf("path step %d: application has branches 0 and 1", i)
			}
		default:
			return nil, nil, fmt.Errorf("path step %d: atom has no subterms", i)
		}
	}
	return names, types, nil
}
