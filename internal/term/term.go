// Package term implements the host term language: simply typed lambda terms
// with de Bruijn indices for bound variables and named schematic variables as
// pattern holes. Terms are immutable; every operation rebuilds.
//
// The package is the substrate the kernel, matcher and extraction engine are
// written against. It knows nothing about theorems or registries.
package term

import (
	"fmt"
)

// =============================================================================
// TYPES
// =============================================================================

// Type is a simple type: a type variable or an applied type constructor.
type Type interface {
	isType()
	String() string
}

// TVar is a type variable, printed 'a.
type TVar struct {
	Name string
}

// TCon is an applied type constructor such as bool, nat or fun('a,'b).
type TCon struct {
	Name string
	Args []Type
}

func (TVar) isType() {}
func (TCon) isType() {}

// FunName is the constructor name of the function-space type.
const FunName = "fun"

// Fun builds the function type dom => cod.
func Fun(dom, cod Type) Type {
	return TCon{Name: FunName, Args: []Type{dom, cod}}
}

// FunN builds doms[0] => ... => doms[n-1] => cod.
func FunN(doms []Type, cod Type) Type {
	ty := cod
	for i := len(doms) - 1; i >= 0; i-- {
		ty = Fun(doms[i], ty)
	}
	return ty
}

// DestFun splits a function type into domain and codomain.
func DestFun(ty Type) (dom, cod Type, ok bool) {
	c, isCon := ty.(TCon)
	if !isCon || c.Name != FunName || len(c.Args) != 2 {
		return nil, nil, false
	}
	return c.Args[0], c.Args[1], true
}

// Common ground types of the host logic.
var (
	BoolT = TCon{Name: "bool"}
	NatT  = TCon{Name: "nat"}
)

// TypeEq reports structural equality of types.
func TypeEq(a, b Type) bool {
	switch a := a.(type) {
	case TVar:
		b, ok := b.(TVar)
		return ok && a.Name == b.Name
	case TCon:
		bc, ok := b.(TCon)
		if !ok || a.Name != bc.Name || len(a.Args) != len(bc.Args) {
			return false
		}
		for i := range a.Args {
			if !TypeEq(a.Args[i], bc.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// TVarsOf collects type-variable names in first-occurrence order.
func TVarsOf(ty Type) []string {
	var names []string
	seen := map[string]bool{}
	var walk func(Type)
	walk = func(t Type) {
		switch t := t.(type) {
		case TVar:
			if !seen[t.Name] {
				seen[t.Name] = true
				names = append(names, t.Name)
			}
		case TCon:
			for _, a := range t.Args {
				walk(a)
			}
		}
	}
	walk(ty)
	return names
}

// =============================================================================
// TERMS
// =============================================================================

// Term is a node of the term syntax tree.
type Term interface {
	isTerm()
	String() string
}

// Const is a named constant declared in a theory signature.
type Const struct {
	Name string
	Ty   Type
}

// Free is a named free variable.
type Free struct {
	Name string
	Ty   Type
}

// Schematic is a pattern hole ?name; Index disambiguates generations of the
// same base name (fresh-variable import bumps it).
type Schematic struct {
	Name  string
	Index int
	Ty    Type
}

// Bound is a de Bruijn reference into the enclosing binder nest; 0 is the
// innermost binder.
type Bound struct {
	Index int
}

// Abs is a lambda binder. Name is a display hint only and never affects
// equality; Body refers to the bound variable as Bound{0}.
type Abs struct {
	Name string
	Ty   Type
	Body Term
}

// App is application of Fun to Arg.
type App struct {
	Fun Term
	Arg Term
}

func (Const) isTerm()     {}
func (Free) isTerm()      {}
func (Schematic) isTerm() {}
func (Bound) isTerm()     {}
func (Abs) isTerm()       {}
func (App) isTerm()       {}

// Key identifies a schematic variable inside a substitution.
func (v Schematic) Key() string {
	return fmt.Sprintf("%s.%d", v.Name, v.Index)
}

// Apply builds the left-nested application f a1 ... an.
func Apply(f Term, args ...Term) Term {
	t := f
	for _, a := range args {
		t = App{Fun: t, Arg: a}
	}
	return t
}

// Lam builds a single binder.
func Lam(name string, ty Type, body Term) Term {
	return Abs{Name: name, Ty: ty, Body: body}
}

// StripApp decomposes a left-nested application into head and argument list.
func StripApp(t Term) (Term, []Term) {
	var args []Term
	for {
		app, ok := t.(App)
		if !ok {
			break
		}
		args = append(args, app.Arg)
		t = app.Fun
	}
	for i, j := 0, len(args)-1; i < j; i, j = i+1, j-1 {
		args[i], args[j] = args[j], args[i]
	}
	return t, args
}

// Head returns the application head (the term itself when not an App).
func Head(t Term) Term {
	h, _ := StripApp(t)
	return h
}

// HeadName names the head symbol for indexing: constants and frees report
// their name, anything else reports the empty string.
func HeadName(t Term) string {
	switch h := Head(t).(type) {
	case Const:
		return h.Name
	case Free:
		return h.Name
	default:
		return ""
	}
}

// =============================================================================
// LOGICAL VOCABULARY
// =============================================================================

// Names of the fixed logical constants of the host.
const (
	EqName   = "=="
	ImpName  = "==>"
	MemName  = "mem"
	PairName = "Pair"
	PlusName = "plus"
)

// EqConst is the equality constant instantiated at ty.
func EqConst(ty Type) Const {
	return Const{Name: EqName, Ty: Fun(ty, Fun(ty, BoolT))}
}

// ImpConst is the implication constant.
func ImpConst() Const {
	return Const{Name: ImpName, Ty: Fun(BoolT, Fun(BoolT, BoolT))}
}

// MkEq builds lhs == rhs, checking that both sides carry the same type.
// Operands must be closed (no loose bound variables).
func MkEq(lhs, rhs Term) (Term, error) {
	lt, err := TypeOf(lhs)
	if err != nil {
		return nil, fmt.Errorf("equation lhs: %w", err)
	}
	rt, err := TypeOf(rhs)
	if err != nil {
		return nil, fmt.Errorf("equation rhs: %w", err)
	}
	if !TypeEq(lt, rt) {
		return nil, fmt.Errorf("equation type mismatch: %s vs %s", lt, rt)
	}
	return Apply(EqConst(lt), lhs, rhs), nil
}

// DestEq splits t into the two sides of an equality, if it is one.
func DestEq(t Term) (lhs, rhs Term, ok bool) {
	head, args := StripApp(t)
	c, isConst := head.(Const)
	if !isConst || c.Name != EqName || len(args) != 2 {
		return nil, nil, false
	}
	return args[0], args[1], true
}

// MkImp builds prem ==> concl.
func MkImp(prem, concl Term) Term {
	return Apply(ImpConst(), prem, concl)
}

// MkImps builds prems[0] ==> ... ==> concl.
func MkImps(prems []Term, concl Term) Term {
	t := concl
	for i := len(prems) - 1; i >= 0; i-- {
		t = MkImp(prems[i], t)
	}
	return t
}

// DestImp splits one implication.
func DestImp(t Term) (prem, concl Term, ok bool) {
	head, args := StripApp(t)
	c, isConst := head.(Const)
	if !isConst || c.Name != ImpName || len(args) != 2 {
		return nil, nil, false
	}
	return args[0], args[1], true
}

// StripImp splits nested implications into premises and final conclusion.
func StripImp(t Term) ([]Term, Term) {
	var prems []Term
	for {
		p, c, ok := DestImp(t)
		if !ok {
			break
		}
		prems = append(prems, p)
		t = c
	}
	return prems, t
}

// =============================================================================
// TYPE CHECKING
// =============================================================================

// TypeOf computes the type of a closed term.
func TypeOf(t Term) (Type, error) {
	return TypeOfUnder(nil, t)
}

// TypeOfUnder computes the type of t under a binder environment; env[0] is the
// type of the innermost binder.
func TypeOfUnder(env []Type, t Term) (Type, error) {
	switch t := t.(type) {
	case Const:
		return t.Ty, nil
	case Free:
		return t.Ty, nil
	case Schematic:
		return t.Ty, nil
	case Bound:
		if t.Index < 0 || t.Index >= len(env) {
			return nil, fmt.Errorf("loose bound variable %d", t.Index)
		}
		return env[t.Index], nil
	case Abs:
		bodyTy, err := TypeOfUnder(append([]Type{t.Ty}, env...), t.Body)
		if err != nil {
			return nil, err
		}
		return Fun(t.Ty, bodyTy), nil
	case App:
		funTy, err := TypeOfUnder(env, t.Fun)
		if err != nil {
			return nil, err
		}
		argTy, err := TypeOfUnder(env, t.Arg)
		if err != nil {
			return nil, err
		}
		dom, cod, ok := DestFun(funTy)
		if !ok {
			return nil, fmt.Errorf("applying non-function of type %s", funTy)
		}
		if !TypeEq(dom, argTy) {
			return nil, fmt.Errorf("argument type %s does not fit domain %s", argTy, dom)
		}
		return cod, nil
	}
	return nil, fmt.Errorf("unknown term node %T", t)
}

// =============================================================================
// QUERIES
// =============================================================================

// FreesOf collects the free variables of t in first-occurrence (leftmost,
// outside-in) order. Repeated occurrences appear once.
func FreesOf(t Term) []Free {
	var out []Free
	seen := map[string]bool{}
	var walk func(Term)
	walk = func(t Term) {
		switch t := t.(type) {
		case Free:
			if !seen[t.Name] {
				seen[t.Name] = true
				out = append(out, t)
			}
		case Abs:
			walk(t.Body)
		case App:
			walk(t.Fun)
			walk(t.Arg)
		}
	}
	walk(t)
	return out
}

// SchematicsOf collects schematic variables in first-occurrence order.
func SchematicsOf(t Term) []Schematic {
	var out []Schematic
	seen := map[string]bool{}
	var walk func(Term)
	walk = func(t Term) {
		switch t := t.(type) {
		case Schematic:
			if !seen[t.Key()] {
				seen[t.Key()] = true
				out = append(out, t)
			}
		case Abs:
			walk(t.Body)
		case App:
			walk(t.Fun)
			walk(t.Arg)
		}
	}
	walk(t)
	return out
}

// MaxSchematicIndex returns the largest schematic index occurring in t, or -1.
func MaxSchematicIndex(t Term) int {
	max := -1
	var walk func(Term)
	walk = func(t Term) {
		switch t := t.(type) {
		case Schematic:
			if t.Index > max {
				max = t.Index
			}
		case Abs:
			walk(t.Body)
		case App:
			walk(t.Fun)
			walk(t.Arg)
		}
	}
	walk(t)
	return max
}

// ConstNamesOf collects the constant names occurring in t.
func ConstNamesOf(t Term) map[string]bool {
	out := map[string]bool{}
	var walk func(Term)
	walk = func(t Term) {
		switch t := t.(type) {
		case Const:
			out[t.Name] = true
		case Abs:
			walk(t.Body)
		case App:
			walk(t.Fun)
			walk(t.Arg)
		}
	}
	walk(t)
	return out
}

// OccursFree reports whether the free variable name occurs in t.
func OccursFree(name string, t Term) bool {
	switch t := t.(type) {
	case Free:
		return t.Name == name
	case Abs:
		return OccursFree(name, t.Body)
	case App:
		return OccursFree(name, t.Fun) || OccursFree(name, t.Arg)
	}
	return false
}

// Aconv reports alpha-equivalence: structural equality with binder display
// names ignored. Constant, free and schematic names and all types are
// compared.
func Aconv(a, b Term) bool {
	switch a := a.(type) {
	case Const:
		b, ok := b.(Const)
		return ok && a.Name == b.Name && TypeEq(a.Ty, b.Ty)
	case Free:
		b, ok := b.(Free)
		return ok && a.Name == b.Name && TypeEq(a.Ty, b.Ty)
	case Schematic:
		b, ok := b.(Schematic)
		return ok && a.Name == b.Name && a.Index == b.Index && TypeEq(a.Ty, b.Ty)
	case Bound:
		b, ok := b.(Bound)
		return ok && a.Index == b.Index
	case Abs:
		b, ok := b.(Abs)
		return ok && TypeEq(a.Ty, b.Ty) && Aconv(a.Body, b.Body)
	case App:
		b, ok := b.(App)
		return ok && Aconv(a.Fun, b.Fun) && Aconv(a.Arg, b.Arg)
	}
	return false
}

// Normalize rewrites t into a canonical form for pattern deduplication:
// binder display names are cleared, schematic variables are renumbered by
// first occurrence, and type variables are renamed likewise. Two patterns
// that differ only in hole or binder naming normalize identically.
func Normalize(t Term) Term {
	holes := map[string]int{}
	tvars := map[string]int{}

	var normTy func(Type) Type
	normTy = func(ty Type) Type {
		switch ty := ty.(type) {
		case TVar:
			n, ok := tvars[ty.Name]
			if !ok {
				n = len(tvars)
				tvars[ty.Name] = n
			}
			return TVar{Name: fmt.Sprintf("v%d", n)}
		case TCon:
			args := make([]Type, len(ty.Args))
			for i, a := range ty.Args {
				args[i] = normTy(a)
			}
			return TCon{Name: ty.Name, Args: args}
		}
		return ty
	}

	var norm func(Term) Term
	norm = func(t Term) Term {
		switch t := t.(type) {
		case Const:
			return Const{Name: t.Name, Ty: normTy(t.Ty)}
		case Free:
			return Free{Name: t.Name, Ty: normTy(t.Ty)}
		case Schematic:
			n, ok := holes[t.Key()]
			if !ok {
				n = len(holes)
				holes[t.Key()] = n
			}
			return Schematic{Name: "h", Index: n, Ty: normTy(t.Ty)}
		case Bound:
			return t
		case Abs:
			return Abs{Name: "", Ty: normTy(t.Ty), Body: norm(t.Body)}
		case App:
			return App{Fun: norm(t.Fun), Arg: norm(t.Arg)}
		}
		return t
	}
	return norm(t)
}

// sortInts is a small insertion sort; loose-bound lists are tiny.
func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}
