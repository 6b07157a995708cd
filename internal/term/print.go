package term

import (
	"fmt"
	"strings"
)

// Pretty printing. The grammar mirrors the surface syntax the parser accepts:
// %x::ty. body for binders, ==> right-associated, == / : / + infix, (a, b)
// for pairs and juxtaposition for application. Bound variables print under
// their binder's display name, freshened against anything visible.

const (
	precLam  = 0
	precImp  = 1
	precEq   = 2
	precMem  = 3
	precPlus = 4
	precApp  = 9
)

func (v TVar) String() string { return "'" + v.Name }

func (c TCon) String() string { return typeString(c, 0) }

func typeString(ty Type, prec int) string {
	switch ty := ty.(type) {
	case TVar:
		return ty.String()
	case TCon:
		if dom, cod, ok := DestFun(ty); ok {
			s := typeString(dom, 1) + " => " + typeString(cod, 0)
			if prec > 0 {
				return "(" + s + ")"
			}
			return s
		}
		if len(ty.Args) == 0 {
			return ty.Name
		}
		parts := make([]string, len(ty.Args))
		for i, a := range ty.Args {
			parts[i] = typeString(a, 0)
		}
		return ty.Name + "(" + strings.Join(parts, ", ") + ")"
	}
	return "?ty"
}

func (c Const) String() string     { return printTerm(c, nil, precLam) }
func (v Free) String() string      { return printTerm(v, nil, precLam) }
func (v Schematic) String() string { return printTerm(v, nil, precLam) }
func (b Bound) String() string     { return printTerm(b, nil, precLam) }
func (a Abs) String() string       { return printTerm(a, nil, precLam) }
func (a App) String() string       { return printTerm(a, nil, precLam) }

// String renders t for humans and diagnostics. The output parses back to an
// alpha-equivalent term when all names are in scope.
func String(t Term) string {
	return printTerm(t, nil, precLam)
}

func printTerm(t Term, env []string, prec int) string {
	switch t := t.(type) {
	case Const:
		return atomName(t.Name)
	case Free:
		return t.Name
	case Schematic:
		if t.Index == 0 {
			return "?" + t.Name
		}
		return fmt.Sprintf("?%s.%d", t.Name, t.Index)
	case Bound:
		if t.Index >= 0 && t.Index < len(env) {
			return env[t.Index]
		}
		return fmt.Sprintf("B.%d", t.Index)
	case Abs:
		name := Variant(displayHint(t.Name), func(s string) bool {
			for _, n := range env {
				if n == s {
					return true
				}
			}
			return OccursFree(s, t.Body)
		})
		body := printTerm(t.Body, append([]string{name}, env...), precLam)
		s := fmt.Sprintf("%%%s::%s. %s", name, t.Ty, body)
		return wrap(s, prec > precLam)
	case App:
		head, args := StripApp(t)
		if c, ok := head.(Const); ok && len(args) == 2 {
			switch c.Name {
			case ImpName:
				s := printTerm(args[0], env, precImp+1) + " ==> " + printTerm(args[1], env, precImp)
				return wrap(s, prec > precImp)
			case EqName:
				s := printTerm(args[0], env, precEq+1) + " == " + printTerm(args[1], env, precEq+1)
				return wrap(s, prec > precEq)
			case MemName:
				s := printTerm(args[0], env, precMem+1) + " : " + printTerm(args[1], env, precMem+1)
				return wrap(s, prec > precMem)
			case PlusName:
				s := printTerm(args[0], env, precPlus) + " + " + printTerm(args[1], env, precPlus+1)
				return wrap(s, prec > precPlus)
			case PairName:
				return "(" + printTerm(args[0], env, precLam) + ", " + printTerm(args[1], env, precLam) + ")"
			}
		}
		parts := []string{printTerm(t.Fun, env, precApp)}
		parts = append(parts, printTerm(t.Arg, env, precApp+1))
		return wrap(strings.Join(parts, " "), prec > precApp)
	}
	return "?"
}

// atomName parenthesizes operator constants appearing outside infix position.
func atomName(name string) string {
	switch name {
	case EqName, ImpName, PlusName:
		return "(" + name + ")"
	case MemName:
		return "(:)"
	default:
		return name
	}
}

func displayHint(name string) string {
	if name == "" {
		return "x"
	}
	return name
}

func wrap(s string, yes bool) string {
	if yes {
		return "(" + s + ")"
	}
	return s
}
