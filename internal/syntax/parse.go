package syntax

import (
	"fmt"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

// Signature resolves identifiers during elaboration: declared names become
// constants, everything else becomes a free variable. theory.Context
// satisfies this.
type Signature interface {
	LookupConst(name string) (term.Type, bool)
}

// SigMap is a map-backed Signature for tests and tooling.
type SigMap map[string]term.Type

func (m SigMap) LookupConst(name string) (term.Type, bool) {
	ty, ok := m[name]
	return ty, ok
}

// ParseTerm parses and elaborates one term against a signature. Operators
// desugar to the built-in constants (==, ==>, mem, Pair, plus), every
// anonymous hole becomes a distinct schematic, and types are inferred by
// unification; type variables left unconstrained come out as 'a, 'b, ….
func ParseTerm(input string, sig Signature) (term.Term, error) {
	toks, err := Lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseImp()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	e := newElab(sig)
	t, _, err := e.walk(n, nil)
	if err != nil {
		return nil, err
	}
	out := e.zonk(t)
	if _, err := term.TypeOf(out); err != nil {
		return nil, fmt.Errorf("ill-typed term %q: %w", input, err)
	}
	return out, nil
}

// ParseType parses one type. No signature is involved.
func ParseType(input string) (term.Type, error) {
	toks, err := Lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return ty, nil
}

// ============================================================================
// PARSER
// ============================================================================

// Raw syntax tree. Operators are already desugared to constant applications
// by the time the tree is built; only binders need structure of their own.
type node interface{}

type nName struct {
	name string
	pos  int
}

type nSchematic struct {
	name string
	pos  int
}

type nHole struct {
	pos int
}

type nNumber struct {
	text string
	pos  int
}

type nApp struct {
	fun, arg node
}

type nLam struct {
	name string
	ty   term.Type // nil without annotation
	body node
	pos  int
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) peek() Token {
	return p.toks[p.pos]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Kind != EOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(k Kind) (Token, error) {
	t := p.next()
	if t.Kind != k {
		return t, fmt.Errorf("offset %d: expected %s, got %s", t.Pos, k, t)
	}
	return t, nil
}

func (p *parser) expectEOF() error {
	if t := p.peek(); t.Kind != EOF {
		return fmt.Errorf("offset %d: trailing %s", t.Pos, t)
	}
	return nil
}

func binop(name string, pos int, a, b node) node {
	return nApp{fun: nApp{fun: nName{name: name, pos: pos}, arg: a}, arg: b}
}

// parseImp: implication, right associative, loosest infix.
func (p *parser) parseImp() (node, error) {
	a, err := p.parseEq()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Kind == IMP {
		p.next()
		b, err := p.parseImp()
		if err != nil {
			return nil, err
		}
		return binop(term.ImpName, t.Pos, a, b), nil
	}
	return a, nil
}

// parseEq: equality, non associative.
func (p *parser) parseEq() (node, error) {
	a, err := p.parseMem()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Kind == EQ {
		p.next()
		b, err := p.parseMem()
		if err != nil {
			return nil, err
		}
		return binop(term.EqName, t.Pos, a, b), nil
	}
	return a, nil
}

// parseMem: membership a : S, non associative.
func (p *parser) parseMem() (node, error) {
	a, err := p.parsePlus()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Kind == COLON {
		p.next()
		b, err := p.parsePlus()
		if err != nil {
			return nil, err
		}
		return binop(term.MemName, t.Pos, a, b), nil
	}
	return a, nil
}

// parsePlus: addition, left associative.
func (p *parser) parsePlus() (node, error) {
	a, err := p.parseApp()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == PLUS {
		t := p.next()
		b, err := p.parseApp()
		if err != nil {
			return nil, err
		}
		a = binop(term.PlusName, t.Pos, a, b)
	}
	return a, nil
}

// parseApp: application by juxtaposition, tightest.
func (p *parser) parseApp() (node, error) {
	f, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for startsAtom(p.peek().Kind) {
		a, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		f = nApp{fun: f, arg: a}
	}
	return f, nil
}

// Lambdas are atoms so they can head an application chain, but they cannot
// appear as a bare argument: the body would swallow the rest of the line.
// Argument lambdas take parentheses, exactly as the printer emits them.
func startsAtom(k Kind) bool {
	switch k {
	case IDENT, SCHEMATIC, HOLE, NUMBER, LPAREN:
		return true
	}
	return false
}

func (p *parser) parseAtom() (node, error) {
	t := p.next()
	switch t.Kind {
	case IDENT:
		return nName{name: t.Text, pos: t.Pos}, nil
	case SCHEMATIC:
		return nSchematic{name: t.Text, pos: t.Pos}, nil
	case HOLE:
		return nHole{pos: t.Pos}, nil
	case NUMBER:
		return nNumber{text: t.Text, pos: t.Pos}, nil
	case LAMBDA:
		return p.parseLam(t.Pos)
	case LPAREN:
		return p.parseParen(t.Pos)
	}
	return nil, fmt.Errorf("offset %d: unexpected %s", t.Pos, t)
}

func (p *parser) parseLam(pos int) (node, error) {
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	var ty term.Type
	if p.peek().Kind == DBLCOLON {
		p.next()
		ty, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(DOT); err != nil {
		return nil, err
	}
	body, err := p.parseImp()
	if err != nil {
		return nil, err
	}
	return nLam{name: name.Text, ty: ty, body: body, pos: pos}, nil
}

// parseParen handles grouping, tuples, and operator sections like (==).
func (p *parser) parseParen(pos int) (node, error) {
	if sec, ok := p.parseSection(); ok {
		return sec, nil
	}
	a, err := p.parseImp()
	if err != nil {
		return nil, err
	}
	switch t := p.next(); t.Kind {
	case RPAREN:
		return a, nil
	case COMMA:
		b, err := p.parseImp()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return binop(term.PairName, pos, a, b), nil
	default:
		return nil, fmt.Errorf("offset %d: expected ) or , got %s", t.Pos, t)
	}
}

func (p *parser) parseSection() (node, bool) {
	var name string
	switch p.peek().Kind {
	case EQ:
		name = term.EqName
	case IMP:
		name = term.ImpName
	case COLON:
		name = term.MemName
	case PLUS:
		name = term.PlusName
	default:
		return nil, false
	}
	if p.toks[p.pos+1].Kind != RPAREN {
		return nil, false
	}
	t := p.next()
	p.next()
	return nName{name: name, pos: t.Pos}, true
}

// parseType: arrow is right associative, atoms are type variables, names,
// and applications name(args).
func (p *parser) parseType() (term.Type, error) {
	a, err := p.parseTypeAtom()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == ARROW {
		p.next()
		b, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return term.Fun(a, b), nil
	}
	return a, nil
}

func (p *parser) parseTypeAtom() (term.Type, error) {
	t := p.next()
	switch t.Kind {
	case TYVAR:
		return term.TVar{Name: t.Text}, nil
	case IDENT:
		if p.peek().Kind != LPAREN {
			return term.TCon{Name: t.Text}, nil
		}
		p.next()
		var args []term.Type
		for {
			a, err := p.parseType()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			sep := p.next()
			if sep.Kind == RPAREN {
				break
			}
			if sep.Kind != COMMA {
				return nil, fmt.Errorf("offset %d: expected , or ) in type arguments, got %s", sep.Pos, sep)
			}
		}
		return term.TCon{Name: t.Text, Args: args}, nil
	case LPAREN:
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, fmt.Errorf("offset %d: unexpected %s in type", t.Pos, t)
}
