// Package syntax implements the surface language: a lexer and parser for
// terms and types, signature-driven elaboration with type inference, and the
// line-oriented theory-script command syntax.
package syntax

import (
	"fmt"
	"unicode"
)

// Kind is the set of lexical tokens of the term language.
type Kind int

const (
	EOF Kind = iota
	ILLEGAL

	IDENT     // f, REC, myf_0
	SCHEMATIC // ?f
	HOLE      // _
	NUMBER    // 42
	TYVAR     // 'a

	LAMBDA   // %
	DOT      // .
	COLON    // :
	DBLCOLON // ::
	EQ       // ==
	IMP      // ==>
	ARROW    // =>
	PLUS     // +
	LPAREN   // (
	RPAREN   // )
	COMMA    // ,
)

var kindNames = map[Kind]string{
	EOF:       "end of input",
	ILLEGAL:   "illegal token",
	IDENT:     "identifier",
	SCHEMATIC: "schematic",
	HOLE:      "_",
	NUMBER:    "number",
	TYVAR:     "type variable",
	LAMBDA:    "%",
	DOT:       ".",
	COLON:     ":",
	DBLCOLON:  "::",
	EQ:        "==",
	IMP:       "==>",
	ARROW:     "=>",
	PLUS:      "+",
	LPAREN:    "(",
	RPAREN:    ")",
	COMMA:     ",",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Token is one lexical token with its byte offset in the input.
type Token struct {
	Kind Kind
	Text string
	Pos  int
}

func (t Token) String() string {
	switch t.Kind {
	case IDENT, NUMBER:
		return t.Text
	case SCHEMATIC:
		return "?" + t.Text
	case TYVAR:
		return "'" + t.Text
	}
	return t.Kind.String()
}

// Lex tokenizes one term or type. The language is line-oriented; newlines
// are ordinary whitespace here because quoted patterns never span lines.
func Lex(input string) ([]Token, error) {
	runes := []rune(input)
	var toks []Token
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '%':
			toks = append(toks, Token{LAMBDA, "%", i})
			i++
		case r == '.':
			toks = append(toks, Token{DOT, ".", i})
			i++
		case r == '(':
			toks = append(toks, Token{LPAREN, "(", i})
			i++
		case r == ')':
			toks = append(toks, Token{RPAREN, ")", i})
			i++
		case r == ',':
			toks = append(toks, Token{COMMA, ",", i})
			i++
		case r == '+':
			toks = append(toks, Token{PLUS, "+", i})
			i++
		case r == ':':
			if i+1 < len(runes) && runes[i+1] == ':' {
				toks = append(toks, Token{DBLCOLON, "::", i})
				i += 2
			} else {
				toks = append(toks, Token{COLON, ":", i})
				i++
			}
		case r == '=':
			switch {
			case i+2 < len(runes) && runes[i+1] == '=' && runes[i+2] == '>':
				toks = append(toks, Token{IMP, "==>", i})
				i += 3
			case i+1 < len(runes) && runes[i+1] == '=':
				toks = append(toks, Token{EQ, "==", i})
				i += 2
			case i+1 < len(runes) && runes[i+1] == '>':
				toks = append(toks, Token{ARROW, "=>", i})
				i += 2
			default:
				return nil, fmt.Errorf("offset %d: stray '='", i)
			}
		case r == '?':
			name, n := scanIdent(runes, i+1)
			if n == 0 {
				return nil, fmt.Errorf("offset %d: '?' must be followed by a name", i)
			}
			toks = append(toks, Token{SCHEMATIC, name, i})
			i += 1 + n
		case r == '\'':
			name, n := scanIdent(runes, i+1)
			if n == 0 {
				return nil, fmt.Errorf("offset %d: \"'\" must be followed by a name", i)
			}
			toks = append(toks, Token{TYVAR, name, i})
			i += 1 + n
		case r == '_':
			if name, n := scanIdent(runes, i); n > 1 {
				toks = append(toks, Token{IDENT, name, i})
				i += n
			} else {
				toks = append(toks, Token{HOLE, "_", i})
				i++
			}
		case unicode.IsDigit(r):
			j := i
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			toks = append(toks, Token{NUMBER, string(runes[i:j]), i})
			i = j
		case unicode.IsLetter(r):
			name, n := scanIdent(runes, i)
			toks = append(toks, Token{IDENT, name, i})
			i += n
		default:
			return nil, fmt.Errorf("offset %d: unexpected character %q", i, r)
		}
	}
	toks = append(toks, Token{EOF, "", len(runes)})
	return toks, nil
}

// scanIdent reads an identifier at position i and reports its rune length.
// Identifiers are a letter or underscore followed by letters, digits and
// underscores.
func scanIdent(runes []rune, i int) (string, int) {
	if i >= len(runes) {
		return "", 0
	}
	if !unicode.IsLetter(runes[i]) && runes[i] != '_' {
		return "", 0
	}
	j := i + 1
	for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
		j++
	}
	return string(runes[i:j]), j - i
}
