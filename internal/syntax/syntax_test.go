package syntax

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

func testSig() SigMap {
	a := term.TVar{Name: "a"}
	b := term.TVar{Name: "b"}
	return SigMap{
		term.EqName:   term.Fun(a, term.Fun(a, term.BoolT)),
		term.ImpName:  term.Fun(term.BoolT, term.Fun(term.BoolT, term.BoolT)),
		term.MemName:  term.Fun(a, term.Fun(term.TCon{Name: "set", Args: []term.Type{a}}, term.BoolT)),
		term.PairName: term.Fun(a, term.Fun(b, term.TCon{Name: "prod", Args: []term.Type{a, b}})),
		term.PlusName: term.Fun(term.NatT, term.Fun(term.NatT, term.NatT)),
		"suc":         term.Fun(term.NatT, term.NatT),
		"P":           term.Fun(term.NatT, term.BoolT),
	}
}

func TestLexKinds(t *testing.T) {
	for _, tc := range []struct {
		input string
		kinds []Kind
		texts []string
	}{
		{
			input: "%x::nat. x + ?y",
			kinds: []Kind{LAMBDA, IDENT, DBLCOLON, IDENT, DOT, IDENT, PLUS, SCHEMATIC, EOF},
			texts: []string{"", "x", "", "nat", "", "x", "", "y", ""},
		},
		{
			input: "a ==> b == c => d",
			kinds: []Kind{IDENT, IMP, IDENT, EQ, IDENT, ARROW, IDENT, EOF},
		},
		{
			input: "(x, _) : 'a _y 42",
			kinds: []Kind{LPAREN, IDENT, COMMA, HOLE, RPAREN, COLON, TYVAR, IDENT, NUMBER, EOF},
			texts: []string{"", "x", "", "", "", "", "a", "_y", "42", ""},
		},
	} {
		t.Run(tc.input, func(t *testing.T) {
			toks, err := Lex(tc.input)
			if err != nil {
				t.Fatalf("Lex: %v", err)
			}
			kinds := make([]Kind, len(toks))
			texts := make([]string, len(toks))
			for i, tok := range toks {
				kinds[i] = tok.Kind
				texts[i] = tok.Text
			}
			if diff := cmp.Diff(tc.kinds, kinds); diff != "" {
				t.Errorf("kinds (-want +got):\n%s", diff)
			}
			if tc.texts != nil {
				if diff := cmp.Diff(tc.texts, texts); diff != "" {
					t.Errorf("texts (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestLexErrors(t *testing.T) {
	for _, input := range []string{"= x", "?", "? f", "' a", "f @ g"} {
		if _, err := Lex(input); err == nil {
			t.Errorf("Lex(%q): expected error", input)
		}
	}
}

func TestParseType(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  string
	}{
		{"nat", "nat"},
		{"'a", "'a"},
		{"nat => nat => bool", "nat => nat => bool"},
		{"(nat => nat) => bool", "(nat => nat) => bool"},
		{"'a => set('a)", "'a => set('a)"},
		{"prod('a, 'b)", "prod('a, 'b)"},
	} {
		t.Run(tc.input, func(t *testing.T) {
			ty, err := ParseType(tc.input)
			if err != nil {
				t.Fatalf("ParseType: %v", err)
			}
			if got := ty.String(); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
	for _, input := range []string{"", "set(", "=> nat", "nat =>", "nat bool"} {
		if _, err := ParseType(input); err == nil {
			t.Errorf("ParseType(%q): expected error", input)
		}
	}
}

// Parsing then printing is stable on the printer's own output format.
func TestParseTermRoundTrip(t *testing.T) {
	sig := testSig()
	for _, tc := range []struct {
		input string
		want  string
	}{
		{"suc 0", "suc 0"},
		{"f x + g y == h z", "f x + g y == h z"},
		{"x + y + z", "x + y + z"},
		{"x + (y + z)", "x + (y + z)"},
		{"a == b ==> c == d ==> P e", "a == b ==> c == d ==> P e"},
		{"(a == b ==> c == d) ==> P e", "(a == b ==> c == d) ==> P e"},
		{"(x, y) : R", "(x, y) : R"},
		{"f (g x) y", "f (g x) y"},
		{"%x. suc x", "%x::nat. suc x"},
		{"%x. x", "%x::'a. x"},
		{"%x::'a. %y::'a. (x, y)", "%x::'a. %y::'a. (x, y)"},
		{"%x. %x. x", "%x::'a. %xa::'b. xa"},
		{"suc ((%x. x) 0)", "suc ((%x::nat. x) 0)"},
		{"(==) x y", "x == y"},
		{"(+) 0", "(plus) 0"},
		{"?f ?x == suc ?x", "?f ?x == suc ?x"},
	} {
		t.Run(tc.input, func(t *testing.T) {
			tm, err := ParseTerm(tc.input, sig)
			if err != nil {
				t.Fatalf("ParseTerm: %v", err)
			}
			if got := term.String(tm); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParseTermInfersBinderTypes(t *testing.T) {
	tm, err := ParseTerm("%x. suc x", testSig())
	if err != nil {
		t.Fatalf("ParseTerm: %v", err)
	}
	abs, ok := tm.(term.Abs)
	if !ok {
		t.Fatalf("got %T, want Abs", tm)
	}
	if !term.TypeEq(abs.Ty, term.NatT) {
		t.Errorf("binder type %s, want nat", abs.Ty)
	}
	ty, err := term.TypeOf(tm)
	if err != nil {
		t.Fatalf("TypeOf: %v", err)
	}
	if !term.TypeEq(ty, term.Fun(term.NatT, term.NatT)) {
		t.Errorf("term type %s, want nat => nat", ty)
	}
}

func TestParseTermSharesFreeTypes(t *testing.T) {
	// x is forced to nat by its first use and stays nat at the second.
	tm, err := ParseTerm("suc x == x", testSig())
	if err != nil {
		t.Fatalf("ParseTerm: %v", err)
	}
	ty, err := term.TypeOf(tm)
	if err != nil {
		t.Fatalf("TypeOf: %v", err)
	}
	if !term.TypeEq(ty, term.BoolT) {
		t.Errorf("term type %s, want bool", ty)
	}
	for _, v := range term.FreesOf(tm) {
		if v.Name == "x" && !term.TypeEq(v.Ty, term.NatT) {
			t.Errorf("x has type %s, want nat", v.Ty)
		}
	}
}

func TestParseTermHolesAreDistinct(t *testing.T) {
	tm, err := ParseTerm("(_, _) : ?R", testSig())
	if err != nil {
		t.Fatalf("ParseTerm: %v", err)
	}
	vars := term.SchematicsOf(tm)
	seen := map[string]bool{}
	for _, v := range vars {
		seen[v.Key()] = true
	}
	if len(seen) != 3 {
		t.Errorf("got %d distinct schematics, want 3 (two holes and ?R): %v", len(seen), vars)
	}
}

func TestParseTermErrors(t *testing.T) {
	sig := testSig()
	for _, tc := range []struct {
		input   string
		wantSub string
	}{
		{"suc suc", "type mismatch"},
		{"%x::bool. suc x", "type mismatch"},
		{"x ==", "unexpected end of input"},
		{"f (x", "expected"},
		{")", "unexpected"},
		{"%x x", "expected"},
		{"x == y == z", "trailing"},
	} {
		t.Run(tc.input, func(t *testing.T) {
			_, err := ParseTerm(tc.input, sig)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

const sampleScript = `-- arithmetic base
constants suc :: nat => nat
constants REC :: ((nat => nat) => nat => nat) => nat => nat

axiom rec_unfold: REC ?B ?x == ?B (REC ?B) ?x  -- unfold once

extraction_mode nres pattern "REC ?B" schema rec_schema discharge vc_solve
extract_equations impl from f_ref modes nres
extract_equations impl2 from f_ref
concrete_definition myfun for a b uses f_ref is "(?f, _) : _" is "?f == _" extract nres
concrete_definition plain uses g_ref
cd_pattern add "?f : _"
cd_pattern del "?f == _"
intro_rule conj_intro
solve_rule refl_rule
show impl.code
tactic_plugin arith plugins/arith.go
`

func TestParseScript(t *testing.T) {
	cmds, err := ParseScript("sample.thy", sampleScript)
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if len(cmds) != 14 {
		t.Fatalf("got %d commands, want 14", len(cmds))
	}

	c0, ok := cmds[0].(Constants)
	if !ok {
		t.Fatalf("cmds[0] is %T", cmds[0])
	}
	if c0.Name != "suc" || !term.TypeEq(c0.Ty, term.Fun(term.NatT, term.NatT)) {
		t.Errorf("constants: got %s :: %s", c0.Name, c0.Ty)
	}
	if c0.Span().Line != 2 || c0.Span().File != "sample.thy" {
		t.Errorf("span: got %s", c0.Span())
	}

	ax, ok := cmds[2].(Axiom)
	if !ok {
		t.Fatalf("cmds[2] is %T", cmds[2])
	}
	if ax.Name != "rec_unfold" {
		t.Errorf("axiom name: got %q", ax.Name)
	}
	if ax.Prop != "REC ?B ?x == ?B (REC ?B) ?x" {
		t.Errorf("axiom prop kept comment or spacing: %q", ax.Prop)
	}

	em, ok := cmds[3].(ExtractionMode)
	if !ok {
		t.Fatalf("cmds[3] is %T", cmds[3])
	}
	want := ExtractionMode{spanned: em.spanned, Mode: "nres", Pattern: "REC ?B", Schema: "rec_schema", Discharge: "vc_solve"}
	if em != want {
		t.Errorf("extraction_mode: got %+v", em)
	}

	ee, ok := cmds[4].(ExtractEquations)
	if !ok {
		t.Fatalf("cmds[4] is %T", cmds[4])
	}
	if ee.Basename != "impl" || ee.Fact != "f_ref" {
		t.Errorf("extract_equations: got %+v", ee)
	}
	if diff := cmp.Diff([]string{"nres"}, ee.Modes); diff != "" {
		t.Errorf("modes (-want +got):\n%s", diff)
	}
	if all := cmds[5].(ExtractEquations); all.Modes != nil {
		t.Errorf("bare extract_equations should leave modes nil, got %v", all.Modes)
	}

	cd, ok := cmds[6].(ConcreteDefinition)
	if !ok {
		t.Fatalf("cmds[6] is %T", cmds[6])
	}
	if cd.Name != "myfun" || cd.Fact != "f_ref" || !cd.Extract {
		t.Errorf("concrete_definition: got %+v", cd)
	}
	if diff := cmp.Diff([]string{"a", "b"}, cd.Params); diff != "" {
		t.Errorf("params (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"(?f, _) : _", "?f == _"}, cd.Patterns); diff != "" {
		t.Errorf("patterns (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"nres"}, cd.ExtractModes); diff != "" {
		t.Errorf("extract modes (-want +got):\n%s", diff)
	}
	if plain := cmds[7].(ConcreteDefinition); plain.Extract || plain.Params != nil {
		t.Errorf("plain concrete_definition: got %+v", plain)
	}

	if add := cmds[8].(CdPattern); !add.Add || add.Pattern != "?f : _" {
		t.Errorf("cd_pattern add: got %+v", add)
	}
	if del := cmds[9].(CdPattern); del.Add || del.Pattern != "?f == _" {
		t.Errorf("cd_pattern del: got %+v", del)
	}
	if ir := cmds[10].(IntroRule); ir.Fact != "conj_intro" {
		t.Errorf("intro_rule: got %+v", ir)
	}
	if sr := cmds[11].(SolveRule); sr.Fact != "refl_rule" {
		t.Errorf("solve_rule: got %+v", sr)
	}
	if sh := cmds[12].(Show); sh.Name != "impl.code" {
		t.Errorf("show: got %+v", sh)
	}
	if tp := cmds[13].(TacticPlugin); tp.Name != "arith" || tp.File != "plugins/arith.go" {
		t.Errorf("tactic_plugin: got %+v", tp)
	}
}

func TestParseScriptErrors(t *testing.T) {
	for _, tc := range []struct {
		line    string
		wantSub string
	}{
		{"bogus x y", "unknown command"},
		{"axiom noColon", "NAME: PROP"},
		{"constants foo", "NAME :: TYPE"},
		{"constants foo :: nat =>", "foo"},
		{"extraction_mode m pattern", "needs an argument"},
		{`extraction_mode m pattern "p"`, "pattern and schema"},
		{`concrete_definition x is "p"`, "missing uses"},
		{"concrete_definition x uses a uses b", "duplicate uses"},
		{`cd_pattern frob "p"`, "add or del"},
		{"show a b", "exactly one"},
		{`cd_pattern add "broken`, "unterminated"},
	} {
		t.Run(tc.line, func(t *testing.T) {
			_, err := ParseScript("bad.thy", tc.line)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error %q does not mention %q", err, tc.wantSub)
			}
			if !strings.Contains(err.Error(), "bad.thy:1") {
				t.Errorf("error %q does not carry the script position", err)
			}
		})
	}
}

func TestParseFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.thy")
	b := filepath.Join(dir, "b.thy")
	if err := os.WriteFile(a, []byte("constants f :: nat\nshow f.def\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("intro_rule r1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ParseFiles(context.Background(), []string{a, b})
	if err != nil {
		t.Fatalf("ParseFiles: %v", err)
	}
	if len(got) != 2 || len(got[0]) != 2 || len(got[1]) != 1 {
		t.Fatalf("unexpected shape: %d files", len(got))
	}
	if got[0][0].Keyword() != "constants" || got[1][0].Keyword() != "intro_rule" {
		t.Errorf("results out of order: %s, %s", got[0][0].Keyword(), got[1][0].Keyword())
	}

	if _, err := ParseFiles(context.Background(), []string{a, filepath.Join(dir, "missing.thy")}); err == nil {
		t.Error("expected error for missing file")
	}
}
