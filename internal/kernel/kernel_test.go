package kernel

import (
	"errors"
	"strings"
	"testing"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

var (
	natT  = term.NatT
	nat1  = term.Fun(natT, natT)
	nat2  = term.Fun(nat1, nat1)
	sucC  = term.Const{Name: "suc", Ty: nat1}
	plusC = term.Const{Name: term.PlusName, Ty: term.Fun(natT, term.Fun(natT, natT))}
	cC    = term.Const{Name: "c", Ty: natT}
	dC    = term.Const{Name: "d", Ty: natT}
	xV    = term.Free{Name: "x", Ty: natT}
)

func mustAxiom(t *testing.T, name string, prop term.Term) *Thm {
	t.Helper()
	th, err := Axiom(name, prop)
	if err != nil {
		t.Fatalf("Axiom %s failed: %v", name, err)
	}
	return th
}

func mustEq(t *testing.T, a, b term.Term) term.Term {
	t.Helper()
	eq, err := term.MkEq(a, b)
	if err != nil {
		t.Fatalf("MkEq failed: %v", err)
	}
	return eq
}

func TestAxiom_RejectsNonPropositions(t *testing.T) {
	if _, err := Axiom("bad", cC); !errors.Is(err, ErrRejected) {
		t.Errorf("Expected ErrRejected for nat-typed axiom, got %v", err)
	}
	if _, err := Axiom("bad", term.Bound{Index: 0}); !errors.Is(err, ErrRejected) {
		t.Errorf("Expected ErrRejected for open axiom, got %v", err)
	}
}

func TestEquationalPrimitives(t *testing.T) {
	ab := mustAxiom(t, "ab", mustEq(t, cC, dC))

	sym, err := Symmetric(ab)
	if err != nil {
		t.Fatalf("Symmetric failed: %v", err)
	}
	if l, r, _ := term.DestEq(sym.Prop()); !term.Aconv(l, dC) || !term.Aconv(r, cC) {
		t.Errorf("Expected d == c, got %s", sym)
	}

	refl, err := Reflexive(cC)
	if err != nil {
		t.Fatalf("Reflexive failed: %v", err)
	}
	chain, err := Transitive(refl, ab)
	if err != nil {
		t.Fatalf("Transitive failed: %v", err)
	}
	if !term.Aconv(chain.Prop(), ab.Prop()) {
		t.Errorf("Expected c == d after chaining, got %s", chain)
	}

	if _, err := Transitive(ab, ab); !errors.Is(err, ErrRejected) {
		t.Errorf("Expected middle-term mismatch, got %v", err)
	}
}

func TestCombinationAndAbstract(t *testing.T) {
	fg := mustAxiom(t, "fg", mustEq(t, sucC, sucC))
	ab := mustAxiom(t, "ab", mustEq(t, cC, dC))

	comb, err := Combination(fg, ab)
	if err != nil {
		t.Fatalf("Combination failed: %v", err)
	}
	want := mustEq(t, term.App{Fun: sucC, Arg: cC}, term.App{Fun: sucC, Arg: dC})
	if !term.Aconv(comb.Prop(), want) {
		t.Errorf("Expected %s, got %s", term.String(want), comb)
	}

	// Ill-typed combination: applying nat to nat.
	cc := mustAxiom(t, "cc", mustEq(t, cC, cC))
	if _, err := Combination(cc, cc); !errors.Is(err, ErrRejected) {
		t.Errorf("Expected ErrRejected, got %v", err)
	}

	// Abstract x out of suc x == suc x.
	body := mustAxiom(t, "b", mustEq(t, term.App{Fun: sucC, Arg: xV}, term.App{Fun: sucC, Arg: xV}))
	abs, err := Abstract(xV, body)
	if err != nil {
		t.Fatalf("Abstract failed: %v", err)
	}
	wantAbs := term.Lam("x", natT, term.App{Fun: sucC, Arg: term.Bound{Index: 0}})
	if l, _, _ := term.DestEq(abs.Prop()); !term.Aconv(l, wantAbs) {
		t.Errorf("Expected lhs %s, got %s", term.String(wantAbs), term.String(l))
	}
}

func TestBetaConvAndInstantiate(t *testing.T) {
	redex := term.App{Fun: term.Lam("n", natT, term.App{Fun: sucC, Arg: term.Bound{Index: 0}}), Arg: cC}
	beta, err := BetaConv(redex)
	if err != nil {
		t.Fatalf("BetaConv failed: %v", err)
	}
	if _, r, _ := term.DestEq(beta.Prop()); !term.Aconv(r, term.App{Fun: sucC, Arg: cC}) {
		t.Errorf("Expected suc c, got %s", term.String(r))
	}

	hole := term.Schematic{Name: "x", Ty: natT}
	schema := mustAxiom(t, "sx", mustEq(t, term.App{Fun: sucC, Arg: hole}, term.App{Fun: sucC, Arg: hole}))
	s := term.NewSubst()
	s.BindTerm(hole, cC)
	inst, err := Instantiate(schema, s)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	want := mustEq(t, term.App{Fun: sucC, Arg: cC}, term.App{Fun: sucC, Arg: cC})
	if !term.Aconv(inst.Prop(), want) {
		t.Errorf("Expected %s, got %s", term.String(want), inst)
	}
}

func TestImpElimAndEqMP(t *testing.T) {
	p := mustEq(t, cC, cC)
	q := mustEq(t, cC, dC)
	imp := mustAxiom(t, "imp", term.MkImp(p, q))
	pth := mustAxiom(t, "p", p)

	out, err := ImpElim(imp, pth)
	if err != nil {
		t.Fatalf("ImpElim failed: %v", err)
	}
	if !term.Aconv(out.Prop(), q) {
		t.Errorf("Expected %s, got %s", term.String(q), out)
	}

	qth := mustAxiom(t, "q", q)
	if _, err := ImpElim(imp, qth); !errors.Is(err, ErrRejected) {
		t.Errorf("Expected premise mismatch, got %v", err)
	}

	// EqMP across a propositional equation.
	peq := mustAxiom(t, "peq", mustEq(t, p, q))
	moved, err := EqMP(peq, pth)
	if err != nil {
		t.Fatalf("EqMP failed: %v", err)
	}
	if !term.Aconv(moved.Prop(), q) {
		t.Errorf("Expected %s, got %s", term.String(q), moved)
	}
}

func TestDefine_SchematicEquation(t *testing.T) {
	body := term.Apply(plusC, xV, xV)
	c, def, err := Define("dbl", []term.Free{xV}, body)
	if err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	if !term.TypeEq(c.Ty, nat1) {
		t.Errorf("Expected dbl :: nat => nat, got %s", c.Ty)
	}
	hole := term.Schematic{Name: "x", Ty: natT}
	want := mustEq(t, term.App{Fun: c, Arg: hole}, term.Apply(plusC, hole, hole))
	if !term.Aconv(def.Prop(), want) {
		t.Errorf("Expected %s, got %s", term.String(want), def)
	}
}

func TestDefine_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		defn   string
		params []term.Free
		body   term.Term
	}{
		{"UndeclaredVariable", "bad", nil, xV},
		{"DuplicateParams", "bad", []term.Free{xV, xV}, term.Apply(plusC, xV, xV)},
		{"OpenBody", "bad", nil, term.Bound{Index: 0}},
		{"SchematicBody", "bad", nil, term.Schematic{Name: "s", Ty: natT}},
		{"EmptyName", "", nil, cC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Define(tt.defn, tt.params, tt.body); !errors.Is(err, ErrRejected) {
				t.Errorf("Expected ErrRejected, got %v", err)
			}
		})
	}
}

func TestGeneralize_ExportsFrees(t *testing.T) {
	th := mustAxiom(t, "g", mustEq(t, term.App{Fun: sucC, Arg: xV}, term.App{Fun: sucC, Arg: xV}))
	gen := Generalize(th)
	if len(term.FreesOf(gen.Prop())) != 0 {
		t.Errorf("Expected no frees after generalization, got %s", gen)
	}
	sv := term.SchematicsOf(gen.Prop())
	if len(sv) != 1 || sv[0].Name != "x" {
		t.Errorf("Expected one schematic ?x, got %v", sv)
	}
}

func TestRewriter_UnfoldsDefinition(t *testing.T) {
	_, def, err := Define("dbl", []term.Free{xV}, term.Apply(plusC, xV, xV))
	if err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	rw, err := NewRewriter([]*Thm{def})
	if err != nil {
		t.Fatalf("NewRewriter failed: %v", err)
	}

	dbl := term.Const{Name: "dbl", Ty: nat1}
	eq, err := rw.Conv(term.App{Fun: sucC, Arg: term.App{Fun: dbl, Arg: cC}})
	if err != nil {
		t.Fatalf("Conv failed: %v", err)
	}
	_, nf, _ := term.DestEq(eq.Prop())
	want := term.App{Fun: sucC, Arg: term.Apply(plusC, cC, cC)}
	if !term.Aconv(nf, want) {
		t.Errorf("Expected %s, got %s", term.String(want), term.String(nf))
	}
}

func TestRewriter_BetaReducesAfterRule(t *testing.T) {
	// ap ?f ?x == ?f ?x with a literal lambda argument must leave a
	// beta-normal result.
	apC := term.Const{Name: "ap", Ty: term.Fun(nat1, nat1)}
	fH := term.Schematic{Name: "f", Ty: nat1}
	xH := term.Schematic{Name: "x", Ty: natT}
	rule := mustAxiom(t, "ap", mustEq(t, term.Apply(apC, fH, xH), term.App{Fun: fH, Arg: xH}))

	rw, err := NewRewriter([]*Thm{rule})
	if err != nil {
		t.Fatalf("NewRewriter failed: %v", err)
	}
	lam := term.Lam("n", natT, term.App{Fun: sucC, Arg: term.Bound{Index: 0}})
	eq, err := rw.Conv(term.Apply(apC, lam, cC))
	if err != nil {
		t.Fatalf("Conv failed: %v", err)
	}
	_, nf, _ := term.DestEq(eq.Prop())
	if !term.Aconv(nf, term.App{Fun: sucC, Arg: cC}) {
		t.Errorf("Expected suc c, got %s", term.String(nf))
	}
}

func TestRewriter_RewritesUnderBinders(t *testing.T) {
	_, def, err := Define("dbl", []term.Free{xV}, term.Apply(plusC, xV, xV))
	if err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	rw, err := NewRewriter([]*Thm{def})
	if err != nil {
		t.Fatalf("NewRewriter failed: %v", err)
	}

	dbl := term.Const{Name: "dbl", Ty: nat1}
	lam := term.Lam("n", natT, term.App{Fun: dbl, Arg: term.Bound{Index: 0}})
	eq, err := rw.Conv(lam)
	if err != nil {
		t.Fatalf("Conv failed: %v", err)
	}
	_, nf, _ := term.DestEq(eq.Prop())
	want := term.Lam("n", natT, term.Apply(plusC, term.Bound{Index: 0}, term.Bound{Index: 0}))
	if !term.Aconv(nf, want) {
		t.Errorf("Expected %s, got %s", term.String(want), term.String(nf))
	}
}

func TestRewriter_FuelStopsCycles(t *testing.T) {
	ab := mustAxiom(t, "ab", mustEq(t, cC, dC))
	ba := mustAxiom(t, "ba", mustEq(t, dC, cC))
	rw, err := NewRewriter([]*Thm{ab, ba})
	if err != nil {
		t.Fatalf("NewRewriter failed: %v", err)
	}
	if _, err := rw.WithFuel(50).Conv(cC); !errors.Is(err, ErrFuel) {
		t.Errorf("Expected ErrFuel, got %v", err)
	}
}

func TestProveEqAndFold(t *testing.T) {
	_, def, err := Define("dbl", []term.Free{xV}, term.Apply(plusC, xV, xV))
	if err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	rw, err := NewRewriter([]*Thm{def})
	if err != nil {
		t.Fatalf("NewRewriter failed: %v", err)
	}

	dbl := term.Const{Name: "dbl", Ty: nat1}
	th, err := rw.ProveEq(term.App{Fun: dbl, Arg: cC}, term.Apply(plusC, cC, cC))
	if err != nil {
		t.Fatalf("ProveEq failed: %v", err)
	}
	if l, r, _ := term.DestEq(th.Prop()); !term.Aconv(l, term.App{Fun: dbl, Arg: cC}) || !term.Aconv(r, term.Apply(plusC, cC, cC)) {
		t.Errorf("ProveEq returned wrong equation: %s", th)
	}

	// Folding replaces the definition body by the constant.
	fact := mustAxiom(t, "f", mustEq(t, term.App{Fun: sucC, Arg: term.Apply(plusC, cC, cC)}, dC))
	folded, err := Fold(fact, []*Thm{def})
	if err != nil {
		t.Fatalf("Fold failed: %v", err)
	}
	want := mustEq(t, term.App{Fun: sucC, Arg: term.App{Fun: dbl, Arg: cC}}, dC)
	if !term.Aconv(folded.Prop(), want) {
		t.Errorf("Expected %s, got %s", term.String(want), folded)
	}
}

func TestSpecialize_UnfoldSchema(t *testing.T) {
	recC := term.Const{Name: "REC", Ty: term.Fun(nat2, nat1)}
	monoC := term.Const{Name: "mono", Ty: term.Fun(nat2, term.BoolT)}
	fH := term.Schematic{Name: "f", Ty: nat1}
	bH := term.Schematic{Name: "B", Ty: nat2}
	xH := term.Schematic{Name: "x", Ty: natT}

	// ?f == REC ?B ==> mono ?B ==> ?f ?x == ?B ?f ?x
	prem1 := mustEq(t, fH, term.App{Fun: recC, Arg: bH})
	prem2 := term.App{Fun: monoC, Arg: bH}
	concl := mustEq(t, term.App{Fun: fH, Arg: xH}, term.Apply(bH, fH, xH))
	schema := mustAxiom(t, "rec_unfold", term.MkImps([]term.Term{prem1, prem2}, concl))

	// g == REC (%h n. suc (h n))
	bodyFun := term.Lam("h", nat1, term.Lam("n", natT,
		term.App{Fun: sucC, Arg: term.App{Fun: term.Bound{Index: 1}, Arg: term.Bound{Index: 0}}}))
	gC := term.Const{Name: "g", Ty: nat1}
	def := mustAxiom(t, "g_def", mustEq(t, gC, term.App{Fun: recC, Arg: bodyFun}))

	cond, err := Specialize(schema, def)
	if err != nil {
		t.Fatalf("Specialize failed: %v", err)
	}
	prem, _, ok := term.DestImp(cond.Prop())
	if !ok {
		t.Fatalf("Expected a conditional equation, got %s", cond)
	}
	if !term.Aconv(prem, term.App{Fun: monoC, Arg: bodyFun}) {
		t.Errorf("Expected mono premise on the instantiated body, got %s", term.String(prem))
	}

	// Discharge mono and beta-normalize: g ?x == suc (g ?x).
	mono := mustAxiom(t, "mono_b", term.App{Fun: monoC, Arg: bodyFun})
	codeEq, err := ImpElim(cond, mono)
	if err != nil {
		t.Fatalf("ImpElim failed: %v", err)
	}
	codeEq, err = BetaNorm(codeEq)
	if err != nil {
		t.Fatalf("BetaNorm failed: %v", err)
	}
	want := mustEq(t, term.App{Fun: gC, Arg: xH}, term.App{Fun: sucC, Arg: term.App{Fun: gC, Arg: xH}})
	if !term.Aconv(codeEq.Prop(), want) {
		t.Errorf("Expected %s, got %s", term.String(want), codeEq)
	}
}

func TestRenderDerivation(t *testing.T) {
	ab := mustAxiom(t, "ab", mustEq(t, cC, dC))
	sym, err := Symmetric(ab)
	if err != nil {
		t.Fatalf("Symmetric failed: %v", err)
	}
	out := RenderDerivation(sym, 0)
	if !strings.Contains(out, "[symmetric]") || !strings.Contains(out, "axiom:ab") {
		t.Errorf("Derivation rendering missing rule tags:\n%s", out)
	}
	if got := CountSteps(sym); got != 2 {
		t.Errorf("Expected 2 derivation steps, got %d", got)
	}
	steps := sym.Steps()
	if len(steps) != 2 || steps[0].Rule != "symmetric" || steps[1].Rule != "axiom" {
		t.Errorf("Unexpected steps: %+v", steps)
	}
}
