package term

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Shared fixtures: f :: nat => nat => nat, c :: nat, x/y frees of type nat.
var (
	natFun2 = Fun(NatT, Fun(NatT, NatT))
	fConst  = Const{Name: "f", Ty: natFun2}
	cConst  = Const{Name: "c", Ty: NatT}
	xFree   = Free{Name: "x", Ty: NatT}
	yFree   = Free{Name: "y", Ty: NatT}
)

func TestTypeOf_Basic(t *testing.T) {
	tests := []struct {
		name string
		tm   Term
		want Type
	}{
		{"Const", cConst, NatT},
		{"App", Apply(fConst, xFree, yFree), NatT},
		{"PartialApp", Apply(fConst, xFree), Fun(NatT, NatT)},
		{"Abs", Lam("z", NatT, Bound{0}), Fun(NatT, NatT)},
		{"NestedAbs", Lam("a", NatT, Lam("b", NatT, Bound{1})), Fun(NatT, Fun(NatT, NatT))},
		{"Eq", Apply(EqConst(NatT), xFree, yFree), BoolT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TypeOf(tt.tm)
			if err != nil {
				t.Fatalf("TypeOf(%s) failed: %v", tt.tm, err)
			}
			if !TypeEq(got, tt.want) {
				t.Errorf("Expected type %s, got %s", tt.want, got)
			}
		})
	}
}

func TestTypeOf_Rejects(t *testing.T) {
	tests := []struct {
		name string
		tm   Term
	}{
		{"ApplyNonFunction", App{Fun: cConst, Arg: xFree}},
		{"DomainMismatch", App{Fun: Lam("b", BoolT, Bound{0}), Arg: xFree}},
		{"LooseBound", Bound{Index: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := TypeOf(tt.tm); err == nil {
				t.Errorf("Expected type error for %s, got none", tt.tm)
			}
		})
	}
}

func TestShiftAndLooseBounds(t *testing.T) {
	// %z. f z B.0  -- the inner B.1 refers one binder above the term.
	open := Lam("z", NatT, Apply(fConst, Bound{0}, Bound{1}))

	loose := LooseBounds(open)
	if diff := cmp.Diff([]int{0}, loose); diff != "" {
		t.Errorf("LooseBounds mismatch (-want +got):\n%s", diff)
	}

	shifted := Shift(2, 0, open)
	wantShifted := Lam("z", NatT, Apply(fConst, Bound{0}, Bound{3}))
	if !Aconv(shifted, wantShifted) {
		t.Errorf("Expected %s after shift, got %s", wantShifted, shifted)
	}

	// Shifting back restores the original.
	if back := Shift(-2, 0, shifted); !Aconv(back, open) {
		t.Errorf("Shift round trip broke the term: %s", back)
	}
}

func TestSubstBounds_ShiftsUnderBinders(t *testing.T) {
	// Substituting x for the loose variable inside %z. f z B.1 must not touch
	// the binder-local B.0.
	open := Lam("z", NatT, Apply(fConst, Bound{0}, Bound{1}))
	got := SubstBounds(open, map[int]Term{0: xFree})
	want := Lam("z", NatT, Apply(fConst, Bound{0}, xFree))
	if !Aconv(got, want) {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestBindThenBeta_RoundTrips(t *testing.T) {
	body := Apply(fConst, xFree, Apply(fConst, yFree, xFree))

	abs := Bind(xFree, body)
	if !IsClosed(abs) {
		t.Fatalf("Bind produced a term with loose bounds: %s", abs)
	}
	if OccursFree("x", abs) {
		t.Fatalf("Bind left x free in %s", abs)
	}

	// (%x. body) x beta-reduces back to body.
	back := Betas(App{Fun: abs, Arg: xFree})
	if !Aconv(back, body) {
		t.Errorf("Expected %s after beta, got %s", body, back)
	}
}

func TestBindAll_OrdersBinders(t *testing.T) {
	body := Apply(fConst, xFree, yFree)
	abs := BindAll([]Free{xFree, yFree}, body)

	// x is the outer binder, so applying to (c, c') picks arguments in order.
	c2 := Const{Name: "d", Ty: NatT}
	applied := Betas(Apply(abs, cConst, c2))
	want := Apply(fConst, cConst, c2)
	if !Aconv(applied, want) {
		t.Errorf("Expected %s, got %s", want, applied)
	}
}

func TestBetas_NestedRedex(t *testing.T) {
	// (%a. %b. f b a) c x  ->  f x c
	tm := Apply(Lam("a", NatT, Lam("b", NatT, Apply(fConst, Bound{0}, Bound{1}))), cConst, xFree)
	got := Betas(tm)
	want := Apply(fConst, xFree, cConst)
	if !Aconv(got, want) {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestInstantiate_ShiftsOpenImages(t *testing.T) {
	hole := Schematic{Name: "P", Ty: NatT}
	s := NewSubst()
	s.BindTerm(hole, xFree)

	// ?P under a binder becomes x; the binder must not capture.
	tm := Lam("x", NatT, Apply(fConst, Bound{0}, hole))
	got := Instantiate(tm, s)
	want := Lam("x", NatT, Apply(fConst, Bound{0}, xFree))
	if !Aconv(got, want) {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestInstantiate_TypesInHolesAndConsts(t *testing.T) {
	a := TVar{Name: "a"}
	id := Const{Name: "id", Ty: Fun(a, a)}
	hole := Schematic{Name: "v", Ty: a}

	s := NewSubst()
	s.BindType("a", NatT)

	got := Instantiate(Apply(id, hole), s)
	want := Apply(Const{Name: "id", Ty: Fun(NatT, NatT)}, Schematic{Name: "v", Ty: NatT})
	if !Aconv(got, want) {
		t.Errorf("Expected %s with nat types, got %s", want, got)
	}
}

func TestAconv_IgnoresBinderNames(t *testing.T) {
	a := Lam("x", NatT, Bound{0})
	b := Lam("whatever", NatT, Bound{0})
	if !Aconv(a, b) {
		t.Errorf("Alpha-equivalent terms compared unequal: %s vs %s", a, b)
	}
	c := Lam("x", BoolT, Bound{0})
	if Aconv(a, c) {
		t.Errorf("Terms with different binder types compared equal")
	}
}

func TestNormalize_IdentifiesRenamedPatterns(t *testing.T) {
	mk := func(holeName string, idx int, binder string) Term {
		h := Schematic{Name: holeName, Index: idx, Ty: Fun(NatT, NatT)}
		return Lam(binder, NatT, Apply(h, Bound{0}))
	}
	p1 := Normalize(mk("f", 0, "x"))
	p2 := Normalize(mk("g", 3, "y"))
	if !Aconv(p1, p2) {
		t.Errorf("Renamed patterns should normalize equal:\n  %s\n  %s", p1, p2)
	}

	// Hole sharing matters: ?f x ?f vs ?f x ?g normalize differently.
	h1 := Schematic{Name: "f", Ty: NatT}
	h2 := Schematic{Name: "g", Ty: NatT}
	same := Normalize(Apply(fConst, h1, h1))
	diff := Normalize(Apply(fConst, h1, h2))
	if Aconv(same, diff) {
		t.Errorf("Patterns with different hole sharing normalized equal")
	}
}

func TestStripImpAndMkImps(t *testing.T) {
	p1 := Apply(EqConst(NatT), xFree, xFree)
	p2 := Apply(EqConst(NatT), yFree, yFree)
	concl := Apply(EqConst(NatT), xFree, yFree)

	tm := MkImps([]Term{p1, p2}, concl)
	prems, got := StripImp(tm)
	if len(prems) != 2 {
		t.Fatalf("Expected 2 premises, got %d", len(prems))
	}
	if !Aconv(prems[0], p1) || !Aconv(prems[1], p2) || !Aconv(got, concl) {
		t.Errorf("StripImp did not invert MkImps on %s", tm)
	}
}

func TestMkEq_RejectsTypeMismatch(t *testing.T) {
	if _, err := MkEq(xFree, Free{Name: "b", Ty: BoolT}); err == nil {
		t.Errorf("Expected error equating nat with bool")
	}
}

func TestVariant_SuffixSequence(t *testing.T) {
	taken := map[string]bool{"uf": true, "ufa": true, "ufb": true}
	pred := func(s string) bool { return taken[s] }

	if got := Variant("g", pred); got != "g" {
		t.Errorf("Expected free base to stay, got %q", got)
	}
	if got := Variant("uf", pred); got != "ufc" {
		t.Errorf("Expected ufc, got %q", got)
	}

	names := Variants([]string{"x", "x", "x"}, func(string) bool { return false })
	if diff := cmp.Diff([]string{"x", "xa", "xb"}, names); diff != "" {
		t.Errorf("Variants mismatch (-want +got):\n%s", diff)
	}
}

func TestPaths_SubtermReplaceAndBinders(t *testing.T) {
	// %z. f z (f x y); address the inner (f x y) argument y.
	inner := Apply(fConst, xFree, yFree)
	tm := Lam("z", NatT, Apply(fConst, Bound{0}, inner))

	path := Path{0, 1, 1} // body, outer arg, inner arg
	sub, err := SubtermAt(tm, path)
	if err != nil {
		t.Fatalf("SubtermAt failed: %v", err)
	}
	if !Aconv(sub, yFree) {
		t.Errorf("Expected y at %s, got %s", path, sub)
	}

	names, types, err := BindersAbove(tm, path)
	if err != nil {
		t.Fatalf("BindersAbove failed: %v", err)
	}
	if len(names) != 1 || names[0] != "z" || !TypeEq(types[0], NatT) {
		t.Errorf("Expected one nat binder z above, got %v / %v", names, types)
	}

	repl, err := ReplaceAt(tm, path, cConst)
	if err != nil {
		t.Fatalf("ReplaceAt failed: %v", err)
	}
	want := Lam("z", NatT, Apply(fConst, Bound{0}, Apply(fConst, xFree, cConst)))
	if !Aconv(repl, want) {
		t.Errorf("Expected %s, got %s", want, repl)
	}

	if _, err := SubtermAt(tm, Path{1}); err == nil {
		t.Errorf("Expected error for path into abstraction branch 1")
	}
}

func TestPrinter_Forms(t *testing.T) {
	tests := []struct {
		name string
		tm   Term
		want string
	}{
		{"Infix Eq", Apply(EqConst(NatT), xFree, yFree), "x == y"},
		{"Imp RightAssoc", MkImps([]Term{Free{Name: "p", Ty: BoolT}, Free{Name: "q", Ty: BoolT}}, Free{Name: "r", Ty: BoolT}), "p ==> q ==> r"},
		{"Lambda", Lam("z", NatT, Apply(fConst, Bound{0}, xFree)), "%z::nat. f z x"},
		{"Pair", Apply(Const{Name: PairName, Ty: Fun(NatT, Fun(NatT, TCon{Name: "prod", Args: []Type{NatT, NatT}}))}, xFree, yFree), "(x, y)"},
		{"Schematic", Schematic{Name: "f", Ty: NatT}, "?f"},
		{"SchematicIndexed", Schematic{Name: "f", Index: 2, Ty: NatT}, "?f.2"},
		{"OperatorSection", Const{Name: EqName, Ty: Fun(NatT, Fun(NatT, BoolT))}, "(==)"},
		{"AppParens", App{Fun: fConst, Arg: Apply(fConst, xFree, yFree)}, "f (f x y)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := String(tt.tm); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPrinter_FreshensCapturedDisplayName(t *testing.T) {
	// %x. f x x_free: binder hint collides with the free variable, so the
	// binder must print under a variant name.
	tm := Lam("x", NatT, Apply(fConst, Bound{0}, xFree))
	got := String(tm)
	want := "%xa::nat. f xa x"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestFreesAndSchematics_Order(t *testing.T) {
	h := Schematic{Name: "B", Ty: NatT}
	tm := Apply(fConst, yFree, Apply(fConst, xFree, App{Fun: Lam("z", NatT, Bound{0}), Arg: h}))

	frees := FreesOf(tm)
	if len(frees) != 2 || frees[0].Name != "y" || frees[1].Name != "x" {
		t.Errorf("Expected frees [y x], got %v", frees)
	}
	sv := SchematicsOf(tm)
	if len(sv) != 1 || sv[0].Name != "B" {
		t.Errorf("Expected schematics [?B], got %v", sv)
	}
}
