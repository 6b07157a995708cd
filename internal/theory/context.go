// Package theory holds the logical state a session threads through command
// execution: the constant signature, registered facts under qualified names,
// and the extraction registries. A Context is an immutable version; every
// update returns a fresh one, so a failed command simply drops its version
// and the previous state stays observable. Combining two theory branches is
// a deterministic list-union merge.
package theory

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/kernel"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/rules"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

// FactEntry is one registered theorem. QName groups related facts the way
// the surface addresses them (f.defs, f.code, name.refine); Index is the
// position within the group.
type FactEntry struct {
	ID    string
	QName string
	Index int
	Thm   *kernel.Thm
	Tags  []string
}

// HasTag tests a tag on the entry.
func (e FactEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Context is a theory version. The zero value is unusable; start from New.
type Context struct {
	version  int
	sig      map[string]term.Type
	sigOrder []string
	facts    []FactEntry
	byName   map[string][]int
	modes    rules.Modes
	patterns rules.Patterns
	intro    rules.FactSet
	solve    rules.FactSet
}

// New builds the initial context: the logical constants are in the
// signature, nothing is registered.
func New() *Context {
	ctx := &Context{
		sig:    map[string]term.Type{},
		byName: map[string][]int{},
		modes:  rules.NewModes(),
	}
	a := term.TVar{Name: "a"}
	b := term.TVar{Name: "b"}
	for _, c := range []struct {
		name string
		ty   term.Type
	}{
		{term.EqName, term.Fun(a, term.Fun(a, term.BoolT))},
		{term.ImpName, term.Fun(term.BoolT, term.Fun(term.BoolT, term.BoolT))},
		{term.MemName, term.Fun(a, term.Fun(term.TCon{Name: "set", Args: []term.Type{a}}, term.BoolT))},
		{term.PairName, term.Fun(a, term.Fun(b, term.TCon{Name: "prod", Args: []term.Type{a, b}}))},
		{term.PlusName, term.Fun(term.NatT, term.Fun(term.NatT, term.NatT))},
	} {
		ctx.sig[c.name] = c.ty
		ctx.sigOrder = append(ctx.sigOrder, c.name)
	}
	return ctx
}

// clone copies the context with a bumped version. Slices and maps are
// re-allocated shallowly; entries themselves are immutable.
func (c *Context) clone() *Context {
	out := &Context{
		version:  c.version + 1,
		sig:      make(map[string]term.Type, len(c.sig)),
		sigOrder: append([]string(nil), c.sigOrder...),
		facts:    append([]FactEntry(nil), c.facts...),
		byName:   make(map[string][]int, len(c.byName)),
		modes:    c.modes,
		patterns: c.patterns,
		intro:    c.intro,
		solve:    c.solve,
	}
	for k, v := range c.sig {
		out.sig[k] = v
	}
	for k, v := range c.byName {
		out.byName[k] = append([]int(nil), v...)
	}
	return out
}

// Version numbers the context; every update increments it.
func (c *Context) Version() int {
	return c.version
}

// =============================================================================
// SIGNATURE
// =============================================================================

// DeclareConst adds a constant to the signature.
func (c *Context) DeclareConst(name string, ty term.Type) (*Context, error) {
	if name == "" {
		return nil, fmt.Errorf("constant needs a name")
	}
	if prev, ok := c.sig[name]; ok {
		return nil, fmt.Errorf("constant %s already declared with type %s", name, prev)
	}
	out := c.clone()
	out.sig[name] = ty
	out.sigOrder = append(out.sigOrder, name)
	return out, nil
}

// LookupConst resolves a constant's declared type.
func (c *Context) LookupConst(name string) (term.Type, bool) {
	ty, ok := c.sig[name]
	return ty, ok
}

// ConstNames lists the signature in declaration order.
func (c *Context) ConstNames() []string {
	return append([]string(nil), c.sigOrder...)
}

// FreshConstName returns name itself if undeclared, otherwise the first
// letter-suffixed variant that is.
func (c *Context) FreshConstName(name string) string {
	return term.Variant(name, func(s string) bool {
		_, taken := c.sig[s]
		return taken
	})
}

// =============================================================================
// DEFINITIONS AND AXIOMS
// =============================================================================

// Define runs the definitional principle and extends the theory: the new
// constant enters the signature and the defining equation is registered
// under name.def. The name must be fresh.
func (c *Context) Define(name string, params []term.Free, body term.Term) (*Context, term.Const, *kernel.Thm, error) {
	var zero term.Const
	if _, taken := c.sig[name]; taken {
		return nil, zero, nil, fmt.Errorf("constant %s already declared", name)
	}
	cst, def, err := kernel.Define(name, params, body)
	if err != nil {
		return nil, zero, nil, err
	}
	out := c.clone()
	out.sig[cst.Name] = cst.Ty
	out.sigOrder = append(out.sigOrder, cst.Name)
	out = out.register(name+".def", []*kernel.Thm{def}, "def")
	return out, cst, def, nil
}

// Axiom admits a proposition and registers it under its name.
func (c *Context) Axiom(name string, prop term.Term) (*Context, *kernel.Thm, error) {
	th, err := kernel.Axiom(name, prop)
	if err != nil {
		return nil, nil, err
	}
	return c.register(name, []*kernel.Thm{th}), th, nil
}

// =============================================================================
// FACT REGISTRATION AND LOOKUP
// =============================================================================

// Register records theorems under a qualified name, appending to any
// existing group. Free variables are exported to schematics on the way in so
// registered facts are directly reusable as rules.
func (c *Context) Register(qname string, ths []*kernel.Thm, tags ...string) *Context {
	return c.register(qname, ths, tags...)
}

func (c *Context) register(qname string, ths []*kernel.Thm, tags ...string) *Context {
	out := c.clone()
	for _, th := range ths {
		entry := FactEntry{
			ID:    uuid.NewString(),
			QName: qname,
			Index: len(out.byName[qname]),
			Thm:   kernel.Generalize(th),
			Tags:  append([]string(nil), tags...),
		}
		out.byName[qname] = append(out.byName[qname], len(out.facts))
		out.facts = append(out.facts, entry)
	}
	return out
}

// Facts lists every registered theorem in registration order.
func (c *Context) Facts() []*kernel.Thm {
	out := make([]*kernel.Thm, len(c.facts))
	for i, e := range c.facts {
		out[i] = e.Thm
	}
	return out
}

// Entries lists the registration records in order.
func (c *Context) Entries() []FactEntry {
	return append([]FactEntry(nil), c.facts...)
}

// FactsByName resolves a qualified name to its group, in index order.
func (c *Context) FactsByName(qname string) []*kernel.Thm {
	idxs, ok := c.byName[qname]
	if !ok {
		return nil
	}
	out := make([]*kernel.Thm, len(idxs))
	for i, j := range idxs {
		out[i] = c.facts[j].Thm
	}
	return out
}

// EntriesByName resolves a qualified name to its registration records.
func (c *Context) EntriesByName(qname string) []FactEntry {
	idxs, ok := c.byName[qname]
	if !ok {
		return nil
	}
	out := make([]FactEntry, len(idxs))
	for i, j := range idxs {
		out[i] = c.facts[j]
	}
	return out
}

// One resolves a qualified name expected to hold a single fact; groups pick
// their first entry.
func (c *Context) One(qname string) (*kernel.Thm, error) {
	ths := c.FactsByName(qname)
	if len(ths) == 0 {
		return nil, fmt.Errorf("no fact registered under %q", qname)
	}
	return ths[0], nil
}

// QNames lists registered qualified names, sorted.
func (c *Context) QNames() []string {
	out := make([]string, 0, len(c.byName))
	for n := range c.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// REGISTRIES
// =============================================================================

// Modes returns the extraction-mode registry.
func (c *Context) Modes() rules.Modes {
	return c.modes
}

// WithModes swaps the mode registry.
func (c *Context) WithModes(m rules.Modes) *Context {
	out := c.clone()
	out.modes = m
	return out
}

// Patterns returns the default conclusion patterns.
func (c *Context) Patterns() rules.Patterns {
	return c.patterns
}

// WithPatterns swaps the pattern set.
func (c *Context) WithPatterns(p rules.Patterns) *Context {
	out := c.clone()
	out.patterns = p
	return out
}

// IntroRules returns the recursive-intro rule store.
func (c *Context) IntroRules() []*kernel.Thm {
	return c.intro.List()
}

// WithIntro swaps the intro store.
func (c *Context) WithIntro(fs rules.FactSet) *Context {
	out := c.clone()
	out.intro = fs
	return out
}

// Intro returns the intro store as a set.
func (c *Context) Intro() rules.FactSet {
	return c.intro
}

// SolveRules returns the solve rule store.
func (c *Context) SolveRules() []*kernel.Thm {
	return c.solve.List()
}

// WithSolve swaps the solve store.
func (c *Context) WithSolve(fs rules.FactSet) *Context {
	out := c.clone()
	out.solve = fs
	return out
}

// Solve returns the solve store as a set.
func (c *Context) Solve() rules.FactSet {
	return c.solve
}

// =============================================================================
// MERGE
// =============================================================================

// Merge combines two theory branches: signatures must agree on shared names,
// fact groups union by proposition, registries union by their own identity
// notions. The receiver's entries keep their positions; novel entries from
// other append in its order.
func (c *Context) Merge(other *Context) (*Context, error) {
	out := c.clone()
	for _, name := range other.sigOrder {
		ty := other.sig[name]
		if prev, ok := out.sig[name]; ok {
			if !term.TypeEq(prev, ty) {
				return nil, fmt.Errorf("signature conflict on %s: %s vs %s", name, prev, ty)
			}
			continue
		}
		out.sig[name] = ty
		out.sigOrder = append(out.sigOrder, name)
	}
	for _, e := range other.facts {
		if out.hasFact(e.QName, e.Thm) {
			continue
		}
		entry := e
		entry.Index = len(out.byName[e.QName])
		out.byName[e.QName] = append(out.byName[e.QName], len(out.facts))
		out.facts = append(out.facts, entry)
	}
	out.modes = out.modes.Union(other.modes)
	out.patterns = out.patterns.Union(other.patterns)
	out.intro = out.intro.Union(other.intro)
	out.solve = out.solve.Union(other.solve)
	return out, nil
}

func (c *Context) hasFact(qname string, th *kernel.Thm) bool {
	for _, i := range c.byName[qname] {
		if term.Aconv(c.facts[i].Thm.Prop(), th.Prop()) {
			return true
		}
	}
	return false
}

var _ rules.ProofContext = (*Context)(nil)
