// Package audit keeps a queryable datalog record of engine activity: every
// generated constant, registered fact, matched rule, derived code equation
// and warning becomes a fact in an in-memory Mangle store. Derived
// predicates answer the questions users actually ask ("which constants have
// unproved side conditions?") without the engine growing ad-hoc reporting
// paths.
package audit

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"github.com/google/mangle/unionfind"
	"go.uber.org/zap"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/kernel"
)

// schema declares the audit predicates. Pass is the ordinal of the
// extraction pass that produced a constant; Resolved is /true when every
// side condition of a code equation was discharged.
const schema = `
Decl defined(Const, Basename, Pass) descr [mode("-", "-", "-")].
Decl fact_registered(QName, Tag) descr [mode("-", "-")].
Decl rule_match(Const, Pattern, Discharge) descr [mode("-", "-", "-")].
Decl code_eq(Const, Resolved) descr [mode("-", "-")].
Decl warning(Kind, Subject, Detail) descr [mode("-", "-", "-")].
Decl derivation_step(Subject, Rule, Depth) descr [mode("-", "-", "-")].
Decl unresolved_const(Const) descr [mode("-")].

unresolved_const(C) :- code_eq(C, /false).
`

// Recorder is a process-local audit store. Recording never fails the caller:
// the schema is fixed, so a rejected fact is a programming error and is
// logged instead of propagated.
type Recorder struct {
	mu    sync.Mutex
	log   *zap.Logger
	info  *analysis.ProgramInfo
	store factstore.ConcurrentFactStore
	qctx  *mengine.QueryContext
	preds map[string]ast.PredicateSym
	dirty bool
}

// New builds a Recorder with the fixed audit schema loaded.
func New(log *zap.Logger) (*Recorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	unit, err := parse.Unit(bytes.NewReader([]byte(schema)))
	if err != nil {
		return nil, fmt.Errorf("parse audit schema: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("analyze audit schema: %w", err)
	}
	store := factstore.NewConcurrentFactStore(factstore.NewSimpleInMemoryStore())

	preds := make(map[string]ast.PredicateSym, len(info.Decls))
	predToDecl := make(map[ast.PredicateSym]*ast.Decl, len(info.Decls))
	for sym, decl := range info.Decls {
		preds[sym.Symbol] = sym
		predToDecl[sym] = decl
	}
	predToRules := make(map[ast.PredicateSym][]ast.Clause)
	for _, clause := range info.Rules {
		predToRules[clause.Head.Predicate] = append(predToRules[clause.Head.Predicate], clause)
	}
	return &Recorder{
		log:   log,
		info:  info,
		store: store,
		qctx: &mengine.QueryContext{
			PredToRules: predToRules,
			PredToDecl:  predToDecl,
			Store:       store,
		},
		preds: preds,
	}, nil
}

// Defined records a constant generated during extraction pass `pass`.
func (r *Recorder) Defined(constName, basename string, pass int) {
	r.record("defined", constName, basename, pass)
}

// FactRegistered records a theorem registration, one fact per tag.
func (r *Recorder) FactRegistered(qname string, tags []string) {
	if len(tags) == 0 {
		r.record("fact_registered", qname, "fact")
		return
	}
	for _, tag := range tags {
		r.record("fact_registered", qname, tag)
	}
}

// RuleMatch records which extraction rule produced a constant.
func (r *Recorder) RuleMatch(constName, pattern, discharge string) {
	r.record("rule_match", constName, pattern, discharge)
}

// CodeEq records a derived code equation and whether its side conditions
// were fully discharged.
func (r *Recorder) CodeEq(constName string, resolved bool) {
	r.record("code_eq", constName, resolved)
}

// Warning records a structural warning.
func (r *Recorder) Warning(kind, subject, detail string) {
	r.record("warning", kind, subject, detail)
}

// Derivation flattens a theorem's derivation into derivation_step facts
// under the given subject name.
func (r *Recorder) Derivation(subject string, th *kernel.Thm) {
	for _, step := range th.Steps() {
		r.record("derivation_step", subject, step.Rule, step.Depth)
	}
}

func (r *Recorder) record(pred string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sym, ok := r.preds[pred]
	if !ok || sym.Arity != len(args) {
		r.log.Warn("audit fact rejected",
			zap.String("predicate", pred),
			zap.Int("args", len(args)))
		return
	}
	terms := make([]ast.BaseTerm, len(args))
	for i, a := range args {
		terms[i] = toBaseTerm(a)
	}
	if r.store.Add(ast.Atom{Predicate: sym, Args: terms}) {
		r.dirty = true
	}
}

// evalLocked recomputes derived predicates; inserts only mark the store
// dirty, so the datalog program runs at most once per query batch.
func (r *Recorder) evalLocked() error {
	if !r.dirty {
		return nil
	}
	if _, err := mengine.EvalProgramWithStats(r.info, r.store); err != nil {
		return fmt.Errorf("evaluate audit rules: %w", err)
	}
	r.dirty = false
	return nil
}

// Query evaluates one datalog atom, e.g. "defined(C, /myf, P)", and returns
// a binding row per result.
func (r *Recorder) Query(ctx context.Context, query string) ([]map[string]any, error) {
	shape, err := parseQueryShape(query)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.evalLocked(); err != nil {
		return nil, err
	}
	decl, ok := r.qctx.PredToDecl[shape.atom.Predicate]
	if !ok {
		return nil, fmt.Errorf("predicate %s is not declared", shape.atom.Predicate.Symbol)
	}
	modes := decl.Modes()
	if len(modes) == 0 {
		return nil, fmt.Errorf("predicate %s has no modes declared", shape.atom.Predicate.Symbol)
	}

	var rows []map[string]any
	err = r.qctx.EvalQuery(shape.atom, modes[0], unionfind.New(), func(fact ast.Atom) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		row := make(map[string]any, len(shape.vars))
		for _, v := range shape.vars {
			if v.index < len(fact.Args) {
				row[v.name] = fromBaseTerm(fact.Args[v.index])
			}
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Unresolved lists constants whose code equations kept undischarged side
// conditions, via the derived unresolved_const predicate.
func (r *Recorder) Unresolved(ctx context.Context) ([]string, error) {
	rows, err := r.Query(ctx, "unresolved_const(C)")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if s, ok := row["C"].(string); ok {
			out = append(out, strings.TrimPrefix(s, "/"))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Facts renders every stored fact of one predicate, sorted, for the trace
// surface.
func (r *Recorder) Facts(pred string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.evalLocked(); err != nil {
		return nil, err
	}
	sym, ok := r.preds[pred]
	if !ok {
		return nil, fmt.Errorf("predicate %s is not declared", pred)
	}
	var out []string
	err := r.store.GetFacts(ast.NewQuery(sym), func(a ast.Atom) error {
		out = append(out, a.String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Predicates lists the declared predicate names.
func (r *Recorder) Predicates() []string {
	out := make([]string, 0, len(r.preds))
	for name := range r.preds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type queryVar struct {
	name  string
	index int
}

type queryShape struct {
	atom ast.Atom
	vars []queryVar
}

func parseQueryShape(query string) (*queryShape, error) {
	clean := strings.TrimSpace(query)
	clean = strings.TrimPrefix(clean, "?")
	clean = strings.TrimSuffix(strings.TrimSpace(clean), ".")
	if clean == "" {
		return nil, fmt.Errorf("empty query")
	}
	atom, err := parse.Atom(clean)
	if err != nil {
		return nil, fmt.Errorf("parse query %q: %w", query, err)
	}
	shape := &queryShape{atom: atom}
	for i, arg := range atom.Args {
		if v, ok := arg.(ast.Variable); ok {
			shape.vars = append(shape.vars, queryVar{name: v.Symbol, index: i})
		}
	}
	return shape, nil
}

// toBaseTerm maps Go values onto Mangle constants. Identifier-like strings
// become name constants so they can be written literally in queries
// (defined(C, /myf, P)); everything else stays a string.
func toBaseTerm(v any) ast.BaseTerm {
	switch v := v.(type) {
	case bool:
		if v {
			return ast.TrueConstant
		}
		return ast.FalseConstant
	case int:
		return ast.Number(int64(v))
	case int64:
		return ast.Number(v)
	case string:
		if strings.HasPrefix(v, "/") {
			if n, err := ast.Name(v); err == nil {
				return n
			}
			return ast.String(v)
		}
		if isIdentifier(v) {
			if n, err := ast.Name("/" + v); err == nil {
				return n
			}
		}
		return ast.String(v)
	}
	return ast.String(fmt.Sprint(v))
}

func fromBaseTerm(t ast.BaseTerm) any {
	c, ok := t.(ast.Constant)
	if !ok {
		return t.String()
	}
	switch c.Type {
	case ast.NumberType:
		return c.NumValue
	case ast.StringType, ast.NameType:
		return c.Symbol
	}
	return c.String()
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if !(c >= 'a' && c <= 'z') && c != '_' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') && c != '_' {
			return false
		}
	}
	return true
}
