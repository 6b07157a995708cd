// Package session executes theory-script commands against a live theory.
//
// A session owns the current theory version, the tactic registry and the
// audit recorder. Command execution is transactional: every handler works
// on the immutable theory it was given and the session commits the returned
// version only when the handler succeeds, so a failed command leaves no
// trace beyond its audit record.
package session

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/audit"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/extract"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/kernel"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/rules"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/syntax"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/tactic"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/theory"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/theorydb"
)

// defaultDischarge is the tactic wired into an extraction rule when the
// command names none.
const defaultDischarge = "vc_solve"

// Options configures a session. Every field is optional.
type Options struct {
	// Logger receives command and warning events; nil means no logging.
	Logger *zap.Logger
	// Theory is the starting theory; nil starts from theory.New().
	Theory *theory.Context
	// Tactics resolves discharge names; nil uses the built-in registry.
	Tactics *tactic.Registry
	// Recorder collects audit facts; nil builds a fresh one.
	Recorder *audit.Recorder
	// DB enables Save; nil disables persistence.
	DB *theorydb.DB
	// Patterns are default conclusion patterns, installed on construction.
	Patterns []string
}

// Session is a live command executor.
type Session struct {
	mu      sync.Mutex
	log     *zap.Logger
	thy     *theory.Context
	tactics *tactic.Registry
	rec     *audit.Recorder
	db      *theorydb.DB
}

// New builds a session.
func New(opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	thy := opts.Theory
	if thy == nil {
		thy = theory.New()
	}
	tacs := opts.Tactics
	if tacs == nil {
		tacs = tactic.NewRegistry()
	}
	rec := opts.Recorder
	if rec == nil {
		var err error
		rec, err = audit.New(log)
		if err != nil {
			return nil, fmt.Errorf("audit recorder: %w", err)
		}
	}
	s := &Session{log: log, thy: thy, tactics: tacs, rec: rec, db: opts.DB}
	if len(opts.Patterns) > 0 {
		s.ReplacePatterns(opts.Patterns)
	}
	return s, nil
}

// Theory returns the current committed theory version.
func (s *Session) Theory() *theory.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thy
}

// Tactics returns the session's tactic registry.
func (s *Session) Tactics() *tactic.Registry {
	return s.tactics
}

// Recorder returns the session's audit recorder.
func (s *Session) Recorder() *audit.Recorder {
	return s.rec
}

// Outcome is the visible result of one successful command.
type Outcome struct {
	Command  syntax.Command
	Output   []string
	Warnings []extract.Warning
	Duration time.Duration
}

func (o *Outcome) addf(format string, args ...interface{}) {
	o.Output = append(o.Output, fmt.Sprintf(format, args...))
}

// Execute runs one command. On error the theory is unchanged.
func (s *Session) Execute(ctx context.Context, cmd syntax.Command) (*Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	out := &Outcome{Command: cmd}
	rep := &extract.Report{}

	thy, err := s.dispatch(cmd, rep, out)

	out.Warnings = rep.Warnings
	out.Duration = time.Since(start)
	for _, w := range rep.Warnings {
		s.log.Warn("structural warning",
			zap.String("keyword", cmd.Keyword()),
			zap.String("kind", string(w.Kind)),
			zap.String("detail", w.Detail))
		s.rec.Warning(string(w.Kind), cmd.Keyword(), w.Detail)
	}
	if err != nil {
		s.log.Error("command failed",
			zap.String("keyword", cmd.Keyword()),
			zap.String("span", cmd.Span().String()),
			zap.String("class", Classify(err).String()),
			zap.Error(err))
		return nil, err
	}

	s.thy = thy
	s.log.Info("command executed",
		zap.String("keyword", cmd.Keyword()),
		zap.String("span", cmd.Span().String()),
		zap.Int("theory_version", thy.Version()),
		zap.Duration("took", out.Duration))
	return out, nil
}

// Run executes commands serially, stopping at the first failure. Outcomes
// of the commands that ran successfully are returned either way.
func (s *Session) Run(ctx context.Context, cmds []syntax.Command) ([]*Outcome, error) {
	outs := make([]*Outcome, 0, len(cmds))
	for _, cmd := range cmds {
		out, err := s.Execute(ctx, cmd)
		if err != nil {
			return outs, fmt.Errorf("%s: %s: %w", cmd.Span(), cmd.Keyword(), err)
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// RunFiles parses script files concurrently and executes them serially in
// argument order.
func (s *Session) RunFiles(ctx context.Context, paths ...string) ([]*Outcome, error) {
	scripts, err := syntax.ParseFiles(ctx, paths)
	if err != nil {
		return nil, err
	}
	var outs []*Outcome
	for _, cmds := range scripts {
		ran, err := s.Run(ctx, cmds)
		outs = append(outs, ran...)
		if err != nil {
			return outs, err
		}
	}
	return outs, nil
}

// Save writes the current theory to the configured database.
func (s *Session) Save(ctx context.Context) error {
	if s.db == nil {
		return ErrNoDatabase
	}
	return s.db.Save(ctx, s.Theory())
}

// ReplacePatterns parses raw conclusion patterns against the current
// signature and installs them as the whole pattern registry. Unusable
// patterns are skipped with a warning; the count of installed patterns is
// returned. This is the hot-reload entry point.
func (s *Session) ReplacePatterns(raw []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps := rules.NewPatterns()
	installed := 0
	for _, r := range raw {
		p, err := s.parseProposition(r)
		if err != nil {
			s.log.Warn("skipping conclusion pattern",
				zap.String("pattern", r), zap.Error(err))
			s.rec.Warning(string(extract.WarnBadPattern), "pattern-reload",
				fmt.Sprintf("%s: %v", r, err))
			continue
		}
		ps = ps.Add(p)
		installed++
	}
	s.thy = s.thy.WithPatterns(ps)
	s.log.Info("conclusion patterns installed",
		zap.Int("installed", installed), zap.Int("offered", len(raw)))
	return installed
}

// dispatch routes one command to its handler. Handlers never mutate s; they
// return the successor theory.
func (s *Session) dispatch(cmd syntax.Command, rep *extract.Report, out *Outcome) (*theory.Context, error) {
	switch c := cmd.(type) {
	case syntax.Constants:
		return s.execConstants(c, out)
	case syntax.Axiom:
		return s.execAxiom(c, out)
	case syntax.ExtractionMode:
		return s.execExtractionMode(c, out)
	case syntax.ExtractEquations:
		return s.execExtractEquations(c, rep, out)
	case syntax.ConcreteDefinition:
		return s.execConcreteDefinition(c, rep, out)
	case syntax.CdPattern:
		return s.execCdPattern(c, out)
	case syntax.IntroRule:
		return s.execFactSet(c.Fact, "intro_rule", out)
	case syntax.SolveRule:
		return s.execFactSet(c.Fact, "solve_rule", out)
	case syntax.Show:
		return s.execShow(c, out)
	case syntax.TacticPlugin:
		return s.execTacticPlugin(c, out)
	default:
		return nil, fmt.Errorf("unhandled command %T", cmd)
	}
}

func (s *Session) execConstants(c syntax.Constants, out *Outcome) (*theory.Context, error) {
	thy, err := s.thy.DeclareConst(c.Name, c.Ty)
	if err != nil {
		return nil, asUser(err)
	}
	out.addf("constant %s :: %s", c.Name, c.Ty)
	return thy, nil
}

func (s *Session) execAxiom(c syntax.Axiom, out *Outcome) (*theory.Context, error) {
	prop, err := s.parseTerm(c.Prop)
	if err != nil {
		return nil, err
	}
	thy, th, err := s.thy.Axiom(c.Name, prop)
	if err != nil {
		return nil, err
	}
	s.rec.FactRegistered(c.Name, nil)
	out.addf("axiom %s: %s", c.Name, th)
	return thy, nil
}

func (s *Session) execExtractionMode(c syntax.ExtractionMode, out *Outcome) (*theory.Context, error) {
	pat, err := s.parseTerm(c.Pattern)
	if err != nil {
		return nil, err
	}
	schema, err := s.lookupFact(c.Schema)
	if err != nil {
		return nil, err
	}
	name := c.Discharge
	if name == "" {
		name = defaultDischarge
	}
	t, ok := s.tactics.Lookup(name)
	if !ok {
		return nil, asUser(fmt.Errorf("%q: %w", name, ErrUnknownTactic))
	}

	rule := rules.Rule{Pattern: pat, Schema: schema, Discharge: t.Proc(), DischargeName: name}
	rs, _ := s.thy.Modes().Lookup(c.Mode)
	rs = rs.Add(rule)
	out.addf("mode %s: %d rule(s)", c.Mode, rs.Len())
	return s.thy.WithModes(s.thy.Modes().Register(c.Mode, rs)), nil
}

func (s *Session) execExtractEquations(c syntax.ExtractEquations, rep *extract.Report, out *Outcome) (*theory.Context, error) {
	src, err := s.lookupFact(c.Fact)
	if err != nil {
		return nil, err
	}
	res, err := extract.Equations(s.thy, c.Modes, c.Basename, src, rep)
	if err != nil {
		return nil, err
	}
	s.auditExtraction(c.Basename, res)
	s.reportExtraction(c.Basename, res, out)
	return res.Ctx, nil
}

func (s *Session) execConcreteDefinition(c syntax.ConcreteDefinition, rep *extract.Report, out *Outcome) (*theory.Context, error) {
	src, err := s.lookupFact(c.Fact)
	if err != nil {
		return nil, err
	}
	var pats []term.Term
	if len(c.Patterns) > 0 {
		for _, raw := range c.Patterns {
			p, err := s.parseTerm(raw)
			if err != nil {
				return nil, err
			}
			pats = append(pats, p)
		}
	} else {
		pats = s.thy.Patterns().List()
	}

	res, err := extract.Concrete(s.thy, c.Name, c.Params, src, pats, c.ExtractModes, c.Extract, rep)
	if err != nil {
		return nil, err
	}

	s.rec.Defined(res.Const.Name, c.Name, 0)
	s.rec.FactRegistered(c.Name+".def", []string{"def"})
	s.rec.FactRegistered(c.Name+".refine", []string{"refine"})
	s.rec.Derivation(c.Name+".refine", res.Refined)

	out.addf("definition %s :: %s", res.Const.Name, res.Const.Ty)
	out.addf("%s.refine: %s", c.Name, res.Refined)
	if res.Extract != nil {
		s.auditExtraction(c.Name, res.Extract)
		s.reportExtraction(c.Name, res.Extract, out)
	}
	return res.Ctx, nil
}

func (s *Session) execCdPattern(c syntax.CdPattern, out *Outcome) (*theory.Context, error) {
	p, err := s.parseProposition(c.Pattern)
	if err != nil {
		return nil, err
	}
	ps := s.thy.Patterns()
	if c.Add {
		ps = ps.Add(p)
	} else {
		ps = ps.Delete(p)
	}
	out.addf("%d conclusion pattern(s)", ps.Len())
	return s.thy.WithPatterns(ps), nil
}

func (s *Session) execFactSet(fact, which string, out *Outcome) (*theory.Context, error) {
	ths := s.thy.FactsByName(fact)
	if len(ths) == 0 {
		return nil, asUser(fmt.Errorf("%q: %w", fact, ErrNoSuchFact))
	}
	var thy *theory.Context
	switch which {
	case "intro_rule":
		fs := s.thy.Intro()
		for _, th := range ths {
			fs = fs.Add(th)
		}
		thy = s.thy.WithIntro(fs)
		out.addf("%d intro rule(s)", thy.Intro().Len())
	default:
		fs := s.thy.Solve()
		for _, th := range ths {
			fs = fs.Add(th)
		}
		thy = s.thy.WithSolve(fs)
		out.addf("%d solve rule(s)", thy.Solve().Len())
	}
	s.rec.FactRegistered(fact, []string{which})
	return thy, nil
}

func (s *Session) execShow(c syntax.Show, out *Outcome) (*theory.Context, error) {
	entries := s.thy.EntriesByName(c.Name)
	if len(entries) == 0 {
		if ty, ok := s.thy.LookupConst(c.Name); ok {
			out.addf("%s :: %s", c.Name, ty)
			return s.thy, nil
		}
		return nil, asUser(fmt.Errorf("%q: %w", c.Name, ErrNoSuchFact))
	}
	for _, e := range entries {
		out.Output = append(out.Output, formatEntry(e))
	}
	return s.thy, nil
}

func (s *Session) execTacticPlugin(c syntax.TacticPlugin, out *Outcome) (*theory.Context, error) {
	src, err := os.ReadFile(c.File)
	if err != nil {
		return nil, fmt.Errorf("read plugin: %w", err)
	}
	p, err := tactic.LoadPlugin(c.Name, string(src))
	if err != nil {
		return nil, asUser(err)
	}
	if err := s.tactics.Register(c.Name, p.Tactic(s.tactics)); err != nil {
		return nil, asUser(err)
	}
	out.addf("tactic %s loaded from %s", c.Name, c.File)
	return s.thy, nil
}

// auditExtraction mirrors an extraction result into the audit stream.
func (s *Session) auditExtraction(basename string, res *extract.Result) {
	for i, gd := range res.Defs {
		s.rec.Defined(gd.Const.Name, basename, i)
		s.rec.RuleMatch(gd.Const.Name, term.String(gd.Rule.Pattern), gd.Rule.DischargeName)
	}
	if len(res.Defs) > 0 {
		s.rec.FactRegistered(basename+".defs", []string{"defs"})
	}
	s.rec.FactRegistered(basename+".code", []string{"code"})
	for _, ce := range res.CodeEqs {
		s.rec.CodeEq(ce.Def.Const.Name, ce.Resolved)
	}
	s.rec.Derivation(basename+".code", res.NewFact)
}

// reportExtraction renders an extraction result for display.
func (s *Session) reportExtraction(basename string, res *extract.Result, out *Outcome) {
	out.addf("%s: %d definition(s), %d code equation(s)",
		basename, len(res.Defs), len(res.CodeEqs))
	for _, gd := range res.Defs {
		out.addf("  %s :: %s", gd.Const.Name, gd.Const.Ty)
	}
	for _, ce := range res.CodeEqs {
		if ce.Resolved {
			out.addf("  %s", ce.Thm)
		} else {
			out.addf("  %s  [unresolved]", ce.Thm)
		}
	}
}

// parseTerm elaborates raw term text against the current signature. Parse
// failures are user errors.
func (s *Session) parseTerm(raw string) (term.Term, error) {
	t, err := syntax.ParseTerm(raw, s.thy)
	if err != nil {
		return nil, asUser(err)
	}
	return t, nil
}

// parseProposition additionally requires boolean type, the shape the
// conclusion-pattern registry holds.
func (s *Session) parseProposition(raw string) (term.Term, error) {
	t, err := s.parseTerm(raw)
	if err != nil {
		return nil, err
	}
	ty, err := term.TypeOf(t)
	if err != nil {
		return nil, err
	}
	if !term.TypeEq(ty, term.BoolT) {
		return nil, asUser(fmt.Errorf("pattern %q has type %s, want bool", raw, ty))
	}
	return t, nil
}

// lookupFact resolves a qualified fact name to its first theorem.
func (s *Session) lookupFact(qname string) (*kernel.Thm, error) {
	th, err := s.thy.One(qname)
	if err != nil {
		return nil, asUser(fmt.Errorf("%q: %w", qname, ErrNoSuchFact))
	}
	return th, nil
}

func formatEntry(e theory.FactEntry) string {
	tags := ""
	if len(e.Tags) > 0 {
		tags = " (" + strings.Join(e.Tags, ", ") + ")"
	}
	return fmt.Sprintf("%s[%d]%s: %s", e.QName, e.Index, tags, e.Thm)
}
