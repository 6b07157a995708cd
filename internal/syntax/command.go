package syntax

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
)

// Span locates a command in its source script.
type Span struct {
	File string
	Line int
}

func (s Span) String() string {
	if s.File == "" {
		return fmt.Sprintf("line %d", s.Line)
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// Command is one parsed theory-script line. Term and fact arguments stay as
// raw text: the signature they elaborate against grows while the script
// runs, so only the executor can parse them. Types are closed and parse
// eagerly.
type Command interface {
	Span() Span
	Keyword() string
}

type spanned struct {
	span Span
}

func (s spanned) Span() Span { return s.span }

// Constants declares a constant: constants NAME :: TYPE
type Constants struct {
	spanned
	Name string
	Ty   term.Type
}

func (Constants) Keyword() string { return "constants" }

// Axiom asserts a fact: axiom NAME: PROP
type Axiom struct {
	spanned
	Name string
	Prop string
}

func (Axiom) Keyword() string { return "axiom" }

// ExtractionMode registers an extraction rule under a mode:
// extraction_mode MODE pattern "PAT" schema FACT [discharge TACTIC]
type ExtractionMode struct {
	spanned
	Mode      string
	Pattern   string
	Schema    string
	Discharge string
}

func (ExtractionMode) Keyword() string { return "extraction_mode" }

// ExtractEquations derives code equations for a fact:
// extract_equations BASENAME from FACT [modes M1 M2 ...]
// Without an explicit list every registered mode applies.
type ExtractEquations struct {
	spanned
	Basename string
	Fact     string
	Modes    []string
}

func (ExtractEquations) Keyword() string { return "extract_equations" }

// ConcreteDefinition names the constant a refinement fact synthesized:
// concrete_definition NAME [for x y] uses FACT [is "PAT"]... [extract M1 ...]
type ConcreteDefinition struct {
	spanned
	Name         string
	Params       []string
	Fact         string
	Patterns     []string
	Extract      bool
	ExtractModes []string
}

func (ConcreteDefinition) Keyword() string { return "concrete_definition" }

// CdPattern edits the default conclusion patterns: cd_pattern add|del "PAT"
type CdPattern struct {
	spanned
	Add     bool
	Pattern string
}

func (CdPattern) Keyword() string { return "cd_pattern" }

// IntroRule adds a backward rule for the goal solver: intro_rule FACT
type IntroRule struct {
	spanned
	Fact string
}

func (IntroRule) Keyword() string { return "intro_rule" }

// SolveRule adds a terminal rule for the goal solver: solve_rule FACT
type SolveRule struct {
	spanned
	Fact string
}

func (SolveRule) Keyword() string { return "solve_rule" }

// Show prints the facts registered under a qualified name: show QNAME
type Show struct {
	spanned
	Name string
}

func (Show) Keyword() string { return "show" }

// TacticPlugin loads a discharge-strategy plugin: tactic_plugin NAME FILE
type TacticPlugin struct {
	spanned
	Name string
	File string
}

func (TacticPlugin) Keyword() string { return "tactic_plugin" }

// ParseScript parses a whole script, one command per line. Blank lines and
// line trailers after -- are ignored.
func ParseScript(file, src string) ([]Command, error) {
	var cmds []Command
	for i, line := range strings.Split(src, "\n") {
		span := Span{File: file, Line: i + 1}
		cmd, err := parseCommand(span, line)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", span, err)
		}
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return cmds, nil
}

// ParseFiles reads and parses scripts concurrently; results come back in
// argument order. Execution order is the caller's business.
func ParseFiles(ctx context.Context, paths []string) ([][]Command, error) {
	g, _ := errgroup.WithContext(ctx)
	out := make([][]Command, len(paths))
	for i, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			cmds, err := ParseScript(path, string(data))
			if err != nil {
				return err
			}
			out[i] = cmds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseCommand(span Span, line string) (Command, error) {
	line = strings.TrimSpace(stripComment(line))
	if line == "" {
		return nil, nil
	}
	// axiom keeps its raw tail: the proposition is everything after the
	// colon, spacing and all.
	if rest, ok := cutKeyword(line, "axiom"); ok {
		return parseAxiom(span, rest)
	}
	fields, err := splitLine(line)
	if err != nil {
		return nil, err
	}
	switch fields[0] {
	case "constants":
		return parseConstants(span, fields[1:])
	case "extraction_mode":
		return parseExtractionMode(span, fields[1:])
	case "extract_equations":
		return parseExtractEquations(span, fields[1:])
	case "concrete_definition":
		return parseConcreteDefinition(span, fields[1:])
	case "cd_pattern":
		return parseCdPattern(span, fields[1:])
	case "intro_rule":
		if len(fields) != 2 {
			return nil, fmt.Errorf("intro_rule takes exactly one fact name")
		}
		return IntroRule{spanned: spanned{span}, Fact: fields[1]}, nil
	case "solve_rule":
		if len(fields) != 2 {
			return nil, fmt.Errorf("solve_rule takes exactly one fact name")
		}
		return SolveRule{spanned: spanned{span}, Fact: fields[1]}, nil
	case "show":
		if len(fields) != 2 {
			return nil, fmt.Errorf("show takes exactly one qualified name")
		}
		return Show{spanned: spanned{span}, Name: fields[1]}, nil
	case "tactic_plugin":
		if len(fields) != 3 {
			return nil, fmt.Errorf("tactic_plugin takes a name and a file")
		}
		return TacticPlugin{spanned: spanned{span}, Name: fields[1], File: fields[2]}, nil
	}
	return nil, fmt.Errorf("unknown command %q", fields[0])
}

// cutKeyword matches a leading keyword followed by whitespace or end.
func cutKeyword(line, kw string) (string, bool) {
	if !strings.HasPrefix(line, kw) {
		return "", false
	}
	rest := line[len(kw):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

func parseAxiom(span Span, rest string) (Command, error) {
	k := strings.IndexByte(rest, ':')
	if k < 0 {
		return nil, fmt.Errorf("axiom needs NAME: PROP")
	}
	name := strings.TrimSpace(rest[:k])
	prop := strings.TrimSpace(rest[k+1:])
	if name == "" || strings.ContainsAny(name, " \t") {
		return nil, fmt.Errorf("bad axiom name %q", name)
	}
	if prop == "" {
		return nil, fmt.Errorf("axiom %s has no proposition", name)
	}
	return Axiom{spanned: spanned{span}, Name: name, Prop: prop}, nil
}

func parseConstants(span Span, args []string) (Command, error) {
	decl := strings.Join(args, " ")
	name, tyText, ok := strings.Cut(decl, "::")
	if !ok {
		return nil, fmt.Errorf("constants needs NAME :: TYPE")
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, " \t") {
		return nil, fmt.Errorf("bad constant name %q", name)
	}
	ty, err := ParseType(strings.TrimSpace(tyText))
	if err != nil {
		return nil, fmt.Errorf("constant %s: %w", name, err)
	}
	return Constants{spanned: spanned{span}, Name: name, Ty: ty}, nil
}

func parseExtractionMode(span Span, args []string) (Command, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("extraction_mode needs a mode name")
	}
	cmd := ExtractionMode{spanned: spanned{span}, Mode: args[0]}
	i := 1
	for i < len(args) {
		key := args[i]
		if i+1 >= len(args) {
			return nil, fmt.Errorf("extraction_mode: %s needs an argument", key)
		}
		val := args[i+1]
		switch key {
		case "pattern":
			cmd.Pattern = val
		case "schema":
			cmd.Schema = val
		case "discharge":
			cmd.Discharge = val
		default:
			return nil, fmt.Errorf("extraction_mode: unexpected %q", key)
		}
		i += 2
	}
	if cmd.Pattern == "" || cmd.Schema == "" {
		return nil, fmt.Errorf("extraction_mode needs pattern and schema")
	}
	return cmd, nil
}

func parseExtractEquations(span Span, args []string) (Command, error) {
	if len(args) < 3 || args[1] != "from" {
		return nil, fmt.Errorf("extract_equations needs BASENAME from FACT")
	}
	cmd := ExtractEquations{spanned: spanned{span}, Basename: args[0], Fact: args[2]}
	if len(args) > 3 {
		if args[3] != "modes" || len(args) == 4 {
			return nil, fmt.Errorf("extract_equations: expected modes M1 M2 ..., got %q", strings.Join(args[3:], " "))
		}
		cmd.Modes = args[4:]
	}
	return cmd, nil
}

func parseConcreteDefinition(span Span, args []string) (Command, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("concrete_definition needs a name")
	}
	cmd := ConcreteDefinition{spanned: spanned{span}, Name: args[0]}
	i := 1
	for i < len(args) {
		switch args[i] {
		case "for":
			i++
			for i < len(args) && !isCdKeyword(args[i]) {
				cmd.Params = append(cmd.Params, args[i])
				i++
			}
			if len(cmd.Params) == 0 {
				return nil, fmt.Errorf("concrete_definition: for needs variable names")
			}
		case "uses":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("concrete_definition: uses needs a fact name")
			}
			if cmd.Fact != "" {
				return nil, fmt.Errorf("concrete_definition: duplicate uses")
			}
			cmd.Fact = args[i+1]
			i += 2
		case "is":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("concrete_definition: is needs a pattern")
			}
			cmd.Patterns = append(cmd.Patterns, args[i+1])
			i += 2
		case "extract":
			cmd.Extract = true
			cmd.ExtractModes = append([]string{}, args[i+1:]...)
			i = len(args)
		default:
			return nil, fmt.Errorf("concrete_definition: unexpected %q", args[i])
		}
	}
	if cmd.Fact == "" {
		return nil, fmt.Errorf("concrete_definition %s: missing uses FACT", cmd.Name)
	}
	return cmd, nil
}

func isCdKeyword(s string) bool {
	switch s {
	case "for", "uses", "is", "extract":
		return true
	}
	return false
}

func parseCdPattern(span Span, args []string) (Command, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("cd_pattern needs add|del and a pattern")
	}
	switch args[0] {
	case "add":
		return CdPattern{spanned: spanned{span}, Add: true, Pattern: args[1]}, nil
	case "del":
		return CdPattern{spanned: spanned{span}, Add: false, Pattern: args[1]}, nil
	}
	return nil, fmt.Errorf("cd_pattern: expected add or del, got %q", args[0])
}

// stripComment removes a -- trailer, respecting quoted patterns.
func stripComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '"':
			inQuote = !inQuote
		case !inQuote && line[i] == '-' && i+1 < len(line) && line[i+1] == '-':
			return line[:i]
		}
	}
	return line
}

// splitLine splits on whitespace, keeping double-quoted stretches as single
// fields with the quotes removed.
func splitLine(line string) ([]string, error) {
	var fields []string
	i := 0
	for i < len(line) {
		switch line[i] {
		case ' ', '\t':
			i++
		case '"':
			j := strings.IndexByte(line[i+1:], '"')
			if j < 0 {
				return nil, fmt.Errorf("unterminated quote")
			}
			fields = append(fields, line[i+1:i+1+j])
			i += j + 2
		default:
			j := i
			for j < len(line) && line[j] != ' ' && line[j] != '\t' && line[j] != '"' {
				j++
			}
			fields = append(fields, line[i:j])
			i = j
		}
	}
	return fields, nil
}
