package extract

import (
	"errors"
	"fmt"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/match"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/rules"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/term"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/theory"
)

// PassState carries the mutable part of one extraction pass: the basename
// generated constants derive from, the running suffix, and the definitions
// made so far. Indices are never reused across passes because each pass gets
// its own state.
type PassState struct {
	Basename string
	next     int
	Defs     []GeneratedDef
}

// NextName yields basename_<index> and advances the counter.
func (st *PassState) NextName() string {
	name := fmt.Sprintf("%s_%d", st.Basename, st.next)
	st.next++
	return name
}

// Traverse rewrites t bottom up against the rule set: children are
// transformed first, then the node itself is matched, first rule in
// registration order wins. A matched node is handed to the closure builder
// and replaced by the resulting application; replacements are not matched
// again. The traversal order, left to right and innermost first, fixes the
// numeric suffixes of generated names and is part of the engine's contract.
func Traverse(ctx *theory.Context, rs rules.Set, st *PassState, t term.Term) (*theory.Context, term.Term, error) {
	return traverse(ctx, rs, st, t, nil)
}

func traverse(ctx *theory.Context, rs rules.Set, st *PassState, t term.Term, env []EnvEntry) (*theory.Context, term.Term, error) {
	var node term.Term
	switch t := t.(type) {
	case term.Abs:
		inner := append(env[:len(env):len(env)], EnvEntry{Name: t.Name, Ty: t.Ty})
		ctx2, body, err := traverse(ctx, rs, st, t.Body, inner)
		if err != nil {
			return nil, nil, err
		}
		ctx = ctx2
		node = term.Abs{Name: t.Name, Ty: t.Ty, Body: body}
	case term.App:
		ctx2, fun, err := traverse(ctx, rs, st, t.Fun, env)
		if err != nil {
			return nil, nil, err
		}
		ctx3, arg, err := traverse(ctx2, rs, st, t.Arg, env)
		if err != nil {
			return nil, nil, err
		}
		ctx = ctx3
		node = term.App{Fun: fun, Arg: arg}
	default:
		node = t
	}

	rule, ok, err := firstMatch(rs, node, env)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return ctx, node, nil
	}

	ctx2, repl, gd, err := BuildClosure(ctx, st.NextName(), env, node)
	if err != nil {
		return nil, nil, err
	}
	gd.Rule = rule
	st.Defs = append(st.Defs, gd)
	return ctx2, repl, nil
}

// firstMatch scans the candidate rules in registration order and returns the
// first whose pattern matches the node.
func firstMatch(rs rules.Set, node term.Term, env []EnvEntry) (rules.Rule, bool, error) {
	outer := outerTypes(env)
	for _, r := range rs.Candidates(node) {
		if _, err := match.Terms(r.Pattern, node, outer); err != nil {
			if errors.Is(err, match.ErrNoMatch) {
				continue
			}
			return rules.Rule{}, false, err
		}
		return r, true, nil
	}
	return rules.Rule{}, false, nil
}

// outerTypes converts an outermost-first environment into the innermost-first
// type stack the matcher expects.
func outerTypes(env []EnvEntry) []term.Type {
	if len(env) == 0 {
		return nil
	}
	out := make([]term.Type, len(env))
	for i, e := range env {
		out[len(env)-1-i] = e.Ty
	}
	return out
}
