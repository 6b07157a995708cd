package rules

import (
	"fmt"
	"sort"
)

// Modes maps extraction-mode names to rule sets. A mode bundles the rules
// for one family of recursion combinators; resolving no modes at all selects
// the union of everything registered.
type Modes struct {
	byName map[string]Set
}

// NewModes returns an empty registry.
func NewModes() Modes {
	return Modes{byName: map[string]Set{}}
}

// Register unions rs into the named mode and returns the updated registry.
func (m Modes) Register(mode string, rs Set) Modes {
	out := m.clone()
	out.byName[mode] = out.byName[mode].Union(rs)
	return out
}

// Lookup fetches one mode's rule set.
func (m Modes) Lookup(mode string) (Set, bool) {
	rs, ok := m.byName[mode]
	return rs, ok
}

// Names lists registered mode names, sorted.
func (m Modes) Names() []string {
	out := make([]string, 0, len(m.byName))
	for n := range m.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Resolve selects the union of the named modes in the given order, or the
// union of all modes (in sorted name order) when names is empty. An unknown
// name or an empty result is an error.
func (m Modes) Resolve(names []string) (Set, error) {
	var out Set
	if len(names) == 0 {
		for _, n := range m.Names() {
			out = out.Union(m.byName[n])
		}
	} else {
		for _, n := range names {
			rs, ok := m.byName[n]
			if !ok {
				return Set{}, fmt.Errorf("%q: %w", n, ErrUnknownMode)
			}
			out = out.Union(rs)
		}
	}
	if out.Len() == 0 {
		return Set{}, ErrEmptyRuleSet
	}
	return out, nil
}

// Union merges another registry mode by mode; the other side's rules override
// on identical patterns.
func (m Modes) Union(other Modes) Modes {
	out := m.clone()
	for name, rs := range other.byName {
		out.byName[name] = out.byName[name].Union(rs)
	}
	return out
}

func (m Modes) clone() Modes {
	out := Modes{byName: make(map[string]Set, len(m.byName))}
	for k, v := range m.byName {
		out.byName[k] = v
	}
	return out
}
