package kernel

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Derivation inspection. A theorem's provenance is the tree of rule
// applications that produced it; these helpers flatten and render it for the
// trace command and the audit layer.

// DerivationStep is one node of a derivation, flattened for consumers that
// want rows rather than a tree.
type DerivationStep struct {
	Rule     string
	Note     string
	Prop     string
	Depth    int
	Premises int
}

// Steps flattens the derivation pre-order: the theorem itself first, then
// each premise subtree.
func (th *Thm) Steps() []DerivationStep {
	var out []DerivationStep
	var walk func(*Thm, int)
	walk = func(t *Thm, depth int) {
		out = append(out, DerivationStep{
			Rule:     t.rule,
			Note:     t.note,
			Prop:     t.String(),
			Depth:    depth,
			Premises: len(t.prems),
		})
		for _, p := range t.prems {
			walk(p, depth+1)
		}
	}
	walk(th, 0)
	return out
}

// RenderDerivation draws the derivation as an ASCII tree, conclusion at the
// top. maxDepth caps the rendered depth; premises below the cap collapse
// into a count. maxDepth <= 0 means unlimited.
func RenderDerivation(th *Thm, maxDepth int) string {
	var sb strings.Builder
	sb.WriteString(nodeLabel(th) + "\n")
	renderChildren(&sb, th, "", 1, maxDepth)
	return sb.String()
}

func renderChildren(sb *strings.Builder, th *Thm, prefix string, depth, maxDepth int) {
	if maxDepth > 0 && depth > maxDepth {
		if len(th.prems) > 0 {
			fmt.Fprintf(sb, "%s└── ... %d premise(s) elided\n", prefix, len(th.prems))
		}
		return
	}
	for i, p := range th.prems {
		last := i == len(th.prems)-1
		connector := "├── "
		childPrefix := prefix + "│   "
		if last {
			connector = "└── "
			childPrefix = prefix + "    "
		}
		sb.WriteString(prefix + connector + nodeLabel(p) + "\n")
		renderChildren(sb, p, childPrefix, depth+1, maxDepth)
	}
}

func nodeLabel(th *Thm) string {
	tag := th.rule
	if th.note != "" {
		tag += ":" + th.note
	}
	return fmt.Sprintf("[%s] %s", tag, th.String())
}

// DerivationJSON renders the derivation tree as JSON for tooling.
func DerivationJSON(th *Thm) ([]byte, error) {
	type jsonNode struct {
		Rule     string      `json:"rule"`
		Note     string      `json:"note,omitempty"`
		Prop     string      `json:"prop"`
		Premises []*jsonNode `json:"premises,omitempty"`
	}
	var convert func(*Thm) *jsonNode
	convert = func(t *Thm) *jsonNode {
		n := &jsonNode{Rule: t.rule, Note: t.note, Prop: t.String()}
		for _, p := range t.prems {
			n.Premises = append(n.Premises, convert(p))
		}
		return n
	}
	return json.MarshalIndent(convert(th), "", "  ")
}

// CountSteps counts the nodes of the derivation tree.
func CountSteps(th *Thm) int {
	n := 1
	for _, p := range th.prems {
		n += CountSteps(p)
	}
	return n
}
