// Package viz renders workflow graphs as Mermaid or Graphviz DOT text for
// quick visual inspection.
package viz

import (
	"fmt"
	"strings"

	"github.com/petal-labs/petalgen/ir"
)

// Mermaid renders the graph as a Mermaid flowchart. Conditional branches
// carry their labels; terminal transitions point at a shared end marker.
func Mermaid(g *ir.GraphInfo) string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	for _, n := range g.Nodes {
		label := n.ID
		if n.DisplayName != "" && n.DisplayName != n.ID {
			label = fmt.Sprintf("%s<br/>%s", n.ID, n.DisplayName)
		}
		fmt.Fprintf(&b, "    %s[%q]\n", mermaidID(n.ID), label)
	}
	if usesTerminal(g) {
		fmt.Fprintf(&b, "    %s((end))\n", mermaidID(ir.Terminal))
	}

	for _, e := range g.Edges {
		fmt.Fprintf(&b, "    %s --> %s\n", mermaidID(e.From), mermaidID(e.To))
	}
	for _, ce := range g.ConditionalEdges {
		for _, br := range ce.Branches {
			fmt.Fprintf(&b, "    %s -->|%s| %s\n", mermaidID(ce.From), br.Label, mermaidID(br.Target))
		}
	}
	return b.String()
}

// DOT renders the graph in Graphviz DOT form.
func DOT(g *ir.GraphInfo) string {
	var b strings.Builder
	name := g.Name
	if name == "" {
		name = "G"
	}
	fmt.Fprintf(&b, "digraph %q {\n", name)
	fmt.Fprintf(&b, "    rankdir=TB;\n")

	for _, n := range g.Nodes {
		attrs := ""
		if n.ID == g.EntryPoint {
			attrs = " [shape=box, style=bold]"
		}
		fmt.Fprintf(&b, "    %q%s;\n", n.ID, attrs)
	}
	if usesTerminal(g) {
		fmt.Fprintf(&b, "    %q [shape=doublecircle, label=\"end\"];\n", ir.Terminal)
	}

	for _, e := range g.Edges {
		fmt.Fprintf(&b, "    %q -> %q;\n", e.From, e.To)
	}
	for _, ce := range g.ConditionalEdges {
		for _, br := range ce.Branches {
			fmt.Fprintf(&b, "    %q -> %q [label=%q, style=dashed];\n", ce.From, br.Target, br.Label)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// usesTerminal reports whether any edge targets the terminal marker.
func usesTerminal(g *ir.GraphInfo) bool {
	for _, e := range g.Edges {
		if ir.IsTerminal(e.To) {
			return true
		}
	}
	for _, ce := range g.ConditionalEdges {
		for _, br := range ce.Branches {
			if ir.IsTerminal(br.Target) {
				return true
			}
		}
	}
	return false
}

// mermaidID makes a node id safe for Mermaid's identifier grammar.
func mermaidID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
