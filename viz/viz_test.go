package viz

import (
	"strings"
	"testing"

	"github.com/petal-labs/petalgen/ir"
)

func sampleGraph() *ir.GraphInfo {
	return &ir.GraphInfo{
		Name: "agent",
		Nodes: []ir.NodeSpec{
			{ID: "agent", DisplayName: "call_model"},
			{ID: "tools"},
		},
		Edges: []ir.EdgeSpec{
			{From: "tools", To: "agent"},
		},
		ConditionalEdges: []ir.ConditionalEdgeSpec{
			{
				From:       "agent",
				RouterName: "should_continue",
				Branches: []ir.Branch{
					{Label: "continue", Target: "tools"},
					{Label: "end", Target: ir.Terminal},
				},
			},
		},
		EntryPoint: "agent",
	}
}

func TestMermaid(t *testing.T) {
	out := Mermaid(sampleGraph())

	for _, want := range []string{
		"graph TD",
		`agent["agent<br/>call_model"]`,
		`tools["tools"]`,
		"__end__((end))",
		"tools --> agent",
		"agent -->|continue| tools",
		"agent -->|end| __end__",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("mermaid missing %q:\n%s", want, out)
		}
	}
}

func TestMermaid_SanitizesIDs(t *testing.T) {
	g := &ir.GraphInfo{
		Nodes: []ir.NodeSpec{{ID: "fetch-data"}, {ID: "store"}},
		Edges: []ir.EdgeSpec{{From: "fetch-data", To: "store"}},
	}
	out := Mermaid(g)
	if !strings.Contains(out, "fetch_data --> store") {
		t.Errorf("hyphenated id not sanitized:\n%s", out)
	}
}

func TestDOT(t *testing.T) {
	out := DOT(sampleGraph())

	for _, want := range []string{
		`digraph "agent" {`,
		"rankdir=TB;",
		`"agent" [shape=box, style=bold];`, // entry point highlighted
		`"tools";`,
		`"__end__" [shape=doublecircle, label="end"];`,
		`"tools" -> "agent";`,
		`"agent" -> "tools" [label="continue", style=dashed];`,
		`"agent" -> "__end__" [label="end", style=dashed];`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dot missing %q:\n%s", want, out)
		}
	}
}

func TestDOT_UnnamedGraph(t *testing.T) {
	g := &ir.GraphInfo{Nodes: []ir.NodeSpec{{ID: "a"}}}
	if !strings.Contains(DOT(g), `digraph "G" {`) {
		t.Error("unnamed graph should fall back to G")
	}
}

func TestNoTerminalMarkerWithoutTerminalEdges(t *testing.T) {
	g := &ir.GraphInfo{
		Nodes: []ir.NodeSpec{{ID: "a"}, {ID: "b"}},
		Edges: []ir.EdgeSpec{{From: "a", To: "b"}},
	}
	if strings.Contains(Mermaid(g), "((end))") {
		t.Error("mermaid end marker without terminal edges")
	}
	if strings.Contains(DOT(g), "doublecircle") {
		t.Error("dot end marker without terminal edges")
	}
}
