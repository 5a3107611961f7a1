// Package ir defines the intermediate representation of a workflow graph.
//
// A GraphInfo is produced by an introspection front-end (live object
// inspection, static analysis, or a serialized description) and consumed
// read-only by the type mapper, topology resolver and code emitter. Values
// are constructed once per conversion and never mutated afterwards;
// re-conversion builds a fresh GraphInfo.
package ir

import "fmt"

// Terminal is the reserved node id marking the end of execution.
// Edges may target Terminal instead of a declared node.
const Terminal = "__end__"

// terminalAliases are accepted on load and normalized to Terminal.
var terminalAliases = map[string]bool{
	"__end__": true,
	"END":     true,
	"end":     false, // "end" is a legal node id, not an alias
}

// IsTerminal reports whether a target id refers to the terminal marker.
func IsTerminal(id string) bool {
	return terminalAliases[id]
}

// NormalizeTarget canonicalizes terminal aliases to Terminal and returns
// other ids unchanged.
func NormalizeTarget(id string) string {
	if IsTerminal(id) {
		return Terminal
	}
	return id
}

// GraphInfo is the root IR value describing one workflow graph.
type GraphInfo struct {
	Name             string                `json:"name,omitempty"`
	Nodes            []NodeSpec            `json:"nodes"`
	Edges            []EdgeSpec            `json:"edges"`
	ConditionalEdges []ConditionalEdgeSpec `json:"conditional_edges,omitempty"`
	StateSchema      StateSchema           `json:"state_schema"`
	EntryPoint       string                `json:"entry_point"`
}

// NodeSpec describes one named unit of work. Identity is the ID; ids are
// unique within a graph.
type NodeSpec struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name,omitempty"`
	Doc            string `json:"doc,omitempty"`
	SourceLocation string `json:"source_location,omitempty"`
}

// EdgeSpec is an unconditional transition between two nodes. To may be
// Terminal.
type EdgeSpec struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ConditionalEdgeSpec routes from a node via a named router function whose
// returned label selects a branch. Branch order is preserved from the source
// graph; labels are unique per edge.
type ConditionalEdgeSpec struct {
	From       string   `json:"from"`
	RouterName string   `json:"router_name"`
	Branches   []Branch `json:"branches"`
}

// Branch is one labelled target of a conditional edge. Target may be Terminal.
type Branch struct {
	Label  string `json:"label"`
	Target string `json:"target"`
}

// StateSchema is the ordered field list of the graph's state type.
type StateSchema struct {
	Fields []FieldSpec `json:"fields"`
}

// FieldSpec is one state field with its dynamically-observed type.
type FieldSpec struct {
	Name     string      `json:"name"`
	Type     DynamicType `json:"type"`
	Optional bool        `json:"optional,omitempty"`
}

// NodeByID returns the node with the given id, if declared.
func (g *GraphInfo) NodeByID(id string) (NodeSpec, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeSpec{}, false
}

// NodeIDs returns the declared node ids in declaration order.
func (g *GraphInfo) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

// Validate checks structural integrity of the GraphInfo:
//   - PG-001: edge endpoints reference declared nodes (or Terminal)
//   - PG-002: duplicate node IDs
//   - PG-003: entry point references a declared node
//   - PG-004: conditional edge has at least one branch
//   - PG-005: duplicate branch labels within a conditional edge
//   - PG-006: duplicate state field names
//
// All of these are errors; reachability and dead-edge analysis belongs to
// the topology resolver, which reports them as warnings.
func (g *GraphInfo) Validate() []Diagnostic {
	var diags []Diagnostic

	nodeIDs := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if nodeIDs[n.ID] {
			diags = append(diags, Diagnostic{
				Code:     "PG-002",
				Severity: SeverityError,
				Message:  fmt.Sprintf("duplicate node id %q", n.ID),
				Path:     fmt.Sprintf("nodes[%d].id", i),
			})
		}
		nodeIDs[n.ID] = true
	}

	declared := func(id string) bool {
		return IsTerminal(id) || nodeIDs[id]
	}

	for i, e := range g.Edges {
		if !nodeIDs[e.From] {
			diags = append(diags, Diagnostic{
				Code:     "PG-001",
				Severity: SeverityError,
				Message:  fmt.Sprintf("edge source %q references unknown node", e.From),
				Path:     fmt.Sprintf("edges[%d].from", i),
			})
		}
		if !declared(e.To) {
			diags = append(diags, Diagnostic{
				Code:     "PG-001",
				Severity: SeverityError,
				Message:  fmt.Sprintf("edge target %q references unknown node", e.To),
				Path:     fmt.Sprintf("edges[%d].to", i),
			})
		}
	}

	for i, ce := range g.ConditionalEdges {
		if !nodeIDs[ce.From] {
			diags = append(diags, Diagnostic{
				Code:     "PG-001",
				Severity: SeverityError,
				Message:  fmt.Sprintf("conditional edge source %q references unknown node", ce.From),
				Path:     fmt.Sprintf("conditional_edges[%d].from", i),
			})
		}
		if len(ce.Branches) == 0 {
			diags = append(diags, Diagnostic{
				Code:     "PG-004",
				Severity: SeverityError,
				Message:  fmt.Sprintf("conditional edge from %q has no branches", ce.From),
				Path:     fmt.Sprintf("conditional_edges[%d].branches", i),
			})
		}
		labels := make(map[string]bool, len(ce.Branches))
		for j, b := range ce.Branches {
			if labels[b.Label] {
				diags = append(diags, Diagnostic{
					Code:     "PG-005",
					Severity: SeverityError,
					Message:  fmt.Sprintf("conditional edge from %q repeats label %q", ce.From, b.Label),
					Path:     fmt.Sprintf("conditional_edges[%d].branches[%d].label", i, j),
				})
			}
			labels[b.Label] = true
			if !declared(b.Target) {
				diags = append(diags, Diagnostic{
					Code:     "PG-001",
					Severity: SeverityError,
					Message:  fmt.Sprintf("branch %q routes to unknown node %q", b.Label, b.Target),
					Path:     fmt.Sprintf("conditional_edges[%d].branches[%d].target", i, j),
				})
			}
		}
	}

	if g.EntryPoint == "" || !nodeIDs[g.EntryPoint] {
		diags = append(diags, Diagnostic{
			Code:     "PG-003",
			Severity: SeverityError,
			Message:  fmt.Sprintf("entry point %q does not reference a declared node", g.EntryPoint),
			Path:     "entry_point",
		})
	}

	fieldNames := make(map[string]bool, len(g.StateSchema.Fields))
	for i, f := range g.StateSchema.Fields {
		if fieldNames[f.Name] {
			diags = append(diags, Diagnostic{
				Code:     "PG-006",
				Severity: SeverityError,
				Message:  fmt.Sprintf("duplicate state field %q", f.Name),
				Path:     fmt.Sprintf("state_schema.fields[%d].name", i),
			})
		}
		fieldNames[f.Name] = true
	}

	return diags
}
