package ir

import (
	"strings"
	"testing"
)

func validGraph() GraphInfo {
	return GraphInfo{
		Name: "agent",
		Nodes: []NodeSpec{
			{ID: "start"},
			{ID: "work"},
			{ID: "finish"},
		},
		Edges: []EdgeSpec{
			{From: "start", To: "work"},
			{From: "finish", To: Terminal},
		},
		ConditionalEdges: []ConditionalEdgeSpec{
			{
				From:       "work",
				RouterName: "route_work",
				Branches: []Branch{
					{Label: "again", Target: "work"},
					{Label: "done", Target: "finish"},
				},
			},
		},
		StateSchema: StateSchema{Fields: []FieldSpec{
			{Name: "messages", Type: List(String())},
			{Name: "count", Type: Int()},
		}},
		EntryPoint: "start",
	}
}

func TestValidate_ValidGraph(t *testing.T) {
	g := validGraph()
	diags := g.Validate()
	if HasErrors(diags) {
		t.Errorf("expected no errors, got: %v", diags)
	}
}

func codes(diags []Diagnostic) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func hasCode(diags []Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestValidate_UnknownEdgeTarget(t *testing.T) {
	g := validGraph()
	g.Edges = append(g.Edges, EdgeSpec{From: "start", To: "ghost"})

	diags := g.Validate()
	if !hasCode(diags, "PG-001") {
		t.Fatalf("expected PG-001, got %v", codes(diags))
	}
	found := false
	for _, d := range diags {
		if d.Code == "PG-001" && strings.Contains(d.Path, "edges[2].to") {
			found = true
		}
	}
	if !found {
		t.Errorf("PG-001 path should point at the bad edge target, got %v", diags)
	}
}

func TestValidate_UnknownEdgeSource(t *testing.T) {
	g := validGraph()
	g.Edges = append(g.Edges, EdgeSpec{From: "ghost", To: "start"})

	if !hasCode(g.Validate(), "PG-001") {
		t.Error("expected PG-001 for unknown edge source")
	}
}

func TestValidate_TerminalTargetAllowed(t *testing.T) {
	g := validGraph()
	g.Edges = append(g.Edges, EdgeSpec{From: "work", To: Terminal})

	if HasErrors(g.Validate()) {
		t.Errorf("terminal target should be legal, got %v", g.Validate())
	}
}

func TestValidate_DuplicateNodeID(t *testing.T) {
	g := validGraph()
	g.Nodes = append(g.Nodes, NodeSpec{ID: "work"})

	diags := g.Validate()
	if !hasCode(diags, "PG-002") {
		t.Fatalf("expected PG-002, got %v", codes(diags))
	}
}

func TestValidate_MissingEntryPoint(t *testing.T) {
	g := validGraph()
	g.EntryPoint = ""
	if !hasCode(g.Validate(), "PG-003") {
		t.Error("expected PG-003 for empty entry point")
	}

	g.EntryPoint = "nowhere"
	if !hasCode(g.Validate(), "PG-003") {
		t.Error("expected PG-003 for undeclared entry point")
	}
}

func TestValidate_EmptyBranches(t *testing.T) {
	g := validGraph()
	g.ConditionalEdges = []ConditionalEdgeSpec{
		{From: "work", RouterName: "route_work"},
	}

	diags := g.Validate()
	if !hasCode(diags, "PG-004") {
		t.Fatalf("expected PG-004, got %v", codes(diags))
	}
}

func TestValidate_DuplicateBranchLabel(t *testing.T) {
	g := validGraph()
	g.ConditionalEdges[0].Branches = []Branch{
		{Label: "done", Target: "finish"},
		{Label: "done", Target: "work"},
	}

	if !hasCode(g.Validate(), "PG-005") {
		t.Error("expected PG-005 for duplicate branch label")
	}
}

func TestValidate_BranchToUnknownNode(t *testing.T) {
	g := validGraph()
	g.ConditionalEdges[0].Branches = append(g.ConditionalEdges[0].Branches,
		Branch{Label: "lost", Target: "ghost"})

	if !hasCode(g.Validate(), "PG-001") {
		t.Error("expected PG-001 for branch to unknown node")
	}
}

func TestValidate_DuplicateStateField(t *testing.T) {
	g := validGraph()
	g.StateSchema.Fields = append(g.StateSchema.Fields, FieldSpec{Name: "count", Type: Int()})

	if !hasCode(g.Validate(), "PG-006") {
		t.Error("expected PG-006 for duplicate state field")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	g := GraphInfo{
		Nodes: []NodeSpec{{ID: "a"}, {ID: "a"}},
		Edges: []EdgeSpec{{From: "a", To: "ghost"}},
	}

	diags := g.Validate()
	// duplicate id, unknown target, missing entry: all three reported
	for _, code := range []string{"PG-001", "PG-002", "PG-003"} {
		if !hasCode(diags, code) {
			t.Errorf("expected %s in %v", code, codes(diags))
		}
	}
}

func TestNormalizeTarget(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"__end__", Terminal},
		{"END", Terminal},
		{"end", "end"},
		{"work", "work"},
	}
	for _, tc := range cases {
		if got := NormalizeTarget(tc.in); got != tc.want {
			t.Errorf("NormalizeTarget(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNodeByID(t *testing.T) {
	g := validGraph()
	n, ok := g.NodeByID("work")
	if !ok || n.ID != "work" {
		t.Errorf("NodeByID(work) = %v, %v", n, ok)
	}
	if _, ok := g.NodeByID("ghost"); ok {
		t.Error("NodeByID(ghost) should be false")
	}
}

func TestDiagnosticHelpers(t *testing.T) {
	diags := []Diagnostic{
		{Code: "PG-001", Severity: SeverityError},
		{Code: "TP-001", Severity: SeverityWarning},
	}
	if !HasErrors(diags) {
		t.Error("HasErrors should be true")
	}
	if n := len(Errors(diags)); n != 1 {
		t.Errorf("Errors count = %d, want 1", n)
	}
	if n := len(Warnings(diags)); n != 1 {
		t.Errorf("Warnings count = %d, want 1", n)
	}
	if HasErrors(Warnings(diags)) {
		t.Error("warnings alone should not report errors")
	}
}

func TestDynamicTypeString(t *testing.T) {
	cases := []struct {
		typ  DynamicType
		want string
	}{
		{String(), "str"},
		{Int(), "int"},
		{Float(), "float"},
		{Bool(), "bool"},
		{List(String()), "list[str]"},
		{Dict(String(), Float()), "dict[str, float]"},
		{Optional(Int()), "Optional[int]"},
		{Opaque(), "Any"},
		{List(Dict(String(), List(Int()))), "list[dict[str, list[int]]]"},
	}
	for _, tc := range cases {
		if got := tc.typ.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
