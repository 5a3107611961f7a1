package emit

import (
	"fmt"
	"strings"

	"github.com/petal-labs/petalgen/ident"
	"github.com/petal-labs/petalgen/ir"
	"github.com/petal-labs/petalgen/topology"
	"github.com/petal-labs/petalgen/typemap"
)

// Emitter renders artifacts for resolved graphs. The zero value is not
// usable; construct with NewEmitter.
type Emitter struct {
	// PackageName is the package clause of the generated file.
	PackageName string

	// RuntimeImport is the import path of the support library the
	// generated code calls for error construction.
	RuntimeImport string

	// WithTests controls whether the test scaffold section is emitted.
	WithTests bool
}

// NewEmitter returns an Emitter with the default package name and runtime
// import path.
func NewEmitter() *Emitter {
	return &Emitter{
		PackageName:   "workflow",
		RuntimeImport: "github.com/petal-labs/petalgen/runtime",
		WithTests:     true,
	}
}

// fieldSym is one state field with its resolved symbol and type.
type fieldSym struct {
	Name    string // original schema name (json tag)
	GoName  string // exported struct field name
	GoType  string
	Default string // empty-value initializer, "" when the zero value serves
	Dynamic string // source-notation dynamic type, for the doc comment
}

// symbols holds every name decision for one generation pass. Building them
// all up front keeps stub, dispatch and test emission consistent.
type symbols struct {
	stateName   string
	nodeFuncs   map[string]string // node id -> function symbol
	routerFuncs map[string]string // router name -> function symbol
	fields      []fieldSym
}

// Emit renders the graph into an artifact. It never fails on a well-resolved
// graph: resolution errors must already have been surfaced by the topology
// resolver, and type mapping is total.
func (e *Emitter) Emit(g *ir.GraphInfo, resolved *topology.Resolved, types map[string]typemap.StaticType) (*Artifact, error) {
	if g == nil || resolved == nil {
		return nil, fmt.Errorf("emit: graph and resolved topology are required")
	}

	syms := e.buildSymbols(g, types)

	art := &Artifact{
		GraphName:   g.Name,
		PackageName: e.PackageName,
	}
	art.header = render("header", art)
	art.imports = render("imports", map[string]string{"RuntimeImport": e.RuntimeImport})

	art.Sections = append(art.Sections, Section{
		Name:   SectionStateType,
		Source: e.emitState(syms),
	})
	for _, n := range g.Nodes {
		art.Sections = append(art.Sections, Section{
			Name:   "node:" + n.ID,
			Source: e.emitNodeStub(n, syms, resolved),
		})
	}
	if len(g.ConditionalEdges) > 0 {
		art.Sections = append(art.Sections, Section{
			Name:   SectionRouters,
			Source: e.emitRouters(g, syms),
		})
	}
	art.Sections = append(art.Sections, Section{
		Name:   SectionDispatch,
		Source: e.emitDispatch(g, resolved, syms),
	})
	if e.WithTests {
		art.Sections = append(art.Sections, Section{
			Name:   SectionTests,
			Source: e.emitTests(g, resolved, syms),
		})
	}

	return art, nil
}

// buildSymbols sanitizes every node id, router name and field name into the
// target namespace. Node and router symbols share one symbol table with the
// fixed names the generated file already uses.
func (e *Emitter) buildSymbols(g *ir.GraphInfo, types map[string]typemap.StaticType) *symbols {
	syms := &symbols{
		stateName:   "State",
		nodeFuncs:   make(map[string]string, len(g.Nodes)),
		routerFuncs: make(map[string]string, len(g.ConditionalEdges)),
	}

	used := map[string]bool{
		"State":    true,
		"NewState": true,
		"Run":      true,
	}

	for _, n := range g.Nodes {
		syms.nodeFuncs[n.ID] = ident.Sanitize(n.ID, used)
	}
	for _, ce := range g.ConditionalEdges {
		if _, ok := syms.routerFuncs[ce.RouterName]; ok {
			continue
		}
		syms.routerFuncs[ce.RouterName] = ident.Sanitize(ce.RouterName, used)
	}

	fieldNames := make(map[string]bool)
	for _, f := range g.StateSchema.Fields {
		st, ok := types[f.Name]
		if !ok {
			st = typemap.Map(f.Type)
		}
		if f.Optional {
			st = typemap.Nullable(st)
		}

		sym := fieldSym{
			Name:    f.Name,
			GoName:  ident.Exported(f.Name, fieldNames),
			GoType:  st.GoString(),
			Dynamic: f.Type.String(),
		}
		if !f.Optional {
			sym.Default = st.ZeroLiteral()
		}
		if f.Optional {
			sym.Dynamic = "Optional[" + sym.Dynamic + "]"
		}
		syms.fields = append(syms.fields, sym)
	}

	return syms
}

func (e *Emitter) emitState(syms *symbols) string {
	return render("state", map[string]any{
		"StateName": syms.stateName,
		"Fields":    syms.fields,
	})
}

func (e *Emitter) emitNodeStub(n ir.NodeSpec, syms *symbols, resolved *topology.Resolved) string {
	var b strings.Builder
	sym := syms.nodeFuncs[n.ID]

	title := n.DisplayName
	if title == "" {
		title = n.ID
	}
	fmt.Fprintf(&b, "// %s implements node %q.\n", sym, title)
	if n.Doc != "" {
		fmt.Fprintf(&b, "// %s\n", strings.ReplaceAll(strings.TrimSpace(n.Doc), "\n", "\n// "))
	}
	if n.SourceLocation != "" {
		fmt.Fprintf(&b, "// Original source: %s\n", n.SourceLocation)
	}
	if !resolved.IsReachable(n.ID) {
		fmt.Fprintf(&b, "// Unreachable from the entry point; kept for later wiring but excluded\n")
		fmt.Fprintf(&b, "// from dispatch.\n")
	}

	fmt.Fprintf(&b, "func %s(ctx context.Context, state %s) (%s, error) {\n", sym, syms.stateName, syms.stateName)
	fmt.Fprintf(&b, "\t// TODO: port the %q node logic.\n", n.ID)
	fmt.Fprintf(&b, "\treturn state, runtime.NotImplemented(%q)\n", n.ID)
	fmt.Fprintf(&b, "}\n")
	return b.String()
}

func (e *Emitter) emitRouters(g *ir.GraphInfo, syms *symbols) string {
	var b strings.Builder

	emitted := make(map[string]bool, len(g.ConditionalEdges))
	for _, ce := range g.ConditionalEdges {
		sym := syms.routerFuncs[ce.RouterName]
		if emitted[sym] {
			continue
		}
		emitted[sym] = true

		labels := make([]string, 0, len(ce.Branches))
		for _, br := range ce.Branches {
			labels = append(labels, fmt.Sprintf("%q", br.Label))
		}

		fmt.Fprintf(&b, "// %s selects the branch taken after node %q.\n", sym, ce.From)
		fmt.Fprintf(&b, "// It must return one of: %s.\n", strings.Join(labels, ", "))
		fmt.Fprintf(&b, "func %s(state %s) string {\n", sym, syms.stateName)
		fmt.Fprintf(&b, "\t// TODO: port the %q routing logic. Until then every label is\n", ce.RouterName)
		fmt.Fprintf(&b, "\t// unmatched and dispatch fails loudly.\n")
		fmt.Fprintf(&b, "\treturn \"\"\n")
		fmt.Fprintf(&b, "}\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func (e *Emitter) emitDispatch(g *ir.GraphInfo, resolved *topology.Resolved, syms *symbols) string {
	var b strings.Builder

	loops := make(map[topology.LoopEdge]bool, len(resolved.LoopEdges))
	for _, l := range resolved.LoopEdges {
		loops[l] = true
	}

	e.emitRouteTable(&b, resolved, syms)

	fmt.Fprintf(&b, "// Run drives the workflow from entry node %q until a terminal\n", g.EntryPoint)
	fmt.Fprintf(&b, "// transition. Loops repeat as long as their routers keep selecting them;\n")
	fmt.Fprintf(&b, "// no iteration cap is imposed here.\n")
	fmt.Fprintf(&b, "func Run(ctx context.Context, state %s) (%s, error) {\n", syms.stateName, syms.stateName)
	fmt.Fprintf(&b, "\tcurrent := %q\n", g.EntryPoint)
	fmt.Fprintf(&b, "\tfor {\n")
	fmt.Fprintf(&b, "\t\tswitch current {\n")

	for _, id := range resolved.Order {
		entry := resolved.Entries[id]
		sym := syms.nodeFuncs[id]

		fmt.Fprintf(&b, "\t\tcase %q:\n", id)
		fmt.Fprintf(&b, "\t\t\tnext, err := %s(ctx, state)\n", sym)
		fmt.Fprintf(&b, "\t\t\tif err != nil {\n")
		fmt.Fprintf(&b, "\t\t\t\treturn state, runtime.NewNodeError(%q, err)\n", id)
		fmt.Fprintf(&b, "\t\t\t}\n")
		fmt.Fprintf(&b, "\t\t\tstate = next\n")

		switch {
		case entry.Conditional != nil:
			cond := entry.Conditional
			routerSym := syms.routerFuncs[cond.RouterName]
			fmt.Fprintf(&b, "\t\t\tswitch label := %s(state); label {\n", routerSym)
			for _, br := range cond.Branches {
				fmt.Fprintf(&b, "\t\t\tcase %q:\n", br.Label)
				if ir.IsTerminal(br.Target) {
					fmt.Fprintf(&b, "\t\t\t\treturn state, nil\n")
					continue
				}
				if loops[topology.LoopEdge{From: id, To: br.Target}] {
					fmt.Fprintf(&b, "\t\t\t\tcurrent = %q // re-enters %q\n", br.Target, br.Target)
				} else {
					fmt.Fprintf(&b, "\t\t\t\tcurrent = %q\n", br.Target)
				}
			}
			fmt.Fprintf(&b, "\t\t\tdefault:\n")
			fmt.Fprintf(&b, "\t\t\t\treturn state, runtime.NewRouteError(%q, %q, label)\n", id, cond.RouterName)
			fmt.Fprintf(&b, "\t\t\t}\n")

		case ir.IsTerminal(entry.Next):
			fmt.Fprintf(&b, "\t\t\treturn state, nil\n")

		default:
			if loops[topology.LoopEdge{From: id, To: entry.Next}] {
				fmt.Fprintf(&b, "\t\t\tcurrent = %q // re-enters %q\n", entry.Next, entry.Next)
			} else {
				fmt.Fprintf(&b, "\t\t\tcurrent = %q\n", entry.Next)
			}
		}
	}

	fmt.Fprintf(&b, "\t\tdefault:\n")
	fmt.Fprintf(&b, "\t\t\treturn state, runtime.NewUnknownNodeError(current)\n")
	fmt.Fprintf(&b, "\t\t}\n")
	fmt.Fprintf(&b, "\t}\n")
	fmt.Fprintf(&b, "}\n")
	return b.String()
}

// emitRouteTable renders the declared branch labels per conditional node so
// the generated tests can assert branch coverage without re-deriving the
// topology.
func (e *Emitter) emitRouteTable(b *strings.Builder, resolved *topology.Resolved, syms *symbols) {
	conditional := make([]string, 0, len(resolved.Order))
	for _, id := range resolved.Order {
		if resolved.Entries[id].Conditional != nil {
			conditional = append(conditional, id)
		}
	}
	if len(conditional) == 0 {
		return
	}

	fmt.Fprintf(b, "// routeTable records the declared branch targets per conditional node.\n")
	fmt.Fprintf(b, "// Dispatch does not consult it; the generated tests use it to verify\n")
	fmt.Fprintf(b, "// branch coverage.\n")
	fmt.Fprintf(b, "var routeTable = map[string]map[string]string{\n")
	for _, id := range conditional {
		cond := resolved.Entries[id].Conditional
		fmt.Fprintf(b, "\t%q: {\n", id)
		for _, br := range cond.Branches {
			fmt.Fprintf(b, "\t\t%q: %q,\n", br.Label, br.Target)
		}
		fmt.Fprintf(b, "\t},\n")
	}
	fmt.Fprintf(b, "}\n\n")
}

func (e *Emitter) emitTests(g *ir.GraphInfo, resolved *topology.Resolved, syms *symbols) string {
	var b strings.Builder

	fmt.Fprintf(&b, "// Code generated by petalgen from workflow graph %q.\n", g.Name)
	fmt.Fprintf(&b, "package %s\n\n", e.PackageName)
	fmt.Fprintf(&b, "import (\n")
	fmt.Fprintf(&b, "\t\"context\"\n")
	fmt.Fprintf(&b, "\t\"testing\"\n")
	fmt.Fprintf(&b, ")\n\n")

	// Schema-default construction.
	fmt.Fprintf(&b, "func TestNewStateDefaults(t *testing.T) {\n")
	fmt.Fprintf(&b, "\tstate := New%s()\n", syms.stateName)
	emittedCheck := false
	for _, f := range syms.fields {
		if f.Default == "" {
			continue
		}
		emittedCheck = true
		fmt.Fprintf(&b, "\tif state.%s == nil {\n", f.GoName)
		fmt.Fprintf(&b, "\t\tt.Error(\"field %s should default to an empty value, got nil\")\n", f.GoName)
		fmt.Fprintf(&b, "\t}\n")
	}
	if !emittedCheck {
		fmt.Fprintf(&b, "\t_ = state // no collection fields require defaults\n")
	}
	fmt.Fprintf(&b, "}\n\n")

	// Entry stub accepts and returns the state type even as a placeholder.
	entrySym := syms.nodeFuncs[g.EntryPoint]
	fmt.Fprintf(&b, "func TestEntryNodeSignature(t *testing.T) {\n")
	fmt.Fprintf(&b, "\tvar fn func(context.Context, %s) (%s, error) = %s\n", syms.stateName, syms.stateName, entrySym)
	fmt.Fprintf(&b, "\tstate, _ := fn(context.Background(), New%s())\n", syms.stateName)
	fmt.Fprintf(&b, "\t_ = state\n")
	fmt.Fprintf(&b, "}\n")

	// One branch-coverage test per conditional edge.
	for _, ce := range g.ConditionalEdges {
		if !resolved.IsReachable(ce.From) {
			continue
		}
		testName := "TestRouteBranches_" + syms.nodeFuncs[ce.From]
		labels := make([]string, 0, len(ce.Branches))
		for _, br := range ce.Branches {
			labels = append(labels, fmt.Sprintf("%q", br.Label))
		}

		fmt.Fprintf(&b, "\nfunc %s(t *testing.T) {\n", testName)
		fmt.Fprintf(&b, "\tbranches := routeTable[%q]\n", ce.From)
		fmt.Fprintf(&b, "\tfor _, label := range []string{%s} {\n", strings.Join(labels, ", "))
		fmt.Fprintf(&b, "\t\tif _, ok := branches[label]; !ok {\n")
		fmt.Fprintf(&b, "\t\t\tt.Errorf(\"label %%q missing from branch table of %s\", label)\n", ce.From)
		fmt.Fprintf(&b, "\t\t}\n")
		fmt.Fprintf(&b, "\t}\n")
		fmt.Fprintf(&b, "}\n")
	}

	return b.String()
}

// render executes a named template from the shared cache. Template
// execution over plain data cannot fail at runtime here; a failure is a
// programming error in this package.
func render(name string, data any) string {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		panic(fmt.Sprintf("emit: rendering %s: %v", name, err))
	}
	return b.String()
}
