// Package loader reads serialized workflow graph descriptions and produces
// validated ir.GraphInfo values. It accepts JSON and YAML, in either the
// canonical IR shape or the introspector dump shape (nodes keyed by "name",
// conditional edges as a map, field types as strings).
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/petal-labs/petalgen/ir"
	"github.com/petal-labs/petalgen/typemap"
)

// Shape identifies the serialization layout of a graph description.
type Shape string

const (
	// ShapeIR is the canonical layout: nodes keyed by "id", conditional
	// edges as an ordered list with branch lists.
	ShapeIR Shape = "ir"

	// ShapeIntrospector is the dump layout produced by the dynamic-language
	// introspection front-end: nodes keyed by "name", conditional edges as
	// a map from source node to router and branch map.
	ShapeIntrospector Shape = "introspector"
)

// DetectShape determines the layout from the parsed content. The file must
// carry a "nodes" list; nodes keyed by "name" (with no "id") mark the
// introspector layout, as does a map-typed "conditional_edges".
func DetectShape(data []byte, path string) (Shape, error) {
	var raw map[string]any
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return "", fmt.Errorf("parsing YAML: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &raw); err != nil {
			return "", fmt.Errorf("parsing JSON: %w", err)
		}
	}

	nodesRaw, ok := raw["nodes"]
	if !ok {
		return "", fmt.Errorf("unable to detect graph description: no \"nodes\" key")
	}
	nodes, ok := nodesRaw.([]any)
	if !ok {
		return "", fmt.Errorf("unable to detect graph description: \"nodes\" is not a list")
	}

	if _, ok := raw["conditional_edges"].(map[string]any); ok {
		return ShapeIntrospector, nil
	}
	if len(nodes) > 0 {
		if node, ok := nodes[0].(map[string]any); ok {
			if _, hasID := node["id"]; hasID {
				return ShapeIR, nil
			}
			if _, hasName := node["name"]; hasName {
				return ShapeIntrospector, nil
			}
		}
	}
	return ShapeIR, nil
}

// Load reads, parses and validates a graph description file.
func Load(path string) (*ir.GraphInfo, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from caller
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return LoadBytes(data, path)
}

// LoadBytes parses and validates a graph description in memory. The path is
// used only for format detection and error messages.
func LoadBytes(data []byte, path string) (*ir.GraphInfo, error) {
	shape, err := DetectShape(data, path)
	if err != nil {
		return nil, err
	}

	jsonData, err := toJSON(data, path)
	if err != nil {
		return nil, err
	}

	var g *ir.GraphInfo
	switch shape {
	case ShapeIR:
		g, err = decodeIR(jsonData)
	case ShapeIntrospector:
		g, err = decodeIntrospector(jsonData)
	default:
		return nil, fmt.Errorf("unknown graph description shape %q", shape)
	}
	if err != nil {
		return nil, err
	}

	if g.Name == "" {
		g.Name = graphNameFromPath(path)
	}

	if diags := g.Validate(); ir.HasErrors(diags) {
		return nil, &DiagnosticError{Diagnostics: ir.Errors(diags)}
	}
	return g, nil
}

func decodeIR(jsonData []byte) (*ir.GraphInfo, error) {
	var g ir.GraphInfo
	if err := json.Unmarshal(jsonData, &g); err != nil {
		return nil, fmt.Errorf("parsing graph description: %w", err)
	}
	normalizeTargets(&g)
	return &g, nil
}

// introspectorDump mirrors the JSON emitted by the introspection front-end.
type introspectorDump struct {
	Name  string `json:"name"`
	Nodes []struct {
		Name       string `json:"name"`
		FuncName   string `json:"func_name"`
		Signature  string `json:"signature"`
		Docstring  string `json:"docstring"`
		SourceHint string `json:"source_hint"`
	} `json:"nodes"`
	Edges []struct {
		From      string `json:"from"`
		To        string `json:"to"`
		Condition string `json:"condition"`
	} `json:"edges"`
	StateSchema struct {
		Fields []struct {
			Name       string `json:"name"`
			TypeName   string `json:"type_name"`
			IsOptional bool   `json:"is_optional"`
		} `json:"fields"`
	} `json:"state_schema"`
	EntryPoint       string `json:"entry_point"`
	ConditionalEdges map[string]struct {
		ConditionFunc string            `json:"condition_func"`
		Branches      map[string]string `json:"branches"`
	} `json:"conditional_edges"`
}

// decodeIntrospector converts the dump layout to the canonical IR. The dump
// serializes conditional edges and branches as maps, so their order is
// recovered by sorting; everything else preserves declaration order.
func decodeIntrospector(jsonData []byte) (*ir.GraphInfo, error) {
	var dump introspectorDump
	if err := json.Unmarshal(jsonData, &dump); err != nil {
		return nil, fmt.Errorf("parsing introspector dump: %w", err)
	}

	g := &ir.GraphInfo{
		Name:       dump.Name,
		EntryPoint: dump.EntryPoint,
	}

	for _, n := range dump.Nodes {
		g.Nodes = append(g.Nodes, ir.NodeSpec{
			ID:             n.Name,
			DisplayName:    n.FuncName,
			Doc:            n.Docstring,
			SourceLocation: n.SourceHint,
		})
	}

	// Condition-annotated edges duplicate the conditional_edges map in
	// dump form; only unconditional edges carry transition semantics.
	for _, e := range dump.Edges {
		if e.Condition != "" {
			continue
		}
		g.Edges = append(g.Edges, ir.EdgeSpec{
			From: e.From,
			To:   ir.NormalizeTarget(e.To),
		})
	}

	sources := make([]string, 0, len(dump.ConditionalEdges))
	for from := range dump.ConditionalEdges {
		sources = append(sources, from)
	}
	sort.Strings(sources)
	for _, from := range sources {
		ce := dump.ConditionalEdges[from]

		labels := make([]string, 0, len(ce.Branches))
		for label := range ce.Branches {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		branches := make([]ir.Branch, 0, len(labels))
		for _, label := range labels {
			branches = append(branches, ir.Branch{
				Label:  label,
				Target: ir.NormalizeTarget(ce.Branches[label]),
			})
		}
		g.ConditionalEdges = append(g.ConditionalEdges, ir.ConditionalEdgeSpec{
			From:       from,
			RouterName: ce.ConditionFunc,
			Branches:   branches,
		})
	}

	for _, f := range dump.StateSchema.Fields {
		g.StateSchema.Fields = append(g.StateSchema.Fields, ir.FieldSpec{
			Name:     f.Name,
			Type:     typemap.ParseDynamic(f.TypeName),
			Optional: f.IsOptional,
		})
	}

	return g, nil
}

// normalizeTargets canonicalizes terminal aliases across edge targets.
func normalizeTargets(g *ir.GraphInfo) {
	for i := range g.Edges {
		g.Edges[i].To = ir.NormalizeTarget(g.Edges[i].To)
	}
	for i := range g.ConditionalEdges {
		for j := range g.ConditionalEdges[i].Branches {
			b := &g.ConditionalEdges[i].Branches[j]
			b.Target = ir.NormalizeTarget(b.Target)
		}
	}
}

// graphNameFromPath derives a graph name from the file name.
func graphNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// isYAML returns true if the file path has a YAML extension.
func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// toJSON converts data to JSON bytes, handling YAML conversion if the path
// indicates a YAML file. YAML parses to JSON-compatible maps under yaml.v3,
// so the canonical strategy is YAML -> map -> JSON bytes -> typed struct.
func toJSON(data []byte, path string) ([]byte, error) {
	if !isYAML(path) {
		return data, nil
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return json.Marshal(raw)
}

// DiagnosticError wraps validation diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []ir.Diagnostic
}

func (e *DiagnosticError) Error() string {
	if len(e.Diagnostics) == 1 {
		d := e.Diagnostics[0]
		return fmt.Sprintf("%s [%s]", d.Message, d.Code)
	}
	return fmt.Sprintf("%d validation errors", len(e.Diagnostics))
}
