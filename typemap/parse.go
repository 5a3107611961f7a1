package typemap

import (
	"strings"

	"github.com/petal-labs/petalgen/ir"
)

func init() {
	// Serialized IR may carry introspector type strings instead of
	// structured descriptors; register the parser so ir decoding can
	// resolve them.
	ir.SetTypeParser(ParseDynamic)
}

// ParseDynamic converts an introspector type string ("str", "list[str]",
// "dict[str, float]", "Optional[int]", "str | None") into a descriptor.
// Anything it cannot recognize becomes Opaque; parsing never fails.
func ParseDynamic(raw string) ir.DynamicType {
	s := strings.TrimSpace(raw)

	switch s {
	case "str":
		return ir.String()
	case "int":
		return ir.Int()
	case "float":
		return ir.Float()
	case "bool":
		return ir.Bool()
	case "", "Any", "any", "object", "None", "NoneType":
		return ir.Opaque()
	}

	switch {
	case hasGenericPrefix(s, "list"), hasGenericPrefix(s, "List"):
		return parseList(s)
	case hasGenericPrefix(s, "dict"), hasGenericPrefix(s, "Dict"):
		return parseDict(s)
	case hasGenericPrefix(s, "Optional"):
		return parseOptional(s)
	case s == "list" || s == "List":
		return ir.List(ir.Opaque())
	case s == "dict" || s == "Dict":
		return ir.Dict(ir.String(), ir.Opaque())
	case strings.Contains(s, "|"):
		return parseUnion(s)
	default:
		// Custom classes and anything else we cannot shape statically.
		return ir.Opaque()
	}
}

func hasGenericPrefix(s, name string) bool {
	return strings.HasPrefix(s, name+"[")
}

func parseList(s string) ir.DynamicType {
	inner, ok := genericParam(s)
	if !ok {
		return ir.List(ir.Opaque())
	}
	return ir.List(ParseDynamic(inner))
}

func parseDict(s string) ir.DynamicType {
	params, ok := genericParam(s)
	if !ok {
		return ir.Dict(ir.String(), ir.Opaque())
	}
	parts := splitTopLevel(params)
	if len(parts) != 2 {
		return ir.Dict(ir.String(), ir.Opaque())
	}
	return ir.Dict(ParseDynamic(parts[0]), ParseDynamic(parts[1]))
}

func parseOptional(s string) ir.DynamicType {
	inner, ok := genericParam(s)
	if !ok {
		return ir.Optional(ir.Opaque())
	}
	return ir.Optional(ParseDynamic(inner))
}

// parseUnion handles "T | None" as Optional[T]; other unions fall back to
// the dynamic value because the target type system has no sum types.
func parseUnion(s string) ir.DynamicType {
	parts := splitOn(s, '|')

	var nonNone []string
	sawNone := false
	for _, p := range parts {
		if p == "None" || p == "NoneType" {
			sawNone = true
			continue
		}
		nonNone = append(nonNone, p)
	}

	if sawNone && len(nonNone) == 1 {
		return ir.Optional(ParseDynamic(nonNone[0]))
	}
	return ir.Opaque()
}

// genericParam extracts the bracketed parameter from Type[Param] notation.
func genericParam(s string) (string, bool) {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end < 0 || start >= end {
		return "", false
	}
	return strings.TrimSpace(s[start+1 : end]), true
}

// splitTopLevel splits on commas that are not nested inside brackets, so
// "dict[str, list[int]]" parameters split correctly.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	last := 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[last:i]))
				last = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(s[last:]))
	return parts
}

func splitOn(s string, sep rune) []string {
	raw := strings.Split(s, string(sep))
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		parts = append(parts, strings.TrimSpace(p))
	}
	return parts
}
