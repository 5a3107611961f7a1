// Package typemap converts dynamically-observed type descriptors into Go
// static types.
//
// Mapping is pure and total: every well-formed ir.DynamicType yields exactly
// one StaticType. Unknown or contradictory descriptors degrade to the
// dynamic-value fallback (any) instead of aborting generation; each
// degradation is recorded as a warning diagnostic.
package typemap

import (
	"fmt"

	"github.com/petal-labs/petalgen/ir"
)

// StaticKind tags the variants of a StaticType.
type StaticKind string

const (
	StaticString  StaticKind = "string"
	StaticInt64   StaticKind = "int64"
	StaticFloat64 StaticKind = "float64"
	StaticBool    StaticKind = "bool"
	StaticSlice   StaticKind = "slice"
	StaticMap     StaticKind = "map"
	StaticPtr     StaticKind = "ptr"
	// StaticAny is the dynamic-value fallback: a self-describing JSON-like
	// container for shapes the schema could not characterize.
	StaticAny StaticKind = "any"
)

// StaticType is one Go type in the closed target type system.
type StaticType struct {
	Kind  StaticKind
	Elem  *StaticType // slice element, pointer target
	Key   *StaticType // map key
	Value *StaticType // map value
}

// GoString renders the type as Go source.
func (t StaticType) GoString() string {
	switch t.Kind {
	case StaticString:
		return "string"
	case StaticInt64:
		return "int64"
	case StaticFloat64:
		return "float64"
	case StaticBool:
		return "bool"
	case StaticSlice:
		return "[]" + t.Elem.GoString()
	case StaticMap:
		return fmt.Sprintf("map[%s]%s", t.Key.GoString(), t.Value.GoString())
	case StaticPtr:
		return "*" + t.Elem.GoString()
	case StaticAny:
		return "any"
	default:
		return "any"
	}
}

// ZeroLiteral renders an empty-value expression for the type, used to give
// non-optional collection and map fields a usable default instead of nil.
// Returns "" for types whose Go zero value needs no explicit initializer.
func (t StaticType) ZeroLiteral() string {
	switch t.Kind {
	case StaticSlice:
		return fmt.Sprintf("make(%s, 0)", t.GoString())
	case StaticMap:
		return fmt.Sprintf("make(%s)", t.GoString())
	default:
		return ""
	}
}

// Comparable reports whether the type may serve as a map key.
func (t StaticType) Comparable() bool {
	switch t.Kind {
	case StaticString, StaticInt64, StaticFloat64, StaticBool:
		return true
	default:
		return false
	}
}

// Helper constructors.

func anyType() StaticType { return StaticType{Kind: StaticAny} }
func sliceOf(e StaticType) StaticType {
	return StaticType{Kind: StaticSlice, Elem: &e}
}
func mapOf(k, v StaticType) StaticType {
	return StaticType{Kind: StaticMap, Key: &k, Value: &v}
}
func ptrTo(e StaticType) StaticType {
	return StaticType{Kind: StaticPtr, Elem: &e}
}

// Mapper maps descriptors to static types while collecting fallback
// diagnostics. A fresh Mapper belongs to each conversion pass; the zero
// value is ready to use.
type Mapper struct {
	diags []ir.Diagnostic
}

// Diagnostics returns the warnings collected so far, in mapping order.
func (m *Mapper) Diagnostics() []ir.Diagnostic {
	return m.diags
}

// Map converts a descriptor into a StaticType. It never fails: opaque and
// unrecognized shapes become the dynamic-value fallback with a warning.
// path locates the descriptor in diagnostics ("state_schema.fields[2]").
func (m *Mapper) Map(d ir.DynamicType, path string) StaticType {
	switch d.Kind {
	case ir.KindString:
		return StaticType{Kind: StaticString}
	case ir.KindInt:
		return StaticType{Kind: StaticInt64}
	case ir.KindFloat:
		return StaticType{Kind: StaticFloat64}
	case ir.KindBool:
		return StaticType{Kind: StaticBool}

	case ir.KindList:
		if d.Elem == nil {
			return sliceOf(m.fallback(path, "list with no element type"))
		}
		return sliceOf(m.Map(*d.Elem, path))

	case ir.KindDict:
		if d.Key == nil || d.Value == nil {
			return mapOf(StaticType{Kind: StaticString}, m.fallback(path, "dict with missing key or value type"))
		}
		key := m.Map(*d.Key, path)
		if !key.Comparable() {
			m.warn("TM-002", path, fmt.Sprintf("dict key type %s is not comparable; using string keys with dynamic values", d.Key))
			return mapOf(StaticType{Kind: StaticString}, anyType())
		}
		return mapOf(key, m.Map(*d.Value, path))

	case ir.KindOptional:
		if d.Elem == nil {
			return m.fallback(path, "Optional with no inner type")
		}
		inner := m.Map(*d.Elem, path)
		if inner.Kind == StaticPtr || inner.Kind == StaticAny {
			// Already nullable; a second level of indirection adds nothing.
			return inner
		}
		return ptrTo(inner)

	case ir.KindOpaque:
		return m.fallback(path, "type could not be statically characterized")

	default:
		return m.fallback(path, fmt.Sprintf("unrecognized descriptor kind %q", d.Kind))
	}
}

// fallback records an OpaqueFallback warning and returns the dynamic-value
// type.
func (m *Mapper) fallback(path, reason string) StaticType {
	m.warn("TM-001", path, reason+"; falling back to dynamic value")
	return anyType()
}

func (m *Mapper) warn(code, path, msg string) {
	m.diags = append(m.diags, ir.Diagnostic{
		Code:     code,
		Severity: ir.SeverityWarning,
		Message:  msg,
		Path:     path,
	})
}

// Nullable wraps t in a pointer unless it is already nullable, mirroring
// the Optional descriptor handling. Used for fields whose spec marks them
// optional independently of their descriptor.
func Nullable(t StaticType) StaticType {
	if t.Kind == StaticPtr || t.Kind == StaticAny {
		return t
	}
	return ptrTo(t)
}

// Map converts a single descriptor without diagnostic collection. Handy for
// callers that only need the type.
func Map(d ir.DynamicType) StaticType {
	var m Mapper
	return m.Map(d, "")
}
