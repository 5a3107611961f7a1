package ir

import (
	"encoding/json"
	"fmt"
)

// TypeKind tags the variants of a DynamicType descriptor.
type TypeKind string

const (
	KindString   TypeKind = "string"
	KindInt      TypeKind = "int"
	KindFloat    TypeKind = "float"
	KindBool     TypeKind = "bool"
	KindList     TypeKind = "list"
	KindDict     TypeKind = "dict"
	KindOptional TypeKind = "optional"
	// KindOpaque marks a value whose shape could not be statically
	// characterized. The type mapper degrades it to a dynamic-value
	// fallback rather than failing.
	KindOpaque TypeKind = "opaque"
)

// DynamicType is a tagged descriptor of a runtime-observed type. Exactly the
// children relevant to the kind are set: Elem for list and optional, Key and
// Value for dict.
type DynamicType struct {
	Kind  TypeKind     `json:"kind"`
	Elem  *DynamicType `json:"elem,omitempty"`
	Key   *DynamicType `json:"key,omitempty"`
	Value *DynamicType `json:"value,omitempty"`
}

// Convenience constructors keep descriptor-building code readable.

func String() DynamicType { return DynamicType{Kind: KindString} }
func Int() DynamicType    { return DynamicType{Kind: KindInt} }
func Float() DynamicType  { return DynamicType{Kind: KindFloat} }
func Bool() DynamicType   { return DynamicType{Kind: KindBool} }
func Opaque() DynamicType { return DynamicType{Kind: KindOpaque} }

func List(elem DynamicType) DynamicType {
	return DynamicType{Kind: KindList, Elem: &elem}
}

func Dict(key, value DynamicType) DynamicType {
	return DynamicType{Kind: KindDict, Key: &key, Value: &value}
}

func Optional(inner DynamicType) DynamicType {
	return DynamicType{Kind: KindOptional, Elem: &inner}
}

// String renders the descriptor in the source notation ("list[str]" etc.)
// for diagnostics and doc comments.
func (d DynamicType) String() string {
	switch d.Kind {
	case KindString:
		return "str"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return fmt.Sprintf("list[%s]", d.Elem)
	case KindDict:
		return fmt.Sprintf("dict[%s, %s]", d.Key, d.Value)
	case KindOptional:
		return fmt.Sprintf("Optional[%s]", d.Elem)
	case KindOpaque:
		return "Any"
	default:
		return string(d.Kind)
	}
}

// UnmarshalJSON accepts either the structured form ({"kind": "list", ...})
// or a bare introspector type string ("list[str]"), which callers parse via
// the typemap package. Bare strings are stored as opaque here and are
// re-parsed by the loader; keeping the IR decoding tolerant lets both
// producers satisfy the same schema.
func (d *DynamicType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = DynamicType{Kind: KindOpaque}
		if parser := registeredTypeParser; parser != nil {
			*d = parser(s)
		}
		return nil
	}

	type plain DynamicType
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decoding dynamic type: %w", err)
	}
	*d = DynamicType(p)
	return nil
}

// TypeParser converts an introspector type string into a descriptor.
// Registered by the typemap package at init time to avoid an import cycle.
type TypeParser func(raw string) DynamicType

var registeredTypeParser TypeParser

// SetTypeParser registers the string-form type parser.
func SetTypeParser(p TypeParser) {
	registeredTypeParser = p
}
