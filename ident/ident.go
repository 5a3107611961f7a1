// Package ident maps arbitrary node and field names to valid, collision-free
// Go identifiers.
package ident

import (
	"fmt"
	"strings"
	"unicode"
)

// escapePrefix is prepended when a sanitized name starts with a digit or
// collides with a reserved keyword.
const escapePrefix = "x_"

// goKeywords is the reserved word set of the target grammar. Predeclared
// identifiers that emitted code shadows at its own peril (error, string,
// int64 and friends) are included so stubs never mask them.
var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true,
	"for": true, "func": true, "go": true, "goto": true, "if": true,
	"import": true, "interface": true, "map": true, "package": true,
	"range": true, "return": true, "select": true, "struct": true,
	"switch": true, "type": true, "var": true,

	"any": true, "bool": true, "byte": true, "error": true, "float64": true,
	"int": true, "int64": true, "nil": true, "rune": true, "string": true,
	"true": true, "false": true, "iota": true, "len": true, "cap": true,
	"make": true, "new": true, "append": true, "panic": true,
}

// Sanitize converts raw into a valid identifier that does not collide with
// any name already present in used, then records the result in used so
// subsequent calls within the same generation pass cannot collide.
//
// Invalid characters become underscores; a digit-leading or keyword result
// gets the escape prefix; collisions with used get a numeric suffix. The
// output is deterministic for identical (raw, used) pairs and case is
// preserved except for keyword escaping.
func Sanitize(raw string, used map[string]bool) string {
	name := replaceInvalid(raw)

	if name == "" {
		name = "_"
	}
	if leadingDigit(name) || goKeywords[name] {
		name = escapePrefix + name
	}

	if used[name] {
		base := name
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s_%d", base, n)
			if !used[candidate] {
				name = candidate
				break
			}
		}
	}

	used[name] = true
	return name
}

// Exported sanitizes raw and upper-cases the first letter so the result is
// an exported identifier, as struct fields in emitted state types must be.
func Exported(raw string, used map[string]bool) string {
	name := replaceInvalid(raw)
	if name == "" {
		name = "_"
	}

	runes := []rune(name)
	if unicode.IsLetter(runes[0]) {
		runes[0] = unicode.ToUpper(runes[0])
		name = string(runes)
	} else {
		// Leading digit or underscore cannot be exported by casing alone.
		name = "X" + strings.TrimLeft(name, "_")
		if name == "X" {
			name = "X_"
		}
	}

	if used[name] {
		base := name
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s%d", base, n)
			if !used[candidate] {
				name = candidate
				break
			}
		}
	}

	used[name] = true
	return name
}

// replaceInvalid maps every character outside the identifier intersection
// grammar (letters, digits, underscore) to an underscore.
func replaceInvalid(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func leadingDigit(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)[0]
	return unicode.IsDigit(r)
}
