package ident

import "testing"

func TestSanitize_Basic(t *testing.T) {
	cases := []struct {
		raw, want string
	}{
		{"fetch_data", "fetch_data"},
		{"fetch-data", "fetch_data"},
		{"fetch data", "fetch_data"},
		{"node.name", "node_name"},
		{"CamelCase", "CamelCase"},
		{"with$pecial%chars", "with_pecial_chars"},
	}
	for _, tc := range cases {
		used := map[string]bool{}
		if got := Sanitize(tc.raw, used); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestSanitize_LeadingDigit(t *testing.T) {
	used := map[string]bool{}
	if got := Sanitize("2nd_pass", used); got != "x_2nd_pass" {
		t.Errorf("Sanitize(2nd_pass) = %q, want x_2nd_pass", got)
	}
}

func TestSanitize_Keywords(t *testing.T) {
	for _, kw := range []string{"func", "type", "return", "select", "map", "range"} {
		used := map[string]bool{}
		if got := Sanitize(kw, used); got != "x_"+kw {
			t.Errorf("Sanitize(%q) = %q, want %q", kw, got, "x_"+kw)
		}
	}
}

func TestSanitize_Predeclared(t *testing.T) {
	// Shadowing error or string in generated code breaks the stubs around it.
	for _, name := range []string{"error", "string", "any", "len", "nil"} {
		used := map[string]bool{}
		got := Sanitize(name, used)
		if got != "x_"+name {
			t.Errorf("Sanitize(%q) = %q, want %q", name, got, "x_"+name)
		}
	}
}

func TestSanitize_Collisions(t *testing.T) {
	used := map[string]bool{}
	a := Sanitize("fetch-data", used)
	b := Sanitize("fetch_data", used)
	c := Sanitize("fetch data", used)

	if a != "fetch_data" {
		t.Errorf("first = %q, want fetch_data", a)
	}
	if b != "fetch_data_2" {
		t.Errorf("second = %q, want fetch_data_2", b)
	}
	if c != "fetch_data_3" {
		t.Errorf("third = %q, want fetch_data_3", c)
	}
}

func TestSanitize_EmptyName(t *testing.T) {
	used := map[string]bool{}
	if got := Sanitize("", used); got != "_" {
		t.Errorf("Sanitize(\"\") = %q, want _", got)
	}
}

func TestSanitize_Deterministic(t *testing.T) {
	names := []string{"a-b", "a_b", "2x", "func", "ok"}
	run := func() []string {
		used := map[string]bool{}
		out := make([]string, 0, len(names))
		for _, n := range names {
			out = append(out, Sanitize(n, used))
		}
		return out
	}
	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("run mismatch at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestExported_Basic(t *testing.T) {
	cases := []struct {
		raw, want string
	}{
		{"messages", "Messages"},
		{"retry_count", "Retry_count"},
		{"alreadyCaps", "AlreadyCaps"},
		{"user-name", "User_name"},
	}
	for _, tc := range cases {
		used := map[string]bool{}
		if got := Exported(tc.raw, used); got != tc.want {
			t.Errorf("Exported(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestExported_NonLetterLead(t *testing.T) {
	used := map[string]bool{}
	if got := Exported("2fast", used); got != "X2fast" {
		t.Errorf("Exported(2fast) = %q, want X2fast", got)
	}
	used = map[string]bool{}
	if got := Exported("_hidden", used); got != "Xhidden" {
		t.Errorf("Exported(_hidden) = %q, want Xhidden", got)
	}
}

func TestExported_Collisions(t *testing.T) {
	used := map[string]bool{}
	a := Exported("count", used)
	b := Exported("Count", used)
	if a != "Count" {
		t.Errorf("first = %q, want Count", a)
	}
	if b != "Count2" {
		t.Errorf("second = %q, want Count2", b)
	}
}

func TestExported_ReservedSeed(t *testing.T) {
	// Generation seeds used with names the emitted file already declares.
	used := map[string]bool{"State": true}
	if got := Exported("state", used); got != "State2" {
		t.Errorf("Exported(state) with seeded State = %q, want State2", got)
	}
}
