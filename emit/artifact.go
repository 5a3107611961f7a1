// Package emit renders a resolved workflow graph into Go source: a state
// type, per-node function stubs, an iterative dispatch loop and a test
// scaffold.
package emit

import (
	"strings"

	"github.com/petal-labs/petalgen/ir"
)

// Section names in a generated artifact. Node stubs use "node:<id>".
const (
	SectionStateType = "state_type"
	SectionRouters   = "routers"
	SectionDispatch  = "dispatch"
	SectionTests     = "tests"
)

// Section is one named block of generated source.
type Section struct {
	Name   string
	Source string
}

// Artifact is the structured output bundle of one conversion: named source
// sections plus the non-fatal diagnostics accumulated across the pipeline.
// The caller decides how sections are written to storage.
type Artifact struct {
	GraphName   string
	PackageName string
	Sections    []Section
	Diagnostics []ir.Diagnostic

	header  string
	imports string
}

// Section returns the named section's source, if present.
func (a *Artifact) Section(name string) (string, bool) {
	for _, s := range a.Sections {
		if s.Name == name {
			return s.Source, true
		}
	}
	return "", false
}

// File assembles the main generated source file: header, package clause,
// imports, and every section except the test scaffold, in emission order.
func (a *Artifact) File() string {
	var b strings.Builder
	b.WriteString(a.header)
	b.WriteString(a.imports)
	for _, s := range a.Sections {
		if s.Name == SectionTests {
			continue
		}
		b.WriteString(s.Source)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// TestFile assembles the generated test scaffold as its own file, or ""
// when the artifact carries no test section.
func (a *Artifact) TestFile() string {
	src, ok := a.Section(SectionTests)
	if !ok {
		return ""
	}
	return src
}
