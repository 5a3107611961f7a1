package emit

import "text/template"

// templates is the shared formatting cache. It is built once at package
// initialization and only read afterwards, so concurrent conversions may
// share it freely.
var templates = template.Must(template.New("emit").Parse(`
{{- define "header" -}}
// Code generated by petalgen from workflow graph {{printf "%q" .GraphName}}.
//
// Node and router bodies are stubs: fill them in, keeping the signatures.
// The Run dispatch function is derived from the graph topology and should
// be regenerated rather than edited.
package {{.PackageName}}

{{end}}

{{- define "imports" -}}
import (
	"context"

	"{{.RuntimeImport}}"
)

{{end}}

{{- define "state" -}}
// {{.StateName}} holds the workflow state. Field order and names follow the
// source schema.
type {{.StateName}} struct {
{{- range .Fields}}
	{{.GoName}} {{.GoType}} ` + "`json:\"{{.Name}}\"`" + ` // {{.Dynamic}}
{{- end}}
}

// New{{.StateName}} returns a {{.StateName}} with non-optional collections
// initialized to empty values instead of nil.
func New{{.StateName}}() {{.StateName}} {
	return {{.StateName}}{
{{- range .Fields}}{{if .Default}}
		{{.GoName}}: {{.Default}},{{end}}
{{- end}}
	}
}
{{end}}
`))
