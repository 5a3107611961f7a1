// Package petalgen converts dynamically-typed workflow graph descriptions
// into statically-typed Go source.
//
// The pipeline runs four stages over an immutable ir.GraphInfo: structural
// validation, type mapping, topology resolution and code emission. Fatal
// findings abort before emission with no partial artifact; warnings are
// collected and returned on the artifact. Conversions share no mutable
// state, so independent graphs may convert in parallel.
package petalgen

import (
	"context"
	"fmt"
	"time"

	"github.com/petal-labs/petalgen/emit"
	"github.com/petal-labs/petalgen/ir"
	"github.com/petal-labs/petalgen/topology"
	"github.com/petal-labs/petalgen/typemap"
)

// Options configure one conversion.
type Options struct {
	packageName   string
	runtimeImport string
	withTests     bool
	limits        topology.Limits
	handler       EventHandler
}

// Option mutates conversion options.
type Option func(*Options)

// WithPackageName sets the package clause of the generated file.
func WithPackageName(name string) Option {
	return func(o *Options) { o.packageName = name }
}

// WithRuntimeImport overrides the import path of the runtime support
// library referenced by generated code.
func WithRuntimeImport(path string) Option {
	return func(o *Options) { o.runtimeImport = path }
}

// WithTests controls emission of the test scaffold section.
func WithTests(enabled bool) Option {
	return func(o *Options) { o.withTests = enabled }
}

// WithMaxGraphSize bounds the node and edge counts accepted by resolution.
func WithMaxGraphSize(maxNodes, maxEdges int) Option {
	return func(o *Options) {
		o.limits = topology.Limits{MaxNodes: maxNodes, MaxEdges: maxEdges}
	}
}

// WithEventHandler registers an observer for pipeline events.
func WithEventHandler(h EventHandler) Option {
	return func(o *Options) { o.handler = h }
}

func defaultOptions() *Options {
	return &Options{
		packageName:   "workflow",
		runtimeImport: "github.com/petal-labs/petalgen/runtime",
		withTests:     true,
		limits:        topology.DefaultLimits,
	}
}

// ValidationError carries the error diagnostics that aborted a conversion.
type ValidationError struct {
	Diagnostics []ir.Diagnostic
}

func (e *ValidationError) Error() string {
	if len(e.Diagnostics) == 1 {
		d := e.Diagnostics[0]
		return fmt.Sprintf("invalid graph: %s [%s]", d.Message, d.Code)
	}
	return fmt.Sprintf("invalid graph: %d errors", len(e.Diagnostics))
}

// Convert runs the full pipeline over one graph and returns the artifact
// with all non-fatal diagnostics attached. The graph is read-only
// throughout; repeated calls with the same graph produce byte-identical
// artifacts.
func Convert(ctx context.Context, g *ir.GraphInfo, opts ...Option) (*emit.Artifact, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	p := &pipeline{opts: o, graph: g}
	started := time.Now()
	p.emit(Event{Kind: EventConversionStarted, Graph: g.Name, Time: started})

	art, err := p.run(ctx)
	p.emit(Event{
		Kind:    EventConversionFinished,
		Graph:   g.Name,
		Time:    time.Now(),
		Elapsed: time.Since(started),
		Err:     err,
	})
	return art, err
}

type pipeline struct {
	opts  *Options
	graph *ir.GraphInfo
}

func (p *pipeline) run(ctx context.Context) (*emit.Artifact, error) {
	g := p.graph
	var warnings []ir.Diagnostic

	// Stage 1: structural validation.
	stage := p.stage(StageValidate)
	diags := g.Validate()
	if errs := ir.Errors(diags); len(errs) > 0 {
		return nil, &ValidationError{Diagnostics: errs}
	}
	warnings = p.collect(warnings, ir.Warnings(diags))
	stage()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: type mapping. Total: degrades precision, never fails.
	stage = p.stage(StageTypeMap)
	var mapper typemap.Mapper
	types := make(map[string]typemap.StaticType, len(g.StateSchema.Fields))
	for i, f := range g.StateSchema.Fields {
		path := fmt.Sprintf("state_schema.fields[%d]", i)
		types[f.Name] = mapper.Map(f.Type, path)
	}
	warnings = p.collect(warnings, mapper.Diagnostics())
	stage()

	// Stage 3: topology resolution. The only stage with fatal outcomes
	// beyond validation.
	stage = p.stage(StageResolve)
	resolved, err := topology.ResolveWithLimits(g, p.opts.limits)
	if err != nil {
		return nil, err
	}
	warnings = p.collect(warnings, resolved.Diagnostics)
	stage()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 4: emission. Never fails on a well-resolved graph.
	stage = p.stage(StageEmit)
	emitter := &emit.Emitter{
		PackageName:   p.opts.packageName,
		RuntimeImport: p.opts.runtimeImport,
		WithTests:     p.opts.withTests,
	}
	art, err := emitter.Emit(g, resolved, types)
	if err != nil {
		return nil, err
	}
	stage()

	art.Diagnostics = warnings
	return art, nil
}

// stage emits a stage.finished event when the returned func runs.
func (p *pipeline) stage(name string) func() {
	started := time.Now()
	return func() {
		p.emit(Event{
			Kind:    EventStageFinished,
			Graph:   p.graph.Name,
			Stage:   name,
			Time:    time.Now(),
			Elapsed: time.Since(started),
		})
	}
}

// collect appends warnings and mirrors each one as a diagnostic event.
func (p *pipeline) collect(acc, diags []ir.Diagnostic) []ir.Diagnostic {
	for i := range diags {
		d := diags[i]
		p.emit(Event{
			Kind:       EventDiagnostic,
			Graph:      p.graph.Name,
			Time:       time.Now(),
			Diagnostic: &d,
		})
		acc = append(acc, d)
	}
	return acc
}

func (p *pipeline) emit(e Event) {
	if p.opts.handler != nil {
		p.opts.handler(e)
	}
}
