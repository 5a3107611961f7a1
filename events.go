package petalgen

import (
	"time"

	"github.com/petal-labs/petalgen/ir"
)

// EventKind identifies the type of event emitted by the conversion pipeline.
type EventKind string

const (
	// EventConversionStarted is emitted when a conversion begins.
	EventConversionStarted EventKind = "conversion.started"

	// EventStageFinished is emitted when a pipeline stage completes.
	EventStageFinished EventKind = "stage.finished"

	// EventDiagnostic is emitted for each non-fatal warning collected.
	EventDiagnostic EventKind = "diagnostic"

	// EventConversionFinished is emitted when a conversion completes,
	// successfully or not.
	EventConversionFinished EventKind = "conversion.finished"
)

// Stage names carried by EventStageFinished.
const (
	StageValidate = "validate"
	StageTypeMap  = "typemap"
	StageResolve  = "resolve"
	StageEmit     = "emit"
)

// Event is a structured record of pipeline progress, consumed by observers
// such as the otel span adapter.
type Event struct {
	Kind       EventKind
	Graph      string // graph name (may be empty)
	Stage      string // stage name for stage.finished
	Time       time.Time
	Elapsed    time.Duration  // for stage.finished and conversion.finished
	Diagnostic *ir.Diagnostic // for diagnostic events
	Err        error          // for conversion.finished on failure
}

// EventHandler observes pipeline events. Handlers must be fast; the
// pipeline calls them synchronously.
type EventHandler func(Event)
