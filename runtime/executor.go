package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// NodeFunc is the calling convention of every workflow node.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// RouterFunc inspects state and returns a label selecting the next node
// among a conditional edge's branches.
type RouterFunc[S any] func(state S) string

// conditional pairs a router with its branch table.
type conditional[S any] struct {
	name     string
	router   RouterFunc[S]
	branches map[string]string
}

// Executor drives a workflow graph dynamically, as an alternative to the
// generated dispatch function. It mirrors the generated loop's semantics:
// one iterative state machine, terminal-marker exits, loud routing errors.
type Executor[S any] struct {
	nodes        map[string]NodeFunc[S]
	next         map[string]string
	conditionals map[string]conditional[S]
	entry        string
	maxHops      int
	logger       *slog.Logger
}

// Option configures an Executor.
type Option[S any] func(*Executor[S])

// WithMaxHops bounds the number of node transitions in one run. Zero means
// unbounded, matching generated dispatch.
func WithMaxHops[S any](n int) Option[S] {
	return func(e *Executor[S]) {
		e.maxHops = n
	}
}

// WithLogger sets the logger for per-node debug output.
func WithLogger[S any](l *slog.Logger) Option[S] {
	return func(e *Executor[S]) {
		e.logger = l
	}
}

// NewExecutor creates an empty executor.
func NewExecutor[S any](opts ...Option[S]) *Executor[S] {
	e := &Executor[S]{
		nodes:        make(map[string]NodeFunc[S]),
		next:         make(map[string]string),
		conditionals: make(map[string]conditional[S]),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddNode registers a node function under the given id.
func (e *Executor[S]) AddNode(id string, fn NodeFunc[S]) {
	e.nodes[id] = fn
}

// AddEdge registers the unconditional successor of a node. A conditional
// registered for the same node takes precedence.
func (e *Executor[S]) AddEdge(from, to string) {
	e.next[from] = to
}

// AddConditional registers a router and branch table for a node.
func (e *Executor[S]) AddConditional(from, routerName string, router RouterFunc[S], branches map[string]string) {
	e.conditionals[from] = conditional[S]{
		name:     routerName,
		router:   router,
		branches: branches,
	}
}

// SetEntry sets the node execution starts from.
func (e *Executor[S]) SetEntry(id string) {
	e.entry = id
}

// Run executes the graph from the entry node until a terminal transition,
// a node failure, or a routing failure.
func (e *Executor[S]) Run(ctx context.Context, state S) (S, error) {
	runID := uuid.NewString()
	log := e.logger.With("run_id", runID)
	log.Debug("run started", "entry", e.entry)

	current := e.entry
	hops := 0
	for {
		if current == Terminal {
			log.Debug("run finished", "hops", hops)
			return state, nil
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}
		if e.maxHops > 0 && hops >= e.maxHops {
			return state, fmt.Errorf("run %s exceeded %d hops at node %q", runID, e.maxHops, current)
		}

		fn, ok := e.nodes[current]
		if !ok {
			return state, NewUnknownNodeError(current)
		}

		log.Debug("executing node", "node", current)
		next, err := fn(ctx, state)
		if err != nil {
			return state, NewNodeError(current, err)
		}
		state = next
		hops++

		if cond, ok := e.conditionals[current]; ok {
			label := cond.router(state)
			target, ok := cond.branches[label]
			if !ok {
				return state, NewRouteError(current, cond.name, label)
			}
			log.Debug("routed", "node", current, "label", label, "target", target)
			current = target
			continue
		}

		target, ok := e.next[current]
		if !ok {
			// No outgoing edge: execution ends after the node.
			log.Debug("run finished", "hops", hops)
			return state, nil
		}
		current = target
	}
}
