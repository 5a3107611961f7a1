// Package runtime is the support library generated workflows import. It
// supplies the error types dispatch loops raise and a generic executor for
// driving a graph dynamically instead of through generated dispatch.
//
// Generated code relies on exactly two calling conventions: node functions
// take and return the state with an error, router functions take the state
// and return a branch label.
package runtime

import (
	"errors"
	"fmt"
)

// Terminal is the reserved target marking the end of execution.
const Terminal = "__end__"

// ErrNotImplemented marks a generated stub whose body has not been ported
// yet. Stubs fail loudly instead of silently succeeding.
var ErrNotImplemented = errors.New("not implemented")

// NotImplemented returns the stub placeholder error for a node.
func NotImplemented(node string) error {
	return fmt.Errorf("node %q: %w", node, ErrNotImplemented)
}

// NodeError reports that a node's own logic failed. It is distinct from
// RouteError so a consumer can tell which phase broke.
type NodeError struct {
	Node string
	Err  error
}

// NewNodeError wraps a node-logic failure.
func NewNodeError(node string, err error) error {
	return &NodeError{Node: node, Err: err}
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q failed: %v", e.Node, e.Err)
}

// Unwrap returns the underlying node failure.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// RouteError reports that a router returned a label absent from its branch
// table. This is fatal: an unmatched label can never be a silent no-op.
type RouteError struct {
	Node   string
	Router string
	Label  string
}

// NewRouteError wraps a routing failure.
func NewRouteError(node, router, label string) error {
	return &RouteError{Node: node, Router: router, Label: label}
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("routing after node %q failed: router %q returned label %q, which is not in the branch table", e.Node, e.Router, e.Label)
}

// UnknownNodeError reports a dispatch transition to an undeclared node.
// Generated dispatch tables cannot produce one; it guards hand-edited code.
type UnknownNodeError struct {
	Node string
}

// NewUnknownNodeError wraps a transition to an undeclared node.
func NewUnknownNodeError(node string) error {
	return &UnknownNodeError{Node: node}
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("dispatch reached unknown node %q", e.Node)
}
