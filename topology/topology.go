// Package topology analyzes a graph's edge set and produces the dispatch
// plan the code emitter renders: reachable node ordering, per-node
// transitions, loop-back edges and unreachable-node warnings.
package topology

import (
	"errors"
	"fmt"

	"github.com/petal-labs/petalgen/ir"
)

// Resolution errors. Both are fatal: conversion aborts before emission.
var (
	ErrDanglingEdge     = errors.New("edge references undeclared node")
	ErrUnreachableEntry = errors.New("entry point has no outgoing path")
	ErrGraphTooLarge    = errors.New("graph exceeds size limit")
)

// Limits bound traversal cost on hostile or degenerate inputs.
type Limits struct {
	MaxNodes int
	MaxEdges int
}

// DefaultLimits is a defensive bound, not a correctness requirement.
var DefaultLimits = Limits{MaxNodes: 10_000, MaxEdges: 50_000}

// DispatchEntry is the resolved transition row for one node. Exactly one of
// Next and Conditional drives dispatch; Next may be ir.Terminal. A node with
// neither falls through to the terminal.
type DispatchEntry struct {
	NodeID      string
	Next        string // unconditional target, or "" when Conditional is set
	Conditional *ConditionalDispatch
}

// ConditionalDispatch routes by invoking RouterName against the state and
// matching its returned label in declaration order.
type ConditionalDispatch struct {
	RouterName string
	Branches   []ir.Branch
}

// LoopEdge is a transition whose target was already visited on the path
// from the entry; the emitter renders it as genuine repeated dispatch.
type LoopEdge struct {
	From string
	To   string
}

// Resolved is the dispatch plan derived from one GraphInfo. It is owned by
// the resolver and read-only downstream.
type Resolved struct {
	// Order lists reachable node ids in breadth-first discovery order,
	// starting with the entry point.
	Order []string

	// Entries maps each reachable node to its transition row.
	Entries map[string]DispatchEntry

	// Unreachable lists declared nodes the entry cannot reach, in
	// declaration order. They are emitted as stubs but excluded from
	// dispatch.
	Unreachable []string

	// LoopEdges flags transitions that re-enter earlier nodes.
	LoopEdges []LoopEdge

	// Diagnostics carries the non-fatal findings (unreachable nodes,
	// dead edges).
	Diagnostics []ir.Diagnostic
}

// IsReachable reports whether the node participates in dispatch.
func (r *Resolved) IsReachable(id string) bool {
	_, ok := r.Entries[id]
	return ok
}

// Resolve analyzes the graph's edges and produces its dispatch plan.
// It fails with ErrDanglingEdge if any edge references an undeclared node
// and ErrUnreachableEntry if the entry point is undeclared or has no
// outgoing edge. Cycles are legal; loop-back edges are flagged, not
// rejected.
func Resolve(g *ir.GraphInfo) (*Resolved, error) {
	return ResolveWithLimits(g, DefaultLimits)
}

// ResolveWithLimits is Resolve with explicit traversal bounds.
func ResolveWithLimits(g *ir.GraphInfo, limits Limits) (*Resolved, error) {
	if limits.MaxNodes > 0 && len(g.Nodes) > limits.MaxNodes {
		return nil, fmt.Errorf("%w: %d nodes (limit %d)", ErrGraphTooLarge, len(g.Nodes), limits.MaxNodes)
	}
	edgeCount := len(g.Edges)
	for _, ce := range g.ConditionalEdges {
		edgeCount += len(ce.Branches)
	}
	if limits.MaxEdges > 0 && edgeCount > limits.MaxEdges {
		return nil, fmt.Errorf("%w: %d edges (limit %d)", ErrGraphTooLarge, edgeCount, limits.MaxEdges)
	}

	declared := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		declared[n.ID] = true
	}

	valid := func(id string) bool {
		return ir.IsTerminal(id) || declared[id]
	}

	// Index conditional edges by source; reject dangling endpoints.
	conditionals := make(map[string]*ConditionalDispatch, len(g.ConditionalEdges))
	for _, ce := range g.ConditionalEdges {
		if !declared[ce.From] {
			return nil, fmt.Errorf("%w: conditional edge from %q", ErrDanglingEdge, ce.From)
		}
		branches := make([]ir.Branch, 0, len(ce.Branches))
		for _, b := range ce.Branches {
			if !valid(b.Target) {
				return nil, fmt.Errorf("%w: branch %q of %q routes to %q", ErrDanglingEdge, b.Label, ce.From, b.Target)
			}
			branches = append(branches, ir.Branch{Label: b.Label, Target: ir.NormalizeTarget(b.Target)})
		}
		conditionals[ce.From] = &ConditionalDispatch{
			RouterName: ce.RouterName,
			Branches:   branches,
		}
	}

	var diags []ir.Diagnostic

	// Pick the unconditional successor per node. First declared edge wins;
	// later ones, and any unconditional edge shadowed by a conditional
	// edge, are dead.
	next := make(map[string]string, len(g.Edges))
	for _, e := range g.Edges {
		if !declared[e.From] {
			return nil, fmt.Errorf("%w: edge %q -> %q", ErrDanglingEdge, e.From, e.To)
		}
		if !valid(e.To) {
			return nil, fmt.Errorf("%w: edge %q -> %q", ErrDanglingEdge, e.From, e.To)
		}

		if conditionals[e.From] != nil {
			diags = append(diags, deadEdge(e, fmt.Sprintf(
				"edge %s -> %s is shadowed by the conditional edge from %q", e.From, e.To, e.From)))
			continue
		}
		if prev, ok := next[e.From]; ok {
			diags = append(diags, deadEdge(e, fmt.Sprintf(
				"edge %s -> %s is dead; %q already transitions to %q", e.From, e.To, e.From, prev)))
			continue
		}
		next[e.From] = ir.NormalizeTarget(e.To)
	}

	if !declared[g.EntryPoint] {
		return nil, fmt.Errorf("%w: entry point %q is not declared", ErrUnreachableEntry, g.EntryPoint)
	}
	if _, ok := next[g.EntryPoint]; !ok && conditionals[g.EntryPoint] == nil {
		return nil, fmt.Errorf("%w: entry point %q has no outgoing edge", ErrUnreachableEntry, g.EntryPoint)
	}

	// Breadth-first traversal from the entry point.
	visited := map[string]bool{g.EntryPoint: true}
	order := []string{g.EntryPoint}

	queue := []string{g.EntryPoint}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, target := range successors(current, next, conditionals) {
			if ir.IsTerminal(target) || visited[target] {
				continue
			}
			visited[target] = true
			order = append(order, target)
			queue = append(queue, target)
		}
	}

	loops := findLoopEdges(g.EntryPoint, next, conditionals)

	entries := make(map[string]DispatchEntry, len(order))
	for _, id := range order {
		entry := DispatchEntry{NodeID: id}
		if cond := conditionals[id]; cond != nil {
			entry.Conditional = cond
		} else if to, ok := next[id]; ok {
			entry.Next = to
		} else {
			// No outgoing edge: execution ends after the node.
			entry.Next = ir.Terminal
		}
		entries[id] = entry
	}

	var unreachable []string
	for _, n := range g.Nodes {
		if visited[n.ID] {
			continue
		}
		unreachable = append(unreachable, n.ID)
		diags = append(diags, ir.Diagnostic{
			Code:     "TP-001",
			Severity: ir.SeverityWarning,
			Message:  fmt.Sprintf("node %q is unreachable from entry point %q; emitted as a stub, excluded from dispatch", n.ID, g.EntryPoint),
			NodeID:   n.ID,
		})
	}

	return &Resolved{
		Order:       order,
		Entries:     entries,
		Unreachable: unreachable,
		LoopEdges:   loops,
		Diagnostics: diags,
	}, nil
}

// findLoopEdges walks the live edge set depth-first with in-progress
// marking and collects the edges that re-enter a node on the current path.
// A loop is not an error; the emitter needs to know which transitions
// repeat so it renders genuine re-entry instead of unrolling.
func findLoopEdges(entry string, next map[string]string, conditionals map[string]*ConditionalDispatch) []LoopEdge {
	const (
		unvisited = iota
		inProgress
		done
	)

	state := make(map[string]int)
	var loops []LoopEdge

	var walk func(id string)
	walk = func(id string) {
		state[id] = inProgress
		for _, target := range successors(id, next, conditionals) {
			if ir.IsTerminal(target) {
				continue
			}
			switch state[target] {
			case inProgress:
				loops = append(loops, LoopEdge{From: id, To: target})
			case unvisited:
				walk(target)
			}
		}
		state[id] = done
	}

	walk(entry)
	return loops
}

// successors lists the targets of a node's live edges, conditional branches
// in declaration order before (or instead of) the unconditional successor.
func successors(id string, next map[string]string, conditionals map[string]*ConditionalDispatch) []string {
	if cond := conditionals[id]; cond != nil {
		targets := make([]string, 0, len(cond.Branches))
		for _, b := range cond.Branches {
			targets = append(targets, b.Target)
		}
		return targets
	}
	if to, ok := next[id]; ok {
		return []string{to}
	}
	return nil
}

func deadEdge(e ir.EdgeSpec, msg string) ir.Diagnostic {
	return ir.Diagnostic{
		Code:     "TP-002",
		Severity: ir.SeverityWarning,
		Message:  msg,
		NodeID:   e.From,
	}
}
