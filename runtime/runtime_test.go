package runtime

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type agentState struct {
	Messages []string
	Retries  int64
}

// buildAgent wires the classic agent loop: agent routes to tools until the
// retry budget is spent, then ends.
func buildAgent() *Executor[agentState] {
	e := NewExecutor[agentState]()
	e.AddNode("agent", func(ctx context.Context, s agentState) (agentState, error) {
		s.Messages = append(s.Messages, "thought")
		return s, nil
	})
	e.AddNode("tools", func(ctx context.Context, s agentState) (agentState, error) {
		s.Retries++
		return s, nil
	})
	e.AddConditional("agent", "should_continue", func(s agentState) string {
		if s.Retries < 2 {
			return "continue"
		}
		return "end"
	}, map[string]string{"continue": "tools", "end": Terminal})
	e.AddEdge("tools", "agent")
	e.SetEntry("agent")
	return e
}

func TestExecutor_Run(t *testing.T) {
	e := buildAgent()
	final, err := e.Run(context.Background(), agentState{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// agent runs 3 times (routing continue, continue, end), tools twice.
	if len(final.Messages) != 3 {
		t.Errorf("Messages = %v, want 3 entries", final.Messages)
	}
	if final.Retries != 2 {
		t.Errorf("Retries = %d, want 2", final.Retries)
	}
}

func TestExecutor_NodeError(t *testing.T) {
	boom := errors.New("boom")
	e := NewExecutor[int]()
	e.AddNode("a", func(ctx context.Context, s int) (int, error) {
		return s, boom
	})
	e.SetEntry("a")

	_, err := e.Run(context.Background(), 0)
	var nodeErr *NodeError
	if !errors.As(err, &nodeErr) {
		t.Fatalf("err = %v, want NodeError", err)
	}
	if nodeErr.Node != "a" {
		t.Errorf("Node = %q, want a", nodeErr.Node)
	}
	if !errors.Is(err, boom) {
		t.Error("NodeError should unwrap to the node failure")
	}
}

func TestExecutor_RouteError(t *testing.T) {
	e := NewExecutor[int]()
	e.AddNode("a", func(ctx context.Context, s int) (int, error) {
		return s, nil
	})
	e.AddConditional("a", "pick", func(s int) string {
		return "nowhere"
	}, map[string]string{"next": Terminal})
	e.SetEntry("a")

	_, err := e.Run(context.Background(), 0)
	var routeErr *RouteError
	if !errors.As(err, &routeErr) {
		t.Fatalf("err = %v, want RouteError", err)
	}
	if routeErr.Router != "pick" || routeErr.Label != "nowhere" {
		t.Errorf("RouteError = %+v", routeErr)
	}
	if !strings.Contains(err.Error(), "nowhere") {
		t.Errorf("message should name the unmatched label: %v", err)
	}
}

func TestExecutor_UnknownNode(t *testing.T) {
	e := NewExecutor[int]()
	e.AddNode("a", func(ctx context.Context, s int) (int, error) {
		return s, nil
	})
	e.AddEdge("a", "ghost")
	e.SetEntry("a")

	_, err := e.Run(context.Background(), 0)
	var unknownErr *UnknownNodeError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("err = %v, want UnknownNodeError", err)
	}
	if unknownErr.Node != "ghost" {
		t.Errorf("Node = %q, want ghost", unknownErr.Node)
	}
}

func TestExecutor_NoOutgoingEdgeEndsRun(t *testing.T) {
	e := NewExecutor[int]()
	e.AddNode("only", func(ctx context.Context, s int) (int, error) {
		return s + 1, nil
	})
	e.SetEntry("only")

	final, err := e.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if final != 1 {
		t.Errorf("state = %d, want 1", final)
	}
}

func TestExecutor_MaxHops(t *testing.T) {
	e := NewExecutor[int](WithMaxHops[int](5))
	e.AddNode("spin", func(ctx context.Context, s int) (int, error) {
		return s + 1, nil
	})
	e.AddEdge("spin", "spin")
	e.SetEntry("spin")

	_, err := e.Run(context.Background(), 0)
	if err == nil || !strings.Contains(err.Error(), "exceeded 5 hops") {
		t.Errorf("err = %v, want hop-limit failure", err)
	}
}

func TestExecutor_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := NewExecutor[int]()
	e.AddNode("spin", func(ctx context.Context, s int) (int, error) {
		if s == 3 {
			cancel()
		}
		return s + 1, nil
	})
	e.AddEdge("spin", "spin")
	e.SetEntry("spin")

	_, err := e.Run(ctx, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNotImplemented(t *testing.T) {
	err := NotImplemented("fetch")
	if !errors.Is(err, ErrNotImplemented) {
		t.Error("NotImplemented should wrap ErrNotImplemented")
	}
	if !strings.Contains(err.Error(), "fetch") {
		t.Errorf("message should name the node: %v", err)
	}
}
