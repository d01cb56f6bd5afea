package graph

import (
	"testing"
)

// Test Plan for Graph:
// - self-loops are rejected
// - edges require both endpoints to already exist as nodes
// - Neighbors returns both outgoing and incoming edges with direction
// - RemoveNodes removes a node and every edge touching it
// - serialize/deserialize round-trips up to ordering

func TestGraph_SelfLoopRejected(t *testing.T) {
	t.Parallel()
	g := New()
	if err := g.AddNode(Node{ID: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddEdge(Edge{Source: "a", Target: "a", Type: EdgeCalls}); err == nil {
		t.Fatal("expected self-loop to be rejected")
	}
}

func TestGraph_EdgeRequiresBothEndpoints(t *testing.T) {
	t.Parallel()
	g := New()
	if err := g.AddNode(Node{ID: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddEdge(Edge{Source: "a", Target: "b", Type: EdgeCalls}); err == nil {
		t.Fatal("expected missing target to be rejected")
	}
}

func TestGraph_Neighbors(t *testing.T) {
	t.Parallel()
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		if err := g.AddNode(Node{ID: id}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := g.AddEdge(Edge{Source: "a", Target: "b", Type: EdgeCalls}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.AddEdge(Edge{Source: "c", Target: "a", Type: EdgeImports}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	neighbors := g.Neighbors("a")
	if len(neighbors) != 2 {
		t.Fatalf("expected 2 neighbors, got %d", len(neighbors))
	}

	var sawOutgoing, sawIncoming bool
	for _, n := range neighbors {
		if n.Node.ID == "b" && !n.Incoming {
			sawOutgoing = true
		}
		if n.Node.ID == "c" && n.Incoming {
			sawIncoming = true
		}
	}
	if !sawOutgoing || !sawIncoming {
		t.Fatalf("expected one outgoing and one incoming neighbor, got %+v", neighbors)
	}
}

func TestGraph_RemoveNodes(t *testing.T) {
	t.Parallel()
	g := New()
	for _, id := range []string{"a", "b"} {
		if err := g.AddNode(Node{ID: id}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := g.AddEdge(Edge{Source: "a", Target: "b", Type: EdgeCalls}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g.RemoveNodes([]string{"a"})

	if g.HasNode("a") {
		t.Fatal("expected node a to be removed")
	}
	if len(g.Neighbors("b")) != 0 {
		t.Fatal("expected edge touching removed node to be gone")
	}
}

func TestGraph_SerializeDeserializeRoundTrip(t *testing.T) {
	t.Parallel()
	g := New()
	for _, id := range []string{"a", "b"} {
		if err := g.AddNode(Node{ID: id, FilePath: id + ".go", Type: "function"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := g.AddEdge(Edge{Source: "a", Target: "b", Type: EdgeCalls}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := g.Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	restored, err := Deserialize(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !restored.HasNode("a") || !restored.HasNode("b") {
		t.Fatal("expected both nodes to survive the round trip")
	}
	if len(restored.Neighbors("a")) != 1 {
		t.Fatal("expected the edge to survive the round trip")
	}

	data2, err := restored.Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != string(data2) {
		t.Fatal("expected re-serialization to be stable")
	}
}
