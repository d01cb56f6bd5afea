package expand

import (
	"context"
	"testing"

	"github.com/coderag/coderag/internal/graph"
)

// Test Plan for Expand:
// - direct neighbors are classified imports/imported_by by edge direction
// - a node in the primary's directory reached through an outgoing edge is
//   classified imports, since the edge-direction rules precede the sibling rule
// - an unreachable-by-lookup id is skipped without counting against the cap
// - distinct related ids are deduplicated and sorted by distance
// - the graph excerpt contains only edges whose endpoints are in the node set
// - a distance-2 node with no direct edge to any primary is still classified
//   relative to the node that discovered it

func buildTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, id := range []string{"primary", "dep", "dependent", "sibling", "ghost"} {
		fp := id + "/file.go"
		if id == "sibling" {
			fp = "primary/other.go"
		}
		if err := g.AddNode(graph.Node{ID: id, FilePath: fp}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	must(g.AddEdge(graph.Edge{Source: "primary", Target: "dep", Type: graph.EdgeImports}))
	must(g.AddEdge(graph.Edge{Source: "dependent", Target: "primary", Type: graph.EdgeImports}))
	must(g.AddEdge(graph.Edge{Source: "primary", Target: "sibling", Type: graph.EdgeReferences}))
	return g
}

func TestExpand_ClassifiesDirectNeighbors(t *testing.T) {
	t.Parallel()
	g := buildTestGraph(t)

	lookup := func(ctx context.Context, id string) (Resolved, bool, error) {
		n, _ := g.Node(id)
		return Resolved{ID: id, FilePath: n.FilePath}, true, nil
	}

	exp, err := Expand(context.Background(), g, []string{"primary"}, 10, lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := map[string]Related{}
	for _, r := range exp.Related {
		byID[r.Chunk.ID] = r
	}

	if byID["dep"].Relationship != RelImports {
		t.Fatalf("expected dep to be classified imports, got %s", byID["dep"].Relationship)
	}
	if byID["dependent"].Relationship != RelImportedBy {
		t.Fatalf("expected dependent to be classified imported_by, got %s", byID["dependent"].Relationship)
	}
	if byID["sibling"].Relationship != RelImports {
		t.Fatalf("expected sibling (reachable via outgoing edge) to classify imports first, got %s", byID["sibling"].Relationship)
	}
}

func TestExpand_Distance2ClassifiesRelativeToDiscoveringParent(t *testing.T) {
	t.Parallel()

	// A imports B, B imports C, D imports A. Primary = {A}. C has no direct
	// edge to A at all; it must still classify as "imports" off of its
	// actual parent B, not fall through to sibling/related against A.
	g := graph.New()
	for _, id := range []string{"a", "b", "c", "d"} {
		if err := g.AddNode(graph.Node{ID: id, FilePath: id + "/file.go"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	must(g.AddEdge(graph.Edge{Source: "a", Target: "b", Type: graph.EdgeImports}))
	must(g.AddEdge(graph.Edge{Source: "b", Target: "c", Type: graph.EdgeImports}))
	must(g.AddEdge(graph.Edge{Source: "d", Target: "a", Type: graph.EdgeImports}))

	lookup := func(ctx context.Context, id string) (Resolved, bool, error) {
		n, _ := g.Node(id)
		return Resolved{ID: id, FilePath: n.FilePath}, true, nil
	}

	exp, err := Expand(context.Background(), g, []string{"a"}, 10, lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := map[string]Related{}
	for _, r := range exp.Related {
		byID[r.Chunk.ID] = r
	}

	b, ok := byID["b"]
	if !ok || b.Distance != 1 || b.Relationship != RelImports {
		t.Fatalf("expected b at distance 1 classified imports, got %+v (ok=%v)", b, ok)
	}
	d, ok := byID["d"]
	if !ok || d.Distance != 1 || d.Relationship != RelImportedBy {
		t.Fatalf("expected d at distance 1 classified imported_by, got %+v (ok=%v)", d, ok)
	}
	c, ok := byID["c"]
	if !ok || c.Distance != 2 || c.Relationship != RelImports {
		t.Fatalf("expected c at distance 2 classified imports via its parent b, got %+v (ok=%v)", c, ok)
	}
}

func TestExpand_SkipsUnresolvedWithoutCountingAgainstCap(t *testing.T) {
	t.Parallel()
	g := buildTestGraph(t)

	lookup := func(ctx context.Context, id string) (Resolved, bool, error) {
		if id == "dep" {
			return Resolved{}, false, nil
		}
		n, _ := g.Node(id)
		return Resolved{ID: id, FilePath: n.FilePath}, true, nil
	}

	exp, err := Expand(context.Background(), g, []string{"primary"}, 2, lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, r := range exp.Related {
		if r.Chunk.ID == "dep" {
			t.Fatal("expected unresolved id to be skipped entirely")
		}
	}
	if len(exp.Related) != 2 {
		t.Fatalf("expected 2 related chunks (the unresolved id not counted against the cap), got %d", len(exp.Related))
	}
}

func TestExpand_GraphExcerptOnlyIncludesInternalEdges(t *testing.T) {
	t.Parallel()
	g := buildTestGraph(t)

	lookup := func(ctx context.Context, id string) (Resolved, bool, error) {
		n, _ := g.Node(id)
		return Resolved{ID: id, FilePath: n.FilePath}, true, nil
	}

	exp, err := Expand(context.Background(), g, []string{"primary"}, 1, lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, e := range exp.Graph.Edges {
		foundSrc, foundDst := false, false
		for _, n := range exp.Graph.Nodes {
			if n.ID == e.Source {
				foundSrc = true
			}
			if n.ID == e.Target {
				foundDst = true
			}
		}
		if !foundSrc || !foundDst {
			t.Fatalf("edge %+v references a node outside the excerpt", e)
		}
	}
}
