// Package graph implements the dependency graph over chunk ids: a
// directed multigraph with typed edges, neighborhood queries, and a
// canonical JSON serialization.
//
// Grounded on the teacher's internal/graph/types.go (Node/Edge/GraphData
// shapes) and internal/graph/searcher.go's reverse-index adjacency
// (s.callers/s.callees), adapted to the id/edge-type vocabulary and
// invariants of the dependency-graph component. Unlike the teacher, this
// package does not also carry a dominikbraun/graph instance: that library
// models a simple graph (one edge per ordered vertex pair), which cannot
// represent two distinct typed edges between the same source and target
// without flattening information the multigraph needs to keep, so the
// adjacency here is the one real structure rather than a second one kept
// in sync with it for no reader.
package graph

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/coderag/coderag/internal/coderr"
)

// EdgeType is the relationship an edge carries.
type EdgeType string

const (
	EdgeImports    EdgeType = "imports"
	EdgeCalls      EdgeType = "calls"
	EdgeImplements EdgeType = "implements"
	EdgeExtends    EdgeType = "extends"
	EdgeReferences EdgeType = "references"
)

// Node is a dependency graph vertex: a chunk id, or a file-level id in
// coarse graphs.
type Node struct {
	ID       string   `json:"id"`
	FilePath string   `json:"file_path"`
	Symbols  []string `json:"symbols"`
	Type     string   `json:"type"`
}

// Edge is a typed, directed relationship between two node ids.
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   EdgeType `json:"type"`
}

// Data is the canonical JSON serialization shape.
type Data struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Neighbor is a single neighborhood-query hit: the other node plus the
// edge type and direction that connects it to the queried node.
type Neighbor struct {
	Node     Node
	Type     EdgeType
	Incoming bool
}

// Graph is the in-memory dependency graph.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]Node
	out   map[string][]Edge
	in    map[string][]Edge
}

// New returns an empty directed dependency graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]Node),
		out:   make(map[string][]Edge),
		in:    make(map[string][]Edge),
	}
}

// AddNode inserts or replaces a node.
func (gr *Graph) AddNode(n Node) error {
	gr.mu.Lock()
	defer gr.mu.Unlock()
	return gr.addNodeLocked(n)
}

func (gr *Graph) addNodeLocked(n Node) error {
	gr.nodes[n.ID] = n
	return nil
}

// AddEdge inserts a typed edge. Self-loops are rejected. Both endpoints
// must already be present as nodes.
func (gr *Graph) AddEdge(e Edge) error {
	gr.mu.Lock()
	defer gr.mu.Unlock()
	return gr.addEdgeLocked(e)
}

func (gr *Graph) addEdgeLocked(e Edge) error {
	if e.Source == e.Target {
		return coderr.NewStoreError(coderr.ComponentGraph, "self-loop edge rejected for node "+e.Source, nil)
	}
	if _, ok := gr.nodes[e.Source]; !ok {
		return coderr.NewStoreError(coderr.ComponentGraph, "edge source not present in node set: "+e.Source, nil)
	}
	if _, ok := gr.nodes[e.Target]; !ok {
		return coderr.NewStoreError(coderr.ComponentGraph, "edge target not present in node set: "+e.Target, nil)
	}

	for _, existing := range gr.out[e.Source] {
		if existing.Target == e.Target && existing.Type == e.Type {
			return nil
		}
	}

	gr.out[e.Source] = append(gr.out[e.Source], e)
	gr.in[e.Target] = append(gr.in[e.Target], e)
	return nil
}

// HasNode reports whether id is present in the node set.
func (gr *Graph) HasNode(id string) bool {
	gr.mu.RLock()
	defer gr.mu.RUnlock()
	_, ok := gr.nodes[id]
	return ok
}

// Node returns the node for id, if present.
func (gr *Graph) Node(id string) (Node, bool) {
	gr.mu.RLock()
	defer gr.mu.RUnlock()
	n, ok := gr.nodes[id]
	return n, ok
}

// Neighbors returns both outgoing and incoming edges touching id.
func (gr *Graph) Neighbors(id string) []Neighbor {
	gr.mu.RLock()
	defer gr.mu.RUnlock()

	var out []Neighbor
	for _, e := range gr.out[id] {
		if n, ok := gr.nodes[e.Target]; ok {
			out = append(out, Neighbor{Node: n, Type: e.Type, Incoming: false})
		}
	}
	for _, e := range gr.in[id] {
		if n, ok := gr.nodes[e.Source]; ok {
			out = append(out, Neighbor{Node: n, Type: e.Type, Incoming: true})
		}
	}
	return out
}

// RemoveNodes removes the given nodes along with every edge touching them.
func (gr *Graph) RemoveNodes(ids []string) {
	gr.mu.Lock()
	defer gr.mu.Unlock()

	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}

	for id := range remove {
		for _, e := range gr.out[id] {
			gr.in[e.Target] = filterEdges(gr.in[e.Target], e)
		}
		for _, e := range gr.in[id] {
			gr.out[e.Source] = filterEdges(gr.out[e.Source], e)
		}
		delete(gr.out, id)
		delete(gr.in, id)
		delete(gr.nodes, id)
	}
}

func filterEdges(edges []Edge, remove Edge) []Edge {
	out := edges[:0]
	for _, e := range edges {
		if e != remove {
			out = append(out, e)
		}
	}
	return out
}

// Serialize produces the canonical JSON shape {nodes, edges}, nodes and
// edges both sorted for deterministic output.
func (gr *Graph) Serialize() ([]byte, error) {
	gr.mu.RLock()
	defer gr.mu.RUnlock()

	data := Data{}
	for _, n := range gr.nodes {
		data.Nodes = append(data.Nodes, n)
	}
	sort.Slice(data.Nodes, func(i, j int) bool { return data.Nodes[i].ID < data.Nodes[j].ID })

	seen := map[Edge]bool{}
	for _, edges := range gr.out {
		for _, e := range edges {
			if !seen[e] {
				seen[e] = true
				data.Edges = append(data.Edges, e)
			}
		}
	}
	sort.Slice(data.Edges, func(i, j int) bool {
		if data.Edges[i].Source != data.Edges[j].Source {
			return data.Edges[i].Source < data.Edges[j].Source
		}
		if data.Edges[i].Target != data.Edges[j].Target {
			return data.Edges[i].Target < data.Edges[j].Target
		}
		return data.Edges[i].Type < data.Edges[j].Type
	})

	out, err := json.Marshal(data)
	if err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentGraph, "serializing graph", err)
	}
	return out, nil
}

// Deserialize rebuilds a graph from the canonical JSON shape.
func Deserialize(data []byte) (*Graph, error) {
	var d Data
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, coderr.NewStoreError(coderr.ComponentGraph, "deserializing graph", err)
	}

	gr := New()
	for _, n := range d.Nodes {
		if err := gr.addNodeLocked(n); err != nil {
			return nil, err
		}
	}
	for _, e := range d.Edges {
		if err := gr.addEdgeLocked(e); err != nil {
			return nil, err
		}
	}
	return gr, nil
}
