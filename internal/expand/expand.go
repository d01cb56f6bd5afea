// Package expand implements bounded BFS context expansion over the
// dependency graph: given a set of primary search results, it surfaces
// nearby related chunks plus the graph excerpt connecting them.
package expand

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/coderag/coderag/internal/graph"
)

// Relationship is the single classification label attached to a related
// chunk, chosen by the first matching rule in the §4.8 chain.
type Relationship string

const (
	RelTestFor     Relationship = "test_for"
	RelInterfaceOf Relationship = "interface_of"
	RelImports     Relationship = "imports"
	RelImportedBy  Relationship = "imported_by"
	RelSibling     Relationship = "sibling"
	RelRelated     Relationship = "related"
)

// Resolved is what a caller-supplied Lookup returns for a discovered id.
type Resolved struct {
	ID       string
	FilePath string
	Payload  any
}

// Lookup resolves a graph id to its chunk, if any. A false second return
// means the id should be skipped without counting against the cap.
type Lookup func(ctx context.Context, id string) (Resolved, bool, error)

// Related is a single related chunk surfaced by expansion.
type Related struct {
	Chunk        Resolved
	Distance     int
	Relationship Relationship
}

// Expansion is the annotated neighborhood returned by Expand.
type Expansion struct {
	PrimaryIDs []string
	Related    []Related
	Graph      graph.Data
}

var testFilePattern = regexp.MustCompile(`\.test\.|\.spec\.|(^|/)tests/`)

const defaultMaxRelated = 10

// Expand runs bounded BFS over g starting at primaryIDs, visiting both
// outgoing and incoming neighbors at every step, until maxRelated
// distinct related chunks have been collected or the frontier is
// exhausted.
func Expand(ctx context.Context, g *graph.Graph, primaryIDs []string, maxRelated int, lookup Lookup) (*Expansion, error) {
	if maxRelated <= 0 {
		maxRelated = defaultMaxRelated
	}

	type queued struct {
		id       string
		distance int
	}

	visited := make(map[string]bool, len(primaryIDs))
	for _, id := range primaryIDs {
		visited[id] = true
	}

	queue := make([]queued, 0, len(primaryIDs))
	for _, id := range primaryIDs {
		queue = append(queue, queued{id: id, distance: 0})
	}

	var related []Related

	for len(queue) > 0 && len(related) < maxRelated {
		cur := queue[0]
		queue = queue[1:]

		curNode, _ := g.Node(cur.id)

		for _, nb := range g.Neighbors(cur.id) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			nid := nb.Node.ID
			if visited[nid] {
				continue
			}
			visited[nid] = true

			resolved, ok, err := lookup(ctx, nid)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}

			distance := cur.distance + 1
			queue = append(queue, queued{id: nid, distance: distance})

			if len(related) >= maxRelated {
				continue
			}

			related = append(related, Related{
				Chunk:        resolved,
				Distance:     distance,
				Relationship: classify(curNode, nb, resolved.FilePath),
			})
		}
	}

	sort.SliceStable(related, func(i, j int) bool {
		return related[i].Distance < related[j].Distance
	})

	nodeSet := make(map[string]bool, len(primaryIDs)+len(related))
	for _, id := range primaryIDs {
		nodeSet[id] = true
	}
	for _, r := range related {
		nodeSet[r.Chunk.ID] = true
	}

	excerpt := buildExcerpt(g, nodeSet)

	return &Expansion{PrimaryIDs: primaryIDs, Related: related, Graph: excerpt}, nil
}

// classify labels a newly discovered node relative to the node it was
// dequeued from (parent), not the original primary set — at distance 2+
// the edge that actually explains the discovery runs parent→related, and
// there may be no direct edge from any primary at all.
func classify(parent graph.Node, nb graph.Neighbor, relatedFilePath string) Relationship {
	if testFilePattern.MatchString(relatedFilePath) {
		return RelTestFor
	}
	if !nb.Incoming && (nb.Type == graph.EdgeImplements || nb.Type == graph.EdgeExtends) {
		return RelInterfaceOf
	}
	if !nb.Incoming {
		return RelImports
	}
	if nb.Incoming {
		return RelImportedBy
	}
	if firstDir(parent.FilePath) == firstDir(relatedFilePath) && firstDir(relatedFilePath) != "" {
		return RelSibling
	}
	return RelRelated
}

func firstDir(path string) string {
	idx := strings.Index(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

func buildExcerpt(g *graph.Graph, nodeSet map[string]bool) graph.Data {
	var data graph.Data
	for id := range nodeSet {
		if n, ok := g.Node(id); ok {
			data.Nodes = append(data.Nodes, n)
		}
	}
	sort.Slice(data.Nodes, func(i, j int) bool { return data.Nodes[i].ID < data.Nodes[j].ID })

	seen := map[graph.Edge]bool{}
	for id := range nodeSet {
		for _, nb := range g.Neighbors(id) {
			if !nodeSet[nb.Node.ID] {
				continue
			}
			var e graph.Edge
			if nb.Incoming {
				e = graph.Edge{Source: nb.Node.ID, Target: id, Type: nb.Type}
			} else {
				e = graph.Edge{Source: id, Target: nb.Node.ID, Type: nb.Type}
			}
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

	return data
}
