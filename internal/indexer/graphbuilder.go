package indexer

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/coderag/coderag/internal/chunk"
	"github.com/coderag/coderag/internal/graph"
)

// BuildGraph derives a dependency graph from a chunk set without a
// language parser: one node per chunk, "imports" edges resolved from
// each chunk's extracted import strings against the file each other
// chunk belongs to, and "references" edges from a textual scan for
// other chunks' declared names. This trades the teacher's tree-sitter
// call-graph precision (internal/graph/builder.go, internal/graph/extractor.go)
// for a heuristic that needs no per-language AST, at the cost of missing
// implements/extends edges entirely.
func BuildGraph(chunks []chunk.Chunk) (*graph.Graph, error) {
	g := graph.New()

	fileRepresentative := make(map[string]string)
	nameToChunkID := make(map[string]string)

	for _, c := range chunks {
		symbols := []string(nil)
		if c.Metadata.Name != "" {
			symbols = []string{c.Metadata.Name}
		}
		if err := g.AddNode(graph.Node{
			ID:       c.ID,
			FilePath: c.FilePath,
			Symbols:  symbols,
			Type:     string(c.Metadata.ChunkType),
		}); err != nil {
			return nil, err
		}

		if _, ok := fileRepresentative[c.FilePath]; !ok || isPreferredRepresentative(c) {
			fileRepresentative[c.FilePath] = c.ID
		}

		if c.Metadata.Name != "" && isDeclarationType(c.Metadata.ChunkType) {
			if _, taken := nameToChunkID[c.Metadata.Name]; !taken {
				nameToChunkID[c.Metadata.Name] = c.ID
			}
		}
	}

	for _, c := range chunks {
		for _, imp := range c.Metadata.Imports {
			target := resolveImport(imp, fileRepresentative, c.FilePath)
			if target == "" || target == c.ID {
				continue
			}
			if err := g.AddEdge(graph.Edge{Source: c.ID, Target: target, Type: graph.EdgeImports}); err != nil {
				return nil, err
			}
		}
	}

	for _, c := range chunks {
		if !isDeclarationType(c.Metadata.ChunkType) {
			continue
		}
		for _, name := range referencedNames(c.Content) {
			if name == c.Metadata.Name {
				continue
			}
			target, ok := nameToChunkID[name]
			if !ok || target == c.ID {
				continue
			}
			if err := g.AddEdge(graph.Edge{Source: c.ID, Target: target, Type: graph.EdgeReferences}); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

func isPreferredRepresentative(c chunk.Chunk) bool {
	return c.Metadata.ChunkType == chunk.TypeImportBlock || c.Metadata.ChunkType == chunk.TypeModule
}

func isDeclarationType(t chunk.Type) bool {
	switch t {
	case chunk.TypeFunction, chunk.TypeMethod, chunk.TypeClass, chunk.TypeInterface, chunk.TypeAlias:
		return true
	default:
		return false
	}
}

// resolveImport matches an import string against the known file set by
// basename, since the chunker only extracts the raw import text and not
// a resolved module path.
func resolveImport(importPath string, fileRepresentative map[string]string, fromFile string) string {
	importPath = strings.Trim(importPath, `"'`)
	base := filepath.Base(importPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		return ""
	}

	for file, chunkID := range fileRepresentative {
		if file == fromFile {
			continue
		}
		fileBase := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		if fileBase == base || strings.HasSuffix(filepath.ToSlash(file), filepath.ToSlash(importPath)) {
			return chunkID
		}
	}
	return ""
}

var identifierCallPattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

func referencedNames(content string) []string {
	matches := identifierCallPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
