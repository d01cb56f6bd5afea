package chunker

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/coderag/coderag/internal/chunk"
	"github.com/coderag/coderag/internal/coderr"
)

// Code splits a parsed source file into chunks following declaration
// boundaries, falling back to a whole-file module chunk when no
// declarations were found, and hard-splitting any declaration that
// exceeds the token budget.
type Code struct {
	MaxTokens int
}

// NewCode returns a Code chunker with the given per-chunk token budget.
// A non-positive maxTokens falls back to DefaultMaxTokens.
func NewCode(maxTokens int) *Code {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Code{MaxTokens: maxTokens}
}

var (
	interfacePattern = regexp.MustCompile(`^\s*(export\s+)?(type\s+\w+\s+)?interface\b`)
	typeAliasPattern = regexp.MustCompile(`^\s*(export\s+)?type\s+\w+\s*=`)
	classPattern     = regexp.MustCompile(`^\s*(export\s+)?(abstract\s+)?class\b`)
	funcPattern      = regexp.MustCompile(`^\s*(export\s+)?(async\s+)?(function|func|def)\b`)
	arrowPattern     = regexp.MustCompile(`^\s*(export\s+)?(const|let|var)\s+\w+\s*=\s*(async\s*)?\(`)
	importPattern    = regexp.MustCompile(`^\s*(import|from|require|package|use)\b`)
)

// Chunk implements the §4.1 code-chunking algorithm.
func (c *Code) Chunk(ctx context.Context, f ParsedFile) ([]chunk.Chunk, error) {
	if strings.TrimSpace(f.Content) == "" {
		return nil, nil
	}
	if !utf8.ValidString(f.Content) {
		return nil, coderr.NewChunkError("invalid UTF-8 content in "+f.FilePath, nil)
	}

	lines := strings.Split(f.Content, "\n")

	if len(f.Declarations) == 0 {
		return []chunk.Chunk{
			newCodeChunk(f, chunk.TypeModule, "(module)", 1, len(lines), lines, nil, nil),
		}, nil
	}

	var out []chunk.Chunk

	first := f.Declarations[0]
	if first.StartLine < 1 || first.StartLine > len(lines)+1 {
		return nil, coderr.NewChunkError("declaration span out of bounds in "+f.FilePath, nil)
	}
	if first.StartLine > 1 {
		preambleLines := lines[0 : first.StartLine-1]
		if hasNonBlankContent(preambleLines) {
			ctype := chunk.TypeModule
			if isPredominantlyImports(preambleLines) {
				ctype = chunk.TypeImportBlock
			}
			out = append(out, newCodeChunk(f, ctype, "(preamble)", 1, first.StartLine-1, preambleLines, nil, nil))
		}
	}

	classRanges := collectClassRanges(f.Declarations, lines)

	for i, decl := range f.Declarations {
		if decl.StartLine < 1 || decl.EndLine > len(lines) || decl.StartLine > decl.EndLine {
			return nil, coderr.NewChunkError("declaration span out of bounds in "+f.FilePath, nil)
		}

		endLine := decl.EndLine
		// Trailing text up to the next declaration (or EOF) belongs to this chunk.
		if i+1 < len(f.Declarations) {
			endLine = f.Declarations[i+1].StartLine - 1
		} else {
			endLine = len(lines)
		}

		declLines := lines[decl.StartLine-1 : endLine]
		ctype := classifyDeclaration(declLines, decl, classRanges)

		tokens := estimateTokens(strings.Join(declLines, "\n"))
		if tokens <= c.MaxTokens {
			out = append(out, newCodeChunk(f, ctype, decl.Name, decl.StartLine, endLine, declLines, nil, nil))
			continue
		}

		out = append(out, splitOversizedDeclaration(f, ctype, decl.Name, decl.StartLine, endLine, declLines, c.MaxTokens)...)
	}

	return out, nil
}

func hasNonBlankContent(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}

func isPredominantlyImports(lines []string) bool {
	nonBlank, importish := 0, 0
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		nonBlank++
		if importPattern.MatchString(l) {
			importish++
		}
	}
	if nonBlank == 0 {
		return false
	}
	return float64(importish)/float64(nonBlank) > 0.5
}

type lineRange struct{ start, end int }

// collectClassRanges finds declarations that look like class definitions
// so later declarations nested inside their span can be classified as
// methods.
func collectClassRanges(decls []Declaration, lines []string) []lineRange {
	var ranges []lineRange
	for _, d := range decls {
		if d.StartLine < 1 || d.StartLine > len(lines) {
			continue
		}
		if classPattern.MatchString(lines[d.StartLine-1]) {
			ranges = append(ranges, lineRange{d.StartLine, d.EndLine})
		}
	}
	return ranges
}

func classifyDeclaration(declLines []string, decl Declaration, classRanges []lineRange) chunk.Type {
	firstLine := ""
	for _, l := range declLines {
		if strings.TrimSpace(l) != "" {
			firstLine = l
			break
		}
	}

	switch {
	case interfacePattern.MatchString(firstLine):
		return chunk.TypeInterface
	case typeAliasPattern.MatchString(firstLine):
		return chunk.TypeAlias
	case classPattern.MatchString(firstLine):
		return chunk.TypeClass
	case funcPattern.MatchString(firstLine) || arrowPattern.MatchString(firstLine):
		for _, r := range classRanges {
			if decl.StartLine > r.start && decl.StartLine <= r.end {
				return chunk.TypeMethod
			}
		}
		return chunk.TypeFunction
	}

	for _, r := range classRanges {
		if decl.StartLine > r.start && decl.StartLine <= r.end {
			return chunk.TypeMethod
		}
	}
	return chunk.TypeOther
}

// splitOversizedDeclaration walks backward from the token limit looking
// for a blank-line boundary; absent one, it hard-splits at the limit.
// Splits fall on line boundaries only: a single line that alone exceeds
// the budget is emitted whole as its own part.
func splitOversizedDeclaration(f ParsedFile, ctype chunk.Type, name string, startLine, endLine int, declLines []string, maxTokens int) []chunk.Chunk {
	var out []chunk.Chunk
	remaining := declLines
	remainingStart := startLine
	part := 1

	for {
		joined := strings.Join(remaining, "\n")
		if estimateTokens(joined) <= maxTokens || len(remaining) == 1 {
			out = append(out, newCodeChunk(f, ctype, suffixedName(name, part), remainingStart, remainingStart+len(remaining)-1, remaining, nil, nil))
			break
		}

		splitAt := findSplitPoint(remaining, maxTokens)
		head := remaining[:splitAt]
		out = append(out, newCodeChunk(f, ctype, suffixedName(name, part), remainingStart, remainingStart+len(head)-1, head, nil, nil))

		remaining = remaining[splitAt:]
		remainingStart += splitAt
		part++

		if len(remaining) == 0 {
			break
		}
	}

	return out
}

// findSplitPoint walks backward from the approximate token-budget line
// offset looking for a blank line; falls back to a hard split at the
// budget offset if none exists.
func findSplitPoint(lines []string, maxTokens int) int {
	budgetOffset := approximateLineOffsetForTokens(lines, maxTokens)
	if budgetOffset <= 0 {
		budgetOffset = 1
	}
	if budgetOffset >= len(lines) {
		budgetOffset = len(lines) - 1
	}

	for i := budgetOffset; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			return i + 1
		}
	}
	return budgetOffset
}

func approximateLineOffsetForTokens(lines []string, maxTokens int) int {
	total := 0
	for i, l := range lines {
		total += estimateTokens(l) + 1
		if total >= maxTokens {
			return i
		}
	}
	return len(lines)
}

func suffixedName(name string, part int) string {
	if part == 1 {
		return name
	}
	return name + "#" + strconv.Itoa(part)
}

func newCodeChunk(f ParsedFile, ctype chunk.Type, name string, startLine, endLine int, lines []string, imports, exports []string) chunk.Chunk {
	content := strings.Join(lines, "\n")
	decls := []string{name}
	if name == "(module)" || name == "(preamble)" {
		decls = nil
	}
	ch := chunk.Chunk{
		Content:   content,
		FilePath:  f.FilePath,
		StartLine: startLine,
		EndLine:   endLine,
		Language:  f.Language,
		Metadata: chunk.Metadata{
			ChunkType:    ctype,
			Name:         name,
			Declarations: decls,
			Imports:      extractImports(lines),
			Exports:      extractExports(lines),
		},
	}
	return ch.WithID()
}

var exportPattern = regexp.MustCompile(`^\s*export\s+(default\s+)?(function|class|const|let|var|interface|type)\s+(\w+)`)
var importTargetPattern = regexp.MustCompile(`^\s*(?:import\s+.*?from\s+|import\s+|require\(\s*|use\s+|from\s+)['"]?([\w./-]+)['"]?`)

func extractImports(lines []string) []string {
	var out []string
	for _, l := range lines {
		if !importPattern.MatchString(l) {
			continue
		}
		if m := importTargetPattern.FindStringSubmatch(l); len(m) > 1 {
			out = append(out, m[1])
		}
	}
	return out
}

func extractExports(lines []string) []string {
	var out []string
	for _, l := range lines {
		if m := exportPattern.FindStringSubmatch(l); len(m) > 0 {
			out = append(out, m[3])
		}
	}
	return out
}
