package indexer

import (
	"regexp"
	"strings"

	"github.com/coderag/coderag/internal/chunker"
)

// declPattern pairs a top-level declaration regex with the capture
// group holding its name. Checked in order; the first match on a line
// wins. These mirror the classification patterns in
// internal/chunker/code.go but additionally capture a name, since that
// package receives declaration boundaries already cut rather than
// discovering them.
type declPattern struct {
	re        *regexp.Regexp
	nameGroup int
}

var declPatterns = []declPattern{
	{regexp.MustCompile(`^func\s+(?:\([^)]*\)\s+)?(\w+)`), 1},                     // Go function/method
	{regexp.MustCompile(`^type\s+(\w+)\s+interface\b`), 1},                        // Go interface
	{regexp.MustCompile(`^type\s+(\w+)\s*=`), 1},                                  // Go/TS type alias
	{regexp.MustCompile(`^type\s+(\w+)\s+struct\b`), 1},                           // Go struct
	{regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(\w+)`), 1}, // JS/TS/Python class
	{regexp.MustCompile(`^(?:export\s+)?interface\s+(\w+)`), 1},                   // TS interface
	{regexp.MustCompile(`^(?:export\s+)?(?:async\s+)?function\s+(\w+)`), 1},       // JS/TS function
	{regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s*)?\(`), 1}, // arrow/anon function binding
	{regexp.MustCompile(`^(?:async\s+)?def\s+(\w+)`), 1},                          // Python function/method
}

// ParseDeclarations scans content for top-level (non-indented)
// declaration starts and returns them as chunker.Declaration spans,
// each initially one line tall; internal/chunker/code.go extends each
// span to the line before the next declaration (or EOF).
func ParseDeclarations(content string) []chunker.Declaration {
	lines := strings.Split(content, "\n")

	var decls []chunker.Declaration
	for i, line := range lines {
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		for _, p := range declPatterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			decls = append(decls, chunker.Declaration{
				Name:      m[p.nameGroup],
				StartLine: i + 1,
				EndLine:   i + 1,
			})
			break
		}
	}
	return decls
}
