package lexical

import (
	"regexp"
	"strings"
)

var (
	camelBoundary1 = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	camelBoundary2 = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	separatorChars = regexp.MustCompile(`[_\-/.]+`)
	nonWordChars   = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// Tokenize lowercases text and splits it on whitespace, punctuation,
// camelCase/PascalCase boundaries, snake_case, kebab-case, and path
// separators, discarding empty tokens. It is used both to drive the
// lexical index's custom bleve tokenizer and to tokenize query strings
// for fuzzy/prefix matching.
func Tokenize(text string) []string {
	s := camelBoundary1.ReplaceAllString(text, "$1 $2")
	s = camelBoundary2.ReplaceAllString(s, "$1 $2")
	s = separatorChars.ReplaceAllString(s, " ")
	s = nonWordChars.ReplaceAllString(s, " ")
	s = strings.ToLower(s)

	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
