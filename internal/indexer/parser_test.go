package indexer

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for ParseDeclarations:
// - a Go function declaration is recognized with its name captured
// - a Go struct type declaration is recognized with its name captured
// - indented lines (method bodies) never start a new declaration
// - a real fixture file yields declarations for every top-level symbol it defines

func TestParseDeclarations_FunctionsAndStructs(t *testing.T) {
	t.Parallel()
	content := "package server\n\ntype Config struct {\n\tPort int\n}\n\nfunc NewHandler() *Handler {\n\treturn nil\n}\n"

	decls := ParseDeclarations(content)

	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	assert.Contains(t, names, "Config")
	assert.Contains(t, names, "NewHandler")
}

func TestParseDeclarations_IndentedLinesNeverStartADeclaration(t *testing.T) {
	t.Parallel()
	content := "func Outer() {\n\tfunc() {\n\t\t_ = 1\n\t}()\n}\n"

	decls := ParseDeclarations(content)

	require.Len(t, decls, 1)
	assert.Equal(t, "Outer", decls[0].Name)
}

func TestParseDeclarations_FixtureFile(t *testing.T) {
	t.Parallel()
	content, err := os.ReadFile("../../testdata/code/go/simple.go")
	require.NoError(t, err)

	decls := ParseDeclarations(string(content))

	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	assert.Contains(t, names, "Config")
	assert.Contains(t, names, "Handler")
	assert.Contains(t, names, "NewHandler")
	assert.Contains(t, names, "ServeHTTP")
}
