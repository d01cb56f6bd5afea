package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/coderag/coderag/internal/chunk"
)

// Test Plan for Code:
// - empty content produces no chunks
// - no declarations produces a single module chunk
// - preamble before the first declaration becomes its own chunk
// - declarations are classified by textual cues (function/class/interface)
// - a declaration nested in a class range is classified as a method
// - an oversized declaration is split at a blank-line boundary
// - invalid UTF-8 content is reported as a chunk error

func TestCode_EmptyContent(t *testing.T) {
	t.Parallel()
	c := NewCode(512)
	chunks, err := c.Chunk(context.Background(), ParsedFile{FilePath: "a.go", Content: "   \n\n"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestCode_NoDeclarations(t *testing.T) {
	t.Parallel()
	c := NewCode(512)
	content := "package main\n\nvar x = 1\n"
	chunks, err := c.Chunk(context.Background(), ParsedFile{FilePath: "a.go", Content: content})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 module chunk, got %d", len(chunks))
	}
	if chunks[0].Metadata.ChunkType != chunk.TypeModule {
		t.Fatalf("expected module chunk, got %s", chunks[0].Metadata.ChunkType)
	}
}

func TestCode_PreambleAndDeclarations(t *testing.T) {
	t.Parallel()
	c := NewCode(512)
	content := strings.Join([]string{
		`import "fmt"`,
		``,
		`func Greet() {`,
		`\tfmt.Println("hi")`,
		`}`,
	}, "\n")

	f := ParsedFile{
		FilePath: "a.go",
		Content:  content,
		Declarations: []Declaration{
			{Name: "Greet", StartLine: 3, EndLine: 5},
		},
	}

	chunks, err := c.Chunk(context.Background(), f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected preamble + declaration chunks, got %d", len(chunks))
	}
	if chunks[0].Metadata.ChunkType != chunk.TypeImportBlock {
		t.Fatalf("expected import_block preamble, got %s", chunks[0].Metadata.ChunkType)
	}
	if chunks[1].Metadata.ChunkType != chunk.TypeFunction {
		t.Fatalf("expected function chunk, got %s", chunks[1].Metadata.ChunkType)
	}
	if chunks[1].Metadata.Name != "Greet" {
		t.Fatalf("expected declaration name Greet, got %s", chunks[1].Metadata.Name)
	}
}

func TestCode_MethodInsideClass(t *testing.T) {
	t.Parallel()
	c := NewCode(512)
	content := strings.Join([]string{
		`class Widget {`,
		`  function render() {`,
		`    return 1`,
		`  }`,
		`}`,
	}, "\n")

	f := ParsedFile{
		FilePath: "a.ts",
		Content:  content,
		Declarations: []Declaration{
			{Name: "Widget", StartLine: 1, EndLine: 5},
			{Name: "render", StartLine: 2, EndLine: 4},
		},
	}

	chunks, err := c.Chunk(context.Background(), f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Metadata.ChunkType != chunk.TypeClass {
		t.Fatalf("expected class chunk, got %s", chunks[0].Metadata.ChunkType)
	}
	if chunks[1].Metadata.ChunkType != chunk.TypeMethod {
		t.Fatalf("expected method chunk, got %s", chunks[1].Metadata.ChunkType)
	}
}

func TestCode_OversizedDeclarationSplits(t *testing.T) {
	t.Parallel()
	c := NewCode(20)

	var b strings.Builder
	b.WriteString("func Big() {\n")
	for i := 0; i < 20; i++ {
		b.WriteString("    doSomethingWithALongLineOfCode()\n\n")
	}
	b.WriteString("}\n")
	content := b.String()
	lineCount := strings.Count(content, "\n")

	f := ParsedFile{
		FilePath: "a.go",
		Content:  content,
		Declarations: []Declaration{
			{Name: "Big", StartLine: 1, EndLine: lineCount},
		},
	}

	chunks, err := c.Chunk(context.Background(), f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected oversized declaration to split into multiple chunks, got %d", len(chunks))
	}
	if chunks[0].Metadata.Name != "Big" {
		t.Fatalf("expected first split to keep base name, got %s", chunks[0].Metadata.Name)
	}
	if chunks[1].Metadata.Name == "Big" {
		t.Fatalf("expected later splits to carry a positional suffix")
	}
}

func TestCode_InvalidUTF8(t *testing.T) {
	t.Parallel()
	c := NewCode(512)
	_, err := c.Chunk(context.Background(), ParsedFile{FilePath: "a.go", Content: "func F() {\xff}"})
	if err == nil {
		t.Fatal("expected error for invalid UTF-8 content")
	}
}
