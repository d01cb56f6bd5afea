// Package coderr defines the typed error values surfaced across the
// retrieval core's component boundaries.
package coderr

import "fmt"

// Component names a subsystem that can originate a core error.
type Component string

const (
	ComponentParser   Component = "parser"
	ComponentChunker  Component = "chunker"
	ComponentEmbed    Component = "embed"
	ComponentStore    Component = "store"
	ComponentLexical  Component = "lexical"
	ComponentGraph    Component = "graph"
	ComponentSearch   Component = "search"
	ComponentRerank   Component = "rerank"
	ComponentContext  Component = "context"
	ComponentConfig   Component = "config"
)

// CoreError is the common shape of every error this module returns across
// a fallible boundary: a single message plus the component that raised it.
type CoreError struct {
	Component Component
	Message   string
	Err       error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Component, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Err }

// ParseError reports that a file could not be turned into a parsed-file shape.
type ParseError struct{ *CoreError }

func NewParseError(msg string, err error) *ParseError {
	return &ParseError{&CoreError{Component: ComponentParser, Message: msg, Err: err}}
}

// ChunkError reports that a parsed file could not be turned into chunks.
type ChunkError struct{ *CoreError }

func NewChunkError(msg string, err error) *ChunkError {
	return &ChunkError{&CoreError{Component: ComponentChunker, Message: msg, Err: err}}
}

// EmbedError reports that the embedding provider failed. Already-indexed
// chunks from earlier batches remain valid; only the affected batch aborts.
type EmbedError struct{ *CoreError }

func NewEmbedError(msg string, err error) *EmbedError {
	return &EmbedError{&CoreError{Component: ComponentEmbed, Message: msg, Err: err}}
}

// StoreError reports that the vector store or lexical index failed to
// apply a mutation. A failed call leaves no partial mutation of its own
// transaction or batch; a lexical Add split across several batches keeps
// the batches applied before the failure.
type StoreError struct{ *CoreError }

func NewStoreError(component Component, msg string, err error) *StoreError {
	return &StoreError{&CoreError{Component: component, Message: msg, Err: err}}
}

// RerankError reports that the reranker provider failed. Callers of the
// hybrid searcher never see this directly: it is downgraded to a warning
// and the unreranked fused ordering is returned instead.
type RerankError struct{ *CoreError }

func NewRerankError(msg string, err error) *RerankError {
	return &RerankError{&CoreError{Component: ComponentRerank, Message: msg, Err: err}}
}

// ConfigError reports an invalid configuration, surfaced at initialization.
type ConfigError struct{ *CoreError }

func NewConfigError(msg string) *ConfigError {
	return &ConfigError{&CoreError{Component: ComponentConfig, Message: msg}}
}
