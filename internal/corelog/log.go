// Package corelog provides the shared stdlib logger used across the
// indexing pipeline and CLI, so components log through one destination
// instead of calling the log package globals directly.
package corelog

import (
	"io"
	"log"
	"os"
)

// New returns a logger writing to w with the given prefix, using the
// standard library's flag set (date + time).
func New(w io.Writer, prefix string) *log.Logger {
	return log.New(w, prefix, log.LstdFlags)
}

// Default returns the package-wide logger used when a component is not
// given one explicitly. It writes to stderr so indexing progress on
// stdout stays clean.
func Default() *log.Logger {
	return New(os.Stderr, "")
}

// Quiet returns a logger that discards everything, for --quiet CLI runs
// and for tests that don't want indexing chatter.
func Quiet() *log.Logger {
	return log.New(io.Discard, "", 0)
}
