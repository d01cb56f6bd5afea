// Command coderag indexes a repository's source code and documentation
// into a hybrid vector+lexical search index and serves it for
// retrieval-augmented coding assistants.
package main

import "github.com/coderag/coderag/internal/cli"

func main() {
	cli.Execute()
}
