// Package indexer orchestrates the chunker, embedding provider, vector
// store, lexical index, and dependency graph into a single build/update
// pipeline, with incremental reindexing driven by mtime/hash drift
// detection against a persisted file manifest.
package indexer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Discovery walks a project tree and classifies files as code, docs, or
// ignored, using the same glob-compile-once-then-match shape as the
// ingestion configuration's path patterns.
type Discovery struct {
	rootDir        string
	codePatterns   []glob.Glob
	docsPatterns   []glob.Glob
	ignorePatterns []glob.Glob
}

// NewDiscovery compiles the code/docs/exclude glob patterns once for
// reuse across a full or incremental scan.
func NewDiscovery(rootDir string, codePatterns, docsPatterns, excludePatterns []string) (*Discovery, error) {
	d := &Discovery{rootDir: rootDir}

	compile := func(patterns []string) ([]glob.Glob, error) {
		out := make([]glob.Glob, 0, len(patterns))
		for _, p := range patterns {
			g, err := glob.Compile(p, '/')
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
		return out, nil
	}

	var err error
	if d.codePatterns, err = compile(codePatterns); err != nil {
		return nil, err
	}
	if d.docsPatterns, err = compile(docsPatterns); err != nil {
		return nil, err
	}
	if d.ignorePatterns, err = compile(excludePatterns); err != nil {
		return nil, err
	}

	return d, nil
}

// DiscoverFiles walks the project tree and returns code and doc files,
// as paths relative to rootDir with forward slashes.
func (d *Discovery) DiscoverFiles() (codeFiles, docFiles []string, err error) {
	codeFiles = []string{}
	docFiles = []string{}

	err = filepath.Walk(d.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(d.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.shouldIgnore(relPath) {
			return nil
		}

		switch {
		case matchesAny(relPath, d.codePatterns):
			codeFiles = append(codeFiles, relPath)
		case matchesAny(relPath, d.docsPatterns):
			docFiles = append(docFiles, relPath)
		}
		return nil
	})

	return codeFiles, docFiles, err
}

func (d *Discovery) shouldIgnore(relPath string) bool {
	if strings.HasPrefix(relPath, ".coderag/") || relPath == ".coderag" {
		return true
	}
	if matchesAny(relPath, d.ignorePatterns) {
		return true
	}
	return matchesAny(relPath+"/**", d.ignorePatterns)
}

func matchesAny(path string, patterns []glob.Glob) bool {
	for _, p := range patterns {
		if p.Match(path) {
			return true
		}
	}
	return false
}
