package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/coderag/coderag/internal/embed"
	"github.com/coderag/coderag/internal/indexer"
)

// indexProgressReporter renders an embedding progress bar and a final
// summary for the index command.
type indexProgressReporter struct {
	quiet bool
	bar   *progressbar.ProgressBar
}

func newIndexProgressReporter(quiet bool) *indexProgressReporter {
	return &indexProgressReporter{quiet: quiet}
}

func (r *indexProgressReporter) onEmbeddingProgress(p embed.BatchProgress) {
	if r.quiet {
		return
	}
	if r.bar == nil {
		r.bar = progressbar.NewOptions(p.TotalChunks,
			progressbar.OptionSetDescription("Embedding chunks"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("chunks/s"),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionOnCompletion(func() {
				fmt.Println()
			}),
		)
	}
	r.bar.Set(p.ProcessedChunks)
}

func (r *indexProgressReporter) printSummary(stats *indexer.Stats) {
	if r.bar != nil {
		r.bar.Finish()
	}
	if r.quiet {
		fmt.Printf("Indexing complete: %d chunks indexed, %d removed, in %v\n",
			stats.ChunksIndexed, stats.ChunksRemoved, stats.Duration)
		return
	}

	fmt.Println()
	fmt.Printf("Indexing complete:\n")
	fmt.Printf("  Files: %d added, %d modified, %d deleted (%d unchanged)\n",
		stats.FilesAdded, stats.FilesModified, stats.FilesDeleted, stats.FilesUnchanged)
	fmt.Printf("  Chunks: %d indexed, %d removed\n", stats.ChunksIndexed, stats.ChunksRemoved)
	fmt.Printf("  Time: %v\n", stats.Duration)
}
