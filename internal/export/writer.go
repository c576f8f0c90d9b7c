package export

import (
	"io"

	"github.com/nao1215/regionspider/internal/model"
)

// Writer writes a finished crawl in one format.
type Writer interface {
	// Write outputs the crawl to the configured destination.
	Write(result *model.CrawlResult) error
}

// baseWriter provides common functionality for writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
