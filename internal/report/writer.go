package report

import (
	"io"

	"github.com/nao1215/tenderscan/internal/model"
)

// Writer outputs aggregated groups in one format.
type Writer interface {
	// Write outputs groups to the configured destination and returns the
	// number of bytes written.
	Write(groups []model.AggregatedGroup) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
