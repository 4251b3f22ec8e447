package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/tenderscan/internal/model"
)

// JSONWriter outputs the aggregated dataset as a JSON array.
// HTML escaping is disabled so titles keep characters such as & and <.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string.
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs groups. An empty input is written as [] rather than null.
func (w *JSONWriter) Write(groups []model.AggregatedGroup) (int, error) {
	if groups == nil {
		groups = []model.AggregatedGroup{}
	}
	return w.writeJSON(groups)
}

// writeJSON encodes v followed by a newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.indent {
		enc.SetIndent(w.indentPrefix, w.indentString)
	}
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// ReadGroups decodes a dataset written by JSONWriter.
func ReadGroups(r io.Reader) ([]model.AggregatedGroup, error) {
	var groups []model.AggregatedGroup
	if err := json.NewDecoder(r).Decode(&groups); err != nil {
		return nil, err
	}
	return groups, nil
}
