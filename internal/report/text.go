package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/tenderscan/internal/model"
)

// TextWriter outputs a short plain-text summary for the terminal.
type TextWriter struct {
	baseWriter

	// topN limits the repeated-tenders list. Zero hides it.
	topN int
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithTextTopN sets how many repeated tenders are listed.
func WithTextTopN(n int) TextWriterOption {
	return func(w *TextWriter) {
		w.topN = n
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		topN:       5,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary.
func (w *TextWriter) Write(groups []model.AggregatedGroup) (int, error) {
	s := Summarize(groups, w.topN)

	var sb strings.Builder
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Groups:       %d\n", s.Groups)
	fmt.Fprintf(&sb, "Occurrences:  %d\n", s.Occurrences)
	fmt.Fprintf(&sb, "Authorities:  %d\n", s.Authorities)
	if s.Undated > 0 {
		fmt.Fprintf(&sb, "Undated:      %d\n", s.Undated)
	}

	if years := s.Years(); len(years) > 0 {
		fmt.Fprintf(&sb, "Years:        %d-%d\n", years[0], years[len(years)-1])
	}

	if w.topN > 0 && len(s.Top) > 0 {
		sb.WriteString("\nMost repeated:\n")
		for _, g := range s.Top {
			fmt.Fprintf(&sb, "  %3d  %s (%s)\n", len(g.Tenders), truncateString(orDash(g.Title), 40), orDash(g.Authority))
		}
	}
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}
