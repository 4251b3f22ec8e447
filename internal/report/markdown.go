package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/tenderscan/internal/model"
)

// MarkdownWriter outputs a summary of the aggregated dataset in Markdown.
type MarkdownWriter struct {
	baseWriter

	// title is the H1 heading, usually naming the query.
	title string

	// topN limits the repeated-tenders table.
	topN int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithTitle sets the H1 heading.
func WithTitle(title string) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.title = title
	}
}

// WithTopN sets how many groups the repeated-tenders table lists.
func WithTopN(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.topN = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		title:      "Tender Summary",
		topN:       defaultTopN,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(groups []model.AggregatedGroup) (int, error) {
	s := Summarize(groups, w.topN)
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	w.writeYears(md, s)
	w.writeTop(md, s)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and totals table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s Summary) {
	md.H1(w.title)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Groups", strconv.Itoa(s.Groups)},
			{"Occurrences", strconv.Itoa(s.Occurrences)},
			{"Authorities", strconv.Itoa(s.Authorities)},
			{"Undated", strconv.Itoa(s.Undated)},
		},
	})
	md.PlainText("")

	switch {
	case s.Groups == 0:
		md.Note("No tenders were found.")
	case s.Undated > 0:
		md.Warningf("%d occurrence(s) have no parsable date and are listed last in each group.", s.Undated)
	default:
		md.Tip("Every occurrence has a date.")
	}
	md.PlainText("")
}

// writeYears writes the per-year table and pie chart.
func (w *MarkdownWriter) writeYears(md *markdown.Markdown, s Summary) {
	md.H2("Occurrences per Year")
	md.PlainText("")

	years := s.Years()
	if len(years) == 0 {
		md.PlainText("No dated occurrences.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(years))
	for _, y := range years {
		rows = append(rows, []string{
			strconv.Itoa(y),
			strconv.Itoa(y - model.EraOffset),
			strconv.Itoa(s.ByYear[y]),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Year", "Fiscal Year (ROC)", "Occurrences"},
		Rows:   rows,
	})
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Occurrences per Year"),
		piechart.WithShowData(true),
	)
	for _, y := range years {
		chart.LabelAndIntValue(strconv.Itoa(y), uint64(s.ByYear[y])) //nolint:gosec // counts are never negative
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeTop writes the most repeated tenders.
func (w *MarkdownWriter) writeTop(md *markdown.Markdown, s Summary) {
	md.H2("Most Repeated Tenders")
	md.PlainText("")

	if len(s.Top) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(s.Top))
	for _, g := range s.Top {
		rows = append(rows, []string{
			truncateString(orDash(g.Title), 60),
			orDash(g.Authority),
			strconv.Itoa(len(g.Tenders)),
			dateOrDash(g.FirstDate()),
			dateOrDash(g.LastDate()),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Title", "Authority", "Count", "First", "Last"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [tenderscan](https://github.com/nao1215/tenderscan)*")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func dateOrDash(d *model.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return fmt.Sprintf("%s...", string(r[:maxLen-3]))
}
