// Package report writes crawl and aggregation results.
//
// Per-year crawl output:
//   - CSVWriter: one title,authority,date,url file per query and year
//
// Aggregated output (Writer implementations):
//   - JSONWriter: the grouped dataset, indented, with CJK text kept literal
//   - MarkdownWriter: a human-readable summary with a mermaid chart
//   - TextWriter: a short terminal summary
package report
