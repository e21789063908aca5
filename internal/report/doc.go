// Package report renders the option tree for people and for older tools.
//
// Writers:
//   - MarkdownWriter: a catalog report with outcome totals, a pie chart and
//     the resolved download links, grouped by product type
//   - TableWriter: terminal tables of the outcome tally (go-pretty)
//   - JSONWriter: the legacy nested JSON document
//
// All writers implement Writer and can be combined with MultiWriter.
package report
