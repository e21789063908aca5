package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nao1215/drivercatalog/internal/catalog"
)

// TableWriter outputs the outcome tally as terminal tables.
type TableWriter struct {
	baseWriter

	style table.Style
	now   func() time.Time
}

// TableWriterOption configures a TableWriter.
type TableWriterOption func(*TableWriter)

// WithStyle sets the table style. The default is table.StyleRounded.
func WithStyle(style table.Style) TableWriterOption {
	return func(w *TableWriter) {
		w.style = style
	}
}

// WithTableClock sets the function providing the generation time.
func WithTableClock(now func() time.Time) TableWriterOption {
	return func(w *TableWriter) {
		if now != nil {
			w.now = now
		}
	}
}

// NewTableWriter creates a TableWriter that outputs to the given writer.
func NewTableWriter(output io.Writer, opts ...TableWriterOption) *TableWriter {
	w := &TableWriter{
		baseWriter: newBaseWriter(output),
		style:      table.StyleRounded,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the outcome tally of tree.
func (w *TableWriter) Write(tree *catalog.Tree) (int, error) {
	return w.WriteSummary(NewSummary(tree, w.now()))
}

// WriteSummary outputs the totals table followed by the per product type
// table.
func (w *TableWriter) WriteSummary(s *Summary) (int, error) {
	var b strings.Builder
	b.WriteString(w.totals(s))
	b.WriteString("\n")
	if len(s.ProductTypes) > 0 {
		b.WriteString(w.productTypes(s))
		b.WriteString("\n")
	}
	return io.WriteString(w.output, b.String())
}

func (w *TableWriter) totals(s *Summary) string {
	t := table.NewWriter()
	t.SetTitle("Catalog")
	t.AppendHeader(table.Row{"Outcome", "Count"})
	for _, kind := range catalog.OutcomeKinds {
		t.AppendRow(table.Row{outcomeTitle(kind), s.Tally[kind]})
	}
	t.AppendFooter(table.Row{"Total", s.Total})
	t.AppendFooter(table.Row{"Coverage", fmt.Sprintf("%.1f%%", s.Coverage()*100)})
	t.SetStyle(w.style)
	return t.Render()
}

func (w *TableWriter) productTypes(s *Summary) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Product Type", "ID", "Total", "Resolved", "Not Found", "Failed", "Unresolved"})
	for _, pt := range s.ProductTypes {
		t.AppendRow(table.Row{
			pt.Name,
			pt.ID,
			pt.Total,
			pt.Tally[catalog.Resolved],
			pt.Tally[catalog.NotFound],
			pt.Tally[catalog.AccessDenied] + pt.Tally[catalog.TransientError],
			pt.Tally[catalog.Unresolved],
		})
	}
	t.SetStyle(w.style)
	return t.Render()
}
