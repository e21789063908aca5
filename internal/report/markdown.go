package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/drivercatalog/internal/catalog"
)

// MarkdownWriter outputs the catalog as a Markdown document.
type MarkdownWriter struct {
	baseWriter

	// drivers enables the per product type tables of download links.
	drivers bool

	// now returns the generation time.
	now func() time.Time
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithDrivers controls whether the download links are listed.
func WithDrivers(show bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.drivers = show
	}
}

// WithClock sets the function providing the generation time.
func WithClock(now func() time.Time) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		if now != nil {
			w.now = now
		}
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		drivers:    true,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the catalog report in Markdown format.
func (w *MarkdownWriter) Write(tree *catalog.Tree) (int, error) {
	return w.WriteSummary(NewSummary(tree, w.now()))
}

// WriteSummary outputs an already aggregated summary.
func (w *MarkdownWriter) WriteSummary(s *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	w.writeOutcomes(md, s)
	w.writeProductTypes(md, s)
	if w.drivers {
		w.writeDrivers(md, s)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("NVIDIA Driver Catalog")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", s.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Product Types", strconv.Itoa(len(s.ProductTypes))},
			{"Driver Combinations", strconv.Itoa(s.Total)},
			{"Coverage", fmt.Sprintf("%.1f%%", s.Coverage()*100)},
		},
	})
	md.PlainText("")
}

// writeOutcomes writes the outcome tally, a pie chart and an alert.
func (w *MarkdownWriter) writeOutcomes(md *markdown.Markdown, s *Summary) {
	md.H2("Outcomes")
	md.PlainText("")

	rows := make([][]string, 0, len(catalog.OutcomeKinds)+1)
	for _, kind := range catalog.OutcomeKinds {
		rows = append(rows, []string{outcomeTitle(kind), strconv.Itoa(s.Tally[kind])})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(s.Total) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if s.Total > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Outcome Distribution"),
		piechart.WithShowData(true),
	)
	for _, kind := range catalog.OutcomeKinds {
		if n := s.Tally[kind]; n > 0 {
			chart.LabelAndIntValue(outcomeTitle(kind), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *Summary) {
	switch {
	case s.Total == 0:
		md.Note("The catalog is empty. Run scrape to build it.")
	case s.Recoverable() > 0:
		md.Warningf(
			"%d combination(s) failed with a recoverable error. Run cleanup to retry them.",
			s.Recoverable(),
		)
	case s.Tally[catalog.Unresolved] > 0:
		md.Importantf(
			"%d combination(s) were never resolved. Run scrape or cleanup to resolve them.",
			s.Tally[catalog.Unresolved],
		)
	default:
		md.Tip("Every combination holds a final answer.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeProductTypes(md *markdown.Markdown, s *Summary) {
	md.H2("Product Types")
	md.PlainText("")

	if len(s.ProductTypes) == 0 {
		md.PlainText("No product types discovered.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.ProductTypes))
	for i, pt := range s.ProductTypes {
		rows[i] = []string{
			pt.Name,
			"`" + pt.ID + "`",
			strconv.Itoa(pt.Total),
			strconv.Itoa(pt.Tally[catalog.Resolved]),
			strconv.Itoa(pt.Tally[catalog.NotFound]),
			strconv.Itoa(pt.Tally[catalog.AccessDenied] + pt.Tally[catalog.TransientError]),
			strconv.Itoa(pt.Tally[catalog.Unresolved]),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Product Type", "ID", "Total", "Resolved", "Not Found", "Failed", "Unresolved"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeDrivers(md *markdown.Markdown, s *Summary) {
	md.H2("Drivers")
	md.PlainText("")

	for _, pt := range s.ProductTypes {
		md.H3(pt.Name)
		md.PlainText("")
		if len(pt.Drivers) == 0 {
			md.PlainText("No resolved downloads.")
			md.PlainText("")
			continue
		}

		rows := make([][]string, len(pt.Drivers))
		for i, d := range pt.Drivers {
			rows[i] = []string{
				d.Labels[catalog.ProductSeries],
				d.Labels[catalog.Product],
				d.Labels[catalog.OperatingSystem],
				d.Labels[catalog.DownloadType],
				d.Labels[catalog.Language],
				markdown.Link(fileName(d.URL), d.URL),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Series", "Product", "OS", "Type", "Language", "Download"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Catalog generated by [drivercatalog](https://github.com/nao1215/drivercatalog)*")
}

func outcomeTitle(kind catalog.OutcomeKind) string {
	switch kind {
	case catalog.Resolved:
		return "Resolved"
	case catalog.NotFound:
		return "Not Found"
	case catalog.AccessDenied:
		return "Access Denied"
	case catalog.TransientError:
		return "Transient Error"
	default:
		return "Unresolved"
	}
}

// fileName returns the last path element of u, or u itself.
func fileName(u string) string {
	u = strings.TrimRight(u, "/")
	if i := strings.LastIndex(u, "/"); i >= 0 && i < len(u)-1 {
		return u[i+1:]
	}
	return u
}
