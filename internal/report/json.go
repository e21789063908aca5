package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nao1215/drivercatalog/internal/catalog"
	"github.com/nao1215/drivercatalog/internal/store"
)

// JSONWriter outputs the catalog as the legacy nested JSON document, the
// format older consumers of the catalog read.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs tree in the legacy format. Failed leaves carry their
// sentinel string in place of a download URL.
func (w *JSONWriter) Write(tree *catalog.Tree) (int, error) {
	cw := &countingWriter{w: w.output}
	enc := json.NewEncoder(cw)
	if w.indent {
		enc.SetIndent(w.indentPrefix, w.indentString)
	}
	if err := enc.Encode(store.LegacyDocument(tree)); err != nil {
		return cw.n, fmt.Errorf("failed to write JSON catalog: %w", err)
	}
	return cw.n, nil
}
