package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// bodyKeys are attribute keys carrying raw response content.
var bodyKeys = map[string]bool{
	"body":     true,
	"response": true,
	"html":     true,
	"payload":  true,
}

// credentialKeys are attribute keys whose value is never written.
var credentialKeys = map[string]bool{
	"authorization":         true,
	"cookie":                true,
	"set-cookie":            true,
	"aws_access_key_id":     true,
	"aws_secret_access_key": true,
	"x-amz-security-token":  true,
}

// MaxBodyLen is the number of bytes of a body attribute kept in the output.
const MaxBodyLen = 160

// MaskValue replaces credential values.
const MaskValue = "***REDACTED***"

// BodyHandler wraps an slog.Handler and shortens response bodies before they
// reach the underlying handler. The resolver logs the raw answer of the
// vendor endpoint, which is sometimes a full HTML error page; BodyHandler
// collapses it to a single trimmed line. Credential attributes are masked.
type BodyHandler struct {
	handler slog.Handler
}

// NewBodyHandler creates a BodyHandler wrapping handler.
// If handler is nil, slog.Default().Handler() is used.
func NewBodyHandler(handler slog.Handler) *BodyHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &BodyHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *BodyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle rewrites the record's attributes and passes it on.
func (h *BodyHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.rewriteAttr(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

// WithAttrs returns a new handler with the rewritten attributes added.
func (h *BodyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	rewritten := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		rewritten[i] = h.rewriteAttr(a)
	}
	return &BodyHandler{handler: h.handler.WithAttrs(rewritten)}
}

// WithGroup returns a new handler with the given group name.
func (h *BodyHandler) WithGroup(name string) slog.Handler {
	return &BodyHandler{handler: h.handler.WithGroup(name)}
}

func (h *BodyHandler) rewriteAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		rewritten := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			rewritten[i] = h.rewriteAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(rewritten...)}
	}

	key := strings.ToLower(a.Key)
	if credentialKeys[key] {
		return slog.String(a.Key, MaskValue)
	}
	if bodyKeys[key] {
		return slog.String(a.Key, Shorten(a.Value.Resolve().String(), MaxBodyLen))
	}
	return a
}

// Shorten collapses runs of whitespace (newlines included) into single
// spaces and cuts the result to at most n bytes, marking the cut with "...".
func Shorten(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// NewLogger creates the application logger.
// Output is colored with tint when w is a terminal, plain slog text otherwise.
// The level is Warn, or Debug when verbose is set.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	var base slog.Handler
	if isTerminal(w) {
		base = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		base = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(NewBodyHandler(base))
}

// NewJSONLogger creates a logger writing JSON lines, for log aggregation.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(NewBodyHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
