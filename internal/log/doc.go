// Package log builds the slog loggers used by drivercatalog.
//
// Resolver and browser logs often carry raw page content. BodyHandler
// collapses those attributes (body, response, html, payload) into one short
// line and masks credential attributes such as cookies and AWS keys.
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
// On a terminal the output is colored with tint; otherwise plain text.
package log
