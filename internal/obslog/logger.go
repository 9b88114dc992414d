// Package obslog builds the structured slog.Logger used throughout
// sessiond, adapted from the teacher's core/logger package: a development
// preset (text, debug level, stdout) and a production preset (JSON, info
// level, stdout). The teacher's context-extractor and handler-decoration
// machinery is trimmed — sessiond has no per-request auth/user context to
// enrich logs with — but the environment-preset shape is kept, since
// logging is an ambient concern carried regardless of the spec's
// Non-goals.
package obslog

import (
	"log/slog"
	"os"
)

// New builds a logger for the named service, selecting text+debug for
// "development" and JSON+info for anything else.
func New(service, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if env == "development" {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(slog.String("service", service))
}
