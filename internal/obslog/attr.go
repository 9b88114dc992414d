package obslog

import "log/slog"

// Component creates an attribute naming the subsystem emitting the log
// line (e.g. "session", "httpapi", "ipc"), matching the teacher's
// logger.Component helper.
func Component(name string) slog.Attr { return slog.String("component", name) }

// Event creates an attribute naming the specific occurrence being logged.
func Event(name string) slog.Attr { return slog.String("event", name) }

// Error creates an attribute for a non-nil error, returning an empty Attr
// for nil so call sites never need a guard.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// SessionID creates an attribute for a session id.
func SessionID(id int64) slog.Attr { return slog.Int64("session_id", id) }

// RequestID creates an attribute for the HTTP request correlation id
// stamped onto every handler.Context (internal/handler.NewContext).
func RequestID(id string) slog.Attr { return slog.String("request_id", id) }
