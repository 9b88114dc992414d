package response

import (
	"log/slog"
	"net/http"

	"github.com/mharrison-oss/sessiond/internal/handler"
)

const panicHTML = `<!doctype html><html><head><title>500 Internal Server Error</title></head>` +
	`<body><h1>Internal Server Error</h1></body></html>`

// Recover wraps next so a panic anywhere in the handler chain becomes a
// 500 with a minimal HTML body (spec §7, "HTTP exceptions: caught at the
// handler boundary; status 500 with a short HTML body"), mirroring the
// teacher router's panic-to-500 path in core/router/mux.go.
func Recover(logger *slog.Logger) handler.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next handler.HandlerFunc) handler.HandlerFunc {
		return func(ctx handler.Context) (resp handler.Response) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("httpapi: panic recovered",
						slog.String("request_id", ctx.RequestID()), slog.Any("panic", r))
					resp = func(w http.ResponseWriter, r *http.Request) error {
						w.Header().Set("Content-Type", "text/html; charset=utf-8")
						w.WriteHeader(http.StatusInternalServerError)
						_, err := w.Write([]byte(panicHTML))
						return err
					}
				}
			}()
			return next(ctx)
		}
	}
}
