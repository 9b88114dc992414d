// Package response renders handler.Response values, adapted from the
// teacher's core/response package: a thin Render entrypoint plus JSON/HTML
// helpers. Every sessiond endpoint replies with status 200 and an
// `error`-shaped JSON body on client-visible failures (spec §7), so JSON
// here never takes a non-200 status — only the panic-recovery middleware
// reaches for HTML+500.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/mharrison-oss/sessiond/internal/handler"
)

// Render executes resp against ctx, writing a plain-text 500 if it errors.
func Render(ctx handler.Context, resp handler.Response) {
	if err := resp(ctx.ResponseWriter(), ctx.Request()); err != nil {
		http.Error(ctx.ResponseWriter(), err.Error(), http.StatusInternalServerError)
	}
}

// JSON writes v as an application/json body with status 200 and the CORS
// header every sessiond response carries (spec §6).
func JSON(v any) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return json.NewEncoder(w).Encode(v)
	}
}

// Error writes {"error": msg} with status 200, per spec §6/§7: client-
// visible failures are not HTTP errors, they are successful responses
// describing a failure.
func Error(msg string) handler.Response {
	return JSON(map[string]string{"error": msg})
}
