package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// reqContext is the concrete Context used by every sessiond endpoint. It
// wraps the request's own context.Context and carries the single path
// parameter (`{id}`) that Go 1.22's http.ServeMux pattern routing already
// extracts for us, exposed uniformly via Param.
type reqContext struct {
	context.Context
	r         *http.Request
	w         http.ResponseWriter
	requestID string
}

// NewContext builds the request-scoped Context for one HTTP exchange,
// stamping it with a fresh correlation id that outlives the underlying IPC
// round-trip(s) so multi-exchange handlers (Init, Interact) log under one
// identifier.
func NewContext(w http.ResponseWriter, r *http.Request) Context {
	return &reqContext{Context: r.Context(), r: r, w: w, requestID: uuid.NewString()}
}

func (c *reqContext) Request() *http.Request             { return c.r }
func (c *reqContext) ResponseWriter() http.ResponseWriter { return c.w }
func (c *reqContext) Param(key string) string             { return c.r.PathValue(key) }
func (c *reqContext) RequestID() string                   { return c.requestID }
