// Package handler defines the minimal request/response contract the HTTP
// front-end's endpoints are built on, adapted from the teacher's generic
// core/handler package. sessiond has exactly one concrete Context
// implementation and eight fixed routes, so the generic type parameter
// the teacher carries for multiple context flavors is dropped; the shape
// (Context, Response, Middleware, panic-to-500 recovery) is kept.
package handler

import (
	"context"
	"net/http"
)

// Context is the request-scoped value every endpoint handler receives.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	Param(key string) string

	// RequestID returns the correlation id assigned to this exchange at
	// NewContext time, for threading through structured logs.
	RequestID() string
}

// Response renders the HTTP response body and headers; a non-nil error is
// turned into a 500 by the caller.
type Response func(w http.ResponseWriter, r *http.Request) error

// HandlerFunc is one endpoint's logic.
type HandlerFunc func(ctx Context) Response

// Middleware wraps a HandlerFunc with cross-cutting behavior.
type Middleware func(next HandlerFunc) HandlerFunc
