// Package httpapi implements the eight HTTP endpoints of spec §4.6/§6: the
// parent-process front-end that translates each request into a fixed
// sequence of IPC exchanges with a session worker (internal/session) via
// the named-channel transport (internal/ipc), consulting the active
// session set (internal/registry) to reject unknown ids without any IPC
// round-trip.
package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mharrison-oss/sessiond/internal/frame"
	"github.com/mharrison-oss/sessiond/internal/handler"
	"github.com/mharrison-oss/sessiond/internal/ids"
	"github.com/mharrison-oss/sessiond/internal/ipc"
	"github.com/mharrison-oss/sessiond/internal/registry"
	"github.com/mharrison-oss/sessiond/internal/response"
)

// roundTripTimeout bounds every blocking IPC exchange a handler makes, so
// a dead/unresponsive worker fails the HTTP request instead of hanging the
// connection forever (the one caller-visible departure from spec §7's
// "blocks forever" acceptance, scoped only to the HTTP edge).
const roundTripTimeout = 30 * time.Second

// API wires the session registry, IPC registry, and handler-id allocator
// into the eight spec endpoints and exposes them as an http.Handler.
type API struct {
	ipcReg   *ipc.Registry
	sessions *registry.Registry
	handlers *ids.HandlerAllocator
	logger   *slog.Logger
}

// New builds an API. sessions starts empty: session id 0 (the root worker
// registered at startup) is reachable only via ipcReg, never listed by
// GET /chats until POST /init forks it into a child id (spec §8).
func New(ipcReg *ipc.Registry, sessions *registry.Registry, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		ipcReg:   ipcReg,
		sessions: sessions,
		handlers: &ids.HandlerAllocator{},
		logger:   logger,
	}
}

// Routes returns the http.Handler serving all eight endpoints, wired onto
// Go 1.22's pattern-matching ServeMux. Eight fixed routes with one path
// parameter each do not need the teacher's full radix-tree router
// (core/router/mux.go); stdlib pattern routing covers this exactly, a
// substitution documented in SPEC_FULL.md / DESIGN.md.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /chats", a.wrap(a.handleChats))
	mux.Handle("POST /init", a.wrap(a.handleInit))
	mux.Handle("POST /fork/{id}", a.wrap(a.handleFork))
	mux.Handle("POST /delete/{id}", a.wrap(a.handleDelete))
	mux.Handle("POST /send/{id}", a.wrap(a.handleSend))
	mux.Handle("POST /stop/{id}", a.wrap(a.handleStop))
	mux.Handle("GET /update/{id}", a.wrap(a.handleUpdate))
	mux.Handle("POST /interact/{id}", a.wrap(a.handleInteract))
	return mux
}

// wrap adapts a handler.HandlerFunc into an http.HandlerFunc, applying
// panic recovery (spec §7: unhandled exceptions -> 500 + HTML).
func (a *API) wrap(h handler.HandlerFunc) http.HandlerFunc {
	recoverable := response.Recover(a.logger)(h)
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := handler.NewContext(w, r)
		response.Render(ctx, recoverable(ctx))
	}
}

// parseSessionID parses the {id} path parameter and checks it against the
// live session set, short-circuiting both malformed and unknown ids
// without any IPC round-trip (spec §4.6).
func (a *API) parseSessionID(ctx handler.Context) (int64, bool) {
	raw := ctx.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	if !a.sessions.Has(id) {
		return 0, false
	}
	return id, true
}

// exchange opens this request's ephemeral reply channel, sends req to the
// worker named by sessionID, and blocks for the reply — the control flow
// of spec §4.6 step (1)-(4).
func (a *API) exchange(ctx context.Context, sessionID int64, req frame.Frame) (frame.Frame, error) {
	handlerID := a.handlers.Next()

	reply, err := a.ipcReg.Register(handlerID)
	if err != nil {
		return frame.Frame{}, err
	}
	defer a.ipcReg.Deregister(handlerID)

	target, ok := a.ipcReg.Dial(sessionID)
	if !ok {
		return frame.Frame{}, errChatNotFound
	}

	req.SenderID = int32(handlerID)

	sendCtx, cancel := context.WithTimeout(ctx, roundTripTimeout)
	defer cancel()

	if err := target.Send(sendCtx, req); err != nil {
		return frame.Frame{}, err
	}

	got, ok := reply.Recv(roundTripTimeout)
	if !ok {
		return frame.Frame{}, errRoundTripTimeout
	}
	return got, nil
}

func readBody(r *http.Request) string {
	b, _ := io.ReadAll(r.Body)
	return string(b)
}
