// Package procloop implements the generic process loop every session
// worker runs: block on its own inbound channel, dispatch the frame it
// receives, reply through the registry by looking up the frame's sender
// id, and repeat.
//
// A Dispatcher may also return a successor Dispatcher: the SAME loop
// goroutine then keeps running on the same inbox, now driving the
// successor instead of returning — simply a local variable swap inside one
// `for` loop. internal/session's fork does not use this hand-off: it
// starts the forked child's own Loop on a new goroutine and inbox.
package procloop

import (
	"context"
	"log/slog"
	"time"

	"github.com/mharrison-oss/sessiond/internal/frame"
	"github.com/mharrison-oss/sessiond/internal/ipc"
)

// RecvTimeout bounds how long Run waits for an inbound frame before giving
// the current Dispatcher a chance to drain its own background events (spec
// §4.5: "a quiescent worker ... still drains events because its IPC recv
// has a finite timeout"; §5: "workers use ~10 ms").
const RecvTimeout = 10 * time.Millisecond

// Result is what a Dispatcher returns after handling one frame.
type Result struct {
	// Reply, if non-nil, is sent back to the frame's sender id.
	Reply *frame.Frame

	// Successor, if non-nil, replaces the Dispatcher driving this loop for
	// all subsequent frames — the fork hand-off.
	Successor Dispatcher

	// Exit, if true, ends the loop after any Reply has been sent.
	Exit bool
}

// Dispatcher handles one inbound frame and decides what happens next.
type Dispatcher interface {
	Dispatch(ctx context.Context, in frame.Frame) Result

	// Idle is called whenever RecvTimeout elapses with no inbound frame,
	// so a quiescent worker still drains its background engine events
	// instead of only doing so between dispatches.
	Idle(ctx context.Context)
}

// DispatcherFunc adapts a plain function to a Dispatcher with a no-op Idle.
type DispatcherFunc func(ctx context.Context, in frame.Frame) Result

func (f DispatcherFunc) Dispatch(ctx context.Context, in frame.Frame) Result {
	return f(ctx, in)
}

func (f DispatcherFunc) Idle(ctx context.Context) {}

// Loop drives one session worker's inbound channel.
type Loop struct {
	inbox  *ipc.Channel
	reg    *ipc.Registry
	logger *slog.Logger
}

// New builds a Loop that receives on inbox and replies via reg.
func New(inbox *ipc.Channel, reg *ipc.Registry, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{inbox: inbox, reg: reg, logger: logger}
}

// Run drives the dispatch loop until the context is cancelled or a
// Dispatcher returns Exit. The initial Dispatcher is typically a session
// worker; a Result carrying a Successor swaps it out for all later frames.
func (l *Loop) Run(ctx context.Context, d Dispatcher) {
	for {
		in, ok := l.inbox.Recv(RecvTimeout)
		if !ok {
			select {
			case <-ctx.Done():
				return
			default:
			}
			d.Idle(ctx)
			continue
		}

		res := d.Dispatch(ctx, in)

		if res.Reply != nil {
			if target, ok := l.reg.Dial(int64(in.SenderID)); ok {
				if err := target.Send(ctx, *res.Reply); err != nil {
					l.logger.WarnContext(ctx, "procloop: reply send failed",
						slog.Int("sender_id", int(in.SenderID)),
						slog.String("error", err.Error()))
				}
			} else {
				l.logger.WarnContext(ctx, "procloop: reply target not registered",
					slog.Int("sender_id", int(in.SenderID)))
			}
		}

		if res.Successor != nil {
			d = res.Successor
		}

		if res.Exit {
			return
		}
	}
}
