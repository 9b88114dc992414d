// Package session implements the per-session worker lifecycle: one
// goroutine per session driving a process loop (internal/procloop) over
// one engine.Engine, an accumulated output buffer, and a list of handler
// ids waiting on the "become ready" signal. A second goroutine — the
// engine's own background goroutine, owned by the engine.Engine
// implementation — pushes Update/Done events back through a channel this
// package drains on every dispatch round.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/mharrison-oss/sessiond/internal/engine"
	"github.com/mharrison-oss/sessiond/internal/frame"
	"github.com/mharrison-oss/sessiond/internal/ids"
	"github.com/mharrison-oss/sessiond/internal/ipc"
	"github.com/mharrison-oss/sessiond/internal/procloop"
)

// ForkBusySentinel is the value returned in the fork reply's payload when
// the engine was busy and the fork was refused. Handler ids are negative
// too, but a fork reply is never interpreted as a handler id, so this
// value is unambiguous in context.
const ForkBusySentinel int32 = -1

// eventDrainTimeout bounds how long the loop waits for one engine event
// per dispatch round; it must stay short so a quiescent channel still
// returns control to procloop.Loop promptly.
const eventDrainTimeout = 10 * time.Millisecond

// stopPollInterval is how often Stop polls IsBusy while waiting for the
// cooperative interrupt to take effect.
const stopPollInterval = 100 * time.Millisecond

// Worker owns one engine instance and implements procloop.Dispatcher over
// the seven request kinds a session worker responds to.
type Worker struct {
	id     ID
	eng    engine.Engine
	events chan engine.Event

	reg     *ipc.Registry
	ownCh   *ipc.Channel
	allocID *ids.SessionAllocator

	logger *slog.Logger

	output  string
	waiting []int32

	// spawnChild is called by handleFork to start the child's loop
	// goroutine; factored out so tests can observe/stub the spawn.
	spawnChild func(child *Worker, inbox *ipc.Channel)
}

// ID is a session id: 0 is the root/template worker, positive values are
// forked children, allocated monotonically (standing in for OS pids).
type ID int64

// New creates the root worker (session id 0) bound to eng, registering its
// inbound channel on reg. Forked children are created internally by
// handleFork, not by callers.
func New(reg *ipc.Registry, alloc *ids.SessionAllocator, eng engine.Engine, logger *slog.Logger) (*Worker, *ipc.Channel, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ch, err := reg.Register(0)
	if err != nil {
		return nil, nil, err
	}

	events := make(chan engine.Event, 64)
	eng.Subscribe(events)

	w := &Worker{
		id:      0,
		eng:     eng,
		events:  events,
		reg:     reg,
		ownCh:   ch,
		allocID: alloc,
		logger:  logger,
	}
	w.spawnChild = w.defaultSpawnChild
	return w, ch, nil
}

// ID returns the worker's session id.
func (w *Worker) ID() ID { return w.id }

// Dispatch implements procloop.Dispatcher.
func (w *Worker) Dispatch(ctx context.Context, in frame.Frame) procloop.Result {
	var res procloop.Result

	switch in.Kind {
	case frame.KindForkRequest:
		res = w.handleFork(ctx, in)
	case frame.KindKillRequest:
		res = w.handleKill(ctx, in)
	case frame.KindInitRequest:
		res = w.handleInit(ctx, in)
	case frame.KindSubmitRequest:
		res = w.handleSubmit(ctx, in)
	case frame.KindStopRequest:
		res = w.handleStop(ctx, in)
	case frame.KindReleaseOutputRequest:
		res = w.handleReleaseOutput(in)
	case frame.KindNotifyRequest:
		res = w.handleNotify(in)
	default:
		w.logger.Warn("session: unhandled frame kind", slog.Int("kind", int(in.Kind)))
		return procloop.Result{}
	}

	w.drainOneEvent(ctx)
	return res
}

func (w *Worker) selfID32() int32 { return int32(w.id) }

// handleFork succeeds only while the engine is idle, since forking
// mid-generation would hand the child a torn-in-flight evaluation. On
// success the child is handed a cloned engine and its own loop goroutine,
// becoming independently addressable; the parent's reply carries the
// child's new id.
func (w *Worker) handleFork(ctx context.Context, in frame.Frame) procloop.Result {
	if w.eng.IsBusy() {
		reply := frame.Value(w.selfID32(), ForkBusySentinel)
		return procloop.Result{Reply: &reply}
	}

	childID := ID(w.allocID.Next())
	childCh, err := w.reg.Register(int64(childID))
	if err != nil {
		w.logger.Error("session: fork could not register child channel",
			slog.Int64("child_id", int64(childID)), slog.String("error", err.Error()))
		reply := frame.Value(w.selfID32(), ForkBusySentinel)
		return procloop.Result{Reply: &reply}
	}

	childEvents := make(chan engine.Event, 64)
	clonedEngine := w.eng.Clone()
	clonedEngine.Subscribe(childEvents)

	child := &Worker{
		id:      childID,
		eng:     clonedEngine,
		events:  childEvents,
		reg:     w.reg,
		ownCh:   childCh,
		allocID: w.allocID,
		logger:  w.logger,
		output:  w.output,
	}
	child.spawnChild = child.defaultSpawnChild

	w.spawnChild(child, childCh)

	reply := frame.Value(w.selfID32(), int32(childID))
	return procloop.Result{Reply: &reply}
}

// defaultSpawnChild starts the child's own process loop on a new goroutine,
// servicing its own inbound channel from here on (spec §4.3/§4.7: the
// successor's loop runs "in place" — here, on its own goroutine rather than
// continuing the parent's, since Go channels (unlike an OS fork) give a
// fresh goroutine for free and there is no shared stack to hand off).
func (w *Worker) defaultSpawnChild(child *Worker, inbox *ipc.Channel) {
	loop := procloop.New(inbox, w.reg, w.logger)
	go loop.Run(context.Background(), child)
}

// handleKill implements spec §4.4: stop the engine synchronously, ack, then
// end the loop so the worker's channel is abandoned (it is never
// deregistered; the HTTP front-end's delete handler removes the id from
// the active session set, and the IPC channel stays registered, unread).
func (w *Worker) handleKill(ctx context.Context, in frame.Frame) procloop.Result {
	w.stopAndWait(ctx)
	reply := frame.Empty(w.selfID32(), frame.KindAck)
	return procloop.Result{Reply: &reply, Exit: true}
}

// handleInit implements spec §4.4's Init request.
func (w *Worker) handleInit(ctx context.Context, in frame.Frame) procloop.Result {
	if w.eng.IsInitialized() {
		reply := frame.BlobString(w.selfID32(), frame.KindInitReply, "Error: Already initialized")
		return procloop.Result{Reply: &reply}
	}
	if w.eng.IsBusy() {
		reply := frame.BlobString(w.selfID32(), frame.KindInitReply, "Error: Model is busy")
		return procloop.Result{Reply: &reply}
	}

	if !w.eng.Init(ctx, string(in.Payload)) {
		reply := frame.BlobString(w.selfID32(), frame.KindInitReply, "Error: Unknown error")
		return procloop.Result{Reply: &reply}
	}

	reply := frame.BlobString(w.selfID32(), frame.KindInitReply, "Success")
	return procloop.Result{Reply: &reply}
}

// handleSubmit implements spec §4.4's SubmitInput request, enforcing
// invariants I2 (busy exclusion) and I3 (pending-output exclusion).
func (w *Worker) handleSubmit(ctx context.Context, in frame.Frame) procloop.Result {
	if w.output != "" {
		reply := frame.BlobString(w.selfID32(), frame.KindSubmitReply, "Error: Read pending output first")
		return procloop.Result{Reply: &reply}
	}
	if w.eng.IsBusy() {
		reply := frame.BlobString(w.selfID32(), frame.KindSubmitReply, "Error: Model is busy")
		return procloop.Result{Reply: &reply}
	}

	if !w.eng.SubmitInput(ctx, string(in.Payload)) {
		reply := frame.BlobString(w.selfID32(), frame.KindSubmitReply, "Error: Unknown error")
		return procloop.Result{Reply: &reply}
	}

	reply := frame.BlobString(w.selfID32(), frame.KindSubmitReply, "Success")
	return procloop.Result{Reply: &reply}
}

// handleStop implements spec §4.4's Stop request: synchronous, cooperative.
func (w *Worker) handleStop(ctx context.Context, in frame.Frame) procloop.Result {
	w.stopAndWait(ctx)
	reply := frame.Empty(w.selfID32(), frame.KindAck)
	return procloop.Result{Reply: &reply}
}

// stopAndWait toggles the engine's interrupt flag and polls IsBusy until it
// clears, draining events meanwhile so Done is observed and busy settles.
func (w *Worker) stopAndWait(ctx context.Context) {
	w.eng.Stop()
	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()

	for w.eng.IsBusy() {
		select {
		case ev := <-w.events:
			w.applyEvent(ev)
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// handleReleaseOutput implements spec §4.4: atomically hand over the
// accumulated buffer, leaving it empty, tagged with whether more output is
// still being produced.
func (w *Worker) handleReleaseOutput(in frame.Frame) procloop.Result {
	out := w.output
	w.output = ""
	reply := frame.ReleaseOutput(w.selfID32(), out, w.eng.IsBusy())
	return procloop.Result{Reply: &reply}
}

// handleNotify implements spec §4.4's NotifyWhenReady: an immediate Ready
// reply if idle, else the handler id is queued and the reply deferred
// until a later Done event drains the waiting list.
func (w *Worker) handleNotify(in frame.Frame) procloop.Result {
	if !w.eng.IsBusy() {
		reply := frame.Empty(w.selfID32(), frame.KindReadyReply)
		return procloop.Result{Reply: &reply}
	}
	w.waiting = append(w.waiting, in.SenderID)
	return procloop.Result{}
}

// drainOneEvent implements the worker drain policy of spec §4.5: exactly
// one non-blocking-bounded read of the engine's event queue per dispatch
// round, so a busy HTTP load still makes engine-event progress and a
// quiescent worker still notices Done via its own recv timeout.
func (w *Worker) drainOneEvent(ctx context.Context) {
	select {
	case ev := <-w.events:
		w.applyEvent(ev)
	case <-time.After(eventDrainTimeout):
	case <-ctx.Done():
	}
}

// Idle implements procloop.Dispatcher: it is called whenever the loop's
// bounded recv times out with no inbound frame, so a quiescent worker (no
// IPC traffic at all) still notices engine Update/Done events instead of
// only draining them between dispatches. The recv itself already spent
// procloop.RecvTimeout waiting, so this is a single non-blocking check
// rather than a second bounded wait.
func (w *Worker) Idle(ctx context.Context) {
	select {
	case ev := <-w.events:
		w.applyEvent(ev)
	default:
	}
}

func (w *Worker) applyEvent(ev engine.Event) {
	switch ev.Kind {
	case engine.EventUpdate:
		w.output += ev.Chunk
	case engine.EventDone:
		w.notifyWaiters()
	}
}

// notifyWaiters sends a Ready frame to every handler id queued by
// NotifyWhenReady and clears the list, per spec §4.5's drain policy.
func (w *Worker) notifyWaiters() {
	if len(w.waiting) == 0 {
		return
	}
	for _, handlerID := range w.waiting {
		target, ok := w.reg.Dial(int64(handlerID))
		if !ok {
			w.logger.Warn("session: notify target not registered", slog.Int64("handler_id", int64(handlerID)))
			continue
		}
		reply := frame.Empty(w.selfID32(), frame.KindReadyReply)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := target.Send(ctx, reply); err != nil {
			w.logger.Warn("session: notify send failed", slog.Int64("handler_id", int64(handlerID)), slog.String("error", err.Error()))
		}
		cancel()
	}
	w.waiting = w.waiting[:0]
}

var _ procloop.Dispatcher = (*Worker)(nil)
