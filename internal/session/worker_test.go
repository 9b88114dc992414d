package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mharrison-oss/sessiond/internal/engine/fakeengine"
	"github.com/mharrison-oss/sessiond/internal/frame"
	"github.com/mharrison-oss/sessiond/internal/ids"
	"github.com/mharrison-oss/sessiond/internal/ipc"
	"github.com/mharrison-oss/sessiond/internal/procloop"
	"github.com/mharrison-oss/sessiond/internal/session"
)

// newRunningRoot builds a root worker, registers a caller reply channel,
// and drives the worker's loop on a background goroutine.
func newRunningRoot(t *testing.T) (*ipc.Registry, *ipc.Channel, func()) {
	t.Helper()

	reg := ipc.NewRegistry()
	alloc := &ids.SessionAllocator{}
	eng := fakeengine.New()
	eng.ChunkDelay = time.Millisecond

	w, rootCh, err := session.New(reg, alloc, eng, nil)
	require.NoError(t, err)

	caller, err := reg.Register(-1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	loop := procloop.New(rootCh, reg, nil)
	go loop.Run(ctx, w)

	return reg, caller, cancel
}

func send(t *testing.T, reg *ipc.Registry, caller *ipc.Channel, to int64, f frame.Frame) frame.Frame {
	t.Helper()
	target, ok := reg.Dial(to)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, target.Send(ctx, f))

	reply, ok := caller.Recv(2 * time.Second)
	require.True(t, ok, "expected a reply")
	return reply
}

func TestInit_SuccessThenRejectsReinit(t *testing.T) {
	reg, caller, cancel := newRunningRoot(t)
	defer cancel()

	reply := send(t, reg, caller, 0, frame.BlobString(-1, frame.KindInitRequest, "hello"))
	assert.Equal(t, "Success", string(reply.Payload))

	reply = send(t, reg, caller, 0, frame.BlobString(-1, frame.KindInitRequest, "again"))
	assert.Equal(t, "Error: Already initialized", string(reply.Payload))
}

func TestSubmit_RejectsWhileBusy(t *testing.T) {
	reg, caller, cancel := newRunningRoot(t)
	defer cancel()

	reply := send(t, reg, caller, 0, frame.BlobString(-1, frame.KindInitRequest, "hello"))
	require.Equal(t, "Success", string(reply.Payload))

	reply = send(t, reg, caller, 0, frame.BlobString(-1, frame.KindSubmitRequest, "first"))
	assert.Equal(t, "Error: Model is busy", string(reply.Payload))
}

func TestSubmit_RejectsPendingOutput(t *testing.T) {
	reg, caller, cancel := newRunningRoot(t)
	defer cancel()

	reply := send(t, reg, caller, 0, frame.BlobString(-1, frame.KindInitRequest, "hello"))
	require.Equal(t, "Success", string(reply.Payload))

	// wait for init to finish (fakeengine's Init emits no output, only Done)
	time.Sleep(50 * time.Millisecond)

	reply = send(t, reg, caller, 0, frame.BlobString(-1, frame.KindSubmitRequest, "hi there"))
	require.Equal(t, "Success", string(reply.Payload))

	time.Sleep(50 * time.Millisecond)

	reply = send(t, reg, caller, 0, frame.BlobString(-1, frame.KindSubmitRequest, "again"))
	assert.Equal(t, "Error: Read pending output first", string(reply.Payload))
}

func TestReleaseOutput_DrainsAccumulatedBuffer(t *testing.T) {
	reg, caller, cancel := newRunningRoot(t)
	defer cancel()

	reply := send(t, reg, caller, 0, frame.BlobString(-1, frame.KindInitRequest, "hello"))
	require.Equal(t, "Success", string(reply.Payload))
	time.Sleep(50 * time.Millisecond)

	reply = send(t, reg, caller, 0, frame.BlobString(-1, frame.KindSubmitRequest, "hi there"))
	require.Equal(t, "Success", string(reply.Payload))
	time.Sleep(50 * time.Millisecond)

	reply = send(t, reg, caller, 0, frame.Empty(-1, frame.KindReleaseOutputRequest))
	output, hasMore, err := reply.AsReleaseOutput()
	require.NoError(t, err)
	assert.NotEmpty(t, output)
	assert.False(t, hasMore)

	reply = send(t, reg, caller, 0, frame.Empty(-1, frame.KindReleaseOutputRequest))
	output, _, err = reply.AsReleaseOutput()
	require.NoError(t, err)
	assert.Empty(t, output)
}

func TestFork_SucceedsWhileIdleAndChildIsAddressable(t *testing.T) {
	reg, caller, cancel := newRunningRoot(t)
	defer cancel()

	reply := send(t, reg, caller, 0, frame.Empty(-1, frame.KindForkRequest))
	childID, err := reply.AsValue()
	require.NoError(t, err)
	require.Greater(t, childID, int32(0))

	reply = send(t, reg, caller, int64(childID), frame.BlobString(-1, frame.KindInitRequest, "hello"))
	assert.Equal(t, "Success", string(reply.Payload))
}

func TestFork_RefusedWhileBusy(t *testing.T) {
	reg, caller, cancel := newRunningRoot(t)
	defer cancel()

	reply := send(t, reg, caller, 0, frame.BlobString(-1, frame.KindInitRequest, "hello"))
	require.Equal(t, "Success", string(reply.Payload))

	// a ten-word submission keeps the 1ms-per-word engine busy well past
	// the submit round-trip
	reply = send(t, reg, caller, 0, frame.BlobString(-1, frame.KindSubmitRequest, "one two three four five six seven eight nine ten"))
	require.Equal(t, "Success", string(reply.Payload))

	reply = send(t, reg, caller, 0, frame.Empty(-1, frame.KindForkRequest))
	v, err := reply.AsValue()
	require.NoError(t, err)
	assert.EqualValues(t, session.ForkBusySentinel, v)
}

func TestKill_AcksAndEndsLoop(t *testing.T) {
	reg, caller, cancel := newRunningRoot(t)
	defer cancel()

	reply := send(t, reg, caller, 0, frame.Empty(-1, frame.KindKillRequest))
	assert.Equal(t, frame.KindAck, reply.Kind)
}

func TestNotifyWhenReady_ImmediateWhenIdle(t *testing.T) {
	reg, caller, cancel := newRunningRoot(t)
	defer cancel()

	reply := send(t, reg, caller, 0, frame.Empty(-1, frame.KindNotifyRequest))
	assert.Equal(t, frame.KindReadyReply, reply.Kind)
}

// TestNotifyWhenReady_DeferredUntilDone_MultiChunkSubmit exercises the
// /interact path: SubmitInput followed immediately by NotifyWhenReady, with
// no further IPC traffic in between. fakeengine streams the submitted text
// back one word per ChunkDelay tick, so a multi-word submission emits
// several Update events before Done; the worker must keep draining those
// off its own idle ticks (spec §4.5/§5), not only when dispatching a frame.
func TestNotifyWhenReady_DeferredUntilDone_MultiChunkSubmit(t *testing.T) {
	reg, caller, cancel := newRunningRoot(t)
	defer cancel()

	reply := send(t, reg, caller, 0, frame.BlobString(-1, frame.KindInitRequest, "hello"))
	require.Equal(t, "Success", string(reply.Payload))
	time.Sleep(50 * time.Millisecond)

	reply = send(t, reg, caller, 0, frame.Empty(-1, frame.KindReleaseOutputRequest))
	_, _, err := reply.AsReleaseOutput()
	require.NoError(t, err)

	reply = send(t, reg, caller, 0, frame.BlobString(-1, frame.KindSubmitRequest, "one two three four five"))
	require.Equal(t, "Success", string(reply.Payload))

	target, ok := reg.Dial(0)
	require.True(t, ok)
	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	require.NoError(t, target.Send(ctx, frame.Empty(-1, frame.KindNotifyRequest)))

	reply, ok = caller.Recv(3 * time.Second)
	require.True(t, ok, "expected a deferred Ready reply even with no further IPC frames")
	assert.Equal(t, frame.KindReadyReply, reply.Kind)
}

func TestNotifyWhenReady_DeferredUntilDone(t *testing.T) {
	reg, caller, cancel := newRunningRoot(t)
	defer cancel()

	reply := send(t, reg, caller, 0, frame.BlobString(-1, frame.KindInitRequest, "hello"))
	require.Equal(t, "Success", string(reply.Payload))

	target, ok := reg.Dial(0)
	require.True(t, ok)
	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	require.NoError(t, target.Send(ctx, frame.Empty(-1, frame.KindNotifyRequest)))

	reply, ok = caller.Recv(2 * time.Second)
	require.True(t, ok)
	assert.Equal(t, frame.KindReadyReply, reply.Kind)
}
