// Package ipc is a named-channel transport: each integer id (a session id
// or a negative handler id) resolves to one inbound channel with a single
// receiver and any number of short-lived senders. It is a plain in-process
// registry over Go channels, which already give the "send blocks until a
// receiver is ready" semantics a named-channel IPC layer needs.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mharrison-oss/sessiond/internal/frame"
)

// ErrAlreadyRegistered is returned by Register when an id already has an
// owning channel.
var ErrAlreadyRegistered = errors.New("ipc: channel already registered")

// Channel is one named, single-receiver inbound channel.
type Channel struct {
	id int64
	ch chan frame.Frame
}

// ID returns the channel's name-bearing id.
func (c *Channel) ID() int64 { return c.id }

// Send delivers a frame to this channel's receiver, blocking until it is
// read or the context is done.
func (c *Channel) Send(ctx context.Context, f frame.Frame) error {
	select {
	case c.ch <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv waits up to timeout for a frame to arrive. The bounded wait lets a
// worker's process loop interleave IPC dispatch with draining engine
// events: a quiescent channel still returns control promptly.
func (c *Channel) Recv(timeout time.Duration) (frame.Frame, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-c.ch:
		return f, true
	case <-timer.C:
		return frame.Frame{}, false
	}
}

// Registry maps ids to their owning Channel, using the same "ipc<id>"
// naming convention the wire protocol's channel names follow.
type Registry struct {
	mu       sync.RWMutex
	channels map[int64]*Channel
}

// NewRegistry creates an empty channel registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[int64]*Channel)}
}

// Register creates and stores the inbound channel for id. Called once by
// the process (worker or HTTP handler goroutine) that owns that id.
func (r *Registry) Register(id int64) (*Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[id]; exists {
		return nil, fmt.Errorf("%w: id=%d", ErrAlreadyRegistered, id)
	}

	c := &Channel{id: id, ch: make(chan frame.Frame)}
	r.channels[id] = c
	return c, nil
}

// Deregister removes id's channel. Called when a worker is killed or an
// ephemeral HTTP reply channel has been drained.
func (r *Registry) Deregister(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, id)
}

// Dial looks up id's channel for sending. A missing channel means no
// receiver has ever attached (or it has died); callers translate that into
// a "not found" condition rather than blocking forever.
func (r *Registry) Dial(id int64) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.channels[id]
	return c, ok
}
