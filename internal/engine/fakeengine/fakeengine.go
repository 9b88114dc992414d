// Package fakeengine is a deterministic, dependency-free engine.Engine used
// as the zero-config default backend and in tests. It "generates" a reply
// by echoing each submitted input back one word at a time on a short
// ticker, giving tests a predictable multi-chunk stream without needing a
// real model or network access. Init only records the prompt: it emits no
// Update, just Done.
package fakeengine

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mharrison-oss/sessiond/internal/engine"
)

// Engine is a fake implementation of engine.Engine.
type Engine struct {
	mu          sync.Mutex
	initialized bool
	busy        atomic.Bool
	interrupted atomic.Bool
	events      chan<- engine.Event

	// history accumulates every prompt/input this engine has seen, so
	// that Clone can hand a forked worker the exact same evaluated
	// context, and so replies have some relation to the conversation.
	history []string

	// ChunkDelay controls how fast words are emitted; zero uses a small
	// default so tests stay fast.
	ChunkDelay time.Duration
}

// New creates a fresh, uninitialized fake engine.
func New() *Engine {
	return &Engine{ChunkDelay: 5 * time.Millisecond}
}

func (e *Engine) Init(ctx context.Context, prompt string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized || e.busy.Load() {
		return false
	}
	e.busy.Store(true)
	e.history = append(e.history, prompt)
	go e.run(ctx, "")
	return true
}

func (e *Engine) SubmitInput(ctx context.Context, text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.busy.Load() {
		return false
	}
	e.busy.Store(true)
	e.interrupted.Store(false)
	e.history = append(e.history, text)
	go e.run(ctx, text)
	return true
}

// run simulates token-by-token generation: it splits reply into words and
// emits one Update per word, checking the cooperative interrupt flag
// between words, then emits Done.
func (e *Engine) run(ctx context.Context, reply string) {
	defer func() {
		e.mu.Lock()
		e.initialized = true
		e.busy.Store(false)
		e.interrupted.Store(false)
		e.mu.Unlock()
		e.emit(engine.Event{Kind: engine.EventDone})
	}()

	words := strings.Fields(reply)
	for _, w := range words {
		if e.interrupted.Load() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(e.ChunkDelay):
		}
		e.emit(engine.Event{Kind: engine.EventUpdate, Chunk: w + " "})
	}
}

func (e *Engine) emit(ev engine.Event) {
	e.mu.Lock()
	ch := e.events
	e.mu.Unlock()
	if ch != nil {
		ch <- ev
	}
}

func (e *Engine) Stop() {
	e.interrupted.Store(true)
}

func (e *Engine) IsBusy() bool { return e.busy.Load() }

func (e *Engine) IsInitialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// Clone returns an independent copy carrying the same evaluated history,
// satisfying engine.Engine's Clone contract used by the fork coordinator.
func (e *Engine) Clone() engine.Engine {
	e.mu.Lock()
	defer e.mu.Unlock()

	return &Engine{
		initialized: e.initialized,
		ChunkDelay:  e.ChunkDelay,
		history:     append([]string(nil), e.history...),
	}
}

func (e *Engine) Subscribe(events chan<- engine.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = events
}

var _ engine.Engine = (*Engine)(nil)
