// Package openaiengine is an engine.Engine backed by OpenAI's streaming
// Chat Completions API. The client is constructed the same way the
// teacher's vectorizer package builds an OpenAI client for embeddings
// (openai.NewClient(option.WithAPIKey(...))); here it drives a streamed
// chat completion instead, feeding each content delta as an engine.Event.
package openaiengine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mharrison-oss/sessiond/internal/engine"
)

// Config configures an Engine.
type Config struct {
	APIKey string
	Model  string
}

const defaultModel = openai.ChatModelGPT4oMini

// Engine drives one conversation against the OpenAI Chat Completions API.
type Engine struct {
	client openai.Client
	model  string

	mu          sync.Mutex
	initialized bool
	messages    []openai.ChatCompletionMessageParamUnion

	busy atomic.Bool
	stop atomic.Bool

	events chan<- engine.Event
}

// New creates an Engine for the given configuration.
func New(cfg Config) *Engine {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Engine{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  model,
	}
}

func (e *Engine) Init(ctx context.Context, prompt string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized || e.busy.Load() {
		return false
	}
	e.busy.Store(true)
	e.messages = append(e.messages, openai.SystemMessage(prompt))
	go e.stream(ctx, true)
	return true
}

func (e *Engine) SubmitInput(ctx context.Context, text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.busy.Load() {
		return false
	}
	e.busy.Store(true)
	e.stop.Store(false)
	e.messages = append(e.messages, openai.UserMessage(text))
	go e.stream(ctx, false)
	return true
}

func (e *Engine) stream(ctx context.Context, initOnly bool) {
	defer func() {
		e.mu.Lock()
		e.initialized = true
		e.busy.Store(false)
		e.stop.Store(false)
		e.mu.Unlock()
		e.emit(engine.Event{Kind: engine.EventDone})
	}()

	// Init carries no model call of its own: it just stages the system
	// prompt, mirroring the opaque engine's init(prompt) priming step.
	if initOnly {
		return
	}

	e.mu.Lock()
	params := openai.ChatCompletionNewParams{
		Model:    e.model,
		Messages: append([]openai.ChatCompletionMessageParamUnion(nil), e.messages...),
	}
	e.mu.Unlock()

	stream := e.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var assembled string
	for stream.Next() {
		if e.stop.Load() {
			return
		}
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		assembled += delta
		e.emit(engine.Event{Kind: engine.EventUpdate, Chunk: delta})
	}

	if err := stream.Err(); err != nil {
		e.emit(engine.Event{Kind: engine.EventUpdate, Chunk: "[error: " + err.Error() + "]"})
		return
	}

	e.mu.Lock()
	e.messages = append(e.messages, openai.AssistantMessage(assembled))
	e.mu.Unlock()
}

func (e *Engine) emit(ev engine.Event) {
	e.mu.Lock()
	ch := e.events
	e.mu.Unlock()
	if ch != nil {
		ch <- ev
	}
}

func (e *Engine) Stop() { e.stop.Store(true) }

func (e *Engine) IsBusy() bool { return e.busy.Load() }

func (e *Engine) IsInitialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// Clone hands a forked worker an independent copy of the conversation so
// far, the model-call analogue of page-sharing a live process.
func (e *Engine) Clone() engine.Engine {
	e.mu.Lock()
	defer e.mu.Unlock()

	return &Engine{
		client:      e.client,
		model:       e.model,
		initialized: e.initialized,
		messages:    append([]openai.ChatCompletionMessageParamUnion(nil), e.messages...),
	}
}

func (e *Engine) Subscribe(events chan<- engine.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = events
}

var _ engine.Engine = (*Engine)(nil)
