// Package geminiengine is an engine.Engine backed by Google's Gemini
// streaming generate-content API (google.golang.org/genai), selectable as
// an alternate backend via ENGINE_BACKEND=gemini.
package geminiengine

import (
	"context"
	"sync"
	"sync/atomic"

	"google.golang.org/genai"

	"github.com/mharrison-oss/sessiond/internal/engine"
)

// Config configures an Engine.
type Config struct {
	APIKey string
	Model  string
}

const defaultModel = "gemini-2.0-flash"

// Engine drives one conversation against the Gemini API.
type Engine struct {
	client *genai.Client
	model  string

	mu          sync.Mutex
	initialized bool
	history     []*genai.Content

	busy atomic.Bool
	stop atomic.Bool

	events chan<- engine.Event
}

// New creates an Engine for the given configuration.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Engine{client: client, model: model}, nil
}

func (e *Engine) Init(ctx context.Context, prompt string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized || e.busy.Load() {
		return false
	}
	e.busy.Store(true)
	e.history = append(e.history, genai.NewContentFromText(prompt, genai.RoleUser))
	go e.generate(ctx, true)
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
	e.history = append(e.history, genai.NewContentFromText(text, genai.RoleUser))
	go e.generate(ctx, false)
	return true
}

func (e *Engine) generate(ctx context.Context, initOnly bool) {
	defer func() {
		e.mu.Lock()
		e.initialized = true
		e.busy.Store(false)
		e.stop.Store(false)
		e.mu.Unlock()
		e.emit(engine.Event{Kind: engine.EventDone})
	}()

	if initOnly {
		return
	}

	e.mu.Lock()
	history := append([]*genai.Content(nil), e.history...)
	e.mu.Unlock()

	var assembled string
	for chunk, err := range e.client.Models.GenerateContentStream(ctx, e.model, history, nil) {
		if e.stop.Load() {
			return
		}
		if err != nil {
			e.emit(engine.Event{Kind: engine.EventUpdate, Chunk: "[error: " + err.Error() + "]"})
			return
		}
		text := chunk.Text()
		if text == "" {
			continue
		}
		assembled += text
		e.emit(engine.Event{Kind: engine.EventUpdate, Chunk: text})
	}

	e.mu.Lock()
	e.history = append(e.history, genai.NewContentFromText(assembled, genai.RoleModel))
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

func (e *Engine) Clone() engine.Engine {
	e.mu.Lock()
	defer e.mu.Unlock()

	return &Engine{
		client:      e.client,
		model:       e.model,
		initialized: e.initialized,
		history:     append([]*genai.Content(nil), e.history...),
	}
}

func (e *Engine) Subscribe(events chan<- engine.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = events
}

var _ engine.Engine = (*Engine)(nil)
