package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mharrison-oss/sessiond/internal/engine"
	"github.com/mharrison-oss/sessiond/internal/engine/fakeengine"
	"github.com/mharrison-oss/sessiond/internal/engine/geminiengine"
	"github.com/mharrison-oss/sessiond/internal/engine/openaiengine"
)

// buildEngine selects the root worker's engine.Engine backend from
// configuration. The fake backend is the zero-config default so the
// server runs without any API key; the real backends are opt-in via
// ENGINE_BACKEND, matching spec §7's single opaque-engine contract with
// three concrete, swappable implementations.
func buildEngine(ctx context.Context, cfg *Config, logger *slog.Logger) (engine.Engine, error) {
	switch cfg.EngineBackend {
	case "", "fake":
		logger.Info("engine: using fakeengine backend")
		return fakeengine.New(), nil

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("engine: OPENAI_API_KEY is required for ENGINE_BACKEND=openai")
		}
		logger.Info("engine: using openaiengine backend", slog.String("model", cfg.EngineModel))
		return openaiengine.New(openaiengine.Config{APIKey: cfg.OpenAIAPIKey, Model: cfg.EngineModel}), nil

	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("engine: GEMINI_API_KEY is required for ENGINE_BACKEND=gemini")
		}
		logger.Info("engine: using geminiengine backend", slog.String("model", cfg.EngineModel))
		return geminiengine.New(ctx, geminiengine.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.EngineModel})

	default:
		return nil, fmt.Errorf("engine: unknown ENGINE_BACKEND %q", cfg.EngineBackend)
	}
}
