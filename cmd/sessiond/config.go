package main

// Config is sessiond's process-level configuration, loaded from the
// environment (internal/config) in place of the original design's argv
// parsing (spec §6/§7: "Engine configuration ... parsed from argv and
// passed to the root worker before fork").
type Config struct {
	AppName string `env:"APP_NAME" envDefault:"sessiond"`
	Env     string `env:"APP_ENV" envDefault:"development"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8880"`

	// EngineBackend selects which engine.Engine implementation the root
	// worker is built with: "fake" (default, no network access), "openai",
	// or "gemini".
	EngineBackend string `env:"ENGINE_BACKEND" envDefault:"fake"`
	EngineModel   string `env:"ENGINE_MODEL"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
}
