// Package config provides type-safe environment variable loading with
// per-type caching: .env is loaded once via github.com/joho/godotenv, and
// struct fields are populated via github.com/caarlos0/env/v11. Process
// configuration (engine backend, model name, API keys, listen address) is
// read from the environment rather than argv, the usual 12-factor substitution.
package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	dotenvOnce sync.Once

	cacheMu sync.Mutex
	cache   = make(map[reflect.Type]any)
)

// Load parses environment variables into a freshly allocated *T, caching
// the result per type so repeated Load[T] calls return the same instance.
func Load[T any]() (*T, error) {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	t := reflect.TypeOf((*T)(nil)).Elem()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[t]; ok {
		return cached.(*T), nil
	}

	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", t.Name(), err)
	}

	cache[t] = &cfg
	return &cfg, nil
}

// MustLoad is Load, panicking on failure. Intended for use at process
// startup where a misconfigured environment should fail fast.
func MustLoad[T any]() *T {
	cfg, err := Load[T]()
	if err != nil {
		panic(err)
	}
	return cfg
}
