// Package config resolves runtime settings from the environment. Every knob
// has a working default; Redis and OpenAI stay disabled unless configured.
package config

import "os"

// Settings holds the process configuration.
type Settings struct {
	// ListenAddr is the HTTP API bind address.
	ListenAddr string

	// RedisAddr enables Redis-backed stores when non-empty; otherwise the
	// in-memory stores are used.
	RedisAddr   string
	RedisPrefix string

	// OpenAIKey enables the completion backend when non-empty.
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	LogLevel string
}

// FromEnv reads PARLEY_* variables, falling back to defaults.
func FromEnv() Settings {
	return Settings{
		ListenAddr:    envOr("PARLEY_LISTEN_ADDR", ":8080"),
		RedisAddr:     os.Getenv("PARLEY_REDIS_ADDR"),
		RedisPrefix:   envOr("PARLEY_REDIS_PREFIX", "parley"),
		OpenAIKey:     os.Getenv("PARLEY_OPENAI_API_KEY"),
		OpenAIModel:   os.Getenv("PARLEY_OPENAI_MODEL"),
		OpenAIBaseURL: os.Getenv("PARLEY_OPENAI_BASE_URL"),
		LogLevel:      envOr("PARLEY_LOG_LEVEL", "info"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
