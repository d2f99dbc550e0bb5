package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bdobrica/Kioku/common/environment"
)

// Config holds application configuration. Values come from an optional YAML
// file, overridden by KIOKU_* environment variables.
type Config struct {
	// DatabasePath is the sqlite file backing both memory tiers.
	DatabasePath string `yaml:"database_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`

	// HTTPAddr is the TCP address for the optional health/status HTTP server
	// (e.g. ":8080"). When empty the server is disabled.
	HTTPAddr string `yaml:"http_addr"`

	// SessionTimeout is how long a session may idle before expiry.
	SessionTimeout time.Duration `yaml:"session_timeout"`

	// STMWindowSize is the per-chat message window of the short-term buffer.
	STMWindowSize int `yaml:"stm_window_size"`

	// STMTTL is the maximum message age in the short-term buffer.
	STMTTL time.Duration `yaml:"stm_ttl"`

	// SweepInterval is the cadence of the background TTL/session sweep loop.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// LTMBackend selects the long-term store: "sqlite" (default, durable)
	// or "chromem" (in-process, dev mode).
	LTMBackend string `yaml:"ltm_backend"`

	// EmbeddingProvider selects the embedder: "lexical" (default, local and
	// deterministic) or "openai".
	EmbeddingProvider string `yaml:"embedding_provider"`

	// EmbeddingAPIKey is the API key for the OpenAI-compatible embedding
	// provider. Read from KIOKU_EMBEDDING_API_KEY, never from the YAML file.
	EmbeddingAPIKey string `yaml:"-"`

	// EmbeddingEndpoint overrides the embedding API base URL.
	EmbeddingEndpoint string `yaml:"embedding_endpoint"`

	// EmbeddingModel overrides the embedding model name.
	EmbeddingModel string `yaml:"embedding_model"`
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		DatabasePath:      "kioku.db",
		LogLevel:          "info",
		LogFormat:         "text",
		SessionTimeout:    30 * time.Minute,
		STMWindowSize:     50,
		STMTTL:            24 * time.Hour,
		SweepInterval:     5 * time.Minute,
		LTMBackend:        "sqlite",
		EmbeddingProvider: "lexical",
	}
}

// LoadConfig builds the effective configuration: defaults, then the YAML
// file at path (skipped when path is empty), then environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.DatabasePath = environment.StringOr("KIOKU_DB_PATH", cfg.DatabasePath)
	cfg.LogLevel = environment.StringOr("KIOKU_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = environment.StringOr("KIOKU_LOG_FORMAT", cfg.LogFormat)
	cfg.HTTPAddr = environment.StringOr("KIOKU_HTTP_ADDR", cfg.HTTPAddr)
	cfg.SessionTimeout = environment.DurationOr("KIOKU_SESSION_TIMEOUT", cfg.SessionTimeout)
	cfg.STMWindowSize = environment.IntOr("KIOKU_STM_WINDOW_SIZE", cfg.STMWindowSize)
	cfg.STMTTL = environment.DurationOr("KIOKU_STM_TTL", cfg.STMTTL)
	cfg.SweepInterval = environment.DurationOr("KIOKU_SWEEP_INTERVAL", cfg.SweepInterval)
	cfg.LTMBackend = environment.StringOr("KIOKU_LTM_BACKEND", cfg.LTMBackend)
	cfg.EmbeddingProvider = environment.StringOr("KIOKU_EMBEDDING_PROVIDER", cfg.EmbeddingProvider)
	cfg.EmbeddingAPIKey = environment.StringOr("KIOKU_EMBEDDING_API_KEY", "")
	cfg.EmbeddingEndpoint = environment.StringOr("KIOKU_EMBEDDING_ENDPOINT", cfg.EmbeddingEndpoint)
	cfg.EmbeddingModel = environment.StringOr("KIOKU_EMBEDDING_MODEL", cfg.EmbeddingModel)

	if cfg.EmbeddingProvider == "openai" && cfg.EmbeddingAPIKey == "" {
		return Config{}, fmt.Errorf("config: embedding_provider is openai but KIOKU_EMBEDDING_API_KEY is not set")
	}

	return cfg, nil
}
