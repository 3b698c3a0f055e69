// Package config loads and validates application configuration from
// environment variables and the workforce YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Workforce file with per-agent settings.
	WorkforcePath string

	// Executor settings.
	ExecutorProvider string // "auto", "ollama", "openai", or "static"
	OpenAIAPIKey     string
	OpenAIModel      string
	OllamaURL        string
	OllamaModel      string

	// Memory settings.
	MemoryBackend    string // "auto", "qdrant", or "local"
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	// Embedding provider settings for the vector memory store.
	EmbeddingProvider   string // "auto", "openai", "ollama", or "noop"
	EmbeddingModel      string
	EmbeddingDimensions int
	OllamaEmbedModel    string

	// Notifier settings.
	TelegramBotToken string
	TelegramChatID   string

	// Run archive settings. Empty path disables the archive.
	ArchivePath string

	// OTEL settings.
	OTELEndpoint string
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                envInt("KOYOMI_PORT", 8080),
		ReadTimeout:         envDuration("KOYOMI_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        envDuration("KOYOMI_WRITE_TIMEOUT", 30*time.Second),
		WorkforcePath:       envStr("KOYOMI_WORKFORCE", "workforce.yaml"),
		ExecutorProvider:    envStr("KOYOMI_EXECUTOR", "auto"),
		OpenAIAPIKey:        envStr("OPENAI_API_KEY", ""),
		OpenAIModel:         envStr("KOYOMI_OPENAI_MODEL", "gpt-4o-mini"),
		OllamaURL:           envStr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:         envStr("OLLAMA_MODEL", "llama3.2"),
		MemoryBackend:       envStr("KOYOMI_MEMORY", "auto"),
		QdrantURL:           envStr("QDRANT_URL", ""),
		QdrantAPIKey:        envStr("QDRANT_API_KEY", ""),
		QdrantCollection:    envStr("KOYOMI_QDRANT_COLLECTION", "koyomi_memories"),
		EmbeddingProvider:   envStr("KOYOMI_EMBEDDING_PROVIDER", "auto"),
		EmbeddingModel:      envStr("KOYOMI_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimensions: envInt("KOYOMI_EMBEDDING_DIMENSIONS", 1024),
		OllamaEmbedModel:    envStr("KOYOMI_OLLAMA_EMBED_MODEL", "mxbai-embed-large"),
		TelegramBotToken:    envStr("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:      envStr("TELEGRAM_CHAT_ID", ""),
		ArchivePath:         envStr("KOYOMI_ARCHIVE_PATH", ""),
		OTELEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:         envStr("OTEL_SERVICE_NAME", "koyomi"),
		LogLevel:            envStr("KOYOMI_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and coherent.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: KOYOMI_PORT must be in 1..65535")
	}
	if c.WorkforcePath == "" {
		return fmt.Errorf("config: KOYOMI_WORKFORCE is required")
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("config: KOYOMI_EMBEDDING_DIMENSIONS must be positive")
	}
	switch c.ExecutorProvider {
	case "auto", "ollama", "openai", "static":
	default:
		return fmt.Errorf("config: unknown KOYOMI_EXECUTOR %q", c.ExecutorProvider)
	}
	switch c.MemoryBackend {
	case "auto", "qdrant", "local":
	default:
		return fmt.Errorf("config: unknown KOYOMI_MEMORY %q", c.MemoryBackend)
	}
	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("config: TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
