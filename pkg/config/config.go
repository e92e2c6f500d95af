// Package config loads the process configuration from the environment into
// an explicit struct passed to component constructors. There is no ambient
// configuration singleton.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Default collection names. The local-model and remote-API collections hold
// vectors from different embedding spaces and are never merged or
// cross-queried.
const (
	DefaultCollection       = "sat_courses"
	DefaultOpenAICollection = "sat_courses_openai"
)

// Config holds every externally supplied setting.
type Config struct {
	// LINE Messaging API credentials.
	ChannelAccessToken string
	ChannelSecret      string

	// OpenAI embeddings.
	OpenAIAPIKey string
	OpenAIModel  string

	// Local Ollama embeddings.
	OllamaURL   string
	OllamaModel string
	OllamaDims  int

	// Vector store.
	QdrantAddr string

	Collection       string
	OpenAICollection string

	// Query cache database path. Empty disables the cache.
	CacheDB string
}

// Load reads .env if present, then the environment. Missing optional values
// fall back to defaults; credentials are validated by the commands that need
// them, not here.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{
		ChannelAccessToken: os.Getenv("CHANNEL_ACCESS_TOKEN"),
		ChannelSecret:      os.Getenv("CHANNEL_SECRET"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        envOr("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		OllamaURL:          envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:        envOr("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		OllamaDims:         768,
		QdrantAddr:         envOr("QDRANT_ADDR", "localhost:6334"),
		Collection:         envOr("COLLECTION", DefaultCollection),
		OpenAICollection:   envOr("OPENAI_COLLECTION", DefaultOpenAICollection),
		CacheDB:            os.Getenv("CACHE_DB"),
	}

	if v := os.Getenv("OLLAMA_EMBED_DIMS"); v != "" {
		dims, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: OLLAMA_EMBED_DIMS: %w", err)
		}
		cfg.OllamaDims = dims
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
