// Package config loads service configuration from the environment using
// viper, with typed defaults for every setting.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/livingtwin/ragsvc/internal/ratelimiter"
	"github.com/spf13/viper"
)

// Config holds every environment-tunable setting this service reads.
type Config struct {
	Port string `mapstructure:"PORT"`

	Neo4jURI      string `mapstructure:"NEO4J_URI"`
	Neo4jUser     string `mapstructure:"NEO4J_USER"`
	Neo4jPassword string `mapstructure:"NEO4J_PASSWORD"`
	VectorIndexName string `mapstructure:"VECTOR_INDEX_NAME"`

	VectorStoreBackend string `mapstructure:"VECTOR_STORE_BACKEND"` // "neo4j" | "qdrant"
	QdrantAddr         string `mapstructure:"QDRANT_ADDR"`
	QdrantCollection   string `mapstructure:"QDRANT_COLLECTION"`

	LLMProvider        string `mapstructure:"LLM_PROVIDER"` // "stub" | "ollama" | "openai"
	OllamaBaseURL      string `mapstructure:"OLLAMA_BASE_URL"`
	OllamaChatModel    string `mapstructure:"OLLAMA_CHAT_MODEL"`
	OllamaEmbedModel   string `mapstructure:"OLLAMA_EMBED_MODEL"`
	OpenAIAPIKey       string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel        string `mapstructure:"OPENAI_MODEL"`
	OpenAIEmbedModel   string `mapstructure:"OPENAI_EMBEDDING_MODEL"`
	LocalEmbeddings    bool   `mapstructure:"LOCAL_EMBEDDINGS"`
	EmbeddingDimensions int   `mapstructure:"EMBEDDING_DIMENSIONS"`
	RagOnly            bool   `mapstructure:"RAG_ONLY"`

	NATSURL string `mapstructure:"NATS_URL"`

	RedisAddr string `mapstructure:"REDIS_ADDR"`

	UseLocalMock bool `mapstructure:"USE_LOCAL_MOCK"`
	BypassAuth   bool `mapstructure:"BYPASS_AUTH"`

	CORSOrigin string `mapstructure:"CORS_ORIGIN"`

	RateLimitPerMinute int `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	RateLimitPerHour   int `mapstructure:"RATE_LIMIT_PER_HOUR"`
	RateLimitPerDay    int `mapstructure:"RATE_LIMIT_PER_DAY"`

	IngestWorkers int `mapstructure:"INGEST_WORKERS"`

	ShutdownGrace time.Duration `mapstructure:"SHUTDOWN_GRACE"`
}

// RateLimits converts the rate-limit fields to a ratelimiter.Limits value.
func (c Config) RateLimits() ratelimiter.Limits {
	return ratelimiter.Limits{
		PerMinute: c.RateLimitPerMinute,
		PerHour:   c.RateLimitPerHour,
		PerDay:    c.RateLimitPerDay,
	}
}

// Load populates a Config from the environment, applying defaults for
// anything unset.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := map[string]any{
		"PORT":                  "8080",
		"NEO4J_URI":             "neo4j://localhost:7687",
		"NEO4J_USER":            "neo4j",
		"NEO4J_PASSWORD":        "",
		"VECTOR_INDEX_NAME":     "chunk_embeddings",
		"VECTOR_STORE_BACKEND":  "neo4j",
		"QDRANT_ADDR":           "localhost:6334",
		"QDRANT_COLLECTION":     "chunks",
		"LLM_PROVIDER":          "stub",
		"OLLAMA_BASE_URL":       "http://localhost:11434",
		"OLLAMA_CHAT_MODEL":     "llama3",
		"OLLAMA_EMBED_MODEL":    "nomic-embed-text",
		"OPENAI_MODEL":          "gpt-4o-mini",
		"OPENAI_EMBEDDING_MODEL": "text-embedding-3-small",
		"LOCAL_EMBEDDINGS":      false,
		"EMBEDDING_DIMENSIONS":  64,
		"RAG_ONLY":              false,
		"NATS_URL":              "nats://localhost:4222",
		"REDIS_ADDR":            "localhost:6379",
		"USE_LOCAL_MOCK":        true,
		"BYPASS_AUTH":           false,
		"CORS_ORIGIN":           "*",
		"RATE_LIMIT_PER_MINUTE": 60,
		"RATE_LIMIT_PER_HOUR":   1000,
		"RATE_LIMIT_PER_DAY":    10000,
		"INGEST_WORKERS":        10,
		"SHUTDOWN_GRACE":        "10s",
	}
	for key, val := range defaults {
		v.SetDefault(key, val)
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
