// Package config assembles runtime configuration from environment
// variables, with an optional YAML file overlay.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mnemolabs/mnemo/internal/cache"
	"github.com/mnemolabs/mnemo/internal/database"
	"github.com/mnemolabs/mnemo/internal/embeddings"
	"github.com/mnemolabs/mnemo/internal/llm"
	"github.com/mnemolabs/mnemo/internal/vectorstore/qdrant"
)

// MemoryConfig tunes the memory engine itself.
type MemoryConfig struct {
	// ShortTermReserveTokens is held back from the context window for
	// the model's reply.
	ShortTermReserveTokens int `yaml:"short_term_reserve_tokens"`
	// RetentionDays controls how long unreferenced long term memories
	// are kept before cleanup.
	RetentionDays int `yaml:"retention_days"`
	// RetrieveLimit is the default number of hits per semantic search.
	RetrieveLimit int `yaml:"retrieve_limit"`
}

// LoggingConfig controls logrus output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the top level configuration.
type Config struct {
	Redis      cache.Config      `yaml:"redis"`
	Database   database.Config   `yaml:"database"`
	Qdrant     qdrant.Config     `yaml:"qdrant"`
	Embedding  embeddings.Config `yaml:"embedding"`
	Completion llm.Config        `yaml:"completion"`
	Memory     MemoryConfig      `yaml:"memory"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// Load builds configuration from environment variables with sane local
// defaults.
func Load() *Config {
	return &Config{
		Redis: cache.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			PoolSize: getIntEnv("REDIS_POOL_SIZE", 10),
		},
		Database: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getIntEnv("DB_PORT", 5432),
			User:     getEnv("DB_USER", "mnemo"),
			Password: getEnv("DB_PASSWORD", "mnemo"),
			Name:     getEnv("DB_NAME", "mnemo"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntEnv("DB_MAX_CONNS", 10)),
		},
		Qdrant: qdrant.Config{
			Host:    getEnv("QDRANT_HOST", "localhost"),
			Port:    getIntEnv("QDRANT_PORT", 6333),
			APIKey:  getEnv("QDRANT_API_KEY", ""),
			UseTLS:  getBoolEnv("QDRANT_USE_TLS", false),
			Timeout: getDurationEnv("QDRANT_TIMEOUT", 30*time.Second),
		},
		Embedding: embeddings.Config{
			BaseURL:   getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
			APIKey:    getEnv("EMBEDDING_API_KEY", ""),
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimension: getIntEnv("EMBEDDING_DIMENSION", 1536),
			Timeout:   getDurationEnv("EMBEDDING_TIMEOUT", 30*time.Second),
		},
		Completion: llm.Config{
			BaseURL: getEnv("COMPLETION_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  getEnv("COMPLETION_API_KEY", ""),
			Model:   getEnv("COMPLETION_MODEL", "gpt-4o-mini"),
			Timeout: getDurationEnv("COMPLETION_TIMEOUT", 60*time.Second),
		},
		Memory: MemoryConfig{
			ShortTermReserveTokens: getIntEnv("MEMORY_RESERVE_TOKENS", 500),
			RetentionDays:          getIntEnv("MEMORY_RETENTION_DAYS", 90),
			RetrieveLimit:          getIntEnv("MEMORY_RETRIEVE_LIMIT", 5),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// LoadFile overlays YAML values from path onto cfg. Fields absent from
// the file keep their current values.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the sections that have hard requirements.
func (c *Config) Validate() error {
	if err := c.Qdrant.Validate(); err != nil {
		return err
	}
	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	if err := c.Completion.Validate(); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
