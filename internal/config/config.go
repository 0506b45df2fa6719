// Package config loads chessmate's runtime configuration from environment
// variables via viper, following the same bind/default/unmarshal shape the
// original service used for its own config.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/hendrikreh/chessmate/internal/errs"
)

// Config is the fully resolved runtime configuration (spec §6).
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Server   ServerConfig   `mapstructure:"server"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	PoolSize int    `mapstructure:"pool_size"`
}

type OpenAIConfig struct {
	APIKey            string `mapstructure:"api_key"`
	EmbeddingEndpoint string `mapstructure:"embedding_endpoint"`
	RetryMaxAttempts  int    `mapstructure:"retry_max_attempts"`
	RetryBaseDelayMs  int    `mapstructure:"retry_base_delay_ms"`
}

type QdrantConfig struct {
	URL        string `mapstructure:"url"`
	Collection string `mapstructure:"collection"`
}

type WorkerConfig struct {
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	BatchSize           int `mapstructure:"batch_size"`
	Concurrency         int `mapstructure:"concurrency"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Load reads configuration from the environment (spec §6's env-var table).
// DATABASE_URL and OPENAI_API_KEY are required; their absence is a fatal
// errs.Config error rather than a zero-valued field.
func Load() (*Config, error) {
	viper.SetEnvPrefix("CHESSMATE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.pool_size", "CHESSMATE_DB_POOL_SIZE")
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("openai.embedding_endpoint", "OPENAI_EMBEDDING_ENDPOINT")
	viper.BindEnv("openai.retry_max_attempts", "OPENAI_RETRY_MAX_ATTEMPTS")
	viper.BindEnv("openai.retry_base_delay_ms", "OPENAI_RETRY_BASE_DELAY_MS")
	viper.BindEnv("qdrant.url", "QDRANT_URL")
	viper.BindEnv("qdrant.collection", "CHESSMATE_QDRANT_COLLECTION")
	viper.BindEnv("worker.poll_interval_seconds", "CHESSMATE_WORKER_POLL_INTERVAL_SECONDS")
	viper.BindEnv("worker.batch_size", "CHESSMATE_WORKER_BATCH_SIZE")
	viper.BindEnv("worker.concurrency", "CHESSMATE_WORKER_CONCURRENCY")
	viper.BindEnv("server.host", "CHESSMATE_SERVER_HOST")
	viper.BindEnv("server.port", "CHESSMATE_SERVER_PORT")

	viper.SetDefault("database.pool_size", 10)
	viper.SetDefault("openai.embedding_endpoint", "https://api.openai.com/v1/embeddings")
	viper.SetDefault("openai.retry_max_attempts", 5)
	viper.SetDefault("openai.retry_base_delay_ms", 250)
	viper.SetDefault("qdrant.collection", "chessmate_positions")
	viper.SetDefault("worker.poll_interval_seconds", 2)
	viper.SetDefault("worker.batch_size", 16)
	viper.SetDefault("worker.concurrency", 4)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	if cfg.Database.URL == "" {
		return nil, errs.Config("DATABASE_URL")
	}
	if cfg.OpenAI.APIKey == "" {
		return nil, errs.Config("OPENAI_API_KEY")
	}

	return &cfg, nil
}
