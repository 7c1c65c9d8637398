package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN            string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL            string `env:"RABBITMQ_URL,required=true"`
	RedisURL               string `env:"REDIS_URL,required=true"`
	DatabaseMaxOpenConns   int    `env:"DATABASE_MAX_OPEN_CONNS,default=25"`
	BatchConcurrency       int    `env:"BATCH_CONCURRENCY,default=8"`
	MaxBatchSize           int    `env:"MAX_BATCH_SIZE,default=1000"`
	PersistRatePerSec      int    `env:"PERSIST_RATE_PER_SEC,default=200"`
	BatchStatusCacheTTLSec int    `env:"BATCH_STATUS_CACHE_TTL_SEC,default=3600"`
	BatchCallbackURL       string `env:"BATCH_CALLBACK_URL"`
	CallbackTimeoutSec     int    `env:"CALLBACK_TIMEOUT_SEC,default=10"`
	CallbackPrefetch       int    `env:"CALLBACK_PREFETCH,default=4"`
	APIPort                int    `env:"API_PORT,default=8080"`
	LogLevel               string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("BATCH_CONCURRENCY must be >= 1, got %d", c.BatchConcurrency)
	}
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("MAX_BATCH_SIZE must be >= 1, got %d", c.MaxBatchSize)
	}
	if c.CallbackTimeoutSec < 1 {
		return fmt.Errorf("CALLBACK_TIMEOUT_SEC must be >= 1, got %d", c.CallbackTimeoutSec)
	}
	if c.DatabaseMaxOpenConns < c.BatchConcurrency {
		return fmt.Errorf("DATABASE_MAX_OPEN_CONNS (%d) must not be lower than BATCH_CONCURRENCY (%d)",
			c.DatabaseMaxOpenConns, c.BatchConcurrency)
	}
	return nil
}
