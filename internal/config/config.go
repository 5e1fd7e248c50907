package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN       string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL       string `env:"RABBITMQ_URL,required=true"`
	RedisURL          string `env:"REDIS_URL,required=true"`
	RateLimitPerSec   int    `env:"RATE_LIMIT_PER_SEC,default=100"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=16"`
	APIPort           int    `env:"API_PORT,default=8080"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`

	// Benefit policy knobs. Rates are percentages, e.g. 15 means 15%.
	TaxRatePercent      float64 `env:"TAX_RATE_PERCENT,default=0"`
	AdminFeeRatePercent float64 `env:"ADMIN_FEE_RATE_PERCENT,default=0"`
	RetirementAge       int     `env:"RETIREMENT_AGE,default=60"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.TaxRatePercent < 0 || cfg.TaxRatePercent >= 100 {
		return nil, fmt.Errorf("TAX_RATE_PERCENT must be in [0, 100), got %v", cfg.TaxRatePercent)
	}
	if cfg.AdminFeeRatePercent < 0 || cfg.AdminFeeRatePercent >= 100 {
		return nil, fmt.Errorf("ADMIN_FEE_RATE_PERCENT must be in [0, 100), got %v", cfg.AdminFeeRatePercent)
	}
	if cfg.RetirementAge <= 0 {
		return nil, fmt.Errorf("RETIREMENT_AGE must be positive, got %d", cfg.RetirementAge)
	}
	return &cfg, nil
}
