package scansvc

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	chipconfig "github.com/avvvet/tapchip-services/internal/chipsvc/config"
)

type Config struct {
	Port          string `env:"SCAN_SERVICE_PORT"   envDefault:"8090"`
	MongoURI      string `env:"MONGODB_URI"         envDefault:"mongodb://localhost:27017/tapchip"`
	RetentionDays int    `env:"SCAN_RETENTION_DAYS" envDefault:"365"`
	QueueGroup    string `env:"SCAN_QUEUE_GROUP"    envDefault:"scan-archive"`
	RateLimit     int    `env:"RATE_LIMIT"          envDefault:"120"`
	JWTSecret     string `env:"JWT_SECRET_KEY"`
	NATS          chipconfig.NATS
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.RetentionDays <= 0 {
		return Config{}, fmt.Errorf("SCAN_RETENTION_DAYS must be positive")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET_KEY is required")
	}
	return cfg, nil
}

func (c Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
