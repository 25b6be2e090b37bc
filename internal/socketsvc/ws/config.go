package ws

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	chipconfig "github.com/avvvet/tapchip-services/internal/chipsvc/config"
)

// Config is the socket service environment.
type Config struct {
	Port           string        `env:"SOCKET_SERVICE_PORT"  envDefault:"8081"`
	StoreDriver    string        `env:"STORE_DRIVER"         envDefault:"postgres"`
	DBUrl          string        `env:"POSTGRES_URL"`
	SQLitePath     string        `env:"SQLITE_PATH"          envDefault:"tapchip.db"`
	JWTSecret      string        `env:"JWT_SECRET_KEY"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	RateLimit      int           `env:"RATE_LIMIT"           envDefault:"120"`
	PingInterval   time.Duration `env:"SOCKET_PING_INTERVAL" envDefault:"30s"`
	NATS           chipconfig.NATS
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET_KEY is required")
	}
	return cfg, nil
}

// StoreTarget is the DSN or file path for the configured driver.
func (c Config) StoreTarget() string {
	if c.StoreDriver == chipconfig.DriverSQLite {
		return c.SQLitePath
	}
	return c.DBUrl
}
