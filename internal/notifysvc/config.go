package notifysvc

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	chipconfig "github.com/avvvet/tapchip-services/internal/chipsvc/config"
)

type Config struct {
	BotToken   string  `env:"TELEGRAM_BOT_TOKEN"`
	ChatIDs    []int64 `env:"TELEGRAM_CHAT_IDS"  envSeparator:","`
	QueueGroup string  `env:"NOTIFY_QUEUE_GROUP" envDefault:"ops-notify"`
	NATS       chipconfig.NATS
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.BotToken == "" || len(cfg.ChatIDs) == 0 {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_IDS are required")
	}
	return cfg, nil
}
