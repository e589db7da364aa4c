package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port           int    `env:"PORT" envDefault:"8080"`
	DatabaseURL    string `env:"DATABASE_URL,required"`
	RedisURL       string `env:"REDIS_URL"`
	NightStartHour int    `env:"NIGHT_START_HOUR" envDefault:"19"`
	APISecret      string `env:"API_SECRET"`
	WebhookBaseURL string `env:"WEBHOOK_BASE_URL"`
	WebhookToken   string `env:"WEBHOOK_TOKEN"`
	StaticDir      string `env:"STATIC_DIR" envDefault:"static"`
	BabyName       string `env:"BABY_NAME" envDefault:"Baby"`
	Locale         string `env:"LOCALE" envDefault:"en"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// WebhookEnabled reports whether outbound state-change notifications are configured.
func (c *Config) WebhookEnabled() bool {
	return c.WebhookBaseURL != ""
}

func (c *Config) Validate() error {
	// A night start at or before the morning hour would classify every hour
	// as night and leave the day bucket permanently empty.
	if c.NightStartHour <= MorningHour || c.NightStartHour > 23 {
		return fmt.Errorf("NIGHT_START_HOUR must be between %d and 23, got %d", MorningHour+1, c.NightStartHour)
	}
	if c.WebhookBaseURL == "" && c.WebhookToken != "" {
		return fmt.Errorf("WEBHOOK_TOKEN is set but WEBHOOK_BASE_URL is empty")
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
