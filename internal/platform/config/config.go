package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`

	TwitchClientID     string `env:"TWITCH_CLIENT_ID"`
	TwitchClientSecret string `env:"TWITCH_CLIENT_SECRET"` // empty selects the device-code flow
	YouTubeAPIKey      string `env:"YOUTUBE_API_KEY"`
	TelegramBotToken   string `env:"TELEGRAM_BOT_TOKEN"`

	// WebhookCallbackURL is the public URL the push hub delivers to. When
	// empty, push ingestion is disabled and the video poller runs instead.
	WebhookCallbackURL string `env:"WEBHOOK_CALLBACK_URL"`

	DataDir string `env:"DATA_DIR" default:"data"`

	StreamPollInterval time.Duration `env:"STREAM_POLL_INTERVAL" default:"10s"`
	VideoPollInterval  time.Duration `env:"VIDEO_POLL_INTERVAL" default:"2m"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"TWITCH_CLIENT_ID":   cfg.TwitchClientID,
		"YOUTUBE_API_KEY":    cfg.YouTubeAPIKey,
		"TELEGRAM_BOT_TOKEN": cfg.TelegramBotToken,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if cfg.StreamPollInterval < time.Second {
		return errors.New("STREAM_POLL_INTERVAL must be at least 1s")
	}
	if cfg.VideoPollInterval < 30*time.Second {
		return errors.New("VIDEO_POLL_INTERVAL must be at least 30s")
	}

	return nil
}

// UsesDeviceFlow reports whether the device-authorization token flow is
// selected (no client secret provisioned).
func (c *Config) UsesDeviceFlow() bool {
	return c.TwitchClientSecret == ""
}

// PushEnabled reports whether hub push ingestion is configured.
func (c *Config) PushEnabled() bool {
	return c.WebhookCallbackURL != ""
}
