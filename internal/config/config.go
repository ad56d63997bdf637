package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/varsilias/webhook-chat/internal/conversation"
	"github.com/varsilias/webhook-chat/internal/exchange"
	"github.com/varsilias/webhook-chat/internal/storage"
)

// Config aggregates every setting of the process.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Webhook WebhookConfig
	Storage StorageConfig
}

type ServerConfig struct {
	Addr           string   `env:"ADDR" envDefault:"8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	JSON  bool   `env:"LOG_JSON" envDefault:"false"`
}

type WebhookConfig struct {
	URL           string        `env:"WEBHOOK_URL"`
	Timeout       time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"0s"`
	RetryNetwork  bool          `env:"WEBHOOK_RETRY_NETWORK" envDefault:"false"`
	ResponseMode  string        `env:"WEBHOOK_RESPONSE_MODE" envDefault:"text"`
	SelfTest      bool          `env:"WEBHOOK_SELF_TEST" envDefault:"false"`
	UserAgent     string        `env:"USER_AGENT"`
	ContextWindow int           `env:"CONTEXT_WINDOW" envDefault:"5"`
}

type StorageConfig struct {
	Backend     string `env:"STORAGE_BACKEND" envDefault:"file"`
	Dir         string `env:"STORAGE_DIR" envDefault:"data"`
	DSN         string `env:"STORAGE_DSN" envDefault:"data/chat.db"`
	Key         string `env:"STORAGE_KEY"`
	MaxMessages int    `env:"MAX_MESSAGES" envDefault:"0"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// a missing .env is normal; real env vars always win
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Storage.Key == "" {
		cfg.Storage.Key = conversation.DefaultKey
	}
	cfg.Webhook.ResponseMode = strings.ToLower(strings.TrimSpace(cfg.Webhook.ResponseMode))
	return &cfg, nil
}

// ListenAddr accepts "8080", ":8080" or "host:8080".
func (s ServerConfig) ListenAddr() string {
	addr := strings.TrimSpace(s.Addr)
	if strings.Contains(addr, ":") {
		return addr
	}
	return ":" + addr
}

func (s StorageConfig) Options() storage.Options {
	return storage.Options{Backend: s.Backend, Dir: s.Dir, DSN: s.DSN}
}

var ErrWebhookURLRequired = errors.New("WEBHOOK_URL is required")

func (c *Config) Validate() error {
	var errs []error
	switch c.Webhook.ResponseMode {
	case exchange.ModeText, exchange.ModeJSON:
	default:
		errs = append(errs, fmt.Errorf("invalid WEBHOOK_RESPONSE_MODE %q (want text or json)", c.Webhook.ResponseMode))
	}
	switch c.Storage.Backend {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid STORAGE_BACKEND %q", c.Storage.Backend))
	}
	if c.Webhook.ContextWindow < 0 {
		errs = append(errs, fmt.Errorf("CONTEXT_WINDOW must be >= 0, got %d", c.Webhook.ContextWindow))
	}
	if err := storage.ValidateKey(c.Storage.Key); err != nil {
		errs = append(errs, fmt.Errorf("invalid STORAGE_KEY: %w", err))
	}
	if c.Storage.MaxMessages < 0 {
		errs = append(errs, fmt.Errorf("MAX_MESSAGES must be >= 0, got %d", c.Storage.MaxMessages))
	}
	if c.Webhook.Timeout < 0 {
		errs = append(errs, fmt.Errorf("WEBHOOK_TIMEOUT must be >= 0, got %s", c.Webhook.Timeout))
	}
	if c.Webhook.URL != "" {
		if err := checkURL(c.Webhook.URL); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RequireWebhook is Validate plus a mandatory endpoint.
func (c *Config) RequireWebhook() error {
	if strings.TrimSpace(c.Webhook.URL) == "" {
		return errors.Join(ErrWebhookURLRequired, c.Validate())
	}
	return c.Validate()
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid WEBHOOK_URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid WEBHOOK_URL %q: must be an absolute http(s) URL", raw)
	}
	return nil
}
