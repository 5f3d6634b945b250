// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type BotConfig struct {
	Token       string `yaml:"token"`
	Mode        string `yaml:"mode"`    // polling | webhook (future)
	Workers     int    `yaml:"workers"` // polling workers
	DefaultLang string `yaml:"default_lang"`
	PhotoPath   string `yaml:"photo_path"` // greeting picture sent after /start
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // conversation-state lifetime
}

type CryptoPayConfig struct {
	Token        string `yaml:"token"`         // live token (pay.crypt.bot)
	TestnetToken string `yaml:"testnet_token"` // testnet token (testnet-pay.crypt.bot)
	Testnet      bool   `yaml:"testnet"`
	WebhookPath  string `yaml:"webhook_path"`
	WebhookPort  int    `yaml:"webhook_port"`
}

type PaymentConfig struct {
	CryptoPay CryptoPayConfig `yaml:"cryptopay"`
}

// CatalogConfig describes the single item the shop sells.
type CatalogConfig struct {
	ItemID        string `yaml:"item_id"`
	Asset         string `yaml:"asset"`
	Amount        string `yaml:"amount"`
	Description   string `yaml:"description"`
	HiddenMessage string `yaml:"hidden_message"`
	ExpiresIn     int    `yaml:"expires_in"` // seconds
	ItemURL       string `yaml:"item_url"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Payment  PaymentConfig  `yaml:"payment"`
	Catalog  CatalogConfig  `yaml:"catalog"`
}

// Load reads the YAML config and applies env overrides for secrets so tokens
// can stay out of the file (BOT_TOKEN, CRYPTO_PAY_API_TOKEN,
// CRYPTO_PAY_API_TOKEN_TEST, DATABASE_URL, REDIS_URL).
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(&cfg.Bot.Token, "BOT_TOKEN")
	applyEnv(&cfg.Payment.CryptoPay.Token, "CRYPTO_PAY_API_TOKEN")
	applyEnv(&cfg.Payment.CryptoPay.TestnetToken, "CRYPTO_PAY_API_TOKEN_TEST")
	applyEnv(&cfg.Database.URL, "DATABASE_URL")
	applyEnv(&cfg.Redis.URL, "REDIS_URL")

	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Bot.DefaultLang == "" {
		cfg.Bot.DefaultLang = "en"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = 15 * time.Minute
	}
	if cfg.Payment.CryptoPay.WebhookPath == "" {
		cfg.Payment.CryptoPay.WebhookPath = "/api/cryptopay/webhook"
	}
	if cfg.Payment.CryptoPay.WebhookPort == 0 {
		cfg.Payment.CryptoPay.WebhookPort = 8081
	}
	if cfg.Catalog.ExpiresIn <= 0 {
		cfg.Catalog.ExpiresIn = 120
	}

	// Minimal validation: a missing credential must abort startup.
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.GatewayToken() == "" {
		return nil, errors.New("payment.cryptopay token for the selected network is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Catalog.Asset == "" || cfg.Catalog.Amount == "" {
		return nil, errors.New("catalog.asset and catalog.amount are required")
	}
	return &cfg, nil
}

// GatewayToken returns the Crypto Pay token for the selected network.
func (c *Config) GatewayToken() string {
	if c.Payment.CryptoPay.Testnet {
		return c.Payment.CryptoPay.TestnetToken
	}
	return c.Payment.CryptoPay.Token
}

func applyEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
