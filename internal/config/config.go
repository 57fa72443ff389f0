package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		Mode string `yaml:"mode"` // gin mode: debug, release or test
		// SecureCookies marks participant and session cookies Secure.
		SecureCookies bool `yaml:"secure_cookies"`
	} `yaml:"server"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"` // session grant ttl
	} `yaml:"redis"`
	Auth struct {
		OrganizerSecret   string `yaml:"organizer_secret"`
		ParticipantSecret string `yaml:"participant_secret"`
		ParticipantTTL    string `yaml:"participant_ttl"`
	} `yaml:"auth"`
	Payments struct {
		// StripeSecretKey selects Stripe Checkout over plain checkout links.
		StripeSecretKey string `yaml:"stripe_secret_key"`
		CheckoutURL     string `yaml:"checkout_url"`
		SuccessURL      string `yaml:"success_url"`
		CancelURL       string `yaml:"cancel_url"`
		WebhookToken    string `yaml:"webhook_token"`
	} `yaml:"payments"`
	Prompts struct {
		File string `yaml:"file"`
		TTL  string `yaml:"ttl"`
	} `yaml:"prompts"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text or json
	} `yaml:"log"`
}

// Load reads YAML config from path, then applies .env and environment overrides.
// Environment values win over the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	overrideFromEnv(&cfg)
	return cfg, nil
}

func overrideFromEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Postgres.URL, "DATABASE_URL")
	set(&cfg.Redis.Addr, "REDIS_ADDR")
	set(&cfg.Redis.Password, "REDIS_PASSWORD")
	set(&cfg.Auth.OrganizerSecret, "ORGANIZER_TOKEN_SECRET")
	set(&cfg.Auth.ParticipantSecret, "PARTICIPANT_TOKEN_SECRET")
	set(&cfg.Payments.WebhookToken, "PAYMENT_WEBHOOK_TOKEN")
	set(&cfg.Payments.CheckoutURL, "PAYMENT_CHECKOUT_URL")
	set(&cfg.Payments.StripeSecretKey, "STRIPE_SECRET_KEY")
	set(&cfg.Log.Level, "LOG_LEVEL")
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
