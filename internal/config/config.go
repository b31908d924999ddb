package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
}

// LoadConfig reads the YAML config file, applies environment overrides and
// validates. Validation runs here, at process start, so a half-configured
// service never accepts traffic.
func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/payment.yaml"
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(absPath)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides lets environment variables win over the YAML file, so
// secrets never need to live on disk.
func (c *Config) applyEnvOverrides() {
	overrideString(&c.Database.URL, "DATABASE_URL")
	overrideString(&c.Service.DefaultProvider, "PAYMENT_DEFAULT_PROVIDER")
	overrideString(&c.Service.Pagarme.SecretKey, "PAGARME_SECRET_KEY")
	overrideString(&c.Service.Pagarme.PublicKey, "PAGARME_PUBLIC_KEY")
	overrideString(&c.Service.Pagarme.WebhookSecret, "PAGARME_WEBHOOK_SECRET")
	overrideString(&c.Service.Appmax.AccessToken, "APPMAX_ACCESS_TOKEN")
	overrideString(&c.Service.Appmax.WebhookSecret, "APPMAX_WEBHOOK_SECRET")
	overrideString(&c.Service.OpenFinance.ClientID, "OPENFINANCE_CLIENT_ID")
	overrideString(&c.Service.OpenFinance.ClientSecret, "OPENFINANCE_CLIENT_SECRET")
	overrideString(&c.Service.OpenFinance.WebhookSecret, "OPENFINANCE_WEBHOOK_SECRET")
	overrideString(&c.Service.OpenFinance.BaseURL, "OPENFINANCE_BASE_URL")
	overrideString(&c.Service.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	overrideString(&c.Service.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	overrideString(&c.Service.PlatformRecipientID, "PLATFORM_RECIPIENT_ID")
	overrideString(&c.Service.ClinicRecipientID, "CLINIC_RECIPIENT_ID")
	overrideString(&c.Service.JWTSecret, "JWT_SECRET")
	overrideString(&c.Service.Redis.Addr, "REDIS_ADDR")
	overrideString(&c.Service.Queue.CustomerSyncURL, "CUSTOMER_SYNC_QUEUE_URL")
	overrideString(&c.Service.Queue.Region, "AWS_REGION")

	overrideBool(&c.Service.UsePlanless, "PAYMENT_USE_PLANLESS")
	overrideBool(&c.Service.EnableSplit, "PAYMENT_ENABLE_SPLIT")
	overrideBool(&c.Service.SplitFallback, "PAYMENT_SPLIT_FALLBACK")
	overrideBool(&c.Service.AsyncWebhooks, "WEBHOOK_ASYNC")
}

// Validate fails fast on missing mandatory configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration is required (DATABASE_URL or database.host)")
	}

	switch c.Service.DefaultProvider {
	case "", "pagarme":
		c.Service.DefaultProvider = "pagarme"
		if c.Service.Pagarme.SecretKey == "" {
			return fmt.Errorf("PAGARME_SECRET_KEY is required when pagarme is the default provider")
		}
	case "appmax":
		if c.Service.Appmax.AccessToken == "" {
			return fmt.Errorf("APPMAX_ACCESS_TOKEN is required when appmax is the default provider")
		}
	case "openfinance":
		if c.Service.OpenFinance.ClientID == "" || c.Service.OpenFinance.ClientSecret == "" {
			return fmt.Errorf("openfinance client credentials are required when openfinance is the default provider")
		}
	case "stripe":
		if c.Service.Stripe.SecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required when stripe is the default provider")
		}
	default:
		return fmt.Errorf("unknown default provider: %s", c.Service.DefaultProvider)
	}

	return nil
}

// SplitMisconfigured reports split mode enabled without a platform recipient.
// Non-fatal: a later payment call fails more informatively, but operators
// should see a warning at startup.
func (c *Config) SplitMisconfigured() bool {
	return c.Service.EnableSplit && c.Service.PlatformRecipientID == ""
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}
