package config

type ServiceConfig struct {
	Name            string `yaml:"name"`
	Environment     string `yaml:"environment"`
	Version         string `yaml:"version"`
	ClientURL       string `yaml:"client_url"`
	DefaultProvider string `yaml:"default_provider"`

	// Feature toggles
	UsePlanless   bool `yaml:"use_planless"`
	EnableSplit   bool `yaml:"enable_split"`
	SplitFallback bool `yaml:"split_fallback"`
	AsyncWebhooks bool `yaml:"async_webhooks"`

	// Override identifiers, useful in staging
	PlatformRecipientID string `yaml:"platform_recipient_id"`
	ClinicRecipientID   string `yaml:"clinic_recipient_id"`

	JWTSecret string `yaml:"jwt_secret"`

	Pagarme     PagarmeConfig     `yaml:"pagarme"`
	Appmax      AppmaxConfig      `yaml:"appmax"`
	OpenFinance OpenFinanceConfig `yaml:"openfinance"`
	Stripe      StripeConfig      `yaml:"stripe"`

	Redis RedisConfig `yaml:"redis"`
	Queue QueueConfig `yaml:"queue"`
}

type PagarmeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	PublicKey     string `yaml:"public_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type AppmaxConfig struct {
	AccessToken   string `yaml:"access_token"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type OpenFinanceConfig struct {
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// QueueConfig configures the SQS customer-sync outbox. With an empty URL the
// service falls back to an in-process worker.
type QueueConfig struct {
	CustomerSyncURL string `yaml:"customer_sync_url"`
	Region          string `yaml:"region"`
}
