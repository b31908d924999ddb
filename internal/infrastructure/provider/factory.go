package provider

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/clinicpay/payment-service/internal/config"
	"github.com/clinicpay/payment-service/internal/domain/model"
	"github.com/clinicpay/payment-service/internal/domain/provider"
	appmaxProvider "github.com/clinicpay/payment-service/internal/infrastructure/provider/appmax"
	openfinanceProvider "github.com/clinicpay/payment-service/internal/infrastructure/provider/openfinance"
	pagarmeProvider "github.com/clinicpay/payment-service/internal/infrastructure/provider/pagarme"
	stripeProvider "github.com/clinicpay/payment-service/internal/infrastructure/provider/stripe"
)

// Factory creates payment provider adapters based on the provider type
type Factory struct {
	config *config.Config
	logger *zap.Logger
}

// NewFactory creates a new provider factory. The default provider's
// credentials are validated here so a misconfigured deployment fails at
// startup instead of on the first checkout.
func NewFactory(cfg *config.Config, logger *zap.Logger) (*Factory, error) {
	f := &Factory{
		config: cfg,
		logger: logger,
	}

	defaultType := provider.ProviderType(cfg.Service.DefaultProvider)
	if defaultType == "" {
		defaultType = provider.ProviderTypePagarme
	}
	if _, err := f.GetProvider(defaultType); err != nil {
		return nil, fmt.Errorf("default provider %s: %w", defaultType, err)
	}

	return f, nil
}

// GetProvider returns a payment provider adapter based on the provider type
func (f *Factory) GetProvider(providerType provider.ProviderType) (provider.Adapter, error) {
	switch providerType {
	case provider.ProviderTypePagarme:
		return f.createPagarmeAdapter()
	case provider.ProviderTypeAppmax:
		return f.createAppmaxAdapter()
	case provider.ProviderTypeOpenFinance:
		return f.createOpenFinanceAdapter()
	case provider.ProviderTypeStripe:
		return f.createStripeAdapter()
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

// GetProviderFromString returns a payment provider adapter from a string type
func (f *Factory) GetProviderFromString(providerStr string) (provider.Adapter, error) {
	if providerStr == "" {
		providerStr = f.config.Service.DefaultProvider
	}
	if providerStr == "" {
		providerStr = string(provider.ProviderTypePagarme)
	}

	return f.GetProvider(provider.ProviderType(providerStr))
}

// Resolve picks the adapter for a checkout. Routing is static today (the
// configured default, or the product's pinned provider when set); per-tenant
// routing plugs in here.
func (f *Factory) Resolve(clinic *model.Clinic, product *model.Product) (provider.Adapter, error) {
	if product != nil && product.Provider != "" {
		return f.GetProviderFromString(product.Provider)
	}
	return f.GetProviderFromString(f.config.Service.DefaultProvider)
}

func (f *Factory) createPagarmeAdapter() (provider.Adapter, error) {
	if f.config.Service.Pagarme.SecretKey == "" {
		return nil, fmt.Errorf("Pagar.me secret key not configured")
	}

	return pagarmeProvider.NewPagarmeAdapter(
		f.config.Service.Pagarme.SecretKey,
		f.config.Service.Pagarme.PublicKey,
		f.config.Service.Pagarme.WebhookSecret,
		f.logger,
	), nil
}

func (f *Factory) createAppmaxAdapter() (provider.Adapter, error) {
	if f.config.Service.Appmax.AccessToken == "" {
		return nil, fmt.Errorf("Appmax access token not configured")
	}

	return appmaxProvider.NewAppmaxAdapter(
		f.config.Service.Appmax.AccessToken,
		f.config.Service.Appmax.WebhookSecret,
		f.logger,
	), nil
}

func (f *Factory) createOpenFinanceAdapter() (provider.Adapter, error) {
	if f.config.Service.OpenFinance.ClientID == "" || f.config.Service.OpenFinance.ClientSecret == "" {
		return nil, fmt.Errorf("Open Finance credentials not configured")
	}

	return openfinanceProvider.NewOpenFinanceAdapter(
		f.config.Service.OpenFinance.ClientID,
		f.config.Service.OpenFinance.ClientSecret,
		f.config.Service.OpenFinance.WebhookSecret,
		f.config.Service.OpenFinance.BaseURL,
		f.logger,
	), nil
}

func (f *Factory) createStripeAdapter() (provider.Adapter, error) {
	if f.config.Service.Stripe.SecretKey == "" {
		return nil, fmt.Errorf("Stripe secret key not configured")
	}

	return stripeProvider.NewStripeAdapter(
		f.config.Service.Stripe.SecretKey,
		f.config.Service.Stripe.WebhookSecret,
		f.logger,
	), nil
}
