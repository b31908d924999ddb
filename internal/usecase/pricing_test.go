package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicpay/payment-service/internal/domain/model"
)

func TestComputeAmountCents(t *testing.T) {
	tests := []struct {
		name    string
		items   []CheckoutItem
		want    int64
		wantErr string
	}{
		{
			name:  "cents win over decimal price",
			items: []CheckoutItem{{Name: "Consult", Quantity: 1, UnitPrice: "99.99", UnitPriceCents: 15000}},
			want:  15000,
		},
		{
			name:  "decimal price converts to minor units",
			items: []CheckoutItem{{Name: "Consult", Quantity: 2, UnitPrice: "49.90"}},
			want:  9980,
		},
		{
			name: "mixed cart totals exactly",
			items: []CheckoutItem{
				{Name: "Consult", Quantity: 3, UnitPrice: "0.10"},
				{Name: "Exam", Quantity: 1, UnitPrice: "0.20"},
			},
			want: 50,
		},
		{
			name:    "zero quantity",
			items:   []CheckoutItem{{Name: "Consult", Quantity: 0, UnitPrice: "49.90"}},
			wantErr: "quantity must be positive",
		},
		{
			name:    "malformed price",
			items:   []CheckoutItem{{Name: "Consult", Quantity: 1, UnitPrice: "forty nine"}},
			wantErr: "invalid unit price",
		},
		{
			name:    "missing price",
			items:   []CheckoutItem{{Name: "Consult", Quantity: 1}},
			wantErr: "unit price is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeAmountCents(tt.items)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUnitAmount(t *testing.T) {
	product := &model.Product{PriceCents: 10000, Currency: "BRL"}
	offer := &model.Offer{
		PriceCents: 9900,
		Currency:   "BRL",
		Prices: []model.OfferPrice{
			{Country: "US", Provider: "stripe", UnitAmountCents: 1999, Currency: "USD"},
			{Country: "US", UnitAmountCents: 2499, Currency: "USD"},
			{Country: "MX", UnitAmountCents: 34900, Currency: "MXN"},
		},
	}

	t.Run("country and provider match wins", func(t *testing.T) {
		amount, currency := ResolveUnitAmount(offer, product, "US", "stripe")
		assert.Equal(t, int64(1999), amount)
		assert.Equal(t, "USD", currency)
	})

	t.Run("country match without provider", func(t *testing.T) {
		amount, currency := ResolveUnitAmount(offer, product, "US", "pagarme")
		assert.Equal(t, int64(2499), amount)
		assert.Equal(t, "USD", currency)
	})

	t.Run("unlocalized country falls back to offer base", func(t *testing.T) {
		amount, currency := ResolveUnitAmount(offer, product, "AR", "pagarme")
		assert.Equal(t, int64(9900), amount)
		assert.Equal(t, "BRL", currency)
	})

	t.Run("no country falls back to offer base", func(t *testing.T) {
		amount, currency := ResolveUnitAmount(offer, product, "", "pagarme")
		assert.Equal(t, int64(9900), amount)
		assert.Equal(t, "BRL", currency)
	})

	t.Run("offer without base price falls back to product", func(t *testing.T) {
		amount, currency := ResolveUnitAmount(&model.Offer{}, product, "", "pagarme")
		assert.Equal(t, int64(10000), amount)
		assert.Equal(t, "BRL", currency)
	})

	t.Run("nil offer uses product price", func(t *testing.T) {
		amount, currency := ResolveUnitAmount(nil, product, "BR", "pagarme")
		assert.Equal(t, int64(10000), amount)
		assert.Equal(t, "BRL", currency)
	})

	t.Run("nothing resolvable", func(t *testing.T) {
		amount, currency := ResolveUnitAmount(nil, nil, "", "")
		assert.Equal(t, int64(0), amount)
		assert.Equal(t, "", currency)
	})
}
