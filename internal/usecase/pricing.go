package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/clinicpay/payment-service/internal/domain/model"
)

var minorUnits = decimal.NewFromInt(100)

// CheckoutItem is one line of a checkout cart. UnitPrice is a decimal string
// in major units ("49.90"); UnitPriceCents wins when both are set.
type CheckoutItem struct {
	SKU            string `json:"sku,omitempty"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPrice      string `json:"unit_price,omitempty"`
	UnitPriceCents int64  `json:"unit_price_cents,omitempty"`
}

// ComputeAmountCents totals a cart in minor units. All arithmetic goes
// through decimal so "0.1 + 0.2" style drift can never reach a charge.
func ComputeAmountCents(items []CheckoutItem) (int64, error) {
	total := decimal.Zero

	for i, item := range items {
		if item.Quantity <= 0 {
			return 0, fmt.Errorf("item %d: quantity must be positive", i)
		}

		var unit decimal.Decimal
		switch {
		case item.UnitPriceCents > 0:
			unit = decimal.NewFromInt(item.UnitPriceCents)
		case item.UnitPrice != "":
			parsed, err := decimal.NewFromString(item.UnitPrice)
			if err != nil {
				return 0, fmt.Errorf("item %d: invalid unit price %q", i, item.UnitPrice)
			}
			unit = parsed.Mul(minorUnits)
		default:
			return 0, fmt.Errorf("item %d: unit price is required", i)
		}

		total = total.Add(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	cents := total.Round(0).IntPart()
	if cents <= 0 {
		return 0, fmt.Errorf("cart total must be positive")
	}
	return cents, nil
}

// ResolveUnitAmount resolves the charge amount for an offer. Priority:
// country+provider localized price, then country price, then the offer base
// price, then the product base price. Returns the amount in minor units and
// the currency.
func ResolveUnitAmount(offer *model.Offer, product *model.Product, country, providerName string) (int64, string) {
	if offer != nil {
		if country != "" {
			for _, price := range offer.Prices {
				if price.Country == country && price.Provider == providerName {
					return price.UnitAmountCents, price.Currency
				}
			}
			for _, price := range offer.Prices {
				if price.Country == country && price.Provider == "" {
					return price.UnitAmountCents, price.Currency
				}
			}
		}
		if offer.PriceCents > 0 {
			return offer.PriceCents, offer.Currency
		}
	}

	if product != nil {
		return product.PriceCents, product.Currency
	}
	return 0, ""
}
