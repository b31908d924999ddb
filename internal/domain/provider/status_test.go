package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeOrderStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want PaymentStatus
	}{
		{"pending", PaymentStatusPending},
		{"waiting_payment", PaymentStatusPending},
		{"waiting_pix", PaymentStatusPending},
		{"analyzing", PaymentStatusProcessing},
		{"authorized", PaymentStatusAuthorized},
		{"pre_approved", PaymentStatusAuthorized},
		{"approved", PaymentStatusPaid},
		{"paid", PaymentStatusPaid},
		{"succeeded", PaymentStatusPaid},
		{"refused", PaymentStatusFailed},
		{"declined", PaymentStatusFailed},
		{"cancelled", PaymentStatusCanceled},
		{"voided", PaymentStatusCanceled},
		{"expired", PaymentStatusCanceled},
		{"refunded", PaymentStatusRefunded},
		{"chargedback", PaymentStatusRefunded},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, known := NormalizeOrderStatus(tt.raw)
			assert.True(t, known)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeOrderStatusUnknownDefaultsToPending(t *testing.T) {
	// An unrecognized status must never confirm a payment
	got, known := NormalizeOrderStatus("some_new_provider_status")
	assert.False(t, known)
	assert.Equal(t, PaymentStatusPending, got)
}

func TestNormalizeSubscriptionStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want SubscriptionStatus
	}{
		{"active", SubscriptionStatusActive},
		{"paid", SubscriptionStatusActive},
		{"trial", SubscriptionStatusTrial},
		{"trialing", SubscriptionStatusTrial},
		{"past_due", SubscriptionStatusPastDue},
		{"unpaid", SubscriptionStatusPastDue},
		{"incomplete", SubscriptionStatusPastDue},
		{"pending", SubscriptionStatusPending},
		{"future", SubscriptionStatusPending},
		{"canceled", SubscriptionStatusCanceled},
		{"cancelled", SubscriptionStatusCanceled},
		{"ended", SubscriptionStatusCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, known := NormalizeSubscriptionStatus(tt.raw)
			assert.True(t, known)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeSubscriptionStatusUnknownDefaultsToActive(t *testing.T) {
	// The opposite default from orders: an unknown state must not lock a
	// paying customer out
	got, known := NormalizeSubscriptionStatus("some_new_provider_status")
	assert.False(t, known)
	assert.Equal(t, SubscriptionStatusActive, got)
}

func TestPaymentStatusIsTerminal(t *testing.T) {
	// Authorized is terminal for polling: capture is a merchant action
	terminal := []PaymentStatus{PaymentStatusAuthorized, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCanceled, PaymentStatusRefunded}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), string(s))
	}

	open := []PaymentStatus{PaymentStatusPending, PaymentStatusProcessing}
	for _, s := range open {
		assert.False(t, s.IsTerminal(), string(s))
	}
}

func TestIsRecipientNotFound(t *testing.T) {
	assert.True(t, IsRecipientNotFound(&ProviderError{Code: ErrCodeRecipientNotFound, Message: "recipient not found"}))
	assert.False(t, IsRecipientNotFound(&ProviderError{Code: "CARD_DECLINED", Message: "declined"}))
	assert.False(t, IsRecipientNotFound(nil))
}
