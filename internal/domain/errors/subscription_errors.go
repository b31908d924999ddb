package errors

import "errors"

var (
	// ErrProductNotSubscription indicates the product is not a recurring product
	ErrProductNotSubscription = errors.New("product is not a subscription product")

	// ErrMethodNotAllowed indicates the offer does not permit the requested payment method
	ErrMethodNotAllowed = errors.New("offer does not allow the requested payment method")

	// ErrMerchantNotConfigured indicates the merchant has no payout recipient configured
	ErrMerchantNotConfigured = errors.New("merchant has no payout recipient configured")

	// ErrInvalidAmount indicates the resolved unit amount is not positive
	ErrInvalidAmount = errors.New("resolved unit amount must be greater than zero")

	// ErrNoActiveSubscription indicates the customer has no active subscription
	ErrNoActiveSubscription = errors.New("no active subscription found")

	// ErrSubscriptionNotFound indicates the specified subscription was not found
	ErrSubscriptionNotFound = errors.New("subscription not found")
)
