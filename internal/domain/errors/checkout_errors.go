package errors

import (
	"fmt"
	"net/http"
)

// Checkout step tags. Every error surfaced by the checkout flow carries the
// step where the precondition failed so the response `{error, step, details}`
// pinpoints the failure.
const (
	StepInputValidation = "input_validation"
	StepResolveProduct  = "resolve_product"
	StepResolveClinic   = "resolve_clinic"
	StepResolveMerchant = "resolve_merchant"
	StepResolveOffer    = "resolve_offer"
	StepResolvePrice    = "resolve_price"
	StepCreateCustomer  = "create_customer"
	StepCreateOrder     = "create_order"
	StepTokenizeCard    = "tokenize_card"
	StepPaymentCard     = "payment_card"
	StepPaymentPix      = "payment_pix"
	StepCreateSub       = "create_subscription"
	StepPersist         = "persist"
	StepUnhandled       = "unhandled"
)

// CheckoutError is a step-tagged request failure. Status carries the HTTP
// class (400 validation, 404 resolution, 400/500 provider/unhandled).
type CheckoutError struct {
	Step    string `json:"step"`
	Status  int    `json:"-"`
	Message string `json:"error"`
	Details string `json:"details,omitempty"`
	cause   error
}

func (e *CheckoutError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Step, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Step, e.Message)
}

func (e *CheckoutError) Unwrap() error {
	return e.cause
}

// NewValidationError reports a client-caused precondition failure (400)
func NewValidationError(step, message string) *CheckoutError {
	return &CheckoutError{Step: step, Status: http.StatusBadRequest, Message: message}
}

// NewNotFoundError reports an exhausted resolution chain (404)
func NewNotFoundError(step, message string) *CheckoutError {
	return &CheckoutError{Step: step, Status: http.StatusNotFound, Message: message}
}

// NewProviderError reports a provider rejection (400), keeping the raw
// provider message in Details for the ledger audit trail
func NewProviderError(step, message string, cause error) *CheckoutError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &CheckoutError{Step: step, Status: http.StatusBadRequest, Message: message, Details: details, cause: cause}
}

// NewInternalError reports an unexpected failure (500)
func NewInternalError(step string, cause error) *CheckoutError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &CheckoutError{Step: step, Status: http.StatusInternalServerError, Message: "internal error", Details: details, cause: cause}
}
