package provider

// PaymentStatus is the closed internal status enum for one-off payments
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCanceled   PaymentStatus = "canceled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// IsTerminal reports whether polling should stop. Authorized counts as
// terminal: capture is a merchant action, so a poll never observes the
// transition on its own.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusAuthorized, PaymentStatusPaid, PaymentStatusFailed,
		PaymentStatusCanceled, PaymentStatusRefunded:
		return true
	}
	return false
}

// SubscriptionStatus is the closed internal status enum for subscriptions
type SubscriptionStatus string

const (
	SubscriptionStatusTrial    SubscriptionStatus = "trial"
	SubscriptionStatusPending  SubscriptionStatus = "pending"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// orderStatuses maps every known provider order/charge status string to the
// internal enum. Providers disagree on vocabulary; this table is the single
// place where their dialects meet.
var orderStatuses = map[string]PaymentStatus{
	"pending":         PaymentStatusPending,
	"waiting_payment": PaymentStatusPending,
	"waiting_pix":     PaymentStatusPending,
	"created":         PaymentStatusPending,
	"opened":          PaymentStatusPending,
	"processing":      PaymentStatusProcessing,
	"analyzing":       PaymentStatusProcessing,
	"pending_review":  PaymentStatusProcessing,
	"authorized":      PaymentStatusAuthorized,
	"pre_approved":    PaymentStatusAuthorized,
	"approved":        PaymentStatusPaid,
	"paid":            PaymentStatusPaid,
	"captured":        PaymentStatusPaid,
	"succeeded":       PaymentStatusPaid,
	"closed":          PaymentStatusPaid,
	"failed":          PaymentStatusFailed,
	"refused":         PaymentStatusFailed,
	"declined":        PaymentStatusFailed,
	"payment_failed":  PaymentStatusFailed,
	"canceled":        PaymentStatusCanceled,
	"cancelled":       PaymentStatusCanceled,
	"voided":          PaymentStatusCanceled,
	"expired":         PaymentStatusCanceled,
	"refunded":        PaymentStatusRefunded,
	"chargedback":     PaymentStatusRefunded,
}

// NormalizeOrderStatus maps a provider status string to the internal enum.
// It is total: unknown strings map to pending, and the second return value
// is false so callers can log the miss. Defaulting to pending (never paid)
// keeps an unrecognized status from confirming money that may not have moved.
func NormalizeOrderStatus(raw string) (PaymentStatus, bool) {
	if s, ok := orderStatuses[raw]; ok {
		return s, true
	}
	return PaymentStatusPending, false
}

var subscriptionStatuses = map[string]SubscriptionStatus{
	"active":             SubscriptionStatusActive,
	"paid":               SubscriptionStatusActive,
	"trial":              SubscriptionStatusTrial,
	"trialing":           SubscriptionStatusTrial,
	"past_due":           SubscriptionStatusPastDue,
	"unpaid":             SubscriptionStatusPastDue,
	"incomplete":         SubscriptionStatusPastDue,
	"incomplete_expired": SubscriptionStatusPastDue,
	"pending":            SubscriptionStatusPending,
	"future":             SubscriptionStatusPending,
	"canceled":           SubscriptionStatusCanceled,
	"cancelled":          SubscriptionStatusCanceled,
	"ended":              SubscriptionStatusCanceled,
}

// NormalizeSubscriptionStatus maps a provider subscription status to the
// internal enum. Unknown strings map to active with ok=false: a subscription
// in an unrecognized "good" state should not lock the customer out. This is
// deliberately the opposite default from one-off payments, which withhold
// confirmation on unknown statuses.
func NormalizeSubscriptionStatus(raw string) (SubscriptionStatus, bool) {
	if s, ok := subscriptionStatuses[raw]; ok {
		return s, true
	}
	return SubscriptionStatusActive, false
}
