package repository

import (
	"context"
	"time"
)

// NormalizedStatus is the cached, client-facing view of an order's state
type NormalizedStatus struct {
	Status       string `json:"status"`
	AmountMinor  int64  `json:"amount_minor"`
	Currency     string `json:"currency"`
	Installments int    `json:"installments"`
}

// StatusCache short-circuits repeated status polls. A miss returns
// (nil, nil).
type StatusCache interface {
	Get(ctx context.Context, orderID string) (*NormalizedStatus, error)
	Set(ctx context.Context, orderID string, status *NormalizedStatus, ttl time.Duration) error
}
