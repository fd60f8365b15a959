package adapter

import (
	"context"
	"time"
)

// StatusResult is the normalized view of a gateway status response. The
// gateway adapter is the only place that inspects raw response keys; every
// known alias is folded into this record at the boundary.
type StatusResult struct {
	OrderID     string
	RawStatus   string
	GrossAmount int64
	PaidAt      *time.Time // settlement time, else transaction time; nil if neither present
	// Raw is the decoded response body, retained for audit on the transaction.
	Raw map[string]interface{}
}

// PaymentGateway queries the external payment gateway for authoritative
// transaction status.
//
// TransactionStatus returns domain.ErrGatewayMissing when the gateway
// authoritatively does not know the order, and domain.ErrGatewayUnavailable
// (wrapped) for transient failures: network errors, timeouts, rate limits,
// 5xx responses.
type PaymentGateway interface {
	Name() string
	TransactionStatus(ctx context.Context, orderID string) (*StatusResult, error)
}
