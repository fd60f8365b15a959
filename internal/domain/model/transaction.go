package model

import "time"

// RawStatusGatewayMissing is recorded as the raw status when the gateway
// authoritatively reports that it has never seen the order. Transactions
// carrying it are terminal and are not re-selected by future sweeps.
const RawStatusGatewayMissing = "gateway_missing"

// Transaction records one payment attempt against the external gateway.
type Transaction struct {
	ID              string // UUID
	ExternalOrderID string // gateway order id, unique (e.g. "FRM-1001")
	UserID          *string
	Status          Status
	RawStatus       string // last vocabulary seen from the gateway, kept for audit
	GrossAmount     int64  // whole rupiah; integer to avoid float errors
	CreatedAt       time.Time
	PaidAt          *time.Time // set once on confirmed settlement, never cleared
	// Last raw response observed from the gateway, persisted as JSONB.
	GatewayResponse map[string]interface{}
}

// EffectiveTime is the timestamp reconciliation orders and filters by:
// the confirmed payment time when present, else creation time.
func (t *Transaction) EffectiveTime() time.Time {
	if t.PaidAt != nil {
		return *t.PaidAt
	}
	return t.CreatedAt
}
