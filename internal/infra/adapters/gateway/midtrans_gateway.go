package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"photobooth-reconcile/internal/domain"
	"photobooth-reconcile/internal/domain/ports/adapter"
	"photobooth-reconcile/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*MidtransGateway)(nil)

// MidtransGateway implements adapter.PaymentGateway against the Midtrans
// status API (GET /v2/{orderId}/status, HTTP basic auth with the server
// key). All response-key aliasing happens here; callers only ever see a
// StatusResult.
type MidtransGateway struct {
	baseURL   string
	serverKey string
	client    *http.Client
}

func NewMidtransGateway(baseURL, serverKey string, timeout time.Duration) (*MidtransGateway, error) {
	if serverKey == "" {
		return nil, fmt.Errorf("gateway server key empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MidtransGateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		serverKey: serverKey,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (g *MidtransGateway) Name() string { return "midtrans" }

func (g *MidtransGateway) TransactionStatus(ctx context.Context, orderID string) (*adapter.StatusResult, error) {
	url := fmt.Sprintf("%s/v2/%s/status", g.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(g.serverKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.IncGatewayStatusRequest("unavailable")
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.IncGatewayStatusRequest("missing")
		return nil, domain.ErrGatewayMissing
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		metrics.IncGatewayStatusRequest("unavailable")
		return nil, fmt.Errorf("%w: http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		metrics.IncGatewayStatusRequest("unavailable")
		return nil, fmt.Errorf("%w: unexpected http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		metrics.IncGatewayStatusRequest("unavailable")
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrGatewayUnavailable, err)
	}

	// Some deployments answer 200 with an embedded 404 status code.
	if code := stringField(raw, "status_code"); code == "404" {
		metrics.IncGatewayStatusRequest("missing")
		return nil, domain.ErrGatewayMissing
	}

	metrics.IncGatewayStatusRequest("ok")
	return &adapter.StatusResult{
		OrderID:     stringField(raw, "order_id", "orderId"),
		RawStatus:   stringField(raw, "transaction_status", "status"),
		GrossAmount: amountField(raw, "gross_amount", "grossAmount", "amount"),
		PaidAt:      timeField(raw, "settlement_time", "transaction_time"),
		Raw:         raw,
	}, nil
}

// stringField returns the first non-empty string under any of the keys.
func stringField(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// amountField parses the gateway's decimal-string amount ("10000.00") into
// whole rupiah.
func amountField(m map[string]interface{}, keys ...string) int64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v == "" {
				continue
			}
			if i := strings.IndexByte(v, '.'); i >= 0 {
				v = v[:i]
			}
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n
			}
		case float64:
			return int64(v)
		}
	}
	return 0
}

// timeField parses the first present timestamp field; the status API uses
// "2006-01-02 15:04:05" in gateway-local time.
func timeField(m map[string]interface{}, keys ...string) *time.Time {
	for _, k := range keys {
		v, ok := m[k].(string)
		if !ok || v == "" {
			continue
		}
		for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
			if t, err := time.Parse(layout, v); err == nil {
				return &t
			}
		}
	}
	return nil
}
