package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"photobooth-reconcile/internal/domain"
	"photobooth-reconcile/internal/domain/ports/adapter"
)

var _ adapter.IdentityProvider = (*FirebaseProvider)(nil)

// FirebaseProvider resolves emails through the Identity Toolkit
// accounts:lookup endpoint. It is the optional last step of identity
// resolution; the local user store is always consulted first.
type FirebaseProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewFirebaseProvider(baseURL, apiKey string) (*FirebaseProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("identity api key empty")
	}
	if baseURL == "" {
		baseURL = "https://identitytoolkit.googleapis.com"
	}
	return &FirebaseProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (p *FirebaseProvider) Name() string { return "firebase" }

func (p *FirebaseProvider) FindUserIDByEmail(ctx context.Context, email string) (string, error) {
	payload := map[string]any{"email": []string{email}}
	b, _ := json.Marshal(payload)

	url := fmt.Sprintf("%s/v1/accounts:lookup?key=%s", p.baseURL, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("accounts:lookup http %d", resp.StatusCode)
	}

	var out struct {
		Users []struct {
			LocalID string `json:"localId"`
		} `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Users) == 0 || out.Users[0].LocalID == "" {
		return "", domain.ErrNotFound
	}
	return out.Users[0].LocalID, nil
}
