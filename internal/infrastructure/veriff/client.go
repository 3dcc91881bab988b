package veriff

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/inkeddraw/backend/internal/config"
	"github.com/inkeddraw/backend/internal/domain"
)

// Session is a vendor verification session the mobile client opens in a
// webview to complete the document flow.
type Session struct {
	ID  string
	URL string
}

// Client talks to the Veriff station API.
type Client struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	httpClient    *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:       cfg.VeriffBaseURL,
		apiKey:        cfg.VeriffAPIKey,
		webhookSecret: cfg.VeriffWebhookSecret,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateSession starts a vendor verification session for userID. The user id
// rides along as vendorData so the decision webhook can be correlated even if
// the session row is lost.
func (c *Client) CreateSession(ctx context.Context, userID string) (*Session, error) {
	payload := map[string]interface{}{
		"verification": map[string]interface{}{
			"vendorData": userID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-AUTH-CLIENT", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("veriff create session: %w", domain.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("veriff create session: status %d: %w", resp.StatusCode, domain.ErrUpstream)
	}

	var out struct {
		Verification struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"verification"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("veriff decode response: %w", domain.ErrUpstream)
	}
	if out.Verification.ID == "" {
		return nil, fmt.Errorf("veriff returned empty session id: %w", domain.ErrUpstream)
	}
	return &Session{ID: out.Verification.ID, URL: out.Verification.URL}, nil
}

// VerifySignature checks the X-HMAC-SIGNATURE header: hex HMAC-SHA256 of the
// raw webhook body with the shared secret. Constant-time comparison.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseDecision extracts the decision fields from a webhook body.
func ParseDecision(body []byte) (*domain.VerificationDecision, error) {
	var payload struct {
		Verification struct {
			ID     string `json:"id"`
			Code   int    `json:"code"`
			Reason string `json:"reason"`
		} `json:"verification"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", domain.ErrBadRequest)
	}
	if payload.Verification.ID == "" {
		return nil, fmt.Errorf("webhook missing session id: %w", domain.ErrBadRequest)
	}
	return &domain.VerificationDecision{
		SessionID: payload.Verification.ID,
		Code:      payload.Verification.Code,
		Reason:    payload.Verification.Reason,
	}, nil
}
