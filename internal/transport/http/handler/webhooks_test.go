package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/inkeddraw/backend/internal/domain"
	"github.com/inkeddraw/backend/internal/metrics"
)

type mockVerificationService struct{ mock.Mock }

func (m *mockVerificationService) Start(ctx context.Context, userID string) (*domain.AgeVerification, error) {
	args := m.Called(ctx, userID)
	if v, _ := args.Get(0).(*domain.AgeVerification); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockVerificationService) Status(ctx context.Context, userID string) (*domain.AgeVerification, error) {
	args := m.Called(ctx, userID)
	if v, _ := args.Get(0).(*domain.AgeVerification); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockVerificationService) HandleDecision(ctx context.Context, decision domain.VerificationDecision) (string, error) {
	args := m.Called(ctx, decision)
	return args.String(0), args.Error(1)
}

// hmacVerifier mirrors the vendor client's scheme for handler tests.
type hmacVerifier struct{ secret string }

func (v hmacVerifier) VerifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(body)
	return hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(signature))
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(h *WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/veriff", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-HMAC-SIGNATURE", signature)
	}
	rec := httptest.NewRecorder()
	h.VeriffDecision(rec, req)
	return rec
}

func TestVeriffDecision_AppliesApproval(t *testing.T) {
	svc := &mockVerificationService{}
	svc.On("HandleDecision", mock.Anything, domain.VerificationDecision{SessionID: "sess-1", Code: 9001}).
		Return(domain.VerificationApproved, nil)
	h := NewWebhookHandler(svc, hmacVerifier{secret: "hush"}, metrics.New(), zerolog.Nop())

	body := []byte(`{"verification":{"id":"sess-1","code":9001}}`)
	rec := postWebhook(h, body, signBody("hush", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestVeriffDecision_RejectsBadSignature(t *testing.T) {
	svc := &mockVerificationService{}
	h := NewWebhookHandler(svc, hmacVerifier{secret: "hush"}, metrics.New(), zerolog.Nop())

	body := []byte(`{"verification":{"id":"sess-1","code":9001}}`)
	rec := postWebhook(h, body, signBody("someone-else", body))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "HandleDecision", mock.Anything, mock.Anything)
}

func TestVeriffDecision_RejectsMissingSignature(t *testing.T) {
	h := NewWebhookHandler(&mockVerificationService{}, hmacVerifier{secret: "hush"}, metrics.New(), zerolog.Nop())

	rec := postWebhook(h, []byte(`{}`), "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVeriffDecision_MalformedBody(t *testing.T) {
	h := NewWebhookHandler(&mockVerificationService{}, hmacVerifier{secret: "hush"}, metrics.New(), zerolog.Nop())

	body := []byte(`not json at all`)
	rec := postWebhook(h, body, signBody("hush", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVeriffDecision_UnknownSessionIs404(t *testing.T) {
	svc := &mockVerificationService{}
	svc.On("HandleDecision", mock.Anything, mock.Anything).Return("", domain.ErrNotFound)
	h := NewWebhookHandler(svc, hmacVerifier{secret: "hush"}, metrics.New(), zerolog.Nop())

	body := []byte(`{"verification":{"id":"ghost","code":9001}}`)
	rec := postWebhook(h, body, signBody("hush", body))

	require.Equal(t, http.StatusNotFound, rec.Code)
}
