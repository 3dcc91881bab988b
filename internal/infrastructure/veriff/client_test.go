package veriff

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkeddraw/backend/internal/config"
	"github.com/inkeddraw/backend/internal/domain"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&config.Config{
		VeriffBaseURL:       baseURL,
		VeriffAPIKey:        "api-key",
		VeriffWebhookSecret: "hush",
	})
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sessions", r.URL.Path)
		assert.Equal(t, "api-key", r.Header.Get("X-AUTH-CLIENT"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"verification":{"id":"sess-1","url":"https://station.example/s/sess-1"}}`))
	}))
	defer srv.Close()

	sess, err := newTestClient(srv.URL).CreateSession(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)
	assert.Equal(t, "https://station.example/s/sess-1", sess.URL)
}

func TestCreateSession_VendorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateSession(context.Background(), "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
}

func TestCreateSession_EmptySessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"verification":{}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateSession(context.Background(), "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
}

func TestVerifySignature(t *testing.T) {
	c := newTestClient("http://unused")
	body := []byte(`{"verification":{"id":"sess-1","code":9001}}`)

	assert.True(t, c.VerifySignature(body, sign("hush", body)))
	assert.False(t, c.VerifySignature(body, sign("wrong-secret", body)))
	assert.False(t, c.VerifySignature([]byte(`tampered`), sign("hush", body)))
	assert.False(t, c.VerifySignature(body, "not-hex"))
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision([]byte(`{"verification":{"id":"sess-1","code":9102,"reason":"document unreadable"}}`))

	require.NoError(t, err)
	assert.Equal(t, "sess-1", d.SessionID)
	assert.Equal(t, 9102, d.Code)
	assert.Equal(t, "document unreadable", d.Reason)
}

func TestParseDecision_Malformed(t *testing.T) {
	for _, body := range []string{`not json`, `{"verification":{"code":9001}}`} {
		_, err := ParseDecision([]byte(body))
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrBadRequest))
	}
}
