package handler

import (
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/inkeddraw/backend/internal/application/verification"
	"github.com/inkeddraw/backend/internal/infrastructure/veriff"
	"github.com/inkeddraw/backend/internal/metrics"
)

const maxWebhookBody = 1 << 20

type signatureVerifier interface {
	VerifySignature(body []byte, signature string) bool
}

// WebhookHandler receives vendor callbacks. Signature validation happens on
// the raw body before anything is decoded.
type WebhookHandler struct {
	svc      verification.Service
	verifier signatureVerifier
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewWebhookHandler(svc verification.Service, verifier signatureVerifier, m *metrics.Metrics, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		svc:      svc,
		verifier: verifier,
		metrics:  m,
		log:      log.With().Str("component", "webhook").Logger(),
	}
}

func (h *WebhookHandler) VeriffDecision(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if !h.verifier.VerifySignature(body, r.Header.Get("X-HMAC-SIGNATURE")) {
		h.log.Warn().Msg("webhook signature mismatch")
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	decision, err := veriff.ParseDecision(body)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status, err := h.svc.HandleDecision(r.Context(), *decision)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.metrics.VerificationsDecided.WithLabelValues(status).Inc()
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "processed"})
}
