package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkeddraw/backend/internal/infrastructure/posthog"
	"github.com/inkeddraw/backend/internal/transport/http/middleware"
)

// FlagHandler resolves feature flags for the authenticated user so the
// mobile client can gate screens without its own PostHog SDK.
type FlagHandler struct {
	tracker posthog.Tracker
}

func NewFlagHandler(tracker posthog.Tracker) *FlagHandler {
	return &FlagHandler{tracker: tracker}
}

type FlagEnvelope struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

func (h *FlagHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	key := chi.URLParam(r, "key")
	value, err := h.tracker.FeatureFlag(key, claims.UserID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "flag lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, FlagEnvelope{Key: key, Value: value})
}
