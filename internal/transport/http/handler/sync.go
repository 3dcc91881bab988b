package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/inkeddraw/backend/internal/application/syncer"
	"github.com/inkeddraw/backend/internal/domain"
	"github.com/inkeddraw/backend/internal/metrics"
	"github.com/inkeddraw/backend/internal/transport/http/middleware"
)

// SyncHandler implements the WatermelonDB-style pull/push protocol.
type SyncHandler struct {
	svc     syncer.Service
	metrics *metrics.Metrics
}

func NewSyncHandler(svc syncer.Service, m *metrics.Metrics) *SyncHandler {
	return &SyncHandler{svc: svc, metrics: m}
}

// Pull serves GET /sync?last_pulled_at=<epoch-ms>. A missing or zero
// checkpoint means a first-time sync and returns everything.
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var lastPulledAt int64
	if raw := r.URL.Query().Get("last_pulled_at"); raw != "" {
		var err error
		lastPulledAt, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || lastPulledAt < 0 {
			writeError(w, http.StatusBadRequest, "invalid last_pulled_at")
			return
		}
	}
	resp, err := h.svc.Pull(r.Context(), claims.UserID, lastPulledAt)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.metrics.SyncPulls.Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.Push(r.Context(), claims.UserID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.metrics.SyncPushApplied.Add(float64(res.Applied))
	h.metrics.SyncPushRejected.Add(float64(res.Rejected))
	writeJSON(w, http.StatusOK, res)
}
