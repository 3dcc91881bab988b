package handler

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/inkeddraw/backend/internal/application/scanner"
	"github.com/inkeddraw/backend/internal/metrics"
	"github.com/inkeddraw/backend/internal/pkg/validate"
	"github.com/inkeddraw/backend/internal/transport/http/middleware"
)

const maxScanImage = 10 << 20

// ScannerHandler accepts a label photo and returns catalog candidates.
type ScannerHandler struct {
	svc     scanner.Service
	metrics *metrics.Metrics
}

func NewScannerHandler(svc scanner.Service, m *metrics.Metrics) *ScannerHandler {
	return &ScannerHandler{svc: svc, metrics: m}
}

// ScanRequest is the JSON form of a scan: a base64-encoded image. Clients
// may instead POST the raw bytes with an image/* content type.
type ScanRequest struct {
	Image       string `json:"image" validate:"required,base64"`
	ContentType string `json:"content_type" validate:"omitempty,max=100"`
}

func (h *ScannerHandler) Scan(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	image, contentType, ok := readScanImage(w, r)
	if !ok {
		return
	}
	h.metrics.ScannerRequests.Inc()
	res, err := h.svc.Scan(r.Context(), claims.UserID, image, contentType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func readScanImage(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	body := io.LimitReader(r.Body, maxScanImage)

	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/json" {
		raw, err := io.ReadAll(body)
		if err != nil || len(raw) == 0 {
			writeError(w, http.StatusBadRequest, "unreadable image")
			return nil, "", false
		}
		return raw, ct, true
	}

	var req ScanRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, "", false
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, "", false
	}
	raw, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid base64 image")
		return nil, "", false
	}
	ct := req.ContentType
	if ct == "" {
		ct = "image/jpeg"
	}
	return raw, ct, true
}
