package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inkeddraw/backend/internal/application/feed"
	"github.com/inkeddraw/backend/internal/domain"
	"github.com/inkeddraw/backend/internal/pkg/validate"
	"github.com/inkeddraw/backend/internal/transport/http/middleware"
)

// FeedHandler handles posts, comments and likes.
type FeedHandler struct {
	svc feed.Service
}

func NewFeedHandler(svc feed.Service) *FeedHandler { return &FeedHandler{svc: svc} }

// FeedEnvelope carries a feed page and the cursor for the next one. An empty
// cursor means the feed is exhausted.
type FeedEnvelope struct {
	Posts      []domain.Post `json:"posts"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func (h *FeedHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.svc.CreatePost(r.Context(), claims.UserID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *FeedHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	p, err := h.svc.GetPost(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *FeedHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.DeletePost(r.Context(), claims.UserID, claims.Role, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "post deleted"})
}

func (h *FeedHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, h.svc.Home)
}

func (h *FeedHandler) Discover(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, h.svc.Discover)
}

func (h *FeedHandler) servePage(w http.ResponseWriter, r *http.Request,
	query func(ctx context.Context, viewerID string, cursor *domain.FeedCursor, limit int) ([]domain.Post, error)) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	cursor, err := decodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cursor")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	posts, err := query(r.Context(), claims.UserID, cursor, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	env := FeedEnvelope{Posts: posts}
	if len(posts) > 0 {
		last := posts[len(posts)-1]
		env.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *FeedHandler) Like(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Like(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "liked"})
}

func (h *FeedHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Unlike(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "unliked"})
}

func (h *FeedHandler) Comment(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.svc.Comment(r.Context(), claims.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *FeedHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePagination(r)
	comments, err := h.svc.ListComments(r.Context(), chi.URLParam(r, "id"), perPage, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *FeedHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.DeleteComment(r.Context(), claims.UserID, claims.Role, chi.URLParam(r, "commentID")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "comment deleted"})
}

// Cursors are base64("unixMilli:postID"); opaque to clients.

func encodeCursor(t time.Time, id string) string {
	raw := fmt.Sprintf("%d:%s", t.UnixMilli(), id)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s string) (*domain.FeedCursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed cursor")
	}
	ms, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, err
	}
	return &domain.FeedCursor{CreatedAt: time.UnixMilli(ms).UTC(), ID: parts[1]}, nil
}
