package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/inkeddraw/backend/internal/domain"
	"github.com/inkeddraw/backend/internal/pkg/id"
)

const presignTTL = 15 * time.Minute

// Upload is a stored media object: the S3 key plus a short-lived URL the
// client can fetch it from.
type Upload struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Service stores user media (avatars, post images) in object storage. Rows
// that reference media (users.avatar_url, posts.image_url) keep the key.
type Service interface {
	UploadBase64(ctx context.Context, userID, filename, b64Data string) (*Upload, error)
	Presign(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, userID, key string) error
}

type objectStore interface {
	UploadBase64(ctx context.Context, key, b64Data string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	store objectStore
}

func NewService(store objectStore) Service {
	return &service{store: store}
}

func (s *service) UploadBase64(ctx context.Context, userID, filename, b64Data string) (*Upload, error) {
	if _, err := base64.StdEncoding.DecodeString(b64Data); err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", domain.ErrBadRequest)
	}
	key := fmt.Sprintf("media/%s/%s-%s", userID, id.New(), sanitizeFilename(filename))
	if _, err := s.store.UploadBase64(ctx, key, b64Data); err != nil {
		return nil, err
	}
	url, err := s.store.PresignedURL(ctx, key, presignTTL)
	if err != nil {
		return nil, err
	}
	return &Upload{Key: key, URL: url}, nil
}

func (s *service) Presign(ctx context.Context, key string) (string, error) {
	return s.store.PresignedURL(ctx, key, presignTTL)
}

// Delete removes a media object. Keys are namespaced per user, so ownership
// is enforced by prefix.
func (s *service) Delete(ctx context.Context, userID, key string) error {
	if !strings.HasPrefix(key, "media/"+userID+"/") {
		return fmt.Errorf("not your media: %w", domain.ErrForbidden)
	}
	return s.store.Delete(ctx, key)
}

// sanitizeFilename strips directory components and keeps only safe characters
// (alphanumeric, dot, dash, underscore) to prevent path traversal in S3 keys.
func sanitizeFilename(name string) string {
	name = path.Base(name)
	var b bytes.Buffer
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if result := b.String(); result != "" && result != "." {
		return result
	}
	return "_"
}
