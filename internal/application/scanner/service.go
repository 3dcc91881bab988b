package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/inkeddraw/backend/internal/domain"
	"github.com/inkeddraw/backend/internal/infrastructure/posthog"
	"github.com/inkeddraw/backend/internal/pkg/id"
)

const maxCandidates = 10

// Result is the scanner response: what Vision saw and the catalog products
// those labels matched, best-rated first.
type Result struct {
	ImageKey   string           `json:"image_key"`
	Labels     []string         `json:"labels"`
	Candidates []domain.Product `json:"candidates"`
}

type Service interface {
	Scan(ctx context.Context, userID string, image []byte, contentType string) (*Result, error)
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

type annotator interface {
	Labels(ctx context.Context, image []byte) ([]string, error)
}

type productMatcher interface {
	MatchLabels(ctx context.Context, labels []string, limit int) ([]domain.Product, error)
}

type service struct {
	images   objectStore
	vision   annotator
	products productMatcher
	tracker  posthog.Tracker
	log      zerolog.Logger
}

func NewService(images objectStore, vision annotator, products productMatcher, tracker posthog.Tracker, log zerolog.Logger) Service {
	return &service{
		images:   images,
		vision:   vision,
		products: products,
		tracker:  tracker,
		log:      log.With().Str("component", "scanner").Logger(),
	}
}

func (s *service) Scan(ctx context.Context, userID string, image []byte, contentType string) (*Result, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("empty image: %w", domain.ErrBadRequest)
	}

	key := fmt.Sprintf("scans/%s/%s", userID, id.New())
	if _, err := s.images.Upload(ctx, key, bytes.NewReader(image), contentType); err != nil {
		// the scan can still proceed; the stored copy is for audit only
		s.log.Warn().Err(err).Str("key", key).Msg("scan image upload failed")
		key = ""
	}

	labels, err := s.vision.Labels(ctx, image)
	if err != nil {
		return nil, err
	}

	var candidates []domain.Product
	if len(labels) > 0 {
		candidates, err = s.products.MatchLabels(ctx, labels, maxCandidates)
		if err != nil {
			return nil, err
		}
	}

	s.tracker.Capture(userID, "label_scanned", map[string]interface{}{
		"labels":     len(labels),
		"candidates": len(candidates),
	})
	return &Result{ImageKey: key, Labels: labels, Candidates: candidates}, nil
}
