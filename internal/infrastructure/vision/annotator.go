package vision

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/inkeddraw/backend/internal/config"
	"github.com/inkeddraw/backend/internal/domain"
)

// Annotator runs Google Vision label and logo detection for the scanner.
type Annotator struct {
	svc *vision.Service
}

func NewAnnotator(ctx context.Context, cfg *config.Config) (*Annotator, error) {
	if cfg.GoogleVisionAPIKey == "" {
		return nil, fmt.Errorf("GOOGLE_VISION_API_KEY not configured")
	}
	svc, err := vision.NewService(ctx, option.WithAPIKey(cfg.GoogleVisionAPIKey))
	if err != nil {
		return nil, err
	}
	return &Annotator{svc: svc}, nil
}

// Labels returns the label and logo descriptions Vision found in the image,
// logos first since a logo match is the strongest catalog signal.
func (a *Annotator) Labels(ctx context.Context, image []byte) ([]string, error) {
	if a == nil {
		return nil, fmt.Errorf("vision not configured: %w", domain.ErrUpstream)
	}
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image: &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{
				{Type: "LOGO_DETECTION", MaxResults: 5},
				{Type: "LABEL_DETECTION", MaxResults: 10},
			},
		}},
	}
	resp, err := a.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("vision annotate: %w", domain.ErrUpstream)
	}
	if len(resp.Responses) == 0 {
		return nil, nil
	}
	r := resp.Responses[0]
	if r.Error != nil {
		return nil, fmt.Errorf("vision annotate: %s: %w", r.Error.Message, domain.ErrUpstream)
	}

	var labels []string
	for _, l := range r.LogoAnnotations {
		labels = append(labels, l.Description)
	}
	for _, l := range r.LabelAnnotations {
		labels = append(labels, l.Description)
	}
	return labels, nil
}
