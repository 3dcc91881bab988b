package posthog

import (
	"fmt"

	ph "github.com/posthog/posthog-go"

	"github.com/inkeddraw/backend/internal/config"
)

// Tracker is the analytics surface services depend on. All methods are
// fire-and-forget: the posthog client batches in the background.
type Tracker interface {
	Capture(distinctID, event string, props map[string]interface{})
	Identify(distinctID string, props map[string]interface{})
	FeatureFlag(key, distinctID string) (interface{}, error)
	Close() error
}

type tracker struct {
	client ph.Client
}

// New creates a PostHog-backed tracker.
func New(cfg *config.Config) (Tracker, error) {
	if cfg.PostHogAPIKey == "" {
		return nil, fmt.Errorf("POSTHOG_API_KEY not configured")
	}
	client, err := ph.NewWithConfig(cfg.PostHogAPIKey, ph.Config{
		Endpoint: cfg.PostHogEndpoint,
	})
	if err != nil {
		return nil, err
	}
	return &tracker{client: client}, nil
}

func (t *tracker) Capture(distinctID, event string, props map[string]interface{}) {
	p := ph.NewProperties()
	for k, v := range props {
		p.Set(k, v)
	}
	_ = t.client.Enqueue(ph.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: p,
	})
}

func (t *tracker) Identify(distinctID string, props map[string]interface{}) {
	p := ph.NewProperties()
	for k, v := range props {
		p.Set(k, v)
	}
	_ = t.client.Enqueue(ph.Identify{
		DistinctId: distinctID,
		Properties: p,
	})
}

func (t *tracker) FeatureFlag(key, distinctID string) (interface{}, error) {
	return t.client.GetFeatureFlag(ph.FeatureFlagPayload{
		Key:        key,
		DistinctId: distinctID,
	})
}

func (t *tracker) Close() error { return t.client.Close() }

// Nop returns a tracker that drops everything; used when no API key is set.
func Nop() Tracker { return nopTracker{} }

type nopTracker struct{}

func (nopTracker) Capture(string, string, map[string]interface{})  {}
func (nopTracker) Identify(string, map[string]interface{})         {}
func (nopTracker) FeatureFlag(string, string) (interface{}, error) { return nil, nil }
func (nopTracker) Close() error                                    { return nil }
