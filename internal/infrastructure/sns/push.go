package sns

import (
	"context"
	"encoding/json"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/inkeddraw/backend/internal/config"
)

// PushSender delivers mobile push notifications via SNS platform endpoints.
type PushSender interface {
	// RegisterDevice exchanges a device push token for a platform endpoint ARN.
	RegisterDevice(ctx context.Context, pushToken string) (string, error)
	// Push sends a notification payload to a platform endpoint.
	Push(ctx context.Context, endpointARN, title, body string, data map[string]string) error
}

type sender struct {
	client      *sns.Client
	platformARN string
}

func NewSender(cfg *config.Config) (PushSender, error) {
	if cfg.SNSPlatformARN == "" {
		return nil, fmt.Errorf("SNS_PLATFORM_ARN not configured")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &sender{client: sns.NewFromConfig(awsCfg), platformARN: cfg.SNSPlatformARN}, nil
}

func (s *sender) RegisterDevice(ctx context.Context, pushToken string) (string, error) {
	out, err := s.client.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: &s.platformARN,
		Token:                  &pushToken,
	})
	if err != nil {
		return "", fmt.Errorf("create platform endpoint: %w", err)
	}
	return *out.EndpointArn, nil
}

func (s *sender) Push(ctx context.Context, endpointARN, title, body string, data map[string]string) error {
	payload := map[string]interface{}{
		"default": body,
		"title":   title,
		"data":    data,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := string(raw)
	structure := "json"
	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        &endpointARN,
		Message:          &msg,
		MessageStructure: &structure,
	})
	return err
}
