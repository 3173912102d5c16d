package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/phdb/image-bundler/internal/errors"
)

type SecretsManagerService struct {
	client *secretsmanager.Client
}

// RenderTokenSecret is the JSON shape of the render-service token secret.
type RenderTokenSecret struct {
	Token string `json:"token"`
}

func NewSecretsManagerService() (*SecretsManagerService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SecretsManagerService{
		client: secretsmanager.NewFromConfig(cfg),
	}, nil
}

// NewSecretsManagerServiceWithClient creates a service with an injected client (for testing).
func NewSecretsManagerServiceWithClient(client *secretsmanager.Client) *SecretsManagerService {
	return &SecretsManagerService{client: client}
}

// GetSecret retrieves a secret value by path from AWS Secrets Manager
func (s *SecretsManagerService) GetSecret(ctx context.Context, secretPath string) (string, error) {
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretPath),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", secretPath, err)
	}

	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretPath)
	}

	return *result.SecretString, nil
}

// GetRenderToken retrieves the render service bearer token from AWS Secrets Manager.
// The secret is normally JSON ({"token": "..."}); a plain string secret is
// accepted as-is so hand-created secrets keep working.
func (s *SecretsManagerService) GetRenderToken(ctx context.Context, secretPath string) (string, error) {
	raw, err := s.GetSecret(ctx, secretPath)
	if err != nil {
		return "", err
	}

	token, err := ParseRenderToken(raw)
	if err != nil {
		return "", fmt.Errorf("secret %s: %w", secretPath, err)
	}

	return token, nil
}

// ParseRenderToken extracts the token from a secret string.
func ParseRenderToken(raw string) (string, error) {
	if raw == "" {
		return "", errors.ErrRenderTokenMissing
	}

	var secret RenderTokenSecret
	if err := json.Unmarshal([]byte(raw), &secret); err != nil {
		// Not JSON: the whole secret string is the token
		return raw, nil
	}

	if secret.Token == "" {
		return "", errors.ErrRenderTokenMissing
	}

	return secret.Token, nil
}
