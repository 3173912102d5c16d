package services

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/phdb/image-bundler/internal/constants"
)

// DefaultRenderEndpoint is used when no endpoint parameter is configured,
// so existing deployments keep working with an empty parameter tree.
const DefaultRenderEndpoint = "https://size-table-render.eliamo.workers.dev/image"

// Config holds all application configuration values from Parameter Store
type Config struct {
	SourceBucket          string // bucket holding raw product images
	BundleBucket          string // bucket receiving finished zips
	BundleRoleARN         string // optional role to assume for bundle uploads
	RenderEndpoint        string // size-chart render service URL
	RenderTokenSecretName string // Secrets Manager path of the render bearer token
	RenderTimeoutSeconds  int    // render call timeout; 0 means client default
	JobsTable             string // optional override of the jobs table name
}

// ParameterStore defines the interface for accessing configuration parameters
type ParameterStore interface {
	// GetParameter retrieves a single parameter by name
	GetParameter(ctx context.Context, name string) (string, error)

	// GetConfig loads all application configuration from Parameter Store
	GetConfig(ctx context.Context) (*Config, error)
}

// SSMParameterStore implements ParameterStore using AWS Systems Manager Parameter Store
type SSMParameterStore struct {
	client *ssm.Client
	env    string
	mu     sync.RWMutex
	cache  map[string]string
}

// NewSSMParameterStore creates a new SSM-backed parameter store
func NewSSMParameterStore(client *ssm.Client, env string) *SSMParameterStore {
	return &SSMParameterStore{
		client: client,
		env:    env,
		cache:  make(map[string]string),
	}
}

// GetParameter retrieves a single parameter from SSM Parameter Store
func (s *SSMParameterStore) GetParameter(ctx context.Context, name string) (string, error) {
	// Check cache first
	s.mu.RLock()
	if value, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return value, nil
	}
	s.mu.RUnlock()

	// Fetch from SSM
	result, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: boolPtr(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get parameter %s: %w", name, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s not found", name)
	}

	value := *result.Parameter.Value

	// Cache the value
	s.mu.Lock()
	s.cache[name] = value
	s.mu.Unlock()

	return value, nil
}

// GetConfig loads all application configuration from Parameter Store
func (s *SSMParameterStore) GetConfig(ctx context.Context) (*Config, error) {
	path := fmt.Sprintf("/%s/phdb", s.env)

	// Use GetParametersByPath for efficient batch retrieval
	result, err := s.client.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
		Path:           &path,
		Recursive:      boolPtr(true),
		WithDecryption: boolPtr(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get parameters by path %s: %w", path, err)
	}

	// Build a map of parameter names to values
	params := make(map[string]string)
	for _, param := range result.Parameters {
		if param.Name != nil && param.Value != nil {
			params[*param.Name] = *param.Value
		}
	}

	// Cache all retrieved parameters
	s.mu.Lock()
	for k, v := range params {
		s.cache[k] = v
	}
	s.mu.Unlock()

	// Build config from parameters
	config := &Config{
		SourceBucket:          params[fmt.Sprintf("/%s/phdb/source-bucket", s.env)],
		BundleBucket:          params[fmt.Sprintf("/%s/phdb/bundle-bucket", s.env)],
		BundleRoleARN:         params[fmt.Sprintf("/%s/phdb/bundle-role-arn", s.env)],
		RenderEndpoint:        params[fmt.Sprintf("/%s/phdb/render-endpoint", s.env)],
		RenderTokenSecretName: params[fmt.Sprintf("/%s/phdb/render-token-secret-name", s.env)],
		JobsTable:             params[fmt.Sprintf("/%s/phdb/jobs-table", s.env)],
	}
	if raw := params[fmt.Sprintf("/%s/phdb/render-timeout-seconds", s.env)]; raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid render-timeout-seconds %q: %w", raw, err)
		}
		config.RenderTimeoutSeconds = seconds
	}

	applyDefaults(config, s.env)

	return config, nil
}

// EnvParameterStore implements ParameterStore using environment variables
// This is a NoOp implementation for local development without AWS connection
type EnvParameterStore struct {
	env string
}

// NewEnvParameterStore creates a new environment variable-backed parameter store
func NewEnvParameterStore(env string) *EnvParameterStore {
	return &EnvParameterStore{
		env: env,
	}
}

// GetParameter retrieves a parameter from environment variables
// This is a fallback implementation that reads from env vars
func (e *EnvParameterStore) GetParameter(ctx context.Context, name string) (string, error) {
	// For env var implementation, we don't use the full path
	// Just return the value if set
	return os.Getenv(name), nil
}

// GetConfig loads all application configuration from environment variables
func (e *EnvParameterStore) GetConfig(ctx context.Context) (*Config, error) {
	config := &Config{
		SourceBucket:          os.Getenv("SOURCE_BUCKET"),
		BundleBucket:          os.Getenv("BUNDLE_BUCKET"),
		BundleRoleARN:         os.Getenv("BUNDLE_ROLE_ARN"),
		RenderEndpoint:        os.Getenv("RENDER_ENDPOINT"),
		RenderTokenSecretName: os.Getenv("RENDER_TOKEN_SECRET_NAME"),
		JobsTable:             os.Getenv("JOBS_TABLE_NAME"),
	}
	if raw := os.Getenv("RENDER_TIMEOUT_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid RENDER_TIMEOUT_SECONDS %q: %w", raw, err)
		}
		config.RenderTimeoutSeconds = seconds
	}

	applyDefaults(config, e.env)

	return config, nil
}

func applyDefaults(config *Config, env string) {
	if config.SourceBucket == "" {
		config.SourceBucket = constants.DefaultSourceBucket
	}
	if config.BundleBucket == "" {
		config.BundleBucket = constants.DefaultBundleBucket
	}
	if config.RenderEndpoint == "" {
		config.RenderEndpoint = DefaultRenderEndpoint
	}
	if config.RenderTokenSecretName == "" {
		config.RenderTokenSecretName = fmt.Sprintf("phdb/%s/render-token", env)
	}
}

func boolPtr(b bool) *bool {
	return &b
}
