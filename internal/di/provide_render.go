package di

import (
	"context"
	"fmt"
	"time"

	"github.com/phdb/image-bundler/internal/render"
	"github.com/phdb/image-bundler/internal/services"
)

// ProvideRenderClient builds the size chart render client. The bearer
// token comes from Secrets Manager.
func ProvideRenderClient(ctx context.Context, config *services.Config, secrets *services.SecretsManagerService) (*render.Client, error) {
	token, err := secrets.GetRenderToken(ctx, config.RenderTokenSecretName)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve render token: %w", err)
	}

	timeout := time.Duration(config.RenderTimeoutSeconds) * time.Second
	return render.NewClient(config.RenderEndpoint, token, timeout, nil), nil
}
