package oracle

import (
	"context"
	"fmt"

	"relationshipai/apps/backend/internal/analysis"
	"relationshipai/apps/backend/internal/config"
)

// New returns the oracle selected by AI_PROVIDER.
func New(ctx context.Context, cfg config.Config) (analysis.Oracle, error) {
	switch cfg.AIProvider {
	case config.ProviderGateway, "":
		return NewGatewayClient(cfg), nil
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderMock:
		return MockClient{}, nil
	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER %q", cfg.AIProvider)
	}
}
