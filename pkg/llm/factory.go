package llm

import (
	"context"
	"log/slog"

	"github.com/sleuthops/sleuth/pkg/config"
)

// NewClient builds the configured provider. A non-empty second return is a
// configuration error code; the client is nil in that case. Mock mode wins
// over everything else.
func NewClient(ctx context.Context, cfg config.LLMSettings) (Client, string) {
	if cfg.Mock {
		return NewMockClient(), ""
	}

	switch cfg.Provider {
	case config.LLMProviderVertexAI:
		if cfg.GoogleCloudProject == "" {
			return nil, ErrMissingGCPProject
		}
		if cfg.GoogleCloudLocation == "" {
			return nil, ErrMissingGCPLocation
		}
		client, err := NewVertexClient(ctx, cfg.GoogleCloudProject, cfg.GoogleCloudLocation,
			cfg.Model, cfg.Temperature, cfg.MaxOutputTokens, cfg.Timeout)
		if err != nil {
			slog.Error("Vertex AI client unavailable", "error", err)
			return nil, ErrMissingADCCredentials
		}
		return client, ""

	case config.LLMProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.Model,
			cfg.Temperature, cfg.MaxOutputTokens, cfg.Timeout), ""

	default:
		return nil, ErrProviderNotConfigured
	}
}
