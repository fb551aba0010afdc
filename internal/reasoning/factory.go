package reasoning

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/spikeai/spike/backend/internal/config"
)

// NewDriver builds the provider driver selected by cfg.Provider.
func NewDriver(ctx context.Context, cfg config.ReasoningConfig) (Driver, error) {
	switch cfg.Provider {
	case "openai", "litellm", "":
		return NewOpenAIDriver(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.HTTPTimeout), nil
	case "ollama":
		return NewOllamaDriver(cfg.BaseURL, cfg.Model, cfg.HTTPTimeout), nil
	case "anthropic":
		return NewAnthropicDriver(cfg.APIKey, cfg.Model)
	case "bedrock":
		return NewBedrockDriver(ctx, cfg.AWSRegion, cfg.AWSProfile, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown reasoning provider %q", cfg.Provider)
	}
}

// NewFromConfig builds a ready Client with the configured retry and
// throttling policy.
func NewFromConfig(ctx context.Context, cfg config.ReasoningConfig) (*Client, error) {
	d, err := NewDriver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("provider", d.Name()).
		Str("model", cfg.Model).
		Int("max_retries", cfg.MaxRetries).
		Dur("base_delay", cfg.BaseDelay).
		Msg("✅ Reasoning client initialized")
	return NewClient(d,
		WithMaxRetries(cfg.MaxRetries),
		WithBaseDelay(cfg.BaseDelay),
		WithMaxTokens(cfg.MaxTokens),
		WithRateLimit(cfg.RPS),
	), nil
}
