package reasoning

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/spikeai/spike/backend/pkg/models"
)

// ── Anthropic Provider ──────────────────────────────────────

// AnthropicDriver calls the Messages API directly or through AWS Bedrock.
type AnthropicDriver struct {
	name  string
	inner anthropic.Client
	model anthropic.Model
}

// NewAnthropicDriver creates a driver using an API key.
func NewAnthropicDriver(apiKey, model string) (*AnthropicDriver, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: api key not configured")
	}
	// Retries are owned by Client; the SDK must not retry on its own.
	inner := anthropic.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0))
	return &AnthropicDriver{name: "anthropic", inner: inner, model: modelOrDefault(model)}, nil
}

// NewBedrockDriver creates a driver that reaches Anthropic models via Bedrock
// using the default AWS credential chain.
func NewBedrockDriver(ctx context.Context, region, profile, model string) *AnthropicDriver {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(profile))
	}
	inner := anthropic.NewClient(bedrock.WithLoadDefaultConfig(ctx, loadOpts...), option.WithMaxRetries(0))
	return &AnthropicDriver{name: "bedrock", inner: inner, model: modelOrDefault(model)}
}

func modelOrDefault(model string) anthropic.Model {
	if model == "" || !strings.Contains(model, "claude") {
		return anthropic.ModelClaudeSonnet4_20250514
	}
	return anthropic.Model(model)
}

func (d *AnthropicDriver) Name() string { return d.name }

func (d *AnthropicDriver) Send(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       d.model,
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
	}
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case models.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	resp, err := d.inner.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return "", &RateLimitError{Provider: d.name, StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
		}
		return "", fmt.Errorf("%s: API call failed: %w", d.name, err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.WriteString(variant.Text)
		}
	}
	return out.String(), nil
}
