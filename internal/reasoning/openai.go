package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spikeai/spike/backend/pkg/models"
)

// ── OpenAI-compatible Provider ──────────────────────────────
//
// Serves OpenAI, a LiteLLM proxy and Ollama, which all expose the
// /chat/completions wire format.

type openAIRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

// OpenAIDriver talks to any OpenAI-compatible chat completions endpoint.
type OpenAIDriver struct {
	name     string
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewOpenAIDriver creates a driver for an OpenAI-compatible endpoint
// (e.g. "https://api.openai.com/v1" or a LiteLLM base URL).
func NewOpenAIDriver(endpoint, apiKey, model string, timeout time.Duration) *OpenAIDriver {
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	return &OpenAIDriver{
		name:     "openai",
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

// NewOllamaDriver creates a driver for a local Ollama server.
func NewOllamaDriver(endpoint, model string, timeout time.Duration) *OpenAIDriver {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	d := NewOpenAIDriver(strings.TrimRight(endpoint, "/")+"/v1", "", model, timeout)
	d.name = "ollama"
	return d
}

func (d *OpenAIDriver) Name() string { return d.name }

func (d *OpenAIDriver) Send(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(openAIRequest{
		Model:       d.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s: encode request: %w", d.name, err)
	}

	url := d.endpoint + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: create request: %w", d.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", d.name, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		if httpResp.StatusCode == http.StatusTooManyRequests {
			return "", &RateLimitError{Provider: d.name, StatusCode: httpResp.StatusCode, Message: string(respBody)}
		}
		return "", fmt.Errorf("%s: status %d: %s", d.name, httpResp.StatusCode, string(respBody))
	}

	var oaiResp openAIResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&oaiResp); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", d.name, err)
	}
	if len(oaiResp.Choices) == 0 {
		return "", fmt.Errorf("%s: response has no choices", d.name)
	}
	return oaiResp.Choices[0].Message.Content, nil
}
