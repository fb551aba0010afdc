package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/spikeai/spike/backend/internal/config"
	"github.com/spikeai/spike/backend/pkg/models"
)

// fakeLLM serves an OpenAI-compatible /chat/completions endpoint that
// answers by matching the prompt text.
func fakeLLM(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []models.ChatMessage `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		prompt := req.Messages[len(req.Messages)-1].Content

		var reply string
		switch {
		case strings.Contains(prompt, "You route questions") && strings.Contains(prompt, "available: yes"):
			reply = `{"intent": "single_agent_a", "reasoning": "traffic question"}`
		case strings.Contains(prompt, "You route questions"):
			reply = `{"intent": "single_agent_b", "reasoning": "crawl question"}`
		case strings.Contains(prompt, "expert SEO data analyst"):
			reply = `{"operation": "filter", "columns": ["Address"],
				"conditions": [{"column": "Address", "operator": "contains", "value": "missing"}]}`
		case strings.Contains(prompt, "expert SEO consultant"):
			reply = "One page returns 404: https://example.com/missing"
		default:
			reply = "unexpected prompt"
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, llmURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "crawl.csv")
	csv := "Address,Status Code\nhttps://example.com/,200\nhttps://example.com/missing,404\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(csv), 0o600))

	return &config.Config{
		Port:         0,
		Version:      "test",
		QueryTimeout: 30 * time.Second,
		Reasoning: config.ReasoningConfig{
			Provider:    "openai",
			BaseURL:     llmURL,
			Model:       "test-model",
			MaxTokens:   500,
			MaxRetries:  1,
			BaseDelay:   time.Millisecond,
			HTTPTimeout: 5 * time.Second,
		},
		Orchestrator: config.OrchestratorConfig{
			Strategy:      "router",
			MaxIterations: 5,
		},
		Analytics: config.AnalyticsConfig{CredentialsFile: filepath.Join(dir, "absent.json")},
		SEO:       config.SEOConfig{DataFile: csvPath, CacheTTL: time.Minute},
		Store:     config.StoreConfig{Backend: "memory"},
	}
}

func TestServer_RoutesSEOQueryEndToEnd(t *testing.T) {
	ctx := context.Background()
	srv, err := NewWithConfig(ctx, testConfig(t, fakeLLM(t).URL))
	require.NoError(t, err)
	t.Cleanup(func() { srv.ShutdownFunc(ctx) })

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"Which pages are broken?"}`))
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "One page returns 404: https://example.com/missing", resp.Response)

	run, err := srv.Store.GetRun(ctx, resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.StrategyRouter, run.Strategy)
	require.NotEmpty(t, run.Steps)
	assert.Equal(t, models.StepClassify, run.Steps[0].Kind)
}

func TestServer_AnalyticsWithoutCredentialsDegrades(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, fakeLLM(t).URL)
	orch, err := NewOrchestrator(ctx, cfg)
	require.NoError(t, err)

	// No credentials file exists, so the analytics agent reports the GA4
	// failure instead of answering.
	got := orch.Route(ctx, "How many users yesterday?", "123")
	assert.True(t, strings.HasPrefix(got, "I encountered an error querying Google Analytics"), got)
}

func TestServer_BadAllowListFails(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.Orchestrator.AllowListFile = filepath.Join(t.TempDir(), "nope.yaml")

	_, err := NewWithConfig(context.Background(), cfg)
	assert.ErrorContains(t, err, "allow-list")
}

func TestServer_FailedStartupShutsDownTelemetry(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.Telemetry = config.TelemetryConfig{Enabled: true, OTLPEndpoint: "127.0.0.1:4317", ServiceName: "spike-test"}
	cfg.Orchestrator.AllowListFile = filepath.Join(t.TempDir(), "nope.yaml")

	_, err := NewWithConfig(context.Background(), cfg)
	require.Error(t, err)

	// A shut-down provider hands out non-recording spans.
	_, span := otel.Tracer("spike-test").Start(context.Background(), "after-failed-start")
	defer span.End()
	assert.False(t, span.IsRecording())
}
