package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spikeai/spike/backend/internal/api"
	"github.com/spikeai/spike/backend/internal/api/handlers"
	"github.com/spikeai/spike/backend/internal/api/middleware"
	"github.com/spikeai/spike/backend/internal/store"
	"github.com/spikeai/spike/backend/pkg/models"
)

type fakeRunner struct {
	got     []models.QueryRequest
	steps   []models.RunStep
	reply   string
	panics  bool
}

func (f *fakeRunner) Execute(_ context.Context, req models.QueryRequest, onStep func(models.RunStep)) *models.Run {
	if f.panics {
		panic("boom")
	}
	f.got = append(f.got, req)
	run := &models.Run{
		ID:         "run-" + req.Query,
		Query:      req.Query,
		PropertyID: req.PropertyID,
		Strategy:   models.StrategyReAct,
		Status:     models.RunStatusCompleted,
		Response:   f.reply,
		CreatedAt:  time.Now().UTC(),
	}
	for _, s := range f.steps {
		run.Steps = append(run.Steps, s)
		if onStep != nil {
			onStep(s)
		}
	}
	return run
}

func (f *fakeRunner) Strategy() models.Strategy { return models.StrategyReAct }

func newServer(t *testing.T, runner *fakeRunner, keys ...string) (http.Handler, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore(0)
	t.Cleanup(func() { s.Close() })
	h := handlers.New(runner, s, "1.0.0", time.Minute)
	return api.NewRouter(h, middleware.NewAPIKeyAuth(keys)), s
}

func do(h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRootHealthVersion(t *testing.T) {
	h, _ := newServer(t, &fakeRunner{})

	w := do(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"status": "healthy", "service": "Spike AI Backend", "version": "1.0.0"},
		decode[map[string]string](t, w))

	w = do(h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])

	w = do(h, http.MethodGet, "/version", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "react", decode[map[string]string](t, w)["strategy"])
}

func TestQuery(t *testing.T) {
	runner := &fakeRunner{reply: "You had 42 users."}
	h, s := newServer(t, runner)

	w := do(h, http.MethodPost, "/query", `{"query":"users last week","propertyId":"123"}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[models.QueryResponse](t, w)
	assert.Equal(t, "You had 42 users.", resp.Response)
	assert.Equal(t, "run-users last week", resp.RunID)
	require.Len(t, runner.got, 1)
	assert.Equal(t, "123", runner.got[0].PropertyID)

	saved, err := s.GetRun(context.Background(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, "You had 42 users.", saved.Response)
}

func TestQuery_PropertyHeader(t *testing.T) {
	runner := &fakeRunner{reply: "ok"}
	h, _ := newServer(t, runner)

	w := do(h, http.MethodPost, "/query", `{"query":"q"}`, "X-Property-Id", "999")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, runner.got, 1)
	assert.Equal(t, "999", runner.got[0].PropertyID)

	// The body wins over the header.
	do(h, http.MethodPost, "/query", `{"query":"q2","propertyId":"111"}`, "X-Property-Id", "999")
	assert.Equal(t, "111", runner.got[1].PropertyID)
}

func TestQuery_BadRequests(t *testing.T) {
	runner := &fakeRunner{}
	h, _ := newServer(t, runner)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", `{"query":""}`, "Query cannot be empty"},
		{"blank", `{"query":"   "}`, "Query cannot be empty"},
		{"malformed", `{`, "Invalid request body"},
		{"bad strategy", `{"query":"q","strategy":"magic"}`, `Unknown strategy "magic"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, "/query", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode[map[string]string](t, w)["error"], tt.want)
		})
	}
	assert.Empty(t, runner.got)
}

func TestQuery_PanicBecomes500(t *testing.T) {
	h, _ := newServer(t, &fakeRunner{panics: true})

	w := do(h, http.MethodPost, "/query", `{"query":"q"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error: boom", decode[map[string]string](t, w)["error"])
}

func readEvents(t *testing.T, body string) []models.StreamEvent {
	t.Helper()
	var events []models.StreamEvent
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev models.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func TestQueryStream(t *testing.T) {
	runner := &fakeRunner{
		reply: "Final answer",
		steps: []models.RunStep{
			{Kind: models.StepThink, Iteration: 1, Detail: "need traffic"},
			{Kind: models.StepAction, Iteration: 1, Tool: "agent_a_query"},
		},
	}
	h, _ := newServer(t, runner)

	w := do(h, http.MethodPost, "/query/stream", `{"query":"traffic"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))

	events := readEvents(t, w.Body.String())
	require.Len(t, events, 7)
	assert.Equal(t, models.StreamEvent{Step: 1, Status: "Analyzing your query..."}, events[0])
	assert.Equal(t, 4, events[3].Step)
	assert.Equal(t, "think #1: need traffic", events[4].Status)
	assert.Equal(t, "action #1 [agent_a_query]", events[5].Status)

	last := events[6]
	assert.Equal(t, 5, last.Step)
	assert.Equal(t, "Complete!", last.Status)
	assert.Equal(t, "Final answer", last.Response)
	assert.Equal(t, "run-traffic", last.RunID)
}

func TestQueryStream_EmptyQuery(t *testing.T) {
	h, _ := newServer(t, &fakeRunner{})

	w := do(h, http.MethodPost, "/query/stream", `{"query":""}`)
	require.Equal(t, http.StatusOK, w.Code)
	events := readEvents(t, w.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, "Query cannot be empty", events[0].Error)
}

func TestRuns(t *testing.T) {
	h, _ := newServer(t, &fakeRunner{reply: "r"})

	do(h, http.MethodPost, "/query", `{"query":"a"}`)
	do(h, http.MethodPost, "/query", `{"query":"b"}`)

	w := do(h, http.MethodGet, "/api/v1/runs?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Run](t, w), 2)

	w = do(h, http.MethodGet, "/api/v1/runs/run-a", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a", decode[models.Run](t, w).Query)

	w = do(h, http.MethodGet, "/api/v1/runs/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "run not found: nope", decode[map[string]string](t, w)["error"])
}

func TestAPIKeyProtectsQueries(t *testing.T) {
	h, _ := newServer(t, &fakeRunner{reply: "r"}, "secret")

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodPost, "/query", `{"query":"a"}`).Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/query", `{"query":"a"}`, "X-API-Key", "secret").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health", "").Code)
}
