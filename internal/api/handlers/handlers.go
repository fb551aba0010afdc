// Package handlers implements the HTTP handlers for the Spike backend.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/spikeai/spike/backend/internal/api/middleware"
	"github.com/spikeai/spike/backend/internal/store"
	"github.com/spikeai/spike/backend/pkg/models"
)

// ServiceName is reported by the root and version endpoints.
const ServiceName = "Spike AI Backend"

// QueryRunner executes one routed query. *orchestrator.Orchestrator satisfies it.
type QueryRunner interface {
	Execute(ctx context.Context, req models.QueryRequest, onStep func(models.RunStep)) *models.Run
	Strategy() models.Strategy
}

// Handlers holds all handler dependencies.
type Handlers struct {
	Runner         QueryRunner
	Store          store.RunStore
	ServiceVersion string
	QueryTimeout   time.Duration
}

// New creates a new Handlers instance.
func New(runner QueryRunner, s store.RunStore, version string, queryTimeout time.Duration) *Handlers {
	return &Handlers{
		Runner:         runner,
		Store:          s,
		ServiceVersion: version,
		QueryTimeout:   queryTimeout,
	}
}

// ── Service Info ─────────────────────────────────────────────

func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
		"version": h.ServiceVersion,
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Store.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  "run store unreachable: " + err.Error(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"version":  h.ServiceVersion,
		"service":  ServiceName,
		"strategy": string(h.Runner.Strategy()),
	})
}

// ── Query ────────────────────────────────────────────────────

func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := h.execute(r.Context(), req, nil)
	if err != nil {
		log.Error().Err(err).Str("query", req.Query).Msg("Error processing query")
		respondError(w, http.StatusInternalServerError, "Internal server error: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, models.QueryResponse{Response: run.Response, RunID: run.ID})
}

// QueryStream reports progress as Server-Sent Events. Validation errors are
// delivered in-stream so EventSource clients see them.
func (h *Handlers) QueryStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var writeErr error
	send := func(ev models.StreamEvent) {
		if writeErr != nil {
			return
		}
		data, _ := json.Marshal(ev)
		if _, writeErr = fmt.Fprintf(w, "data: %s\n\n", data); writeErr == nil {
			flusher.Flush()
		}
	}

	req, err := decodeQuery(r)
	if err != nil {
		send(models.StreamEvent{Error: err.Error()})
		return
	}

	send(models.StreamEvent{Step: 1, Status: "Analyzing your query..."})
	send(models.StreamEvent{Step: 2, Status: "Identifying intent (Analytics/SEO/Multi-Agent)..."})
	send(models.StreamEvent{Step: 3, Status: "Routing to specialized agent(s)..."})
	send(models.StreamEvent{Step: 4, Status: "Fetching data and generating response..."})

	run, err := h.execute(r.Context(), req, func(step models.RunStep) {
		send(models.StreamEvent{Step: 4, Status: describeStep(step)})
	})
	if err != nil {
		send(models.StreamEvent{Error: err.Error()})
		return
	}

	send(models.StreamEvent{Step: 5, Status: "Complete!", Response: run.Response, RunID: run.ID})
	if writeErr != nil {
		log.Debug().Err(writeErr).Str("run_id", run.ID).Msg("Stream client went away")
	}
}

// execute runs the query under the configured timeout and records the run.
// Panics escaping the orchestrator are returned as errors.
func (h *Handlers) execute(ctx context.Context, req models.QueryRequest, onStep func(models.RunStep)) (run *models.Run, err error) {
	if h.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.QueryTimeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			run, err = nil, fmt.Errorf("%v", p)
		}
	}()

	run = h.Runner.Execute(ctx, req, onStep)

	if h.Store != nil {
		// The query context may be done; persist independently of it.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := h.Store.SaveRun(saveCtx, run); err != nil {
			log.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to save run")
		}
	}
	return run, nil
}

func decodeQuery(r *http.Request) (models.QueryRequest, error) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, errors.New("Invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return req, errors.New("Query cannot be empty")
	}
	if req.PropertyID == "" {
		req.PropertyID = middleware.GetPropertyID(r.Context())
	}
	if req.Strategy != "" && !req.Strategy.Valid() {
		return req, fmt.Errorf("Unknown strategy %q (expected %q or %q)", req.Strategy, models.StrategyReAct, models.StrategyRouter)
	}
	return req, nil
}

func describeStep(s models.RunStep) string {
	var b strings.Builder
	b.WriteString(s.Kind)
	if s.Iteration > 0 {
		fmt.Fprintf(&b, " #%d", s.Iteration)
	}
	if s.Tool != "" {
		b.WriteString(" [" + s.Tool + "]")
	}
	if s.Detail != "" {
		b.WriteString(": " + s.Detail)
	}
	return b.String()
}

// ── Runs ─────────────────────────────────────────────────────

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []models.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runId")

	run, err := h.Store.GetRun(r.Context(), runID)
	if err != nil {
		var nf *store.ErrNotFound
		if errors.As(err, &nf) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
