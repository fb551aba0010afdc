// Package orchestrator decides which agent answers a query. Two strategies
// are available: the intent Router (classify once, dispatch, aggregate) and
// the ReAct loop (reason step by step, bounded by a maximum iteration
// count). Both always return a response string; reasoning failures degrade
// to documented defaults.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/spikeai/spike/backend/internal/agents"
	"github.com/spikeai/spike/backend/internal/reasoning"
	"github.com/spikeai/spike/backend/pkg/models"
)

var tracer = otel.Tracer("spike-backend/orchestrator")

const (
	classifyTemperature  = 0.3
	synthesisTemperature = 0.7
)

// Options configures an Orchestrator.
type Options struct {
	Strategy          models.Strategy
	MaxIterations     int
	DefaultPropertyID string
}

// Orchestrator is the entry point used by the HTTP and CLI front ends.
type Orchestrator struct {
	router            *Router
	react             *ReAct
	strategy          models.Strategy
	defaultPropertyID string
}

func New(llm reasoning.Completer, agentA, agentB agents.Agent, opts Options) *Orchestrator {
	strategy := opts.Strategy
	if !strategy.Valid() {
		strategy = models.StrategyReAct
	}
	return &Orchestrator{
		router:            NewRouter(llm, agentA, agentB),
		react:             NewReAct(llm, agentA, agentB, opts.MaxIterations),
		strategy:          strategy,
		defaultPropertyID: opts.DefaultPropertyID,
	}
}

// Strategy returns the default strategy.
func (o *Orchestrator) Strategy() models.Strategy { return o.strategy }

// Route answers query with the default strategy. An empty propertyID is
// replaced with the configured default.
func (o *Orchestrator) Route(ctx context.Context, query, propertyID string) string {
	return o.Execute(ctx, models.QueryRequest{Query: query, PropertyID: propertyID}, nil).Response
}

// Execute answers req and returns the full run record. onStep, when
// non-nil, is called synchronously for every recorded step.
func (o *Orchestrator) Execute(ctx context.Context, req models.QueryRequest, onStep func(models.RunStep)) *models.Run {
	run := &models.Run{
		ID:         uuid.New().String(),
		Query:      req.Query,
		PropertyID: req.PropertyID,
		Strategy:   o.strategy,
		Status:     models.RunStatusRunning,
		CreatedAt:  time.Now().UTC(),
	}
	if run.PropertyID == "" {
		run.PropertyID = o.defaultPropertyID
	}
	if req.Strategy.Valid() {
		run.Strategy = req.Strategy
	}

	ctx, span := tracer.Start(ctx, "orchestrator.execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", run.ID),
		attribute.String("run.strategy", string(run.Strategy)),
	)

	rec := &recorder{run: run, onStep: onStep}
	start := time.Now()

	switch run.Strategy {
	case models.StrategyRouter:
		run.Response = o.router.Route(ctx, run.Query, run.PropertyID, rec)
	default:
		run.Response = o.react.Run(ctx, run.Query, run.PropertyID, rec).FinalResponse
	}

	run.DurationMs = time.Since(start).Milliseconds()
	run.Status = models.RunStatusCompleted
	log.Info().
		Str("run_id", run.ID).
		Str("strategy", string(run.Strategy)).
		Int("steps", len(run.Steps)).
		Int64("duration_ms", run.DurationMs).
		Msg("Query routed")
	return run
}

// ── helpers ─────────────────────────────────────────────────

// recorder appends steps to a run. A nil recorder discards them.
type recorder struct {
	mu     sync.Mutex
	run    *models.Run
	onStep func(models.RunStep)
}

func (r *recorder) record(step models.RunStep) {
	if r == nil {
		return
	}
	step.At = time.Now().UTC()
	r.mu.Lock()
	r.run.Steps = append(r.run.Steps, step)
	r.mu.Unlock()
	if r.onStep != nil {
		r.onStep(step)
	}
}

// invoke calls an agent and converts a panic into observation text.
func invoke(ctx context.Context, tool string, a agents.Agent, query, propertyID string) (text string) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Str("tool", tool).Msg("Agent panicked")
			text = fmt.Sprintf("Error executing %s: %v", tool, p)
		}
	}()
	if a == nil {
		return fmt.Sprintf("Error executing %s: agent not configured", tool)
	}
	return a.Handle(ctx, query, propertyID).String()
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
