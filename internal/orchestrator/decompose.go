package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/spikeai/spike/backend/internal/agents"
	"github.com/spikeai/spike/backend/internal/plan"
	"github.com/spikeai/spike/backend/internal/prompts"
	"github.com/spikeai/spike/backend/internal/reasoning"
	"github.com/spikeai/spike/backend/pkg/models"
)

// NotAvailableMarker stands in for the analytics result when no property id
// is known.
const NotAvailableMarker = "Analytics data not available: no GA4 property id was provided."

// Decomposer answers multi-agent queries: split, run both agents, merge.
type Decomposer struct {
	llm    reasoning.Completer
	agentA agents.Agent
	agentB agents.Agent
}

func NewDecomposer(llm reasoning.Completer, agentA, agentB agents.Agent) *Decomposer {
	return &Decomposer{llm: llm, agentA: agentA, agentB: agentB}
}

// Decompose splits query into one sub-query per agent. On any failure both
// sub-queries are the original query.
func (d *Decomposer) Decompose(ctx context.Context, query string) plan.Decomposition {
	ctx, span := tracer.Start(ctx, "decomposer.decompose")
	defer span.End()

	prompt := prompts.Render(prompts.Decompose, map[string]string{"query": query})
	raw, err := d.llm.Complete(ctx, []models.ChatMessage{models.UserMessage(prompt)}, classifyTemperature)
	if err != nil {
		log.Warn().Err(err).Msg("Query decomposition failed, sending original query to both agents")
		return plan.Decomposition{SubQueryA: query, SubQueryB: query}
	}
	return plan.ParseDecomposition(raw, query)
}

// Run decomposes query, runs both agents concurrently and aggregates their
// answers. Agent A is skipped when propertyID is empty.
func (d *Decomposer) Run(ctx context.Context, query, propertyID string, rec *recorder) string {
	dq := d.Decompose(ctx, query)
	rec.record(models.RunStep{Kind: models.StepDecompose, Detail: fmt.Sprintf("A: %s | B: %s", dq.SubQueryA, dq.SubQueryB)})

	resultA := NotAvailableMarker
	var resultB string

	// Agents report failures in their result text, so no goroutine returns an error.
	var g errgroup.Group
	if propertyID != "" {
		rec.record(models.RunStep{Kind: models.StepDispatch, Tool: plan.ToolAgentA, Detail: dq.SubQueryA})
		g.Go(func() error {
			resultA = invoke(ctx, plan.ToolAgentA, d.agentA, dq.SubQueryA, propertyID)
			return nil
		})
	}
	rec.record(models.RunStep{Kind: models.StepDispatch, Tool: plan.ToolAgentB, Detail: dq.SubQueryB})
	g.Go(func() error {
		resultB = invoke(ctx, plan.ToolAgentB, d.agentB, dq.SubQueryB, "")
		return nil
	})
	g.Wait()

	return d.Aggregate(ctx, query, resultA, resultB, rec)
}

// Aggregate merges both agent answers with one reasoning call. If that call
// fails the two answers are returned under headings.
func (d *Decomposer) Aggregate(ctx context.Context, query, resultA, resultB string, rec *recorder) string {
	ctx, span := tracer.Start(ctx, "decomposer.aggregate")
	defer span.End()

	prompt := prompts.Render(prompts.Aggregate, map[string]string{
		"query":    query,
		"result_a": resultA,
		"result_b": resultB,
	})
	answer, err := d.llm.Complete(ctx, []models.ChatMessage{models.UserMessage(prompt)}, synthesisTemperature)
	if err != nil {
		log.Warn().Err(err).Msg("Aggregation failed, returning agent answers unmerged")
		rec.record(models.RunStep{Kind: models.StepAggregate, Detail: "failed: " + err.Error()})
		return fmt.Sprintf("## Analytics (GA4)\n%s\n\n## SEO audit\n%s", resultA, resultB)
	}
	rec.record(models.RunStep{Kind: models.StepAggregate})
	return answer
}
