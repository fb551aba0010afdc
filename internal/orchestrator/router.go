package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/spikeai/spike/backend/internal/agents"
	"github.com/spikeai/spike/backend/internal/plan"
	"github.com/spikeai/spike/backend/internal/prompts"
	"github.com/spikeai/spike/backend/internal/reasoning"
	"github.com/spikeai/spike/backend/pkg/models"
)

// Router classifies a query once and dispatches it to one agent, or to the
// Decomposer when both are needed.
type Router struct {
	llm        reasoning.Completer
	agentA     agents.Agent
	agentB     agents.Agent
	decomposer *Decomposer
}

func NewRouter(llm reasoning.Completer, agentA, agentB agents.Agent) *Router {
	return &Router{
		llm:        llm,
		agentA:     agentA,
		agentB:     agentB,
		decomposer: NewDecomposer(llm, agentA, agentB),
	}
}

// Classify asks the reasoning service for the query's intent. Any failure
// yields plan.DefaultIntent.
func (r *Router) Classify(ctx context.Context, query, propertyID string) plan.IntentClassification {
	ctx, span := tracer.Start(ctx, "router.classify")
	defer span.End()

	hasProperty := "no"
	if propertyID != "" {
		hasProperty = "yes"
	}
	prompt := prompts.Render(prompts.Classify, map[string]string{
		"query":        query,
		"has_property": hasProperty,
	})

	c, ok := plan.IntentClassification{}, false
	raw, err := r.llm.Complete(ctx, []models.ChatMessage{models.UserMessage(prompt)}, classifyTemperature)
	if err != nil {
		log.Warn().Err(err).Msg("Intent classification failed, using default intent")
	} else if c, ok = plan.ParseIntent(raw); !ok {
		log.Warn().Str("raw", truncate(raw, 200)).Msg("Unparseable intent classification, using default intent")
	}
	if !ok {
		c = plan.DefaultIntent(propertyID != "")
	}

	span.SetAttributes(
		attribute.String("router.intent", string(c.Intent)),
		attribute.Float64("router.confidence", c.Confidence),
	)
	return c
}

// Route classifies query and returns the dispatched agent's answer.
func (r *Router) Route(ctx context.Context, query, propertyID string, rec *recorder) string {
	c := r.Classify(ctx, query, propertyID)
	rec.record(models.RunStep{Kind: models.StepClassify, Detail: string(c.Intent)})
	log.Info().
		Str("intent", string(c.Intent)).
		Float64("confidence", c.Confidence).
		Str("reasoning", c.Reasoning).
		Msg("🧭 Query classified")

	switch c.Intent {
	case plan.IntentAgentA:
		rec.record(models.RunStep{Kind: models.StepDispatch, Tool: plan.ToolAgentA, Detail: query})
		return invoke(ctx, plan.ToolAgentA, r.agentA, query, propertyID)
	case plan.IntentAgentB:
		rec.record(models.RunStep{Kind: models.StepDispatch, Tool: plan.ToolAgentB, Detail: query})
		return invoke(ctx, plan.ToolAgentB, r.agentB, query, "")
	case plan.IntentMulti:
		return r.decomposer.Run(ctx, query, propertyID, rec)
	default:
		return fmt.Sprintf("Unable to route this query: unrecognized intent %q.", c.Intent)
	}
}
