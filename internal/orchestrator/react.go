package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/spikeai/spike/backend/internal/agents"
	"github.com/spikeai/spike/backend/internal/plan"
	"github.com/spikeai/spike/backend/internal/prompts"
	"github.com/spikeai/spike/backend/internal/reasoning"
	"github.com/spikeai/spike/backend/pkg/models"
)

// DefaultMaxIterations caps the think/act/observe loop.
const DefaultMaxIterations = 5

// ── State ───────────────────────────────────────────────────

// Observation is the result of one action. Final is set only by the
// final_answer tool; agent text never marks completion.
type Observation struct {
	Text  string `json:"text"`
	Final bool   `json:"final,omitempty"`
}

// State is the loop state for one query. Thoughts, Actions and
// Observations are index-aligned once a cycle completes. Next and Pending
// carry the current cycle between stages.
type State struct {
	Query      string
	PropertyID string

	Thoughts     []string
	Actions      []plan.Action
	Observations []Observation

	Next    plan.Action
	Pending Observation

	Iteration     int
	MaxIterations int
	IsComplete    bool
	FinalResponse string
}

// NewState returns the initial THINK state for a query.
func NewState(query, propertyID string, maxIterations int) State {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return State{Query: query, PropertyID: propertyID, MaxIterations: maxIterations}
}

// Update is the incremental output of one stage. Nil fields leave the
// state untouched.
type Update struct {
	Thought    *string
	Next       *plan.Action
	Taken      *plan.Action
	Pending    *Observation
	Observed   *Observation
	Iterations int
	Complete   bool
	Final      *string
}

// Merge applies u to a copy of s. The receiver's slices are never mutated.
func (s State) Merge(u Update) State {
	if u.Thought != nil {
		s.Thoughts = append(slices.Clone(s.Thoughts), *u.Thought)
	}
	if u.Next != nil {
		s.Next = *u.Next
	}
	if u.Taken != nil {
		s.Actions = append(slices.Clone(s.Actions), *u.Taken)
	}
	if u.Pending != nil {
		s.Pending = *u.Pending
	}
	if u.Observed != nil {
		s.Observations = append(slices.Clone(s.Observations), *u.Observed)
	}
	s.Iteration += u.Iterations
	if u.Complete {
		s.IsComplete = true
	}
	if u.Final != nil {
		s.FinalResponse = *u.Final
	}
	return s
}

// Phase is the next stage after OBSERVE.
type Phase int

const (
	PhaseThink Phase = iota
	PhaseFinal
)

// Transition decides whether to loop or finish.
func Transition(s State) Phase {
	if s.IsComplete || s.Iteration >= s.MaxIterations {
		return PhaseFinal
	}
	return PhaseThink
}

// ── Loop ────────────────────────────────────────────────────

// ReAct runs the think/act/observe loop over the two agents.
type ReAct struct {
	llm           reasoning.Completer
	agentA        agents.Agent
	agentB        agents.Agent
	maxIterations int
}

func NewReAct(llm reasoning.Completer, agentA, agentB agents.Agent, maxIterations int) *ReAct {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &ReAct{llm: llm, agentA: agentA, agentB: agentB, maxIterations: maxIterations}
}

// Run drives a fresh state to FINAL_ANSWER and returns the terminal state.
func (r *ReAct) Run(ctx context.Context, query, propertyID string, rec *recorder) State {
	ctx, span := tracer.Start(ctx, "react.run")
	defer span.End()

	s := NewState(query, propertyID, r.maxIterations)
	log.Info().Str("query", query).Int("max_iterations", s.MaxIterations).Msg("🚀 Starting ReAct loop")

	for {
		s = s.Merge(r.Think(ctx, s))
		rec.record(models.RunStep{Kind: models.StepThink, Iteration: s.Iteration, Tool: s.Next.Tool, Detail: s.Thoughts[len(s.Thoughts)-1]})

		s = s.Merge(r.Act(ctx, s))
		rec.record(models.RunStep{Kind: models.StepAction, Iteration: s.Iteration, Tool: s.Next.Tool, Detail: truncate(s.Next.Input, 200)})

		s = s.Merge(Observe(s))
		rec.record(models.RunStep{Kind: models.StepObserve, Iteration: s.Iteration, Detail: truncate(s.Pending.Text, 200)})

		if Transition(s) == PhaseFinal {
			break
		}
	}
	if !s.IsComplete {
		log.Warn().Int("iterations", s.Iteration).Msg("Max iterations reached, forcing completion")
	}

	s = s.Merge(r.Finish(ctx, s, rec))
	span.SetAttributes(
		attribute.Int("react.iterations", s.Iteration),
		attribute.Bool("react.completed", s.IsComplete),
	)
	log.Info().Int("iterations", s.Iteration).Int("actions", len(s.Actions)).Msg("✅ ReAct loop complete")
	return s
}

// Think asks the reasoning service for the next action. It always advances
// the iteration and records a thought; failures become a final_answer
// carrying the error text.
func (r *ReAct) Think(ctx context.Context, s State) Update {
	ctx, span := tracer.Start(ctx, "react.think")
	defer span.End()

	prompt := prompts.Render(prompts.Think, map[string]string{
		"tools":          prompts.Tools,
		"query":          s.Query,
		"history":        formatHistory(s),
		"iteration":      strconv.Itoa(s.Iteration + 1),
		"max_iterations": strconv.Itoa(s.MaxIterations),
	})

	var t plan.Thought
	raw, err := r.llm.Complete(ctx, []models.ChatMessage{models.UserMessage(prompt)}, classifyTemperature)
	if err == nil {
		var ok bool
		if t, ok = plan.ParseThought(raw); !ok {
			err = fmt.Errorf("unparseable reasoning output")
		}
	}
	if err != nil {
		log.Warn().Err(err).Int("iteration", s.Iteration+1).Msg("Think step failed")
		t = plan.Thought{
			Thought: "Error: " + err.Error(),
			Action:  plan.Action{Tool: plan.ToolFinalAnswer, Input: "I encountered an error: " + err.Error()},
		}
	}

	log.Debug().Int("iteration", s.Iteration+1).Str("thought", t.Thought).Str("tool", t.Action.Tool).Msg("🧠 Think")
	span.SetAttributes(attribute.String("react.tool", t.Action.Tool))
	return Update{Thought: &t.Thought, Next: &t.Action, Iterations: 1}
}

// Act executes s.Next. Agent failures, including panics, become
// observation text.
func (r *ReAct) Act(ctx context.Context, s State) Update {
	ctx, span := tracer.Start(ctx, "react.act")
	defer span.End()

	action := s.Next
	span.SetAttributes(attribute.String("react.tool", action.Tool))

	var obs Observation
	switch action.Tool {
	case plan.ToolAgentA:
		obs.Text = invoke(ctx, action.Tool, r.agentA, action.Input, s.PropertyID)
	case plan.ToolAgentB:
		obs.Text = invoke(ctx, action.Tool, r.agentB, action.Input, "")
	case plan.ToolFinalAnswer:
		obs = Observation{Text: action.Input, Final: true}
	default:
		obs.Text = fmt.Sprintf("Unknown tool: %s. Available tools: %s", action.Tool, strings.Join(plan.ToolNames, ", "))
	}
	return Update{Taken: &action, Pending: &obs}
}

// Observe records the pending observation and sets completion.
func Observe(s State) Update {
	obs := s.Pending
	return Update{
		Observed: &obs,
		Complete: s.Next.Tool == plan.ToolFinalAnswer || obs.Final,
	}
}

// Finish produces the final response: the final_answer text when the loop
// completed, otherwise a synthesis over every non-final observation.
func (r *ReAct) Finish(ctx context.Context, s State, rec *recorder) Update {
	if n := len(s.Observations); n > 0 && s.Observations[n-1].Final {
		final := strings.TrimSpace(s.Observations[n-1].Text)
		rec.record(models.RunStep{Kind: models.StepFinal, Iteration: s.Iteration})
		return Update{Final: &final}
	}

	ctx, span := tracer.Start(ctx, "react.synthesize")
	defer span.End()

	var parts []string
	for i, o := range s.Observations {
		if o.Final {
			continue
		}
		parts = append(parts, fmt.Sprintf("Observation %d:\n%s", i+1, o.Text))
	}
	all := strings.Join(parts, "\n\n")

	prompt := prompts.Render(prompts.Synthesize, map[string]string{
		"query":        s.Query,
		"observations": all,
	})
	final, err := r.llm.Complete(ctx, []models.ChatMessage{models.UserMessage(prompt)}, synthesisTemperature)
	if err != nil {
		log.Warn().Err(err).Msg("Final answer synthesis failed")
		final = fmt.Sprintf("Error generating final answer: %v\n\nRaw observations:\n%s", err, all)
	}
	rec.record(models.RunStep{Kind: models.StepSynthesize, Iteration: s.Iteration})
	return Update{Final: &final}
}

func formatHistory(s State) string {
	n := min(len(s.Thoughts), len(s.Actions), len(s.Observations))
	if n == 0 {
		return prompts.NoHistory
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "\n--- Iteration %d ---\n", i+1)
		fmt.Fprintf(&b, "Thought: %s\n", s.Thoughts[i])
		fmt.Fprintf(&b, "Action: %s - %s...\n", s.Actions[i].Tool, truncate(s.Actions[i].Input, 100))
		fmt.Fprintf(&b, "Observation: %s...\n", truncate(s.Observations[i].Text, 200))
	}
	return b.String()
}
