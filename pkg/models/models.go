package models

import (
	"time"
)

// ── Reasoning Messages ───────────────────────────────────────

// ChatMessage is one turn sent to the reasoning service.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// UserMessage is a shorthand for a single user turn.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// ── Orchestration Strategy ───────────────────────────────────

type Strategy string

const (
	// StrategyRouter classifies intent once and dispatches to one or both agents.
	StrategyRouter Strategy = "router"
	// StrategyReAct runs the think/act/observe loop.
	StrategyReAct Strategy = "react"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyRouter || s == StrategyReAct
}

// ── Query API ────────────────────────────────────────────────

type QueryRequest struct {
	Query      string   `json:"query"`
	PropertyID string   `json:"propertyId,omitempty"`
	Strategy   Strategy `json:"strategy,omitempty"`
}

type QueryResponse struct {
	Response string `json:"response"`
	RunID    string `json:"run_id,omitempty"`
}

// StreamEvent is one Server-Sent Event emitted by /query/stream.
type StreamEvent struct {
	Step     int    `json:"step,omitempty"`
	Status   string `json:"status,omitempty"`
	Response string `json:"response,omitempty"`
	RunID    string `json:"run_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ── Runs ─────────────────────────────────────────────────────

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
)

// Run records one routed query and the steps the orchestrator took for it.
type Run struct {
	ID         string    `json:"id" db:"id"`
	Query      string    `json:"query" db:"query"`
	PropertyID string    `json:"property_id,omitempty" db:"property_id"`
	Strategy   Strategy  `json:"strategy" db:"strategy"`
	Status     RunStatus `json:"status" db:"status"`
	Response   string    `json:"response,omitempty" db:"response"`
	Steps      []RunStep `json:"steps,omitempty"`
	DurationMs int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// RunStep is a single orchestration event within a run.
type RunStep struct {
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	Iteration int       `json:"iteration,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	At        time.Time `json:"at"`
}

// Step kinds recorded on a Run.
const (
	StepClassify   = "classify"
	StepDispatch   = "dispatch"
	StepDecompose  = "decompose"
	StepAggregate  = "aggregate"
	StepThink      = "think"
	StepAction     = "action"
	StepObserve    = "observe"
	StepSynthesize = "synthesize"
	StepFinal      = "final"
)
