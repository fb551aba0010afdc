// Package agents implements the two leaf agents (GA4 analytics and
// technical SEO). Each runs a plan → execute → explain pipeline and never
// returns an error to the orchestrator: failures come back as a tagged
// Result whose text is safe to show to the user.
package agents

import (
	"context"
)

// Agent is the boundary the orchestrator dispatches to. propertyID is
// ignored by agents that do not need it.
type Agent interface {
	Handle(ctx context.Context, query, propertyID string) Result
}

// ErrorKind classifies an agent failure.
type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindNotConfigured ErrorKind = "not_configured"
	KindExecution     ErrorKind = "execution"
	KindEmptyResult   ErrorKind = "empty_result"
	KindReasoning     ErrorKind = "reasoning"
)

// Known prefixes of the user-facing failure texts.
const (
	PrefixAnalyticsQueryError = "I encountered an error querying Google Analytics"
	PrefixAnalyticsNoData     = "I successfully queried Google Analytics, but no data was found"
	PrefixAnalyticsFailure    = "I encountered an error while processing your analytics query"
	PrefixSEONotAvailable     = "SEO data is not available"
	PrefixSEOAnalysisError    = "I encountered an error analyzing the SEO data"
	PrefixSEONoResults        = "I successfully analyzed the SEO data, but no results matched"
	PrefixSEOFailure          = "I encountered an error while processing your SEO query"
)

// Result is either an answer (Kind == KindNone) or a failure with a kind,
// a diagnostic detail and a user-facing text.
type Result struct {
	Text   string    `json:"text"`
	Kind   ErrorKind `json:"kind,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

func Ok(text string) Result {
	return Result{Text: text}
}

func Err(kind ErrorKind, text, detail string) Result {
	return Result{Text: text, Kind: kind, Detail: detail}
}

// Failed reports whether r carries an error kind.
func (r Result) Failed() bool { return r.Kind != KindNone }

// String returns the text shown to the user.
func (r Result) String() string { return r.Text }

// AgentFunc adapts a function to the Agent interface.
type AgentFunc func(ctx context.Context, query, propertyID string) Result

func (f AgentFunc) Handle(ctx context.Context, query, propertyID string) Result {
	return f(ctx, query, propertyID)
}
