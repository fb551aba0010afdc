package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/spikeai/spike/backend/internal/plan"
	"github.com/spikeai/spike/backend/internal/prompts"
	"github.com/spikeai/spike/backend/internal/reasoning"
	"github.com/spikeai/spike/backend/internal/seodata"
	"github.com/spikeai/spike/backend/pkg/models"
)

const (
	seoSchemaSamples = 3
	seoSummaryRows   = 50
)

// SEOAgent answers technical SEO questions from the crawl dataset (Agent B).
type SEOAgent struct {
	llm    reasoning.Completer
	source seodata.Source
}

// NewSEOAgent creates the SEO agent. A nil source makes every query report
// that no crawl data is available.
func NewSEOAgent(llm reasoning.Completer, source seodata.Source) *SEOAgent {
	return &SEOAgent{llm: llm, source: source}
}

// Handle ignores propertyID; the crawl dataset is not scoped by property.
func (a *SEOAgent) Handle(ctx context.Context, query, _ string) Result {
	ctx, span := tracer.Start(ctx, "agent.seo")
	defer span.End()

	res := a.handle(ctx, query)
	span.SetAttributes(attribute.String("agent.result_kind", string(res.Kind)))
	return res
}

func (a *SEOAgent) handle(ctx context.Context, query string) Result {
	notAvailable := PrefixSEONotAvailable + ". Please check the Google Sheets configuration and credentials."
	if a.source == nil {
		return Err(KindNotConfigured, notAvailable, "no SEO data source configured")
	}
	table, err := a.source.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load SEO data")
		return Err(KindNotConfigured, notAvailable, err.Error())
	}
	if table.Empty() {
		return Err(KindNotConfigured, notAvailable, "crawl dataset is empty")
	}

	log.Info().Str("query", query).Int("rows", len(table.Rows)).Msg("🔍 Planning SEO query")
	p, err := a.plan(ctx, query, table)
	if err != nil {
		return Err(KindReasoning, fmt.Sprintf("%s: %v", PrefixSEOFailure, err), err.Error())
	}

	res, err := seodata.Execute(table, p)
	if err != nil {
		return Err(KindExecution, fmt.Sprintf("%s: %v", PrefixSEOAnalysisError, err), err.Error())
	}
	if len(res.Rows) == 0 {
		return Err(KindEmptyResult, PrefixSEONoResults+" your criteria. Try broadening your filters or checking the available data columns.", "no rows")
	}
	log.Info().Str("operation", p.Operation).Int("rows", len(res.Rows)).Msg("SEO analysis executed")

	if wantsJSON(query, p) {
		data, err := json.MarshalIndent(res.Rows, "", "  ")
		if err != nil {
			return Err(KindExecution, fmt.Sprintf("%s: %v", PrefixSEOAnalysisError, err), err.Error())
		}
		return Ok(string(data))
	}

	text, err := a.explain(ctx, query, p, res)
	if err != nil {
		return Err(KindReasoning, fmt.Sprintf("%s: %v", PrefixSEOFailure, err), err.Error())
	}
	return Ok(text)
}

func (a *SEOAgent) plan(ctx context.Context, query string, table *seodata.Table) (plan.SEOPlan, error) {
	schema, _ := json.MarshalIndent(table.Schema(seoSchemaSamples), "", "  ")
	prompt := prompts.Render(prompts.SEOPlan, map[string]string{
		"schema": string(schema),
		"query":  query,
	})
	raw, err := a.llm.Complete(ctx, []models.ChatMessage{models.UserMessage(prompt)}, planTemperature)
	if err != nil {
		return plan.SEOPlan{}, err
	}
	return plan.ParseSEOPlan(raw), nil
}

func (a *SEOAgent) explain(ctx context.Context, query string, p plan.SEOPlan, res *seodata.Result) (string, error) {
	conditions, _ := json.Marshal(p.Conditions)
	prompt := prompts.Render(prompts.SEOExplain, map[string]string{
		"query":         query,
		"operation":     p.Operation,
		"columns":       strings.Join(p.Columns, ", "),
		"conditions":    string(conditions),
		"group_by":      orNone(p.GroupBy),
		"aggregate":     orNone(p.Aggregate),
		"data":          summarizeResults(res.Rows),
		"total_results": strconv.Itoa(len(res.Rows)),
	})
	return a.llm.Complete(ctx, []models.ChatMessage{models.UserMessage(prompt)}, explainTemperature)
}

func wantsJSON(query string, p plan.SEOPlan) bool {
	return p.OutputFormat == plan.FormatJSON || strings.Contains(strings.ToLower(query), "json")
}

func summarizeResults(rows []map[string]any) string {
	head := rows
	if len(head) > seoSummaryRows {
		head = head[:seoSummaryRows]
	}
	data, _ := json.MarshalIndent(head, "", "  ")
	if len(rows) > seoSummaryRows {
		return fmt.Sprintf("%s\n... (%d total results)", data, len(rows))
	}
	return string(data)
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
