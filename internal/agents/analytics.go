package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/spikeai/spike/backend/internal/connectors/ga4"
	"github.com/spikeai/spike/backend/internal/plan"
	"github.com/spikeai/spike/backend/internal/prompts"
	"github.com/spikeai/spike/backend/internal/reasoning"
	"github.com/spikeai/spike/backend/pkg/models"
)

var tracer = otel.Tracer("spike-backend/agents")

const (
	planTemperature    = 0.3
	explainTemperature = 0.7

	// Row data larger than this is cut to the first analyticsSummaryRows rows
	// before it goes into the explanation prompt.
	analyticsSummaryLimit = 3000
	analyticsSummaryRows  = 20
)

// ReportRunner executes an analytics plan. *ga4.Client satisfies it.
type ReportRunner interface {
	RunReport(ctx context.Context, propertyID string, p plan.AnalyticsPlan) (*ga4.Report, error)
}

// AnalyticsAgent answers traffic questions from GA4 (Agent A).
type AnalyticsAgent struct {
	llm    reasoning.Completer
	runner ReportRunner
	allow  *plan.AllowList
}

// NewAnalyticsAgent creates the analytics agent. A nil runner is allowed and
// makes every query report missing credentials.
func NewAnalyticsAgent(llm reasoning.Completer, runner ReportRunner, allow *plan.AllowList) *AnalyticsAgent {
	if allow == nil {
		allow = plan.DefaultAllowList()
	}
	return &AnalyticsAgent{llm: llm, runner: runner, allow: allow}
}

func (a *AnalyticsAgent) Handle(ctx context.Context, query, propertyID string) Result {
	ctx, span := tracer.Start(ctx, "agent.analytics")
	defer span.End()

	res := a.handle(ctx, query, propertyID)
	span.SetAttributes(attribute.String("agent.result_kind", string(res.Kind)))
	return res
}

func (a *AnalyticsAgent) handle(ctx context.Context, query, propertyID string) Result {
	log.Info().Str("query", query).Msg("📊 Planning analytics query")
	p, err := a.plan(ctx, query)
	if err != nil {
		return Err(KindReasoning, fmt.Sprintf("%s: %v", PrefixAnalyticsFailure, err), err.Error())
	}

	if a.runner == nil {
		detail := "GA4 client not initialized. Check credentials.json"
		return Err(KindNotConfigured, analyticsQueryError(detail), detail)
	}

	log.Info().Str("property_id", propertyID).Strs("metrics", p.Metrics).Msg("🔍 Querying GA4")
	report, err := a.runner.RunReport(ctx, propertyID, p)
	if err != nil {
		return Err(KindExecution, analyticsQueryError(err.Error()), err.Error())
	}
	if len(report.Rows) == 0 {
		details, _ := json.MarshalIndent(p, "", "  ")
		return Err(KindEmptyResult, PrefixAnalyticsNoData+" for your request. This could mean:\n"+
			"- The GA4 property has no traffic for the specified time period\n"+
			"- The filters excluded all data\n"+
			"- The page or dimension you're looking for doesn't exist in the data\n\n"+
			"Query details: "+string(details), "no rows")
	}
	log.Info().Int("rows", report.RowCount).Msg("GA4 rows retrieved")

	text, err := a.explain(ctx, query, p, report)
	if err != nil {
		return Err(KindReasoning, fmt.Sprintf("%s: %v", PrefixAnalyticsFailure, err), err.Error())
	}
	return Ok(text)
}

func (a *AnalyticsAgent) plan(ctx context.Context, query string) (plan.AnalyticsPlan, error) {
	prompt := prompts.Render(prompts.AnalyticsPlan, map[string]string{
		"metrics":    strings.Join(a.allow.Metrics, ", "),
		"dimensions": strings.Join(a.allow.Dimensions, ", "),
		"query":      query,
	})
	raw, err := a.llm.Complete(ctx, []models.ChatMessage{models.UserMessage(prompt)}, planTemperature)
	if err != nil {
		return plan.AnalyticsPlan{}, err
	}
	return plan.ParseAnalyticsPlan(raw, a.allow), nil
}

func (a *AnalyticsAgent) explain(ctx context.Context, query string, p plan.AnalyticsPlan, report *ga4.Report) (string, error) {
	filters, _ := json.Marshal(p.Filters)
	prompt := prompts.Render(prompts.AnalyticsExplain, map[string]string{
		"query":      query,
		"metrics":    strings.Join(p.Metrics, ", "),
		"dimensions": strings.Join(p.Dimensions, ", "),
		"start_date": p.DateRange.StartDate,
		"end_date":   p.DateRange.EndDate,
		"filters":    string(filters),
		"data":       summarizeReport(report.Rows),
		"total_rows": strconv.Itoa(len(report.Rows)),
	})
	return a.llm.Complete(ctx, []models.ChatMessage{models.UserMessage(prompt)}, explainTemperature)
}

func analyticsQueryError(detail string) string {
	return fmt.Sprintf("%s: %s. The GA4 property may be empty or the credentials may be invalid.", PrefixAnalyticsQueryError, detail)
}

func summarizeReport(rows []map[string]string) string {
	data, _ := json.MarshalIndent(rows, "", "  ")
	if len(data) <= analyticsSummaryLimit || len(rows) <= analyticsSummaryRows {
		return string(data)
	}
	head, _ := json.MarshalIndent(rows[:analyticsSummaryRows], "", "  ")
	return fmt.Sprintf("%s\n... (%d total rows)", head, len(rows))
}
