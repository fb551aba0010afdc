// Package ga4 runs analytics plans against the Google Analytics Data API.
package ga4

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/option"

	"github.com/spikeai/spike/backend/internal/connectors"
	"github.com/spikeai/spike/backend/internal/plan"
)

// Report is a flattened RunReport response keyed by dimension/metric name.
type Report struct {
	Rows     []map[string]string `json:"rows"`
	RowCount int                 `json:"row_count"`
}

// Client executes RunReport calls for a service account.
type Client struct {
	svc     *analyticsdata.Service
	allow   *plan.AllowList
	breaker *gobreaker.CircuitBreaker
}

// New creates a GA4 client from a service-account credentials file.
func New(ctx context.Context, credentialsFile string, allow *plan.AllowList) (*Client, error) {
	svc, err := analyticsdata.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(analyticsdata.AnalyticsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("ga4: create service: %w", err)
	}
	return &Client{svc: svc, allow: allow, breaker: connectors.NewBreaker("ga4")}, nil
}

// RunReport executes p against the given property.
func (c *Client) RunReport(ctx context.Context, propertyID string, p plan.AnalyticsPlan) (*Report, error) {
	property := PropertyName(propertyID)
	req := BuildRequest(p, c.allow)

	return connectors.Call(c.breaker, func() (*Report, error) {
		resp, err := c.svc.Properties.RunReport(property, req).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("ga4: run report: %w", err)
		}
		log.Debug().
			Str("property", property).
			Int64("rows", resp.RowCount).
			Msg("GA4 report fetched")
		return flatten(resp, p), nil
	})
}

// PropertyName normalizes an id to the "properties/<id>" form.
func PropertyName(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "properties/") {
		return id
	}
	return "properties/" + id
}

// BuildRequest maps a validated plan onto a RunReport request. Only the
// first filter is applied: "==" is an exact match, anything else CONTAINS.
func BuildRequest(p plan.AnalyticsPlan, allow *plan.AllowList) *analyticsdata.RunReportRequest {
	req := &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{{
			StartDate: p.DateRange.StartDate,
			EndDate:   p.DateRange.EndDate,
		}},
	}
	for _, m := range p.Metrics {
		req.Metrics = append(req.Metrics, &analyticsdata.Metric{Name: m})
	}
	for _, d := range p.Dimensions {
		req.Dimensions = append(req.Dimensions, &analyticsdata.Dimension{Name: d})
	}

	if len(p.Filters) > 0 {
		f := p.Filters[0]
		match := "CONTAINS"
		if f.Operator == "==" {
			match = "EXACT"
		}
		req.DimensionFilter = &analyticsdata.FilterExpression{
			Filter: &analyticsdata.Filter{
				FieldName:    f.Dimension,
				StringFilter: &analyticsdata.StringFilter{MatchType: match, Value: f.Value},
			},
		}
	}

	for _, o := range p.OrderBy {
		ob := &analyticsdata.OrderBy{Desc: o.Desc}
		switch {
		case allow.IsMetric(o.Field):
			ob.Metric = &analyticsdata.MetricOrderBy{MetricName: o.Field}
		case allow.IsDimension(o.Field):
			ob.Dimension = &analyticsdata.DimensionOrderBy{DimensionName: o.Field}
		default:
			continue
		}
		req.OrderBys = append(req.OrderBys, ob)
	}
	return req
}

func flatten(resp *analyticsdata.RunReportResponse, p plan.AnalyticsPlan) *Report {
	dimNames := headerNames(len(resp.DimensionHeaders), func(i int) string { return resp.DimensionHeaders[i].Name }, p.Dimensions)
	metNames := headerNames(len(resp.MetricHeaders), func(i int) string { return resp.MetricHeaders[i].Name }, p.Metrics)

	rep := &Report{Rows: make([]map[string]string, 0, len(resp.Rows))}
	for _, row := range resp.Rows {
		out := make(map[string]string, len(row.DimensionValues)+len(row.MetricValues))
		for i, v := range row.DimensionValues {
			if i < len(dimNames) {
				out[dimNames[i]] = v.Value
			}
		}
		for i, v := range row.MetricValues {
			if i < len(metNames) {
				out[metNames[i]] = v.Value
			}
		}
		rep.Rows = append(rep.Rows, out)
	}
	rep.RowCount = len(rep.Rows)
	return rep
}

// headerNames prefers the response headers and falls back to the plan order.
func headerNames(n int, header func(int) string, fallback []string) []string {
	if n == 0 {
		return fallback
	}
	names := make([]string, n)
	for i := range names {
		names[i] = header(i)
	}
	return names
}
