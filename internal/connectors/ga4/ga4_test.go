package ga4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"

	"github.com/spikeai/spike/backend/internal/plan"
)

func TestPropertyName(t *testing.T) {
	assert.Equal(t, "properties/123", PropertyName("123"))
	assert.Equal(t, "properties/123", PropertyName("properties/123"))
}

func TestBuildRequest(t *testing.T) {
	p := plan.AnalyticsPlan{
		Metrics:    []string{"sessions"},
		Dimensions: []string{"pagePath"},
		DateRange:  plan.DateRange{StartDate: "14daysAgo", EndDate: "today"},
		Filters: []plan.Filter{
			{Dimension: "pagePath", Operator: "==", Value: "/pricing"},
			{Dimension: "country", Operator: "==", Value: "India"},
		},
		OrderBy: []plan.OrderBy{{Field: "sessions", Desc: true}, {Field: "pagePath"}},
	}
	req := BuildRequest(p, plan.DefaultAllowList())

	require.Len(t, req.DateRanges, 1)
	assert.Equal(t, "14daysAgo", req.DateRanges[0].StartDate)
	assert.Equal(t, "sessions", req.Metrics[0].Name)
	assert.Equal(t, "pagePath", req.Dimensions[0].Name)

	require.NotNil(t, req.DimensionFilter)
	assert.Equal(t, "EXACT", req.DimensionFilter.Filter.StringFilter.MatchType)
	assert.Equal(t, "/pricing", req.DimensionFilter.Filter.StringFilter.Value)

	require.Len(t, req.OrderBys, 2)
	assert.Equal(t, "sessions", req.OrderBys[0].Metric.MetricName)
	assert.True(t, req.OrderBys[0].Desc)
	assert.Equal(t, "pagePath", req.OrderBys[1].Dimension.DimensionName)
}

func TestBuildRequest_ContainsFilter(t *testing.T) {
	p := plan.DefaultAnalyticsPlan()
	p.Filters = []plan.Filter{{Dimension: "pagePath", Operator: "contains", Value: "blog"}}
	req := BuildRequest(p, plan.DefaultAllowList())
	assert.Equal(t, "CONTAINS", req.DimensionFilter.Filter.StringFilter.MatchType)
}

func TestFlatten(t *testing.T) {
	resp := &analyticsdata.RunReportResponse{
		DimensionHeaders: []*analyticsdata.DimensionHeader{{Name: "date"}},
		MetricHeaders:    []*analyticsdata.MetricHeader{{Name: "activeUsers"}},
		Rows: []*analyticsdata.Row{{
			DimensionValues: []*analyticsdata.DimensionValue{{Value: "20250101"}},
			MetricValues:    []*analyticsdata.MetricValue{{Value: "42"}},
		}},
	}
	rep := flatten(resp, plan.DefaultAnalyticsPlan())
	require.Equal(t, 1, rep.RowCount)
	assert.Equal(t, map[string]string{"date": "20250101", "activeUsers": "42"}, rep.Rows[0])
}
