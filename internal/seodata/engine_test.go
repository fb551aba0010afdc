package seodata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spikeai/spike/backend/internal/plan"
)

func crawlTable() *Table {
	return NewTable(
		[]string{"Address", "Protocol", "Status Code", "Title 1", "Title 1 Length", "Indexability"},
		[][]string{
			{"http://example.com/", "http", "200", "Home", "4", "Indexable"},
			{"https://example.com/about", "https", "200", "About our very long company title tag", "70", "Indexable"},
			{"https://example.com/old", "https", "301", "", "0", "Non-Indexable"},
			{"http://example.com/missing", "http", "404", "Not Found", "9", "Non-Indexable"},
			{"", "", "", "", "", ""},
		},
	)
}

func TestNewTable_NumericCells(t *testing.T) {
	tbl := crawlTable()
	require.Len(t, tbl.Rows, 4, "blank records are dropped")
	assert.Equal(t, float64(200), tbl.Rows[0]["Status Code"])
	assert.Equal(t, "Home", tbl.Rows[0]["Title 1"])
}

func TestExecute_FilterConditions(t *testing.T) {
	p := plan.SEOPlan{
		Operation: plan.OpFilter,
		Columns:   []string{"Address", "Title 1 Length", "Nonexistent"},
		Conditions: []plan.Condition{
			{Column: "Protocol", Operator: "!=", Value: "https"},
			{Column: "Title 1 Length", Operator: ">", Value: float64(5)},
			{Column: "Ghost Column", Operator: "==", Value: "x"},
		},
	}
	res, err := Execute(crawlTable(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"Address", "Title 1 Length"}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "http://example.com/missing", res.Rows[0]["Address"])
}

func TestExecute_ContainsIsCaseInsensitive(t *testing.T) {
	p := plan.SEOPlan{Conditions: []plan.Condition{{Column: "Address", Operator: "contains", Value: "EXAMPLE.COM/O"}}}
	res, err := Execute(crawlTable(), p)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "https://example.com/old", res.Rows[0]["Address"])

	p.Conditions[0].Operator = "not_contains"
	res, err = Execute(crawlTable(), p)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
}

func TestExecute_NumericStringTarget(t *testing.T) {
	p := plan.SEOPlan{Conditions: []plan.Condition{{Column: "Status Code", Operator: ">=", Value: "300"}}}
	res, err := Execute(crawlTable(), p)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
}

func TestExecute_GroupCount(t *testing.T) {
	p := plan.SEOPlan{Operation: plan.OpGroup, GroupBy: "Indexability", Aggregate: plan.AggCount}
	res, err := Execute(crawlTable(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"Indexability", "count"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Indexable", res.Rows[0]["Indexability"])
	assert.Equal(t, 2, res.Rows[0]["count"])
}

func TestExecute_CalculateAddsPercentage(t *testing.T) {
	p := plan.SEOPlan{Operation: plan.OpCalculate, GroupBy: "Protocol"}
	res, err := Execute(crawlTable(), p)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, 50.0, res.Rows[0]["percentage"])
}

func TestExecute_GroupMean(t *testing.T) {
	p := plan.SEOPlan{Operation: plan.OpAggregate, GroupBy: "Protocol", Aggregate: plan.AggMean, Columns: []string{"Title 1 Length"}}
	res, err := Execute(crawlTable(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"Protocol", "Title 1 Length"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "http", res.Rows[0]["Protocol"])
	assert.Equal(t, 6.5, res.Rows[0]["Title 1 Length"])
	assert.Equal(t, 35.0, res.Rows[1]["Title 1 Length"])
}

func TestExecute_EmptyTable(t *testing.T) {
	_, err := Execute(NewTable([]string{"Address"}, nil), plan.DefaultSEOPlan())
	assert.Error(t, err)
}

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) Load(ctx context.Context) (*Table, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return crawlTable(), nil
}

func TestCachedSource(t *testing.T) {
	src := &countingSource{}
	c := NewCachedSource(src, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	_, err := c.Load(context.Background())
	require.NoError(t, err)
	_, err = c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	now = now.Add(2 * time.Minute)
	src.err = errors.New("sheets down")
	tbl, err := c.Load(context.Background())
	require.NoError(t, err, "stale table is served when refresh fails")
	assert.False(t, tbl.Empty())
	assert.Equal(t, 2, src.calls)
}
