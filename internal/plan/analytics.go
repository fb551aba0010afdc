package plan

// AnalyticsPlan is a validated GA4 report request.
type AnalyticsPlan struct {
	Metrics    []string  `json:"metrics"`
	Dimensions []string  `json:"dimensions"`
	DateRange  DateRange `json:"date_range"`
	Filters    []Filter  `json:"filters"`
	OrderBy    []OrderBy `json:"order_by"`
}

type DateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type Filter struct {
	Dimension string `json:"dimension"`
	Operator  string `json:"operator"`
	Value     string `json:"value"`
}

type OrderBy struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

const (
	DefaultStartDate = "7daysAgo"
	DefaultEndDate   = "today"
)

// DefaultAnalyticsMetrics is used whenever a plan ends up with no valid metric.
var DefaultAnalyticsMetrics = []string{"screenPageViews", "activeUsers", "sessions"}

// DefaultAnalyticsPlan is returned for unparseable reasoning output.
func DefaultAnalyticsPlan() AnalyticsPlan {
	return AnalyticsPlan{
		Metrics:    append([]string(nil), DefaultAnalyticsMetrics...),
		Dimensions: []string{"date"},
		DateRange:  DateRange{StartDate: DefaultStartDate, EndDate: DefaultEndDate},
		Filters:    []Filter{},
		OrderBy:    []OrderBy{},
	}
}

// ParseAnalyticsPlan extracts and validates an analytics plan. It never fails.
func ParseAnalyticsPlan(raw string, allow *AllowList) AnalyticsPlan {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return DefaultAnalyticsPlan()
	}

	p := AnalyticsPlan{
		Metrics:    strList(obj, "metrics"),
		Dimensions: strList(obj, "dimensions"),
	}
	if dr, ok := obj["date_range"].(map[string]any); ok {
		p.DateRange = DateRange{StartDate: str(dr, "start_date"), EndDate: str(dr, "end_date")}
	}
	for _, f := range objList(obj, "filters") {
		p.Filters = append(p.Filters, Filter{
			Dimension: str(f, "dimension"),
			Operator:  str(f, "operator"),
			Value:     str(f, "value"),
		})
	}
	for _, o := range objList(obj, "order_by") {
		p.OrderBy = append(p.OrderBy, OrderBy{Field: str(o, "field"), Desc: boolField(o, "desc")})
	}
	return ValidateAnalyticsPlan(p, allow)
}

// ValidateAnalyticsPlan applies the allow-list and fallback defaults.
// Names outside the allow-list are dropped, never rejected.
func ValidateAnalyticsPlan(p AnalyticsPlan, allow *AllowList) AnalyticsPlan {
	p.Metrics = allow.FilterMetrics(p.Metrics)
	if len(p.Metrics) == 0 {
		p.Metrics = append([]string(nil), DefaultAnalyticsMetrics...)
	}
	p.Dimensions = allow.FilterDimensions(p.Dimensions)

	if p.DateRange.StartDate == "" {
		p.DateRange.StartDate = DefaultStartDate
	}
	if p.DateRange.EndDate == "" {
		p.DateRange.EndDate = DefaultEndDate
	}

	filters := make([]Filter, 0, len(p.Filters))
	for _, f := range p.Filters {
		if allow.IsDimension(f.Dimension) && f.Value != "" {
			filters = append(filters, f)
		}
	}
	p.Filters = filters

	orders := make([]OrderBy, 0, len(p.OrderBy))
	for _, o := range p.OrderBy {
		if allow.IsMetric(o.Field) || allow.IsDimension(o.Field) {
			orders = append(orders, o)
		}
	}
	p.OrderBy = orders
	return p
}
