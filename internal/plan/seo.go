package plan

import "strings"

// SEO plan operations.
const (
	OpFilter    = "filter"
	OpGroup     = "group"
	OpAggregate = "aggregate"
	OpCalculate = "calculate"
	OpList      = "list"
)

// Aggregations supported for grouped SEO results.
const (
	AggCount = "count"
	AggSum   = "sum"
	AggMean  = "mean"
	AggMin   = "min"
	AggMax   = "max"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Condition operators understood by the SEO engine.
var ConditionOperators = []string{"==", "!=", ">", "<", ">=", "<=", "contains", "not_contains"}

// SEOPlan is a validated analysis plan over the crawl dataset. Column names
// are not checked here; the engine skips columns missing from the live schema.
type SEOPlan struct {
	Operation    string      `json:"operation"`
	Columns      []string    `json:"columns"`
	Conditions   []Condition `json:"conditions"`
	GroupBy      string      `json:"group_by,omitempty"`
	Aggregate    string      `json:"aggregate,omitempty"`
	OutputFormat string      `json:"output_format"`
}

type Condition struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// DefaultSEOPlan is returned for unparseable reasoning output.
func DefaultSEOPlan() SEOPlan {
	return SEOPlan{
		Operation:    OpFilter,
		Columns:      []string{},
		Conditions:   []Condition{},
		OutputFormat: FormatText,
	}
}

// ParseSEOPlan extracts and normalizes an SEO plan. It never fails.
func ParseSEOPlan(raw string) SEOPlan {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return DefaultSEOPlan()
	}
	p := SEOPlan{
		Operation:    str(obj, "operation"),
		Columns:      strList(obj, "columns"),
		GroupBy:      str(obj, "group_by"),
		Aggregate:    str(obj, "aggregate"),
		OutputFormat: str(obj, "output_format"),
	}
	for _, c := range objList(obj, "conditions") {
		p.Conditions = append(p.Conditions, Condition{
			Column:   str(c, "column"),
			Operator: str(c, "operator"),
			Value:    c["value"],
		})
	}
	return ValidateSEOPlan(p)
}

// ValidateSEOPlan coerces out-of-enum values to their defaults and drops
// conditions with an unknown operator or no column.
func ValidateSEOPlan(p SEOPlan) SEOPlan {
	switch strings.ToLower(p.Operation) {
	case OpFilter, OpGroup, OpAggregate, OpCalculate, OpList:
		p.Operation = strings.ToLower(p.Operation)
	default:
		p.Operation = OpFilter
	}

	switch strings.ToLower(p.Aggregate) {
	case AggCount, AggSum, AggMean, AggMin, AggMax:
		p.Aggregate = strings.ToLower(p.Aggregate)
	case "avg", "average":
		p.Aggregate = AggMean
	default:
		p.Aggregate = ""
	}

	if strings.EqualFold(p.OutputFormat, FormatJSON) {
		p.OutputFormat = FormatJSON
	} else {
		p.OutputFormat = FormatText
	}

	if p.GroupBy == "null" {
		p.GroupBy = ""
	}
	if p.Columns == nil {
		p.Columns = []string{}
	}

	conds := make([]Condition, 0, len(p.Conditions))
	for _, c := range p.Conditions {
		c.Operator = strings.ToLower(strings.TrimSpace(c.Operator))
		if c.Column == "" || !validOperator(c.Operator) {
			continue
		}
		conds = append(conds, c)
	}
	p.Conditions = conds
	return p
}

func validOperator(op string) bool {
	for _, o := range ConditionOperators {
		if o == op {
			return true
		}
	}
	return false
}
