package seodata

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/spikeai/spike/backend/internal/plan"
)

// Result is the outcome of executing an SEO plan.
type Result struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Execute runs p against t. Conditions, projections and group keys that
// name columns absent from t are skipped.
func Execute(t *Table, p plan.SEOPlan) (*Result, error) {
	if t.Empty() {
		return nil, fmt.Errorf("no SEO data available")
	}

	rows, err := filterRows(t, p.Conditions)
	if err != nil {
		return nil, err
	}

	if p.GroupBy != "" && t.Has(p.GroupBy) {
		return group(t, rows, p), nil
	}
	return project(t, rows, p.Columns), nil
}

// ── filtering ───────────────────────────────────────────────

type rowEnv struct {
	Row  map[string]any `expr:"row"`
	Args []any          `expr:"args"`
}

func filterRows(t *Table, conds []plan.Condition) ([]map[string]any, error) {
	prog, err := compileConditions(t, conds)
	if err != nil {
		return nil, err
	}
	if prog == nil {
		return t.Rows, nil
	}

	var out []map[string]any
	for _, row := range t.Rows {
		v, err := vm.Run(prog.Program, rowEnv{Row: row, Args: prog.args})
		if err != nil {
			return nil, fmt.Errorf("evaluate conditions: %w", err)
		}
		if match, _ := v.(bool); match {
			out = append(out, row)
		}
	}
	return out, nil
}

type program struct {
	*vm.Program
	args []any
}

// compileConditions turns the plan's conditions into one boolean expression.
// Column names and values are passed as arguments, never spliced into source.
func compileConditions(t *Table, conds []plan.Condition) (*program, error) {
	var (
		clauses []string
		args    []any
	)
	for _, c := range conds {
		if !t.Has(c.Column) {
			continue
		}
		col := fmt.Sprintf("args[%d]", len(args))
		val := fmt.Sprintf("args[%d]", len(args)+1)
		clause, target := conditionClause(c, col, val)
		clauses = append(clauses, clause)
		args = append(args, c.Column, target)
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	source := strings.Join(clauses, " && ")
	prog, err := expr.Compile(source,
		expr.Env(rowEnv{}),
		expr.AsBool(),
		expr.Function("num", func(params ...any) (any, error) {
			return toNumber(params[0]), nil
		}, new(func(any) float64)),
		expr.Function("text", func(params ...any) (any, error) {
			return toText(params[0]), nil
		}, new(func(any) string)),
	)
	if err != nil {
		return nil, fmt.Errorf("compile conditions %q: %w", source, err)
	}
	return &program{Program: prog, args: args}, nil
}

// conditionClause returns the expression for one condition and the value
// to bind as its argument.
func conditionClause(c plan.Condition, col, val string) (string, any) {
	cell := fmt.Sprintf("row[%s]", col)
	switch c.Operator {
	case "contains":
		return fmt.Sprintf("lower(text(%s)) contains lower(text(%s))", cell, val), toText(c.Value)
	case "not_contains":
		return fmt.Sprintf("not (lower(text(%s)) contains lower(text(%s)))", cell, val), toText(c.Value)
	}

	if n, ok := numeric(c.Value); ok {
		return fmt.Sprintf("num(%s) %s %s", cell, c.Operator, val), n
	}
	return fmt.Sprintf("text(%s) %s text(%s)", cell, c.Operator, val), toText(c.Value)
}

// ── grouping ────────────────────────────────────────────────

func group(t *Table, rows []map[string]any, p plan.SEOPlan) *Result {
	key := p.GroupBy
	buckets := map[string][]map[string]any{}
	keyValues := map[string]any{}
	for _, row := range rows {
		k := toText(row[key])
		buckets[k] = append(buckets[k], row)
		keyValues[k] = row[key]
	}
	keys := sortedKeys(keyValues)

	switch p.Aggregate {
	case plan.AggSum, plan.AggMean, plan.AggMin, plan.AggMax:
		cols := numericColumns(t, rows, p.Columns, key)
		res := &Result{Columns: append([]string{key}, cols...)}
		for _, k := range keys {
			out := map[string]any{key: keyValues[k]}
			for _, c := range cols {
				out[c] = aggregate(buckets[k], c, p.Aggregate)
			}
			res.Rows = append(res.Rows, out)
		}
		return res
	}

	res := &Result{Columns: []string{key, "count"}}
	withShare := p.Operation == plan.OpCalculate
	if withShare {
		res.Columns = append(res.Columns, "percentage")
	}
	for _, k := range keys {
		out := map[string]any{key: keyValues[k], "count": len(buckets[k])}
		if withShare && len(rows) > 0 {
			out["percentage"] = math.Round(float64(len(buckets[k]))/float64(len(rows))*1000) / 10
		}
		res.Rows = append(res.Rows, out)
	}
	return res
}

func aggregate(rows []map[string]any, col, fn string) float64 {
	var vals []float64
	for _, r := range rows {
		if n, ok := numeric(r[col]); ok {
			vals = append(vals, n)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	switch fn {
	case plan.AggSum, plan.AggMean:
		var sum float64
		for _, v := range vals {
			sum += v
		}
		if fn == plan.AggMean {
			return sum / float64(len(vals))
		}
		return sum
	case plan.AggMin:
		m := vals[0]
		for _, v := range vals[1:] {
			m = math.Min(m, v)
		}
		return m
	default:
		m := vals[0]
		for _, v := range vals[1:] {
			m = math.Max(m, v)
		}
		return m
	}
}

// numericColumns picks the columns to aggregate: the requested ones when
// present, otherwise every column, keeping only those with numeric values.
func numericColumns(t *Table, rows []map[string]any, requested []string, exclude string) []string {
	candidates := t.Columns
	if avail := available(t, requested); len(avail) > 0 {
		candidates = avail
	}
	var out []string
	for _, c := range candidates {
		if c == exclude {
			continue
		}
		for _, r := range rows {
			if _, ok := r[c].(float64); ok {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// ── projection ──────────────────────────────────────────────

func project(t *Table, rows []map[string]any, requested []string) *Result {
	cols := available(t, requested)
	if len(cols) == 0 {
		return &Result{Columns: t.Columns, Rows: nonNil(rows)}
	}
	res := &Result{Columns: cols, Rows: make([]map[string]any, 0, len(rows))}
	for _, r := range rows {
		out := make(map[string]any, len(cols))
		for _, c := range cols {
			out[c] = r[c]
		}
		res.Rows = append(res.Rows, out)
	}
	return res
}

func available(t *Table, requested []string) []string {
	var out []string
	for _, c := range requested {
		if t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func nonNil(rows []map[string]any) []map[string]any {
	if rows == nil {
		return []map[string]any{}
	}
	return rows
}

// ── value helpers ───────────────────────────────────────────

func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func toNumber(v any) float64 {
	if n, ok := numeric(v); ok {
		return n
	}
	return math.NaN()
}

func toText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	allNumeric := true
	for k, v := range values {
		keys = append(keys, k)
		if _, ok := v.(float64); !ok {
			allNumeric = false
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if allNumeric {
			return values[keys[i]].(float64) < values[keys[j]].(float64)
		}
		return keys[i] < keys[j]
	})
	return keys
}
