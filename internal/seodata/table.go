// Package seodata holds the crawl dataset used by the SEO agent and the
// engine that executes SEO plans against it.
package seodata

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Table is a header row plus records keyed by header. Numeric-looking cells
// are stored as float64, everything else as string.
type Table struct {
	Columns []string
	Rows    []map[string]any
}

// NewTable builds a table from a header and raw string records. Short
// records are padded with empty strings; extra cells are ignored.
func NewTable(header []string, records [][]string) *Table {
	cols := make([]string, 0, len(header))
	for _, h := range header {
		cols = append(cols, strings.TrimSpace(h))
	}
	t := &Table{Columns: cols, Rows: make([]map[string]any, 0, len(records))}
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			cell := ""
			if i < len(rec) {
				cell = rec[i]
			}
			row[c] = cellValue(cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool { return t == nil || len(t.Rows) == 0 }

// Has reports whether col is part of the schema.
func (t *Table) Has(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Schema summarizes the table for planning prompts.
type Schema struct {
	TotalRows  int              `json:"total_rows"`
	Columns    []string         `json:"columns"`
	SampleData []map[string]any `json:"sample_data"`
}

func (t *Table) Schema(samples int) Schema {
	if samples > len(t.Rows) {
		samples = len(t.Rows)
	}
	return Schema{TotalRows: len(t.Rows), Columns: t.Columns, SampleData: t.Rows[:samples]}
}

func cellValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
		return f
	}
	return s
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ── Sources ─────────────────────────────────────────────────

// Source loads the current crawl dataset.
type Source interface {
	Load(ctx context.Context) (*Table, error)
}

// CachedSource memoizes a Source for ttl. A failed refresh keeps serving
// the last good table when one exists.
type CachedSource struct {
	src Source
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	table    *Table
	loadedAt time.Time
}

func NewCachedSource(src Source, ttl time.Duration) *CachedSource {
	return &CachedSource{src: src, ttl: ttl, now: time.Now}
}

func (c *CachedSource) Load(ctx context.Context) (*Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.table != nil && c.now().Sub(c.loadedAt) < c.ttl {
		return c.table, nil
	}
	t, err := c.src.Load(ctx)
	if err != nil {
		if c.table != nil {
			log.Warn().Err(err).Msg("SEO data refresh failed, serving cached table")
			return c.table, nil
		}
		return nil, err
	}
	c.table = t
	c.loadedAt = c.now()
	log.Debug().Int("rows", len(t.Rows)).Int("columns", len(t.Columns)).Msg("SEO data loaded")
	return t, nil
}
