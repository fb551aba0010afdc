// Package seosheet loads the crawl export used by the SEO agent, either
// from a Google Sheet or from a local CSV file.
package seosheet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/spikeai/spike/backend/internal/connectors"
	"github.com/spikeai/spike/backend/internal/seodata"
)

// SheetSource reads the first worksheet of a spreadsheet.
type SheetSource struct {
	svc           *sheets.Service
	spreadsheetID string
	breaker       *gobreaker.CircuitBreaker
}

// NewSheetSource creates a read-only Sheets client from a service-account
// credentials file.
func NewSheetSource(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetSource, error) {
	if spreadsheetID == "" {
		return nil, errors.New("seosheet: spreadsheet id not configured")
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("seosheet: create service: %w", err)
	}
	return &SheetSource{svc: svc, spreadsheetID: spreadsheetID, breaker: connectors.NewBreaker("seosheet")}, nil
}

func (s *SheetSource) Load(ctx context.Context) (*seodata.Table, error) {
	return connectors.Call(s.breaker, func() (*seodata.Table, error) {
		meta, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("seosheet: get spreadsheet: %w", err)
		}
		if len(meta.Sheets) == 0 || meta.Sheets[0].Properties == nil {
			return nil, fmt.Errorf("seosheet: spreadsheet %s has no worksheets", s.spreadsheetID)
		}
		title := meta.Sheets[0].Properties.Title

		vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, title).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("seosheet: read %q: %w", title, err)
		}
		log.Debug().Str("worksheet", title).Int("rows", len(vr.Values)).Msg("Crawl sheet read")
		return tableFromValues(vr.Values), nil
	})
}

// tableFromValues treats the first row as the header.
func tableFromValues(values [][]interface{}) *seodata.Table {
	if len(values) == 0 {
		return seodata.NewTable(nil, nil)
	}
	header := cells(values[0])
	records := make([][]string, 0, len(values)-1)
	for _, row := range values[1:] {
		records = append(records, cells(row))
	}
	return seodata.NewTable(header, records)
}

func cells(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprint(v)
	}
	return out
}

// CSVSource reads a crawl export saved as CSV with a header row.
type CSVSource struct {
	Path string
}

func (s CSVSource) Load(ctx context.Context) (*seodata.Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("seosheet: open %s: %w", s.Path, err)
	}
	defer f.Close()
	return readCSV(f)
}

func readCSV(r io.Reader) (*seodata.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("seosheet: parse csv: %w", err)
	}
	if len(rows) == 0 {
		return seodata.NewTable(nil, nil), nil
	}
	return seodata.NewTable(rows[0], rows[1:]), nil
}
