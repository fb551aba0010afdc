package seosheet

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	tbl, err := readCSV(strings.NewReader("Address,Status Code\nhttps://a.com/,200\nhttps://a.com/x,404\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Address", "Status Code"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, float64(404), tbl.Rows[1]["Status Code"])
}

func TestCSVSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.csv")
	require.NoError(t, os.WriteFile(path, []byte("Address\nhttps://a.com/\n"), 0o600))

	tbl, err := CSVSource{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, tbl.Empty())

	_, err = CSVSource{Path: filepath.Join(t.TempDir(), "nope.csv")}.Load(context.Background())
	assert.Error(t, err)
}

func TestTableFromValues(t *testing.T) {
	tbl := tableFromValues([][]interface{}{
		{"Address", "Indexability"},
		{"https://a.com/", "Indexable"},
		{"https://a.com/short"},
	})
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "", tbl.Rows[1]["Indexability"], "short rows are padded")

	assert.True(t, tableFromValues(nil).Empty())
}
