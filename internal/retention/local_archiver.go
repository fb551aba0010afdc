package retention

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/spikeai/spike/backend/pkg/models"
)

// LocalFileArchiver writes expired runs as JSONL files:
//
//	{basePath}/runs/2026-02-20T15-04-05Z-1a2b3c4d.jsonl[.gz]
type LocalFileArchiver struct {
	basePath string
	compress bool
}

// NewLocalFileArchiver creates a file-based archiver. An empty basePath
// defaults to "~/.spike/archive".
func NewLocalFileArchiver(basePath string, compress bool) *LocalFileArchiver {
	if basePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			basePath = filepath.Join(os.TempDir(), "spike", "archive")
		} else {
			basePath = filepath.Join(home, ".spike", "archive")
		}
	}
	return &LocalFileArchiver{basePath: basePath, compress: compress}
}

func (a *LocalFileArchiver) Kind() string { return "local" }

func (a *LocalFileArchiver) ArchiveRuns(_ context.Context, runs []models.Run) (string, error) {
	dir := filepath.Join(a.basePath, "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	filename := time.Now().UTC().Format("2006-01-02T15-04-05Z") + "-" + uuid.NewString()[:8] + ".jsonl"
	if a.compress {
		filename += ".gz"
	}
	fpath := filepath.Join(dir, filename)

	f, err := os.Create(fpath)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}

	if err := writeRuns(f, runs, a.compress); err != nil {
		f.Close()
		os.Remove(fpath)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close archive file: %w", err)
	}

	log.Debug().
		Str("path", fpath).
		Int("count", len(runs)).
		Msg("Archived runs to local file")
	return fpath, nil
}

func writeRuns(w io.Writer, runs []models.Run, compress bool) error {
	var gw *gzip.Writer
	if compress {
		gw = gzip.NewWriter(w)
		w = gw
	}
	enc := json.NewEncoder(w)
	for _, r := range runs {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode run %s: %w", r.ID, err)
		}
	}
	if gw != nil {
		return gw.Close()
	}
	return nil
}
