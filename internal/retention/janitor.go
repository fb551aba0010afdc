// Package retention prunes expired runs from run stores that have no
// native expiry (PostgreSQL, memory). Expired runs can be archived to a
// durable location before they are deleted.
//
// Archive failures are fail-safe: a batch is NOT deleted if archiving it fails.
package retention

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/spikeai/spike/backend/internal/store"
	"github.com/spikeai/spike/backend/pkg/models"
)

// DefaultBatchSize is the max runs archived and purged per step.
const DefaultBatchSize = 1000

// Archiver writes expired runs somewhere durable and returns a URI for them.
type Archiver interface {
	Kind() string
	ArchiveRuns(ctx context.Context, runs []models.Run) (string, error)
}

// CycleStats tracks what happened in a single retention cycle.
type CycleStats struct {
	Archived int
	Purged   int
	URIs     []string
	Errors   []error
}

// Janitor periodically archives and purges runs older than ttl.
type Janitor struct {
	store     store.Pruner
	archiver  Archiver
	ttl       time.Duration
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewJanitor creates a janitor. A nil archiver purges without archiving.
func NewJanitor(s store.Pruner, archiver Archiver, ttl, interval time.Duration) *Janitor {
	if interval < time.Minute {
		interval = time.Hour
	}
	return &Janitor{
		store:     s,
		archiver:  archiver,
		ttl:       ttl,
		interval:  interval,
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}
}

// Start runs cycles until ctx is canceled. Call it in its own goroutine.
func (j *Janitor) Start(ctx context.Context) {
	archiver := "none"
	if j.archiver != nil {
		archiver = j.archiver.Kind()
	}
	log.Info().
		Dur("interval", j.interval).
		Dur("ttl", j.ttl).
		Str("archiver", archiver).
		Msg("Retention janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Retention janitor stopped")
			return
		case <-ticker.C:
			j.runCycle(ctx)
		}
	}
}

func (j *Janitor) runCycle(ctx context.Context) {
	start := time.Now()
	stats := j.RunOnce(ctx)

	for _, e := range stats.Errors {
		log.Warn().Err(e).Msg("Retention cycle error")
	}
	if stats.Purged > 0 || stats.Archived > 0 {
		log.Info().
			Int("purged_runs", stats.Purged).
			Int("archived_runs", stats.Archived).
			Dur("elapsed", time.Since(start)).
			Msg("Retention cycle complete")
	}
}

// RunOnce performs one sweep: it archives and deletes expired runs batch by
// batch until none remain or a step fails.
func (j *Janitor) RunOnce(ctx context.Context) CycleStats {
	var stats CycleStats
	if j.ttl <= 0 {
		return stats
	}
	cutoff := j.now().Add(-j.ttl)

	for ctx.Err() == nil {
		batch, err := j.store.RunsBefore(ctx, cutoff, j.batchSize)
		if err != nil {
			stats.Errors = append(stats.Errors, err)
			return stats
		}
		if len(batch) == 0 {
			return stats
		}

		if j.archiver != nil {
			uri, err := j.archiver.ArchiveRuns(ctx, batch)
			if err != nil {
				log.Warn().Err(err).Int("batch_size", len(batch)).Msg("Archive failed, skipping purge")
				stats.Errors = append(stats.Errors, err)
				return stats
			}
			stats.Archived += len(batch)
			stats.URIs = append(stats.URIs, uri)
		}

		ids := make([]string, len(batch))
		for i, r := range batch {
			ids[i] = r.ID
		}
		n, err := j.store.DeleteRuns(ctx, ids)
		if err != nil {
			stats.Errors = append(stats.Errors, err)
			return stats
		}
		stats.Purged += n

		if n == 0 || len(batch) < j.batchSize {
			return stats
		}
	}
	return stats
}
