// Package store persists routed-query runs. The in-memory backend is used
// for local development and tests; PostgreSQL and Redis back shared
// deployments.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/spikeai/spike/backend/internal/config"
	"github.com/spikeai/spike/backend/pkg/models"
)

// DefaultListLimit applies when ListRuns is called with limit <= 0.
const DefaultListLimit = 50

// RunStore is the storage interface used by the API handlers.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	// ListRuns returns the newest runs first.
	ListRuns(ctx context.Context, limit int) ([]models.Run, error)

	// Ping checks if the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}

// Pruner is implemented by backends without native expiry. The retention
// janitor uses it to archive and delete old runs.
type Pruner interface {
	// RunsBefore returns up to limit runs created before cutoff, oldest first.
	RunsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Run, error)
	DeleteRuns(ctx context.Context, ids []string) (int, error)
}

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}

// New opens the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StoreConfig) (RunStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.RunTTL), nil
	case "postgres", "pg":
		s, err := NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := NewRedisStore(ctx, cfg.RedisURL, cfg.RunTTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown run store backend %q", cfg.Backend)
	}
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
