package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/spikeai/spike/backend/pkg/models"
)

// PostgresStore implements RunStore on PostgreSQL. Steps are stored as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings and creates the runs table if needed.
func NewPostgresStore(ctx context.Context, connURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}

	log.Info().Msg("✅ PostgreSQL run store initialized")
	return s, nil
}

// Migrate creates the schema. It is safe to run repeatedly.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS spike_runs (
			id          TEXT PRIMARY KEY,
			query       TEXT NOT NULL,
			property_id TEXT NOT NULL DEFAULT '',
			strategy    TEXT NOT NULL,
			status      TEXT NOT NULL,
			response    TEXT NOT NULL DEFAULT '',
			steps       JSONB NOT NULL DEFAULT '[]',
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_spike_runs_created ON spike_runs (created_at DESC);
	`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *models.Run) error {
	steps, err := json.Marshal(stepsOrEmpty(run.Steps))
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO spike_runs (id, query, property_id, strategy, status, response, steps, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			response = EXCLUDED.response,
			steps = EXCLUDED.steps,
			duration_ms = EXCLUDED.duration_ms`,
		run.ID, run.Query, run.PropertyID, string(run.Strategy), string(run.Status),
		run.Response, steps, run.DurationMs, run.CreatedAt,
	)
	return err
}

const selectRun = `SELECT id, query, property_id, strategy, status, response, steps, duration_ms, created_at FROM spike_runs`

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*models.Run, error) {
	run, err := scanRun(s.pool.QueryRow(ctx, selectRun+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "run", Key: id}
	}
	return run, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	rows, err := s.pool.Query(ctx, selectRun+` ORDER BY created_at DESC LIMIT $1`, limitOrDefault(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *run)
	}
	return result, rows.Err()
}

func (s *PostgresStore) RunsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Run, error) {
	rows, err := s.pool.Query(ctx, selectRun+` WHERE created_at < $1 ORDER BY created_at ASC LIMIT $2`, cutoff, limitOrDefault(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *run)
	}
	return result, rows.Err()
}

func (s *PostgresStore) DeleteRuns(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM spike_runs WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanRun(row pgx.Row) (*models.Run, error) {
	var (
		run      models.Run
		strategy string
		status   string
		steps    []byte
	)
	if err := row.Scan(&run.ID, &run.Query, &run.PropertyID, &strategy, &status,
		&run.Response, &steps, &run.DurationMs, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.Strategy = models.Strategy(strategy)
	run.Status = models.RunStatus(status)
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &run.Steps); err != nil {
			return nil, fmt.Errorf("unmarshal steps for run %s: %w", run.ID, err)
		}
	}
	return &run, nil
}

func stepsOrEmpty(steps []models.RunStep) []models.RunStep {
	if steps == nil {
		return []models.RunStep{}
	}
	return steps
}
