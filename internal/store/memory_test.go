package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/spikeai/spike/backend/internal/config"
	"github.com/spikeai/spike/backend/pkg/models"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(0)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &models.Run{
		ID:       "run-1",
		Query:    "How many users visited yesterday?",
		Strategy: models.StrategyReAct,
		Status:   models.RunStatusCompleted,
		Steps:    []models.RunStep{{Kind: models.StepThink, Iteration: 1}},
	}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Query != run.Query {
		t.Errorf("GetRun().Query = %q, want %q", got.Query, run.Query)
	}
	if len(got.Steps) != 1 || got.Steps[0].Kind != models.StepThink {
		t.Errorf("GetRun().Steps = %+v", got.Steps)
	}

	// Stored runs are copies.
	got.Steps[0].Kind = "mutated"
	again, _ := s.GetRun(ctx, "run-1")
	if again.Steps[0].Kind != models.StepThink {
		t.Errorf("stored run was mutated through returned copy")
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	var nf *ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("GetRun() error = %v, want *ErrNotFound", err)
	}
	if nf.Entity != "run" || nf.Key != "missing" {
		t.Errorf("ErrNotFound = %+v", nf)
	}
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		run := &models.Run{ID: fmt.Sprintf("run-%d", i), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	runs, err := s.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("ListRuns() len = %d, want 3", len(runs))
	}
	for i, want := range []string{"run-4", "run-3", "run-2"} {
		if runs[i].ID != want {
			t.Errorf("ListRuns()[%d].ID = %q, want %q", i, runs[i].ID, want)
		}
	}

	all, _ := s.ListRuns(ctx, 0)
	if len(all) != 5 {
		t.Errorf("ListRuns(0) len = %d, want 5", len(all))
	}
}

func TestEvictExpired(t *testing.T) {
	s := newTestStore(t)
	s.ttl = time.Hour
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.SaveRun(ctx, &models.Run{ID: "old", CreatedAt: now.Add(-2 * time.Hour)})
	_ = s.SaveRun(ctx, &models.Run{ID: "fresh", CreatedAt: now.Add(-time.Minute)})

	if n := s.evictExpired(); n != 1 {
		t.Fatalf("evictExpired() = %d, want 1", n)
	}
	if _, err := s.GetRun(ctx, "old"); err == nil {
		t.Errorf("expired run still present")
	}
	if _, err := s.GetRun(ctx, "fresh"); err != nil {
		t.Errorf("GetRun(fresh) error = %v", err)
	}
}

func TestNew_Backends(t *testing.T) {
	s, err := New(context.Background(), config.StoreConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("New(memory) error = %v", err)
	}
	s.Close()

	if _, err := New(context.Background(), config.StoreConfig{Backend: "cassandra"}); err == nil {
		t.Errorf("New(cassandra) error = nil, want error")
	}
}

func TestPostgresStore_Integration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, url)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	defer s.Close()

	run := &models.Run{
		ID:        fmt.Sprintf("it-%d", time.Now().UnixNano()),
		Query:     "q",
		Strategy:  models.StrategyRouter,
		Status:    models.RunStatusCompleted,
		Steps:     []models.RunStep{{Kind: models.StepClassify, Detail: "single_agent_b"}},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if len(got.Steps) != 1 || got.Steps[0].Detail != "single_agent_b" {
		t.Errorf("GetRun().Steps = %+v", got.Steps)
	}
}

func TestRedisStore_Integration(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	s, err := NewRedisStore(ctx, url, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	defer s.Close()

	run := &models.Run{ID: fmt.Sprintf("it-%d", time.Now().UnixNano()), Query: "q", CreatedAt: time.Now()}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Errorf("ListRuns() = %+v, want newest run %s", runs, run.ID)
	}
	if _, err := s.GetRun(ctx, "missing"); err == nil {
		t.Errorf("GetRun(missing) error = nil")
	}
}
