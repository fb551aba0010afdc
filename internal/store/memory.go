package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/spikeai/spike/backend/pkg/models"
)

// MemoryStore implements RunStore with an in-memory map. Runs older than
// the TTL are evicted in the background.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*models.Run // key: id

	ttl    time.Duration
	now    func() time.Time
	doneCh chan struct{}
	once   sync.Once
}

// NewMemoryStore creates an in-memory store. ttl <= 0 disables eviction.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	m := &MemoryStore{
		runs:   make(map[string]*models.Run),
		ttl:    ttl,
		now:    time.Now,
		doneCh: make(chan struct{}),
	}
	if ttl > 0 {
		go m.evictionLoop()
	}
	log.Info().Str("run_ttl", ttl.String()).Msg("Memory run store configured")
	return m
}

// evictionLoop periodically removes runs older than ttl.
func (m *MemoryStore) evictionLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.doneCh:
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *MemoryStore) evictExpired() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var evicted int
	for id, r := range m.runs {
		if r.CreatedAt.Before(cutoff) {
			delete(m.runs, id)
			evicted++
		}
	}
	m.mu.Unlock()

	if evicted > 0 {
		log.Info().Int("evicted", evicted).Str("ttl", m.ttl.String()).Msg("Evicted expired runs")
	}
	return evicted
}

func (m *MemoryStore) SaveRun(_ context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = cloneRun(run)
	return nil
}

func (m *MemoryStore) GetRun(_ context.Context, id string) (*models.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "run", Key: id}
	}
	return cloneRun(r), nil
}

func (m *MemoryStore) ListRuns(_ context.Context, limit int) ([]models.Run, error) {
	m.mu.RLock()
	result := make([]models.Run, 0, len(m.runs))
	for _, r := range m.runs {
		result = append(result, *cloneRun(r))
	}
	m.mu.RUnlock()

	slices.SortFunc(result, func(a, b models.Run) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit = limitOrDefault(limit); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

func (m *MemoryStore) Close() error {
	m.once.Do(func() { close(m.doneCh) })
	return nil
}

func cloneRun(r *models.Run) *models.Run {
	c := *r
	c.Steps = slices.Clone(r.Steps)
	return &c
}

func (m *MemoryStore) RunsBefore(_ context.Context, cutoff time.Time, limit int) ([]models.Run, error) {
	m.mu.RLock()
	var result []models.Run
	for _, r := range m.runs {
		if r.CreatedAt.Before(cutoff) {
			result = append(result, *cloneRun(r))
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(result, func(a, b models.Run) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if limit = limitOrDefault(limit); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryStore) DeleteRuns(_ context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, id := range ids {
		if _, ok := m.runs[id]; ok {
			delete(m.runs, id)
			n++
		}
	}
	return n, nil
}
