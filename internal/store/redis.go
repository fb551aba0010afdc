package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/spikeai/spike/backend/pkg/models"
)

const (
	runKeyPrefix = "spike:run:"
	runIndexKey  = "spike:runs"
)

// RedisStore implements RunStore on Redis. Each run is a JSON value with a
// TTL; a sorted set keyed by creation time indexes them for listing.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to url and verifies the connection.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	s := &RedisStore{client: redis.NewClient(opt), ttl: ttl}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		s.client.Close()
		return nil, fmt.Errorf("connection to Redis failed: %w", err)
	}

	log.Info().Str("run_ttl", ttl.String()).Msg("✅ Redis run store initialized")
	return s, nil
}

func runKey(id string) string { return runKeyPrefix + id }

func (s *RedisStore) SaveRun(ctx context.Context, run *models.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, runKey(run.ID), data, s.ttl)
	pipe.ZAdd(ctx, runIndexKey, redis.Z{Score: float64(run.CreatedAt.UnixMilli()), Member: run.ID})
	if s.ttl > 0 {
		cutoff := time.Now().Add(-s.ttl).UnixMilli()
		pipe.ZRemRangeByScore(ctx, runIndexKey, "-inf", fmt.Sprintf("(%d", cutoff))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) GetRun(ctx context.Context, id string) (*models.Run, error) {
	data, err := s.client.Get(ctx, runKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &ErrNotFound{Entity: "run", Key: id}
	}
	if err != nil {
		return nil, err
	}
	var run models.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", id, err)
	}
	return &run, nil
}

func (s *RedisStore) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	ids, err := s.client.ZRevRange(ctx, runIndexKey, 0, int64(limitOrDefault(limit)-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Run{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = runKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make([]models.Run, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// expired between ZREVRANGE and MGET
			continue
		}
		var run models.Run
		if err := json.Unmarshal([]byte(str), &run); err != nil {
			log.Warn().Err(err).Str("run_id", ids[i]).Msg("Skipping undecodable run")
			continue
		}
		result = append(result, run)
	}
	return result, nil
}

func (s *RedisStore) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisStore) Close() error { return s.client.Close() }
