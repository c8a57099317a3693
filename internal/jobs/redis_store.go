package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxUpdateAttempts = 10

// RedisStore keeps jobs as JSON documents keyed report_job:<id>.
// Transitions use WATCH/MULTI so that concurrent writers retry instead of racing.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore creates a Redis-backed job store; ttl <= 0 keeps jobs forever
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: client, ttl: ttl}
}

func jobKey(id string) string {
	return fmt.Sprintf("report_job:%s", id)
}

func (s *RedisStore) Create(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	ok, err := s.redis.SetNX(ctx, jobKey(job.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create job in Redis: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	data, err := s.redis.Get(ctx, jobKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job from Redis: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, fn UpdateFunc) (*Job, error) {
	key := jobKey(id)
	var result *Job

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("failed to unmarshal job: %w", err)
		}

		changed, err := fn(&job)
		if err != nil {
			return err
		}
		result = &job
		if !changed {
			return nil
		}

		updated, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.redis.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflictingArtifact) || errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update job in Redis: %w", err)
	}

	return nil, fmt.Errorf("failed to update job %s: too many concurrent writers", id)
}
