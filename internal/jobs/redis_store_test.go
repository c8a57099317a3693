package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewRedisStore(client, 7*24*time.Hour)
}

func TestRedisStore_CreateGet(t *testing.T) {
	mr, store := setupRedisStore(t)
	ctx := context.Background()

	job := &Job{ID: "job-1", Status: StatusPending, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Create(ctx, job))
	assert.ErrorIs(t, store.Create(ctx, job), ErrAlreadyExists)

	assert.True(t, mr.Exists("report_job:job-1"))
	assert.Equal(t, 7*24*time.Hour, mr.TTL("report_job:job-1"))

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_UpdateKeepsTTL(t *testing.T) {
	mr, store := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Job{ID: "job-1", Status: StatusPending}))

	job, err := store.Update(ctx, "job-1", func(j *Job) (bool, error) {
		return complete(j, "reports/job-1.csv", nil, time.Now())
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, 7*24*time.Hour, mr.TTL("report_job:job-1"))

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "reports/job-1.csv", got.ArtifactURL)

	_, err = store.Update(ctx, "missing", func(j *Job) (bool, error) { return true, nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_TrackerLifecycle(t *testing.T) {
	_, store := setupRedisStore(t)
	ctx := context.Background()
	tr := NewTracker(store, zap.NewNop())

	job, err := tr.Submit(ctx)
	require.NoError(t, err)

	require.NoError(t, tr.Complete(ctx, job.ID, "reports/x.csv", []string{"s2"}))
	assert.NoError(t, tr.Complete(ctx, job.ID, "reports/x.csv", nil))
	assert.ErrorIs(t, tr.Complete(ctx, job.ID, "reports/y.csv", nil), ErrConflictingArtifact)
	assert.ErrorIs(t, tr.Fail(ctx, job.ID, "late"), ErrInvalidTransition)

	status, err := tr.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
}

func TestRedisStore_ConcurrentTransitions(t *testing.T) {
	_, store := setupRedisStore(t)
	ctx := context.Background()
	tr := NewTracker(store, zap.NewNop())

	job, err := tr.Submit(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results <- tr.Complete(ctx, job.ID, "reports/x.csv", nil)
	}()
	go func() {
		defer wg.Done()
		results <- tr.Fail(ctx, job.ID, "cancelled")
	}()
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}
	assert.Equal(t, 1, succeeded)

	got, err := tr.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, got.Terminal())
}
