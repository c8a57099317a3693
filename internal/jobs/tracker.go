package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smukkama/store-monitor/internal/timer"
)

// ReasonTimedOut is recorded on jobs failed by the watchdog
const ReasonTimedOut = "report did not finish before the job timeout"

// Tracker drives report jobs through PENDING -> COMPLETED | FAILED
type Tracker struct {
	store   Store
	logger  *zap.Logger
	timers  *timer.Manager
	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

// Option configures a Tracker
type Option func(*Tracker)

// WithWatchdog fails jobs still pending after timeout
func WithWatchdog(timers *timer.Manager, timeout time.Duration) Option {
	return func(t *Tracker) {
		t.timers = timers
		t.timeout = timeout
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker on top of a job store
func NewTracker(store Store, logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Submit creates a new PENDING job
func (t *Tracker) Submit(ctx context.Context) (*Job, error) {
	now := t.now().UTC()
	job := &Job{
		ID:        t.newID(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := t.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create report job: %w", err)
	}

	if t.timers != nil && t.timeout > 0 {
		id := job.ID
		if err := t.timers.Schedule(id, now.Add(t.timeout), func() { t.expire(id) }); err != nil {
			t.logger.Warn("failed to schedule job watchdog", zap.String("report_id", id), zap.Error(err))
		}
	}

	t.logger.Info("report job submitted", zap.String("report_id", job.ID))
	return job, nil
}

// Complete marks a job COMPLETED with its artifact location.
// Completing again with the same artifact is a no-op.
func (t *Tracker) Complete(ctx context.Context, id, artifact string, failedLocations []string) error {
	job, err := t.store.Update(ctx, id, func(j *Job) (bool, error) {
		return complete(j, artifact, failedLocations, t.now().UTC())
	})
	if err != nil {
		return fmt.Errorf("complete report job %s: %w", id, err)
	}

	t.cancelWatchdog(id)
	t.logger.Info("report job completed",
		zap.String("report_id", id),
		zap.String("artifact", job.ArtifactURL),
		zap.Int("failed_locations", len(job.FailedLocations)))
	return nil
}

// Fail marks a job FAILED with a reason
func (t *Tracker) Fail(ctx context.Context, id, reason string) error {
	if _, err := t.store.Update(ctx, id, func(j *Job) (bool, error) {
		return fail(j, reason, t.now().UTC())
	}); err != nil {
		return fmt.Errorf("fail report job %s: %w", id, err)
	}

	t.cancelWatchdog(id)
	t.logger.Warn("report job failed", zap.String("report_id", id), zap.String("reason", reason))
	return nil
}

// Get returns the job record
func (t *Tracker) Get(ctx context.Context, id string) (*Job, error) {
	return t.store.Get(ctx, id)
}

// Status returns the job status, StatusNotFound for unknown ids
func (t *Tracker) Status(ctx context.Context, id string) (Status, error) {
	job, err := t.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return StatusNotFound, nil
	}
	if err != nil {
		return "", err
	}
	return job.Status, nil
}

func (t *Tracker) cancelWatchdog(id string) {
	if t.timers != nil {
		t.timers.Cancel(id)
	}
}

func (t *Tracker) expire(id string) {
	err := t.Fail(context.Background(), id, ReasonTimedOut)
	if errors.Is(err, ErrInvalidTransition) {
		return
	}
	if err != nil {
		t.logger.Error("failed to expire report job", zap.String("report_id", id), zap.Error(err))
	}
}
