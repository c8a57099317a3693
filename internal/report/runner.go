package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smukkama/store-monitor/internal/metrics"
	"github.com/smukkama/store-monitor/internal/protocol"
)

// JobTracker records the outcome of a report job
type JobTracker interface {
	Complete(ctx context.Context, id, artifact string, failedLocations []string) error
	Fail(ctx context.Context, id, reason string) error
}

// ArtifactWriter persists report records and returns the artifact location
type ArtifactWriter interface {
	Write(ctx context.Context, reportID string, records []Record) (string, error)
}

// RunnerConfig holds per-run limits
type RunnerConfig struct {
	MaxLocations int
	Timeout      time.Duration // 0 disables the run deadline
}

// Runner executes a report job end to end: generate, write the artifact, complete the job
type Runner struct {
	generator *Generator
	writer    ArtifactWriter
	tracker   JobTracker
	cfg       RunnerConfig
	logger    *zap.Logger
}

// NewRunner creates a runner
func NewRunner(generator *Generator, writer ArtifactWriter, tracker JobTracker, cfg RunnerConfig, logger *zap.Logger) *Runner {
	return &Runner{
		generator: generator,
		writer:    writer,
		tracker:   tracker,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run processes one report request. The job ends COMPLETED, possibly with a list of
// failed locations, or FAILED when the run could not produce a report at all.
func (r *Runner) Run(ctx context.Context, req protocol.ReportRequest) error {
	started := time.Now()
	logger := r.logger.With(zap.String("report_id", req.ReportID))

	maxLocations := r.cfg.MaxLocations
	if req.MaxLocations > 0 {
		maxLocations = req.MaxLocations
	}

	runCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	summary, err := r.generator.Generate(runCtx, maxLocations)
	if err != nil {
		return r.fail(ctx, logger, req.ReportID, started, err)
	}
	metrics.ObserveLocations(len(summary.Records), len(summary.Failures))

	if len(summary.Records) == 0 && len(summary.Failures) > 0 {
		return r.fail(ctx, logger, req.ReportID, started,
			fmt.Errorf("all %d locations failed", len(summary.Failures)))
	}

	artifact, err := r.writer.Write(runCtx, req.ReportID, summary.Records)
	if err != nil {
		return r.fail(ctx, logger, req.ReportID, started, fmt.Errorf("failed to write artifact: %w", err))
	}

	if err := r.tracker.Complete(ctx, req.ReportID, artifact, summary.FailedLocationIDs()); err != nil {
		metrics.ObserveRun(time.Since(started), metrics.OutcomeError)
		return err
	}

	metrics.ObserveRun(time.Since(started), metrics.OutcomeSuccess)
	logger.Info("report ready",
		zap.String("artifact", artifact),
		zap.Int("records", len(summary.Records)),
		zap.Int("failed", len(summary.Failures)),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

func (r *Runner) fail(ctx context.Context, logger *zap.Logger, id string, started time.Time, cause error) error {
	metrics.ObserveRun(time.Since(started), metrics.OutcomeError)
	logger.Error("report run failed", zap.Error(cause))

	if err := r.tracker.Fail(ctx, id, cause.Error()); err != nil {
		logger.Error("failed to mark report job as failed", zap.Error(err))
	}
	return cause
}

// LocalDispatcher runs report requests in-process, for deployments without Kafka
type LocalDispatcher struct {
	ctx    context.Context
	runner *Runner
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewLocalDispatcher creates a dispatcher whose runs live as long as ctx
func NewLocalDispatcher(ctx context.Context, runner *Runner, logger *zap.Logger) *LocalDispatcher {
	return &LocalDispatcher{ctx: ctx, runner: runner, logger: logger}
}

// Dispatch starts the run in the background and returns immediately
func (d *LocalDispatcher) Dispatch(_ context.Context, req protocol.ReportRequest) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.runner.Run(d.ctx, req); err != nil {
			d.logger.Warn("in-process report run ended with error",
				zap.String("report_id", req.ReportID), zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until every dispatched run has returned
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}
