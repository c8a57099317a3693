package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/smukkama/store-monitor/internal/protocol"
)

const fetchRetryDelay = time.Second

// MessageSource is the consumer side a Worker reads from
type MessageSource interface {
	Consume(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
}

// Handler runs one report request
type Handler interface {
	Run(ctx context.Context, req protocol.ReportRequest) error
}

// Worker consumes report requests and runs them one at a time.
// Offsets are committed once the run has reached a terminal job state.
type Worker struct {
	source  MessageSource
	handler Handler
	logger  *zap.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorker creates a new worker
func NewWorker(source MessageSource, handler Handler, logger *zap.Logger) *Worker {
	return &Worker{
		source:  source,
		handler: handler,
		logger:  logger,
	}
}

// Start begins consuming in the background
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop cancels the consume loop and waits for the current run to return
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		msg, err := w.source.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("consumer error", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchRetryDelay):
			}
			continue
		}

		w.process(ctx, msg)
	}
}

func (w *Worker) process(ctx context.Context, msg kafka.Message) {
	logger := w.logger.With(zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset))

	req, err := protocol.DecodeReportRequest(msg.Value)
	if err != nil {
		// Undecodable messages can never succeed; skip past them.
		logger.Error("dropping malformed report request", zap.Error(err))
		w.commit(ctx, logger, msg)
		return
	}

	logger = logger.With(zap.String("report_id", req.ReportID))
	logger.Info("report request received")

	if err := w.handler.Run(ctx, *req); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			// Shutting down mid-run: leave the offset so the request is redelivered.
			logger.Warn("report run interrupted by shutdown")
			return
		}
		logger.Warn("report run finished with error", zap.Error(err))
	}

	w.commit(ctx, logger, msg)
}

func (w *Worker) commit(ctx context.Context, logger *zap.Logger, msg kafka.Message) {
	if err := w.source.Commit(ctx, msg); err != nil {
		logger.Error("failed to commit offset", zap.Error(err))
	}
}
