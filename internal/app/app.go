// Package app assembles the report pipeline from configuration. It is shared
// by the server, which may run reports in process, and the reporter worker.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smukkama/store-monitor/internal/artifact"
	"github.com/smukkama/store-monitor/internal/jobs"
	"github.com/smukkama/store-monitor/internal/report"
	"github.com/smukkama/store-monitor/internal/uptime"
	"github.com/smukkama/store-monitor/pkg/config"
)

// NewJobStore returns a Redis-backed store when Redis is enabled, otherwise an
// in-memory one. The returned close function is never nil.
func NewJobStore(ctx context.Context, cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) (jobs.Store, func() error, error) {
	if !cfg.Enabled {
		logger.Warn("redis disabled, report jobs are kept in memory")
		return jobs.NewMemoryStore(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	return jobs.NewRedisStore(client, ttl), client.Close, nil
}

// NewRunner builds the generator, artifact writer and runner for report jobs
func NewRunner(cfg config.ReportConfig, source report.Source, tracker report.JobTracker, logger *zap.Logger) (*report.Runner, error) {
	policy, err := uptime.ParsePolicy(cfg.Attribution)
	if err != nil {
		return nil, err
	}
	format, err := artifact.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	writer, err := artifact.NewFileWriter(cfg.Dir, format)
	if err != nil {
		return nil, err
	}

	generator := report.NewGenerator(source, report.Options{
		Workers:    cfg.Workers,
		QueryRate:  cfg.QueryRate,
		QueryBurst: cfg.QueryBurst,
		Policy:     policy,
	}, logger)

	logger.Info("report runner configured",
		zap.Int("workers", cfg.Workers),
		zap.Float64("query_rate", cfg.QueryRate),
		zap.String("attribution", policy.String()),
		zap.String("format", string(format)),
		zap.String("dir", cfg.Dir))

	return report.NewRunner(generator, writer, tracker, report.RunnerConfig{
		MaxLocations: cfg.MaxLocations,
		Timeout:      cfg.RunTimeout,
	}, logger), nil
}
