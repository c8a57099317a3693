package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/smukkama/store-monitor/internal/app"
	"github.com/smukkama/store-monitor/internal/database"
	"github.com/smukkama/store-monitor/internal/jobs"
	"github.com/smukkama/store-monitor/internal/logger"
	"github.com/smukkama/store-monitor/internal/metrics"
	"github.com/smukkama/store-monitor/internal/queue"
	"github.com/smukkama/store-monitor/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level, cfg.Log.Format, "store-monitor-reporter")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Sync()

	if !cfg.Kafka.Enabled {
		lg.Fatal("reporter requires KAFKA_ENABLED=true; without kafka the server runs reports itself")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.Database.ConnectionString(), database.PoolConfig{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}, lg)
	if err != nil {
		lg.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		lg.Fatal("failed to register metrics", zap.Error(err))
	}

	store, closeStore, err := app.NewJobStore(ctx, cfg.Redis, cfg.Report.JobTTL, lg)
	if err != nil {
		lg.Fatal("failed to create job store", zap.Error(err))
	}
	defer closeStore()

	tracker := jobs.NewTracker(store, lg)
	runner, err := app.NewRunner(cfg.Report, db, tracker, lg)
	if err != nil {
		lg.Fatal("failed to configure report runner", zap.Error(err))
	}

	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicReports, cfg.Kafka.GroupID)
	defer consumer.Close()

	worker := queue.NewWorker(consumer, runner, lg)
	worker.Start(ctx)
	lg.Info("reporter consuming",
		zap.String("topic", cfg.Kafka.TopicReports), zap.String("group", cfg.Kafka.GroupID))

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.MetricsPort),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("metrics listener failed", zap.Error(err))
		}
	}()

	// Print consumer statistics periodically
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := consumer.Stats()
				lg.Info("consumer statistics",
					zap.Int64("messages", stats.Messages),
					zap.Int64("errors", stats.Errors),
					zap.Int64("lag", stats.Lag))
			}
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	worker.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	metricsSrv.Shutdown(shutdownCtx)

	lg.Info("reporter stopped")
}
