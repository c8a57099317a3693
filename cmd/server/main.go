package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/smukkama/store-monitor/internal/api"
	"github.com/smukkama/store-monitor/internal/app"
	"github.com/smukkama/store-monitor/internal/database"
	"github.com/smukkama/store-monitor/internal/jobs"
	"github.com/smukkama/store-monitor/internal/logger"
	"github.com/smukkama/store-monitor/internal/metrics"
	"github.com/smukkama/store-monitor/internal/queue"
	"github.com/smukkama/store-monitor/internal/report"
	"github.com/smukkama/store-monitor/internal/timer"
	"github.com/smukkama/store-monitor/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level, cfg.Log.Format, "store-monitor-server")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString(), database.PoolConfig{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}, lg)
	if err != nil {
		lg.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		lg.Fatal("failed to run migrations", zap.Error(err))
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		lg.Fatal("failed to register metrics", zap.Error(err))
	}

	store, closeStore, err := app.NewJobStore(ctx, cfg.Redis, cfg.Report.JobTTL, lg)
	if err != nil {
		lg.Fatal("failed to create job store", zap.Error(err))
	}
	defer closeStore()

	// Watchdog fails jobs whose run never reports back
	timers := timer.NewManager()
	defer timers.Stop()

	tracker := jobs.NewTracker(store, lg, jobs.WithWatchdog(timers, cfg.Report.JobTimeout))

	var (
		dispatcher api.Dispatcher
		local      *report.LocalDispatcher
	)
	if cfg.Kafka.Enabled {
		if err := queue.CreateTopic(
			cfg.Kafka.Brokers,
			cfg.Kafka.TopicReports,
			cfg.Kafka.NumPartitions,
			cfg.Kafka.ReplicationFactor,
		); err != nil {
			lg.Info("topic creation failed (may already exist)", zap.Error(err))
		}

		producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicReports)
		defer producer.Close()
		dispatcher = queue.NewRequestPublisher(producer)
		lg.Info("dispatching report requests to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.TopicReports))
	} else {
		runner, err := app.NewRunner(cfg.Report, db, tracker, lg)
		if err != nil {
			lg.Fatal("failed to configure report runner", zap.Error(err))
		}
		local = report.NewLocalDispatcher(ctx, runner, lg)
		dispatcher = local
		lg.Info("running reports in process")
	}

	handler := api.NewHandler(tracker, dispatcher, db, lg)
	router := api.NewRouter(handler, promhttp.Handler())

	logged := handlers.LoggingHandler(os.Stdout, router)
	recovered := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(logged)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           recovered,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("HTTP API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("HTTP shutdown failed", zap.Error(err))
	}

	// In-process runs see ctx cancelled and wind down
	if local != nil {
		local.Wait()
	}

	lg.Info("server stopped")
}
