package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/smukkama/store-monitor/internal/artifact"
	"github.com/smukkama/store-monitor/internal/database"
	"github.com/smukkama/store-monitor/internal/ingest"
	"github.com/smukkama/store-monitor/internal/logger"
	"github.com/smukkama/store-monitor/internal/report"
	"github.com/smukkama/store-monitor/internal/uptime"
	"github.com/smukkama/store-monitor/pkg/config"
)

func main() {
	dataDir := flag.String("data", "data", "directory holding timezones.csv, menu_hours.csv and store_status.csv")
	chunkSize := flag.Int("chunk", ingest.DefaultChunkSize, "rows per bulk write")
	dryRun := flag.Bool("dry-run", false, "parse into memory instead of Postgres")
	printReport := flag.Bool("report", false, "with -dry-run, print a report of the loaded data as CSV to stdout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level, cfg.Log.Format, "store-monitor-loader")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sink ingest.Sink
	memory := database.NewMemorySource()

	if *dryRun {
		sink = memory
	} else {
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
		sink = db
	}

	started := time.Now()
	stats, err := ingest.NewLoader(sink, *chunkSize, lg).LoadDir(ctx, *dataDir)
	if err != nil {
		lg.Fatal("load failed", zap.Error(err))
	}
	lg.Info("load finished",
		zap.Int("stores", stats.Locations),
		zap.Int("business_hours", stats.BusinessHours),
		zap.Int("observations", stats.Observations),
		zap.Int64("backfilled", stats.Backfilled),
		zap.Duration("elapsed", time.Since(started)))

	if !*printReport {
		return
	}
	if !*dryRun {
		lg.Fatal("-report is only available with -dry-run; use the server API against Postgres")
	}

	policy, err := uptime.ParsePolicy(cfg.Report.Attribution)
	if err != nil {
		lg.Fatal("invalid attribution", zap.Error(err))
	}
	summary, err := report.NewGenerator(memory, report.Options{
		Workers: cfg.Report.Workers,
		Policy:  policy,
	}, lg).Generate(ctx, cfg.Report.MaxLocations)
	if err != nil {
		lg.Fatal("report failed", zap.Error(err))
	}
	if err := artifact.WriteCSV(os.Stdout, summary.Records); err != nil {
		lg.Fatal("failed to write report", zap.Error(err))
	}
}
