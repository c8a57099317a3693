package report

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/smukkama/store-monitor/internal/hours"
	"github.com/smukkama/store-monitor/internal/metrics"
	"github.com/smukkama/store-monitor/internal/model"
	"github.com/smukkama/store-monitor/internal/uptime"
)

const (
	lastHour = time.Hour
	lastDay  = 24 * time.Hour
	lastWeek = 7 * 24 * time.Hour
)

// Options tunes a Generator
type Options struct {
	Workers    int     // concurrent locations, defaults to 1
	QueryRate  float64 // source calls per second, 0 means unlimited
	QueryBurst int
	Policy     uptime.Policy
	Clock      func() time.Time // fallback "now" for an empty dataset
}

// Generator computes hour/day/week uptime for every location
type Generator struct {
	source  Source
	interp  uptime.Interpolator
	workers int
	limiter *rate.Limiter
	clock   func() time.Time
	logger  *zap.Logger
}

// NewGenerator creates a generator reading from source
func NewGenerator(source Source, opts Options, logger *zap.Logger) *Generator {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.QueryRate > 0 {
		burst := opts.QueryBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.QueryRate), burst)
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Generator{
		source:  source,
		interp:  uptime.Interpolator{Policy: opts.Policy},
		workers: workers,
		limiter: limiter,
		clock:   clock,
		logger:  logger,
	}
}

type outcome struct {
	record Record
	err    error
}

// Generate builds one record per location, in retrieval order, for at most maxCount
// locations (maxCount <= 0 means all). A location that fails is reported in the
// summary and does not stop the others.
func (g *Generator) Generate(ctx context.Context, maxCount int) (*Summary, error) {
	started := time.Now()

	now, err := ResolveNow(ctx, g.source, g.clock)
	if err != nil {
		return nil, err
	}
	if now.LowConfidence {
		metrics.ObserveReferenceFallback()
		g.logger.Warn("no observations in dataset, reference time falls back to wall clock",
			zap.Time("now", now.At))
	}

	locations, err := g.source.ListLocations(ctx, maxCount)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	g.logger.Info("report run started",
		zap.Time("now", now.At),
		zap.Int("locations", len(locations)),
		zap.Int("workers", g.workers))

	outcomes := make([]outcome, len(locations))
	var done atomic.Int64

	var grp errgroup.Group
	grp.SetLimit(g.workers)
	for i, loc := range locations {
		i, loc := i, loc
		grp.Go(func() error {
			rec, err := g.processLocation(ctx, loc, now.At)
			outcomes[i] = outcome{record: rec, err: err}

			n := done.Add(1)
			if err != nil {
				g.logger.Warn("location failed",
					zap.String("store_id", loc.ID), zap.Int64("done", n), zap.Error(err))
			} else {
				g.logger.Debug("location done",
					zap.String("store_id", loc.ID), zap.Int64("done", n), zap.Int("total", len(locations)))
			}
			return nil
		})
	}
	_ = grp.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("report run aborted: %w", err)
	}

	summary := &Summary{Now: now, Records: make([]Record, 0, len(locations))}
	for i, o := range outcomes {
		if o.err != nil {
			summary.Failures = append(summary.Failures, Failure{LocationID: locations[i].ID, Err: o.err})
			continue
		}
		summary.Records = append(summary.Records, o.record)
	}
	summary.Elapsed = time.Since(started)

	g.logger.Info("report run finished",
		zap.Int("records", len(summary.Records)),
		zap.Int("failed", len(summary.Failures)),
		zap.Duration("elapsed", summary.Elapsed))

	return summary, nil
}

func (g *Generator) processLocation(ctx context.Context, loc model.Location, now time.Time) (Record, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return Record{}, err
	}
	rules, err := g.source.BusinessHours(ctx, loc.ID)
	if err != nil {
		return Record{}, fmt.Errorf("failed to load business hours: %w", err)
	}

	sched, err := hours.NewSchedule(loc, rules)
	if err != nil {
		return Record{}, err
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return Record{}, err
	}
	// One fetch covers all three windows; each window filters its own range.
	observations, err := g.source.Observations(ctx, loc.ID, now.Add(-lastWeek), now)
	if err != nil {
		return Record{}, fmt.Errorf("failed to load observations: %w", err)
	}

	hour, err := g.interp.Estimate(sched, now.Add(-lastHour), now, observations)
	if err != nil {
		return Record{}, fmt.Errorf("last hour: %w", err)
	}
	day, err := g.interp.Estimate(sched, now.Add(-lastDay), now, observations)
	if err != nil {
		return Record{}, fmt.Errorf("last day: %w", err)
	}
	week, err := g.interp.Estimate(sched, now.Add(-lastWeek), now, observations)
	if err != nil {
		return Record{}, fmt.Errorf("last week: %w", err)
	}

	return Record{
		LocationID:       loc.ID,
		UptimeLastHour:   hour.UptimeMinutes,
		DowntimeLastHour: hour.DowntimeMinutes,
		UptimeLastDay:    inHours(day.UptimeMinutes),
		DowntimeLastDay:  inHours(day.DowntimeMinutes),
		UptimeLastWeek:   inHours(week.UptimeMinutes),
		DowntimeLastWeek: inHours(week.DowntimeMinutes),
	}, nil
}

func inHours(minutes float64) float64 {
	return uptime.Round2(minutes / 60)
}
