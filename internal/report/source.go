package report

import (
	"context"
	"fmt"
	"time"

	"github.com/smukkama/store-monitor/internal/model"
)

// Source is the read-only data access a report run needs.
// Observations must come back sorted ascending by timestamp.
type Source interface {
	ListLocations(ctx context.Context, limit int) ([]model.Location, error)
	BusinessHours(ctx context.Context, locationID string) ([]model.BusinessHoursRule, error)
	Observations(ctx context.Context, locationID string, from, to time.Time) ([]model.Observation, error)
	LatestObservationTime(ctx context.Context) (time.Time, bool, error)
}

// ReferenceTime is the synthetic "now" shared by every window of a run
type ReferenceTime struct {
	At time.Time
	// LowConfidence is set when the dataset had no observations and the wall clock was used
	LowConfidence bool
}

// ResolveNow returns the latest observation timestamp across the whole dataset,
// or the clock reading when there are no observations at all.
func ResolveNow(ctx context.Context, src Source, clock func() time.Time) (ReferenceTime, error) {
	latest, ok, err := src.LatestObservationTime(ctx)
	if err != nil {
		return ReferenceTime{}, fmt.Errorf("failed to read latest observation time: %w", err)
	}
	if !ok {
		return ReferenceTime{At: clock().UTC(), LowConfidence: true}, nil
	}
	return ReferenceTime{At: latest.UTC()}, nil
}
