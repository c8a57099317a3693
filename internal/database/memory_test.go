package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/store-monitor/internal/model"
)

func TestMemorySource_ObservationsSortedAndFiltered(t *testing.T) {
	m := NewMemorySource()
	base := time.Date(2023, 1, 25, 10, 0, 0, 0, time.UTC)

	m.AddObservations(
		model.Observation{LocationID: "a", Timestamp: base.Add(2 * time.Hour), Status: model.StatusInactive},
		model.Observation{LocationID: "a", Timestamp: base, Status: model.StatusActive},
		model.Observation{LocationID: "a", Timestamp: base.Add(5 * time.Hour), Status: model.StatusActive},
	)

	obs, err := m.Observations(context.Background(), "a", base, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.True(t, obs[0].Timestamp.Equal(base))
	assert.True(t, obs[1].Timestamp.Equal(base.Add(2*time.Hour)))

	latest, ok, err := m.LatestObservationTime(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, latest.Equal(base.Add(5*time.Hour)))
}

func TestMemorySource_ListLocationsLimit(t *testing.T) {
	m := NewMemorySource()
	m.AddLocations(model.Location{ID: "c"}, model.Location{ID: "a"}, model.Location{ID: "b"})
	m.AddLocations(model.Location{ID: "a", Timezone: "Asia/Tokyo"})

	all, err := m.ListLocations(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []model.Location{{ID: "c"}, {ID: "a", Timezone: "Asia/Tokyo"}, {ID: "b"}}, all)

	two, err := m.ListLocations(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	many, err := m.ListLocations(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, many, 3)
}

func TestMemorySource_Backfill(t *testing.T) {
	ctx := context.Background()
	m := NewMemorySource()
	require.NoError(t, m.UpsertLocations(ctx, []model.Location{{ID: "a", Timezone: "Asia/Tokyo"}}))
	require.NoError(t, m.InsertObservations(ctx, []model.Observation{
		{LocationID: "a", Timestamp: time.Now()},
		{LocationID: "z", Timestamp: time.Now()},
	}))
	require.NoError(t, m.InsertBusinessHours(ctx, []model.BusinessHoursRule{{LocationID: "y"}}))

	added, err := m.BackfillLocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), added)

	stores, rules, observations := m.Stats()
	assert.Equal(t, 3, stores)
	assert.Equal(t, 1, rules)
	assert.Equal(t, 2, observations)

	locs, err := m.ListLocations(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", locs[0].Timezone)
	assert.Equal(t, "y", locs[1].ID)
	assert.Equal(t, "z", locs[2].ID)
}

func TestMemorySource_EmptyLatest(t *testing.T) {
	_, ok, err := NewMemorySource().LatestObservationTime(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
