package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smukkama/store-monitor/internal/model"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *DB) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	return sqlDB, mock, New(sqlDB, zap.NewNop())
}

func TestListLocations_WithLimit(t *testing.T) {
	sqlDB, mock, db := setupMockDB(t)
	defer sqlDB.Close()

	rows := sqlmock.NewRows([]string{"store_id", "timezone_str"}).
		AddRow("a", "America/New_York").
		AddRow("b", "")
	mock.ExpectQuery(`SELECT store_id, COALESCE\(timezone_str, ''\)\s+FROM stores`).
		WithArgs(2).
		WillReturnRows(rows)

	locations, err := db.ListLocations(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []model.Location{{ID: "a", Timezone: "America/New_York"}, {ID: "b"}}, locations)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListLocations_NoLimit(t *testing.T) {
	sqlDB, mock, db := setupMockDB(t)
	defer sqlDB.Close()

	mock.ExpectQuery(`FROM stores`).
		WithArgs(nil).
		WillReturnRows(sqlmock.NewRows([]string{"store_id", "timezone_str"}))

	locations, err := db.ListLocations(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, locations)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLocation_NotFound(t *testing.T) {
	sqlDB, mock, db := setupMockDB(t)
	defer sqlDB.Close()

	mock.ExpectQuery(`WHERE store_id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	loc, err := db.GetLocation(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestBusinessHours_ParsesTimes(t *testing.T) {
	sqlDB, mock, db := setupMockDB(t)
	defer sqlDB.Close()

	rows := sqlmock.NewRows([]string{"store_id", "day_of_week", "start_time_local", "end_time_local"}).
		AddRow("a", 0, "09:00:00", "17:30:00").
		AddRow("a", 6, "00:00:00", "23:59:59")
	mock.ExpectQuery(`FROM business_hours`).
		WithArgs("a").
		WillReturnRows(rows)

	rules, err := db.BusinessHours(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, model.NewTimeOfDay(9, 0, 0), rules[0].Start)
	assert.Equal(t, model.NewTimeOfDay(17, 30, 0), rules[0].End)
	assert.Equal(t, 6, rules[1].DayOfWeek)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBusinessHours_BadTime(t *testing.T) {
	sqlDB, mock, db := setupMockDB(t)
	defer sqlDB.Close()

	rows := sqlmock.NewRows([]string{"store_id", "day_of_week", "start_time_local", "end_time_local"}).
		AddRow("a", 0, "nine", "17:00:00")
	mock.ExpectQuery(`FROM business_hours`).WithArgs("a").WillReturnRows(rows)

	_, err := db.BusinessHours(context.Background(), "a")
	assert.Error(t, err)
}

func TestObservations_ConvertsToUTC(t *testing.T) {
	sqlDB, mock, db := setupMockDB(t)
	defer sqlDB.Close()

	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	from := time.Date(2023, 1, 24, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	local := time.Date(2023, 1, 24, 3, 0, 0, 0, chicago)

	rows := sqlmock.NewRows([]string{"store_id", "timestamp_utc", "status"}).
		AddRow("a", local, 1).
		AddRow("a", local.Add(time.Hour), 0)
	mock.ExpectQuery(`FROM store_status_log`).
		WithArgs("a", from, to).
		WillReturnRows(rows)

	obs, err := db.Observations(context.Background(), "a", from, to)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, time.UTC, obs[0].Timestamp.Location())
	assert.True(t, obs[0].Timestamp.Equal(local))
	assert.Equal(t, model.StatusActive, obs[0].Status)
	assert.Equal(t, model.StatusInactive, obs[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestObservationTime(t *testing.T) {
	sqlDB, mock, db := setupMockDB(t)
	defer sqlDB.Close()

	latest := time.Date(2023, 1, 25, 18, 13, 22, 0, time.UTC)
	mock.ExpectQuery(`SELECT MAX\(timestamp_utc\) FROM store_status_log`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(latest))

	got, ok, err := db.LatestObservationTime(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(latest))
}

func TestLatestObservationTime_EmptyTable(t *testing.T) {
	sqlDB, mock, db := setupMockDB(t)
	defer sqlDB.Close()

	mock.ExpectQuery(`SELECT MAX`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	_, ok, err := db.LatestObservationTime(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVersion(t *testing.T) {
	sqlDB, mock, db := setupMockDB(t)
	defer sqlDB.Close()

	mock.ExpectQuery(`SELECT version\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("PostgreSQL 16.2"))

	v, err := db.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PostgreSQL 16.2", v)
}

func TestUpsertLocations(t *testing.T) {
	sqlDB, mock, db := setupMockDB(t)
	defer sqlDB.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO stores`)
	prep.ExpectExec().WithArgs("a", "Asia/Tokyo").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("b", nil).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.UpsertLocations(context.Background(), []model.Location{
		{ID: "a", Timezone: "Asia/Tokyo"},
		{ID: "b"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertObservations_UsesCopy(t *testing.T) {
	sqlDB, mock, db := setupMockDB(t)
	defer sqlDB.Close()

	ts := time.Date(2023, 1, 25, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`COPY "store_status_log"`)
	prep.ExpectExec().WithArgs("a", ts, 1).WillReturnResult(sqlmock.NewResult(0, 0))
	prep.ExpectExec().WithArgs("a", ts.Add(time.Hour), 0).WillReturnResult(sqlmock.NewResult(0, 0))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := db.InsertObservations(context.Background(), []model.Observation{
		{LocationID: "a", Timestamp: ts, Status: model.StatusActive},
		{LocationID: "a", Timestamp: ts.Add(time.Hour), Status: model.StatusInactive},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBusinessHours_RollsBackOnError(t *testing.T) {
	sqlDB, mock, db := setupMockDB(t)
	defer sqlDB.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`COPY "business_hours"`)
	prep.ExpectExec().WithArgs("a", 0, "09:00:00", "17:00:00").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := db.InsertBusinessHours(context.Background(), []model.BusinessHoursRule{
		{LocationID: "a", DayOfWeek: 0, Start: model.NewTimeOfDay(9, 0, 0), End: model.NewTimeOfDay(17, 0, 0)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBackfillLocations(t *testing.T) {
	sqlDB, mock, db := setupMockDB(t)
	defer sqlDB.Close()

	mock.ExpectExec(`INSERT INTO stores \(store_id\)`).WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := db.BackfillLocations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRunMigrations_SortedOrder(t *testing.T) {
	sqlDB, mock, db := setupMockDB(t)
	defer sqlDB.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "002_b.sql"), []byte("SELECT 2"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_a.sql"), []byte("SELECT 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("skip"), 0o644))

	mock.ExpectExec(`SELECT 1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SELECT 2`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, db.RunMigrations(dir))
	require.NoError(t, mock.ExpectationsWereMet())
}
