package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/smukkama/store-monitor/internal/model"
)

// ListLocations returns stores ordered by id; limit <= 0 returns all of them
func (db *DB) ListLocations(ctx context.Context, limit int) ([]model.Location, error) {
	query := `
		SELECT store_id, COALESCE(timezone_str, '')
		FROM stores
		ORDER BY store_id
		LIMIT $1
	`

	var limitArg interface{}
	if limit > 0 {
		limitArg = limit
	}

	rows, err := db.QueryContext(ctx, query, limitArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		var loc model.Location
		if err := rows.Scan(&loc.ID, &loc.Timezone); err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}

	return locations, rows.Err()
}

// GetLocation retrieves a store by id
func (db *DB) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	query := `
		SELECT store_id, COALESCE(timezone_str, '')
		FROM stores
		WHERE store_id = $1
	`

	var loc model.Location
	err := db.QueryRowContext(ctx, query, id).Scan(&loc.ID, &loc.Timezone)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// BusinessHours returns the rules of a store in insertion order
func (db *DB) BusinessHours(ctx context.Context, locationID string) ([]model.BusinessHoursRule, error) {
	query := `
		SELECT store_id, day_of_week, start_time_local::text, end_time_local::text
		FROM business_hours
		WHERE store_id = $1
		ORDER BY id
	`

	rows, err := db.QueryContext(ctx, query, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []model.BusinessHoursRule
	for rows.Next() {
		var (
			r          model.BusinessHoursRule
			start, end string
		)
		if err := rows.Scan(&r.LocationID, &r.DayOfWeek, &start, &end); err != nil {
			return nil, err
		}
		if r.Start, err = model.ParseTimeOfDay(start); err != nil {
			return nil, fmt.Errorf("store %s: %w", locationID, err)
		}
		if r.End, err = model.ParseTimeOfDay(end); err != nil {
			return nil, fmt.Errorf("store %s: %w", locationID, err)
		}
		rules = append(rules, r)
	}

	return rules, rows.Err()
}

// Observations returns the status log of a store within [from, to], oldest first
func (db *DB) Observations(ctx context.Context, locationID string, from, to time.Time) ([]model.Observation, error) {
	query := `
		SELECT store_id, timestamp_utc, status
		FROM store_status_log
		WHERE store_id = $1 AND timestamp_utc >= $2 AND timestamp_utc <= $3
		ORDER BY timestamp_utc
	`

	rows, err := db.QueryContext(ctx, query, locationID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []model.Observation
	for rows.Next() {
		var (
			o      model.Observation
			status int
		)
		if err := rows.Scan(&o.LocationID, &o.Timestamp, &status); err != nil {
			return nil, err
		}
		o.Timestamp = o.Timestamp.UTC()
		o.Status = model.Status(status)
		observations = append(observations, o)
	}

	return observations, rows.Err()
}

// LatestObservationTime returns the newest status timestamp across all stores
func (db *DB) LatestObservationTime(ctx context.Context) (time.Time, bool, error) {
	var latest sql.NullTime
	if err := db.QueryRowContext(ctx, "SELECT MAX(timestamp_utc) FROM store_status_log").Scan(&latest); err != nil {
		return time.Time{}, false, err
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return latest.Time.UTC(), true, nil
}
