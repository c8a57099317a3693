package database

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/smukkama/store-monitor/internal/model"
)

// UpsertLocations inserts stores, overwriting the timezone of existing ones
func (db *DB) UpsertLocations(ctx context.Context, locations []model.Location) error {
	if len(locations) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stores (store_id, timezone_str)
		VALUES ($1, $2)
		ON CONFLICT (store_id) DO UPDATE SET timezone_str = EXCLUDED.timezone_str
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, loc := range locations {
		var tz interface{}
		if loc.Timezone != "" {
			tz = loc.Timezone
		}
		if _, err := stmt.ExecContext(ctx, loc.ID, tz); err != nil {
			return fmt.Errorf("failed to upsert store %s: %w", loc.ID, err)
		}
	}

	return tx.Commit()
}

// InsertBusinessHours bulk loads business-hours rules with COPY
func (db *DB) InsertBusinessHours(ctx context.Context, rules []model.BusinessHoursRule) error {
	if len(rules) == 0 {
		return nil
	}
	return db.copyRows(ctx,
		pq.CopyIn("business_hours", "store_id", "day_of_week", "start_time_local", "end_time_local"),
		len(rules),
		func(i int) []interface{} {
			r := rules[i]
			return []interface{}{r.LocationID, r.DayOfWeek, r.Start.String(), r.End.String()}
		})
}

// InsertObservations bulk loads status observations with COPY
func (db *DB) InsertObservations(ctx context.Context, observations []model.Observation) error {
	if len(observations) == 0 {
		return nil
	}
	return db.copyRows(ctx,
		pq.CopyIn("store_status_log", "store_id", "timestamp_utc", "status"),
		len(observations),
		func(i int) []interface{} {
			o := observations[i]
			return []interface{}{o.LocationID, o.Timestamp.UTC(), int(o.Status)}
		})
}

// BackfillLocations creates a store row for every id seen only in the log tables.
// Those stores get the default timezone.
func (db *DB) BackfillLocations(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO stores (store_id)
		SELECT store_id FROM (
			SELECT store_id FROM store_status_log
			UNION
			SELECT store_id FROM business_hours
		) seen
		ON CONFLICT (store_id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill stores: %w", err)
	}
	return res.RowsAffected()
}

func (db *DB) copyRows(ctx context.Context, copySQL string, n int, row func(int) []interface{}) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, copySQL)
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy row %d: %w", i, err)
		}
	}

	// flush
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	return tx.Commit()
}
