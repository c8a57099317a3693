package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smukkama/store-monitor/internal/model"
)

// DefaultChunkSize is the number of rows parsed before each write
const DefaultChunkSize = 50000

// Extract file names inside a data directory
const (
	LocationsFile     = "timezones.csv"
	BusinessHoursFile = "menu_hours.csv"
	ObservationsFile  = "store_status.csv"
)

// Sink receives parsed rows chunk by chunk
type Sink interface {
	UpsertLocations(ctx context.Context, locations []model.Location) error
	InsertBusinessHours(ctx context.Context, rules []model.BusinessHoursRule) error
	InsertObservations(ctx context.Context, observations []model.Observation) error
	BackfillLocations(ctx context.Context) (int64, error)
}

// Stats counts loaded rows per extract
type Stats struct {
	Locations     int
	BusinessHours int
	Observations  int
	Backfilled    int64
}

// Loader parses CSV extracts and writes them to a Sink
type Loader struct {
	sink      Sink
	chunkSize int
	logger    *zap.Logger
}

// NewLoader creates a loader; chunkSize <= 0 uses DefaultChunkSize
func NewLoader(sink Sink, chunkSize int, logger *zap.Logger) *Loader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Loader{sink: sink, chunkSize: chunkSize, logger: logger}
}

// LoadDir loads the three extracts from dir, stores first, then backfills
// stores that only appear in the hours or status extracts. A missing file is skipped.
func (l *Loader) LoadDir(ctx context.Context, dir string) (Stats, error) {
	var stats Stats

	steps := []struct {
		file  string
		load  func(context.Context, io.Reader) (int, error)
		count *int
	}{
		{LocationsFile, l.LoadLocations, &stats.Locations},
		{BusinessHoursFile, l.LoadBusinessHours, &stats.BusinessHours},
		{ObservationsFile, l.LoadObservations, &stats.Observations},
	}

	for _, step := range steps {
		path := filepath.Join(dir, step.file)
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("extract not found, skipping", zap.String("file", path))
			continue
		}
		if err != nil {
			return stats, err
		}

		started := time.Now()
		n, err := step.load(ctx, f)
		f.Close()
		if err != nil {
			return stats, fmt.Errorf("%s: %w", step.file, err)
		}
		*step.count = n
		l.logger.Info("extract loaded",
			zap.String("file", step.file),
			zap.Int("rows", n),
			zap.Duration("elapsed", time.Since(started)))
	}

	backfilled, err := l.sink.BackfillLocations(ctx)
	if err != nil {
		return stats, err
	}
	stats.Backfilled = backfilled
	if backfilled > 0 {
		l.logger.Info("backfilled stores with default timezone", zap.Int64("stores", backfilled))
	}

	return stats, nil
}

// LoadLocations reads store_id,timezone_str rows
func (l *Loader) LoadLocations(ctx context.Context, r io.Reader) (int, error) {
	return readChunks(ctx, l, r, "stores",
		[][]string{{"store_id"}, {"timezone_str"}},
		func(row []string) (model.Location, error) {
			return model.Location{ID: row[0], Timezone: row[1]}, nil
		},
		l.sink.UpsertLocations)
}

// LoadBusinessHours reads store_id,dayOfWeek,start_time_local,end_time_local rows
func (l *Loader) LoadBusinessHours(ctx context.Context, r io.Reader) (int, error) {
	return readChunks(ctx, l, r, "business_hours",
		[][]string{{"store_id"}, {"dayOfWeek", "day_of_week"}, {"start_time_local"}, {"end_time_local"}},
		func(row []string) (model.BusinessHoursRule, error) {
			day, err := strconv.Atoi(row[1])
			if err != nil || day < 0 || day > 6 {
				return model.BusinessHoursRule{}, fmt.Errorf("invalid day of week %q", row[1])
			}
			start, err := model.ParseTimeOfDay(row[2])
			if err != nil {
				return model.BusinessHoursRule{}, err
			}
			end, err := model.ParseTimeOfDay(row[3])
			if err != nil {
				return model.BusinessHoursRule{}, err
			}
			return model.BusinessHoursRule{LocationID: row[0], DayOfWeek: day, Start: start, End: end}, nil
		},
		l.sink.InsertBusinessHours)
}

// LoadObservations reads store_id,status,timestamp_utc rows
func (l *Loader) LoadObservations(ctx context.Context, r io.Reader) (int, error) {
	return readChunks(ctx, l, r, "store_status",
		[][]string{{"store_id"}, {"status"}, {"timestamp_utc"}},
		func(row []string) (model.Observation, error) {
			status, err := model.ParseStatus(row[1])
			if err != nil {
				return model.Observation{}, err
			}
			ts, err := ParseTimestamp(row[2])
			if err != nil {
				return model.Observation{}, err
			}
			return model.Observation{LocationID: row[0], Timestamp: ts, Status: status}, nil
		},
		l.sink.InsertObservations)
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999 MST",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// ParseTimestamp parses the extract timestamp formats. Values without a zone are UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}

// readChunks maps the wanted columns by header name, parses rows and hands
// them to write every l.chunkSize rows. Each wanted column lists accepted aliases.
func readChunks[T any](
	ctx context.Context,
	l *Loader,
	r io.Reader,
	table string,
	wanted [][]string,
	parse func(row []string) (T, error),
	write func(context.Context, []T) error,
) (int, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read header: %w", err)
	}
	index, err := columnIndex(header, wanted)
	if err != nil {
		return 0, err
	}

	var (
		total int
		chunk = make([]T, 0, l.chunkSize)
		row   = make([]string, len(wanted))
	)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := write(ctx, chunk); err != nil {
			return fmt.Errorf("failed to write %s chunk: %w", table, err)
		}
		total += len(chunk)
		l.logger.Debug("chunk written", zap.String("table", table), zap.Int("rows", len(chunk)), zap.Int("total", total))
		chunk = make([]T, 0, l.chunkSize)
		return nil
	}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}
		for i, col := range index {
			if col >= len(record) {
				return total, fmt.Errorf("line %d: missing column %s", line, wanted[i][0])
			}
			row[i] = strings.TrimSpace(record[col])
		}

		item, err := parse(row)
		if err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}
		chunk = append(chunk, item)

		if len(chunk) >= l.chunkSize {
			if err := ctx.Err(); err != nil {
				return total, err
			}
			if err := flush(); err != nil {
				return total, err
			}
		}
	}

	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

func columnIndex(header []string, wanted [][]string) ([]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	index := make([]int, len(wanted))
	for i, aliases := range wanted {
		found := false
		for _, alias := range aliases {
			if pos, ok := positions[alias]; ok {
				index[i] = pos
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("missing column %s", aliases[0])
		}
	}
	return index, nil
}
