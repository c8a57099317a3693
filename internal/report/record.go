package report

import "time"

// Columns is the fixed column order of a report artifact
var Columns = []string{
	"store_id",
	"uptime_last_hour",
	"downtime_last_hour",
	"uptime_last_day",
	"downtime_last_day",
	"uptime_last_week",
	"downtime_last_week",
}

// Record is one row of the report.
// Last-hour figures are minutes; last-day and last-week figures are hours.
type Record struct {
	LocationID       string
	UptimeLastHour   float64
	DowntimeLastHour float64
	UptimeLastDay    float64
	DowntimeLastDay  float64
	UptimeLastWeek   float64
	DowntimeLastWeek float64
}

// Values returns the numeric fields in column order
func (r Record) Values() []float64 {
	return []float64{
		r.UptimeLastHour,
		r.DowntimeLastHour,
		r.UptimeLastDay,
		r.DowntimeLastDay,
		r.UptimeLastWeek,
		r.DowntimeLastWeek,
	}
}

// Failure describes a location that could not be processed
type Failure struct {
	LocationID string
	Err        error
}

// Summary is the outcome of a report run
type Summary struct {
	Now      ReferenceTime
	Records  []Record
	Failures []Failure
	Elapsed  time.Duration
}

// FailedLocationIDs returns the ids of the locations that failed, in retrieval order
func (s *Summary) FailedLocationIDs() []string {
	if len(s.Failures) == 0 {
		return nil
	}
	ids := make([]string, len(s.Failures))
	for i, f := range s.Failures {
		ids[i] = f.LocationID
	}
	return ids
}
