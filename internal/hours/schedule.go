package hours

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host zoneinfo

	"github.com/smukkama/store-monitor/internal/model"
)

// DefaultTimezone is used for locations without a configured zone
const DefaultTimezone = "America/Chicago"

var zoneCache sync.Map // zone name -> *time.Location

// LoadZone resolves an IANA zone name, falling back to DefaultTimezone for an empty name
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	if cached, ok := zoneCache.Load(name); ok {
		return cached.(*time.Location), nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	zoneCache.Store(name, loc)
	return loc, nil
}

// LocalWeekday returns the weekday of t in its own location, 0 = Monday ... 6 = Sunday
func LocalWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Schedule answers open/closed questions for a single location.
// It is immutable once built and safe for concurrent use.
type Schedule struct {
	locationID string
	zone       *time.Location
	rules      map[int]model.BusinessHoursRule
}

// NewSchedule builds the schedule of a location from its business-hours rules.
// When a weekday has several rules the first one wins.
func NewSchedule(loc model.Location, rules []model.BusinessHoursRule) (*Schedule, error) {
	zone, err := LoadZone(loc.Timezone)
	if err != nil {
		return nil, err
	}

	byDay := make(map[int]model.BusinessHoursRule, len(rules))
	for _, rule := range rules {
		if rule.DayOfWeek < 0 || rule.DayOfWeek > 6 {
			return nil, fmt.Errorf("location %s: invalid day of week %d", loc.ID, rule.DayOfWeek)
		}
		if _, exists := byDay[rule.DayOfWeek]; exists {
			continue
		}
		byDay[rule.DayOfWeek] = rule
	}

	return &Schedule{
		locationID: loc.ID,
		zone:       zone,
		rules:      byDay,
	}, nil
}

// LocationID returns the id of the location the schedule belongs to
func (s *Schedule) LocationID() string {
	return s.locationID
}

// Zone returns the resolved timezone
func (s *Schedule) Zone() *time.Location {
	return s.zone
}

// IsOpen reports whether the location is within business hours at the given instant.
// A weekday without a rule is open all day. The range check is inclusive on both
// ends, so an inverted rule (start after end) never matches.
func (s *Schedule) IsOpen(instant time.Time) bool {
	local := instant.In(s.zone)

	rule, ok := s.rules[LocalWeekday(local)]
	if !ok {
		return true
	}

	clock := model.ClockOf(local)
	return rule.Start <= clock && clock <= rule.End
}

// OpenDuration returns how much of [from, to) falls within business hours
func (s *Schedule) OpenDuration(from, to time.Time) time.Duration {
	if !to.After(from) {
		return 0
	}

	var total time.Duration
	y, m, d := from.In(s.zone).Date()
	for {
		dayStart := time.Date(y, m, d, 0, 0, 0, 0, s.zone)
		if !dayStart.Before(to) {
			break
		}
		nextDay := time.Date(y, m, d+1, 0, 0, 0, 0, s.zone)

		openFrom, openTo := dayStart, nextDay
		if rule, ok := s.rules[LocalWeekday(dayStart)]; ok {
			openFrom = rule.Start.On(y, m, d, s.zone)
			openTo = rule.End.On(y, m, d, s.zone)
		}
		total += overlap(openFrom, openTo, from, to)

		y, m, d = nextDay.Date()
	}

	return total
}

func overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}
