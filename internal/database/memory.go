package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/smukkama/store-monitor/internal/model"
)

// MemorySource keeps the dataset in process. It serves the same reads and
// writes as DB and backs tests and dry-run loads.
type MemorySource struct {
	mu           sync.RWMutex
	locations    []model.Location
	index        map[string]int
	rules        map[string][]model.BusinessHoursRule
	observations map[string][]model.Observation
}

// NewMemorySource creates an empty in-memory dataset
func NewMemorySource() *MemorySource {
	return &MemorySource{
		index:        make(map[string]int),
		rules:        make(map[string][]model.BusinessHoursRule),
		observations: make(map[string][]model.Observation),
	}
}

// AddLocations appends stores, replacing the timezone of known ids
func (m *MemorySource) AddLocations(locations ...model.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, loc := range locations {
		m.addLocation(loc, true)
	}
}

func (m *MemorySource) addLocation(loc model.Location, overwrite bool) bool {
	if i, ok := m.index[loc.ID]; ok {
		if overwrite {
			m.locations[i].Timezone = loc.Timezone
		}
		return false
	}
	m.index[loc.ID] = len(m.locations)
	m.locations = append(m.locations, loc)
	return true
}

// AddBusinessHours appends rules
func (m *MemorySource) AddBusinessHours(rules ...model.BusinessHoursRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rules {
		m.rules[r.LocationID] = append(m.rules[r.LocationID], r)
	}
}

// AddObservations appends observations and keeps each store's log sorted by time
func (m *MemorySource) AddObservations(observations ...model.Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	touched := make(map[string]struct{})
	for _, o := range observations {
		o.Timestamp = o.Timestamp.UTC()
		m.observations[o.LocationID] = append(m.observations[o.LocationID], o)
		touched[o.LocationID] = struct{}{}
	}
	for id := range touched {
		log := m.observations[id]
		sort.SliceStable(log, func(i, j int) bool { return log[i].Timestamp.Before(log[j].Timestamp) })
	}
}

// ListLocations returns stores in insertion order; limit <= 0 returns all of them
func (m *MemorySource) ListLocations(_ context.Context, limit int) ([]model.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.locations)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.Location, n)
	copy(out, m.locations[:n])
	return out, nil
}

// BusinessHours returns the rules of a store
func (m *MemorySource) BusinessHours(_ context.Context, locationID string) ([]model.BusinessHoursRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rules := m.rules[locationID]
	out := make([]model.BusinessHoursRule, len(rules))
	copy(out, rules)
	return out, nil
}

// Observations returns the status log of a store within [from, to], oldest first
func (m *MemorySource) Observations(_ context.Context, locationID string, from, to time.Time) ([]model.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Observation
	for _, o := range m.observations[locationID] {
		if o.Timestamp.Before(from) || o.Timestamp.After(to) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// LatestObservationTime returns the newest status timestamp across all stores
func (m *MemorySource) LatestObservationTime(_ context.Context) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		latest time.Time
		found  bool
	)
	for _, log := range m.observations {
		if len(log) == 0 {
			continue
		}
		if last := log[len(log)-1].Timestamp; !found || last.After(latest) {
			latest, found = last, true
		}
	}
	return latest, found, nil
}

// UpsertLocations mirrors DB.UpsertLocations
func (m *MemorySource) UpsertLocations(_ context.Context, locations []model.Location) error {
	m.AddLocations(locations...)
	return nil
}

// InsertBusinessHours mirrors DB.InsertBusinessHours
func (m *MemorySource) InsertBusinessHours(_ context.Context, rules []model.BusinessHoursRule) error {
	m.AddBusinessHours(rules...)
	return nil
}

// InsertObservations mirrors DB.InsertObservations
func (m *MemorySource) InsertObservations(_ context.Context, observations []model.Observation) error {
	m.AddObservations(observations...)
	return nil
}

// BackfillLocations mirrors DB.BackfillLocations
func (m *MemorySource) BackfillLocations(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{})
	for id := range m.observations {
		seen[id] = struct{}{}
	}
	for id := range m.rules {
		seen[id] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var added int64
	for _, id := range ids {
		if m.addLocation(model.Location{ID: id}, false) {
			added++
		}
	}
	return added, nil
}

// Stats returns row counts for stores, rules and observations
func (m *MemorySource) Stats() (stores, rules, observations int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.rules {
		rules += len(r)
	}
	for _, o := range m.observations {
		observations += len(o)
	}
	return len(m.locations), rules, observations
}
