package model

import (
	"fmt"
	"strings"
	"time"
)

// Location is a monitored store
type Location struct {
	ID       string
	Timezone string // IANA zone name, empty means the default zone
}

// Status is the binary code of a poll result
type Status int

const (
	StatusInactive Status = 0
	StatusActive   Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseStatus maps the case-insensitive tokens used by the status extract
func ParseStatus(token string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "active":
		return StatusActive, nil
	case "inactive":
		return StatusInactive, nil
	default:
		return 0, fmt.Errorf("unknown status token %q", token)
	}
}

// Observation is a single point-in-time status reading
type Observation struct {
	LocationID string
	Timestamp  time.Time // UTC
	Status     Status
}

// BusinessHoursRule is the local opening range of a location for one weekday.
// DayOfWeek follows the extract convention: 0 = Monday ... 6 = Sunday.
type BusinessHoursRule struct {
	LocationID string
	DayOfWeek  int
	Start      TimeOfDay
	End        TimeOfDay
}
