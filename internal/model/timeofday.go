package model

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock offset from local midnight
type TimeOfDay time.Duration

// NewTimeOfDay builds a TimeOfDay from clock components
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second)
}

// ClockOf returns the wall-clock time of t in its own location.
// It is built from the clock fields, so DST transitions do not shift it.
func ClockOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return NewTimeOfDay(h, m, s) + TimeOfDay(t.Nanosecond())
}

// ParseTimeOfDay accepts HH:MM:SS or HH:MM
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return ClockOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q (expected HH:MM:SS)", value)
}

// Split returns the hour, minute, second and nanosecond components
func (t TimeOfDay) Split() (hour, minute, second, nsec int) {
	d := time.Duration(t)
	hour = int(d / time.Hour)
	d -= time.Duration(hour) * time.Hour
	minute = int(d / time.Minute)
	d -= time.Duration(minute) * time.Minute
	second = int(d / time.Second)
	d -= time.Duration(second) * time.Second
	return hour, minute, second, int(d)
}

// On returns the instant at this time of day on the given local date
func (t TimeOfDay) On(year int, month time.Month, day int, loc *time.Location) time.Time {
	h, m, s, ns := t.Split()
	return time.Date(year, month, day, h, m, s, ns, loc)
}

func (t TimeOfDay) String() string {
	h, m, s, _ := t.Split()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
