package uptime

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/smukkama/store-monitor/internal/model"
)

// ErrUnsorted is returned when observations are not in ascending timestamp order
var ErrUnsorted = errors.New("observations are not sorted by timestamp")

// Schedule is the business-hours view the interpolator needs
type Schedule interface {
	IsOpen(instant time.Time) bool
	OpenDuration(from, to time.Time) time.Duration
}

// Policy selects how a segment is attributed against business hours
type Policy int

const (
	// PolicySegmentStart counts a whole segment as open or closed based on its start instant
	PolicySegmentStart Policy = iota
	// PolicyClipToHours counts only the part of a segment that falls within business hours
	PolicyClipToHours
)

// ParsePolicy maps a configuration value to a Policy
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToLower(value) {
	case "", "segment-start", "start":
		return PolicySegmentStart, nil
	case "clip", "clip-to-hours":
		return PolicyClipToHours, nil
	default:
		return 0, fmt.Errorf("unknown attribution policy %q", value)
	}
}

func (p Policy) String() string {
	if p == PolicyClipToHours {
		return "clip"
	}
	return "segment-start"
}

// Result holds the minute totals of one window
type Result struct {
	UptimeMinutes   float64
	DowntimeMinutes float64
}

// Interpolator turns point observations into active/inactive minutes.
// Each observation's status holds until the next observation; the first
// observation's status is also assumed backwards to the window start.
type Interpolator struct {
	Policy Policy
}

// Estimate computes uptime and downtime over [start, end] for one location.
// Observations must be sorted ascending by timestamp; those outside the window are ignored.
func (in Interpolator) Estimate(sched Schedule, start, end time.Time, observations []model.Observation) (Result, error) {
	if end.Before(start) {
		return Result{}, fmt.Errorf("window end %s is before start %s", end, start)
	}
	for i := 1; i < len(observations); i++ {
		if observations[i].Timestamp.Before(observations[i-1].Timestamp) {
			return Result{}, ErrUnsorted
		}
	}

	window := inWindow(observations, start, end)

	// Nothing observed: the whole span counts as downtime, business hours are not consulted.
	if len(window) == 0 {
		return Result{DowntimeMinutes: Round2(minutes(end.Sub(start)))}, nil
	}

	var res Result
	prevTs := start
	prevStatus := window[0].Status
	for _, obs := range window {
		in.attribute(&res, sched, prevTs, obs.Timestamp, prevStatus)
		prevTs = obs.Timestamp
		prevStatus = obs.Status
	}
	in.attribute(&res, sched, prevTs, end, prevStatus)

	res.UptimeMinutes = Round2(res.UptimeMinutes)
	res.DowntimeMinutes = Round2(res.DowntimeMinutes)
	return res, nil
}

func (in Interpolator) attribute(res *Result, sched Schedule, from, to time.Time, status model.Status) {
	var open time.Duration
	switch in.Policy {
	case PolicyClipToHours:
		open = sched.OpenDuration(from, to)
	default:
		if !sched.IsOpen(from) {
			return
		}
		open = to.Sub(from)
	}

	if status == model.StatusActive {
		res.UptimeMinutes += minutes(open)
	} else {
		res.DowntimeMinutes += minutes(open)
	}
}

// inWindow returns the sub-slice of sorted observations with timestamps in [start, end]
func inWindow(observations []model.Observation, start, end time.Time) []model.Observation {
	lo := sort.Search(len(observations), func(i int) bool {
		return !observations[i].Timestamp.Before(start)
	})
	hi := sort.Search(len(observations), func(i int) bool {
		return observations[i].Timestamp.After(end)
	})
	if lo >= hi {
		return nil
	}
	return observations[lo:hi]
}

func minutes(d time.Duration) float64 {
	return d.Seconds() / 60
}

// Round2 rounds to two decimal places, the precision used in reports
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
