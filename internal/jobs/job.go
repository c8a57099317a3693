package jobs

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a report job
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"

	// StatusNotFound is only returned by lookups, never stored
	StatusNotFound Status = "NOT_FOUND"
)

var (
	ErrNotFound            = errors.New("report job not found")
	ErrConflictingArtifact = errors.New("report job already completed with a different artifact")
	ErrInvalidTransition   = errors.New("invalid report job transition")
	ErrAlreadyExists       = errors.New("report job already exists")
)

// Job is a report request tracked from PENDING to a terminal state
type Job struct {
	ID              string    `json:"id"`
	Status          Status    `json:"status"`
	ArtifactURL     string    `json:"artifact_url,omitempty"`
	FailedLocations []string  `json:"failed_locations,omitempty"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Terminal reports whether the job can no longer change
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// complete applies PENDING -> COMPLETED. It reports false when the job is
// already completed with the same artifact and nothing has to be written.
func complete(j *Job, artifact string, failed []string, now time.Time) (bool, error) {
	switch j.Status {
	case StatusPending:
		j.Status = StatusCompleted
		j.ArtifactURL = artifact
		j.FailedLocations = failed
		j.UpdatedAt = now
		return true, nil
	case StatusCompleted:
		if j.ArtifactURL == artifact {
			return false, nil
		}
		return false, ErrConflictingArtifact
	default:
		return false, ErrInvalidTransition
	}
}

// fail applies PENDING -> FAILED; failing a failed job is a no-op
func fail(j *Job, reason string, now time.Time) (bool, error) {
	switch j.Status {
	case StatusPending:
		j.Status = StatusFailed
		j.Error = reason
		j.UpdatedAt = now
		return true, nil
	case StatusFailed:
		return false, nil
	default:
		return false, ErrInvalidTransition
	}
}
