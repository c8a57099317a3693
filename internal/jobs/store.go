package jobs

import (
	"context"
	"sync"
)

// UpdateFunc mutates a job in place and reports whether it changed
type UpdateFunc func(job *Job) (bool, error)

// Store persists report jobs. Update must apply fn atomically so that
// concurrent transitions on the same job cannot interleave.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, id string, fn UpdateFunc) (*Job, error)
}

// MemoryStore keeps jobs in process memory
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) Create(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return ErrAlreadyExists
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn UpdateFunc) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}

	job := cloneJob(current)
	changed, err := fn(job)
	if err != nil {
		return nil, err
	}
	if changed {
		s.jobs[id] = cloneJob(job)
	}
	return job, nil
}

func cloneJob(j *Job) *Job {
	c := *j
	if j.FailedLocations != nil {
		c.FailedLocations = append([]string(nil), j.FailedLocations...)
	}
	return &c
}
