package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/distortfit/internal/sdp"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// JobConfig describes one solve request.
type JobConfig struct {
	// N is the number of vertices.
	N int `json:"n"`
	// Dist is the row-major n*n distance matrix (distances, not squared).
	Dist []float64 `json:"dist"`
	// Backend selects the solver: projection (default) or mayfly.
	Backend string `json:"backend,omitempty"`
	// Iters caps solver iterations (projection sweeps / mayfly generations).
	Iters int `json:"iters,omitempty"`
	// Pop is the mayfly population size.
	Pop int `json:"pop,omitempty"`
	// Seed is the mayfly random seed.
	Seed int64 `json:"seed,omitempty"`
	// Tol is the projection feasibility tolerance.
	Tol float64 `json:"tol,omitempty"`
}

// Job represents one distortion solve and its outcome.
type Job struct {
	ID        string     `json:"id"`
	State     JobState   `json:"state"`
	Config    JobConfig  `json:"config"`
	Status    sdp.Status `json:"status,omitempty"`
	D         float64    `json:"d,omitempty"`
	G         []float64  `json:"g,omitempty"`
	Delta     []float64  `json:"delta,omitempty"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// JobManager manages the lifecycle of jobs. Each job carries a cancel
// function so a pending job can be cancelled before its worker starts.
type JobManager struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	cancels map[string]context.CancelFunc
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:    make(map[string]*Job),
		cancels: make(map[string]context.CancelFunc),
	}
}

// CreateJob creates a new job with the given configuration. The
// returned context governs the job's worker; cancelling the job
// through DeleteJob cancels it.
func (jm *JobManager) CreateJob(config JobConfig) (*Job, context.Context) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}
	ctx, cancel := context.WithCancel(context.Background())

	jm.jobs[job.ID] = job
	jm.cancels[job.ID] = cancel
	cp := *job
	return &cp, ctx
}

// GetJob retrieves a snapshot of a job by ID. Callers get a copy so
// reads never race with a running worker's updates.
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	cp := *job
	return &cp, true
}

// ListJobs returns snapshots of all jobs
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		cp := *job
		jobs = append(jobs, &cp)
	}
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// DeleteJob cancels a pending job or removes a finished one. A
// cancelled job stays queryable in the cancelled state; deleting it
// again forgets it. Running jobs are refused, the solve has no
// cancellation points once it starts.
func (jm *JobManager) DeleteJob(id string) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	switch job.State {
	case StateRunning:
		return fmt.Errorf("job is still running: %s", id)
	case StatePending:
		if cancel, ok := jm.cancels[id]; ok {
			cancel()
			delete(jm.cancels, id)
		}
		endTime := time.Now()
		job.State = StateCancelled
		job.EndTime = &endTime
		return nil
	}

	delete(jm.jobs, id)
	return nil
}

// releaseCancel drops a job's cancel handle once the job can no
// longer be cancelled.
func (jm *JobManager) releaseCancel(id string) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	if cancel, ok := jm.cancels[id]; ok {
		cancel()
		delete(jm.cancels, id)
	}
}
