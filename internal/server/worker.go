package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/distortfit/internal/metric"
	"github.com/cwbudde/distortfit/internal/sdp"
	"github.com/cwbudde/distortfit/internal/solver"
	"github.com/cwbudde/distortfit/internal/store"
)

// runJob executes a distortion solve in the background. Completed jobs
// are persisted through resultStore when it is non-nil.
func runJob(ctx context.Context, jm *JobManager, resultStore store.Store, jobID string) error {
	defer jm.releaseCancel(jobID)

	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if err := validateConfig(job.Config); err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	// The solve itself is one blocking call with no cancellation
	// points, so honor cancellation before committing to it.
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return nil
	default:
	}

	// The pending->running transition is guarded: a DeleteJob racing
	// in ahead of the select above has already cancelled the job.
	started := false
	err := jm.UpdateJob(jobID, func(j *Job) {
		if j.State == StatePending {
			j.State = StateRunning
			started = true
		}
	})
	if err != nil {
		return err
	}
	if !started {
		markJobCancelled(jm, jobID)
		return nil
	}

	slog.Info("Starting job", "job_id", jobID, "n", job.Config.N, "backend", backendName(job.Config))

	n := job.Config.N
	dist := metric.FromMatrix(mat.NewDense(n, n, job.Config.Dist))
	backend := buildSolver(job.Config)

	start := time.Now()
	result, err := sdp.Optimize(n, dist, backend, false)
	elapsed := time.Since(start)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Status = result.Status
		j.EndTime = &endTime
		if result.Status == sdp.StatusOptimal {
			j.D = result.D
			j.G = flattenSym(result.G)
			j.Delta = flattenDense(result.Delta)
		}
	})
	if err != nil {
		return err
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"status", result.Status,
		"d", result.D,
	)

	if resultStore != nil {
		doc := &store.ResultDoc{
			ID:             jobID,
			N:              n,
			Status:         result.Status,
			Backend:        backendName(job.Config),
			ElapsedSeconds: elapsed.Seconds(),
			Timestamp:      time.Now(),
		}
		if result.Status == sdp.StatusOptimal {
			doc.D = result.D
			doc.G = flattenSym(result.G)
			doc.Delta = flattenDense(result.Delta)
		}
		if err := resultStore.SaveResult(jobID, doc); err != nil {
			slog.Error("Failed to persist result", "job_id", jobID, "error", err)
		}
	}

	return nil
}

func validateConfig(cfg JobConfig) error {
	if cfg.N < 1 {
		return fmt.Errorf("n must be at least 1, got %d", cfg.N)
	}
	if len(cfg.Dist) != cfg.N*cfg.N {
		return fmt.Errorf("dist has %d entries, want %d for n=%d", len(cfg.Dist), cfg.N*cfg.N, cfg.N)
	}
	switch cfg.Backend {
	case "", "projection", "mayfly":
		return nil
	}
	return fmt.Errorf("unknown backend: %s", cfg.Backend)
}

func backendName(cfg JobConfig) string {
	if cfg.Backend == "" {
		return "projection"
	}
	return cfg.Backend
}

func buildSolver(cfg JobConfig) sdp.Solver {
	if cfg.Backend == "mayfly" {
		iters, pop := cfg.Iters, cfg.Pop
		if iters <= 0 {
			iters = 200
		}
		if pop <= 0 {
			pop = 30
		}
		return solver.NewMayfly(iters, pop, cfg.Seed)
	}
	return solver.NewProjection(cfg.Iters, cfg.Tol)
}

func flattenSym(m *mat.SymDense) []float64 {
	if m == nil {
		return nil
	}
	r := m.SymmetricDim()
	out := make([]float64, 0, r*r)
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

func flattenDense(m *mat.Dense) []float64 {
	if m == nil {
		return nil
	}
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled. DeleteJob may already
// have done so; the transition is applied once.
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		if j.State == StateCancelled {
			return
		}
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}
