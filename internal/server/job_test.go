package server

import (
	"testing"
)

func equilateralConfig() JobConfig {
	return JobConfig{
		N: 3,
		Dist: []float64{
			0, 1, 1,
			1, 0, 1,
			1, 1, 0,
		},
	}
}

func TestJobManagerCreateGet(t *testing.T) {
	jm := NewJobManager()

	job, _ := jm.CreateJob(equilateralConfig())
	if job.ID == "" {
		t.Fatal("Expected non-empty job ID")
	}
	if job.State != StatePending {
		t.Errorf("Expected pending state, got %s", job.State)
	}

	got, exists := jm.GetJob(job.ID)
	if !exists {
		t.Fatal("Expected job to exist")
	}
	if got.ID != job.ID || got.Config.N != 3 {
		t.Errorf("Unexpected job: %+v", got)
	}

	if _, exists := jm.GetJob("nonexistent"); exists {
		t.Error("Expected nonexistent job to not be found")
	}
}

func TestJobManagerGetReturnsSnapshot(t *testing.T) {
	jm := NewJobManager()
	job, _ := jm.CreateJob(equilateralConfig())

	snap, _ := jm.GetJob(job.ID)
	snap.State = StateFailed

	got, _ := jm.GetJob(job.ID)
	if got.State != StatePending {
		t.Errorf("Mutating a snapshot leaked into the manager: %s", got.State)
	}
}

func TestJobManagerUpdate(t *testing.T) {
	jm := NewJobManager()
	job, _ := jm.CreateJob(equilateralConfig())

	err := jm.UpdateJob(job.ID, func(j *Job) {
		j.State = StateCompleted
		j.D = 1.0
	})
	if err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}

	got, _ := jm.GetJob(job.ID)
	if got.State != StateCompleted || got.D != 1.0 {
		t.Errorf("Update not applied: %+v", got)
	}

	if err := jm.UpdateJob("nonexistent", func(j *Job) {}); err == nil {
		t.Error("Expected error updating nonexistent job")
	}
}

func TestJobManagerList(t *testing.T) {
	jm := NewJobManager()

	if jobs := jm.ListJobs(); len(jobs) != 0 {
		t.Errorf("Expected empty listing, got %d", len(jobs))
	}

	jm.CreateJob(equilateralConfig())
	jm.CreateJob(equilateralConfig())

	if jobs := jm.ListJobs(); len(jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jobs))
	}
}

func TestJobManagerDeleteFinished(t *testing.T) {
	jm := NewJobManager()
	job, _ := jm.CreateJob(equilateralConfig())

	if err := jm.UpdateJob(job.ID, func(j *Job) { j.State = StateCompleted }); err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}
	if err := jm.DeleteJob(job.ID); err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}
	if _, exists := jm.GetJob(job.ID); exists {
		t.Error("Expected finished job to be gone after delete")
	}
	if err := jm.DeleteJob(job.ID); err == nil {
		t.Error("Expected error deleting nonexistent job")
	}
}

func TestJobManagerDeletePendingCancels(t *testing.T) {
	jm := NewJobManager()
	job, ctx := jm.CreateJob(equilateralConfig())

	if err := jm.DeleteJob(job.ID); err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}

	select {
	case <-ctx.Done():
	default:
		t.Error("Deleting a pending job must cancel its context")
	}

	got, exists := jm.GetJob(job.ID)
	if !exists {
		t.Fatal("Cancelled job must stay queryable")
	}
	if got.State != StateCancelled {
		t.Errorf("Expected cancelled state, got %s", got.State)
	}
	if got.EndTime == nil {
		t.Error("Expected end time on cancelled job")
	}

	// A second delete forgets the now-finished job.
	if err := jm.DeleteJob(job.ID); err != nil {
		t.Fatalf("Second DeleteJob failed: %v", err)
	}
	if _, exists := jm.GetJob(job.ID); exists {
		t.Error("Expected cancelled job to be gone after second delete")
	}
}

func TestJobManagerDeleteRunningRefused(t *testing.T) {
	jm := NewJobManager()
	job, _ := jm.CreateJob(equilateralConfig())

	if err := jm.UpdateJob(job.ID, func(j *Job) { j.State = StateRunning }); err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}
	if err := jm.DeleteJob(job.ID); err == nil {
		t.Error("Expected error deleting a running job")
	}
	if _, exists := jm.GetJob(job.ID); !exists {
		t.Error("Running job must survive a refused delete")
	}
}

func TestValidateConfig(t *testing.T) {
	if err := validateConfig(equilateralConfig()); err != nil {
		t.Errorf("Valid config rejected: %v", err)
	}

	bad := equilateralConfig()
	bad.N = 0
	if err := validateConfig(bad); err == nil {
		t.Error("Expected error for n=0")
	}

	bad = equilateralConfig()
	bad.Dist = bad.Dist[:5]
	if err := validateConfig(bad); err == nil {
		t.Error("Expected error for short distance matrix")
	}

	bad = equilateralConfig()
	bad.Backend = "simplex"
	if err := validateConfig(bad); err == nil {
		t.Error("Expected error for unknown backend")
	}

	ok := equilateralConfig()
	ok.Backend = "mayfly"
	if err := validateConfig(ok); err != nil {
		t.Errorf("Mayfly backend rejected: %v", err)
	}
}
