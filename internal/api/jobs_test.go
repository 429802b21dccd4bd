package api

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/khanhnv2901/webaudit/internal/domain/audit"
)

func okResult(url string, overall float64) audit.Result {
	return audit.Result{URL: url, SEOScore: overall, OverallScore: overall, Metrics: audit.Metrics{}}
}

func TestNewJobManager(t *testing.T) {
	jm := NewJobManager()
	if jm.maxJobs != DefaultMaxJobs {
		t.Errorf("expected maxJobs %d, got %d", DefaultMaxJobs, jm.maxJobs)
	}
	if jm.jobs == nil || jm.subscribers == nil {
		t.Error("expected maps to be initialized")
	}
}

func TestJobManager_CreateJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobTypeBatch, "https://example.com", "batch_1")

	if job.Type != JobTypeBatch || job.BatchID != "batch_1" || job.URL != "https://example.com" {
		t.Errorf("unexpected job fields: %+v", job)
	}
	if job.Status != JobPending {
		t.Errorf("expected pending, got %s", job.Status)
	}
	if !strings.HasPrefix(job.ID, "job_") {
		t.Errorf("unexpected ID %q", job.ID)
	}

	retrieved := jm.GetJob(job.ID)
	if retrieved == nil || retrieved.ID != job.ID {
		t.Fatal("expected to retrieve created job")
	}
	if retrieved == job {
		t.Error("GetJob should return a copy, not the same pointer")
	}
}

func TestJobLifecycle(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobTypeAudit, "https://example.com", "")

	running := jm.MarkRunning(job.ID)
	if running.Status != JobRunning || running.StartedAt == nil {
		t.Fatalf("expected running job with start time, got %+v", running)
	}

	done := jm.Finish(job.ID, okResult("https://example.com", 82.5))
	if done.Status != JobCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
	if done.CompletedAt == nil || done.Result == nil || done.OverallScore != 82.5 {
		t.Errorf("expected completion data, got %+v", done)
	}
}

func TestJobManager_FinishErrorResult(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobTypeAudit, "https://down.example", "")

	done := jm.Finish(job.ID, audit.NewErrorResult("https://down.example", time.Now(), "connection refused"))
	if done.Status != JobFailed {
		t.Fatalf("expected failed, got %s", done.Status)
	}
	if done.Error != "connection refused" {
		t.Errorf("unexpected error %q", done.Error)
	}
	if done.StartedAt == nil {
		t.Error("expected StartedAt backfilled on finish")
	}
}

func TestJobManager_UpdateMissing(t *testing.T) {
	jm := NewJobManager()
	if jm.UpdateJob("missing", func(j *Job) {}) != nil {
		t.Error("expected nil for unknown job")
	}
	if jm.MarkRunning("missing") != nil {
		t.Error("expected nil for unknown job")
	}
	if jm.DeleteJob("missing") {
		t.Error("expected delete of unknown job to fail")
	}
}

func TestJobManager_DeleteJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(JobTypeAudit, "https://example.com", "")
	if !jm.DeleteJob(job.ID) {
		t.Fatal("expected delete to succeed")
	}
	if jm.GetJob(job.ID) != nil {
		t.Error("expected job to be gone")
	}
}

func TestJobManager_ListJobs(t *testing.T) {
	jm := NewJobManager()
	if got := jm.ListJobs(10, ""); len(got) != 0 {
		t.Fatalf("expected 0 jobs, got %d", len(got))
	}

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	jm.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, jm.CreateJob(JobTypeAudit, "https://example.com", "").ID)
	}
	jm.Finish(ids[0], okResult("https://example.com", 90))

	all := jm.ListJobs(10, "")
	if len(all) != 5 {
		t.Fatalf("expected 5 jobs, got %d", len(all))
	}
	if all[0].ID != ids[4] {
		t.Errorf("expected newest job first, got %s", all[0].ID)
	}
	for _, j := range all {
		if j.Result != nil {
			t.Error("listing should not carry results")
		}
	}

	if got := jm.ListJobs(2, ""); len(got) != 2 {
		t.Errorf("expected limit 2, got %d", len(got))
	}

	completed := jm.ListJobs(10, JobCompleted)
	if len(completed) != 1 || completed[0].ID != ids[0] {
		t.Errorf("expected only the completed job, got %+v", completed)
	}
}

func TestJobManager_Stats(t *testing.T) {
	jm := NewJobManager()
	if st := jm.Stats(); st.TotalJobs != 0 || st.SuccessRate != 0 {
		t.Fatalf("expected empty stats, got %+v", st)
	}

	a := jm.CreateJob(JobTypeAudit, "https://a.example", "")
	b := jm.CreateJob(JobTypeAudit, "https://b.example", "")
	c := jm.CreateJob(JobTypeAudit, "https://c.example", "")
	jm.CreateJob(JobTypeAudit, "https://d.example", "")
	jm.Finish(a.ID, okResult(a.URL, 80))
	jm.Finish(b.ID, audit.NewErrorResult(b.URL, time.Now(), "timeout"))
	jm.MarkRunning(c.ID)

	st := jm.Stats()
	want := JobStats{TotalJobs: 4, PendingJobs: 1, RunningJobs: 1, CompletedJobs: 1, FailedJobs: 1, SuccessRate: 25}
	if st != want {
		t.Errorf("expected %+v, got %+v", want, st)
	}
}

func TestJobManager_Subscribe(t *testing.T) {
	jm := NewJobManager()
	updates, unsubscribe := jm.Subscribe()

	job := jm.CreateJob(JobTypeAudit, "https://example.com", "")
	jm.Finish(job.ID, okResult(job.URL, 70))

	for _, want := range []JobStatus{JobPending, JobCompleted} {
		select {
		case got := <-updates:
			if got.ID != job.ID || got.Status != want {
				t.Errorf("expected %s update, got %+v", want, got)
			}
			if got.Result != nil {
				t.Error("stream updates should not carry results")
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s update", want)
		}
	}

	unsubscribe()
	if _, ok := <-updates; ok {
		t.Error("expected channel closed after unsubscribe")
	}
	unsubscribe()
}

func TestJobManager_BroadcastDoesNotBlock(t *testing.T) {
	jm := NewJobManager()
	_, unsubscribe := jm.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			jm.CreateJob(JobTypeAudit, "https://example.com", "")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full subscriber")
	}
}

func TestJobManager_EvictsFinishedFirst(t *testing.T) {
	jm := NewJobManager()
	jm.SetMaxJobs(2)

	first := jm.CreateJob(JobTypeAudit, "https://a.example", "")
	second := jm.CreateJob(JobTypeAudit, "https://b.example", "")
	jm.Finish(second.ID, okResult(second.URL, 90))
	jm.CreateJob(JobTypeAudit, "https://c.example", "")

	if jm.GetJob(second.ID) != nil {
		t.Error("expected finished job to be evicted")
	}
	if jm.GetJob(first.ID) == nil {
		t.Error("pending job must not be evicted")
	}
}

func TestJobManager_SetMaxJobsIgnoresNonPositive(t *testing.T) {
	jm := NewJobManager()
	jm.SetMaxJobs(0)
	if jm.maxJobs != DefaultMaxJobs {
		t.Errorf("expected maxJobs unchanged, got %d", jm.maxJobs)
	}
}

func TestGenerateID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateID("batch")
		if !strings.HasPrefix(id, "batch_") || len(id) != len("batch_")+32 {
			t.Fatalf("unexpected ID %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate ID %q", id)
		}
		seen[id] = true
	}
}

func TestJobManager_ConcurrentAccess(t *testing.T) {
	jm := NewJobManager()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job := jm.CreateJob(JobTypeAudit, "https://example.com", "")
			jm.MarkRunning(job.ID)
			jm.Finish(job.ID, okResult(job.URL, 50))
			_ = jm.ListJobs(10, "")
			_ = jm.Stats()
		}()
	}
	wg.Wait()

	if st := jm.Stats(); st.CompletedJobs != 20 {
		t.Errorf("expected 20 completed jobs, got %d", st.CompletedJobs)
	}
}
