package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/khanhnv2901/webaudit/internal/domain/audit"
)

// JobStatus is the lifecycle state of an audit job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Finished reports whether the job has a result.
func (s JobStatus) Finished() bool {
	return s == JobCompleted || s == JobFailed
}

// Job types.
const (
	JobTypeAudit = "audit"
	JobTypeBatch = "batch"
)

// DefaultMaxJobs is how many jobs are kept in memory.
const DefaultMaxJobs = 1000

// Job tracks one audit requested through the API.
type Job struct {
	ID           string        `json:"job_id"`
	Type         string        `json:"type"`
	BatchID      string        `json:"batch_id,omitempty"`
	URL          string        `json:"url"`
	Status       JobStatus     `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	OverallScore float64       `json:"overall_score,omitempty"`
	Result       *audit.Result `json:"result,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// summary drops the result payload for listings and streams.
func (j Job) summary() Job {
	j.Result = nil
	return j
}

// JobStats summarizes the job store.
type JobStats struct {
	TotalJobs     int     `json:"total_jobs"`
	PendingJobs   int     `json:"pending_jobs"`
	RunningJobs   int     `json:"running_jobs"`
	CompletedJobs int     `json:"completed_jobs"`
	FailedJobs    int     `json:"failed_jobs"`
	SuccessRate   float64 `json:"success_rate"`
}

// JobManager is the in-memory job store. It keeps at most maxJobs jobs and
// evicts the oldest finished ones first.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	subscribers map[chan Job]struct{}
	maxJobs     int
	now         func() time.Time
}

func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		subscribers: make(map[chan Job]struct{}),
		maxJobs:     DefaultMaxJobs,
		now:         time.Now,
	}
}

// SetMaxJobs configures the maximum number of jobs to retain in memory.
func (m *JobManager) SetMaxJobs(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > 0 {
		m.maxJobs = max
	}
}

// CreateJob registers a pending job for url.
func (m *JobManager) CreateJob(jobType, url, batchID string) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := &Job{
		ID:        generateID("job"),
		Type:      jobType,
		BatchID:   batchID,
		URL:       url,
		Status:    JobPending,
		CreatedAt: m.now(),
	}
	m.jobs[job.ID] = job
	m.evictLocked()
	m.broadcast(*job)
	copy := *job
	return &copy
}

// MarkRunning moves a job to running.
func (m *JobManager) MarkRunning(id string) *Job {
	return m.UpdateJob(id, func(j *Job) {
		now := m.now()
		j.Status = JobRunning
		j.StartedAt = &now
	})
}

// Finish stores the result. A result that degraded to the error state
// marks the job failed.
func (m *JobManager) Finish(id string, res audit.Result) *Job {
	return m.UpdateJob(id, func(j *Job) {
		now := m.now()
		if j.StartedAt == nil {
			j.StartedAt = &now
		}
		j.CompletedAt = &now
		j.Result = &res
		j.OverallScore = res.OverallScore
		j.Status = JobCompleted
		if res.Failed() {
			j.Status = JobFailed
			j.Error = res.ErrorMessage()
		}
	})
}

func (m *JobManager) UpdateJob(id string, update func(*Job)) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	update(job)
	m.broadcast(*job)
	copy := *job
	return &copy
}

func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job, ok := m.jobs[id]; ok {
		copy := *job
		return &copy
	}
	return nil
}

// DeleteJob removes a job and reports whether it existed.
func (m *JobManager) DeleteJob(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return false
	}
	delete(m.jobs, id)
	return true
}

// ListJobs returns job summaries newest first, optionally filtered by status.
func (m *JobManager) ListJobs(limit int, status JobStatus) []Job {
	m.mu.RLock()
	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if status != "" && job.Status != status {
			continue
		}
		jobs = append(jobs, job.summary())
	}
	m.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs
}

// Stats counts jobs per status.
func (m *JobManager) Stats() JobStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var st JobStats
	for _, job := range m.jobs {
		st.TotalJobs++
		switch job.Status {
		case JobPending:
			st.PendingJobs++
		case JobRunning:
			st.RunningJobs++
		case JobCompleted:
			st.CompletedJobs++
		case JobFailed:
			st.FailedJobs++
		}
	}
	if st.TotalJobs > 0 {
		st.SuccessRate = float64(st.CompletedJobs) / float64(st.TotalJobs) * 100
	}
	return st
}

func (m *JobManager) Subscribe() (chan Job, func()) {
	ch := make(chan Job, 16)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
}

// broadcast never blocks: slow subscribers miss updates.
func (m *JobManager) broadcast(job Job) {
	job = job.summary()
	for ch := range m.subscribers {
		select {
		case ch <- job:
		default:
		}
	}
}

// evictLocked drops the oldest finished jobs while over the limit. Jobs that
// are still pending or running are never evicted.
func (m *JobManager) evictLocked() {
	excess := len(m.jobs) - m.maxJobs
	if excess <= 0 {
		return
	}

	finished := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if job.Status.Finished() {
			finished = append(finished, job)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finishedAt(finished[i]).Before(finishedAt(finished[j]))
	})

	for i := 0; i < excess && i < len(finished); i++ {
		delete(m.jobs, finished[i].ID)
	}
}

func finishedAt(j *Job) time.Time {
	if j.CompletedAt != nil {
		return *j.CompletedAt
	}
	return j.CreatedAt
}

func generateID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}
