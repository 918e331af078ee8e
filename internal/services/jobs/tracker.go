// Package jobs tracks asynchronous fetch jobs in memory.
package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/tenka/internal/models"
)

// Tracker is an in-memory job store. Jobs live for the lifetime of the
// process; restarting the service forgets them.
type Tracker struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
}

// NewTracker creates an empty job tracker.
func NewTracker() *Tracker {
	return &Tracker{
		jobs: make(map[string]*models.Job),
	}
}

// Create registers a new job for the given tickers and returns a snapshot.
func (t *Tracker) Create(tickers []string) models.Job {
	job := models.NewJob(tickers)

	t.mu.Lock()
	t.jobs[job.ID] = job
	t.mu.Unlock()

	return *job.Clone()
}

// Get returns a snapshot of the job, or an error if the ID is unknown.
// Snapshots are deep copies; callers can read them without holding any lock.
func (t *Tracker) Get(id string) (models.Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		return models.Job{}, fmt.Errorf("job %s not found", id)
	}
	return *job.Clone(), nil
}

// MarkRunning transitions a job from started to in_progress.
func (t *Tracker) MarkRunning(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if job, ok := t.jobs[id]; ok && job.Status == models.JobStatusStarted {
		job.Status = models.JobStatusInProgress
	}
}

// AppendResult records one finished ticker on the job. Results accumulate
// monotonically; a result is never removed or overwritten, so a repeated
// append for the same ticker is ignored and the first outcome stands.
func (t *Tracker) AppendResult(id string, result models.FetchResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		return
	}

	if _, exists := job.Results[result.Ticker]; exists {
		return
	}

	job.Results[result.Ticker] = result
	job.Processed = len(job.Results)
	if result.Succeeded() {
		job.Successful++
	} else {
		job.Failed++
	}
}

// Complete moves the job to its terminal status. The job fails only when
// every ticker failed; any success at all marks the run completed.
func (t *Tracker) Complete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		return
	}

	if job.Successful > 0 || len(job.Tickers) == 0 {
		job.Status = models.JobStatusCompleted
	} else {
		job.Status = models.JobStatusFailed
	}
	now := time.Now().UTC()
	job.CompletedAt = &now
}
