package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of one asynchronous fetch job.
type JobStatus string

const (
	JobStatusStarted    JobStatus = "started"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job tracks one batch-fetch request from submission through completion.
// Results grow monotonically, one entry per processed ticker, and are never
// removed or overwritten. Jobs live in memory for the process lifetime.
type Job struct {
	ID             string                 `json:"job_id"`
	Status         JobStatus              `json:"status"`
	Tickers        []string               `json:"tickers"`
	Results        map[string]FetchResult `json:"results"`
	TotalCompanies int                    `json:"total_companies"`
	Processed      int                    `json:"processed"`
	Successful     int                    `json:"successful"`
	Failed         int                    `json:"failed"`
	CreatedAt      time.Time              `json:"created_at"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
}

// NewJob creates a job in the started state for the given ticker list.
func NewJob(tickers []string) *Job {
	return &Job{
		ID:             uuid.New().String(),
		Status:         JobStatusStarted,
		Tickers:        append([]string(nil), tickers...),
		Results:        make(map[string]FetchResult, len(tickers)),
		TotalCompanies: len(tickers),
		CreatedAt:      time.Now().UTC(),
	}
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (j *Job) Clone() *Job {
	c := *j
	c.Tickers = append([]string(nil), j.Tickers...)
	c.Results = make(map[string]FetchResult, len(j.Results))
	for k, v := range j.Results {
		c.Results[k] = v
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Terminal reports whether the job has finished.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
