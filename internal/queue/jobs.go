package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/quizsplice/internal/types"
)

// Job is one run of the full pipeline for a submission
type Job struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submissionId"`
	InsertAtMs   *int64    `json:"insertAtMs,omitempty"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	OutputURL    string    `json:"outputUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewJob creates a queued job. A nil insertAtMs lets the pipeline choose the split point.
func NewJob(submissionID string, insertAtMs *int64) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:           uuid.New().String(),
		SubmissionID: submissionID,
		InsertAtMs:   insertAtMs,
		Status:       types.StatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Terminal reports whether the job has finished, successfully or not.
func (j Job) Terminal() bool {
	return j.Status == types.StatusDone || j.Status == types.StatusFailed
}
