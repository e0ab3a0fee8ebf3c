package model

import "time"

// ContentJob tracks one submitted content item through the generation
// pipeline. It is created in pending, owned by the scheduler until it
// reaches a terminal status, and read-only afterwards.
type ContentJob struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	RawContent string        `json:"rawContent"`
	Format     ContentFormat `json:"format"`
	Status     JobStatus     `json:"status"`

	// Progress is a fraction in [0.0, 1.0], non-decreasing while processing.
	Progress float64 `json:"progress"`

	// Bundle is set iff Status == completed.
	Bundle *ArtifactBundle `json:"bundle,omitempty"`

	// ErrorDetail and Cause are set iff Status == failed.
	ErrorDetail *string      `json:"errorDetail,omitempty"`
	Cause       FailureCause `json:"cause,omitempty"`

	CurrentStep string     `json:"currentStep,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// SubmitRequest is the intake payload for new content.
type SubmitRequest struct {
	Title   string        `json:"title" validate:"required,max=255"`
	Content string        `json:"content" validate:"required"`
	Format  ContentFormat `json:"format" validate:"omitempty,oneof=text markdown html"`
}

// SubmitResponse is returned immediately; generation runs in the background.
type SubmitResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobStatusResponse is a point-in-time snapshot of one job.
type JobStatusResponse struct {
	JobID       string          `json:"jobId"`
	Title       string          `json:"title"`
	Status      JobStatus       `json:"status"`
	Progress    float64         `json:"progress"`
	CurrentStep string          `json:"currentStep,omitempty"`
	Bundle      *ArtifactBundle `json:"bundle,omitempty"`
	ErrorDetail *string         `json:"errorDetail,omitempty"`
	Cause       FailureCause    `json:"cause,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// JobListResponse is a paginated job listing, newest first.
type JobListResponse struct {
	Jobs    []JobStatusResponse `json:"jobs"`
	Total   int                 `json:"total"`
	Page    int                 `json:"page"`
	PerPage int                 `json:"perPage"`
}

// Snapshot converts a job into its API representation.
func (j *ContentJob) Snapshot() JobStatusResponse {
	return JobStatusResponse{
		JobID:       j.ID,
		Title:       j.Title,
		Status:      j.Status,
		Progress:    j.Progress,
		CurrentStep: j.CurrentStep,
		Bundle:      j.Bundle,
		ErrorDetail: j.ErrorDetail,
		Cause:       j.Cause,
		CreatedAt:   j.CreatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
