package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/repurposely/api/internal/model"
	"github.com/repurposely/api/internal/store"
)

const (
	TaskTypeGenerate = "generate:process"
	TaskTypeDeliver  = "deliver:process"
)

// TaskEnqueuer is the slice of asynq.Client the services need; tests
// substitute an in-process dispatcher.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ContentService owns the ContentJob lifecycle: intake, status reads, and
// the worker-side transitions. It is the sole writer of job state after
// creation.
type ContentService struct {
	jobs     store.JobStore
	enqueuer TaskEnqueuer
}

func NewContentService(jobs store.JobStore, enqueuer TaskEnqueuer) *ContentService {
	return &ContentService{jobs: jobs, enqueuer: enqueuer}
}

// Submit validates the intake, records a pending job, and queues generation.
// It never blocks on generation.
func (s *ContentService) Submit(ctx context.Context, req *model.SubmitRequest) (*model.SubmitResponse, error) {
	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", ErrValidation)
	}
	if content == "" {
		return nil, fmt.Errorf("content is required: %w", ErrValidation)
	}

	format := req.Format
	if format == "" {
		format = model.FormatText
	}

	jobID := uuid.New().String()
	now := time.Now()

	job := &model.ContentJob{
		ID:         jobID,
		Title:      title,
		RawContent: content,
		Format:     format,
		Status:     model.JobStatusPending,
		Progress:   0,
		CreatedAt:  now,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := NewGenerateTask(jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	// TaskID pins one generation task per job id at the queue; the
	// pending→processing CAS in MarkProcessing covers the store side.
	_, err = s.enqueuer.Enqueue(task,
		asynq.Queue("generate"),
		asynq.TaskID("generate:"+jobID),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.SubmitResponse{
		JobID:     jobID,
		Status:    model.JobStatusPending,
		CreatedAt: now,
	}, nil
}

// GetStatus returns a consistent point-in-time snapshot of one job.
func (s *ContentService) GetStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	snap := job.Snapshot()
	return &snap, nil
}

// GetJob returns the raw job record (worker use).
func (s *ContentService) GetJob(ctx context.Context, jobID string) (*model.ContentJob, error) {
	return s.jobs.Get(ctx, jobID)
}

// List returns jobs newest first.
func (s *ContentService) List(ctx context.Context, page, perPage int) (*model.JobListResponse, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	jobs, total, err := s.jobs.List(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	out := make([]model.JobStatusResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.Snapshot())
	}
	return &model.JobListResponse{
		Jobs:    out,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}, nil
}

// AwaitTerminal polls the job until it reaches a terminal status or the
// bounded wait elapses. The job keeps processing in the background on a
// wait timeout; the caller just gets the current snapshot back.
func (s *ContentService) AwaitTerminal(ctx context.Context, jobID string, wait time.Duration) (*model.JobStatusResponse, error) {
	deadline := time.Now().Add(wait)
	for {
		snap, err := s.GetStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if snap.Status.Terminal() || time.Now().After(deadline) {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, nil
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// MarkProcessing transitions pending→processing exactly once. A duplicate
// dispatch gets ErrAlreadyDispatched and must treat it as a no-op.
func (s *ContentService) MarkProcessing(ctx context.Context, jobID string) error {
	_, err := s.jobs.Update(ctx, jobID, func(job *model.ContentJob) error {
		if job.Status != model.JobStatusPending {
			return fmt.Errorf("job %s is %s: %w", jobID, job.Status, ErrAlreadyDispatched)
		}
		now := time.Now()
		job.Status = model.JobStatusProcessing
		job.StartedAt = &now
		return nil
	})
	return err
}

// UpdateProgress records an intermediate pipeline checkpoint. Progress is
// monotonic: a stale lower value is dropped, not written.
func (s *ContentService) UpdateProgress(ctx context.Context, jobID string, progress float64, step string) error {
	_, err := s.jobs.Update(ctx, jobID, func(job *model.ContentJob) error {
		if job.Status.Terminal() {
			return fmt.Errorf("job %s: %w", jobID, ErrTerminal)
		}
		if progress > 0.99 {
			progress = 0.99 // 1.0 is reserved for the terminal write
		}
		if progress > job.Progress {
			job.Progress = progress
		}
		job.CurrentStep = step
		return nil
	})
	return err
}

// Complete assigns the bundle, progress 1.0, and completed status in one
// atomic write so no observer sees a completed job without its bundle.
func (s *ContentService) Complete(ctx context.Context, jobID string, bundle *model.ArtifactBundle) error {
	_, err := s.jobs.Update(ctx, jobID, func(job *model.ContentJob) error {
		if job.Status.Terminal() {
			return fmt.Errorf("job %s: %w", jobID, ErrTerminal)
		}
		now := time.Now()
		job.Status = model.JobStatusCompleted
		job.Progress = 1.0
		job.Bundle = bundle
		job.CurrentStep = ""
		job.CompletedAt = &now
		return nil
	})
	return err
}

// Fail terminates the job with a cause classification. Progress is left
// where it was; observers never see it roll back.
func (s *ContentService) Fail(ctx context.Context, jobID string, cause model.FailureCause, detail string) error {
	_, err := s.jobs.Update(ctx, jobID, func(job *model.ContentJob) error {
		if job.Status.Terminal() {
			return fmt.Errorf("job %s: %w", jobID, ErrTerminal)
		}
		now := time.Now()
		job.Status = model.JobStatusFailed
		job.ErrorDetail = &detail
		job.Cause = cause
		job.CurrentStep = ""
		job.CompletedAt = &now
		return nil
	})
	return err
}

// GenerateTaskPayload is the asynq payload for one generation run.
type GenerateTaskPayload struct {
	JobID string `json:"jobId"`
}

// NewGenerateTask builds the asynq task for one job's generation.
func NewGenerateTask(jobID string) (*asynq.Task, error) {
	data, err := json.Marshal(GenerateTaskPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeGenerate, data), nil
}
