package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/repurposely/api/internal/model"
	"github.com/repurposely/api/internal/store"
)

// DistributionService owns the delivery attempt log: it creates one attempt
// per requested target, hands each to the deliver queue, and records the
// per-attempt outcome. Attempts are append-only history.
type DistributionService struct {
	jobs     store.JobStore
	attempts store.AttemptStore
	enqueuer TaskEnqueuer
}

func NewDistributionService(jobs store.JobStore, attempts store.AttemptStore, enqueuer TaskEnqueuer) *DistributionService {
	return &DistributionService{jobs: jobs, attempts: attempts, enqueuer: enqueuer}
}

// Distribute creates one queued attempt per requested target kind and
// enqueues an independent delivery task for each. Duplicate kinds in one
// request each get their own attempt. Only completed jobs qualify.
func (s *DistributionService) Distribute(ctx context.Context, jobID string, targets []model.TargetKind) (*model.DistributeResponse, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusCompleted {
		return nil, fmt.Errorf("job %s is %s, distribution requires completed: %w", jobID, job.Status, ErrInvalidState)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("at least one target is required: %w", ErrValidation)
	}
	for _, kind := range targets {
		if !model.IsValidTarget(kind) {
			return nil, fmt.Errorf("unknown target %q: %w", kind, ErrValidation)
		}
	}

	attemptIDs := make([]string, 0, len(targets))
	for _, kind := range targets {
		attempt := &model.DeliveryAttempt{
			ID:          uuid.New().String(),
			JobID:       jobID,
			TargetKind:  kind,
			Status:      model.AttemptStatusQueued,
			RequestedAt: time.Now(),
		}
		if err := s.attempts.Append(ctx, attempt); err != nil {
			return nil, fmt.Errorf("failed to save attempt: %w", err)
		}

		task, err := NewDeliveryTask(attempt.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create task: %w", err)
		}
		if _, err := s.enqueuer.Enqueue(task,
			asynq.Queue("deliver"),
			asynq.MaxRetry(0),
			asynq.Retention(24*time.Hour),
		); err != nil {
			// The attempt is already in the log; resolve it as failed so it
			// is not reported queued forever.
			s.markFailed(ctx, attempt.ID, "failed to enqueue delivery: "+err.Error())
		}
		attemptIDs = append(attemptIDs, attempt.ID)
	}

	return &model.DistributeResponse{
		JobID:      jobID,
		AttemptIDs: attemptIDs,
		Status:     "scheduled",
	}, nil
}

// ListAttempts returns the job's attempts ordered by requestedAt ascending,
// optionally filtered by target kind. Unknown job ids are rejected.
func (s *DistributionService) ListAttempts(ctx context.Context, jobID string, kinds []model.TargetKind) (*model.AttemptListResponse, error) {
	if _, err := s.jobs.Get(ctx, jobID); err != nil {
		return nil, err
	}
	attempts, err := s.attempts.ListByJob(ctx, jobID, kinds)
	if err != nil {
		return nil, err
	}
	out := make([]model.DeliveryAttempt, 0, len(attempts))
	resolved := true
	for _, a := range attempts {
		if !a.Status.Terminal() {
			resolved = false
		}
		out = append(out, *a)
	}
	return &model.AttemptListResponse{JobID: jobID, Attempts: out, Resolved: resolved}, nil
}

// AwaitResolution polls until every attempt for the job is terminal or the
// bounded wait elapses. Unresolved attempts stay queued/posting in the
// returned snapshot; that is not an error.
func (s *DistributionService) AwaitResolution(ctx context.Context, jobID string, kinds []model.TargetKind, wait time.Duration) (*model.AttemptListResponse, error) {
	deadline := time.Now().Add(wait)
	for {
		list, err := s.ListAttempts(ctx, jobID, kinds)
		if err != nil {
			return nil, err
		}
		if list.Resolved || time.Now().After(deadline) {
			return list, nil
		}
		select {
		case <-ctx.Done():
			return list, nil
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// GetAttempt returns one attempt record (worker use).
func (s *DistributionService) GetAttempt(ctx context.Context, attemptID string) (*model.DeliveryAttempt, error) {
	return s.attempts.Get(ctx, attemptID)
}

// MarkPosting transitions queued→posting exactly once per attempt.
func (s *DistributionService) MarkPosting(ctx context.Context, attemptID string) error {
	_, err := s.attempts.Update(ctx, attemptID, func(a *model.DeliveryAttempt) error {
		if a.Status != model.AttemptStatusQueued {
			return fmt.Errorf("attempt %s is %s: %w", attemptID, a.Status, ErrAlreadyDispatched)
		}
		a.Status = model.AttemptStatusPosting
		return nil
	})
	return err
}

// MarkPosted resolves the attempt successfully, recording the receipt
// atomically with the status.
func (s *DistributionService) MarkPosted(ctx context.Context, attemptID, postID, postURL string) error {
	_, err := s.attempts.Update(ctx, attemptID, func(a *model.DeliveryAttempt) error {
		if a.Status.Terminal() {
			return fmt.Errorf("attempt %s: %w", attemptID, ErrTerminal)
		}
		now := time.Now()
		a.Status = model.AttemptStatusPosted
		a.PostID = postID
		a.PostURL = postURL
		a.ResolvedAt = &now
		return nil
	})
	return err
}

// MarkFailed resolves the attempt as failed. The failure stays on this
// attempt only; the job and sibling attempts are untouched.
func (s *DistributionService) MarkFailed(ctx context.Context, attemptID, errMsg string) error {
	return s.markFailed(ctx, attemptID, errMsg)
}

func (s *DistributionService) markFailed(ctx context.Context, attemptID, errMsg string) error {
	_, err := s.attempts.Update(ctx, attemptID, func(a *model.DeliveryAttempt) error {
		if a.Status.Terminal() {
			return fmt.Errorf("attempt %s: %w", attemptID, ErrTerminal)
		}
		now := time.Now()
		a.Status = model.AttemptStatusFailed
		a.ErrorMessage = errMsg
		a.ResolvedAt = &now
		return nil
	})
	return err
}

// Overview aggregates distribution outcomes per platform.
func (s *DistributionService) Overview(ctx context.Context) (*model.AnalyticsOverviewResponse, error) {
	stats, jobs, err := s.attempts.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &model.AnalyticsOverviewResponse{TotalJobs: jobs, PlatformStats: stats}, nil
}

// RecentPosts returns the latest attempts for one platform, newest first.
func (s *DistributionService) RecentPosts(ctx context.Context, kind model.TargetKind, limit int) ([]*model.DeliveryAttempt, error) {
	if !model.IsValidTarget(kind) {
		return nil, fmt.Errorf("unknown target %q: %w", kind, ErrValidation)
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return s.attempts.ListRecent(ctx, kind, limit)
}

// DeliveryTaskPayload is the asynq payload for one delivery attempt.
type DeliveryTaskPayload struct {
	AttemptID string `json:"attemptId"`
}

// NewDeliveryTask builds the asynq task driving one attempt.
func NewDeliveryTask(attemptID string) (*asynq.Task, error) {
	data, err := json.Marshal(DeliveryTaskPayload{AttemptID: attemptID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDeliver, data), nil
}
