package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/repurposely/api/internal/client"
	"github.com/repurposely/api/internal/service"
)

// DeliveryWorker drives a single delivery attempt to its terminal state.
// Attempts run independently on the deliver queue: one adapter's failure or
// latency never touches a sibling attempt.
type DeliveryWorker struct {
	dist     *service.DistributionService
	content  *service.ContentService
	adapters *client.AdapterRegistry
	timeout  time.Duration
}

func NewDeliveryWorker(dist *service.DistributionService, content *service.ContentService, adapters *client.AdapterRegistry, timeout time.Duration) *DeliveryWorker {
	return &DeliveryWorker{
		dist:     dist,
		content:  content,
		adapters: adapters,
		timeout:  timeout,
	}
}

// ProcessTask handles one delivery task. Adapter failures resolve the
// attempt as failed and are not surfaced as task errors: the attempt log is
// the record, and failed deliveries are never retried automatically.
func (w *DeliveryWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.DeliveryTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	attempt, err := w.dist.GetAttempt(ctx, payload.AttemptID)
	if err != nil {
		return err
	}

	if err := w.dist.MarkPosting(ctx, attempt.ID); err != nil {
		if errors.Is(err, service.ErrAlreadyDispatched) {
			log.Printf("Attempt %s already driven, skipping", attempt.ID)
			return nil
		}
		return err
	}
	log.Printf("Delivering job %s to %s (attempt %s)", attempt.JobID, attempt.TargetKind, attempt.ID)

	job, err := w.content.GetJob(ctx, attempt.JobID)
	if err != nil || job.Bundle == nil {
		w.markFailed(ctx, attempt.ID, "artifact bundle unavailable")
		return nil
	}

	adapter := w.adapters.For(attempt.TargetKind)
	if adapter == nil {
		w.markFailed(ctx, attempt.ID, fmt.Sprintf("unsupported target kind: %s", attempt.TargetKind))
		return nil
	}

	deliverCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	receipt, err := adapter.Deliver(deliverCtx, job.Bundle)
	if err != nil {
		log.Printf("Delivery to %s failed for attempt %s: %v", attempt.TargetKind, attempt.ID, err)
		w.markFailed(ctx, attempt.ID, err.Error())
		return nil
	}

	if err := w.dist.MarkPosted(ctx, attempt.ID, receipt.PostID, receipt.PostURL); err != nil {
		log.Printf("Failed to mark attempt %s as posted: %v", attempt.ID, err)
		return err
	}
	log.Printf("Delivered job %s to %s: %s", attempt.JobID, attempt.TargetKind, receipt.PostURL)
	return nil
}

func (w *DeliveryWorker) markFailed(ctx context.Context, attemptID, errMsg string) {
	if err := w.dist.MarkFailed(ctx, attemptID, errMsg); err != nil {
		log.Printf("Failed to mark attempt %s as failed: %v", attemptID, err)
	}
}
