// Package store holds the job table and the delivery-attempt log.
//
// Both stores guarantee per-entity atomic updates: Update performs a
// serialized read-modify-write for one entity without taking a global lock,
// so jobs and attempts never block each other.
package store

import (
	"context"
	"errors"

	"github.com/repurposely/api/internal/model"
)

// ErrNotFound is returned for references to unknown job or attempt ids.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an optimistic update loses too many races.
var ErrConflict = errors.New("update conflict")

// JobStore persists ContentJob records.
type JobStore interface {
	Create(ctx context.Context, job *model.ContentJob) error
	Get(ctx context.Context, id string) (*model.ContentJob, error)

	// Update applies fn to the stored job atomically. fn receives a private
	// copy; an error from fn aborts the update and is returned unchanged.
	Update(ctx context.Context, id string, fn func(*model.ContentJob) error) (*model.ContentJob, error)

	// List returns jobs newest first, plus the total count.
	List(ctx context.Context, page, perPage int) ([]*model.ContentJob, int, error)
}

// AttemptStore persists the append-only delivery attempt log.
type AttemptStore interface {
	Append(ctx context.Context, attempt *model.DeliveryAttempt) error
	Get(ctx context.Context, id string) (*model.DeliveryAttempt, error)

	// Update applies fn to one attempt atomically, like JobStore.Update.
	Update(ctx context.Context, id string, fn func(*model.DeliveryAttempt) error) (*model.DeliveryAttempt, error)

	// ListByJob returns a job's attempts ordered by requestedAt ascending,
	// optionally filtered to the given target kinds.
	ListByJob(ctx context.Context, jobID string, kinds []model.TargetKind) ([]*model.DeliveryAttempt, error)

	// ListRecent returns the most recent attempts for one target, newest first.
	ListRecent(ctx context.Context, kind model.TargetKind, limit int) ([]*model.DeliveryAttempt, error)

	// Stats aggregates attempt outcomes per target kind and counts distinct jobs.
	Stats(ctx context.Context) (map[model.TargetKind]model.TargetStats, int, error)
}

func matchKind(kind model.TargetKind, kinds []model.TargetKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func cloneJob(j *model.ContentJob) *model.ContentJob {
	c := *j
	if j.ErrorDetail != nil {
		v := *j.ErrorDetail
		c.ErrorDetail = &v
	}
	if j.StartedAt != nil {
		v := *j.StartedAt
		c.StartedAt = &v
	}
	if j.CompletedAt != nil {
		v := *j.CompletedAt
		c.CompletedAt = &v
	}
	// Bundle is immutable once assigned, sharing the pointer is safe.
	return &c
}

func cloneAttempt(a *model.DeliveryAttempt) *model.DeliveryAttempt {
	c := *a
	if a.ResolvedAt != nil {
		v := *a.ResolvedAt
		c.ResolvedAt = &v
	}
	return &c
}

func statsFrom(attempts []*model.DeliveryAttempt) (map[model.TargetKind]model.TargetStats, int) {
	stats := make(map[model.TargetKind]model.TargetStats)
	jobs := make(map[string]struct{})
	for _, a := range attempts {
		jobs[a.JobID] = struct{}{}
		s := stats[a.TargetKind]
		s.Total++
		switch a.Status {
		case model.AttemptStatusPosted:
			s.Successful++
		case model.AttemptStatusFailed:
			s.Failed++
		}
		if s.Total > 0 {
			s.SuccessRate = float64(s.Successful) / float64(s.Total) * 100
		}
		stats[a.TargetKind] = s
	}
	return stats, len(jobs)
}
