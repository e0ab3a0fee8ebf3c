package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/repurposely/api/internal/model"
)

// MemoryJobStore is an in-process JobStore. Each job record carries its own
// mutex so concurrent updates to different jobs never contend.
type MemoryJobStore struct {
	mu    sync.RWMutex
	jobs  map[string]*jobEntry
	order []string // creation order, oldest first
}

type jobEntry struct {
	mu  sync.Mutex
	job *model.ContentJob
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*jobEntry)}
}

func (s *MemoryJobStore) Create(ctx context.Context, job *model.ContentJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = &jobEntry{job: cloneJob(job)}
	s.order = append(s.order, job.ID)
	return nil
}

func (s *MemoryJobStore) Get(ctx context.Context, id string) (*model.ContentJob, error) {
	s.mu.RLock()
	entry, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return cloneJob(entry.job), nil
}

func (s *MemoryJobStore) Update(ctx context.Context, id string, fn func(*model.ContentJob) error) (*model.ContentJob, error) {
	s.mu.RLock()
	entry, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	updated := cloneJob(entry.job)
	if err := fn(updated); err != nil {
		return nil, err
	}
	entry.job = updated
	return cloneJob(updated), nil
}

func (s *MemoryJobStore) List(ctx context.Context, page, perPage int) ([]*model.ContentJob, int, error) {
	s.mu.RLock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	s.mu.RUnlock()

	// Newest first.
	total := len(ids)
	start := (page - 1) * perPage
	if start < 0 {
		start = 0
	}
	var out []*model.ContentJob
	for i := total - 1 - start; i >= 0 && len(out) < perPage; i-- {
		job, err := s.Get(ctx, ids[i])
		if err != nil {
			continue
		}
		out = append(out, job)
	}
	return out, total, nil
}

// MemoryAttemptStore is an in-process append-only attempt log.
type MemoryAttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]*attemptEntry
	byJob    map[string][]string // append order per job
	log      []string            // global append order
}

type attemptEntry struct {
	mu      sync.Mutex
	attempt *model.DeliveryAttempt
}

func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{
		attempts: make(map[string]*attemptEntry),
		byJob:    make(map[string][]string),
	}
}

func (s *MemoryAttemptStore) Append(ctx context.Context, attempt *model.DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attempt.ID]; ok {
		return fmt.Errorf("attempt %s already exists", attempt.ID)
	}
	s.attempts[attempt.ID] = &attemptEntry{attempt: cloneAttempt(attempt)}
	s.byJob[attempt.JobID] = append(s.byJob[attempt.JobID], attempt.ID)
	s.log = append(s.log, attempt.ID)
	return nil
}

func (s *MemoryAttemptStore) Get(ctx context.Context, id string) (*model.DeliveryAttempt, error) {
	s.mu.RLock()
	entry, ok := s.attempts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("attempt %s: %w", id, ErrNotFound)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return cloneAttempt(entry.attempt), nil
}

func (s *MemoryAttemptStore) Update(ctx context.Context, id string, fn func(*model.DeliveryAttempt) error) (*model.DeliveryAttempt, error) {
	s.mu.RLock()
	entry, ok := s.attempts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("attempt %s: %w", id, ErrNotFound)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	updated := cloneAttempt(entry.attempt)
	if err := fn(updated); err != nil {
		return nil, err
	}
	entry.attempt = updated
	return cloneAttempt(updated), nil
}

func (s *MemoryAttemptStore) ListByJob(ctx context.Context, jobID string, kinds []model.TargetKind) ([]*model.DeliveryAttempt, error) {
	s.mu.RLock()
	ids := make([]string, len(s.byJob[jobID]))
	copy(ids, s.byJob[jobID])
	s.mu.RUnlock()

	out := make([]*model.DeliveryAttempt, 0, len(ids))
	for _, id := range ids {
		attempt, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		if matchKind(attempt.TargetKind, kinds) {
			out = append(out, attempt)
		}
	}
	return out, nil
}

func (s *MemoryAttemptStore) ListRecent(ctx context.Context, kind model.TargetKind, limit int) ([]*model.DeliveryAttempt, error) {
	s.mu.RLock()
	ids := make([]string, len(s.log))
	copy(ids, s.log)
	s.mu.RUnlock()

	var out []*model.DeliveryAttempt
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		attempt, err := s.Get(ctx, ids[i])
		if err != nil {
			continue
		}
		if attempt.TargetKind == kind {
			out = append(out, attempt)
		}
	}
	return out, nil
}

func (s *MemoryAttemptStore) Stats(ctx context.Context) (map[model.TargetKind]model.TargetStats, int, error) {
	s.mu.RLock()
	ids := make([]string, len(s.log))
	copy(ids, s.log)
	s.mu.RUnlock()

	all := make([]*model.DeliveryAttempt, 0, len(ids))
	for _, id := range ids {
		if attempt, err := s.Get(ctx, id); err == nil {
			all = append(all, attempt)
		}
	}
	stats, jobs := statsFrom(all)
	return stats, jobs, nil
}
