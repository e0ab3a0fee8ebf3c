package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/repurposely/api/internal/model"
)

const txRetries = 5

// RedisJobStore persists jobs as JSON records with an optimistic WATCH
// transaction per update, so writes to one job serialize against each other
// without blocking any other job.
type RedisJobStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisJobStore(redisClient *redis.Client, ttl time.Duration) *RedisJobStore {
	return &RedisJobStore{redis: redisClient, ttl: ttl}
}

func jobKey(id string) string { return "content:job:" + id }

const jobIndexKey = "content:jobs"

func (s *RedisJobStore) Create(ctx context.Context, job *model.ContentJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	ok, err := s.redis.SetNX(ctx, jobKey(job.ID), data, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	return s.redis.LPush(ctx, jobIndexKey, job.ID).Err()
}

func (s *RedisJobStore) Get(ctx context.Context, id string) (*model.ContentJob, error) {
	data, err := s.redis.Get(ctx, jobKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var job model.ContentJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

func (s *RedisJobStore) Update(ctx context.Context, id string, fn func(*model.ContentJob) error) (*model.ContentJob, error) {
	key := jobKey(id)
	var updated *model.ContentJob

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		var job model.ContentJob
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("failed to unmarshal job: %w", err)
		}
		if err := fn(&job); err != nil {
			return err
		}
		out, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		if err == nil {
			updated = &job
		}
		return err
	}

	for i := 0; i < txRetries; i++ {
		err := s.redis.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("job %s: %w", id, ErrConflict)
}

func (s *RedisJobStore) List(ctx context.Context, page, perPage int) ([]*model.ContentJob, int, error) {
	total, err := s.redis.LLen(ctx, jobIndexKey).Result()
	if err != nil {
		return nil, 0, err
	}
	start := int64((page - 1) * perPage)
	stop := start + int64(perPage) - 1
	ids, err := s.redis.LRange(ctx, jobIndexKey, start, stop).Result()
	if err != nil {
		return nil, 0, err
	}
	jobs := make([]*model.ContentJob, 0, len(ids))
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if err != nil {
			continue // expired record, index entry is stale
		}
		jobs = append(jobs, job)
	}
	return jobs, int(total), nil
}

// RedisAttemptStore keeps attempt records plus a per-job zset ordered by
// requestedAt, a per-kind recency list, and running outcome counters.
type RedisAttemptStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisAttemptStore(redisClient *redis.Client, ttl time.Duration) *RedisAttemptStore {
	return &RedisAttemptStore{redis: redisClient, ttl: ttl}
}

func attemptKey(id string) string             { return "content:attempt:" + id }
func jobAttemptsKey(jobID string) string      { return "content:job:" + jobID + ":attempts" }
func kindLogKey(kind model.TargetKind) string { return "content:attempts:" + string(kind) }
func statsKey(kind model.TargetKind) string   { return "content:stats:" + string(kind) }

const attemptJobsKey = "content:stats:jobs"

func (s *RedisAttemptStore) Append(ctx context.Context, attempt *model.DeliveryAttempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt: %w", err)
	}
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, attemptKey(attempt.ID), data, s.ttl)
		pipe.ZAdd(ctx, jobAttemptsKey(attempt.JobID), redis.Z{
			Score:  float64(attempt.RequestedAt.UnixNano()),
			Member: attempt.ID,
		})
		pipe.LPush(ctx, kindLogKey(attempt.TargetKind), attempt.ID)
		pipe.HIncrBy(ctx, statsKey(attempt.TargetKind), "total", 1)
		pipe.SAdd(ctx, attemptJobsKey, attempt.JobID)
		return nil
	})
	return err
}

func (s *RedisAttemptStore) Get(ctx context.Context, id string) (*model.DeliveryAttempt, error) {
	data, err := s.redis.Get(ctx, attemptKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("attempt %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var attempt model.DeliveryAttempt
	if err := json.Unmarshal(data, &attempt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attempt: %w", err)
	}
	return &attempt, nil
}

func (s *RedisAttemptStore) Update(ctx context.Context, id string, fn func(*model.DeliveryAttempt) error) (*model.DeliveryAttempt, error) {
	key := attemptKey(id)
	var updated *model.DeliveryAttempt

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return fmt.Errorf("attempt %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		var attempt model.DeliveryAttempt
		if err := json.Unmarshal(data, &attempt); err != nil {
			return fmt.Errorf("failed to unmarshal attempt: %w", err)
		}
		before := attempt.Status
		if err := fn(&attempt); err != nil {
			return err
		}
		out, err := json.Marshal(&attempt)
		if err != nil {
			return fmt.Errorf("failed to marshal attempt: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			if before != attempt.Status {
				switch attempt.Status {
				case model.AttemptStatusPosted:
					pipe.HIncrBy(ctx, statsKey(attempt.TargetKind), "posted", 1)
				case model.AttemptStatusFailed:
					pipe.HIncrBy(ctx, statsKey(attempt.TargetKind), "failed", 1)
				}
			}
			return nil
		})
		if err == nil {
			updated = &attempt
		}
		return err
	}

	for i := 0; i < txRetries; i++ {
		err := s.redis.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("attempt %s: %w", id, ErrConflict)
}

func (s *RedisAttemptStore) ListByJob(ctx context.Context, jobID string, kinds []model.TargetKind) ([]*model.DeliveryAttempt, error) {
	ids, err := s.redis.ZRange(ctx, jobAttemptsKey(jobID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
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

func (s *RedisAttemptStore) ListRecent(ctx context.Context, kind model.TargetKind, limit int) ([]*model.DeliveryAttempt, error) {
	ids, err := s.redis.LRange(ctx, kindLogKey(kind), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*model.DeliveryAttempt, 0, len(ids))
	for _, id := range ids {
		attempt, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, attempt)
	}
	return out, nil
}

func (s *RedisAttemptStore) Stats(ctx context.Context) (map[model.TargetKind]model.TargetStats, int, error) {
	stats := make(map[model.TargetKind]model.TargetStats)
	for _, kind := range model.ValidTargets {
		fields, err := s.redis.HGetAll(ctx, statsKey(kind)).Result()
		if err != nil {
			return nil, 0, err
		}
		if len(fields) == 0 {
			continue
		}
		var s2 model.TargetStats
		fmt.Sscan(fields["total"], &s2.Total)
		fmt.Sscan(fields["posted"], &s2.Successful)
		fmt.Sscan(fields["failed"], &s2.Failed)
		if s2.Total > 0 {
			s2.SuccessRate = float64(s2.Successful) / float64(s2.Total) * 100
		}
		stats[kind] = s2
	}
	jobs, err := s.redis.SCard(ctx, attemptJobsKey).Result()
	if err != nil {
		return nil, 0, err
	}
	return stats, int(jobs), nil
}
