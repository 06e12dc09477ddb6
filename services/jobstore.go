package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stylistapi/models"
)

var (
	ErrJobNotFound  = errors.New("generation job not found")
	ErrJobFinalized = errors.New("generation job already in a terminal state")
)

// JobRetention is how long a finished job stays readable before the store
// drops it. Override with JOB_RETENTION (a Go duration string).
const JobRetention = 6 * time.Hour

func jobRetention() time.Duration {
	if raw := GetEnv("JOB_RETENTION", ""); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
		fmt.Printf("[JobStore] invalid JOB_RETENTION %q, using default\n", raw)
	}
	return JobRetention
}

// JobStoreProvider persists generation jobs keyed by id. Only the worker
// owning a job writes to it after enqueue; mutations against a terminal job
// return ErrJobFinalized and leave the record untouched.
type JobStoreProvider interface {
	Create(ctx context.Context, job *models.GenerationJob) error
	Get(ctx context.Context, id string) (*models.GenerationJob, error)
	MarkRunning(ctx context.Context, id string) error
	SetProgress(ctx context.Context, id string, progress int) error
	Succeed(ctx context.Context, id string, outfits []models.ResolvedOutfit) error
	Fail(ctx context.Context, id string, jobErr models.JobError) error
	MarkTimedOut(ctx context.Context, id string, jobErr models.JobError) error
}

// RedisJobStore keeps jobs as JSON values under a namespaced key with a
// retention TTL.
type RedisJobStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisJobStore(client *redis.Client) *RedisJobStore {
	return &RedisJobStore{client: client, retention: jobRetention()}
}

func jobKey(id string) string {
	return "outfitjob:" + id
}

func (s *RedisJobStore) Create(ctx context.Context, job *models.GenerationJob) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	return s.write(ctx, job)
}

func (s *RedisJobStore) Get(ctx context.Context, id string) (*models.GenerationJob, error) {
	raw, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading job %s: %w", id, err)
	}
	var job models.GenerationJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decoding job %s: %w", id, err)
	}
	return &job, nil
}

func (s *RedisJobStore) write(ctx context.Context, job *models.GenerationJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job %s: %w", job.ID, err)
	}
	if err := s.client.Set(ctx, jobKey(job.ID), raw, s.retention).Err(); err != nil {
		return fmt.Errorf("writing job %s: %w", job.ID, err)
	}
	return nil
}

// mutate applies fn to the stored job and writes it back, rejecting updates
// once the job is terminal.
func (s *RedisJobStore) mutate(ctx context.Context, id string, fn func(*models.GenerationJob)) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return ErrJobFinalized
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
	return s.write(ctx, job)
}

func (s *RedisJobStore) MarkRunning(ctx context.Context, id string) error {
	return s.mutate(ctx, id, func(job *models.GenerationJob) {
		job.Status = models.JobRunning
	})
}

func (s *RedisJobStore) SetProgress(ctx context.Context, id string, progress int) error {
	return s.mutate(ctx, id, func(job *models.GenerationJob) {
		// Progress never moves backwards.
		if progress > job.Progress {
			job.Progress = progress
		}
	})
}

func (s *RedisJobStore) Succeed(ctx context.Context, id string, outfits []models.ResolvedOutfit) error {
	return s.mutate(ctx, id, func(job *models.GenerationJob) {
		job.Status = models.JobSucceeded
		job.Progress = 100
		job.Outfits = outfits
	})
}

func (s *RedisJobStore) Fail(ctx context.Context, id string, jobErr models.JobError) error {
	return s.mutate(ctx, id, func(job *models.GenerationJob) {
		job.Status = models.JobFailed
		job.Error = &jobErr
	})
}

func (s *RedisJobStore) MarkTimedOut(ctx context.Context, id string, jobErr models.JobError) error {
	return s.mutate(ctx, id, func(job *models.GenerationJob) {
		job.Status = models.JobTimedOut
		job.Error = &jobErr
	})
}
