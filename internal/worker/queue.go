package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/codefinder/internal/domain"
)

// ErrQueueFull is returned when the in-memory queue has no free slot.
var ErrQueueFull = errors.New("search queue is full")

// Queue hands search jobs from submission to the runner.
type Queue interface {
	Enqueue(ctx context.Context, job domain.SearchJob) error
	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (domain.SearchJob, error)
}

// MemoryQueue is an in-process buffered queue. Jobs are lost on restart.
type MemoryQueue struct {
	jobs chan domain.SearchJob
}

// NewMemoryQueue creates a queue holding up to size pending jobs.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 256
	}
	return &MemoryQueue{jobs: make(chan domain.SearchJob, size)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job domain.SearchJob) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (domain.SearchJob, error) {
	select {
	case <-ctx.Done():
		return domain.SearchJob{}, ctx.Err()
	case job := <-q.jobs:
		return job, nil
	}
}

// RedisQueue stores jobs as JSON in a Redis list (LPUSH in, BRPOP out).
type RedisQueue struct {
	client *redis.Client
	key    string
	poll   time.Duration
}

// NewRedisQueue creates a queue on the given list key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key, poll: 5 * time.Second}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job domain.SearchJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal search job: %w", err)
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (domain.SearchJob, error) {
	for {
		res, err := q.client.BRPop(ctx, q.poll, q.key).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return domain.SearchJob{}, ctx.Err()
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return domain.SearchJob{}, ctx.Err()
			}
			return domain.SearchJob{}, err
		}
		if len(res) != 2 {
			return domain.SearchJob{}, fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
		}

		var job domain.SearchJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.SearchJob{}, fmt.Errorf("decode search job: %w", err)
		}
		return job, nil
	}
}
