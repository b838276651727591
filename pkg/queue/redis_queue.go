package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"school-admin-be/internal/pkg/logger"
)

const (
	keyWaiting = "dispatch:waiting"
	keyActive  = "dispatch:active"
	keyDelayed = "dispatch:delayed"
	keyDone    = "dispatch:done"
	keyJob     = "dispatch:job:"

	// doneCap bounds the history zset; job volume is low so the window is
	// generous.
	doneCap      = 1000
	promoteBatch = 100
)

type Options struct {
	RedisURL           string
	MaxAttempts        int
	BackoffBase        time.Duration
	CompletedRetention time.Duration
	EnqueueTimeout     time.Duration
	EnqueueRetries     int
	BlockTimeout       time.Duration
	// VisibilityTimeout is how long a job may sit on the active list before
	// the reclaim pass treats its worker as dead and requeues it.
	VisibilityTimeout time.Duration
}

func (o *Options) fillDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 5 * time.Second
	}
	if o.CompletedRetention <= 0 {
		o.CompletedRetention = 24 * time.Hour
	}
	if o.EnqueueTimeout <= 0 {
		o.EnqueueTimeout = 500 * time.Millisecond
	}
	if o.EnqueueRetries <= 0 {
		o.EnqueueRetries = 3
	}
	if o.BlockTimeout <= 0 {
		o.BlockTimeout = 5 * time.Second
	}
	if o.VisibilityTimeout <= 0 {
		o.VisibilityTimeout = time.Minute
	}
}

// RedisQueue is the client for the dispatch queue. Both the producer (enqueue
// inside the request) and the worker pool (dequeue/complete/fail) go through
// it; it is the single shared mutable resource between the two.
type RedisQueue struct {
	rdb  *redis.Client
	opts Options
	log  logger.ILogger
}

// NewRedisQueue builds the client without requiring the backend to be up:
// an unreachable Redis is a degraded mode, not a startup failure.
func NewRedisQueue(opts Options, log logger.ILogger) *RedisQueue {
	opts.fillDefaults()

	opt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		log.Warn("DispatchQueue", "Failed to parse Redis URL, using it as a plain address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: opts.RedisURL}
	}
	opt.DialTimeout = opts.EnqueueTimeout
	opt.MaxRetries = -1 // retry policy is ours, not go-redis's

	return &RedisQueue{
		rdb:  redis.NewClient(opt),
		opts: opts,
		log:  log,
	}
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return classify("ping", q.rdb.Ping(ctx).Err())
}

func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}

// Enqueue creates a waiting job from the payload. Connecting to the backend is
// retried a small, bounded number of times with sub-second backoff; after that
// it gives up and returns a ConnectivityError for the caller to downgrade.
// It never blocks the request waiting for infrastructure recovery.
func (q *RedisQueue) Enqueue(ctx context.Context, payload JobPayload) (*Job, error) {
	job := &Job{
		Id:          uuid.NewString(),
		Payload:     payload,
		State:       StateWaiting,
		MaxAttempts: q.opts.MaxAttempts,
		EnqueuedAt:  time.Now().UTC(),
	}

	var lastErr error
	for attempt := 0; attempt < q.opts.EnqueueRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, q.opts.EnqueueTimeout)
		err := q.pushWaiting(attemptCtx, job)
		cancel()

		if err == nil {
			return job, nil
		}
		if !isConnectivity(err) {
			return nil, fmt.Errorf("enqueue job: %w", err)
		}
		lastErr = err
	}

	return nil, classify("enqueue", lastErr)
}

func (q *RedisQueue) pushWaiting(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyJob+job.Id, data, 0)
		pipe.LPush(ctx, keyWaiting, job.Id)
		return nil
	})
	return err
}

// Dequeue blocks up to BlockTimeout for a waiting job and moves it to the
// active list. Returns (nil, nil) when nothing became available, so worker
// loops can just spin.
func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	id, err := q.rdb.BLMove(ctx, keyWaiting, keyActive, "RIGHT", "LEFT", q.opts.BlockTimeout).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, classify("dequeue", err)
	}

	job, err := q.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil || job.terminal() {
		// Record purged or already finished; drop the stale queue entry.
		q.removeActive(ctx, id)
		return nil, nil
	}

	now := time.Now().UTC()
	job.State = StateActive
	job.AttemptCount++
	job.StartedAt = &now
	if err := q.save(ctx, job, 0); err != nil {
		return nil, err
	}
	return job, nil
}

// Complete marks the job successful. Completed records expire per the
// retention policy; the done index tolerates the dangling ids.
func (q *RedisQueue) Complete(ctx context.Context, job *Job, outcomes []ProviderOutcome, summary string) error {
	now := time.Now().UTC()
	job.Attempts = append(job.Attempts, AttemptRecord{
		Number:    job.AttemptCount,
		StartedAt: startedOr(job, now),
		Outcomes:  outcomes,
	})
	job.State = StateCompleted
	job.FinishedAt = &now
	job.FailureReason = ""
	job.Summary = summary

	return classify("complete", q.finish(ctx, job, q.opts.CompletedRetention))
}

// Fail records the attempt and either schedules a retry with exponential
// backoff or, once attempts are exhausted, parks the job in the terminal
// failed state. Failed records are retained until manually cleared.
// The returned bool reports whether a retry was scheduled.
func (q *RedisQueue) Fail(ctx context.Context, job *Job, outcomes []ProviderOutcome, reason string) (bool, error) {
	now := time.Now().UTC()
	job.Attempts = append(job.Attempts, AttemptRecord{
		Number:    job.AttemptCount,
		StartedAt: startedOr(job, now),
		Outcomes:  outcomes,
		Error:     reason,
	})
	job.FailureReason = reason

	if job.AttemptCount < job.MaxAttempts {
		job.State = StateWaiting
		runAt := now.Add(q.backoff(job.AttemptCount))
		_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, keyActive, 1, job.Id)
			pipe.ZAdd(ctx, keyDelayed, redis.Z{Score: float64(runAt.UnixMilli()), Member: job.Id})
			return nil
		})
		if err != nil {
			return false, classify("fail", err)
		}
		return true, classify("fail", q.save(ctx, job, 0))
	}

	job.State = StateFailed
	job.FinishedAt = &now
	return false, classify("fail", q.finish(ctx, job, 0))
}

func (q *RedisQueue) backoff(attempt int) time.Duration {
	d := q.opts.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

func (q *RedisQueue) finish(ctx context.Context, job *Job, ttl time.Duration) error {
	if err := q.save(ctx, job, ttl); err != nil {
		return err
	}
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, keyActive, 1, job.Id)
		pipe.ZAdd(ctx, keyDone, redis.Z{Score: float64(job.FinishedAt.UnixMilli()), Member: job.Id})
		pipe.ZRemRangeByRank(ctx, keyDone, 0, int64(-(doneCap + 1)))
		return nil
	})
	return err
}

// PromoteDue moves delayed jobs whose backoff elapsed back onto the waiting
// list. Called periodically by the worker pool.
func (q *RedisQueue) PromoteDue(ctx context.Context) error {
	now := time.Now().UTC().UnixMilli()
	ids, err := q.rdb.ZRangeByScore(ctx, keyDelayed, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    fmt.Sprintf("%d", now),
		Offset: 0,
		Count:  promoteBatch,
	}).Result()
	if err != nil || len(ids) == 0 {
		return classify("promote", err)
	}

	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.LPush(ctx, keyWaiting, id)
			pipe.ZRem(ctx, keyDelayed, id)
		}
		return nil
	})
	return classify("promote", err)
}

// ReclaimStale returns jobs stranded on the active list by a dead worker to
// the waiting list once their visibility timeout lapses. A crash between
// dequeue and the terminal write must not lose the job. Jobs already at their
// attempt budget are parked as failed instead of looping through dead workers
// forever. Reports how many jobs were requeued or parked.
func (q *RedisQueue) ReclaimStale(ctx context.Context) (int, error) {
	ids, err := q.rdb.LRange(ctx, keyActive, 0, -1).Result()
	if err != nil {
		return 0, classify("reclaim", err)
	}

	reclaimed := 0
	cutoff := time.Now().UTC().Add(-q.opts.VisibilityTimeout)
	for _, id := range ids {
		job, err := q.Get(ctx, id)
		if err != nil {
			return reclaimed, err
		}
		if job == nil || job.terminal() {
			q.removeActive(ctx, id)
			continue
		}
		if job.State != StateActive || job.StartedAt == nil || job.StartedAt.After(cutoff) {
			continue
		}

		now := time.Now().UTC()
		if job.AttemptCount >= job.MaxAttempts {
			job.Attempts = append(job.Attempts, AttemptRecord{
				Number:    job.AttemptCount,
				StartedAt: startedOr(job, now),
				Error:     "worker lost before the attempt finished",
			})
			job.State = StateFailed
			job.FinishedAt = &now
			job.FailureReason = "worker lost before the attempt finished"
			if err := q.finish(ctx, job, 0); err != nil {
				return reclaimed, classify("reclaim", err)
			}
			reclaimed++
			continue
		}

		job.State = StateWaiting
		job.StartedAt = nil
		if err := q.save(ctx, job, 0); err != nil {
			return reclaimed, classify("reclaim", err)
		}
		_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LRem(ctx, keyActive, 1, id)
			pipe.LPush(ctx, keyWaiting, id)
			return nil
		})
		if err != nil {
			return reclaimed, classify("reclaim", err)
		}
		reclaimed++
	}
	return reclaimed, nil
}

func (q *RedisQueue) removeActive(ctx context.Context, id string) {
	if err := q.rdb.LRem(ctx, keyActive, 1, id).Err(); err != nil {
		q.log.Warn("DispatchQueue", "Failed to drop stale active entry", map[string]interface{}{"job_id": id, "error": err.Error()})
	}
}

// ListRecent returns up to limit completed/failed jobs, newest first. Ids
// whose record already expired under the retention policy are skipped.
func (q *RedisQueue) ListRecent(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := q.rdb.ZRevRange(ctx, keyDone, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, classify("list", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyJob + id
	}
	values, err := q.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, classify("list", err)
	}

	jobs := make([]*Job, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			q.log.Warn("DispatchQueue", "Skipping corrupt job record", map[string]interface{}{"error": err.Error()})
			continue
		}
		jobs = append(jobs, &job)
	}
	return jobs, nil
}

func (q *RedisQueue) Get(ctx context.Context, id string) (*Job, error) {
	raw, err := q.rdb.Get(ctx, keyJob+id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, classify("get", err)
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

func (q *RedisQueue) save(ctx context.Context, job *Job, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return q.rdb.Set(ctx, keyJob+job.Id, data, ttl).Err()
}

func startedOr(job *Job, fallback time.Time) time.Time {
	if job.StartedAt != nil {
		return *job.StartedAt
	}
	return fallback
}
