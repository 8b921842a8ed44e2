package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"FinCurve/pkg/logger"
)

// RedisQueue represents a Redis-based queue. Messages wait in a list,
// delayed retries in a sorted set scored by due time, and exhausted
// messages in a dead-letter list.
type RedisQueue struct {
	dispatcher

	client    *redis.Client
	keyPrefix string
	retryPoll time.Duration
	popWait   time.Duration

	wg        sync.WaitGroup
	state     sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets custom key prefix.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		r.keyPrefix = prefix
	}
}

// WithRetryPoll sets how often due retries are moved back to the queue.
func WithRetryPoll(d time.Duration) RedisQueueOption {
	return func(r *RedisQueue) {
		if d > 0 {
			r.retryPoll = d
		}
	}
}

// NewRedisQueue creates a new Redis queue.
func NewRedisQueue(lgr *logger.Logger, cfg Config, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	ctx, cancel := context.WithCancel(context.Background())

	rq := &RedisQueue{
		dispatcher: newDispatcher(lgr, cfg),
		client:     client,
		keyPrefix:  "fincurve:queue",
		retryPoll:  time.Second,
		popWait:    time.Second,
		ctx:        ctx,
		cancel:     cancel,
	}

	for _, opt := range opts {
		opt(rq)
	}

	return rq
}

// Start starts the queue server.
func (r *RedisQueue) Start() error {
	r.state.Lock()
	defer r.state.Unlock()
	if r.isRunning {
		return fmt.Errorf("queue already running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	r.isRunning = true

	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.retryProcessor()

	r.log.Info("redis queue started",
		logger.Int("workers", r.cfg.Workers),
		logger.String("addr", r.client.Options().Addr),
		logger.String("prefix", r.keyPrefix))
	return nil
}

// Stop gracefully stops the queue.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.state.Lock()
	if !r.isRunning {
		r.state.Unlock()
		return nil
	}
	r.isRunning = false
	r.log.Info("stopping redis queue...")
	r.cancel()
	r.state.Unlock()

	doneCh := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-ctx.Done():
		r.log.Warn("timeout waiting for queue workers", logger.Error(ctx.Err()))
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-doneCh:
		r.log.Info("redis queue stopped gracefully")
		return nil
	}
}

// Enqueue adds a message to the queue.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error) {
	r.state.Lock()
	running := r.isRunning
	r.state.Unlock()
	if !running {
		return "", ErrNotRunning
	}
	if _, ok := r.job(msgType); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, msgType)
	}

	msg, err := newMessage(msgType, payload)
	if err != nil {
		return "", err
	}
	if err := r.push(ctx, r.queueKey(), msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// Pending returns the number of queued, retrying and dead messages.
func (r *RedisQueue) Pending(ctx context.Context) (queued, retrying, dead int64, err error) {
	pipe := r.client.Pipeline()
	q := pipe.LLen(ctx, r.queueKey())
	rt := pipe.ZCard(ctx, r.retryKey())
	d := pipe.LLen(ctx, r.deadLetterKey())
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, 0, 0, err
	}
	return q.Val(), rt.Val(), d.Val(), nil
}

func (r *RedisQueue) push(ctx context.Context, key string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	r.log.Debug("queue worker started", logger.Int("worker_id", id))

	for r.ctx.Err() == nil {
		r.processNextMessage()
	}
	r.log.Debug("queue worker stopping", logger.Int("worker_id", id))
}

func (r *RedisQueue) processNextMessage() {
	result, err := r.client.BRPop(r.ctx, r.popWait, r.queueKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return
		}
		r.log.Error("brpop error", logger.Error(err))
		select {
		case <-r.ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		r.log.Error("unmarshal message", logger.Error(err))
		return
	}

	r.processMessage(msg)
}

func (r *RedisQueue) processMessage(msg Message) {
	// detached so a shutdown mid-job can still record the outcome
	bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch r.dispatch(r.ctx, &msg) {
	case outcomeRetry:
		if r.ctx.Err() != nil {
			// interrupted by shutdown, hand it back untouched
			if err := r.push(bg, r.queueKey(), msg); err != nil {
				r.log.Error("requeue on shutdown", logger.String("id", msg.ID), logger.Error(err))
			}
			return
		}
		r.scheduleRetry(bg, msg, time.Now().Add(r.cfg.RetryDelay))
	case outcomeDead:
		if err := r.push(bg, r.deadLetterKey(), msg); err != nil {
			r.log.Error("lpush dlq", logger.String("id", msg.ID), logger.Error(err))
		}
	}
}

func (r *RedisQueue) scheduleRetry(ctx context.Context, msg Message, at time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("marshal retry", logger.Error(err))
		return
	}

	err = r.client.ZAdd(ctx, r.retryKey(), redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: data,
	}).Err()
	if err != nil {
		r.log.Error("zadd retry", logger.Error(err))
		return
	}
	r.log.Info("scheduled retry",
		logger.String("id", msg.ID),
		logger.Int("attempt", msg.Attempts),
		logger.String("retry_at", at.Format(time.RFC3339)))
}

func (r *RedisQueue) retryProcessor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.retryPoll)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.processRetryMessages()
		}
	}
}

func (r *RedisQueue) processRetryMessages() {
	due, err := r.client.ZRangeByScore(r.ctx, r.retryKey(), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(time.Now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.log.Error("fetch retry messages", logger.Error(err))
		}
		return
	}

	for _, member := range due {
		// only the instance that removes the member requeues it
		removed, err := r.client.ZRem(r.ctx, r.retryKey(), member).Result()
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				r.log.Error("zrem retry", logger.Error(err))
			}
			return
		}
		if removed == 0 {
			continue
		}
		if err := r.client.LPush(r.ctx, r.queueKey(), member).Err(); err != nil {
			r.log.Error("move retry to queue", logger.Error(err))
		}
	}
}

func (r *RedisQueue) queueKey() string {
	return fmt.Sprintf("%s:messages", r.keyPrefix)
}

func (r *RedisQueue) retryKey() string {
	return fmt.Sprintf("%s:retry", r.keyPrefix)
}

func (r *RedisQueue) deadLetterKey() string {
	return fmt.Sprintf("%s:dlq", r.keyPrefix)
}

var _ Queue = (*RedisQueue)(nil)
