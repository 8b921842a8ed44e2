package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinCurve/pkg/logger"
)

// MemoryQueue is an in-process queue for single instance deployments.
// Messages are lost on restart.
type MemoryQueue struct {
	dispatcher

	ch      chan Message
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	state   sync.Mutex
	running bool
	dead    []Message
}

// NewMemoryQueue creates an in-process queue.
func NewMemoryQueue(lgr *logger.Logger, cfg Config) *MemoryQueue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &MemoryQueue{
		dispatcher: newDispatcher(lgr, cfg),
		ctx:        ctx,
		cancel:     cancel,
	}
	q.ch = make(chan Message, q.cfg.QueueSize)
	return q
}

func (q *MemoryQueue) Start() error {
	q.state.Lock()
	defer q.state.Unlock()
	if q.running {
		return fmt.Errorf("queue already running")
	}
	if q.ctx.Err() != nil {
		return ErrNotRunning
	}
	q.running = true

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.log.Info("memory queue started", logger.Int("workers", q.cfg.Workers))
	return nil
}

func (q *MemoryQueue) Stop(ctx context.Context) error {
	q.state.Lock()
	if !q.running {
		q.state.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.state.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-done:
		q.log.Info("memory queue stopped", logger.Int("pending", len(q.ch)))
		return nil
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, msgType string, payload interface{}) (string, error) {
	if _, ok := q.job(msgType); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, msgType)
	}
	msg, err := newMessage(msgType, payload)
	if err != nil {
		return "", err
	}
	if err := q.push(msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (q *MemoryQueue) push(msg Message) error {
	q.state.Lock()
	defer q.state.Unlock()
	if !q.running {
		return ErrNotRunning
	}
	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// DeadLetters returns messages that exhausted their retries.
func (q *MemoryQueue) DeadLetters() []Message {
	q.state.Lock()
	defer q.state.Unlock()
	return append([]Message(nil), q.dead...)
}

func (q *MemoryQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case msg := <-q.ch:
			q.process(msg)
		}
	}
}

func (q *MemoryQueue) process(msg Message) {
	switch q.dispatch(q.ctx, &msg) {
	case outcomeRetry:
		if q.ctx.Err() != nil {
			return
		}
		time.AfterFunc(q.cfg.RetryDelay, func() {
			if err := q.push(msg); err != nil {
				q.log.Warn("retry dropped", logger.String("id", msg.ID), logger.Error(err))
			}
		})
	case outcomeDead:
		q.state.Lock()
		q.dead = append(q.dead, msg)
		q.state.Unlock()
	}
}

var _ Queue = (*MemoryQueue)(nil)
