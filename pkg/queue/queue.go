// Package queue runs background jobs from a Redis list or an in-process
// channel, with delayed retries and a dead-letter list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"FinCurve/pkg/logger"
)

var (
	ErrNotRunning  = errors.New("queue not running")
	ErrUnknownType = errors.New("no job registered for type")
	ErrQueueFull   = errors.New("queue full")
)

// Job handles messages of one type.
type Job interface {
	Type() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Queue accepts messages and dispatches them to registered jobs.
type Queue interface {
	// Register must be called before Start.
	Register(job Job)
	Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error)
	Start() error
	Stop(ctx context.Context) error
}

// Config contains the configuration for the queue
type Config struct {
	Workers    int           // number of workers
	QueueSize  int           // buffered messages, memory queue only
	RetryLimit int           // number of maximum retries
	RetryDelay time.Duration // time delay between retries
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	return c
}

// Message represents a message in the queue
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

func newMessage(msgType string, payload interface{}) (Message, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   b,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Decode unmarshals a message payload into T.
func Decode[T any](payload json.RawMessage) (*T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &v, nil
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeRetry
	outcomeDead
)

// dispatcher holds the job registry shared by the queue backends.
type dispatcher struct {
	log  *logger.Logger
	cfg  Config
	mu   sync.RWMutex
	jobs map[string]Job
}

func newDispatcher(log *logger.Logger, cfg Config) dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return dispatcher{log: log, cfg: cfg.withDefaults(), jobs: make(map[string]Job)}
}

// Register registers a job for its message type.
func (d *dispatcher) Register(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.jobs[job.Type()]; exists {
		d.log.Warn("job already registered", logger.String("type", job.Type()))
		return
	}
	d.jobs[job.Type()] = job
	d.log.Info("job registered", logger.String("type", job.Type()))
}

func (d *dispatcher) job(msgType string) (Job, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	j, ok := d.jobs[msgType]
	return j, ok
}

// dispatch runs msg and decides what happens to it next. Attempts is
// incremented on a retry.
func (d *dispatcher) dispatch(ctx context.Context, msg *Message) outcome {
	job, ok := d.job(msg.Type)
	if !ok {
		d.log.Error("no job found", logger.String("type", msg.Type), logger.String("id", msg.ID))
		return outcomeDead
	}

	start := time.Now()
	err := safeHandle(ctx, job, msg.Payload)
	if err == nil {
		return outcomeDone
	}
	if errors.Is(err, context.Canceled) {
		d.log.Warn("message cancelled",
			logger.String("id", msg.ID),
			logger.String("type", msg.Type),
			logger.Duration("elapsed", time.Since(start)))
		return outcomeRetry
	}

	d.log.Error("message processing error",
		logger.String("id", msg.ID),
		logger.String("type", msg.Type),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	if msg.Attempts >= d.cfg.RetryLimit {
		d.log.Error("max retries reached", logger.String("id", msg.ID), logger.String("type", msg.Type))
		return outcomeDead
	}
	msg.Attempts++
	return outcomeRetry
}

func safeHandle(ctx context.Context, job Job, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
	}()
	return job.Handle(ctx, payload)
}
