package kafka

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"FinCurve/pkg/logger"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads registered topics and fans messages out to a worker pool.
// Messages with the same key always go to the same worker, so they are
// handled in order.
type Consumer struct {
	cfg       *ConsumerConfig
	log       *logger.Logger
	handlers  map[string]MessageHandler
	readers   map[string]messageReader
	newReader func(topic string) messageReader
	dlq       messageWriter
	queues    []chan kafka.Message

	ctx       context.Context
	cancel    context.CancelFunc
	fetchWG   sync.WaitGroup
	workWG    sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "default",
		WorkerCount: 1,
		BufferSize:  10,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	c := &Consumer{
		cfg:      cfg,
		log:      cfg.Logger,
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]messageReader),
	}
	c.newReader = func(topic string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    topic,
			GroupID:  cfg.GroupID,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
		})
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.Hash{}}
	}

	return c, nil
}

// RegisterHandler registers a message handler for a specific topic. It must
// be called before Start.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.log.Warn("kafka consumer: handler already registered", logger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// Start starts the readers and workers. It returns immediately.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("kafka consumer: no handlers registered")
	}

	c.startOnce.Do(func() {
		c.ctx, c.cancel = context.WithCancel(context.Background())

		for topic := range c.handlers {
			c.readers[topic] = c.newReader(topic)
		}

		c.queues = make([]chan kafka.Message, c.cfg.WorkerCount)
		for i := range c.queues {
			c.queues[i] = make(chan kafka.Message, c.cfg.BufferSize)
			c.workWG.Add(1)
			go c.worker(c.queues[i])
		}

		for topic, reader := range c.readers {
			c.fetchWG.Add(1)
			go c.fetch(topic, reader)
		}

		c.log.Info("kafka consumer started",
			logger.Int("workers", c.cfg.WorkerCount),
			logger.String("group_id", c.cfg.GroupID),
		)
	})
	return nil
}

// Stop stops fetching, lets workers finish the message in hand and closes
// the readers. Queued messages that were not handled are not committed and
// will be redelivered.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error

	c.stopOnce.Do(func() {
		if c.cancel == nil {
			return
		}
		c.log.Info("kafka consumer stopping")
		c.cancel()
		c.fetchWG.Wait()
		for _, q := range c.queues {
			close(q)
		}

		done := make(chan struct{})
		go func() {
			c.workWG.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		case <-done:
		}

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.log.Error("kafka consumer: close reader", logger.String("topic", topic), logger.Error(err))
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.log.Error("kafka consumer: close dlq writer", logger.Error(err))
			}
		}
	})

	return stopErr
}

func (c *Consumer) fetch(topic string, reader messageReader) {
	defer c.fetchWG.Done()

	for {
		msg, err := reader.FetchMessage(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.log.Error("kafka consumer: fetch", logger.String("topic", topic), logger.Error(err))
			if !sleepCtx(c.ctx, c.cfg.BackoffMin) {
				return
			}
			continue
		}
		if msg.Topic == "" {
			msg.Topic = topic
		}

		q := c.queues[c.route(msg)]
		select {
		case q <- msg:
			c.cfg.Metrics.setQueueDepth(topic, len(q))
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Consumer) route(msg kafka.Message) int {
	n := len(c.queues)
	if len(msg.Key) == 0 {
		return msg.Partition % n
	}
	h := fnv.New32a()
	_, _ = h.Write(msg.Key)
	return int(h.Sum32() % uint32(n))
}

func (c *Consumer) worker(queue <-chan kafka.Message) {
	defer c.workWG.Done()

	for msg := range queue {
		if c.ctx.Err() != nil {
			continue
		}
		c.process(msg)
	}
}

func (c *Consumer) process(msg kafka.Message) {
	handler := c.handlers[msg.Topic]
	if handler == nil {
		return
	}

	start := time.Now()
	var err error
	attempts := 0
	for {
		attempts++
		err = c.safeHandle(handler, msg.Value)
		if err == nil || attempts > c.cfg.RetryMax {
			break
		}
		c.log.Warn("kafka consumer: handle failed, retrying",
			logger.String("topic", msg.Topic),
			logger.Int("attempt", attempts),
			logger.Error(err),
		)
		if !sleepCtx(c.ctx, backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)) {
			return
		}
	}

	result := "ok"
	if err != nil {
		result = "failed"
		c.log.Error("kafka consumer: giving up on message",
			logger.String("topic", msg.Topic),
			logger.Int64("offset", msg.Offset),
			logger.Int("attempts", attempts),
			logger.Error(err),
		)
		if c.writeDLQ(msg, err) {
			result = "dlq"
		}
	}
	c.cfg.Metrics.observeHandled(msg.Topic, result, time.Since(start))

	// commit after DLQ as well to avoid poison loops
	if result != "failed" {
		c.commit(msg)
	}
}

func (c *Consumer) safeHandle(handler MessageHandler, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
		}
	}()
	return handler.Handle(c.ctx, data)
}

func (c *Consumer) writeDLQ(msg kafka.Message, cause error) bool {
	if c.dlq == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Topic: c.cfg.DLQTopic,
		Key:   msg.Key,
		Value: msg.Value,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(msg.Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	})
	if err != nil {
		c.log.Error("kafka consumer: write dlq", logger.String("topic", c.cfg.DLQTopic), logger.Error(err))
		return false
	}
	return true
}

func (c *Consumer) commit(msg kafka.Message) {
	reader := c.readers[msg.Topic]
	if reader == nil {
		return
	}
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = reader.CommitMessages(ctx, msg)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.log.Error("kafka consumer: commit", logger.String("topic", msg.Topic), logger.Int64("offset", msg.Offset), logger.Error(err))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min << uint(attempt-1)
	if exp > max || exp <= 0 {
		exp = max
	}
	// jitter up to 50%
	return exp - time.Duration(rand.Int63n(int64(exp)/2+1))
}
