package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCurve/pkg/logger"
)

type payload struct {
	N int `json:"n"`
}

// recordingJob fails the first `fail` calls, then records payloads.
type recordingJob struct {
	mu    sync.Mutex
	fail  int
	calls int
	seen  []int
	done  chan struct{}
}

func newRecordingJob(fail int) *recordingJob {
	return &recordingJob{fail: fail, done: make(chan struct{}, 16)}
}

func (j *recordingJob) Type() string { return "record" }

func (j *recordingJob) Handle(_ context.Context, raw json.RawMessage) error {
	p, err := Decode[payload](raw)
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	if j.calls <= j.fail {
		return errors.New("transient")
	}
	j.seen = append(j.seen, p.N)
	j.done <- struct{}{}
	return nil
}

func (j *recordingJob) snapshot() (int, []int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls, append([]int(nil), j.seen...)
}

func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("job not processed")
	}
}

func TestMemoryQueueProcesses(t *testing.T) {
	q := NewMemoryQueue(logger.Nop(), Config{Workers: 2})
	job := newRecordingJob(0)
	q.Register(job)
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	id, err := q.Enqueue(context.Background(), "record", payload{N: 7})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	waitDone(t, job.done)
	_, seen := job.snapshot()
	assert.Equal(t, []int{7}, seen)
}

func TestMemoryQueueRetries(t *testing.T) {
	q := NewMemoryQueue(logger.Nop(), Config{RetryLimit: 3, RetryDelay: 10 * time.Millisecond})
	job := newRecordingJob(2)
	q.Register(job)
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	_, err := q.Enqueue(context.Background(), "record", payload{N: 1})
	require.NoError(t, err)

	waitDone(t, job.done)
	calls, seen := job.snapshot()
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1}, seen)
	assert.Empty(t, q.DeadLetters())
}

func TestMemoryQueueDeadLetters(t *testing.T) {
	q := NewMemoryQueue(logger.Nop(), Config{RetryLimit: 1, RetryDelay: 5 * time.Millisecond})
	job := newRecordingJob(100)
	q.Register(job)
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	id, err := q.Enqueue(context.Background(), "record", payload{N: 1})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(q.DeadLetters()) == 1 }, 5*time.Second, 5*time.Millisecond)
	dead := q.DeadLetters()[0]
	assert.Equal(t, id, dead.ID)
	assert.Equal(t, 1, dead.Attempts)
	calls, _ := job.snapshot()
	assert.Equal(t, 2, calls)
}

func TestMemoryQueueRejects(t *testing.T) {
	q := NewMemoryQueue(logger.Nop(), Config{QueueSize: 1})
	q.Register(newRecordingJob(0))

	_, err := q.Enqueue(context.Background(), "record", payload{})
	assert.ErrorIs(t, err, ErrNotRunning)

	_, err = q.Enqueue(context.Background(), "other", payload{})
	assert.ErrorIs(t, err, ErrUnknownType)

	require.NoError(t, q.Start())
	require.NoError(t, q.Stop(context.Background()))
	_, err = q.Enqueue(context.Background(), "record", payload{})
	assert.ErrorIs(t, err, ErrNotRunning)
}

type panicJob struct{}

func (panicJob) Type() string                                  { return "panic" }
func (panicJob) Handle(context.Context, json.RawMessage) error { panic("boom") }

func TestMemoryQueueRecoversPanics(t *testing.T) {
	q := NewMemoryQueue(logger.Nop(), Config{})
	q.Register(panicJob{})
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	_, err := q.Enqueue(context.Background(), "panic", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(q.DeadLetters()) == 1 }, 5*time.Second, 5*time.Millisecond)
}

func TestDecode(t *testing.T) {
	p, err := Decode[payload](json.RawMessage(`{"n":3}`))
	require.NoError(t, err)
	assert.Equal(t, 3, p.N)

	_, err = Decode[payload](json.RawMessage(`[`))
	assert.Error(t, err)
}

func TestRedisQueue(t *testing.T) {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("REDIS_HOST not set")
	}
	client := redis.NewClient(&redis.Options{Addr: host + ":6379"})
	defer client.Close()

	prefix := "fincurve-test-queue-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	q := NewRedisQueue(logger.Nop(), Config{RetryLimit: 1, RetryDelay: 10 * time.Millisecond}, client,
		WithKeyPrefix(prefix), WithRetryPoll(20*time.Millisecond))
	job := newRecordingJob(1)
	q.Register(job)
	require.NoError(t, q.Start())
	defer func() {
		require.NoError(t, q.Stop(context.Background()))
		client.Del(context.Background(), q.queueKey(), q.retryKey(), q.deadLetterKey())
	}()

	_, err := q.Enqueue(context.Background(), "record", payload{N: 5})
	require.NoError(t, err)
	waitDone(t, job.done)

	_, seen := job.snapshot()
	assert.Equal(t, []int{5}, seen)

	queued, retrying, dead, err := q.Pending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, queued+retrying+dead)
}
