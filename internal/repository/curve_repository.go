package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinCurve/internal/domain/models"
	"FinCurve/internal/domain/repository"
	"FinCurve/pkg/cache"
)

const curveKeyPrefix = "curve"

// CacheCurveStore implements CurveStore on any cache.Service: memory for a
// single process, Redis or layered when instances share definitions.
type CacheCurveStore struct {
	cache cache.Service
}

// NewCacheCurveStore creates a curve store over svc.
func NewCacheCurveStore(svc cache.Service) repository.CurveStore {
	return &CacheCurveStore{cache: svc}
}

func curveKey(name string) string {
	return cache.GenerateKey(curveKeyPrefix, name)
}

func (s *CacheCurveStore) Save(ctx context.Context, def *models.CurveDefinition) error {
	if err := s.cache.Set(ctx, curveKey(def.Name), def, 0); err != nil {
		return fmt.Errorf("save curve %s: %w", def.Name, err)
	}
	return nil
}

func (s *CacheCurveStore) Load(ctx context.Context, name string) (*models.CurveDefinition, error) {
	var def models.CurveDefinition
	if err := s.cache.Get(ctx, curveKey(name), &def); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: %s", repository.ErrCurveNotFound, name)
		}
		return nil, fmt.Errorf("load curve %s: %w", name, err)
	}
	return &def, nil
}

func (s *CacheCurveStore) Delete(ctx context.Context, name string) error {
	ok, err := s.cache.Exists(ctx, curveKey(name))
	if err != nil {
		return fmt.Errorf("delete curve %s: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", repository.ErrCurveNotFound, name)
	}
	return s.cache.Delete(ctx, curveKey(name))
}

func (s *CacheCurveStore) List(ctx context.Context) ([]string, error) {
	keys, err := s.cache.Keys(ctx, curveKey(""))
	if err != nil {
		return nil, fmt.Errorf("list curves: %w", err)
	}
	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = cache.TrimKey(curveKeyPrefix, key)
	}
	return names, nil
}

const sweepJobKeyPrefix = "sweepjob"

// CacheSweepJobStore implements SweepJobStore on a cache.Service; jobs expire
// after ttl.
type CacheSweepJobStore struct {
	cache cache.Service
	ttl   time.Duration
}

// NewCacheSweepJobStore creates a sweep job store over svc.
func NewCacheSweepJobStore(svc cache.Service, ttl time.Duration) repository.SweepJobStore {
	return &CacheSweepJobStore{cache: svc, ttl: ttl}
}

func (s *CacheSweepJobStore) SaveJob(ctx context.Context, job *models.SweepJob) error {
	if err := s.cache.Set(ctx, cache.GenerateKey(sweepJobKeyPrefix, job.ID), job, s.ttl); err != nil {
		return fmt.Errorf("save sweep job %s: %w", job.ID, err)
	}
	return nil
}

func (s *CacheSweepJobStore) LoadJob(ctx context.Context, id string) (*models.SweepJob, error) {
	var job models.SweepJob
	if err := s.cache.Get(ctx, cache.GenerateKey(sweepJobKeyPrefix, id), &job); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: %s", repository.ErrSweepJobNotFound, id)
		}
		return nil, fmt.Errorf("load sweep job %s: %w", id, err)
	}
	return &job, nil
}

type messagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaResultPublisher implements ResultPublisher for Kafka, keyed by curve
// name.
type KafkaResultPublisher struct {
	producer messagePublisher
	topic    string
}

// NewKafkaResultPublisher creates Kafka publisher.
func NewKafkaResultPublisher(producer messagePublisher, topic string) repository.ResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) PublishSweep(ctx context.Context, res *models.SweepResult) error {
	return p.producer.Publish(ctx, p.topic, []byte(res.Curve), res)
}
