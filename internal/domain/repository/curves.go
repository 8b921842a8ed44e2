package repository

import (
	"context"
	"errors"

	"FinCurve/internal/domain/models"
)

var (
	ErrCurveNotFound    = errors.New("curve not found")
	ErrSweepJobNotFound = errors.New("sweep job not found")
)

// CurveStore persists curve definitions by name.
type CurveStore interface {
	Save(ctx context.Context, def *models.CurveDefinition) error
	// Load returns ErrCurveNotFound for unknown names.
	Load(ctx context.Context, name string) (*models.CurveDefinition, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
}

// ResultPublisher ships sweep results downstream.
type ResultPublisher interface {
	PublishSweep(ctx context.Context, res *models.SweepResult) error
}

// SweepJobStore keeps asynchronous sweep jobs until they expire.
type SweepJobStore interface {
	SaveJob(ctx context.Context, job *models.SweepJob) error
	// LoadJob returns ErrSweepJobNotFound for unknown or expired ids.
	LoadJob(ctx context.Context, id string) (*models.SweepJob, error)
}

// JobQueue hands work to background workers.
type JobQueue interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error)
}

type Metrics interface {
	RecordCurveBuilt(method string)
	RecordQuery(op, method string)
	RecordError(kind string)
	RecordSweepPoints(evaluated, skipped int)
	SetCurveCount(n int)
	RecordLatency(op string, seconds float64)
}
