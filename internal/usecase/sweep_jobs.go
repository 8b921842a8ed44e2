package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"FinCurve/internal/domain/models"
	domrepo "FinCurve/internal/domain/repository"
	"FinCurve/pkg/logger"
	"FinCurve/pkg/queue"
)

// SweepJobType is the queue message type of asynchronous sweeps.
const SweepJobType = "curve_sweep"

type sweepJobMessage struct {
	JobID string `json:"job_id"`
}

// SweepJobs runs sweeps of stored curves in the background.
type SweepJobs struct {
	jobs    domrepo.SweepJobStore
	queue   domrepo.JobQueue
	curves  CurveSource
	sweeper *Sweeper
	metrics domrepo.Metrics
	log     *logger.Logger
	now     func() time.Time
}

func NewSweepJobs(jobs domrepo.SweepJobStore, q domrepo.JobQueue, curves CurveSource, sweeper *Sweeper, metrics domrepo.Metrics, log *logger.Logger) *SweepJobs {
	return &SweepJobs{
		jobs:    jobs,
		queue:   q,
		curves:  curves,
		sweeper: sweeper,
		metrics: metrics,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Submit records a queued job and hands it to the queue.
func (s *SweepJobs) Submit(ctx context.Context, names []string, grid models.Grid) (*models.SweepJob, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := validateName(name); err != nil {
			return nil, err
		}
	}

	now := s.now()
	job := &models.SweepJob{
		ID:        uuid.NewString(),
		Status:    models.SweepJobQueued,
		Names:     append([]string(nil), names...),
		Grid:      grid,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return nil, err
	}

	if _, err := s.queue.Enqueue(ctx, SweepJobType, sweepJobMessage{JobID: job.ID}); err != nil {
		s.metrics.RecordError("enqueue_sweep")
		job.Status = models.SweepJobFailed
		job.Error = err.Error()
		job.UpdatedAt = s.now()
		if serr := s.jobs.SaveJob(ctx, job); serr != nil {
			s.log.Warn("mark sweep job failed", logger.String("job", job.ID), logger.Error(serr))
		}
		return nil, fmt.Errorf("enqueue sweep job: %w", err)
	}

	s.log.Info("sweep job queued", logger.String("job", job.ID), logger.Int("curves", len(names)))
	return job, nil
}

// Status returns a job by id.
func (s *SweepJobs) Status(ctx context.Context, id string) (*models.SweepJob, error) {
	return s.jobs.LoadJob(ctx, id)
}

func (s *SweepJobs) Type() string { return SweepJobType }

// Handle runs one queued job. Missing curves are job failures; store
// errors are returned so the queue retries the whole job.
func (s *SweepJobs) Handle(ctx context.Context, payload json.RawMessage) error {
	msg, err := queue.Decode[sweepJobMessage](payload)
	if err != nil {
		s.log.Warn("dropping sweep job message", logger.Error(err))
		return nil
	}

	job, err := s.jobs.LoadJob(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, domrepo.ErrSweepJobNotFound) {
			s.log.Warn("sweep job expired before it ran", logger.String("job", msg.JobID))
			return nil
		}
		return err
	}
	if job.Status == models.SweepJobDone {
		return nil
	}

	job.Status = models.SweepJobRunning
	job.UpdatedAt = s.now()
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return err
	}

	start := time.Now()
	job.Results, job.Failures = nil, nil
	for _, name := range job.Names {
		c, err := s.curves.Get(ctx, name)
		if err != nil {
			if ErrorCode(err) == CodeInternal {
				return err
			}
			job.Failures = append(job.Failures, models.SweepFailure{Curve: name, Error: err.Error()})
			continue
		}
		res, err := s.sweeper.Sweep(ctx, name, c, job.Grid)
		if err != nil {
			return err
		}
		job.Results = append(job.Results, res)
	}
	s.metrics.RecordLatency("sweep_job", time.Since(start).Seconds())

	job.Status = models.SweepJobDone
	job.UpdatedAt = s.now()
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		return err
	}
	s.log.Info("sweep job done",
		logger.String("job", job.ID),
		logger.Int("results", len(job.Results)),
		logger.Int("failures", len(job.Failures)),
	)
	return nil
}

var _ queue.Job = (*SweepJobs)(nil)
