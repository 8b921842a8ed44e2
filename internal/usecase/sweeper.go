package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"FinCurve/internal/domain/models"
	domrepo "FinCurve/internal/domain/repository"
	"FinCurve/pkg/curve"
	"FinCurve/pkg/logger"
	"FinCurve/pkg/util"
)

// sweepTimeDecimals is the rounding applied to reported grid times.
const sweepTimeDecimals = 6

// CurveSource resolves a curve by name.
type CurveSource interface {
	Get(ctx context.Context, name string) (*curve.Curve, error)
}

// Sweeper evaluates curves over a grid of query times.
type Sweeper struct {
	curves    CurveSource
	publisher domrepo.ResultPublisher
	metrics   domrepo.Metrics
	log       *logger.Logger
	workers   int
}

// NewSweeper creates a sweeper. curves and publisher may be nil: without
// curves only Sweep and SweepAll work, without publisher results are not
// shipped anywhere.
func NewSweeper(curves CurveSource, publisher domrepo.ResultPublisher, metrics domrepo.Metrics, log *logger.Logger, workers int) *Sweeper {
	if workers <= 0 {
		workers = 1
	}
	return &Sweeper{curves: curves, publisher: publisher, metrics: metrics, log: log, workers: workers}
}

// SweepNamed sweeps a curve held by the curve source.
func (s *Sweeper) SweepNamed(ctx context.Context, name string, grid models.Grid) (*models.SweepResult, error) {
	if s.curves == nil {
		return nil, fmt.Errorf("%w: %s", domrepo.ErrCurveNotFound, name)
	}
	c, err := s.curves.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.Sweep(ctx, name, c, grid)
}

// Sweep evaluates c at every grid point. Points where the rate cannot be
// computed are recorded in Skipped rather than failing the sweep.
func (s *Sweeper) Sweep(ctx context.Context, name string, c *curve.Curve, grid models.Grid) (*models.SweepResult, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	pts := grid.Points()
	res := &models.SweepResult{
		Curve:  name,
		Method: string(c.Method()),
		Grid:   grid,
		Reference: models.Reference{
			Times: make([]float64, 0, len(pts)),
			Dfs:   make([]float64, 0, len(pts)),
			Zcs:   make([]float64, 0, len(pts)),
		},
	}
	for i, t := range pts {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rt := util.RoundTo(t, sweepTimeDecimals)
		zc, err := c.Rate(t)
		if err != nil {
			if !errors.Is(err, curve.ErrInvalidDiscountFactor) {
				return nil, err
			}
			s.log.Warn("sweep point skipped",
				logger.String("curve", name),
				logger.Float64("t", rt),
				logger.Error(err),
			)
			res.Skipped = append(res.Skipped, rt)
			continue
		}
		res.Times = append(res.Times, rt)
		res.Dfs = append(res.Dfs, c.DiscountFactor(t))
		res.Zcs = append(res.Zcs, zc)
	}
	s.metrics.RecordSweepPoints(len(res.Times), len(res.Skipped))
	s.metrics.RecordLatency("sweep", time.Since(start).Seconds())

	if s.publisher != nil {
		if err := s.publisher.PublishSweep(ctx, res); err != nil {
			s.metrics.RecordError("publish_sweep")
			s.log.Error("publish sweep", logger.String("curve", name), logger.Error(err))
		}
	}
	return res, nil
}

// SweepAll builds and sweeps every definition on a bounded pool of workers.
// A curve that fails to build is reported in the failures and does not stop
// the others. Both slices are sorted by curve name.
func (s *Sweeper) SweepAll(ctx context.Context, defs map[string]curve.Config, grid models.Grid) ([]*models.SweepResult, []models.SweepFailure, error) {
	if err := grid.Validate(); err != nil {
		return nil, nil, err
	}

	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]*models.SweepResult, len(names))
	errs := make([]error, len(names))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < s.workers && w < len(names); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = s.buildAndSweep(ctx, names[i], defs[names[i]], grid)
			}
		}()
	}

feed:
	for i := range names {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var (
		out      []*models.SweepResult
		failures []models.SweepFailure
	)
	for i, name := range names {
		if errs[i] != nil {
			failures = append(failures, models.SweepFailure{Curve: name, Error: errs[i].Error()})
			continue
		}
		out = append(out, results[i])
	}
	return out, failures, nil
}

func (s *Sweeper) buildAndSweep(ctx context.Context, name string, cfg curve.Config, grid models.Grid) (*models.SweepResult, error) {
	c, err := curve.New(cfg)
	if err != nil {
		s.metrics.RecordError(ErrorCode(err))
		s.log.Error("curve build failed", logger.String("curve", name), logger.Error(err))
		return nil, err
	}
	s.metrics.RecordCurveBuilt(string(c.Method()))
	return s.Sweep(ctx, name, c, grid)
}
