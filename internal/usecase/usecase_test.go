package usecase

import (
	"context"
	"sync"

	"FinCurve/internal/domain/models"
	"FinCurve/pkg/curve"
)

type fakeMetrics struct {
	mu      sync.Mutex
	built   []string
	queries []string
	errors  []string
	points  int
	skipped int
	count   int
}

func (m *fakeMetrics) RecordCurveBuilt(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.built = append(m.built, method)
}

func (m *fakeMetrics) RecordQuery(op, method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, op+":"+method)
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}

func (m *fakeMetrics) RecordSweepPoints(evaluated, skipped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points += evaluated
	m.skipped += skipped
}

func (m *fakeMetrics) SetCurveCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count = n
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

type fakePublisher struct {
	mu      sync.Mutex
	results []*models.SweepResult
	err     error
}

func (p *fakePublisher) PublishSweep(_ context.Context, res *models.SweepResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, res)
	return p.err
}

func sampleConfig(intp string) curve.Config {
	return curve.Config{
		Labels: []string{"1Y", "2Y", "5Y", "10Y"},
		Zcs:    []float64{0.01, 0.015, 0.02, 0.025},
		Intp:   intp,
	}
}
