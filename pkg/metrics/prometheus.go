package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	curvesBuilt *prometheus.CounterVec
	queries     *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	sweepPoints *prometheus.CounterVec
	curves      prometheus.Gauge
	latency     *prometheus.HistogramVec
}

// New registers the recorder with the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		curvesBuilt: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincurve_curves_built_total",
				Help: "Total number of curves built, by interpolation method",
			},
			[]string{"method"},
		),
		queries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincurve_queries_total",
				Help: "Total number of curve queries",
			},
			[]string{"op", "method"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincurve_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		sweepPoints: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincurve_sweep_points_total",
				Help: "Sweep grid points by result",
			},
			[]string{"result"},
		),
		curves: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "fincurve_curves_defined",
				Help: "Curves currently defined",
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincurve_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 10},
			},
			[]string{"operation"},
		),
	}
}

// RecordCurveBuilt counts a successful curve construction.
func (r *Recorder) RecordCurveBuilt(method string) {
	r.curvesBuilt.WithLabelValues(method).Inc()
}

// RecordQuery counts a point query.
func (r *Recorder) RecordQuery(op, method string) {
	r.queries.WithLabelValues(op, method).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordSweepPoints counts evaluated and skipped grid points.
func (r *Recorder) RecordSweepPoints(evaluated, skipped int) {
	r.sweepPoints.WithLabelValues("ok").Add(float64(evaluated))
	r.sweepPoints.WithLabelValues("skipped").Add(float64(skipped))
}

// SetCurveCount records how many curves are defined.
func (r *Recorder) SetCurveCount(n int) {
	r.curves.Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
