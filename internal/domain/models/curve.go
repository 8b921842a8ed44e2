package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"FinCurve/pkg/curve"
)

// maxGridPoints caps a single sweep.
const maxGridPoints = 100_000

var ErrInvalidGrid = errors.New("invalid sweep grid")

// CurveDefinition is a named curve configuration as stored.
type CurveDefinition struct {
	Name      string       `json:"name"`
	Config    curve.Config `json:"curve"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CurveDescription is the read model of a built curve.
type CurveDescription struct {
	Name          string    `json:"name"`
	Method        string    `json:"method"`
	Times         []float64 `json:"times"`
	Zcs           []float64 `json:"zcs"`
	Dfs           []float64 `json:"dfs"`
	ShortEndFlat  bool      `json:"shortEndFlat"`
	LongEndFlat   bool      `json:"longEndFlat"`
	ValuationDate string    `json:"valuationDate,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Grid is a sweep of query times from From while t <= To, accumulating Step.
type Grid struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
	Step float64 `json:"step"`
}

// DefaultGrid is 0.1 to 11 years in steps of 0.1.
var DefaultGrid = Grid{From: 0.1, To: 11, Step: 0.1}

func (g Grid) Validate() error {
	for _, v := range []float64{g.From, g.To, g.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bound", ErrInvalidGrid)
		}
	}
	if g.Step <= 0 {
		return fmt.Errorf("%w: step must be positive", ErrInvalidGrid)
	}
	if g.To < g.From {
		return fmt.Errorf("%w: to %g before from %g", ErrInvalidGrid, g.To, g.From)
	}
	// t += Step must advance anywhere in [From, To]
	if g.From+g.Step == g.From || g.To+g.Step == g.To {
		return fmt.Errorf("%w: step %g below float resolution", ErrInvalidGrid, g.Step)
	}
	if (g.To-g.From)/g.Step > maxGridPoints {
		return fmt.Errorf("%w: more than %d points", ErrInvalidGrid, maxGridPoints)
	}
	return nil
}

// Points lists the grid times. Times accumulate by repeated addition, so
// they carry the usual floating point drift; callers round for output.
func (g Grid) Points() []float64 {
	if g.Validate() != nil {
		return nil
	}
	var pts []float64
	for t := g.From; t <= g.To && len(pts) <= maxGridPoints; t += g.Step {
		pts = append(pts, t)
	}
	return pts
}

// Reference is a swept curve: parallel slices of query times, discount
// factors and zero rates.
type Reference struct {
	Times []float64 `json:"times"`
	Dfs   []float64 `json:"dfs"`
	Zcs   []float64 `json:"zcs"`
}

// SweepResult is one curve evaluated over a grid. Points whose rate could not
// be computed are listed in Skipped and left out of Reference.
type SweepResult struct {
	Curve  string `json:"curve"`
	Method string `json:"method"`
	Grid   Grid   `json:"grid"`
	Reference
	Skipped []float64 `json:"skipped,omitempty"`
}

// SweepFailure records a curve that could not be built in a batch.
type SweepFailure struct {
	Curve string `json:"curve"`
	Error string `json:"error"`
}

// CurveEvent is a message on the curve definitions topic.
type CurveEvent struct {
	Name   string         `json:"name"`
	Curve  map[string]any `json:"curve,omitempty"`
	Delete bool           `json:"delete,omitempty"`
}

type SweepJobStatus string

const (
	SweepJobQueued  SweepJobStatus = "queued"
	SweepJobRunning SweepJobStatus = "running"
	SweepJobDone    SweepJobStatus = "done"
	SweepJobFailed  SweepJobStatus = "failed"
)

// SweepJob is an asynchronous sweep of stored curves.
type SweepJob struct {
	ID        string         `json:"id"`
	Status    SweepJobStatus `json:"status"`
	Names     []string       `json:"names"`
	Grid      Grid           `json:"grid"`
	Results   []*SweepResult `json:"results,omitempty"`
	Failures  []SweepFailure `json:"failures,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
