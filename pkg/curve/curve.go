// Package curve builds interest-rate curves from pillars and answers zero
// rate, discount factor and forward queries at arbitrary times.
package curve

import (
	"fmt"
	"math"

	"FinCurve/pkg/rates"
	"FinCurve/pkg/util"
)

// minForwardInterval is the shortest period, in years, a forward is quoted over.
const minForwardInterval = 1.0 / 512

// Curve is an immutable interest-rate curve. Both representations are held;
// queries interpolate in the method's native one and convert once. A Curve is
// safe for concurrent use.
type Curve struct {
	cfg           Config
	times         []float64
	zcs           []float64
	dfs           []float64
	method        Method
	native        Representation
	shortEndFlat  bool
	longEndFlat   bool
	valuationDate string
	interp        *Interpolator
}

// New validates cfg and builds a curve. Errors are one of the construction
// errors of this package, possibly wrapped.
func New(cfg Config) (*Curve, error) {
	cfg = cfg.clone()

	times, err := resolveTimes(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Zcs == nil && cfg.Dfs == nil {
		return nil, ErrMissingValueFormat
	}
	method, err := ParseMethod(cfg.Intp)
	if err != nil {
		return nil, err
	}
	supplied := cfg.Zcs
	if supplied == nil {
		supplied = cfg.Dfs
	}
	if len(times) != len(supplied) || len(times) < 2 {
		return nil, fmt.Errorf("%w: %d times, %d values", ErrLengthMismatch, len(times), len(supplied))
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) || math.IsNaN(supplied[i]) || math.IsInf(supplied[i], 0) {
			return nil, fmt.Errorf("%w: pillar %d is not finite", ErrInvalidPillar, i)
		}
		if i > 0 && t <= times[i-1] {
			return nil, fmt.Errorf("%w: pillar %d at %g follows %g", ErrUnsortedTimes, i, t, times[i-1])
		}
	}

	c := &Curve{
		cfg:           cfg,
		times:         times,
		method:        method,
		native:        method.Native(),
		shortEndFlat:  cfg.ShortEndFlat,
		longEndFlat:   cfg.LongEndFlat,
		valuationDate: cfg.ValuationDate,
	}
	if cfg.Zcs != nil {
		c.zcs = cloneSlice(cfg.Zcs)
		c.dfs = rates.DiscountFactors(c.zcs, times)
	} else {
		c.dfs = cloneSlice(cfg.Dfs)
		if c.zcs, err = rates.Rates(c.dfs, times); err != nil {
			return nil, err
		}
	}

	values := c.zcs
	if c.native == RepresentationDiscountFactor {
		values = c.dfs
	}
	if c.interp, err = NewInterpolator(times, values, method, c.shortEndFlat, c.longEndFlat); err != nil {
		return nil, err
	}
	c.cfg.Intp = string(method)
	return c, nil
}

func resolveTimes(cfg Config) ([]float64, error) {
	switch {
	case cfg.Labels != nil:
		times, err := util.LabelsToTimes(cfg.Labels)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPillar, err)
		}
		return times, nil
	case cfg.Days != nil:
		return util.DaysToTimes(cfg.Days), nil
	case cfg.Dates != nil:
		if cfg.ValuationDate == "" {
			return nil, ErrMissingValuationDate
		}
		times, err := util.DatesToTimes(cfg.Dates, cfg.ValuationDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPillar, err)
		}
		return times, nil
	case cfg.Times != nil:
		return cloneSlice(cfg.Times), nil
	}
	return nil, ErrMissingTimeFormat
}

// Rate returns the zero-coupon rate at t. It fails only for linear_df curves
// whose interpolated discount factor at t is not positive.
func (c *Curve) Rate(t float64) (float64, error) {
	v := c.interp.Evaluate(t)
	if c.native == RepresentationRate {
		return v, nil
	}
	return rates.RateFromDiscountFactor(v, t)
}

// DiscountFactor returns the discount factor at t.
func (c *Curve) DiscountFactor(t float64) float64 {
	v := c.interp.Evaluate(t)
	if c.native == RepresentationDiscountFactor {
		return v
	}
	return rates.DiscountFactorFromRate(v, t)
}

// ForwardRate returns the annually compounded forward rate between t1 and t2,
// or 0 when the period is shorter than 1/512 of a year.
func (c *Curve) ForwardRate(t1, t2 float64) float64 {
	if t2-t1 < minForwardInterval {
		return 0
	}
	return math.Pow(c.DiscountFactor(t2)/c.DiscountFactor(t1), -1/(t2-t1)) - 1
}

// ForwardAmount returns the simple growth of one unit from t1 to t2.
func (c *Curve) ForwardAmount(t1, t2 float64) float64 {
	if t2-t1 < minForwardInterval {
		return 0
	}
	return c.DiscountFactor(t1)/c.DiscountFactor(t2) - 1
}

func (c *Curve) Times() []float64           { return cloneSlice(c.times) }
func (c *Curve) Rates() []float64           { return cloneSlice(c.zcs) }
func (c *Curve) DiscountFactors() []float64 { return cloneSlice(c.dfs) }
func (c *Curve) Method() Method             { return c.method }
func (c *Curve) Native() Representation     { return c.native }
func (c *Curve) ShortEndFlat() bool         { return c.shortEndFlat }
func (c *Curve) LongEndFlat() bool          { return c.longEndFlat }
func (c *Curve) ValuationDate() string      { return c.valuationDate }

// Config returns the configuration the curve was built from with intp
// normalised to the resolved method name.
func (c *Curve) Config() Config { return c.cfg.clone() }
