package curve

import (
	"fmt"

	"FinCurve/pkg/rates"
)

// Interpolator evaluates one method over pillar times and values that are
// already in the method's native representation. It is immutable.
type Interpolator struct {
	times        []float64
	values       []float64
	scheme       scheme
	shortEndFlat bool
	longEndFlat  bool

	// implied zero rates of the boundary pillars, linear_df only
	shortRate float64
	longRate  float64
}

// NewInterpolator shares times and values with the caller; neither may be
// modified afterwards. Times must be ascending.
func NewInterpolator(times, values []float64, method Method, shortEndFlat, longEndFlat bool) (*Interpolator, error) {
	if len(times) != len(values) || len(times) < 2 {
		return nil, fmt.Errorf("%w: %d times, %d values", ErrLengthMismatch, len(times), len(values))
	}
	sc, err := schemeOf(method)
	if err != nil {
		return nil, err
	}
	ip := &Interpolator{
		times:        times,
		values:       values,
		scheme:       sc,
		shortEndFlat: shortEndFlat,
		longEndFlat:  longEndFlat,
	}
	if sc == schemeLinearDF {
		n := len(times)
		if ip.shortRate, err = rates.RateFromDiscountFactor(values[0], times[0]); err != nil {
			return nil, err
		}
		if ip.longRate, err = rates.RateFromDiscountFactor(values[n-1], times[n-1]); err != nil {
			return nil, err
		}
	}
	return ip, nil
}

// weights finds the segment [times[i1], times[i2]] bracketing t by binary
// search and returns the affine weights of its end points. Outside the pillar
// range the boundary segment is used and the weights leave [0, 1].
func weights(times []float64, t float64) (i1, i2 int, w1, w2 float64) {
	imin, imax := 0, len(times)-1
	if imin == imax {
		return 0, 0, 1, 0
	}
	switch {
	case t <= times[0]:
		imax = 1
	case t >= times[imax]:
		imin = imax - 1
	}
	for imin+1 != imax {
		imed := (imin + imax) / 2
		if t > times[imed] {
			imin = imed
		} else {
			imax = imed
		}
	}
	w1 = (times[imax] - t) / (times[imax] - times[imin])
	return imin, imax, w1, 1 - w1
}

// Evaluate interpolates or extrapolates the native value at t.
func (ip *Interpolator) Evaluate(t float64) float64 {
	last := len(ip.times) - 1
	switch ip.scheme {
	case schemeLinearDF:
		// flat in the implied zero rate outside the pillars, never linear in dfs
		if t < ip.times[0] {
			return rates.DiscountFactorFromRate(ip.shortRate, t)
		}
		if t > ip.times[last] {
			return rates.DiscountFactorFromRate(ip.longRate, t)
		}
		return ip.linear(t)
	case schemeLinearRT:
		if t < ip.times[0] {
			return ip.values[0]
		}
		if t > ip.times[last] {
			return ip.values[last]
		}
		if t == 0 {
			return ip.linear(t)
		}
		i1, i2, w1, w2 := weights(ip.times, t)
		return (ip.values[i1]*ip.times[i1]*w1 + ip.values[i2]*ip.times[i2]*w2) / t
	default:
		if t < ip.times[0] && ip.shortEndFlat {
			return ip.values[0]
		}
		if t > ip.times[last] && ip.longEndFlat {
			return ip.values[last]
		}
		return ip.linear(t)
	}
}

func (ip *Interpolator) linear(t float64) float64 {
	i1, i2, w1, w2 := weights(ip.times, t)
	return ip.values[i1]*w1 + ip.values[i2]*w2
}
