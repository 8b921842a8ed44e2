// Package rates converts between annually compounded zero-coupon rates and
// discount factors on an actual/365 time axis.
package rates

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDiscountFactor is returned when a non-positive discount factor
// would have to be converted into a zero rate.
var ErrInvalidDiscountFactor = errors.New("rates: invalid discount factor")

// DiscountFactorFromRate returns (1+zc)^-t. The caller must keep 1+zc > 0.
func DiscountFactorFromRate(zc, t float64) float64 {
	return math.Pow(1+zc, -t)
}

// RateFromDiscountFactor returns df^(-1/t) - 1.
// At or before the valuation date (t <= 0) the rate is 0. A tiny df over a
// very short t overflows to +Inf, which is returned as is.
func RateFromDiscountFactor(df, t float64) (float64, error) {
	if t <= 0 {
		return 0, nil
	}
	if df <= 0 {
		return 0, fmt.Errorf("%w: df=%g at t=%g", ErrInvalidDiscountFactor, df, t)
	}
	return math.Pow(df, -1/t) - 1, nil
}

// DiscountFactors derives one discount factor per pillar from zero rates.
func DiscountFactors(zcs, times []float64) []float64 {
	dfs := make([]float64, len(zcs))
	for i, zc := range zcs {
		dfs[i] = DiscountFactorFromRate(zc, times[i])
	}
	return dfs
}

// Rates derives one zero rate per pillar from discount factors.
func Rates(dfs, times []float64) ([]float64, error) {
	zcs := make([]float64, len(dfs))
	for i, df := range dfs {
		zc, err := RateFromDiscountFactor(df, times[i])
		if err != nil {
			return nil, fmt.Errorf("pillar %d: %w", i, err)
		}
		zcs[i] = zc
	}
	return zcs, nil
}
