package rates

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	dfs := []float64{1, 0.999, 0.95, 0.7, 0.3, 0.01, 1e-6}
	times := []float64{1.0 / 365, 0.25, 1, 5, 10, 30, 50}
	for _, df := range dfs {
		for _, tm := range times {
			zc, err := RateFromDiscountFactor(df, tm)
			require.NoError(t, err)
			if math.IsInf(zc, 1) {
				// df^(-1/t) beyond float64 range
				continue
			}
			assert.InDelta(t, df, DiscountFactorFromRate(zc, tm), 1e-9, "df=%g t=%g", df, tm)
		}
	}
}

func TestRateOverflow(t *testing.T) {
	zc, err := RateFromDiscountFactor(0.01, 1.0/365)
	require.NoError(t, err)
	assert.True(t, math.IsInf(zc, 1))

	zc, err = RateFromDiscountFactor(0.01, 30)
	require.NoError(t, err)
	assert.False(t, math.IsInf(zc, 0))
}

func TestRateAtOrBeforeValuationDate(t *testing.T) {
	for _, df := range []float64{1e-3, 0.5, 1, 1.2} {
		zc, err := RateFromDiscountFactor(df, 0)
		require.NoError(t, err)
		assert.Equal(t, 0.0, zc)
	}
	// no singular point before the valuation date either, even for df <= 0
	zc, err := RateFromDiscountFactor(-1, -0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, zc)
}

func TestRateFromNonPositiveDiscountFactor(t *testing.T) {
	for _, df := range []float64{0, -0.1} {
		_, err := RateFromDiscountFactor(df, 1)
		assert.ErrorIs(t, err, ErrInvalidDiscountFactor)
	}
}

func TestDiscountFactorFromRate(t *testing.T) {
	assert.Equal(t, 1.0, DiscountFactorFromRate(0.05, 0))
	assert.InDelta(t, 1/1.05, DiscountFactorFromRate(0.05, 1), 1e-15)
	assert.InDelta(t, 1/(1.05*1.05), DiscountFactorFromRate(0.05, 2), 1e-15)
	// negative time compounds forward
	assert.InDelta(t, 1.05, DiscountFactorFromRate(0.05, -1), 1e-15)
}

func TestBatchHelpers(t *testing.T) {
	times := []float64{1, 2, 3}
	zcs := []float64{0.01, 0.02, 0.03}

	dfs := DiscountFactors(zcs, times)
	require.Len(t, dfs, 3)
	for i := range dfs {
		assert.Equal(t, DiscountFactorFromRate(zcs[i], times[i]), dfs[i])
	}

	back, err := Rates(dfs, times)
	require.NoError(t, err)
	assert.InDeltaSlice(t, zcs, back, 1e-12)

	_, err = Rates([]float64{0.99, 0, 0.9}, times)
	assert.ErrorIs(t, err, ErrInvalidDiscountFactor)
	assert.Contains(t, err.Error(), "pillar 1")
}
