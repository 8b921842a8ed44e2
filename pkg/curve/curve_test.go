package curve

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCurve/pkg/rates"
)

func mustNew(t *testing.T, cfg Config) *Curve {
	t.Helper()
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func threePillar(intp string) Config {
	return Config{
		Times: []float64{1, 2, 3},
		Zcs:   []float64{0.01, 0.02, 0.03},
		Intp:  intp,
	}
}

func rate(t *testing.T, c *Curve, x float64) float64 {
	t.Helper()
	r, err := c.Rate(x)
	require.NoError(t, err)
	return r
}

func TestLinearOnPillarsAndBetween(t *testing.T) {
	c := mustNew(t, threePillar("linear"))

	assert.Equal(t, 0.01, rate(t, c, 1))
	assert.Equal(t, 0.03, rate(t, c, 3))
	assert.InDelta(t, 0.015, rate(t, c, 1.5), 1e-15)
}

func TestLinearZCMatchesLinear(t *testing.T) {
	a := mustNew(t, threePillar("linear"))
	b := mustNew(t, threePillar("linear_zc"))

	for _, x := range []float64{0.3, 1, 1.7, 2.5, 3, 6} {
		assert.Equal(t, rate(t, a, x), rate(t, b, x))
		assert.Equal(t, a.DiscountFactor(x), b.DiscountFactor(x))
	}
}

func TestLinearAffineWeightsExact(t *testing.T) {
	cfg := threePillar("linear")
	c := mustNew(t, cfg)
	times, zcs := cfg.Times, cfg.Zcs

	for i := 1; i < 20000; i++ {
		x := float64(i) / 1000
		i1 := 0
		if x > times[1] {
			i1 = 1
		}
		w1 := (times[i1+1] - x) / (times[i1+1] - times[i1])
		want := zcs[i1]*w1 + zcs[i1+1]*(1-w1)
		if got := rate(t, c, x); got != want {
			t.Fatalf("t=%g: got %v, want %v", x, got, want)
		}
	}
}

func TestShortEndFlat(t *testing.T) {
	cfg := threePillar("linear")
	cfg.ShortEndFlat = true
	flat := mustNew(t, cfg)

	assert.Equal(t, 0.01, rate(t, flat, 0.5))
	assert.Equal(t, rate(t, flat, 1), rate(t, flat, 0.5))

	extrapolated := mustNew(t, threePillar("linear"))
	assert.NotEqual(t, 0.01, rate(t, extrapolated, 0.5))
	assert.InDelta(t, 0.005, rate(t, extrapolated, 0.5), 1e-15)
}

func TestLongEndFlat(t *testing.T) {
	cfg := threePillar("linear")
	cfg.LongEndFlat = true
	flat := mustNew(t, cfg)

	assert.Equal(t, 0.03, rate(t, flat, 10))

	extrapolated := mustNew(t, threePillar("linear"))
	assert.InDelta(t, 0.04, rate(t, extrapolated, 4), 1e-15)
}

func TestLinearDFExtrapolatesFlatRate(t *testing.T) {
	c := mustNew(t, Config{
		Times: []float64{1, 2, 3},
		Dfs:   []float64{0.99, 0.97, 0.94},
		Intp:  "linear_df",
	})
	last := 0.94

	prev := last
	for _, x := range []float64{3.5, 4, 5, 10, 30} {
		df := c.DiscountFactor(x)
		assert.Greater(t, df, 0.0)
		assert.Less(t, df, last)
		assert.Less(t, df, prev)
		prev = df
	}

	implied, err := rates.RateFromDiscountFactor(last, 3)
	require.NoError(t, err)
	assert.InDelta(t, implied, rate(t, c, 7), 1e-12)

	first, err := rates.RateFromDiscountFactor(0.99, 1)
	require.NoError(t, err)
	assert.InDelta(t, first, rate(t, c, 0.25), 1e-12)
}

func TestLinearDFInterpolatesDiscountFactors(t *testing.T) {
	c := mustNew(t, Config{
		Times: []float64{1, 2},
		Dfs:   []float64{0.99, 0.97},
		Intp:  "linear_df",
	})

	assert.InDelta(t, 0.98, c.DiscountFactor(1.5), 1e-15)
	r, err := c.Rate(1.5)
	require.NoError(t, err)
	assert.InDelta(t, rates.DiscountFactorFromRate(r, 1.5), 0.98, 1e-12)
}

func TestLinearRT(t *testing.T) {
	c := mustNew(t, threePillar("linear_rt"))

	_, _, w1, w2 := weights([]float64{1, 2, 3}, 1.5)
	want := (0.01*1*w1 + 0.02*2*w2) / 1.5
	assert.Equal(t, want, rate(t, c, 1.5))
	assert.NotEqual(t, rate(t, mustNew(t, threePillar("linear")), 1.5), rate(t, c, 1.5))

	assert.Equal(t, 0.01, rate(t, c, 0.5))
	assert.Equal(t, 0.03, rate(t, c, 8))
}

func TestDerivedRepresentation(t *testing.T) {
	fromZcs := mustNew(t, threePillar("linear"))
	fromDfs := mustNew(t, Config{Times: []float64{1, 2, 3}, Dfs: fromZcs.DiscountFactors()})

	assert.InDeltaSlice(t, fromZcs.Rates(), fromDfs.Rates(), 1e-12)
	for i, x := range fromZcs.Times() {
		assert.InDelta(t, rates.DiscountFactorFromRate(fromZcs.Rates()[i], x), fromZcs.DiscountFactors()[i], 1e-15)
	}
}

func TestTimeSources(t *testing.T) {
	zcs := []float64{0.01, 0.02}

	tests := []struct {
		name string
		cfg  Config
		want []float64
	}{
		{name: "labels", cfg: Config{Labels: []string{"6m", "1Y"}, Zcs: zcs}, want: []float64{0.5, 1}},
		{name: "days", cfg: Config{Days: []int{73, 365}, Zcs: zcs}, want: []float64{0.2, 1}},
		{
			name: "dates",
			cfg:  Config{Dates: []string{"2024-01-01", "2024-12-31"}, ValuationDate: "2023-01-01", Zcs: zcs},
			want: []float64{1, 2},
		},
		{name: "times", cfg: Config{Times: []float64{0.25, 4}, Zcs: zcs}, want: []float64{0.25, 4}},
		{
			name: "labels win over times",
			cfg:  Config{Labels: []string{"1Y", "2Y"}, Times: []float64{7, 8}, Zcs: zcs},
			want: []float64{1, 2},
		},
		{
			name: "days win over dates",
			cfg:  Config{Days: []int{365, 730}, Dates: []string{"bad"}, Zcs: zcs},
			want: []float64{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustNew(t, tt.cfg)
			assert.InDeltaSlice(t, tt.want, c.Times(), 1e-12)
		})
	}
}

func TestConstructionErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{name: "no times", cfg: Config{Zcs: []float64{0.01, 0.02}}, want: ErrMissingTimeFormat},
		{name: "no values", cfg: Config{Times: []float64{1, 2}}, want: ErrMissingValueFormat},
		{name: "unknown method", cfg: Config{Times: []float64{1, 2}, Zcs: []float64{0.01, 0.02}, Intp: "cubic"}, want: ErrUnknownMethod},
		{name: "length mismatch", cfg: Config{Times: []float64{1, 2, 3}, Zcs: []float64{0.01, 0.02}}, want: ErrLengthMismatch},
		{name: "single pillar", cfg: Config{Times: []float64{1}, Zcs: []float64{0.01}}, want: ErrLengthMismatch},
		{name: "unsorted", cfg: Config{Times: []float64{2, 1}, Zcs: []float64{0.01, 0.02}}, want: ErrUnsortedTimes},
		{name: "duplicate", cfg: Config{Times: []float64{1, 1}, Zcs: []float64{0.01, 0.02}}, want: ErrUnsortedTimes},
		{name: "dates without valuation date", cfg: Config{Dates: []string{"2024-01-01", "2025-01-01"}, Zcs: []float64{0.01, 0.02}}, want: ErrMissingValuationDate},
		{name: "bad label", cfg: Config{Labels: []string{"1Q", "2Y"}, Zcs: []float64{0.01, 0.02}}, want: ErrInvalidPillar},
		{name: "bad df", cfg: Config{Times: []float64{1, 2}, Dfs: []float64{0.99, -0.1}}, want: ErrInvalidDiscountFactor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMissingTimeCheckedBeforeValues(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrMissingTimeFormat)
}

func TestCurveDoesNotAliasInput(t *testing.T) {
	cfg := threePillar("linear")
	c := mustNew(t, cfg)

	cfg.Times[1] = 100
	cfg.Zcs[1] = 1
	assert.Equal(t, 0.02, rate(t, c, 2))

	times := c.Times()
	times[0] = -1
	assert.Equal(t, 1.0, c.Times()[0])
}

func TestForward(t *testing.T) {
	c := mustNew(t, Config{Times: []float64{1, 2}, Zcs: []float64{0.02, 0.02}})

	assert.InDelta(t, 0.02, c.ForwardRate(1, 2), 1e-12)
	assert.InDelta(t, 0.02, c.ForwardAmount(1, 2), 1e-12)
	assert.Equal(t, 0.0, c.ForwardRate(1, 1+1.0/1024))
	assert.Equal(t, 0.0, c.ForwardAmount(2, 1))
}

func TestAccessorsAndConfig(t *testing.T) {
	c := mustNew(t, Config{
		Dates:         []string{"2024-01-01", "2025-01-01"},
		ValuationDate: "2023-01-01",
		Zcs:           []float64{0.01, 0.02},
		LongEndFlat:   true,
	})

	assert.Equal(t, MethodLinear, c.Method())
	assert.Equal(t, RepresentationRate, c.Native())
	assert.False(t, c.ShortEndFlat())
	assert.True(t, c.LongEndFlat())
	assert.Equal(t, "2023-01-01", c.ValuationDate())
	assert.Equal(t, "linear", c.Config().Intp)
	assert.Equal(t, []string{"2024-01-01", "2025-01-01"}, c.Config().Dates)
}

func TestConcurrentQueries(t *testing.T) {
	c := mustNew(t, Config{Labels: []string{"1M", "1Y", "5Y", "10Y"}, Zcs: []float64{0.01, 0.015, 0.02, 0.025}, Intp: "linear_df"})
	want := c.DiscountFactor(3.3)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, want, c.DiscountFactor(3.3))
			}
		}()
	}
	wg.Wait()
}
