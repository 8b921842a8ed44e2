package curve

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigFromJSON(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"days": [30, 365, 730],
		"dfs": [0.999, 0.98, "0.95"],
		"intp": "linear_df",
		"short_end_flat": true,
		"longEndFlat": "true",
		"valuation_date": "2024-01-02",
		"comment": "ignored"
	}`), &raw))

	cfg, err := ParseConfig(raw)
	require.NoError(t, err)

	assert.Equal(t, []int{30, 365, 730}, cfg.Days)
	assert.Equal(t, []float64{0.999, 0.98, 0.95}, cfg.Dfs)
	assert.Nil(t, cfg.Zcs)
	assert.Nil(t, cfg.Times)
	assert.Equal(t, "linear_df", cfg.Intp)
	assert.True(t, cfg.ShortEndFlat)
	assert.True(t, cfg.LongEndFlat)
	assert.Equal(t, "2024-01-02", cfg.ValuationDate)

	c, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, MethodLinearDF, c.Method())
}

func TestParseConfigCamelCaseWins(t *testing.T) {
	cfg, err := ParseConfig(map[string]any{
		"times":          []float64{1, 2},
		"zcs":            []int{1, 2},
		"shortEndFlat":   false,
		"short_end_flat": true,
	})
	require.NoError(t, err)

	assert.False(t, cfg.ShortEndFlat)
	assert.Equal(t, []float64{1, 2}, cfg.Zcs)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig(map[string]any{"times": []any{1.0, "x"}})
	assert.ErrorIs(t, err, ErrInvalidPillar)

	_, err = ParseConfig(map[string]any{"days": "seven"})
	assert.ErrorIs(t, err, ErrInvalidPillar)

	_, err = ParseConfig(map[string]any{"longEndFlat": "maybe"})
	assert.Error(t, err)
}

func TestParseMethod(t *testing.T) {
	for name, want := range map[string]Method{
		"":          MethodLinear,
		"linear":    MethodLinear,
		"linear_zc": MethodLinearZC,
		"linear_rt": MethodLinearRT,
		"linear_df": MethodLinearDF,
	} {
		got, err := ParseMethod(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseMethod("Linear")
	assert.ErrorIs(t, err, ErrUnknownMethod)

	assert.Equal(t, RepresentationDiscountFactor, MethodLinearDF.Native())
	assert.Equal(t, RepresentationRate, MethodLinearRT.Native())
	assert.Equal(t, "discount_factor", RepresentationDiscountFactor.String())
}
